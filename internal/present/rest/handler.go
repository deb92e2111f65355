package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
	"github.com/totegamma/questlog/internal/present/rest/presenter"
	"github.com/totegamma/questlog/internal/service"
	"github.com/totegamma/questlog/internal/usecase"
)

type Handler struct {
	registry   *usecase.EntityRegistry
	relation   *usecase.RelationUsecase
	assignment *usecase.AssignmentUsecase
	graph      *usecase.GraphUsecase
	signal     *service.SignalService
}

func NewHandler(
	registry *usecase.EntityRegistry,
	relation *usecase.RelationUsecase,
	assignment *usecase.AssignmentUsecase,
	graph *usecase.GraphUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		registry:   registry,
		relation:   relation,
		assignment: assignment,
		graph:      graph,
		signal:     signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/relations", h.handleListRelations)
	e.POST("/relations", h.handleCreateRelation)
	e.GET("/relations/types", h.handleRelationTypes)
	e.PUT("/relations/:id", h.handleUpdateRelation)
	e.DELETE("/relations/:id", h.handleDeleteRelation)
	e.GET("/entities/search", h.handleSearch)
	e.GET("/magic-items/assignable", h.handleAssignable)
	e.POST("/magic-items/:itemId/assign", h.handleAssign)
	e.DELETE("/magic-items/:itemId/assign/:entityType/:entityId", h.handleUnassign)
	e.GET("/magic-items/:itemId/assignments", h.handleAssignments)
	e.GET("/campaigns/:id/network", h.handleNetwork)
	e.GET("/campaigns/:id/realtime", h.handleRealtime)
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid %s", name)
	}
	return id, nil
}

func queryID(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.Invalid("invalid %s", name)
	}
	return &id, nil
}

func searchQuery(c echo.Context) (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Type:  questlog.EntityType(c.QueryParam("entityType")),
		Query: c.QueryParam("search"),
	}
	campaignID, err := queryID(c, "campaignId")
	if err != nil {
		return q, err
	}
	q.CampaignID = campaignID

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, domain.Invalid("invalid limit")
		}
		q.Limit = limit
	}
	return q, nil
}

func (h *Handler) handleListRelations(c echo.Context) error {
	ctx := c.Request().Context()

	campaignID, err := queryID(c, "campaignId")
	if err != nil {
		return presenter.Error(c, err)
	}
	if campaignID == nil {
		return presenter.BadRequestMessage(c, "campaignId is required")
	}

	relations, err := h.relation.List(ctx, *campaignID)
	if err != nil {
		return presenter.Error(c, err)
	}
	if relations == nil {
		relations = []questlog.Relation{}
	}
	return presenter.OK(c, relations)
}

func (h *Handler) handleCreateRelation(c echo.Context) error {
	ctx := c.Request().Context()

	var req questlog.CreateRelationRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "malformed body")
	}

	rel, err := h.relation.Create(ctx, req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, rel)
}

func (h *Handler) handleRelationTypes(c echo.Context) error {
	return presenter.OK(c, domain.SuggestedRelationTypes)
}

func (h *Handler) handleUpdateRelation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	var req questlog.UpdateRelationRequest
	err = c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "malformed body")
	}

	rel, err := h.relation.Update(ctx, id, req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, rel)
}

func (h *Handler) handleDeleteRelation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	err = h.relation.Delete(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := searchQuery(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	refs, err := h.registry.Search(ctx, q)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, refs)
}

// handleAssignable searches assignment candidates. Entities already holding
// magicItemId, and node ids listed in exclude, are left out.
func (h *Handler) handleAssignable(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := searchQuery(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	excluding := make(map[questlog.EntityKey]struct{})
	if raw := c.QueryParam("exclude"); raw != "" {
		for _, nodeID := range strings.Split(raw, ",") {
			key, err := questlog.ParseEntityKey(strings.TrimSpace(nodeID))
			if err != nil {
				return presenter.BadRequest(c, err)
			}
			excluding[key] = struct{}{}
		}
	}

	itemID, err := queryID(c, "magicItemId")
	if err != nil {
		return presenter.Error(c, err)
	}
	if itemID != nil {
		current, err := h.assignment.ListAssignments(ctx, *itemID)
		if err != nil {
			return presenter.Error(c, err)
		}
		for _, view := range current {
			excluding[view.Entity()] = struct{}{}
		}
	}

	refs, err := h.assignment.SearchAssignable(ctx, q, excluding)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, refs)
}

func (h *Handler) handleAssign(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := paramID(c, "itemId")
	if err != nil {
		return presenter.Error(c, err)
	}

	var req questlog.AssignRequest
	err = c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "malformed body")
	}

	created, err := h.assignment.Assign(ctx, itemID, req.EntityType, req.EntityIDs)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, questlog.AssignResponse{Created: created})
}

func (h *Handler) handleUnassign(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := paramID(c, "itemId")
	if err != nil {
		return presenter.Error(c, err)
	}
	entityID, err := paramID(c, "entityId")
	if err != nil {
		return presenter.Error(c, err)
	}

	err = h.assignment.Unassign(ctx, itemID, questlog.EntityType(c.Param("entityType")), entityID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleAssignments(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := paramID(c, "itemId")
	if err != nil {
		return presenter.Error(c, err)
	}

	views, err := h.assignment.ListAssignments(ctx, itemID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, views)
}

func (h *Handler) handleNetwork(c echo.Context) error {
	ctx := c.Request().Context()

	campaignID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	include := true
	if raw := c.QueryParam("includeRelationships"); raw != "" {
		include, err = strconv.ParseBool(raw)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid includeRelationships")
		}
	}

	graph, err := h.graph.Build(ctx, campaignID, include)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, graph)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleRealtime streams graph change events of one campaign. Clients only
// send heartbeats; any read error ends the stream.
func (h *Handler) handleRealtime(c echo.Context) error {
	campaignID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan questlog.Event)
	go h.signal.Realtime(ctx, campaignID, output)

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
