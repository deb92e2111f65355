package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

const (
	LabelIncludes   = "includes"
	LabelHosts      = "hosts"
	LabelFeatures   = "features"
	LabelContains   = "contains"
	LabelAssignedTo = "assigned_to"
)

// adventureLabel names the ownership link from an adventure to a member.
func adventureLabel(t questlog.EntityType) string {
	switch t {
	case questlog.EntitySession:
		return LabelHosts
	case questlog.EntityLocation:
		return LabelContains
	default:
		return LabelFeatures
	}
}

// campaignLabel names the ownership link from a campaign to a member that
// belongs to no adventure.
func campaignLabel(t questlog.EntityType) string {
	if t == questlog.EntityLocation {
		return LabelContains
	}
	return LabelIncludes
}

// GraphUsecase assembles the network of one campaign from structural
// ownership, assignments and relations. It keeps no state between builds.
type GraphUsecase struct {
	entities    EntityRepository
	relations   RelationRepository
	assignments AssignmentRepository
}

func NewGraphUsecase(entities EntityRepository, relations RelationRepository, assignments AssignmentRepository) *GraphUsecase {
	return &GraphUsecase{
		entities:    entities,
		relations:   relations,
		assignments: assignments,
	}
}

// Build returns the campaign network. Only a missing campaign is an error;
// references that no longer resolve are dropped and logged.
func (uc *GraphUsecase) Build(ctx context.Context, campaignID int64, includeRelationships bool) (questlog.Graph, error) {
	ctx, span := tracer.Start(ctx, "Graph.Build")
	defer span.End()

	campaign, err := uc.entities.Resolve(ctx, questlog.EntityKey{Type: questlog.EntityCampaign, ID: campaignID})
	if err != nil {
		span.RecordError(err)
		return questlog.Graph{}, err
	}

	b := newGraphBuilder(ctx, campaignID)
	root := b.node(campaign)

	uc.structure(ctx, b, root, campaignID)
	uc.assigned(ctx, b, campaignID)
	if includeRelationships {
		uc.related(ctx, b, campaignID)
	}

	graph := b.graph()
	span.SetAttributes(
		attribute.Int64("campaignId", campaignID),
		attribute.Int("nodes", len(graph.Nodes)),
		attribute.Int("edges", len(graph.Edges)),
	)
	return graph, nil
}

func (uc *GraphUsecase) structure(ctx context.Context, b *graphBuilder, root string, campaignID int64) {
	adventures, err := uc.entities.Adventures(ctx, campaignID)
	if err != nil {
		b.drop("adventures", err)
		adventures = nil
	}
	for _, adventure := range adventures {
		id := b.node(adventure)
		b.edge(structuralEdge(root, id, LabelIncludes))

		members, err := uc.entities.Members(ctx, adventure.EntityID)
		if err != nil {
			b.drop(id, err)
			continue
		}
		for _, member := range members {
			b.edge(structuralEdge(id, b.node(member), adventureLabel(member.EntityType)))
		}
	}

	loose, err := uc.entities.Loose(ctx, campaignID)
	if err != nil {
		b.drop("loose members", err)
		return
	}
	for _, member := range loose {
		b.edge(structuralEdge(root, b.node(member), campaignLabel(member.EntityType)))
	}
}

func (uc *GraphUsecase) assigned(ctx context.Context, b *graphBuilder, campaignID int64) {
	rows, err := uc.assignments.ListByEntityTypes(ctx, AssignableTypes)
	if err != nil {
		b.drop("assignments", err)
		return
	}
	for _, row := range rows {
		entity, err := uc.entities.Resolve(ctx, row.Entity())
		if err != nil {
			b.drop("assignment:"+strconv.FormatInt(row.ID, 10), err)
			continue
		}
		if entity.CampaignID == nil || *entity.CampaignID != campaignID {
			continue
		}
		item, err := uc.entities.Resolve(ctx, questlog.EntityKey{Type: questlog.EntityMagicItem, ID: row.MagicItemID})
		if err != nil {
			b.drop("assignment:"+strconv.FormatInt(row.ID, 10), err)
			continue
		}
		b.edge(questlog.GraphEdge{
			ID:       "assignment:" + strconv.FormatInt(row.ID, 10),
			Source:   b.node(item),
			Target:   b.node(entity),
			Relation: LabelAssignedTo,
			Data:     &questlog.EdgeData{AssignmentID: row.ID},
		})
	}
}

func (uc *GraphUsecase) related(ctx context.Context, b *graphBuilder, campaignID int64) {
	rels, err := uc.relations.List(ctx, campaignID)
	if err != nil {
		b.drop("relations", err)
		return
	}
	for _, rel := range rels {
		edgeID := "relation:" + strconv.FormatInt(rel.ID, 10)
		source, err := uc.entities.Resolve(ctx, rel.Source())
		if err != nil {
			b.drop(edgeID, err)
			continue
		}
		target, err := uc.entities.Resolve(ctx, rel.Target())
		if err != nil {
			b.drop(edgeID, err)
			continue
		}

		data := &questlog.EdgeData{
			IsRelationship: true,
			Bidirectional:  rel.Bidirectional,
			RelationID:     rel.ID,
		}
		if rel.Description != nil {
			data.Description = *rel.Description
		}
		b.edge(questlog.GraphEdge{
			ID:       edgeID,
			Source:   b.node(source),
			Target:   b.node(target),
			Relation: rel.RelationType,
			Data:     data,
		})
	}
}

func structuralEdge(source, target, label string) questlog.GraphEdge {
	return questlog.GraphEdge{
		ID:       source + "->" + target,
		Source:   source,
		Target:   target,
		Relation: label,
	}
}

// graphBuilder accumulates nodes and edges in insertion order, keeping the
// first node and edge seen for every id.
type graphBuilder struct {
	ctx        context.Context
	campaignID int64
	nodes      []questlog.GraphNode
	edges      []questlog.GraphEdge
	nodeIndex  map[string]struct{}
	edgeIndex  map[string]struct{}
}

func newGraphBuilder(ctx context.Context, campaignID int64) *graphBuilder {
	return &graphBuilder{
		ctx:        ctx,
		campaignID: campaignID,
		nodes:      []questlog.GraphNode{},
		edges:      []questlog.GraphEdge{},
		nodeIndex:  make(map[string]struct{}),
		edgeIndex:  make(map[string]struct{}),
	}
}

func (b *graphBuilder) node(ref questlog.EntityRef) string {
	id := questlog.NodeID(ref.EntityType, ref.EntityID)
	if _, ok := b.nodeIndex[id]; ok {
		return id
	}
	b.nodeIndex[id] = struct{}{}

	node := questlog.GraphNode{
		ID:   id,
		Type: ref.EntityType,
		Name: ref.Name,
		Href: ref.Path,
		Data: map[string]any{"entityId": ref.EntityID},
	}
	if ref.Subtype != "" {
		node.Data["subtype"] = ref.Subtype
	}
	b.nodes = append(b.nodes, node)
	return id
}

func (b *graphBuilder) edge(e questlog.GraphEdge) {
	if _, ok := b.edgeIndex[e.ID]; ok {
		return
	}
	b.edgeIndex[e.ID] = struct{}{}
	b.edges = append(b.edges, e)
}

func (b *graphBuilder) drop(what string, err error) {
	level := slog.LevelError
	if errors.Is(err, domain.ErrNotFound) {
		level = slog.LevelWarn
	}
	slog.Log(
		b.ctx, level, "dropped from campaign network",
		slog.String("ref", what),
		slog.String("error", err.Error()),
		slog.Int64("campaignId", b.campaignID),
		slog.String("module", "graph"),
	)
}

func (b *graphBuilder) graph() questlog.Graph {
	return questlog.Graph{Nodes: b.nodes, Edges: b.edges}
}
