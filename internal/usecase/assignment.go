package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

// AssignableTypes are the entity types a magic item can be assigned to.
var AssignableTypes = []questlog.EntityType{
	questlog.EntityCharacter,
	questlog.EntityLocation,
	questlog.EntityAdventure,
	questlog.EntitySession,
}

type AssignmentUsecase struct {
	repo     AssignmentRepository
	registry EntityRepository
	lookup   func(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error)
	notifier Notifier
	now      func() time.Time
}

func NewAssignmentUsecase(repo AssignmentRepository, registry EntityRepository, notifier Notifier) *AssignmentUsecase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	uc := &AssignmentUsecase{
		repo:     repo,
		registry: registry,
		lookup:   registry.Resolve,
		notifier: notifier,
		now:      time.Now,
	}
	if display, ok := registry.(DisplayResolver); ok {
		uc.lookup = display.Lookup
	}
	return uc
}

// Assign attaches the item to every listed entity that does not hold it yet
// and returns the number of new assignments.
func (uc *AssignmentUsecase) Assign(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityIDs []int64) (int, error) {
	ctx, span := tracer.Start(ctx, "Assignment.Assign")
	defer span.End()

	if !entityType.Assignable() {
		return 0, domain.Invalid("magic items cannot be assigned to %q", entityType)
	}
	if len(entityIDs) == 0 {
		return 0, domain.Invalid("entityIds is required")
	}

	item := questlog.EntityKey{Type: questlog.EntityMagicItem, ID: magicItemID}
	if _, err := uc.registry.Resolve(ctx, item); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.Invalid("%s does not exist", item)
		}
		return 0, err
	}

	ids := make([]int64, 0, len(entityIDs))
	seen := make(map[int64]struct{}, len(entityIDs))
	campaigns := make(map[int64]struct{})
	for _, id := range entityIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		key := questlog.EntityKey{Type: entityType, ID: id}
		ref, err := uc.registry.Resolve(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return 0, domain.Invalid("%s does not exist", key)
			}
			return 0, err
		}
		if ref.CampaignID != nil {
			campaigns[*ref.CampaignID] = struct{}{}
		}
		ids = append(ids, id)
	}

	created, err := uc.repo.CreateMissing(ctx, magicItemID, entityType, ids, uc.now().UTC())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("created", created))

	if created > 0 {
		for campaignID := range campaigns {
			uc.changed(ctx, campaignID)
		}
	}
	return created, nil
}

// Unassign removes one assignment. Missing assignments are not an error.
func (uc *AssignmentUsecase) Unassign(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityID int64) error {
	ctx, span := tracer.Start(ctx, "Assignment.Unassign")
	defer span.End()

	if !entityType.Assignable() {
		return domain.Invalid("magic items cannot be assigned to %q", entityType)
	}

	removed, err := uc.repo.Delete(ctx, magicItemID, entityType, entityID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !removed {
		return nil
	}

	ref, err := uc.registry.Resolve(ctx, questlog.EntityKey{Type: entityType, ID: entityID})
	if err == nil && ref.CampaignID != nil {
		uc.changed(ctx, *ref.CampaignID)
	}
	return nil
}

// ListAssignments returns the item's assignments, newest first. Rows without
// a timestamp sort last.
func (uc *AssignmentUsecase) ListAssignments(ctx context.Context, magicItemID int64) ([]domain.AssignmentView, error) {
	ctx, span := tracer.Start(ctx, "Assignment.ListAssignments")
	defer span.End()

	rows, err := uc.repo.ListByItem(ctx, magicItemID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	views := make([]domain.AssignmentView, 0, len(rows))
	for _, row := range rows {
		view := domain.AssignmentView{Assignment: row}
		ref, err := uc.lookup(ctx, row.Entity())
		switch {
		case err == nil:
			view.EntityName = ref.Name
			view.EntityPath = ref.Path
			view.CampaignID = ref.CampaignID
			view.CampaignTitle = ref.CampaignTitle
		case errors.Is(err, domain.ErrNotFound):
			view.EntityName = fmt.Sprintf("Unknown %s #%d", row.EntityType, row.EntityID)
			view.Dangling = true
		default:
			return nil, err
		}
		views = append(views, view)
	}

	SortAssignmentViews(views)
	return views, nil
}

func SortAssignmentViews(views []domain.AssignmentView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].AssignedAt, views[j].AssignedAt
		switch {
		case a == nil && b == nil:
			return views[i].ID > views[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return views[i].ID > views[j].ID
		default:
			return a.After(*b)
		}
	})
}

// SearchAssignable searches entities of an assignable type, leaving out the
// keys in excluding.
func (uc *AssignmentUsecase) SearchAssignable(ctx context.Context, q domain.SearchQuery, excluding map[questlog.EntityKey]struct{}) ([]questlog.EntityRef, error) {
	if !q.Type.Assignable() {
		return nil, domain.Invalid("magic items cannot be assigned to %q", q.Type)
	}

	limit := q.EffectiveLimit()
	q.Extra = len(excluding)

	refs, err := uc.registry.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]questlog.EntityRef, 0, limit)
	for _, ref := range refs {
		// merged searches can surface other types, e.g. npcs for characters
		if ref.EntityType != q.Type {
			continue
		}
		if _, skip := excluding[ref.Key()]; skip {
			continue
		}
		result = append(result, ref)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (uc *AssignmentUsecase) changed(ctx context.Context, campaignID int64) {
	err := uc.notifier.Publish(ctx, questlog.Event{Type: questlog.EventGraphChanged, CampaignID: campaignID})
	if err != nil {
		slog.WarnContext(
			ctx, "failed to publish graph change",
			slog.String("error", err.Error()),
			slog.Int64("campaignId", campaignID),
			slog.String("module", "assignment"),
		)
	}
}
