package usecase

import (
	"context"
	"time"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

// EntityRepository resolves and searches the heterogeneous entity tables.
type EntityRepository interface {
	Resolve(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error)
	Search(ctx context.Context, q domain.SearchQuery) ([]questlog.EntityRef, error)
	Adventures(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error)
	Members(ctx context.Context, adventureID int64) ([]questlog.EntityRef, error)
	Loose(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error)
}

// RelationRepository defines storage operations for user-authored relations.
type RelationRepository interface {
	Create(ctx context.Context, rel questlog.Relation) (questlog.Relation, error)
	Get(ctx context.Context, id int64) (questlog.Relation, error)
	List(ctx context.Context, campaignID int64) ([]questlog.Relation, error)
	Between(ctx context.Context, campaignID int64, a, b questlog.EntityKey, relationType string) ([]questlog.Relation, error)
	Update(ctx context.Context, id int64, patch domain.RelationPatch) (questlog.Relation, error)
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepository defines storage operations for magic item assignments.
type AssignmentRepository interface {
	CreateMissing(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityIDs []int64, at time.Time) (int, error)
	Delete(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityID int64) (bool, error)
	ListByItem(ctx context.Context, magicItemID int64) ([]domain.Assignment, error)
	ListByEntityTypes(ctx context.Context, types []questlog.EntityType) ([]domain.Assignment, error)
}

// Resolver turns entity keys into display references.
type Resolver interface {
	Resolve(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error)
}

// DisplayResolver serves references whose freshness does not matter.
type DisplayResolver interface {
	Lookup(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error)
}

// Notifier fans graph changes out to realtime subscribers.
type Notifier interface {
	Publish(ctx context.Context, event questlog.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, questlog.Event) error { return nil }
