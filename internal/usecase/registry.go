package usecase

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

var tracer = otel.Tracer("usecase")

// EntityRegistry resolves polymorphic references and searches entities.
// Resolve always reads the store; Lookup serves display enrichment from a
// cache kept for ttl.
type EntityRegistry struct {
	repo  EntityRepository
	cache *cache.Cache
	group singleflight.Group
}

func NewEntityRegistry(repo EntityRepository, ttl time.Duration) *EntityRegistry {
	r := &EntityRegistry{repo: repo}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// Resolve reads the reference from the store. Concurrent identical calls
// share one read.
func (r *EntityRegistry) Resolve(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error) {
	if !key.Type.Valid() || key.ID <= 0 {
		return questlog.EntityRef{}, domain.NotFoundError{Resource: key.String()}
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		ref, err := r.repo.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.Set(key.String(), ref, cache.DefaultExpiration)
		}
		return ref, nil
	})
	if err != nil {
		return questlog.EntityRef{}, err
	}
	return v.(questlog.EntityRef), nil
}

// Lookup is Resolve for display only: a hit may be up to ttl stale, so it
// must not back validation or graph assembly.
func (r *EntityRegistry) Lookup(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error) {
	if r.cache != nil {
		if x, found := r.cache.Get(key.String()); found {
			return x.(questlog.EntityRef), nil
		}
	}
	return r.Resolve(ctx, key)
}

// Search matches names case-insensitively. An empty query lists the first
// entities in natural order.
func (r *EntityRegistry) Search(ctx context.Context, q domain.SearchQuery) ([]questlog.EntityRef, error) {
	ctx, span := tracer.Start(ctx, "Registry.Search")
	defer span.End()

	if !q.Type.Valid() {
		return nil, domain.Invalid("unknown entity type %q", q.Type)
	}
	span.SetAttributes(
		attribute.String("entityType", string(q.Type)),
		attribute.Int("limit", q.EffectiveLimit()),
	)

	refs, err := r.repo.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return refs, nil
}

func (r *EntityRegistry) Adventures(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	return r.repo.Adventures(ctx, campaignID)
}

func (r *EntityRegistry) Members(ctx context.Context, adventureID int64) ([]questlog.EntityRef, error) {
	return r.repo.Members(ctx, adventureID)
}

func (r *EntityRegistry) Loose(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	return r.repo.Loose(ctx, campaignID)
}
