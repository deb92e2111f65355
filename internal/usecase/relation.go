package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

type RelationUsecase struct {
	repo     RelationRepository
	resolver Resolver
	notifier Notifier
}

func NewRelationUsecase(repo RelationRepository, resolver Resolver, notifier Notifier) *RelationUsecase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RelationUsecase{repo: repo, resolver: resolver, notifier: notifier}
}

func (uc *RelationUsecase) Create(ctx context.Context, req questlog.CreateRelationRequest) (questlog.Relation, error) {
	ctx, span := tracer.Start(ctx, "Relation.Create")
	defer span.End()

	rel := questlog.Relation{
		CampaignID:       req.CampaignID,
		SourceEntityType: req.SourceEntityType,
		SourceEntityID:   req.SourceEntityID,
		TargetEntityType: req.TargetEntityType,
		TargetEntityID:   req.TargetEntityID,
		RelationType:     domain.NormalizeRelationType(req.RelationType),
		Description:      trimDescription(req.Description),
		Bidirectional:    req.Bidirectional,
	}

	if rel.CampaignID <= 0 {
		return questlog.Relation{}, domain.Invalid("campaignId is required")
	}
	if rel.RelationType == "" {
		return questlog.Relation{}, domain.Invalid("relationType is required")
	}
	for _, key := range []questlog.EntityKey{rel.Source(), rel.Target()} {
		if !key.Type.Valid() {
			return questlog.Relation{}, domain.Invalid("unknown entity type %q", key.Type)
		}
		if key.ID <= 0 {
			return questlog.Relation{}, domain.Invalid("invalid entity id %d", key.ID)
		}
	}
	if rel.Source() == rel.Target() {
		return questlog.Relation{}, domain.Invalid("an entity cannot be related to itself")
	}

	for _, key := range []questlog.EntityKey{rel.Source(), rel.Target()} {
		if err := uc.mustResolve(ctx, key, rel.CampaignID); err != nil {
			span.RecordError(err)
			return questlog.Relation{}, err
		}
	}

	if err := uc.rejectDuplicate(ctx, rel, 0); err != nil {
		return questlog.Relation{}, err
	}

	created, err := uc.repo.Create(ctx, rel)
	if err != nil {
		span.RecordError(err)
		return questlog.Relation{}, err
	}
	span.SetAttributes(attribute.Int64("relationId", created.ID))

	uc.changed(ctx, created.CampaignID)
	return created, nil
}

func (uc *RelationUsecase) Get(ctx context.Context, id int64) (questlog.Relation, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *RelationUsecase) List(ctx context.Context, campaignID int64) ([]questlog.Relation, error) {
	if campaignID <= 0 {
		return nil, domain.Invalid("campaignId is required")
	}
	return uc.repo.List(ctx, campaignID)
}

// Update edits the mutable fields. Endpoints never change; delete and
// recreate the relation to move it.
func (uc *RelationUsecase) Update(ctx context.Context, id int64, req questlog.UpdateRelationRequest) (questlog.Relation, error) {
	ctx, span := tracer.Start(ctx, "Relation.Update")
	defer span.End()

	patch := domain.RelationPatch{
		Description:   trimDescription(req.Description),
		Bidirectional: req.Bidirectional,
	}
	if req.Description != nil && patch.Description == nil {
		empty := ""
		patch.Description = &empty
	}
	if req.RelationType != nil {
		normalized := domain.NormalizeRelationType(*req.RelationType)
		if normalized == "" {
			return questlog.Relation{}, domain.Invalid("relationType cannot be blank")
		}
		patch.RelationType = &normalized
	}

	current, err := uc.repo.Get(ctx, id)
	if err != nil {
		return questlog.Relation{}, err
	}
	if patch.Empty() {
		return current, nil
	}

	next := current
	if patch.RelationType != nil {
		next.RelationType = *patch.RelationType
	}
	if patch.Bidirectional != nil {
		next.Bidirectional = *patch.Bidirectional
	}
	if err := uc.rejectDuplicate(ctx, next, current.ID); err != nil {
		return questlog.Relation{}, err
	}

	updated, err := uc.repo.Update(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return questlog.Relation{}, err
	}

	uc.changed(ctx, updated.CampaignID)
	return updated, nil
}

func (uc *RelationUsecase) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Relation.Delete")
	defer span.End()

	current, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	uc.changed(ctx, current.CampaignID)
	return nil
}

// mustResolve requires key to exist and, unless it is campaign-less like a
// shared magic item, to belong to campaignID.
func (uc *RelationUsecase) mustResolve(ctx context.Context, key questlog.EntityKey, campaignID int64) error {
	ref, err := uc.resolver.Resolve(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("%s does not exist", key)
	}
	if err != nil {
		return err
	}
	if ref.CampaignID != nil && *ref.CampaignID != campaignID {
		return domain.Invalid("%s belongs to campaign %d, not %d", key, *ref.CampaignID, campaignID)
	}
	return nil
}

func (uc *RelationUsecase) rejectDuplicate(ctx context.Context, rel questlog.Relation, self int64) error {
	existing, err := uc.repo.Between(ctx, rel.CampaignID, rel.Source(), rel.Target(), rel.RelationType)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == self {
			continue
		}
		if domain.SameEndpoints(rel, other) {
			return domain.Invalid("relation %q between %s and %s already exists", rel.RelationType, rel.Source(), rel.Target())
		}
	}
	return nil
}

func (uc *RelationUsecase) changed(ctx context.Context, campaignID int64) {
	err := uc.notifier.Publish(ctx, questlog.Event{Type: questlog.EventGraphChanged, CampaignID: campaignID})
	if err != nil {
		slog.WarnContext(
			ctx, "failed to publish graph change",
			slog.String("error", err.Error()),
			slog.Int64("campaignId", campaignID),
			slog.String("module", "relation"),
		)
	}
}

func trimDescription(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
