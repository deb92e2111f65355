package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
	"github.com/totegamma/questlog/internal/infrastructure/database/models"
)

type RelationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

func relationFromModel(m models.Relation) questlog.Relation {
	return questlog.Relation{
		ID:               m.ID,
		CampaignID:       m.CampaignID,
		SourceEntityType: questlog.EntityType(m.SourceEntityType),
		SourceEntityID:   m.SourceEntityID,
		TargetEntityType: questlog.EntityType(m.TargetEntityType),
		TargetEntityID:   m.TargetEntityID,
		RelationType:     m.RelationType,
		Description:      m.Description,
		Bidirectional:    m.Bidirectional,
		CreatedAt:        m.CDate,
		UpdatedAt:        m.MDate,
	}
}

func (r *RelationRepository) Create(ctx context.Context, rel questlog.Relation) (questlog.Relation, error) {
	model := models.Relation{
		CampaignID:       rel.CampaignID,
		SourceEntityType: string(rel.SourceEntityType),
		SourceEntityID:   rel.SourceEntityID,
		TargetEntityType: string(rel.TargetEntityType),
		TargetEntityID:   rel.TargetEntityID,
		RelationType:     rel.RelationType,
		Description:      rel.Description,
		Bidirectional:    rel.Bidirectional,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return questlog.Relation{}, errors.Wrap(err, "create relation")
	}
	return relationFromModel(model), nil
}

func (r *RelationRepository) Get(ctx context.Context, id int64) (questlog.Relation, error) {
	var model models.Relation
	err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return questlog.Relation{}, domain.NotFoundError{Resource: "relation"}
	}
	if err != nil {
		return questlog.Relation{}, errors.Wrap(err, "get relation")
	}
	return relationFromModel(model), nil
}

// List returns the relations of a campaign by ascending id.
func (r *RelationRepository) List(ctx context.Context, campaignID int64) ([]questlog.Relation, error) {
	var rows []models.Relation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list relations")
	}
	result := make([]questlog.Relation, 0, len(rows))
	for _, row := range rows {
		result = append(result, relationFromModel(row))
	}
	return result, nil
}

// Between returns relations of one type joining a and b in either direction.
func (r *RelationRepository) Between(ctx context.Context, campaignID int64, a, b questlog.EntityKey, relationType string) ([]questlog.Relation, error) {
	var rows []models.Relation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND relation_type = ?", campaignID, relationType).
		Where(
			r.db.Where("source_entity_type = ? AND source_entity_id = ? AND target_entity_type = ? AND target_entity_id = ?",
				string(a.Type), a.ID, string(b.Type), b.ID).
				Or("source_entity_type = ? AND source_entity_id = ? AND target_entity_type = ? AND target_entity_id = ?",
					string(b.Type), b.ID, string(a.Type), a.ID),
		).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find relations between")
	}
	result := make([]questlog.Relation, 0, len(rows))
	for _, row := range rows {
		result = append(result, relationFromModel(row))
	}
	return result, nil
}

func (r *RelationRepository) Update(ctx context.Context, id int64, patch domain.RelationPatch) (questlog.Relation, error) {
	var model models.Relation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&model, "id = ?", id).Error; err != nil {
			return err
		}

		updates := map[string]any{}
		if patch.RelationType != nil {
			updates["relation_type"] = *patch.RelationType
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Bidirectional != nil {
			updates["bidirectional"] = *patch.Bidirectional
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Take(&model, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return questlog.Relation{}, domain.NotFoundError{Resource: "relation"}
	}
	if err != nil {
		return questlog.Relation{}, errors.Wrap(err, "update relation")
	}
	return relationFromModel(model), nil
}

func (r *RelationRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Relation{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete relation")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "relation"}
	}
	return nil
}
