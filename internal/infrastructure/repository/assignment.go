package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
	"github.com/totegamma/questlog/internal/infrastructure/database/models"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func assignmentFromModel(m models.MagicItemAssignment) domain.Assignment {
	return domain.Assignment{
		ID:          m.ID,
		MagicItemID: m.MagicItemID,
		EntityType:  questlog.EntityType(m.EntityType),
		EntityID:    m.EntityID,
		Source:      m.Source,
		Notes:       m.Notes,
		AssignedAt:  m.AssignedAt,
	}
}

// CreateMissing inserts one row per entity id that has no assignment to the
// item yet and returns how many rows were inserted.
func (r *AssignmentRepository) CreateMissing(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityIDs []int64, at time.Time) (int, error) {
	created := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range entityIDs {
			var count int64
			err := tx.Model(&models.MagicItemAssignment{}).
				Where("magic_item_id = ? AND entity_type = ? AND entity_id = ?", magicItemID, string(entityType), id).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			assignedAt := at
			row := models.MagicItemAssignment{
				MagicItemID: magicItemID,
				EntityType:  string(entityType),
				EntityID:    id,
				AssignedAt:  &assignedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "create assignments")
	}
	return created, nil
}

// Delete removes the assignment if present and reports whether a row went away.
func (r *AssignmentRepository) Delete(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityID int64) (bool, error) {
	var row models.MagicItemAssignment
	err := r.db.WithContext(ctx).
		Where("magic_item_id = ? AND entity_type = ? AND entity_id = ?", magicItemID, string(entityType), entityID).
		Order("id ASC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "find assignment")
	}

	if err := r.db.WithContext(ctx).Delete(&models.MagicItemAssignment{}, "id = ?", row.ID).Error; err != nil {
		return false, errors.Wrap(err, "delete assignment")
	}
	return true, nil
}

func (r *AssignmentRepository) ListByItem(ctx context.Context, magicItemID int64) ([]domain.Assignment, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("magic_item_id = ?", magicItemID))
}

// ListByEntityTypes returns every assignment onto the given entity types.
func (r *AssignmentRepository) ListByEntityTypes(ctx context.Context, types []questlog.EntityType) ([]domain.Assignment, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return r.list(ctx, r.db.WithContext(ctx).Where("entity_type IN ?", names))
}

func (r *AssignmentRepository) list(_ context.Context, query *gorm.DB) ([]domain.Assignment, error) {
	var rows []models.MagicItemAssignment
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	result := make([]domain.Assignment, 0, len(rows))
	for _, row := range rows {
		result = append(result, assignmentFromModel(row))
	}
	return result, nil
}
