package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduva-go-api/internal/models"
)

// AuditRepository persists the authoring and grading audit trail.
type AuditRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	ListRecent(ctx context.Context, actorID *uint, limit int) ([]models.AuditEvent, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs the audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepository) ListRecent(ctx context.Context, actorID *uint, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&models.AuditEvent{})
	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}

	var events []models.AuditEvent
	if err := query.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}
