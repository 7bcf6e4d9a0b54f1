package repository

import (
	"context"

	"github.com/sifan077/hyperindex/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultEventLimit = 50

// ModerationEventRepository stores the moderation audit log.
type ModerationEventRepository interface {
	Create(ctx context.Context, event *model.ModerationEvent) error
	ListRecent(ctx context.Context, limit int) ([]model.ModerationEvent, error)
}

type moderationEventRepository struct {
	db *gorm.DB
}

// NewModerationEventRepository returns a GORM-backed ModerationEventRepository.
func NewModerationEventRepository(db *gorm.DB) ModerationEventRepository {
	return &moderationEventRepository{db: db}
}

// Create ignores events whose id is already stored.
func (r *moderationEventRepository) Create(ctx context.Context, event *model.ModerationEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

func (r *moderationEventRepository) ListRecent(ctx context.Context, limit int) ([]model.ModerationEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}

	var result []model.ModerationEvent
	if err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
