package repository

import (
	"context"
	"errors"

	"github.com/sifan077/hyperindex/internal/app/model"
	"gorm.io/gorm"
)

// TagRepository defines the data access contract for tags.
type TagRepository interface {
	// FindByName returns the lowest-id tag with exactly this name.
	FindByName(ctx context.Context, name string) (*model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) error
	AllNames(ctx context.Context) ([]string, error)
	// NamesForOwner lists distinct tag names on the owner's live private entries.
	NamesForOwner(ctx context.Context, ownerID int64) ([]string, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a GORM-backed TagRepository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *tagRepository) AllNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Distinct().
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *tagRepository) NamesForOwner(ctx context.Context, ownerID int64) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Table("tags").
		Distinct().
		Joins("JOIN entry_tags ON entry_tags.tag_id = tags.id").
		Joins("JOIN entries ON entries.id = entry_tags.entry_id").
		Where("entries.user_id = ? AND entries.is_public_copy = ? AND entries.is_deleted = ?", ownerID, false, false).
		Order("tags.name").
		Pluck("tags.name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
