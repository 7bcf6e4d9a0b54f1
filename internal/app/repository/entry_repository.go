package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/hyperindex/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FetchOptions narrows FetchByID.
type FetchOptions struct {
	// OwnerID restricts the fetch to entries owned by this user.
	OwnerID *int64
	// IncludeDeleted also returns soft-deleted entries.
	IncludeDeleted bool
	// ForUpdate locks the row until the surrounding transaction ends.
	ForUpdate bool
}

// EntryRepository owns entry rows and their tag associations. Every mutation
// keeps the search index in step inside the same transaction.
type EntryRepository interface {
	Insert(ctx context.Context, entry *model.Entry) error
	FetchByID(ctx context.Context, id int64, opts FetchOptions) (*model.Entry, error)
	// Update writes every column and replaces the tag set.
	Update(ctx context.Context, entry *model.Entry) error
	// Delete removes the entry, its tag links and its index row.
	Delete(ctx context.Context, id int64) error
}

type entryRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewEntryRepository returns a GORM-backed EntryRepository.
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.inTx {
		return fn(r.db.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *entryRepository) Insert(ctx context.Context, entry *model.Entry) error {
	return r.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := insertEntryTags(tx, entry.ID, entry.TagIDs()); err != nil {
			return err
		}
		return NewSearchIndex(tx).IndexEntry(ctx, entry)
	})
}

func (r *entryRepository) FetchByID(ctx context.Context, id int64, opts FetchOptions) (*model.Entry, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if opts.OwnerID != nil {
		query = query.Where("user_id = ?", *opts.OwnerID)
	}
	if !opts.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if opts.ForUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entry model.Entry
	if err := query.Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	tags, err := loadEntryTags(r.db.WithContext(ctx), entry.ID)
	if err != nil {
		return nil, err
	}
	entry.Tags = tags
	return &entry, nil
}

func (r *entryRepository) Update(ctx context.Context, entry *model.Entry) error {
	entry.UpdatedAt = time.Now().UTC()
	return r.withTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&model.Entry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"url":                  entry.URL,
				"title":                entry.Title,
				"notes":                entry.Notes,
				"is_public_copy":       entry.IsPublicCopy,
				"submitted_for_review": entry.SubmittedForReview,
				"is_deleted":           entry.IsDeleted,
				"deleted_at":           entry.DeletedAt,
				"original_id":          entry.OriginalID,
				"updated_at":           entry.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEntryNotFound
		}

		if err := tx.Where("entry_id = ?", entry.ID).Delete(&model.EntryTag{}).Error; err != nil {
			return err
		}
		if err := insertEntryTags(tx, entry.ID, entry.TagIDs()); err != nil {
			return err
		}
		return NewSearchIndex(tx).IndexEntry(ctx, entry)
	})
}

func (r *entryRepository) Delete(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&model.EntryTag{}).Error; err != nil {
			return err
		}
		if err := NewSearchIndex(tx).DeindexEntry(ctx, id); err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Entry{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEntryNotFound
		}
		return nil
	})
}

func insertEntryTags(tx *gorm.DB, entryID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]model.EntryTag, len(tagIDs))
	for i, tagID := range tagIDs {
		rows[i] = model.EntryTag{EntryID: entryID, TagID: tagID}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func loadEntryTags(db *gorm.DB, entryID int64) ([]model.Tag, error) {
	var tags []model.Tag
	if err := db.Table("tags").
		Select("tags.id, tags.name").
		Joins("JOIN entry_tags ON entry_tags.tag_id = tags.id").
		Where("entry_tags.entry_id = ?", entryID).
		Order("tags.name, tags.id").
		Scan(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
