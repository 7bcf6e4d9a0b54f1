package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/hyperindex/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchIndex maintains the searchable projection of entries. Rows follow entry
// content only; visibility is re-checked by readers at query time.
type SearchIndex interface {
	IndexEntry(ctx context.Context, entry *model.Entry) error
	DeindexEntry(ctx context.Context, entryID int64) error
	Document(ctx context.Context, entryID int64) (*model.SearchDocument, error)
}

type searchIndex struct {
	db *gorm.DB
}

// NewSearchIndex returns a GORM-backed SearchIndex.
func NewSearchIndex(db *gorm.DB) SearchIndex {
	return &searchIndex{db: db}
}

func (i *searchIndex) IndexEntry(ctx context.Context, entry *model.Entry) error {
	doc := model.SearchDocument{
		EntryID:   entry.ID,
		Title:     entry.Title,
		Notes:     entry.Notes,
		URL:       entry.URL,
		IndexedAt: time.Now().UTC(),
	}
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "notes", "url", "indexed_at"}),
		}).
		Create(&doc).Error
}

func (i *searchIndex) DeindexEntry(ctx context.Context, entryID int64) error {
	return i.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Delete(&model.SearchDocument{}).Error
}

func (i *searchIndex) Document(ctx context.Context, entryID int64) (*model.SearchDocument, error) {
	var doc model.SearchDocument
	if err := i.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &doc, nil
}
