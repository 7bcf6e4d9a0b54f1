package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrEntryNotFound signals that the requested entry does not exist in the caller's scope.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrTagNotFound signals that no tag carries the requested name.
	ErrTagNotFound = errors.New("tag not found")
)

// Store is the write-side unit of work over entries, tags and the search index.
type Store interface {
	Entries() EntryRepository
	Tags() TagRepository
	Index() SearchIndex
	// WithinTx runs fn against a transaction-bound Store; any error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewStore returns a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Entries() EntryRepository {
	return &entryRepository{db: s.db, inTx: s.inTx}
}

func (s *gormStore) Tags() TagRepository {
	return NewTagRepository(s.db)
}

func (s *gormStore) Index() SearchIndex {
	return NewSearchIndex(s.db)
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	})
}
