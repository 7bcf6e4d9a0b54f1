package service

import (
	"context"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
	"go.uber.org/zap"
)

// EntryService covers the owner's side of the entry lifecycle.
type EntryService interface {
	CreateEntry(ctx context.Context, ownerID int64, input EntryInput) (*model.Entry, error)
	GetEntry(ctx context.Context, entryID, ownerID int64) (*model.Entry, error)
	UpdateEntry(ctx context.Context, entryID, callerID int64, input EntryInput) (*model.Entry, error)
	SoftDeleteEntry(ctx context.Context, entryID, callerID int64) error
	RestoreEntry(ctx context.Context, entryID, callerID int64) error
	SubmitForReview(ctx context.Context, entryID, ownerID int64) error
	UserTags(ctx context.Context, ownerID int64) ([]string, error)
}

type entryService struct {
	deps Deps
}

// NewEntryService returns the owner-facing entry service.
func NewEntryService(deps Deps) EntryService {
	return &entryService{deps: deps.withDefaults()}
}

func requireUser(id int64) error {
	if id <= 0 {
		return invalid("user", "must be authenticated")
	}
	return nil
}

// fetchOwned loads a private entry of ownerID inside tx. Public copies are
// reported as not found so they never surface through owner operations.
func fetchOwned(ctx context.Context, tx repository.Store, entryID, ownerID int64, includeDeleted bool) (*model.Entry, error) {
	entry, err := tx.Entries().FetchByID(ctx, entryID, repository.FetchOptions{
		OwnerID:        &ownerID,
		IncludeDeleted: includeDeleted,
		ForUpdate:      true,
	})
	if err != nil {
		return nil, err
	}
	if entry.IsPublicCopy {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *entryService) CreateEntry(ctx context.Context, ownerID int64, input EntryInput) (*model.Entry, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, classify("create entry", err)
	}
	input, err := input.normalize()
	if err != nil {
		return nil, classify("create entry", err)
	}

	entry := &model.Entry{UserID: ownerID}
	err = s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		tags, err := s.deps.Tags.Resolve(ctx, tx.Tags(), input.Tags)
		if err != nil {
			return err
		}
		input.applyTo(entry, tags)
		return tx.Entries().Insert(ctx, entry)
	})
	recordWrite("create", err)
	if err != nil {
		return nil, classify("create entry", err)
	}

	s.deps.Logger.Debug("entry created", zap.Int64("entry_id", entry.ID), zap.Int64("owner_id", ownerID))
	return entry, nil
}

func (s *entryService) GetEntry(ctx context.Context, entryID, ownerID int64) (*model.Entry, error) {
	entry, err := s.deps.Store.Entries().FetchByID(ctx, entryID, repository.FetchOptions{OwnerID: &ownerID})
	if err != nil {
		return nil, classify("get entry", err)
	}
	if entry.IsPublicCopy {
		return nil, classify("get entry", ErrNotFound)
	}
	return entry, nil
}

func (s *entryService) UpdateEntry(ctx context.Context, entryID, callerID int64, input EntryInput) (*model.Entry, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, classify("update entry", err)
	}

	var entry *model.Entry
	err = s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		entry, err = fetchOwned(ctx, tx, entryID, callerID, false)
		if err != nil {
			return err
		}
		tags, err := s.deps.Tags.Resolve(ctx, tx.Tags(), input.Tags)
		if err != nil {
			return err
		}
		input.applyTo(entry, tags)
		return tx.Entries().Update(ctx, entry)
	})
	recordWrite("update", err)
	if err != nil {
		return nil, classify("update entry", err)
	}
	return entry, nil
}

func (s *entryService) SoftDeleteEntry(ctx context.Context, entryID, callerID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := fetchOwned(ctx, tx, entryID, callerID, false)
		if err != nil {
			return err
		}
		now := s.deps.Now()
		entry.IsDeleted = true
		entry.DeletedAt = &now
		entry.SubmittedForReview = false
		return tx.Entries().Update(ctx, entry)
	})
	recordWrite("soft_delete", err)
	return classify("soft delete entry", err)
}

func (s *entryService) RestoreEntry(ctx context.Context, entryID, callerID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := fetchOwned(ctx, tx, entryID, callerID, true)
		if err != nil {
			return err
		}
		if !entry.IsDeleted {
			return ErrNotFound
		}
		entry.IsDeleted = false
		entry.DeletedAt = nil
		return tx.Entries().Update(ctx, entry)
	})
	recordWrite("restore", err)
	return classify("restore entry", err)
}

func (s *entryService) SubmitForReview(ctx context.Context, entryID, ownerID int64) error {
	changed := false
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := tx.Entries().FetchByID(ctx, entryID, repository.FetchOptions{
			OwnerID:   &ownerID,
			ForUpdate: true,
		})
		if err != nil {
			return err
		}
		if entry.IsPublicCopy {
			return ErrInvalidState
		}
		if entry.SubmittedForReview {
			return nil
		}
		entry.SubmittedForReview = true
		changed = true
		return tx.Entries().Update(ctx, entry)
	})
	if err != nil {
		return classify("submit entry", err)
	}

	if changed {
		moderationTransitions.WithLabelValues(string(model.EventSubmitted)).Inc()
		publishEvent(ctx, s.deps, model.EventSubmitted, entryID, nil, ownerID)
	}
	return nil
}

func (s *entryService) UserTags(ctx context.Context, ownerID int64) ([]string, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, classify("user tags", err)
	}
	names, err := s.deps.Store.Tags().NamesForOwner(ctx, ownerID)
	if err != nil {
		return nil, classify("user tags", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
