package service

import (
	"context"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
)

// ModerationService drives the public-copy state machine for administrators.
type ModerationService interface {
	// Approve forks a private entry into a new public copy owned by adminID.
	Approve(ctx context.Context, entryID, adminID int64) (*model.Entry, error)
	Reject(ctx context.Context, entryID, adminID int64) error
	GetAdminCopy(ctx context.Context, entryID int64) (*model.Entry, error)
	EditAdminCopy(ctx context.Context, entryID, adminID int64, input EntryInput) (*model.Entry, error)
	DeleteAdminCopy(ctx context.Context, entryID, adminID int64) error
	RestoreAdminCopy(ctx context.Context, entryID, adminID int64) error
	PurgeAdminCopy(ctx context.Context, entryID, adminID int64) error

	Pending(ctx context.Context, page Page) (*PageResult, error)
	Public(ctx context.Context, page Page) (*PageResult, error)
	Deleted(ctx context.Context, page Page) (*PageResult, error)
	RecentEvents(ctx context.Context, limit int) ([]model.ModerationEvent, error)
}

type moderationService struct {
	deps Deps
}

// NewModerationService returns the admin moderation service.
func NewModerationService(deps Deps) ModerationService {
	return &moderationService{deps: deps.withDefaults()}
}

// fetchPrivate loads a live private entry for a moderation decision.
func fetchPrivate(ctx context.Context, tx repository.Store, entryID int64) (*model.Entry, error) {
	entry, err := tx.Entries().FetchByID(ctx, entryID, repository.FetchOptions{ForUpdate: true})
	if err != nil {
		return nil, err
	}
	if entry.IsPublicCopy {
		return nil, ErrInvalidState
	}
	return entry, nil
}

// fetchPublicCopy loads a public copy whose deleted flag equals deleted.
// Anything else is reported as not found.
func fetchPublicCopy(ctx context.Context, tx repository.Store, entryID int64, deleted *bool) (*model.Entry, error) {
	entry, err := tx.Entries().FetchByID(ctx, entryID, repository.FetchOptions{
		IncludeDeleted: true,
		ForUpdate:      true,
	})
	if err != nil {
		return nil, err
	}
	if !entry.IsPublicCopy {
		return nil, ErrNotFound
	}
	if deleted != nil && entry.IsDeleted != *deleted {
		return nil, ErrNotFound
	}
	return entry, nil
}

func boolPtr(v bool) *bool { return &v }

func (s *moderationService) committed(ctx context.Context, kind model.ModerationEventType, entryID int64, publicCopyID *int64, actorID int64) {
	moderationTransitions.WithLabelValues(string(kind)).Inc()
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate(ctx)
	}
	publishEvent(ctx, s.deps, kind, entryID, publicCopyID, actorID)
}

func (s *moderationService) Approve(ctx context.Context, entryID, adminID int64) (*model.Entry, error) {
	if err := requireUser(adminID); err != nil {
		return nil, classify("approve entry", err)
	}

	var fork *model.Entry
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		original, err := fetchPrivate(ctx, tx, entryID)
		if err != nil {
			return err
		}

		originalID := original.ID
		fork = &model.Entry{
			URL:          original.URL,
			Title:        original.Title,
			Notes:        original.Notes,
			UserID:       adminID,
			IsPublicCopy: true,
			OriginalID:   &originalID,
			Tags:         append([]model.Tag(nil), original.Tags...),
		}
		if err := tx.Entries().Insert(ctx, fork); err != nil {
			return err
		}

		original.SubmittedForReview = false
		return tx.Entries().Update(ctx, original)
	})
	if err != nil {
		return nil, classify("approve entry", err)
	}

	s.committed(ctx, model.EventApproved, entryID, &fork.ID, adminID)
	return fork, nil
}

func (s *moderationService) Reject(ctx context.Context, entryID, adminID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := fetchPrivate(ctx, tx, entryID)
		if err != nil {
			return err
		}
		entry.SubmittedForReview = false
		return tx.Entries().Update(ctx, entry)
	})
	if err != nil {
		return classify("reject entry", err)
	}

	s.committed(ctx, model.EventRejected, entryID, nil, adminID)
	return nil
}

func (s *moderationService) GetAdminCopy(ctx context.Context, entryID int64) (*model.Entry, error) {
	entry, err := s.deps.Store.Entries().FetchByID(ctx, entryID, repository.FetchOptions{IncludeDeleted: true})
	if err != nil {
		return nil, classify("get admin copy", err)
	}
	if !entry.IsPublicCopy {
		return nil, classify("get admin copy", ErrNotFound)
	}
	return entry, nil
}

func (s *moderationService) EditAdminCopy(ctx context.Context, entryID, adminID int64, input EntryInput) (*model.Entry, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, classify("edit admin copy", err)
	}

	var entry *model.Entry
	err = s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		entry, err = fetchPublicCopy(ctx, tx, entryID, nil)
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
	if err != nil {
		return nil, classify("edit admin copy", err)
	}

	s.committed(ctx, model.EventEdited, entryID, &entry.ID, adminID)
	return entry, nil
}

func (s *moderationService) DeleteAdminCopy(ctx context.Context, entryID, adminID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := fetchPublicCopy(ctx, tx, entryID, boolPtr(false))
		if err != nil {
			return err
		}
		now := s.deps.Now()
		entry.IsDeleted = true
		entry.DeletedAt = &now
		return tx.Entries().Update(ctx, entry)
	})
	if err != nil {
		return classify("delete admin copy", err)
	}

	s.committed(ctx, model.EventDeleted, entryID, &entryID, adminID)
	return nil
}

func (s *moderationService) RestoreAdminCopy(ctx context.Context, entryID, adminID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		entry, err := fetchPublicCopy(ctx, tx, entryID, boolPtr(true))
		if err != nil {
			return err
		}
		entry.IsDeleted = false
		entry.DeletedAt = nil
		return tx.Entries().Update(ctx, entry)
	})
	if err != nil {
		return classify("restore admin copy", err)
	}

	s.committed(ctx, model.EventRestored, entryID, &entryID, adminID)
	return nil
}

func (s *moderationService) PurgeAdminCopy(ctx context.Context, entryID, adminID int64) error {
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := fetchPublicCopy(ctx, tx, entryID, boolPtr(true)); err != nil {
			return err
		}
		return tx.Entries().Delete(ctx, entryID)
	})
	if err != nil {
		return classify("purge admin copy", err)
	}

	s.committed(ctx, model.EventPurged, entryID, &entryID, adminID)
	return nil
}

func (s *moderationService) Pending(ctx context.Context, page Page) (*PageResult, error) {
	res, err := runQuery(ctx, s.deps, "pending", repository.EntryQuery{
		Scope:       model.AdminScope(),
		PendingOnly: true,
	}, s.deps.Paginator.Normalize(page))
	return res, classify("list pending", err)
}

func (s *moderationService) Public(ctx context.Context, page Page) (*PageResult, error) {
	res, err := runQuery(ctx, s.deps, "public", repository.EntryQuery{
		Scope: model.PublicScope(),
	}, s.deps.Paginator.Normalize(page))
	return res, classify("list public copies", err)
}

func (s *moderationService) Deleted(ctx context.Context, page Page) (*PageResult, error) {
	res, err := runQuery(ctx, s.deps, "deleted", repository.EntryQuery{
		Scope:   model.PublicScope(),
		Deleted: true,
		Order:   repository.OrderRecentlyDeleted,
	}, s.deps.Paginator.Normalize(page))
	return res, classify("list deleted copies", err)
}

func (s *moderationService) RecentEvents(ctx context.Context, limit int) ([]model.ModerationEvent, error) {
	if s.deps.Audit == nil {
		return []model.ModerationEvent{}, nil
	}
	events, err := s.deps.Audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, classify("recent events", err)
	}
	return events, nil
}
