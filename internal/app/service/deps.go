package service

import (
	"context"
	"time"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
	"go.uber.org/zap"
)

// EventPublisher delivers moderation events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ModerationEvent) error
}

// ListingCache stores rendered public directory pages.
type ListingCache interface {
	// Get returns the cached page for key together with the slot a freshly
	// loaded page belongs in. The slot is bound to the cache generation seen
	// by Get, so a page stored after an Invalidate is never served. An empty
	// slot means the page must not be stored.
	Get(ctx context.Context, key string) (page *PageResult, slot string, ok bool)
	Set(ctx context.Context, slot string, page *PageResult)
	// Invalidate drops every cached page.
	Invalidate(ctx context.Context)
}

// Deps groups the collaborators shared by the entry, query and moderation services.
type Deps struct {
	Logger    *zap.Logger
	Store     repository.Store
	Reader    repository.EntryReader
	Tags      *TagResolver
	Events    EventPublisher
	Cache     ListingCache
	Audit     repository.ModerationEventRepository
	Paginator Paginator
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tags == nil {
		d.Tags = NewTagResolver()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}
