package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
	"go.uber.org/zap"
)

// QueryService answers listings and full-text searches for all three audiences.
type QueryService interface {
	// ListEntries returns live entries in scope, newest first, optionally
	// restricted to one tag name.
	ListEntries(ctx context.Context, scope model.Scope, tag string, page Page) (*PageResult, error)
	// SearchEntries matches text against the search index and re-applies the
	// scope to the live entries. A non-empty tag narrows the matches further.
	SearchEntries(ctx context.Context, scope model.Scope, text, tag string, page Page) (*PageResult, error)
}

type queryService struct {
	deps Deps
}

// NewQueryService returns the listing and search service.
func NewQueryService(deps Deps) QueryService {
	return &queryService{deps: deps.withDefaults()}
}

func validateScope(scope model.Scope) error {
	switch scope.Kind {
	case model.ScopeOwner:
		return requireUser(scope.OwnerID)
	case model.ScopePublic, model.ScopeAdmin:
		return nil
	default:
		return invalid("scope", "unknown scope")
	}
}

func (s *queryService) ListEntries(ctx context.Context, scope model.Scope, tag string, page Page) (*PageResult, error) {
	if err := validateScope(scope); err != nil {
		return nil, classify("list entries", err)
	}
	tag = strings.TrimSpace(tag)
	page = s.deps.Paginator.Normalize(page)

	res, err := s.cached(ctx, "list", scope, "", tag, page, func() (*PageResult, error) {
		return runQuery(ctx, s.deps, "list", repository.EntryQuery{
			Scope: scope,
			Tag:   tag,
		}, page)
	})
	if err != nil {
		return nil, classify("list entries", err)
	}
	return res, nil
}

func (s *queryService) SearchEntries(ctx context.Context, scope model.Scope, text, tag string, page Page) (*PageResult, error) {
	if err := validateScope(scope); err != nil {
		return nil, classify("search entries", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, classify("search entries", invalid("query", "is required"))
	}
	tag = strings.TrimSpace(tag)
	page = s.deps.Paginator.Normalize(page)

	res, err := s.cached(ctx, "search", scope, text, tag, page, func() (*PageResult, error) {
		return runQuery(ctx, s.deps, "search", repository.EntryQuery{
			Scope: scope,
			Tag:   tag,
			Text:  text,
		}, page)
	})
	if err != nil {
		return nil, classify("search entries", err)
	}
	return res, nil
}

// cached serves public-scope reads through the listing cache.
func (s *queryService) cached(ctx context.Context, kind string, scope model.Scope, text, tag string, page Page, load func() (*PageResult, error)) (*PageResult, error) {
	if s.deps.Cache == nil || scope.Kind != model.ScopePublic {
		return load()
	}

	key := fmt.Sprintf("%s|%s|%s|%d|%d", kind, tag, text, page.Number, page.PerPage)
	res, slot, ok := s.deps.Cache.Get(ctx, key)
	if ok {
		directoryCacheRequests.WithLabelValues("hit").Inc()
		return res, nil
	}
	directoryCacheRequests.WithLabelValues("miss").Inc()

	res, err := load()
	if err != nil {
		return nil, err
	}
	s.deps.Cache.Set(ctx, slot, res)
	return res, nil
}

// runQuery executes q for page and wraps the rows in a PageResult.
func runQuery(ctx context.Context, deps Deps, kind string, q repository.EntryQuery, page Page) (*PageResult, error) {
	q.Limit = page.PerPage
	q.Offset = page.Offset()

	start := time.Now()
	items, total, err := deps.Reader.Find(ctx, q)
	readDuration.WithLabelValues(kind, q.Scope.Kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		deps.Logger.Warn("entry read failed",
			zap.String("kind", kind),
			zap.String("scope", q.Scope.Kind.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return newPageResult(items, total, page), nil
}
