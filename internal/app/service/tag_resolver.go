package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
)

const (
	tagFilterCapacity = 100_000
	tagFilterFPRate   = 0.01
)

// TagResolver maps tag names to canonical tags, creating missing ones.
//
// Once warmed with every stored name, a bloom filter lets the resolver create
// never-seen names without a lookup. Before warm-up every name is looked up.
type TagResolver struct {
	mu     sync.RWMutex
	known  *bloom.BloomFilter
	warmed bool
}

// NewTagResolver returns a resolver with an empty filter.
func NewTagResolver() *TagResolver {
	return &TagResolver{known: bloom.NewWithEstimates(tagFilterCapacity, tagFilterFPRate)}
}

// Warm loads every stored tag name into the filter.
func (r *TagResolver) Warm(ctx context.Context, tags repository.TagRepository) error {
	names, err := tags.AllNames(ctx)
	if err != nil {
		return fmt.Errorf("warm tag filter: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.known.AddString(name)
	}
	r.warmed = true
	return nil
}

func (r *TagResolver) mayExist(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.warmed || r.known.TestString(name)
}

func (r *TagResolver) remember(name string) {
	r.mu.Lock()
	r.known.AddString(name)
	r.mu.Unlock()
}

// Resolve returns one tag per input name, in input order. Repeated names
// resolve once and share the result. Names are matched exactly.
func (r *TagResolver) Resolve(ctx context.Context, tags repository.TagRepository, names []string) ([]model.Tag, error) {
	out := make([]model.Tag, len(names))
	resolved := make(map[string]model.Tag, len(names))

	for i, name := range names {
		if tag, ok := resolved[name]; ok {
			out[i] = tag
			continue
		}

		tag, err := r.resolveOne(ctx, tags, name)
		if err != nil {
			return nil, err
		}
		resolved[name] = tag
		out[i] = tag
	}
	return out, nil
}

func (r *TagResolver) resolveOne(ctx context.Context, tags repository.TagRepository, name string) (model.Tag, error) {
	if r.mayExist(name) {
		found, err := tags.FindByName(ctx, name)
		if err == nil {
			return *found, nil
		}
		if !errors.Is(err, repository.ErrTagNotFound) {
			return model.Tag{}, fmt.Errorf("find tag %q: %w", name, err)
		}
	}

	created := &model.Tag{Name: name}
	if err := tags.Create(ctx, created); err != nil {
		return model.Tag{}, fmt.Errorf("create tag %q: %w", name, err)
	}
	r.remember(name)
	return *created, nil
}

// ParseTagList splits comma-separated tag input, trimming blanks and dropping empties.
func ParseTagList(raw string) []string {
	if raw == "" {
		return nil
	}
	return cleanTagNames(strings.Split(raw, ","))
}

func cleanTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// uniqueTags drops repeated tag ids and orders the rest by name, then id,
// matching the order entries are read back in.
func uniqueTags(tags []model.Tag) []model.Tag {
	seen := make(map[int64]struct{}, len(tags))
	out := make([]model.Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
