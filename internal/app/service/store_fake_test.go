package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
)

// memState is the committed or in-flight content of memDB.
type memState struct {
	entries   map[int64]model.Entry
	entryTags map[int64][]int64
	tags      []model.Tag
	docs      map[int64]model.SearchDocument
	nextEntry int64
	nextTag   int64
}

func newMemState() *memState {
	return &memState{
		entries:   map[int64]model.Entry{},
		entryTags: map[int64][]int64{},
		docs:      map[int64]model.SearchDocument{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		entries:   make(map[int64]model.Entry, len(s.entries)),
		entryTags: make(map[int64][]int64, len(s.entryTags)),
		tags:      append([]model.Tag(nil), s.tags...),
		docs:      make(map[int64]model.SearchDocument, len(s.docs)),
		nextEntry: s.nextEntry,
		nextTag:   s.nextTag,
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.entryTags {
		c.entryTags[k] = append([]int64(nil), v...)
	}
	for k, v := range s.docs {
		c.docs[k] = v
	}
	return c
}

func (s *memState) tagByID(id int64) (model.Tag, bool) {
	for _, t := range s.tags {
		if t.ID == id {
			return t, true
		}
	}
	return model.Tag{}, false
}

func (s *memState) hydrate(e model.Entry) model.Entry {
	e.Tags = []model.Tag{}
	for _, id := range s.entryTags[e.ID] {
		if t, ok := s.tagByID(id); ok {
			e.Tags = append(e.Tags, t)
		}
	}
	sort.Slice(e.Tags, func(i, j int) bool {
		if e.Tags[i].Name != e.Tags[j].Name {
			return e.Tags[i].Name < e.Tags[j].Name
		}
		return e.Tags[i].ID < e.Tags[j].ID
	})
	return e
}

// memDB is an in-memory transactional stand-in for Postgres.
type memDB struct {
	mu        sync.Mutex
	state     *memState
	failIndex error
	failRead  error
	finds     int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (db *memDB) store() *memStore { return &memStore{db: db} }

// snapshot returns a copy of the committed state for assertions.
func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

type memStore struct {
	db *memDB
	tx *memState
}

var _ repository.Store = (*memStore)(nil)

func (s *memStore) with(fn func(st *memState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	work := s.db.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.db.state = work
	return nil
}

func (s *memStore) Entries() repository.EntryRepository { return &memEntries{s} }
func (s *memStore) Tags() repository.TagRepository { return &memTags{s} }
func (s *memStore) Index() repository.SearchIndex { return &memIndex{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	work := s.db.state.clone()
	if err := fn(&memStore{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.state = work
	return nil
}

type memIndex struct{ s *memStore }

func (i *memIndex) index(st *memState, e *model.Entry) error {
	if i.s.db.failIndex != nil {
		return i.s.db.failIndex
	}
	st.docs[e.ID] = model.SearchDocument{EntryID: e.ID, Title: e.Title, Notes: e.Notes, URL: e.URL, IndexedAt: time.Now()}
	return nil
}

func (i *memIndex) IndexEntry(ctx context.Context, e *model.Entry) error {
	return i.s.with(func(st *memState) error { return i.index(st, e) })
}

func (i *memIndex) DeindexEntry(ctx context.Context, entryID int64) error {
	return i.s.with(func(st *memState) error {
		delete(st.docs, entryID)
		return nil
	})
}

func (i *memIndex) Document(ctx context.Context, entryID int64) (*model.SearchDocument, error) {
	var doc *model.SearchDocument
	err := i.s.with(func(st *memState) error {
		d, ok := st.docs[entryID]
		if !ok {
			return repository.ErrEntryNotFound
		}
		doc = &d
		return nil
	})
	return doc, err
}

type memEntries struct{ s *memStore }

func (r *memEntries) Insert(ctx context.Context, e *model.Entry) error {
	return r.s.with(func(st *memState) error {
		st.nextEntry++
		e.ID = st.nextEntry
		e.CreatedAt = time.Now()
		e.UpdatedAt = e.CreatedAt
		stored := *e
		stored.Tags = nil
		st.entries[e.ID] = stored
		st.entryTags[e.ID] = e.TagIDs()
		return (&memIndex{r.s}).index(st, e)
	})
}

func (r *memEntries) FetchByID(ctx context.Context, id int64, opts repository.FetchOptions) (*model.Entry, error) {
	var out *model.Entry
	err := r.s.with(func(st *memState) error {
		e, ok := st.entries[id]
		if !ok || (opts.OwnerID != nil && e.UserID != *opts.OwnerID) || (!opts.IncludeDeleted && e.IsDeleted) {
			return repository.ErrEntryNotFound
		}
		h := st.hydrate(e)
		out = &h
		return nil
	})
	return out, err
}

func (r *memEntries) Update(ctx context.Context, e *model.Entry) error {
	return r.s.with(func(st *memState) error {
		old, ok := st.entries[e.ID]
		if !ok {
			return repository.ErrEntryNotFound
		}
		e.UpdatedAt = time.Now()
		stored := *e
		stored.Tags = nil
		stored.UserID = old.UserID
		stored.CreatedAt = old.CreatedAt
		st.entries[e.ID] = stored
		st.entryTags[e.ID] = e.TagIDs()
		return (&memIndex{r.s}).index(st, e)
	})
}

func (r *memEntries) Delete(ctx context.Context, id int64) error {
	return r.s.with(func(st *memState) error {
		if _, ok := st.entries[id]; !ok {
			return repository.ErrEntryNotFound
		}
		delete(st.entries, id)
		delete(st.entryTags, id)
		delete(st.docs, id)
		return nil
	})
}

type memTags struct{ s *memStore }

func (r *memTags) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	var out *model.Tag
	err := r.s.with(func(st *memState) error {
		for _, t := range st.tags {
			if t.Name == name && (out == nil || t.ID < out.ID) {
				tag := t
				out = &tag
			}
		}
		if out == nil {
			return repository.ErrTagNotFound
		}
		return nil
	})
	return out, err
}

func (r *memTags) Create(ctx context.Context, tag *model.Tag) error {
	return r.s.with(func(st *memState) error {
		st.nextTag++
		tag.ID = st.nextTag
		st.tags = append(st.tags, *tag)
		return nil
	})
}

func (r *memTags) AllNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.s.with(func(st *memState) error {
		for _, t := range st.tags {
			names = append(names, t.Name)
		}
		return nil
	})
	return names, err
}

func (r *memTags) NamesForOwner(ctx context.Context, ownerID int64) ([]string, error) {
	var names []string
	err := r.s.with(func(st *memState) error {
		seen := map[string]bool{}
		for id, e := range st.entries {
			if e.UserID != ownerID || e.IsPublicCopy || e.IsDeleted {
				continue
			}
			for _, tagID := range st.entryTags[id] {
				if t, ok := st.tagByID(tagID); ok && !seen[t.Name] {
					seen[t.Name] = true
					names = append(names, t.Name)
				}
			}
		}
		sort.Strings(names)
		return nil
	})
	return names, err
}

// memReader evaluates EntryQuery with the same predicates the SQL reader renders.
type memReader struct{ db *memDB }

func (r *memReader) Find(ctx context.Context, q repository.EntryQuery) ([]model.Entry, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.finds++
	if r.db.failRead != nil {
		return nil, 0, r.db.failRead
	}
	st := r.db.state

	var matched []model.Entry
	for id, e := range st.entries {
		e := e
		if !q.Scope.Allows(&e) || e.IsDeleted != q.Deleted {
			continue
		}
		if q.PendingOnly && (e.IsPublicCopy || !e.SubmittedForReview) {
			continue
		}
		if q.Tag != "" && !hasTagNamed(st, id, q.Tag) {
			continue
		}
		if q.Text != "" {
			doc, ok := st.docs[id]
			if !ok || !textMatches(doc, q.Text) {
				continue
			}
		}
		matched = append(matched, st.hydrate(e))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Order == repository.OrderRecentlyDeleted && a.DeletedAt != nil && b.DeletedAt != nil && !a.DeletedAt.Equal(*b.DeletedAt) {
			return a.DeletedAt.After(*b.DeletedAt)
		}
		return a.ID > b.ID
	})

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []model.Entry{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

func hasTagNamed(st *memState, entryID int64, name string) bool {
	for _, id := range st.entryTags[entryID] {
		if t, ok := st.tagByID(id); ok && t.Name == name {
			return true
		}
	}
	return false
}

// searchTokens lowercases s and splits it on anything that is not a letter or digit,
// the way the 'simple' text search configuration does.
func searchTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// textMatches requires every query token to appear as a whole document token.
func textMatches(doc model.SearchDocument, text string) bool {
	have := map[string]bool{}
	for _, tok := range searchTokens(doc.Title + " " + doc.Notes + " " + doc.URL) {
		have[tok] = true
	}
	for _, word := range searchTokens(text) {
		if !have[word] {
			return false
		}
	}
	return true
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ModerationEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event model.ModerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []model.ModerationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ModerationEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type countingCache struct {
	mu            sync.Mutex
	pages         map[string]*PageResult
	invalidations int
}

func (c *countingCache) slot(key string) string {
	return fmt.Sprintf("%d|%s", c.invalidations, key)
}

func (c *countingCache) Get(ctx context.Context, key string) (*PageResult, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot := c.slot(key)
	p, ok := c.pages[slot]
	return p, slot, ok
}

func (c *countingCache) Set(ctx context.Context, slot string, page *PageResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages == nil {
		c.pages = map[string]*PageResult{}
	}
	c.pages[slot] = page
}

func (c *countingCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = nil
	c.invalidations++
}

// harness wires all three services over one memDB.
type harness struct {
	db         *memDB
	events     *recordingPublisher
	cache      *countingCache
	entries    EntryService
	queries    QueryService
	moderation ModerationService
}

const (
	userOne int64 = 1
	userTwo int64 = 2
	adminID int64 = 99
)

const testPage = 10

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	h := &harness{db: db, events: &recordingPublisher{}, cache: &countingCache{}}
	deps := Deps{
		Store:     db.store(),
		Reader:    &memReader{db: db},
		Events:    h.events,
		Cache:     h.cache,
		Paginator: Paginator{DefaultPerPage: testPage, MaxPerPage: 100},
	}
	h.entries = NewEntryService(deps)
	h.queries = NewQueryService(deps)
	h.moderation = NewModerationService(deps)
	return h
}

func (h *harness) create(t *testing.T, owner int64, title string, tags ...string) *model.Entry {
	t.Helper()
	e, err := h.entries.CreateEntry(context.Background(), owner, EntryInput{
		URL:   "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title: title,
		Tags:  tags,
	})
	if err != nil {
		t.Fatalf("CreateEntry returned error: %v", err)
	}
	return e
}
