package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sifan077/hyperindex/internal/app/model"
	"github.com/sifan077/hyperindex/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryService_CreateEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	e, err := h.entries.CreateEntry(ctx, userOne, EntryInput{
		URL:   "https://a.com",
		Title: " A ",
		Notes: "first",
		Tags:  []string{"x", "y", " x ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "A", e.Title)
	assert.Equal(t, userOne, e.UserID)
	assert.False(t, e.IsPublicCopy)
	assert.Nil(t, e.OriginalID)
	assert.ElementsMatch(t, []string{"x", "y"}, e.TagNames())

	doc, err := h.db.store().Index().Document(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, doc.Matches(e))
}

func TestEntryService_TagsAreOrderedByName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Ordered", "web", "api", "go", "api")
	assert.Equal(t, []string{"api", "go", "web"}, e.TagNames())

	got, err := h.entries.GetEntry(ctx, e.ID, userOne)
	require.NoError(t, err)
	assert.Equal(t, e.TagNames(), got.TagNames())

	updated, err := h.entries.UpdateEntry(ctx, e.ID, userOne, EntryInput{URL: e.URL, Title: e.Title, Tags: []string{"zeta", "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, updated.TagNames())

	listed, err := h.queries.ListEntries(ctx, model.OwnerScope(userOne), "", Page{Number: 1})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, updated.TagNames(), listed.Items[0].TagNames())
}

func TestEntryService_CreateEntry_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		owner int64
		input EntryInput
		field string
	}{
		{"missing url", userOne, EntryInput{Title: "t"}, "url"},
		{"relative url", userOne, EntryInput{URL: "/just/a/path"}, "url"},
		{"unsupported scheme", userOne, EntryInput{URL: "ftp://files.example.com"}, "url"},
		{"anonymous owner", 0, EntryInput{URL: "https://a.com"}, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.entries.CreateEntry(ctx, tt.owner, tt.input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
	assert.Empty(t, h.db.snapshot().entries)
}

func TestEntryService_CreateEntry_DerivesTitle(t *testing.T) {
	h := newHarness(t)

	e, err := h.entries.CreateEntry(context.Background(), userOne, EntryInput{URL: "https://www.golang.org/doc/"})
	require.NoError(t, err)
	assert.Equal(t, "golang.org/doc", e.Title)
}

func TestEntryService_GetEntry_OwnershipAndDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.create(t, userOne, "Mine")
	gone := h.create(t, userOne, "Gone")
	require.NoError(t, h.entries.SoftDeleteEntry(ctx, gone.ID, userOne))

	got, err := h.entries.GetEntry(ctx, mine.ID, userOne)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = h.entries.GetEntry(ctx, mine.ID, userTwo)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.entries.GetEntry(ctx, gone.ID, userOne)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.entries.GetEntry(ctx, 12345, userOne)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryService_UpdateEntry_ReindexesAndRetags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Before", "old")

	updated, err := h.entries.UpdateEntry(ctx, e.ID, userOne, EntryInput{
		URL:   "https://after.example.com",
		Title: "After",
		Notes: "fresh notes",
		Tags:  []string{"new", "old"},
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.ElementsMatch(t, []string{"new", "old"}, updated.TagNames())

	doc, err := h.db.store().Index().Document(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", doc.Title)
	assert.Equal(t, "fresh notes", doc.Notes)
	assert.Equal(t, "https://after.example.com", doc.URL)

	// "old" must be the same tag, not a second row.
	st := h.db.snapshot()
	assert.Len(t, st.tags, 2)
}

func TestEntryService_UpdateEntry_OtherOwnerIsNotFound(t *testing.T) {
	h := newHarness(t)
	e := h.create(t, userOne, "Private")

	_, err := h.entries.UpdateEntry(context.Background(), e.ID, userTwo, EntryInput{URL: "https://x.com"})
	assert.ErrorIs(t, err, ErrNotFound)

	st := h.db.snapshot()
	assert.Equal(t, "Private", st.entries[e.ID].Title)
}

func TestEntryService_UpdateEntry_IndexFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Stable", "keep")

	h.db.failIndex = errors.New("index write failed")
	_, err := h.entries.UpdateEntry(ctx, e.ID, userOne, EntryInput{
		URL:   "https://changed.example.com",
		Title: "Changed",
		Tags:  []string{"brand-new"},
	})
	h.db.failIndex = nil

	require.ErrorIs(t, err, ErrStorageUnavailable)
	st := h.db.snapshot()
	assert.Equal(t, "Stable", st.entries[e.ID].Title)
	assert.Equal(t, "Stable", st.docs[e.ID].Title)
	assert.Len(t, st.tags, 1, "tags resolved inside the failed transaction are discarded")
}

func TestEntryService_SoftDeleteAndRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Cycle")
	require.NoError(t, h.entries.SubmitForReview(ctx, e.ID, userOne))

	require.NoError(t, h.entries.SoftDeleteEntry(ctx, e.ID, userOne))
	st := h.db.snapshot()
	deleted := st.entries[e.ID]
	assert.True(t, deleted.IsDeleted)
	assert.NotNil(t, deleted.DeletedAt)
	assert.False(t, deleted.SubmittedForReview)
	_, indexed := st.docs[e.ID]
	assert.True(t, indexed, "soft delete keeps the index row")

	assert.ErrorIs(t, h.entries.SoftDeleteEntry(ctx, e.ID, userOne), ErrNotFound)

	assert.ErrorIs(t, h.entries.RestoreEntry(ctx, e.ID, userTwo), ErrNotFound)
	require.NoError(t, h.entries.RestoreEntry(ctx, e.ID, userOne))
	restored := h.db.snapshot().entries[e.ID]
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	assert.ErrorIs(t, h.entries.RestoreEntry(ctx, e.ID, userOne), ErrNotFound, "restoring a live entry")
}

func TestEntryService_SubmitForReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Submit me")

	require.NoError(t, h.entries.SubmitForReview(ctx, e.ID, userOne))
	require.NoError(t, h.entries.SubmitForReview(ctx, e.ID, userOne), "resubmission is a no-op")
	assert.True(t, h.db.snapshot().entries[e.ID].SubmittedForReview)
	assert.Equal(t, []model.ModerationEventType{model.EventSubmitted}, h.events.types())

	assert.ErrorIs(t, h.entries.SubmitForReview(ctx, e.ID, userTwo), ErrNotFound)
	assert.ErrorIs(t, h.entries.SubmitForReview(ctx, 999, userOne), ErrNotFound)

	gone := h.create(t, userOne, "Gone")
	require.NoError(t, h.entries.SoftDeleteEntry(ctx, gone.ID, userOne))
	assert.ErrorIs(t, h.entries.SubmitForReview(ctx, gone.ID, userOne), ErrNotFound)
}

func TestEntryService_SubmitForReview_PublicCopyIsInvalidState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Fork source")
	fork, err := h.moderation.Approve(ctx, e.ID, adminID)
	require.NoError(t, err)

	err = h.entries.SubmitForReview(ctx, fork.ID, adminID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEntryService_OwnerOpsNeverReachPublicCopies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.create(t, userOne, "Source")
	fork, err := h.moderation.Approve(ctx, e.ID, adminID)
	require.NoError(t, err)

	_, err = h.entries.GetEntry(ctx, fork.ID, adminID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.entries.UpdateEntry(ctx, fork.ID, adminID, EntryInput{URL: "https://x.com"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.entries.SoftDeleteEntry(ctx, fork.ID, adminID), ErrNotFound)
}

func TestEntryService_UserTags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, userOne, "One", "b", "a")
	gone := h.create(t, userOne, "Two", "hidden")
	h.create(t, userTwo, "Other", "z")
	require.NoError(t, h.entries.SoftDeleteEntry(ctx, gone.ID, userOne))

	names, err := h.entries.UserTags(ctx, userOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = h.entries.UserTags(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("op", repository.ErrEntryNotFound), ErrNotFound)
	assert.ErrorIs(t, classify("op", ErrInvalidState), ErrInvalidState)

	storage := classify("op", errors.New("dial tcp: refused"))
	assert.ErrorIs(t, storage, ErrStorageUnavailable)
	assert.Contains(t, storage.Error(), "dial tcp: refused")

	var vErr *ValidationError
	assert.ErrorAs(t, classify("op", invalid("url", "is required")), &vErr)
	assert.NoError(t, classify("op", nil))
}
