package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sifan077/hyperindex/internal/app/model"
)

// Order selects the sort order of a listing.
type Order int

const (
	// OrderNewest sorts by entry id descending.
	OrderNewest Order = iota
	// OrderRecentlyDeleted sorts by deletion time descending.
	OrderRecentlyDeleted
)

// EntryQuery is the full description of one retrieval.
type EntryQuery struct {
	Scope model.Scope
	// Tag restricts to entries linked to a tag with exactly this name.
	Tag string
	// Text is matched against the search index when non-empty.
	Text string
	// Deleted selects soft-deleted entries instead of live ones.
	Deleted bool
	// PendingOnly keeps only private entries awaiting review.
	PendingOnly bool
	Order       Order
	Limit       int
	Offset      int
}

// EntryReader runs listings and searches against a consistent snapshot.
type EntryReader interface {
	Find(ctx context.Context, q EntryQuery) ([]model.Entry, int64, error)
}

// TxBeginner opens pgx transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type entryReader struct {
	pool TxBeginner
}

// NewEntryReader returns a pgx-backed EntryReader.
func NewEntryReader(pool TxBeginner) EntryReader {
	return &entryReader{pool: pool}
}

const entryColumns = `e.id, e.url, e.title, e.notes, e.user_id, e.is_public_copy,
	e.submitted_for_review, e.is_deleted, e.deleted_at, e.original_id, e.created_at, e.updated_at`

func (r *entryReader) Find(ctx context.Context, q EntryQuery) ([]model.Entry, int64, error) {
	where, args := buildEntryWhere(q)

	// Page, count and tags must come from the same snapshot.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	countQuery := "SELECT COUNT(*) FROM entries e WHERE " + where
	if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}
	if total == 0 {
		return []model.Entry{}, 0, nil
	}

	limitArg := len(args) + 1
	pageQuery := fmt.Sprintf("SELECT %s FROM entries e WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		entryColumns, where, orderClause(q.Order), limitArg, limitArg+1)
	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)

	rows, err := tx.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, 0, fmt.Errorf("scan entries: %w", err)
	}

	if err := attachTags(ctx, tx, entries); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("end snapshot: %w", err)
	}
	return entries, total, nil
}

func scanEntry(row pgx.CollectableRow) (model.Entry, error) {
	var e model.Entry
	err := row.Scan(&e.ID, &e.URL, &e.Title, &e.Notes, &e.UserID, &e.IsPublicCopy,
		&e.SubmittedForReview, &e.IsDeleted, &e.DeletedAt, &e.OriginalID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func attachTags(ctx context.Context, tx pgx.Tx, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
		entries[i].Tags = []model.Tag{}
	}

	rows, err := tx.Query(ctx, `SELECT et.entry_id, t.id, t.name
		FROM entry_tags et JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id = ANY($1)
		ORDER BY t.name, t.id`, ids)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID int64
		var tag model.Tag
		if err := rows.Scan(&entryID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan tags: %w", err)
		}
		i := index[entryID]
		entries[i].Tags = append(entries[i].Tags, tag)
	}
	return rows.Err()
}

// buildEntryWhere renders the filter predicates of q with $n placeholders.
func buildEntryWhere(q EntryQuery) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch q.Scope.Kind {
	case model.ScopeOwner:
		conds = append(conds, "e.user_id = "+arg(q.Scope.OwnerID), "e.is_public_copy = false")
	case model.ScopePublic:
		conds = append(conds, "e.is_public_copy = true")
	case model.ScopeAdmin:
	default:
		conds = append(conds, "false")
	}

	if q.Deleted {
		conds = append(conds, "e.is_deleted = true")
	} else {
		conds = append(conds, "e.is_deleted = false")
	}

	if q.PendingOnly {
		conds = append(conds, "e.is_public_copy = false", "e.submitted_for_review = true")
	}

	if q.Tag != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
			WHERE et.entry_id = e.id AND t.name = `+arg(q.Tag)+`)`)
	}

	if q.Text != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM entry_search s
			WHERE s.entry_id = e.id AND s.document @@ websearch_to_tsquery('simple', `+arg(q.Text)+`))`)
	}

	return strings.Join(conds, " AND "), args
}

func orderClause(o Order) string {
	switch o {
	case OrderRecentlyDeleted:
		return "e.deleted_at DESC NULLS LAST, e.id DESC"
	default:
		return "e.id DESC"
	}
}
