package model

import "time"

// Entry is a saved link record. Private entries belong to their creator; public
// copies are admin-owned forks listed in the public directory.
type Entry struct {
	ID                 int64      `db:"id" gorm:"primaryKey;autoIncrement" json:"id"`
	URL                string     `db:"url" gorm:"type:text;not null" json:"url"`
	Title              string     `db:"title" gorm:"type:text;not null" json:"title"`
	Notes              string     `db:"notes" gorm:"type:text;not null;default:''" json:"notes"`
	UserID             int64      `db:"user_id" gorm:"not null;index" json:"user_id"`
	IsPublicCopy       bool       `db:"is_public_copy" gorm:"not null;default:false" json:"is_public_copy"`
	SubmittedForReview bool       `db:"submitted_for_review" gorm:"not null;default:false" json:"submitted_for_review"`
	IsDeleted          bool       `db:"is_deleted" gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at"`
	OriginalID         *int64     `db:"original_id" gorm:"index" json:"original_id"`
	CreatedAt          time.Time  `db:"created_at" gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" gorm:"autoUpdateTime" json:"updated_at"`

	Tags []Tag `db:"-" gorm:"-" json:"tags"`
}

// TableName pins the table name used by GORM.
func (Entry) TableName() string { return "entries" }

// EntryState is the moderation state derived from an entry's flags.
type EntryState string

const (
	StatePrivate           EntryState = "private"
	StateSubmitted         EntryState = "submitted"
	StatePrivateDeleted    EntryState = "private_deleted"
	StatePublicCopy        EntryState = "public_copy"
	StatePublicCopyDeleted EntryState = "public_copy_deleted"
)

// State derives the lifecycle state from the entry's flags.
func (e *Entry) State() EntryState {
	switch {
	case e.IsPublicCopy && e.IsDeleted:
		return StatePublicCopyDeleted
	case e.IsPublicCopy:
		return StatePublicCopy
	case e.IsDeleted:
		return StatePrivateDeleted
	case e.SubmittedForReview:
		return StateSubmitted
	default:
		return StatePrivate
	}
}

// TagNames returns the names of the entry's tags in their stored order.
func (e *Entry) TagNames() []string {
	names := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		names[i] = t.Name
	}
	return names
}

// TagIDs returns the distinct tag ids associated with the entry.
func (e *Entry) TagIDs() []int64 {
	seen := make(map[int64]struct{}, len(e.Tags))
	ids := make([]int64, 0, len(e.Tags))
	for _, t := range e.Tags {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}
	return ids
}
