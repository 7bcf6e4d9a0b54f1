package model

import "time"

// SearchDocument is the searchable projection of an entry. The tsvector column
// is generated by Postgres from these fields.
type SearchDocument struct {
	EntryID   int64     `db:"entry_id" gorm:"primaryKey"`
	Title     string    `db:"title" gorm:"type:text;not null"`
	Notes     string    `db:"notes" gorm:"type:text;not null"`
	URL       string    `db:"url" gorm:"type:text;not null"`
	IndexedAt time.Time `db:"indexed_at" gorm:"not null"`
}

func (SearchDocument) TableName() string { return "entry_search" }

// Matches reports whether the projection equals the entry's searchable fields.
func (d SearchDocument) Matches(e *Entry) bool {
	return d.EntryID == e.ID && d.Title == e.Title && d.Notes == e.Notes && d.URL == e.URL
}
