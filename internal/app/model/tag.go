package model

// Tag is a canonical label matched by exact name.
type Tag struct {
	ID   int64  `db:"id" gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `db:"name" gorm:"type:text;not null;index" json:"name"`
}

func (Tag) TableName() string { return "tags" }

// EntryTag is one row of the entry/tag association.
type EntryTag struct {
	EntryID int64 `db:"entry_id" gorm:"primaryKey"`
	TagID   int64 `db:"tag_id" gorm:"primaryKey"`
}

func (EntryTag) TableName() string { return "entry_tags" }
