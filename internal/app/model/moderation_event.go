package model

import "time"

// ModerationEventType names a moderation transition.
type ModerationEventType string

const (
	EventSubmitted ModerationEventType = "submitted"
	EventApproved  ModerationEventType = "approved"
	EventRejected  ModerationEventType = "rejected"
	EventEdited    ModerationEventType = "edited"
	EventDeleted   ModerationEventType = "deleted"
	EventRestored  ModerationEventType = "restored"
	EventPurged    ModerationEventType = "purged"
)

// ModerationEvent records one moderation transition for the audit log.
type ModerationEvent struct {
	ID           string              `json:"id" gorm:"primaryKey;size:36"`
	Type         ModerationEventType `json:"type" gorm:"size:16;not null"`
	EntryID      int64               `json:"entry_id" gorm:"not null;index"`
	PublicCopyID *int64              `json:"public_copy_id,omitempty"`
	ActorID      int64               `json:"actor_id" gorm:"not null"`
	OccurredAt   time.Time           `json:"occurred_at" gorm:"not null;index"`
}

func (ModerationEvent) TableName() string { return "moderation_events" }

const (
	ModerationStreamName     = "MODERATION"
	ModerationStreamSubject  = "moderation.events"
	ModerationConsumerName   = "moderation-audit"
	ModerationStreamMaxBytes = 1024 * 1024 * 50 // 50MB
)
