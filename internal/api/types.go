// Package api holds the wire types exchanged between the Tonalli server and
// its clients. Field names mirror the JSON surface exactly; date/time fields
// are absolute RFC3339 instants.
package api

import (
	"encoding/json"
	"time"
)

// ReactionStatus is the last user reaction recorded on a reminder.
type ReactionStatus string

const (
	ReactionPending   ReactionStatus = "pending"
	ReactionCompleted ReactionStatus = "completed"
	ReactionSnoozed   ReactionStatus = "snoozed"
	ReactionIgnored   ReactionStatus = "ignored"
)

// Valid reports whether s is one of the known reaction statuses.
func (s ReactionStatus) Valid() bool {
	switch s {
	case ReactionPending, ReactionCompleted, ReactionSnoozed, ReactionIgnored:
		return true
	}
	return false
}

// Completed reports the completion flag derived from the status. The two
// fields travel together on the wire; this is the single source of truth.
func (s ReactionStatus) Completed() bool { return s == ReactionCompleted }

type User struct {
	ID         uint64    `json:"id"`
	TelegramID *string   `json:"telegram_id"`
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

type Reminder struct {
	ID                 uint64          `json:"id"`
	UserID             uint64          `json:"user_id"`
	Text               string          `json:"text"`
	ReminderTime       time.Time       `json:"reminder_time"`
	Completed          bool            `json:"completed"`
	LastReactionStatus ReactionStatus  `json:"last_reaction_status"`
	ContextMetadata    json.RawMessage `json:"context_metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type Activity struct {
	ID           uint64          `json:"id"`
	UserID       uint64          `json:"user_id"`
	ActivityType string          `json:"activity_type"`
	Description  *string         `json:"description"`
	ActivityDate time.Time       `json:"activity_date"`
	ReminderID   *uint64         `json:"reminder_id"`
	Metadata     json.RawMessage `json:"metadata_info,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Summary is the remote-computed aggregate. Clients never patch it locally;
// they re-fetch it after every mutation.
type Summary struct {
	TotalReminders     int64      `json:"total_reminders"`
	CompletedReminders int64      `json:"completed_reminders"`
	PendingReminders   int64      `json:"pending_reminders"`
	TotalActivities    int64      `json:"total_activities"`
	RecentActivities   []Activity `json:"recent_activities"`
	RecentReminders    []Reminder `json:"recent_reminders"`
}

type CreateReminderRequest struct {
	Text         string    `json:"text"`
	ReminderTime time.Time `json:"reminder_time"`
}

// UpdateReminderRequest is a partial update; nil fields are left untouched.
type UpdateReminderRequest struct {
	Text               *string         `json:"text,omitempty"`
	ReminderTime       *time.Time      `json:"reminder_time,omitempty"`
	Completed          *bool           `json:"completed,omitempty"`
	LastReactionStatus *ReactionStatus `json:"last_reaction_status,omitempty"`
	ContextMetadata    json.RawMessage `json:"context_metadata,omitempty"`
}

type CreateActivityRequest struct {
	ActivityType string          `json:"activity_type"`
	Description  *string         `json:"description,omitempty"`
	ActivityDate time.Time       `json:"activity_date"`
	ReminderID   *uint64         `json:"reminder_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata_info,omitempty"`
}
