package habit

import (
	"encoding/json"
	"time"

	"tonalli/internal/api"
)

// Reminder is a user-owned reminder with a single canonical due instant.
// After creation only the reaction status / completion pair (and snooze
// time shifts) change; everything else is immutable.
type Reminder struct {
	ID                 uint64          `gorm:"primaryKey"`
	UserID             uint64          `gorm:"index;not null"`
	Text               string          `gorm:"type:text;not null"`
	ReminderTime       time.Time       `gorm:"index;not null"`
	Completed          bool            `gorm:"not null;default:false"`
	LastReactionStatus string          `gorm:"type:text;not null;default:'pending'"`
	ContextMetadata    json.RawMessage `gorm:"type:jsonb"`
	IdempotencyKey     *string         `gorm:"index"`
	CreatedAt          time.Time       `gorm:"not null"`
}

// Activity is an append-only log entry. ReminderID is a weak back-reference:
// it has no foreign-key constraint, so deleting the reminder neither
// cascades nor nulls it.
type Activity struct {
	ID           uint64          `gorm:"primaryKey"`
	UserID       uint64          `gorm:"index;not null"`
	ActivityType string          `gorm:"type:text;not null"`
	Description  *string         `gorm:"type:text"`
	ActivityDate time.Time       `gorm:"index;not null"`
	ReminderID   *uint64         `gorm:"index"`
	Metadata     json.RawMessage `gorm:"type:jsonb"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// Summary is the point-in-time aggregate served to clients. It is computed
// per request, never persisted.
type Summary struct {
	TotalReminders     int64
	CompletedReminders int64
	PendingReminders   int64
	TotalActivities    int64
	RecentActivities   []Activity
	RecentReminders    []Reminder
}

func (r Reminder) API() api.Reminder {
	return api.Reminder{
		ID:                 r.ID,
		UserID:             r.UserID,
		Text:               r.Text,
		ReminderTime:       r.ReminderTime,
		Completed:          r.Completed,
		LastReactionStatus: api.ReactionStatus(r.LastReactionStatus),
		ContextMetadata:    r.ContextMetadata,
		CreatedAt:          r.CreatedAt,
	}
}

func (a Activity) API() api.Activity {
	return api.Activity{
		ID:           a.ID,
		UserID:       a.UserID,
		ActivityType: a.ActivityType,
		Description:  a.Description,
		ActivityDate: a.ActivityDate,
		ReminderID:   a.ReminderID,
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
	}
}

func (s Summary) API() api.Summary {
	out := api.Summary{
		TotalReminders:     s.TotalReminders,
		CompletedReminders: s.CompletedReminders,
		PendingReminders:   s.PendingReminders,
		TotalActivities:    s.TotalActivities,
		RecentActivities:   make([]api.Activity, 0, len(s.RecentActivities)),
		RecentReminders:    make([]api.Reminder, 0, len(s.RecentReminders)),
	}
	for _, a := range s.RecentActivities {
		out.RecentActivities = append(out.RecentActivities, a.API())
	}
	for _, r := range s.RecentReminders {
		out.RecentReminders = append(out.RecentReminders, r.API())
	}
	return out
}
