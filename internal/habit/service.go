// Package habit is the server-side domain layer: reminder/activity CRUD and
// the summary aggregation the clients treat as authoritative.
package habit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"tonalli/internal/api"
	"tonalli/internal/jobs"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid reaction status")
)

// recentLimit bounds the "recent" lists in the summary.
const recentLimit = 5

type Service struct {
	DB *gorm.DB
}

type CreateReminderInput struct {
	Text         string
	ReminderTime time.Time
	IdemKey      *string
}

// UpdateReminderInput is a partial update; nil fields are left untouched.
type UpdateReminderInput struct {
	Text               *string
	ReminderTime       *time.Time
	Completed          *bool
	LastReactionStatus *string
	ContextMetadata    json.RawMessage
}

type CreateActivityInput struct {
	ActivityType string
	Description  *string
	ActivityDate time.Time
	ReminderID   *uint64
	Metadata     json.RawMessage
}

func (s *Service) ListReminders(ctx context.Context, userID uint64) ([]Reminder, error) {
	var rows []Reminder
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reminder_time desc").
		Find(&rows).Error
	return rows, err
}

// CreateReminder inserts a pending reminder and enqueues its dispatch job in
// the same transaction. A repeated Idempotency-Key returns the existing row
// instead of creating a duplicate.
func (s *Service) CreateReminder(ctx context.Context, userID uint64, in CreateReminderInput) (*Reminder, error) {
	if in.IdemKey != nil {
		var existing Reminder
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND idempotency_key = ?", userID, *in.IdemKey).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	r := Reminder{
		UserID:             userID,
		Text:               in.Text,
		ReminderTime:       in.ReminderTime,
		Completed:          false,
		LastReactionStatus: string(api.ReactionPending),
		IdempotencyKey:     in.IdemKey,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return jobs.Enqueue(tx, jobs.Job{
			UserID:     userID,
			Type:       jobs.TypeReminderDispatch,
			ReminderID: r.ID,
			RunAt:      in.ReminderTime,
			Status:     jobs.StatusPending,
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReminder applies a partial update under ownership check. The
// completion flag is derived, never trusted: a status in the patch forces
// completed = (status == completed); a bare completed flag back-derives the
// status, so the pair can never disagree.
func (s *Service) UpdateReminder(ctx context.Context, userID, reminderID uint64, in UpdateReminderInput) (*Reminder, error) {
	var r Reminder
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", reminderID, userID).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.Text != nil {
			r.Text = *in.Text
		}
		rescheduled := false
		if in.ReminderTime != nil && !in.ReminderTime.Equal(r.ReminderTime) {
			r.ReminderTime = *in.ReminderTime
			rescheduled = true
		}
		if in.ContextMetadata != nil {
			r.ContextMetadata = in.ContextMetadata
		}

		switch {
		case in.LastReactionStatus != nil:
			status := api.ReactionStatus(*in.LastReactionStatus)
			if !status.Valid() {
				return ErrInvalidStatus
			}
			r.LastReactionStatus = string(status)
			r.Completed = status.Completed()
		case in.Completed != nil:
			r.Completed = *in.Completed
			if *in.Completed {
				r.LastReactionStatus = string(api.ReactionCompleted)
			} else if r.LastReactionStatus == string(api.ReactionCompleted) {
				r.LastReactionStatus = string(api.ReactionPending)
			}
		}

		if err := tx.Save(&r).Error; err != nil {
			return err
		}

		// A moved due time invalidates the queued dispatch.
		if rescheduled {
			if err := jobs.CancelPending(tx, userID, r.ID); err != nil {
				return err
			}
			if !r.Completed {
				return jobs.Enqueue(tx, jobs.Job{
					UserID:     userID,
					Type:       jobs.TypeReminderDispatch,
					ReminderID: r.ID,
					RunAt:      r.ReminderTime,
					Status:     jobs.StatusPending,
				})
			}
		} else if r.Completed {
			return jobs.CancelPending(tx, userID, r.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// snoozeDelay is how far a chat "snooze" pushes the due time.
const snoozeDelay = 20 * time.Minute

// ApplyChatReaction handles a reaction button press arriving over the bot
// webhook, where only the reminder id is known; the owner comes from the row
// itself. "done" also logs a structured activity recording the reaction.
// All paths go through UpdateReminder so the status/completed pair stays
// derived the same way as dashboard reactions.
func (s *Service) ApplyChatReaction(ctx context.Context, reminderID uint64, action string) (*Reminder, error) {
	var r Reminder
	if err := s.DB.WithContext(ctx).First(&r, reminderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch action {
	case "done":
		status := string(api.ReactionCompleted)
		updated, err := s.UpdateReminder(ctx, r.UserID, r.ID, UpdateReminderInput{LastReactionStatus: &status})
		if err != nil {
			return nil, err
		}
		meta, _ := json.Marshal(map[string]string{
			"reaction":  "button_click",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		desc := "Completed: " + r.Text
		if _, err := s.CreateActivity(ctx, r.UserID, CreateActivityInput{
			ActivityType: "completed_reminder",
			Description:  &desc,
			ActivityDate: time.Now(),
			ReminderID:   &r.ID,
			Metadata:     meta,
		}); err != nil {
			return nil, err
		}
		return updated, nil

	case "snooze":
		status := string(api.ReactionSnoozed)
		later := time.Now().Add(snoozeDelay)
		return s.UpdateReminder(ctx, r.UserID, r.ID, UpdateReminderInput{
			LastReactionStatus: &status,
			ReminderTime:       &later,
		})

	case "ignore":
		status := string(api.ReactionIgnored)
		return s.UpdateReminder(ctx, r.UserID, r.ID, UpdateReminderInput{LastReactionStatus: &status})

	default:
		return nil, ErrInvalidStatus
	}
}

// ListPendingReminders returns the user's open reminders, soonest first.
func (s *Service) ListPendingReminders(ctx context.Context, userID uint64) ([]Reminder, error) {
	var rows []Reminder
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Order("reminder_time asc").
		Find(&rows).Error
	return rows, err
}

// CompletedActivityCount counts logged reminder completions, the streak
// input for the tone generator.
func (s *Service) CompletedActivityCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&Activity{}).
		Where("user_id = ? AND activity_type = ?", userID, "completed_reminder").
		Count(&n).Error
	return n, err
}

// DeleteReminder removes the reminder and its queued dispatch. Activities
// back-referencing it are left untouched.
func (s *Service) DeleteReminder(ctx context.Context, userID, reminderID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", reminderID, userID).Delete(&Reminder{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return jobs.CancelPending(tx, userID, reminderID)
	})
}

func (s *Service) ListActivities(ctx context.Context, userID uint64) ([]Activity, error) {
	var rows []Activity
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("activity_date desc").
		Find(&rows).Error
	return rows, err
}

func (s *Service) CreateActivity(ctx context.Context, userID uint64, in CreateActivityInput) (*Activity, error) {
	a := Activity{
		UserID:       userID,
		ActivityType: in.ActivityType,
		Description:  in.Description,
		ActivityDate: in.ActivityDate,
		ReminderID:   in.ReminderID,
		Metadata:     in.Metadata,
	}
	if err := s.DB.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, userID, activityID uint64) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", activityID, userID).
		Delete(&Activity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary recomputes the aggregate from scratch on every call. Clients
// re-fetch it after each mutation instead of patching counts locally.
func (s *Service) Summary(ctx context.Context, userID uint64) (*Summary, error) {
	db := s.DB.WithContext(ctx)
	var out Summary

	if err := db.Model(&Reminder{}).Where("user_id = ?", userID).
		Count(&out.TotalReminders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Reminder{}).Where("user_id = ? AND completed = ?", userID, true).
		Count(&out.CompletedReminders).Error; err != nil {
		return nil, err
	}
	out.PendingReminders = out.TotalReminders - out.CompletedReminders

	if err := db.Model(&Activity{}).Where("user_id = ?", userID).
		Count(&out.TotalActivities).Error; err != nil {
		return nil, err
	}

	if err := db.Where("user_id = ?", userID).
		Order("activity_date desc").Limit(recentLimit).
		Find(&out.RecentActivities).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).
		Order("reminder_time desc").Limit(recentLimit).
		Find(&out.RecentReminders).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
