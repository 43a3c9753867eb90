// Package dashboard orchestrates reminder and activity lifecycles for one
// user session: create/react/delete sequences through the sync client, with
// the summary always re-derived from the remote aggregate after a mutation.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tonalli/internal/api"
	"tonalli/internal/timeparse"
)

// ErrUnknownStatus rejects a reaction naming a status outside the enum.
var ErrUnknownStatus = errors.New("unknown reaction status")

// SyncClient is the remote surface the manager needs. *syncclient.Client
// satisfies it; tests plug in a fake.
type SyncClient interface {
	CreateReminder(ctx context.Context, userID uint64, in api.CreateReminderRequest) (*api.Reminder, error)
	UpdateReminder(ctx context.Context, userID, reminderID uint64, in api.UpdateReminderRequest) (*api.Reminder, error)
	DeleteReminder(ctx context.Context, userID, reminderID uint64) error
	CreateActivity(ctx context.Context, userID uint64, in api.CreateActivityRequest) (*api.Activity, error)
	DeleteActivity(ctx context.Context, userID, activityID uint64) error
	GetSummary(ctx context.Context, userID uint64) (*api.Summary, error)
}

// Input is the reminder form buffer: free text plus the raw date and
// time-of-day strings as the user typed them.
type Input struct {
	Text      string
	Date      string
	TimeOfDay string
}

// Manager owns one user's dashboard view. It is a single logical thread of
// control: callers sequence their own actions (a busy flag in the UI), the
// manager guarantees a mutation's response is observed before the summary
// refresh is issued.
type Manager struct {
	client SyncClient
	userID uint64
	loc    *time.Location
	logger *slog.Logger

	summary *api.Summary
	input   Input
}

func NewManager(client SyncClient, userID uint64, loc *time.Location, logger *slog.Logger) *Manager {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{client: client, userID: userID, loc: loc, logger: logger}
}

// SetInput replaces the reminder form buffer.
func (m *Manager) SetInput(in Input) { m.input = in }

// Input returns the current form buffer.
func (m *Manager) Input() Input { return m.input }

// Summary returns the last fetched aggregate, nil before the first refresh.
func (m *Manager) Summary() *api.Summary { return m.summary }

// Refresh re-fetches the summary from the remote aggregator. Counts and the
// "recent" orderings are never patched locally; the remote side is the sole
// authority for them.
func (m *Manager) Refresh(ctx context.Context) error {
	s, err := m.client.GetSummary(ctx, m.userID)
	if err != nil {
		m.logger.Warn("summary refresh failed", "user_id", m.userID, "error", err)
		return err
	}
	m.summary = s
	return nil
}

// CreateReminder submits the current input buffer. Empty or whitespace-only
// text silently declines (no network call, buffer untouched). Invalid
// date/time input returns timeparse.ErrInvalidTimeInput before any call is
// made. On success the text buffer is cleared and the summary re-fetched.
func (m *Manager) CreateReminder(ctx context.Context) error {
	text := strings.TrimSpace(m.input.Text)
	if text == "" {
		return nil
	}

	instant, err := timeparse.Normalize(m.input.Date, m.input.TimeOfDay, m.loc)
	if err != nil {
		return err
	}

	if _, err := m.client.CreateReminder(ctx, m.userID, api.CreateReminderRequest{
		Text:         text,
		ReminderTime: instant,
	}); err != nil {
		m.logger.Error("create reminder failed", "user_id", m.userID, "error", err)
		return err
	}

	m.input.Text = ""
	return m.Refresh(ctx)
}

// React records a user reaction on a reminder. The update carries both the
// status and its derived completed flag in a single request so no
// half-updated state is ever observable, then the summary is re-fetched
// exactly once.
func (m *Manager) React(ctx context.Context, reminderID uint64, status api.ReactionStatus) error {
	if !status.Valid() {
		return ErrUnknownStatus
	}

	completed := status.Completed()
	if _, err := m.client.UpdateReminder(ctx, m.userID, reminderID, api.UpdateReminderRequest{
		LastReactionStatus: &status,
		Completed:          &completed,
	}); err != nil {
		m.logger.Error("reaction failed", "user_id", m.userID, "reminder_id", reminderID, "status", status, "error", err)
		return err
	}

	return m.Refresh(ctx)
}

// DeleteReminder is fire-and-refresh: no optimistic local removal, the next
// summary fetch is the reconciliation.
func (m *Manager) DeleteReminder(ctx context.Context, reminderID uint64) error {
	if err := m.client.DeleteReminder(ctx, m.userID, reminderID); err != nil {
		m.logger.Error("delete reminder failed", "user_id", m.userID, "reminder_id", reminderID, "error", err)
		return err
	}
	return m.Refresh(ctx)
}

// LogActivity records an activity. The instant is already absolute here, so
// there is no normalization step; a blank type or zero instant silently
// declines. reminderID optionally back-references the originating reminder.
func (m *Manager) LogActivity(ctx context.Context, activityType, description string, instant time.Time, reminderID *uint64) error {
	activityType = strings.TrimSpace(activityType)
	if activityType == "" || instant.IsZero() {
		return nil
	}

	var desc *string
	if d := strings.TrimSpace(description); d != "" {
		desc = &d
	}

	if _, err := m.client.CreateActivity(ctx, m.userID, api.CreateActivityRequest{
		ActivityType: activityType,
		Description:  desc,
		ActivityDate: instant,
		ReminderID:   reminderID,
	}); err != nil {
		m.logger.Error("log activity failed", "user_id", m.userID, "error", err)
		return err
	}

	return m.Refresh(ctx)
}

// DeleteActivity mirrors DeleteReminder's fire-and-refresh discipline.
func (m *Manager) DeleteActivity(ctx context.Context, activityID uint64) error {
	if err := m.client.DeleteActivity(ctx, m.userID, activityID); err != nil {
		m.logger.Error("delete activity failed", "user_id", m.userID, "activity_id", activityID, "error", err)
		return err
	}
	return m.Refresh(ctx)
}
