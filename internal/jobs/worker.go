package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Notifier delivers a dispatch message to a user's external bot identity,
// with the reaction keyboard for the given reminder attached.
type Notifier interface {
	SendReminder(ctx context.Context, chatID, text string, reminderID uint64) error
}

// ToneGenerator produces the motivational line prepended to a dispatch
// message. Implementations must degrade to a static line on failure.
type ToneGenerator interface {
	DispatchLine(ctx context.Context, reminderText string, streak, failures int) string
}

// DispatchMetrics is the slice of the metrics collector the worker needs.
type DispatchMetrics interface {
	RecordDispatch()
	RecordDispatchFailure()
}

type Worker struct {
	ID       string
	Repo     *Repo
	DB       *gorm.DB
	Notifier Notifier
	Tone     ToneGenerator
	Metrics  DispatchMetrics
	Logger   *slog.Logger
}

// Local row views keep this package from importing the habit/auth packages.
type reminderRow struct {
	ID                 uint64    `gorm:"column:id"`
	UserID             uint64    `gorm:"column:user_id"`
	Text               string    `gorm:"column:text"`
	ReminderTime       time.Time `gorm:"column:reminder_time"`
	Completed          bool      `gorm:"column:completed"`
	LastReactionStatus string    `gorm:"column:last_reaction_status"`
}

func (reminderRow) TableName() string { return "reminders" }

type userRow struct {
	ID         uint64  `gorm:"column:id"`
	TelegramID *string `gorm:"column:telegram_id"`
}

func (userRow) TableName() string { return "users" }

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Logger.Error("job claim failed", "worker", w.ID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeReminderDispatch:
		w.dispatchReminder(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) dispatchReminder(ctx context.Context, job *Job) {
	var r reminderRow
	if err := w.DB.
		Where("id = ? AND user_id = ?", job.ReminderID, job.UserID).
		First(&r).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			// reminder deleted after enqueue, nothing to do
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	// Completed or rescheduled into the future: this dispatch is stale.
	if r.Completed || r.ReminderTime.After(time.Now().Add(time.Minute)) {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	msg := r.Text
	if w.Tone != nil {
		streak, failures := w.recentCounts(job.UserID)
		msg = w.Tone.DispatchLine(ctx, r.Text, streak, failures) + "\n" + r.Text
	}

	var u userRow
	if err := w.DB.Where("id = ?", job.UserID).First(&u).Error; err != nil {
		w.retry(job, "user read error")
		return
	}

	if w.Notifier != nil && u.TelegramID != nil {
		if err := w.Notifier.SendReminder(ctx, *u.TelegramID, msg, r.ID); err != nil {
			w.retry(job, fmt.Sprintf("notify: %v", err))
			return
		}
	} else {
		w.Logger.Info("reminder due", "user_id", job.UserID, "reminder_id", r.ID, "text", r.Text)
	}

	if w.Metrics != nil {
		w.Metrics.RecordDispatch()
	}
	_ = w.Repo.MarkDone(job.ID)
}

// recentCounts derives the 7-day completed streak and ignore count used to
// pick the dispatch tone. Errors fall back to zero, a neutral tone.
func (w *Worker) recentCounts(userID uint64) (streak, failures int) {
	since := time.Now().AddDate(0, 0, -7)
	var completed, ignored int64
	w.DB.Table("reminders").
		Where("user_id = ? AND completed = ? AND reminder_time >= ?", userID, true, since).
		Count(&completed)
	w.DB.Table("reminders").
		Where("user_id = ? AND last_reaction_status = ? AND reminder_time >= ?", userID, "ignored", since).
		Count(&ignored)
	return int(completed), int(ignored)
}

func (w *Worker) retry(job *Job, errMsg string) {
	if job.Attempts+1 >= job.MaxAttempts && w.Metrics != nil {
		w.Metrics.RecordDispatchFailure()
	}
	if err := w.Repo.RetryLater(job, errMsg); err != nil {
		w.Logger.Error("job retry scheduling failed", "job_id", job.ID, "error", err)
	}
}
