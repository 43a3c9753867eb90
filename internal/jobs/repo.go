package jobs

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
)

// Enqueue inserts a job inside the caller's transaction so a reminder write
// and its dispatch job commit atomically.
func Enqueue(tx *gorm.DB, j Job) error {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 8
	}
	return tx.Create(&j).Error
}

// CancelPending drops queued dispatch jobs for one reminder. Used when the
// due time moves, the reminder completes, or the reminder is deleted.
func CancelPending(tx *gorm.DB, userID, reminderID uint64) error {
	return tx.
		Where("user_id = ? AND reminder_id = ? AND type = ? AND status = ?",
			userID, reminderID, TypeReminderDispatch, StatusPending).
		Delete(&Job{}).Error
}

type Repo struct {
	DB *gorm.DB
}

// stuck RUNNING jobs older than this get requeued
const lockTimeout = 5 * time.Minute

// Claim atomically takes one due job. On Postgres it uses FOR UPDATE SKIP
// LOCKED so concurrent workers never double-claim; on SQLite (single-process
// deployments) a plain transaction suffices. Returns nil when nothing is due.
func (r *Repo) Claim(workerID string) (*Job, error) {
	if r.DB.Dialector.Name() == "postgres" {
		return r.claimPostgres(workerID)
	}
	return r.claimSerial(workerID)
}

func (r *Repo) claimPostgres(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`)

		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) claimSerial(workerID string) (*Job, error) {
	var job Job
	now := time.Now()
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		tx.Model(&Job{}).
			Where("status = ? AND locked_at IS NOT NULL AND locked_at < ?", StatusRunning, now.Add(-lockTimeout)).
			Updates(map[string]any{"status": StatusPending, "locked_by": nil, "locked_at": nil, "updated_at": now})

		if err := tx.
			Where("status = ? AND run_at <= ?", StatusPending, now).
			Order("run_at asc").
			First(&job).Error; err != nil {
			return err
		}
		return tx.Model(&job).Updates(map[string]any{
			"status":     StatusRunning,
			"locked_by":  workerID,
			"locked_at":  now,
			"updated_at": now,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Model(&Job{}).Where("id = ?", id).
		Updates(map[string]any{"status": StatusDone, "updated_at": time.Now()}).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Model(&Job{}).Where("id = ?", id).
		Updates(map[string]any{"status": StatusFailed, "last_error": errMsg, "updated_at": time.Now()}).Error
}

// RetryLater requeues the job with exponential backoff, capped at 10 minutes.
func (r *Repo) RetryLater(job *Job, errMsg string) error {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		return r.MarkFailed(job.ID, errMsg)
	}
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	runAt := time.Now().Add(time.Duration(sec) * time.Second)

	return r.DB.Model(&Job{}).Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     StatusPending,
			"attempts":   attempts,
			"run_at":     runAt,
			"locked_by":  nil,
			"locked_at":  nil,
			"last_error": errMsg,
			"updated_at": time.Now(),
		}).Error
}

// CleanupFinished deletes DONE/FAILED/CANCELLED jobs older than keep.
// Scheduled daily from main.
func (r *Repo) CleanupFinished(keep time.Duration) (int64, error) {
	res := r.DB.
		Where("status IN ? AND updated_at < ?",
			[]string{StatusDone, StatusFailed, StatusCancelled}, time.Now().Add(-keep)).
		Delete(&Job{})
	return res.RowsAffected, res.Error
}
