package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tonalli/internal/auth"
	"tonalli/internal/habit"
	"tonalli/internal/jobs"
)

// Connect opens postgres when dsn is set, otherwise a local sqlite file.
func Connect(dsn, sqlitePath string) (*gorm.DB, error) {
	if dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&habit.Reminder{},
		&habit.Activity{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Reminder idempotency: unique per user + idempotency_key where not null.
	// Partial indexes are postgres-only; sqlite treats nulls as distinct, so a
	// plain unique index works there.
	if gdb.Dialector.Name() == "postgres" {
		if err := gdb.Exec(`
create unique index if not exists uq_reminders_user_idem
on reminders(user_id, idempotency_key)
where idempotency_key is not null;
`).Error; err != nil {
			return err
		}
	} else {
		if err := gdb.Exec(`create unique index if not exists uq_reminders_user_idem on reminders(user_id, idempotency_key);`).Error; err != nil {
			return err
		}
	}

	stmts := []string{
		`create index if not exists idx_reminders_user_time on reminders(user_id, reminder_time desc);`,
		`create index if not exists idx_activities_user_date on activities(user_id, activity_date desc);`,
		`create index if not exists idx_activities_reminder on activities(reminder_id);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		`create index if not exists idx_jobs_reminder on jobs(user_id, reminder_id, status);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
