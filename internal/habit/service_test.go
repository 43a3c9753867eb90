package habit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tonalli/internal/jobs"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(&Reminder{}, &Activity{}, &jobs.Job{}))
	return gdb
}

func TestCreateReminderEnqueuesDispatch(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	due := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "stretch", ReminderTime: due})
	require.NoError(t, err)
	require.NotZero(t, r.ID)
	require.False(t, r.Completed)
	require.Equal(t, "pending", r.LastReactionStatus)

	var job jobs.Job
	require.NoError(t, svc.DB.Where("reminder_id = ?", r.ID).First(&job).Error)
	require.Equal(t, jobs.TypeReminderDispatch, job.Type)
	require.Equal(t, jobs.StatusPending, job.Status)
	require.Equal(t, uint64(1), job.UserID)
	require.True(t, job.RunAt.Equal(due))
}

func TestCreateReminderIdempotencyKey(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	key := "req-abc"
	in := CreateReminderInput{Text: "water plants", ReminderTime: time.Now().Add(time.Hour), IdemKey: &key}

	first, err := svc.CreateReminder(ctx, 1, in)
	require.NoError(t, err)
	second, err := svc.CreateReminder(ctx, 1, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var jobCount int64
	require.NoError(t, svc.DB.Model(&jobs.Job{}).Where("reminder_id = ?", first.ID).Count(&jobCount).Error)
	require.EqualValues(t, 1, jobCount)
}

func TestUpdateReminderDerivesCompletionFromStatus(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "run", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	cases := []struct {
		status    string
		completed bool
	}{
		{"completed", true},
		{"snoozed", false},
		{"ignored", false},
		{"pending", false},
	}
	for _, tc := range cases {
		got, err := svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{LastReactionStatus: &tc.status})
		require.NoError(t, err, tc.status)
		require.Equal(t, tc.status, got.LastReactionStatus)
		require.Equal(t, tc.completed, got.Completed, tc.status)
	}

	bad := "done"
	_, err = svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{LastReactionStatus: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateReminderBareCompletedBackDerivesStatus(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "read", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	yes := true
	got, err := svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{Completed: &yes})
	require.NoError(t, err)
	require.True(t, got.Completed)
	require.Equal(t, "completed", got.LastReactionStatus)

	no := false
	got, err = svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{Completed: &no})
	require.NoError(t, err)
	require.False(t, got.Completed)
	require.Equal(t, "pending", got.LastReactionStatus)
}

func TestUpdateReminderRescheduleRequeuesDispatch(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "meds", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	moved := time.Now().Add(3 * time.Hour).UTC().Truncate(time.Second)
	_, err = svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{ReminderTime: &moved})
	require.NoError(t, err)

	var pending []jobs.Job
	require.NoError(t, svc.DB.
		Where("reminder_id = ? AND status = ?", r.ID, jobs.StatusPending).
		Find(&pending).Error)
	require.Len(t, pending, 1)
	require.True(t, pending[0].RunAt.Equal(moved))
}

func TestCompletingCancelsPendingDispatch(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "meds", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	status := "completed"
	_, err = svc.UpdateReminder(ctx, 1, r.ID, UpdateReminderInput{LastReactionStatus: &status})
	require.NoError(t, err)

	var count int64
	require.NoError(t, svc.DB.Model(&jobs.Job{}).
		Where("reminder_id = ? AND status = ?", r.ID, jobs.StatusPending).
		Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateReminderOwnership(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "mine", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	text := "hijack"
	_, err = svc.UpdateReminder(ctx, 2, r.ID, UpdateReminderInput{Text: &text})
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.DeleteReminder(ctx, 2, r.ID), ErrNotFound)
}

func TestDeleteReminderKeepsActivities(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "walk", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	a, err := svc.CreateActivity(ctx, 1, CreateActivityInput{
		ActivityType: "walk",
		ActivityDate: time.Now(),
		ReminderID:   &r.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteReminder(ctx, 1, r.ID))

	// dispatch job cancelled with the reminder
	var count int64
	require.NoError(t, svc.DB.Model(&jobs.Job{}).
		Where("reminder_id = ? AND status = ?", r.ID, jobs.StatusPending).
		Count(&count).Error)
	require.Zero(t, count)

	// back-reference survives, pointing at the gone reminder
	var kept Activity
	require.NoError(t, svc.DB.First(&kept, a.ID).Error)
	require.NotNil(t, kept.ReminderID)
	require.Equal(t, r.ID, *kept.ReminderID)
}

func TestSummaryCountsAndRecents(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	var ids []uint64
	for i := 0; i < 7; i++ {
		r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{
			Text:         "r",
			ReminderTime: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	status := "completed"
	for _, id := range ids[:3] {
		_, err := svc.UpdateReminder(ctx, 1, id, UpdateReminderInput{LastReactionStatus: &status})
		require.NoError(t, err)
	}
	for i := 0; i < 6; i++ {
		_, err := svc.CreateActivity(ctx, 1, CreateActivityInput{
			ActivityType: "a",
			ActivityDate: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	// another user's rows must not leak in
	_, err := svc.CreateReminder(ctx, 2, CreateReminderInput{Text: "other", ReminderTime: base})
	require.NoError(t, err)

	s, err := svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 7, s.TotalReminders)
	require.EqualValues(t, 3, s.CompletedReminders)
	require.EqualValues(t, 4, s.PendingReminders)
	require.EqualValues(t, 6, s.TotalActivities)

	require.Len(t, s.RecentReminders, 5)
	for i := 1; i < len(s.RecentReminders); i++ {
		require.False(t, s.RecentReminders[i].ReminderTime.After(s.RecentReminders[i-1].ReminderTime))
	}
	require.Len(t, s.RecentActivities, 5)
	for i := 1; i < len(s.RecentActivities); i++ {
		require.False(t, s.RecentActivities[i].ActivityDate.After(s.RecentActivities[i-1].ActivityDate))
	}

	// a second read with no writes in between is identical
	again, err := svc.Summary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, s.TotalReminders, again.TotalReminders)
	require.Equal(t, s.CompletedReminders, again.CompletedReminders)
	require.Equal(t, s.PendingReminders, again.PendingReminders)
	require.Equal(t, s.TotalActivities, again.TotalActivities)
}

func TestApplyChatReactionDone(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "stretch", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	updated, err := svc.ApplyChatReaction(ctx, r.ID, "done")
	require.NoError(t, err)
	require.True(t, updated.Completed)
	require.Equal(t, "completed", updated.LastReactionStatus)

	// the reaction is logged as a structured activity
	var acts []Activity
	require.NoError(t, svc.DB.Where("user_id = ?", 1).Find(&acts).Error)
	require.Len(t, acts, 1)
	require.Equal(t, "completed_reminder", acts[0].ActivityType)
	require.NotNil(t, acts[0].ReminderID)
	require.Equal(t, r.ID, *acts[0].ReminderID)
	require.Contains(t, string(acts[0].Metadata), "button_click")

	// completing drops the queued dispatch
	var count int64
	require.NoError(t, svc.DB.Model(&jobs.Job{}).
		Where("reminder_id = ? AND status = ?", r.ID, jobs.StatusPending).
		Count(&count).Error)
	require.Zero(t, count)
}

func TestApplyChatReactionSnooze(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "stretch", ReminderTime: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	before := time.Now()
	updated, err := svc.ApplyChatReaction(ctx, r.ID, "snooze")
	require.NoError(t, err)
	require.Equal(t, "snoozed", updated.LastReactionStatus)
	require.False(t, updated.Completed)
	require.True(t, updated.ReminderTime.After(before.Add(19*time.Minute)))
	require.True(t, updated.ReminderTime.Before(before.Add(21*time.Minute)))

	// dispatch requeued at the snoozed time
	var pending []jobs.Job
	require.NoError(t, svc.DB.
		Where("reminder_id = ? AND status = ?", r.ID, jobs.StatusPending).
		Find(&pending).Error)
	require.Len(t, pending, 1)
	require.True(t, pending[0].RunAt.Equal(updated.ReminderTime))
}

func TestApplyChatReactionIgnore(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "stretch", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	updated, err := svc.ApplyChatReaction(ctx, r.ID, "ignore")
	require.NoError(t, err)
	require.Equal(t, "ignored", updated.LastReactionStatus)
	require.False(t, updated.Completed)
}

func TestApplyChatReactionRejectsUnknown(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	r, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "stretch", ReminderTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = svc.ApplyChatReaction(ctx, r.ID, "later")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.ApplyChatReaction(ctx, 9999, "done")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingReminders(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	late, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "late", ReminderTime: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	early, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "early", ReminderTime: base.Add(time.Hour)})
	require.NoError(t, err)
	done, err := svc.CreateReminder(ctx, 1, CreateReminderInput{Text: "done", ReminderTime: base})
	require.NoError(t, err)
	_, err = svc.ApplyChatReaction(ctx, done.ID, "done")
	require.NoError(t, err)

	rows, err := svc.ListPendingReminders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, early.ID, rows[0].ID)
	require.Equal(t, late.ID, rows[1].ID)

	n, err := svc.CompletedActivityCount(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDeleteActivity(t *testing.T) {
	svc := &Service{DB: openTestDB(t)}
	ctx := context.Background()

	a, err := svc.CreateActivity(ctx, 1, CreateActivityInput{ActivityType: "a", ActivityDate: time.Now()})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteActivity(ctx, 2, a.ID), ErrNotFound)
	require.NoError(t, svc.DeleteActivity(ctx, 1, a.ID))
	require.ErrorIs(t, svc.DeleteActivity(ctx, 1, a.ID), ErrNotFound)
}
