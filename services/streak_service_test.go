package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Hopium-Future/hackathon-be/models"
)

func taskByCode(t *testing.T, tasks []models.Task, code string) models.Task {
	t.Helper()
	for _, task := range tasks {
		if task.Code == code {
			return task
		}
	}
	t.Fatalf("no seeded task with code %s", code)
	return models.Task{}
}

func TestCreditCheckInAdvancesOneStepPerDay(t *testing.T) {
	env := newTestEnv(t)
	tasks := seedStreakTasks(t, env.db)
	ctx := context.Background()

	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("credit check-in: %v", err)
	}

	cur, err := env.streak.CurrentStreak(ctx, 1)
	if err != nil {
		t.Fatalf("current streak: %v", err)
	}
	if cur != 1 {
		t.Fatalf("expected streak 1, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, "DS1").ID); got != models.StatusClaimable {
		t.Fatalf("expected DS1 CLAIMABLE, got %s", got)
	}

	// Second check-in on the same day must not advance the streak.
	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("repeat check-in: %v", err)
	}
	cur, _ = env.streak.CurrentStreak(ctx, 1)
	if cur != 1 {
		t.Fatalf("same-day check-in advanced streak to %d", cur)
	}
}

func TestCreditCheckInWrapsAfterSevenDays(t *testing.T) {
	env := newTestEnv(t)
	tasks := seedStreakTasks(t, env.db)
	ctx := context.Background()

	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.streak.now = func() time.Time { return day }

	for i := 1; i <= 7; i++ {
		if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
			t.Fatalf("check-in day %d: %v", i, err)
		}
		cur, _ := env.streak.CurrentStreak(ctx, 1)
		if cur != i {
			t.Fatalf("day %d: expected streak %d, got %d", i, i, cur)
		}
		day = day.AddDate(0, 0, 1)
	}

	// Day 8 wraps the cycle back to step one.
	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("check-in day 8: %v", err)
	}
	cur, _ := env.streak.CurrentStreak(ctx, 1)
	if cur != 1 {
		t.Fatalf("expected wrap to streak 1, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, "DS1").ID); got != models.StatusClaimable {
		t.Fatalf("expected DS1 CLAIMABLE after wrap, got %s", got)
	}
	for i := 2; i <= 7; i++ {
		code := fmt.Sprintf("DS%d", i)
		if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, code).ID); got != models.StatusLocked {
			t.Fatalf("expected %s LOCKED after wrap, got %s", code, got)
		}
	}
}

func TestResetStaleUsersActivatesAndResets(t *testing.T) {
	env := newTestEnv(t)
	tasks := seedStreakTasks(t, env.db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	env.streak.now = func() time.Time { return day }

	// User 1 checks in two days running; user 2 only on the first day.
	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("user 1 day 1: %v", err)
	}
	if err := env.streak.CreditCheckIn(ctx, 2); err != nil {
		t.Fatalf("user 2 day 1: %v", err)
	}
	day = day.AddDate(0, 0, 1)
	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("user 1 day 2: %v", err)
	}

	// Run the daily reset the following midnight.
	day = day.AddDate(0, 0, 1)
	if err := env.streak.ResetStaleUsers(ctx); err != nil {
		t.Fatalf("reset stale users: %v", err)
	}

	// User 1 was active yesterday: step three pre-activated.
	if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, "DS3").ID); got != models.StatusAvailable {
		t.Fatalf("expected DS3 AVAILABLE for active user, got %s", got)
	}

	// User 2 went stale: counter zeroed, back to step one.
	cur, err := env.streak.CurrentStreak(ctx, 2)
	if err != nil {
		t.Fatalf("current streak user 2: %v", err)
	}
	if cur != 0 {
		t.Fatalf("expected stale user counter 0, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 2, taskByCode(t, tasks, "DS1").ID); got != models.StatusAvailable {
		t.Fatalf("expected DS1 AVAILABLE for stale user, got %s", got)
	}
}

func TestHardResetDropsCountersWithoutRecentActivity(t *testing.T) {
	env := newTestEnv(t)
	tasks := seedStreakTasks(t, env.db)
	ctx := context.Background()

	day := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	env.streak.now = func() time.Time { return day }

	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("user 1 check-in: %v", err)
	}
	// User 9 holds a stray counter with no credited-set entry at all.
	if err := env.store.HSet(ctx, streakTrackKey, "9", "4"); err != nil {
		t.Fatalf("seed stray counter: %v", err)
	}
	if err := env.db.Create(&models.UserTask{
		UserID: 9,
		TaskID: taskByCode(t, tasks, "DS4").ID,
		Type:   models.TypeDailyStreak,
		Status: models.StatusClaimable,
	}).Error; err != nil {
		t.Fatalf("seed stray user task: %v", err)
	}

	count, err := env.streak.HardReset(ctx)
	if err != nil {
		t.Fatalf("hard reset: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reset user, got %d", count)
	}

	// The active user keeps the counter.
	cur, _ := env.streak.CurrentStreak(ctx, 1)
	if cur != 1 {
		t.Fatalf("active user counter changed to %d", cur)
	}
	// The stray user loses it and falls back to LOCKED.
	cur, _ = env.streak.CurrentStreak(ctx, 9)
	if cur != 0 {
		t.Fatalf("expected stray counter dropped, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 9, taskByCode(t, tasks, "DS4").ID); got != models.StatusLocked {
		t.Fatalf("expected stray DS4 LOCKED, got %s", got)
	}
}

func TestDailyResetThenHardResetConverge(t *testing.T) {
	env := newTestEnv(t)
	tasks := seedStreakTasks(t, env.db)
	ctx := context.Background()

	day := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	env.streak.now = func() time.Time { return day }

	// User 1 checked in four days ago and then went quiet: outside both the
	// daily reset's two-day lookback and the hard reset's three-day window.
	if err := env.streak.CreditCheckIn(ctx, 1); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	day = day.AddDate(0, 0, 4)

	if err := env.streak.ResetStaleUsers(ctx); err != nil {
		t.Fatalf("daily reset: %v", err)
	}
	if _, err := env.streak.HardReset(ctx); err != nil {
		t.Fatalf("hard reset: %v", err)
	}

	cur, _ := env.streak.CurrentStreak(ctx, 1)
	if cur != 0 {
		t.Fatalf("expected counter dropped, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, "DS1").ID); got != models.StatusAvailable {
		t.Fatalf("expected DS1 AVAILABLE, got %s", got)
	}

	// Running both again must not change anything further.
	if err := env.streak.ResetStaleUsers(ctx); err != nil {
		t.Fatalf("second daily reset: %v", err)
	}
	count, err := env.streak.HardReset(ctx)
	if err != nil {
		t.Fatalf("second hard reset: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idempotent hard reset, reset %d users", count)
	}
	if got := userTaskStatus(t, env.db, 1, taskByCode(t, tasks, "DS1").ID); got != models.StatusAvailable {
		t.Fatalf("state diverged after repeat resets: DS1 is %s", got)
	}
}

func TestActiveStreakStepWraps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.store.HSet(ctx, streakTrackKey, "1", "7"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	step, err := env.streak.ActiveStreakStep(ctx, 1)
	if err != nil {
		t.Fatalf("active step: %v", err)
	}
	if step != 1 {
		t.Fatalf("expected wrap to step 1, got %d", step)
	}

	step, err = env.streak.ActiveStreakStep(ctx, 2)
	if err != nil {
		t.Fatalf("active step for fresh user: %v", err)
	}
	if step != 1 {
		t.Fatalf("expected fresh user step 1, got %d", step)
	}
}
