package services

import (
	"context"
	"testing"
	"time"

	"github.com/Hopium-Future/hackathon-be/models"
)

func TestHandleOrderCreatedFansOut(t *testing.T) {
	env := newTestEnv(t)
	streakTasks := seedStreakTasks(t, env.db)
	trade, _, _ := seedVolumeTasks(t, env)
	daily := seedTask(t, env.db, models.Task{
		Code:      "DT1",
		Title:     "Daily trading",
		Condition: models.ConditionDailyTrading,
		Group:     models.GroupDaily,
	})
	ctx := context.Background()

	err := env.tasks.HandleOrderCreated(ctx, OrderCreatedPayload{
		UserID:       1,
		DisplayingID: 42,
		OrderValue:   60,
	})
	if err != nil {
		t.Fatalf("handle order: %v", err)
	}

	// Streak credited, daily trading claimable, trade volume accumulated.
	cur, _ := env.streak.CurrentStreak(ctx, 1)
	if cur != 1 {
		t.Fatalf("expected streak 1, got %d", cur)
	}
	if got := userTaskStatus(t, env.db, 1, streakTasks[0].ID); got != models.StatusClaimable {
		t.Fatalf("expected DS1 CLAIMABLE, got %s", got)
	}
	if got := userTaskStatus(t, env.db, 1, daily.ID); got != models.StatusClaimable {
		t.Fatalf("expected daily trading CLAIMABLE, got %s", got)
	}
	var ut models.UserTask
	if err := env.db.Where("user_id = ? AND task_id = ?", 1, trade.ID).First(&ut).Error; err != nil {
		t.Fatalf("load trade volume record: %v", err)
	}
	if ut.Metadata.Progress != 60 {
		t.Fatalf("expected trade progress 60, got %v", ut.Metadata.Progress)
	}
}

func TestHandleOrderCreatedSkipsVolumeForDCAAndPartner(t *testing.T) {
	env := newTestEnv(t)
	seedStreakTasks(t, env.db)
	trade, _, _ := seedVolumeTasks(t, env)
	ctx := context.Background()

	err := env.tasks.HandleOrderCreated(ctx, OrderCreatedPayload{
		UserID: 1, OrderValue: 500, IsDCA: true,
	})
	if err != nil {
		t.Fatalf("handle DCA order: %v", err)
	}
	err = env.tasks.HandleOrderCreated(ctx, OrderCreatedPayload{
		UserID: 1, OrderValue: 500, PartnerType: 3,
	})
	if err != nil {
		t.Fatalf("handle partner order: %v", err)
	}

	var count int64
	env.db.Model(&models.UserTask{}).Where("user_id = ? AND task_id = ?", 1, trade.ID).Count(&count)
	if count != 0 {
		t.Fatal("excluded orders must not accumulate trade volume")
	}

	// The streak still advances on excluded orders.
	cur, _ := env.streak.CurrentStreak(ctx, 1)
	if cur != 1 {
		t.Fatalf("expected streak 1 on excluded order, got %d", cur)
	}
}

func TestSweepDepositsPreviousMinuteWindow(t *testing.T) {
	env := newTestEnv(t)
	_, deposit, _ := seedVolumeTasks(t, env)
	ctx := context.Background()

	now := time.Date(2026, 4, 1, 10, 30, 5, 0, time.UTC)
	inWindow := now.Truncate(time.Minute).Add(-30 * time.Second)
	outOfWindow := now.Truncate(time.Minute).Add(-90 * time.Second)

	rows := []models.DepositWithdraw{
		{UserID: 1, Type: models.DWTypeDeposit, Status: models.DWStatusCompleted, USDValue: 30, CreatedAt: inWindow},
		{UserID: 1, Type: models.DWTypeDeposit, Status: models.DWStatusPending, USDValue: 99, CreatedAt: inWindow},
		{UserID: 1, Type: models.DWTypeWithdraw, Status: models.DWStatusCompleted, USDValue: 99, CreatedAt: inWindow},
		{UserID: 1, Type: models.DWTypeDeposit, Status: models.DWStatusCompleted, USDValue: 99, CreatedAt: outOfWindow},
	}
	for i := range rows {
		if err := env.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed deposit row: %v", err)
		}
	}

	if err := env.tasks.SweepDeposits(ctx, now); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var ut models.UserTask
	if err := env.db.Where("user_id = ? AND task_id = ?", 1, deposit.ID).First(&ut).Error; err != nil {
		t.Fatalf("load deposit volume record: %v", err)
	}
	// Only the completed deposit inside the window counts.
	if ut.Metadata.Progress != 30 {
		t.Fatalf("expected deposit progress 30, got %v", ut.Metadata.Progress)
	}
}
