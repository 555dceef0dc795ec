package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Hopium-Future/hackathon-be/config"
	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/utils"
)

func init() {
	config.SetForTest(config.AppConfig{
		JWTSecret:           "test-secret",
		ClaimLockTTLSeconds: 300,
		SpinInitThreshold:   5000,
		RateLimitPerMinute:  60,
	})
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.UserTask{},
		&models.UserTaskLog{},
		&models.UserTaskOrderLog{},
		&models.FutureOrder{},
		&models.DepositWithdraw{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeWallet struct {
	mu    sync.Mutex
	calls []ChangeBalanceRequest
	err   error
}

func (w *fakeWallet) ChangeBalance(_ context.Context, req ChangeBalanceRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.calls = append(w.calls, req)
	return nil
}

func (w *fakeWallet) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

type fakeCommission struct {
	mu    sync.Mutex
	calls []PushCommissionRequest
}

func (c *fakeCommission) PushCommission(_ context.Context, req PushCommissionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return nil
}

type fakeChatbot struct {
	mu    sync.Mutex
	calls []NoticeRequest
}

func (c *fakeChatbot) SendNoticeTemplate(_ context.Context, req NoticeRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return nil
}

type testEnv struct {
	db      *gorm.DB
	store   *utils.MemoryTrackStore
	tasks   *TaskService
	streak  *StreakService
	spinner *RewardSpinner
	wallet  *fakeWallet
	chatbot *fakeChatbot
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := utils.NewMemoryTrackStore()
	spinner := NewRewardSpinner(store, 5000)
	streak := NewStreakService(db, store)
	wallet := &fakeWallet{}
	chatbot := &fakeChatbot{}

	tasks := NewTaskService(
		db,
		utils.NewMemoryLocker(),
		spinner,
		streak,
		wallet,
		&fakeCommission{},
		chatbot,
		time.Minute,
	)

	return &testEnv{
		db:      db,
		store:   store,
		tasks:   tasks,
		streak:  streak,
		spinner: spinner,
		wallet:  wallet,
		chatbot: chatbot,
	}
}

func seedUser(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	err := db.Create(&models.User{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		TelegramID:   int64(1000 + id),
		ReferralCode: fmt.Sprintf("REF%d", id),
	}).Error
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func seedTask(t *testing.T, db *gorm.DB, task models.Task) models.Task {
	t.Helper()
	if task.Type == "" {
		task.Type = models.TypeOneTime
	}
	if task.RewardAsset == "" {
		task.RewardAsset = AssetHOPIUM
	}
	task.IsEnable = true
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task %s: %v", task.Code, err)
	}
	return task
}

func seedStreakTasks(t *testing.T, db *gorm.DB) []models.Task {
	t.Helper()
	out := make([]models.Task, 0, 7)
	for i := 1; i <= 7; i++ {
		out = append(out, seedTask(t, db, models.Task{
			Code:           fmt.Sprintf("DS%d", i),
			Title:          fmt.Sprintf("Day %d check-in", i),
			Condition:      models.ConditionDailyCheckIn,
			Type:           models.TypeDailyStreak,
			Group:          models.GroupDaily,
			RewardQuantity: float64(i * 100),
		}))
	}
	return out
}

func userTaskStatus(t *testing.T, db *gorm.DB, userID, taskID uint) models.Status {
	t.Helper()
	var ut models.UserTask
	err := db.Where("user_id = ? AND task_id = ?", userID, taskID).First(&ut).Error
	if err != nil {
		t.Fatalf("failed to load user task %d/%d: %v", userID, taskID, err)
	}
	return ut.Status
}
