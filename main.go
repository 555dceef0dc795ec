package main

import (
	"context"
	"time"

	"github.com/Hopium-Future/hackathon-be/config"
	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/routes"
	"github.com/Hopium-Future/hackathon-be/services"
	"github.com/Hopium-Future/hackathon-be/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Task{},
		&models.UserTask{},
		&models.UserTaskLog{},
		&models.UserTaskOrderLog{},
		&models.FutureOrder{},
		&models.DepositWithdraw{},
	)

	rdb := utils.GetRedis()
	store := utils.NewRedisTrackStore(rdb)
	locker := utils.NewRedisLocker(rdb)

	spinner := services.NewRewardSpinner(store, cfg.SpinInitThreshold)
	streak := services.NewStreakService(db, store)
	tasks := services.NewTaskService(
		db,
		locker,
		spinner,
		streak,
		services.NewHTTPWallet(cfg.WalletBaseURL),
		services.NewHTTPCommission(cfg.CommissionBaseURL),
		services.NewHTTPChatbot(cfg.ChatbotBaseURL),
		time.Duration(cfg.ClaimLockTTLSeconds)*time.Second,
	)
	tasks.EnableCatalogCache(5 * time.Minute)

	scheduler := services.NewScheduler()
	scheduler.Every(time.Minute, "deposit-sweep", func(ctx context.Context) error {
		return tasks.SweepDeposits(ctx, time.Now())
	})
	scheduler.DailyAt(0, 1, "streak-daily-reset", streak.ResetStaleUsers)
	defer scheduler.Stop()

	r := routes.SetupRouter(tasks)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
