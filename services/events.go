package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// OrderCreatedPayload is the filled-order event consumed by the engine.
type OrderCreatedPayload struct {
	UserID       uint    `json:"userId"`
	DisplayingID uint    `json:"displayingId"`
	OrderValue   float64 `json:"orderValue"`
	PartnerType  int     `json:"partnerType"`
	IsDCA        bool    `json:"isDca"`
}

// HandleOrderCreated fans one filled order out to the daily tasks: the
// check-in streak and the daily trading task always advance; trade volume
// only counts when the order is a plain self-placed one (DCA legs and
// partner-routed orders are excluded from volume accumulation).
func (s *TaskService) HandleOrderCreated(ctx context.Context, payload OrderCreatedPayload) error {
	if err := s.streak.CreditCheckIn(ctx, payload.UserID); err != nil {
		utils.Sugar.Errorf("credit check-in user=%d: %v", payload.UserID, err)
	}

	if err := s.markDailyTrading(ctx, payload.UserID); err != nil {
		utils.Sugar.Errorf("mark daily trading user=%d: %v", payload.UserID, err)
	}

	if payload.IsDCA || payload.PartnerType != models.PartnerTypeNone {
		return nil
	}

	if err := s.Accumulate(ctx, payload.UserID, payload.OrderValue, VolumeTrade); err != nil {
		return err
	}
	return s.ReconcileParentMission(ctx, payload.UserID)
}

// markDailyTrading flips the daily trading task CLAIMABLE on the user's
// first qualifying order.
func (s *TaskService) markDailyTrading(ctx context.Context, userID uint) error {
	var task models.Task
	err := s.db.WithContext(ctx).
		Where("`condition` = ? AND is_enable = ?", models.ConditionDailyTrading, true).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "find daily trading task")
	}
	return s.MarkClaimableFromEvent(ctx, userID, &task)
}

// SweepDeposits scans the previous whole minute of completed deposits and
// feeds each into the deposit volume accumulator. Per-deposit failures are
// logged and skipped so one bad row cannot stall the sweep.
func (s *TaskService) SweepDeposits(ctx context.Context, now time.Time) error {
	windowEnd := now.UTC().Truncate(time.Minute)
	windowStart := windowEnd.Add(-time.Minute)

	var deposits []models.DepositWithdraw
	err := s.db.WithContext(ctx).
		Where("type = ? AND status = ? AND created_at >= ? AND created_at < ?",
			models.DWTypeDeposit, models.DWStatusCompleted, windowStart, windowEnd).
		Find(&deposits).Error
	if err != nil {
		return errors.Wrap(err, "load completed deposits")
	}

	for _, dep := range deposits {
		if err := s.Accumulate(ctx, dep.UserID, dep.USDValue, VolumeDeposit); err != nil {
			utils.Sugar.Errorf("accumulate deposit user=%d: %v", dep.UserID, err)
			continue
		}
		if err := s.ReconcileParentMission(ctx, dep.UserID); err != nil {
			utils.Sugar.Errorf("reconcile parent mission user=%d: %v", dep.UserID, err)
		}
	}
	return nil
}
