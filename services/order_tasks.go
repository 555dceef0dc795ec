package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// OtherTaskCode names the order-keyed side tasks that live outside the
// task catalog.
type OtherTaskCode string

const OtherTaskSharePnl OtherTaskCode = "SHARE_PNL_X"

const sharePnlRewardQuantity = 300

// IsOrderClaimed reports whether the (user, code, order) triple already has
// an audit row.
func (s *TaskService) IsOrderClaimed(ctx context.Context, userID uint, code OtherTaskCode, orderID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserTaskOrderLog{}).
		Where("user_id = ? AND task_code = ? AND order_id = ?", userID, string(code), orderID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count order claims")
	}
	return count > 0, nil
}

// ClaimOnce pays the per-order reward at most once per (user, code, order).
// The order must belong to the caller. The audit row's unique index is the
// idempotency record: a duplicate insert after a racing claim surfaces as a
// validation error, not a second payout.
func (s *TaskService) ClaimOnce(ctx context.Context, userID uint, code OtherTaskCode, orderID uint) (*ClaimResult, error) {
	if code != OtherTaskSharePnl {
		return nil, validationErr("task not found")
	}

	claimed, err := s.IsOrderClaimed(ctx, userID, code, orderID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, validationErr("order already claimed")
	}

	var order models.FutureOrder
	err = s.db.WithContext(ctx).
		Where("displaying_id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationErr("order not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Create(&models.UserTaskOrderLog{
			UserID:   userID,
			TaskCode: string(code),
			OrderID:  orderID,
		}).Error
		if err != nil {
			if isDuplicateKey(err) {
				return validationErr("order already claimed")
			}
			return err
		}

		return s.wallet.ChangeBalance(ctx, ChangeBalanceRequest{
			UserID:      formatUserID(userID),
			AssetID:     AssetHOPIUM,
			Category:    WalletCategoryTask,
			ValueChange: sharePnlRewardQuantity,
			Note:        "[Task] Claim share X PNL task",
		})
	})
	if err != nil {
		if IsValidation(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "claim order task")
	}

	s.notifyOrderClaim(ctx, userID, orderID)

	return &ClaimResult{
		Success:        true,
		RewardAsset:    AssetHOPIUM,
		RewardQuantity: sharePnlRewardQuantity,
	}, nil
}

func (s *TaskService) notifyOrderClaim(ctx context.Context, userID uint, orderID uint) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		utils.Sugar.Errorf("load user %d after order claim: %v", userID, err)
		return
	}
	err := s.chatbot.SendNoticeTemplate(ctx, NoticeRequest{
		TelegramID:   user.TelegramID,
		TemplateName: NoticeTemplateSharePnlReward,
		Params: map[string]interface{}{
			"orderId": orderID,
			"amount":  fmt.Sprintf("%d", sharePnlRewardQuantity),
			"unit":    AssetHOPIUM,
		},
	})
	if err != nil {
		utils.Sugar.Errorf("send share pnl notice user=%d: %v", userID, err)
	}
}
