package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// conditionTraits drives the per-condition behavior of the state machine:
// whether a click transitions the task to CLAIMABLE and whether the task
// may be claimed through the manual claim endpoint.
type conditionTraits struct {
	clickable   bool
	manualClaim bool
}

var conditionTable = map[models.Condition]conditionTraits{
	models.ConditionAffiliateClick:           {clickable: true, manualClaim: true},
	models.ConditionSubscribeTwitter:         {clickable: true, manualClaim: true},
	models.ConditionJoinTelegramGroup:        {clickable: true, manualClaim: true},
	models.ConditionSubscribeTelegramChannel: {clickable: true, manualClaim: true},
	models.ConditionDailyTrading:             {manualClaim: true},
	models.ConditionDailyCheckIn:             {manualClaim: true},
	models.ConditionReachDepositVolume:       {manualClaim: true},
	models.ConditionReachTradeVolume:         {manualClaim: true},
	models.ConditionCompleteChildMission:     {manualClaim: true},
}

const catalogCacheKey = "task:catalog"

// TaskView is one row of the user task list.
type TaskView struct {
	ID             uint                 `json:"id"`
	Title          string               `json:"title"`
	ButtonText     string               `json:"button_text"`
	Icon           string               `json:"icon"`
	Link           string               `json:"link"`
	RewardQuantity float64              `json:"reward_quantity"`
	Status         models.Status        `json:"status"`
	Active         bool                 `json:"active"`
	Condition      models.Condition     `json:"condition"`
	Metadata       *models.TaskMetadata `json:"metadata,omitempty"`
}

// ClaimResult reports a successful claim.
type ClaimResult struct {
	Success        bool    `json:"success"`
	RewardAsset    string  `json:"reward_asset"`
	RewardQuantity float64 `json:"reward_quantity"`
}

// TaskService owns the per-user task state machine and the claim pipeline.
type TaskService struct {
	db         *gorm.DB
	locker     utils.Locker
	spinner    *RewardSpinner
	streak     *StreakService
	wallet     WalletService
	commission CommissionService
	chatbot    ChatbotService

	lockTTL time.Duration
	// Zero disables redis catalog caching (tests run without Redis).
	catalogCacheTTL time.Duration
}

// NewTaskService wires the pipeline.
func NewTaskService(
	db *gorm.DB,
	locker utils.Locker,
	spinner *RewardSpinner,
	streak *StreakService,
	wallet WalletService,
	commission CommissionService,
	chatbot ChatbotService,
	lockTTL time.Duration,
) *TaskService {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &TaskService{
		db:         db,
		locker:     locker,
		spinner:    spinner,
		streak:     streak,
		wallet:     wallet,
		commission: commission,
		chatbot:    chatbot,
		lockTTL:    lockTTL,
	}
}

// EnableCatalogCache turns on the redis-backed catalog cache.
func (s *TaskService) EnableCatalogCache(ttl time.Duration) {
	s.catalogCacheTTL = ttl
}

// Streak exposes the streak tracker to schedulers and controllers.
func (s *TaskService) Streak() *StreakService {
	return s.streak
}

// listEnabledTasks loads the enabled task catalog ordered by id. The
// catalog is read-mostly, so it is served from cache when enabled.
func (s *TaskService) listEnabledTasks(ctx context.Context) ([]models.Task, error) {
	if s.catalogCacheTTL > 0 {
		var cached []models.Task
		if utils.CacheGetJSON(catalogCacheKey, &cached) {
			return cached, nil
		}
	}

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("is_enable = ?", true).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "load task catalog")
	}

	if s.catalogCacheTTL > 0 {
		utils.CacheSetJSON(catalogCacheKey, tasks, s.catalogCacheTTL)
	}
	return tasks, nil
}

func (s *TaskService) findTaskByID(ctx context.Context, taskID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).First(&task, taskID).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ComputeStatus is the state machine's read side. Non-streak tasks mirror
// the stored status, defaulting to AVAILABLE when no record exists. For the
// daily streak only the first step starts AVAILABLE; the rest stay LOCKED
// until the streak tracker unlocks them.
func ComputeStatus(task *models.Task, userTask *models.UserTask) models.Status {
	if task.Type != models.TypeDailyStreak {
		if userTask == nil {
			return models.StatusAvailable
		}
		return userTask.Status
	}

	if userTask == nil {
		if task.Code == firstStreakCode {
			return models.StatusAvailable
		}
		return models.StatusLocked
	}
	return userTask.Status
}

// ListUserTasks returns the task list for a user, optionally filtered by
// group, with per-task computed status and the active streak step flagged.
func (s *TaskService) ListUserTasks(ctx context.Context, userID uint, group models.Group) ([]TaskView, error) {
	tasks, err := s.listEnabledTasks(ctx)
	if err != nil {
		return nil, err
	}

	var userTasks []models.UserTask
	err = s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&userTasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "load user tasks")
	}
	byTask := make(map[uint]*models.UserTask, len(userTasks))
	for i := range userTasks {
		byTask[userTasks[i].TaskID] = &userTasks[i]
	}

	activeStep, err := s.streak.ActiveStreakStep(ctx, userID)
	if err != nil {
		return nil, err
	}
	activeCode := fmt.Sprintf("DS%d", activeStep)

	result := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if group != "" && task.Group != group {
			continue
		}

		userTask := byTask[task.ID]
		view := TaskView{
			ID:             task.ID,
			Title:          utils.Sanitize(task.Title),
			ButtonText:     utils.Sanitize(task.ButtonText),
			Icon:           task.Icon,
			Link:           task.Link,
			RewardQuantity: task.RewardQuantity,
			Status:         ComputeStatus(task, userTask),
			Active:         task.Code == activeCode,
			Condition:      task.Condition,
		}
		if task.Group == models.GroupTrade2Airdrop {
			meta := models.TaskMetadata{Total: task.Metadata.Total}
			if userTask != nil {
				meta.Progress = userTask.Metadata.Progress
			}
			view.Metadata = &meta
		}
		result = append(result, view)
	}
	return result, nil
}

// MarkClickable transitions AVAILABLE to CLAIMABLE for click-kind
// conditions, creating the record as CLAIMABLE when absent. Unknown,
// disabled, or non-click tasks are a deliberate idempotent no-op.
func (s *TaskService) MarkClickable(ctx context.Context, userID, taskID uint) error {
	task, err := s.findTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errors.Wrap(err, "load task")
	}

	if !task.IsEnable || !conditionTable[task.Condition].clickable {
		return nil
	}

	var userTask models.UserTask
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		First(&userTask).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&models.UserTask{
			UserID: userID,
			TaskID: taskID,
			Type:   task.Type,
			Status: models.StatusClaimable,
		}).Error
	}
	if err != nil {
		return errors.Wrap(err, "load user task")
	}

	if userTask.Status == models.StatusAvailable {
		return s.db.WithContext(ctx).Model(&models.UserTask{}).
			Where("user_id = ? AND task_id = ?", userID, taskID).
			Update("status", models.StatusClaimable).Error
	}
	return nil
}

// MarkClaimableFromEvent upserts a CLAIMABLE record from a volume, streak
// or mission trigger. Disabled tasks are inert.
func (s *TaskService) MarkClaimableFromEvent(ctx context.Context, userID uint, task *models.Task) error {
	if task == nil || !task.IsEnable {
		return nil
	}
	return upsertUserTaskStatus(s.db.WithContext(ctx), userID, task, models.StatusClaimable)
}

// upsertUserTaskStatus creates the (user, task) record with the given
// status, or updates the status of the existing record.
func upsertUserTaskStatus(db *gorm.DB, userID uint, task *models.Task, status models.Status) error {
	var existing models.UserTask
	err := db.Where("user_id = ? AND task_id = ?", userID, task.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.UserTask{
			UserID: userID,
			TaskID: task.ID,
			Type:   task.Type,
			Status: status,
		}).Error
	}
	if err != nil {
		return errors.Wrap(err, "load user task")
	}
	return db.Model(&models.UserTask{}).
		Where("user_id = ? AND task_id = ?", userID, task.ID).
		Updates(map[string]interface{}{"type": task.Type, "status": status}).Error
}

// Claim runs the manual claim pipeline for one (user, task) pair under an
// exclusive lease so concurrent claims cannot double-reward.
func (s *TaskService) Claim(ctx context.Context, userID, taskID uint) (*ClaimResult, error) {
	lockKey := fmt.Sprintf("task:%d:%d:lock", taskID, userID)
	token, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, utils.ErrLockHeld) {
			return nil, ErrClaimInProgress
		}
		return nil, errors.Wrap(err, "acquire claim lock")
	}
	defer func() {
		if rerr := s.locker.Release(ctx, lockKey, token); rerr != nil {
			utils.Sugar.Warnf("release claim lock %s: %v", lockKey, rerr)
		}
	}()

	task, err := s.findTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErr("task not found")
		}
		return nil, errors.Wrap(err, "load task")
	}
	if !task.IsEnable {
		return nil, validationErr("task not found")
	}
	if !conditionTable[task.Condition].manualClaim {
		return nil, validationErr("task cannot manual claim")
	}

	return s.processClaim(ctx, userID, task)
}

// processClaim transitions CLAIMABLE to COMPLETED, computes the reward and
// credits it. The status transition, the audit log and the ledger credit
// commit together: a ledger failure rolls the claim back so the user can
// retry. Commission and notification are best-effort afterwards.
func (s *TaskService) processClaim(ctx context.Context, userID uint, task *models.Task) (*ClaimResult, error) {
	var existing models.UserTask
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, task.ID).
		First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load user task")
	}
	if found && existing.Status != models.StatusClaimable {
		return nil, validationErr("task cannot claimed yet")
	}

	rewardAsset := task.RewardAsset
	rewardQuantity := task.RewardQuantity
	if task.Condition == models.ConditionCompleteChildMission {
		// The tier counter commits on the spin itself; a failed downstream
		// credit does not return the tier slot.
		result, err := s.spinner.Spin(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "spin reward")
		}
		rewardAsset = result.RewardAsset
		rewardQuantity = result.RewardQuantity
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if found {
			err := tx.Model(&models.UserTask{}).
				Where("user_id = ? AND task_id = ?", userID, task.ID).
				Updates(map[string]interface{}{
					"type":         task.Type,
					"status":       models.StatusCompleted,
					"claimed_at":   now,
					"completed_at": now,
				}).Error
			if err != nil {
				return err
			}
		} else {
			err := tx.Create(&models.UserTask{
				UserID:      userID,
				TaskID:      task.ID,
				Type:        task.Type,
				Status:      models.StatusCompleted,
				ClaimedAt:   &now,
				CompletedAt: &now,
			}).Error
			if err != nil {
				return err
			}
		}

		err := tx.Create(&models.UserTaskLog{
			UserID:         userID,
			TaskID:         task.ID,
			Action:         "CLAIM",
			RewardAsset:    rewardAsset,
			RewardQuantity: rewardQuantity,
		}).Error
		if err != nil {
			return err
		}

		return s.wallet.ChangeBalance(ctx, ChangeBalanceRequest{
			UserID:      formatUserID(userID),
			AssetID:     rewardAsset,
			Category:    WalletCategoryTask,
			ValueChange: rewardQuantity,
			Note:        fmt.Sprintf("[Task] Claim task #%d", task.ID),
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "claim task")
	}

	s.afterClaim(ctx, userID, task, rewardAsset, rewardQuantity)

	return &ClaimResult{
		Success:        true,
		RewardAsset:    rewardAsset,
		RewardQuantity: rewardQuantity,
	}, nil
}

// afterClaim pushes commission bookkeeping and the reward notice. Both are
// best-effort: failures are logged and never unwind the completed claim.
func (s *TaskService) afterClaim(ctx context.Context, userID uint, task *models.Task, rewardAsset string, rewardQuantity float64) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		utils.Sugar.Errorf("load user %d after claim: %v", userID, err)
		return
	}

	err := s.commission.PushCommission(ctx, PushCommissionRequest{
		Amount:       rewardQuantity,
		FromUserID:   user.ID,
		ToUserID:     user.ID,
		ReferralCode: user.ReferralCode,
		Type:         "MISSION",
		AssetID:      rewardAsset,
	})
	if err != nil {
		utils.Sugar.Errorf("push commission user=%d: %v", userID, err)
	}

	template := NoticeTemplateTaskReward
	if task.Type == models.TypeDailyStreak {
		template = NoticeTemplateStreakReward
	}
	err = s.chatbot.SendNoticeTemplate(ctx, NoticeRequest{
		TelegramID:   user.TelegramID,
		TemplateName: template,
		Params: map[string]interface{}{
			"amount": rewardQuantity,
			"unit":   rewardAsset,
		},
	})
	if err != nil {
		utils.Sugar.Errorf("send task reward notice user=%d: %v", userID, err)
	}
}
