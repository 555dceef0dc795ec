package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Hopium-Future/hackathon-be/models"
)

// ReachVolumeKind selects which volume accumulator a contribution feeds.
type ReachVolumeKind string

const (
	VolumeTrade   ReachVolumeKind = "TRADE"
	VolumeDeposit ReachVolumeKind = "DEPOSIT"
)

const volumeCASRetries = 3

func (k ReachVolumeKind) condition() (models.Condition, bool) {
	switch k {
	case VolumeTrade:
		return models.ConditionReachTradeVolume, true
	case VolumeDeposit:
		return models.ConditionReachDepositVolume, true
	default:
		return "", false
	}
}

// Accumulate adds volume toward the enabled one-time reach-volume task of
// the given kind, flipping the record to CLAIMABLE once cumulative progress
// crosses the configured threshold. Records already CLAIMABLE or COMPLETED
// are left untouched. Progress updates are compare-and-swap guarded so
// concurrent contributions cannot lose an increment.
func (s *TaskService) Accumulate(ctx context.Context, userID uint, volume float64, kind ReachVolumeKind) error {
	condition, ok := kind.condition()
	if !ok {
		return nil
	}

	var task models.Task
	err := s.db.WithContext(ctx).
		Where("type = ? AND `condition` = ? AND is_enable = ?", models.TypeOneTime, condition, true).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "find reach volume task")
	}

	for attempt := 0; attempt < volumeCASRetries; attempt++ {
		var userTask models.UserTask
		err = s.db.WithContext(ctx).
			Where("user_id = ? AND task_id = ?", userID, task.ID).
			First(&userTask).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status := models.StatusAvailable
			if volume >= task.Metadata.Total {
				status = models.StatusClaimable
			}
			err = s.db.WithContext(ctx).Create(&models.UserTask{
				UserID: userID,
				TaskID: task.ID,
				Type:   task.Type,
				Status: status,
				Metadata: models.TaskMetadata{
					Progress: volume,
					Total:    task.Metadata.Total,
				},
			}).Error
			if isDuplicateKey(err) {
				continue // lost the create race, retry as update
			}
			return errors.Wrap(err, "create user task")
		}
		if err != nil {
			return errors.Wrap(err, "load user task")
		}

		if userTask.Status == models.StatusClaimable || userTask.Status == models.StatusCompleted {
			return nil
		}

		progress := userTask.Metadata.Progress + volume
		status := models.StatusAvailable
		if progress >= task.Metadata.Total {
			status = models.StatusClaimable
		}

		// CAS on updated_at: a concurrent accumulation bumps the timestamp
		// and fails this update, forcing a re-read.
		res := s.db.WithContext(ctx).Model(&models.UserTask{}).
			Where("id = ? AND updated_at = ?", userTask.ID, userTask.UpdatedAt).
			Updates(map[string]interface{}{
				"type":   task.Type,
				"status": status,
				"metadata": models.TaskMetadata{
					Progress: progress,
					Total:    task.Metadata.Total,
				},
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update progress")
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}
	return errors.Errorf("accumulate volume user=%d task=%d: too many conflicts", userID, task.ID)
}

// ReconcileParentMission recomputes the complete-child-missions parent for
// a user: CLAIMABLE once every configured child task is CLAIMABLE or
// COMPLETED, AVAILABLE otherwise, with progress counting qualified
// children. A parent already CLAIMABLE or COMPLETED is never demoted.
func (s *TaskService) ReconcileParentMission(ctx context.Context, userID uint) error {
	var parent models.Task
	err := s.db.WithContext(ctx).
		Where("`condition` = ? AND is_enable = ?", models.ConditionCompleteChildMission, true).
		First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "find parent mission")
	}

	var existing models.UserTask
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, parent.ID).
		First(&existing).Error
	if err == nil && (existing.Status == models.StatusClaimable || existing.Status == models.StatusCompleted) {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, "load parent user task")
	}

	var children []models.Task
	err = s.db.WithContext(ctx).
		Where("`condition` IN ? AND is_enable = ?",
			[]models.Condition{models.ConditionReachDepositVolume, models.ConditionReachTradeVolume}, true).
		Find(&children).Error
	if err != nil {
		return errors.Wrap(err, "find child missions")
	}

	childIDs := make([]uint, 0, len(children))
	for _, child := range children {
		childIDs = append(childIDs, child.ID)
	}

	var qualified int64
	if len(childIDs) > 0 {
		err = s.db.WithContext(ctx).Model(&models.UserTask{}).
			Where("user_id = ? AND task_id IN ? AND status IN ?", userID, childIDs,
				[]models.Status{models.StatusClaimable, models.StatusCompleted}).
			Count(&qualified).Error
		if err != nil {
			return errors.Wrap(err, "count qualified children")
		}
	}

	status := models.StatusAvailable
	if len(children) > 0 && qualified == int64(len(children)) {
		status = models.StatusClaimable
	}
	metadata := models.TaskMetadata{
		Progress: float64(qualified),
		Total:    float64(len(children)),
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || existing.ID == 0 {
		return s.db.WithContext(ctx).Create(&models.UserTask{
			UserID:   userID,
			TaskID:   parent.ID,
			Type:     parent.Type,
			Status:   status,
			Metadata: metadata,
		}).Error
	}
	return s.db.WithContext(ctx).Model(&models.UserTask{}).
		Where("user_id = ? AND task_id = ?", userID, parent.ID).
		Updates(map[string]interface{}{
			"type":     parent.Type,
			"status":   status,
			"metadata": metadata,
		}).Error
}

// isDuplicateKey detects unique-index violations across drivers without
// importing driver specific error types.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
