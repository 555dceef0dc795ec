package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Hopium-Future/hackathon-be/middleware"
	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/services"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// TaskController exposes the task list and claim endpoints.
type TaskController struct {
	tasks *services.TaskService
}

// NewTaskController creates a new TaskController instance.
func NewTaskController(tasks *services.TaskService) *TaskController {
	return &TaskController{tasks: tasks}
}

// GetTasks returns the caller's task list, optionally filtered by group.
func (t *TaskController) GetTasks(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "not authenticated")
		return
	}

	group := models.Group(ctx.Query("group"))
	views, err := t.tasks.ListUserTasks(ctx.Request.Context(), userID, group)
	if err != nil {
		utils.Sugar.Errorf("list tasks user=%d: %v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load tasks")
		return
	}
	utils.Success(ctx, views)
}

// ClickTask records a click on a social task, unlocking its claim.
func (t *TaskController) ClickTask(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "not authenticated")
		return
	}
	taskID, err := parseTaskID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid task id")
		return
	}

	if err := t.tasks.MarkClickable(ctx.Request.Context(), userID, taskID); err != nil {
		utils.Sugar.Errorf("click task user=%d task=%d: %v", userID, taskID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to record click")
		return
	}
	utils.Success(ctx, gin.H{"success": true})
}

// ClaimTask runs the manual claim pipeline for one task.
func (t *TaskController) ClaimTask(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "not authenticated")
		return
	}
	taskID, err := parseTaskID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid task id")
		return
	}

	result, err := t.tasks.Claim(ctx.Request.Context(), userID, taskID)
	if err != nil {
		t.writeClaimError(ctx, userID, taskID, err)
		return
	}
	utils.Success(ctx, result)
}

// GetOtherTaskClaimed pays an order-keyed side task once per order.
func (t *TaskController) GetOtherTaskClaimed(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "not authenticated")
		return
	}
	code := services.OtherTaskCode(ctx.Param("code"))
	rawOrderID, err := strconv.ParseUint(ctx.Param("orderId"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid order id")
		return
	}
	orderID := uint(rawOrderID)

	result, err := t.tasks.ClaimOnce(ctx.Request.Context(), userID, code, orderID)
	if err != nil {
		t.writeClaimError(ctx, userID, 0, err)
		return
	}
	utils.Success(ctx, result)
}

// HardResetDailyReward reconciles stale streak counters. API-key guarded.
func (t *TaskController) HardResetDailyReward(ctx *gin.Context) {
	count, err := t.tasks.Streak().HardReset(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("hard reset daily reward: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to reset daily reward")
		return
	}
	utils.Success(ctx, gin.H{"reset_users": count})
}

func (t *TaskController) writeClaimError(ctx *gin.Context, userID, taskID uint, err error) {
	switch {
	case services.IsValidation(err):
		utils.Error(ctx, http.StatusBadRequest, 40031, err.Error())
	case errors.Is(err, services.ErrClaimInProgress):
		utils.Error(ctx, http.StatusBadRequest, 40033, services.ErrClaimInProgress.Error())
	default:
		utils.Sugar.Errorf("claim user=%d task=%d: %v", userID, taskID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to claim task")
	}
}

func parseTaskID(ctx *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("taskId"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
