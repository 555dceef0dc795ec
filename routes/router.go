package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Hopium-Future/hackathon-be/config"
	"github.com/Hopium-Future/hackathon-be/controllers"
	"github.com/Hopium-Future/hackathon-be/middleware"
	"github.com/Hopium-Future/hackathon-be/services"
	"github.com/Hopium-Future/hackathon-be/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(tasks *services.TaskService) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.GinLogger())
	r.Use(utils.GinRecovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	taskController := controllers.NewTaskController(tasks)

	api := r.Group("/api")

	taskGroup := api.Group("/tasks")
	taskGroup.Use(middleware.AuthRequired())
	taskGroup.GET("", taskController.GetTasks)
	taskGroup.PUT("/click/:taskId", middleware.RateLimitMiddleware(), taskController.ClickTask)
	taskGroup.PUT("/claim/:taskId", middleware.RateLimitMiddleware(), taskController.ClaimTask)
	taskGroup.GET("/claim/other/:code/:orderId", middleware.RateLimitMiddleware(), taskController.GetOtherTaskClaimed)

	api.GET("/tasks/daily/hard-reset", middleware.APIKeyRequired(), taskController.HardResetDailyReward)

	return r
}
