package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ichacara/attendance/config"
	"github.com/ichacara/attendance/controllers"
	"github.com/ichacara/attendance/middleware"
	"github.com/ichacara/attendance/repository"
	"github.com/ichacara/attendance/services"
	"github.com/ichacara/attendance/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, objects *utils.ObjectStore, checkinSvc *services.CheckinService, broker *services.TokenBroker) *gin.Engine {
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
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
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

	userRepo := repository.NewUserRepo(db)
	checkinRepo := repository.NewCheckinRepo(db)
	userController := controllers.NewUserController(userRepo, objects)
	checkinController := controllers.NewCheckinController(checkinSvc, broker, userRepo, checkinRepo)

	api := r.Group("/api/v1")

	userGroup := api.Group("/user")
	userGroup.Use(middleware.RateLimitMiddleware())
	userGroup.POST("", userController.Register)
	userGroup.POST("/auth", userController.Login)
	userGroup.POST("/profile-picture", middleware.AuthRequired(), userController.UploadProfilePicture)
	userGroup.GET("", middleware.AuthRequired(), userController.ListUsers)
	userGroup.GET("/:id", middleware.AuthRequired(), userController.GetUser)
	userGroup.PUT("/:id", middleware.AuthRequired(), userController.UpdateUser)
	userGroup.DELETE("/:id", middleware.AuthRequired(), middleware.AdminRequired(), userController.DeleteUser)

	checkinGroup := api.Group("/checkin")
	checkinGroup.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	checkinGroup.POST("", checkinController.Create)
	checkinGroup.GET("", checkinController.ListMonth)
	checkinGroup.GET("/streak/:id", checkinController.Streak)
	checkinGroup.GET("/idle/:id", checkinController.IdleStreak)
	checkinGroup.POST("/qrcode", checkinController.QrCode)
	checkinGroup.POST("/confirm", checkinController.Confirm)
	checkinGroup.GET("/status", checkinController.Status)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
