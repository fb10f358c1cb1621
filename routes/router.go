package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/livewall/bus"
	"github.com/cppla/livewall/config"
	"github.com/cppla/livewall/controllers"
	"github.com/cppla/livewall/middleware"
	"github.com/cppla/livewall/objectstore"
	"github.com/cppla/livewall/storage"
	"github.com/cppla/livewall/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(posts storage.PostStore, b *bus.PostBus, objects objectstore.Store) *gin.Engine {
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
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
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

	// Stored objects are immutable addresses; serve with the same client
	// cache directive their uploads were stored with.
	objectsGroup := r.Group("/objects", func(ctx *gin.Context) {
		ctx.Header("Cache-Control", "max-age=3600")
	})
	objectsGroup.Static("/", cfg.ObjectsDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	feedController := controllers.NewFeedController(posts, b)
	mediaController := controllers.NewMediaController(objects)

	api := r.Group("/api/v1")

	postsGroup := api.Group("/posts")
	postsGroup.GET("", feedController.ListPosts)
	postsGroup.GET("/stream", feedController.StreamPosts)
	postsGroup.POST("", middleware.RateLimitMiddleware(), feedController.CreatePost)

	api.POST("/media", middleware.RateLimitMiddleware(), mediaController.Upload)

	return r
}
