package routes

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/calories/config"
	"github.com/cppla/calories/controllers"
	"github.com/cppla/calories/metrics"
	"github.com/cppla/calories/middleware"
	"github.com/cppla/calories/services"
	"github.com/cppla/calories/static"
	"github.com/cppla/calories/utils"
)

// Dependencies are the components SetupRouter wires together.
type Dependencies struct {
	Config  config.AppConfig
	Service *services.FoodService
	// Replay enables Idempotency-Key handling on create; nil disables it.
	Replay utils.ReplayStore
	Logger *zap.Logger
	// AccessLog receives one line per request; nil skips access logging.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	if deps.AccessLog != nil {
		r.Use(utils.Ginzap(deps.AccessLog, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(deps.AccessLog, true))
	} else {
		r.Use(utils.RecoveryWithZap(logger, true))
	}
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", controllers.IdempotencyKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, controllers.ReplayedHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	assets := static.FS()
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		logger.Error("embedded index.html missing", zap.Error(err))
	}
	serveIndex := func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	}
	r.StaticFS("/static", http.FS(assets))
	r.GET("/", serveIndex)

	healthController := controllers.NewHealthController(deps.Service)
	r.GET("/health", healthController.Health)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	foodController := controllers.NewFoodController(
		deps.Service,
		deps.Replay,
		time.Duration(cfg.IdempotencyTTLSeconds)*time.Second,
		logger,
	)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	api.POST("/food-entries", foodController.CreateFoodEntry)
	api.GET("/food-entries", foodController.GetFoodEntries)
	api.GET("/daily-calories", foodController.GetDailyCalories)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		// everything else falls back to the single-page client
		serveIndex(ctx)
	})

	return r
}
