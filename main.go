package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/calories/config"
	"github.com/cppla/calories/models"
	"github.com/cppla/calories/routes"
	"github.com/cppla/calories/services"
	"github.com/cppla/calories/store"
	"github.com/cppla/calories/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	var entries store.EntryStore
	var closeDB func() error
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn("using in-memory entry store; entries are lost on restart")
		entries = store.NewMemoryStore()
	} else {
		db, err := config.InitDatabase(cfg, &models.FoodEntry{})
		if err != nil {
			logger.Fatal("database init failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
		}
		entries = store.NewGormStore(db)
		if sqlDB, err := db.DB(); err == nil {
			closeDB = sqlDB.Close
		}
	}

	var replay utils.ReplayStore
	rc, err := utils.NewRedis(cfg)
	if err != nil {
		logger.Warn("redis ping failed, idempotent creates will retry it lazily", zap.Error(err))
	}
	if rc != nil {
		replay = utils.NewRedisReplayStore(rc, logger)
		defer func() { _ = rc.Close() }()
	} else {
		replay = utils.NewMemoryReplayStore()
	}

	var accessLog *zap.Logger
	if cfg.GinPath != "" {
		accessLog, err = utils.NewRollingFileLogger(cfg.GinPath, "info", cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			logger.Warn("gin access log disabled", zap.String("path", cfg.GinPath), zap.Error(err))
			accessLog = nil
		} else {
			defer func() { _ = accessLog.Sync() }()
		}
	}

	svc := services.NewFoodService(entries, logger)
	r := routes.SetupRouter(routes.Dependencies{
		Config:    cfg,
		Service:   svc,
		Replay:    replay,
		Logger:    logger,
		AccessLog: accessLog,
	})

	logger.Info("starting server (graceful)",
		zap.String("port", cfg.AppPort),
		zap.String("driver", cfg.DBDriver),
		zap.Duration("idempotency_ttl", time.Duration(cfg.IdempotencyTTLSeconds)*time.Second),
	)
	if err := utils.NewServer(":"+cfg.AppPort, r, logger).Run(context.Background()); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}

	if closeDB != nil {
		if err := closeDB(); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}
}
