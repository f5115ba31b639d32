package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecolink-dev/ecolink/config"
	_ "github.com/ecolink-dev/ecolink/docs"
	"github.com/ecolink-dev/ecolink/internal/api"
	"github.com/ecolink-dev/ecolink/internal/api/handler"
	"github.com/ecolink-dev/ecolink/internal/api/middleware"
	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/connectivity"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/internal/repository"
	"github.com/ecolink-dev/ecolink/internal/service"
	"github.com/ecolink-dev/ecolink/internal/telemetry"
	"github.com/ecolink-dev/ecolink/internal/uploader"
	"github.com/ecolink-dev/ecolink/pkg/database"
	"github.com/ecolink-dev/ecolink/pkg/logger"
)

const actionCollection = "actions"

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())

	debug := cfg.Server.Mode != "release"
	if err := logger.Init(debug); err != nil {
		panic(err)
	}
	defer logger.Sync()
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	if err := telemetry.InitSentry(cfg.Telemetry); err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer telemetry.Flush()
	shutdownTracer := must(telemetry.InitTracer(ctx, cfg.Telemetry))
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 本地外发队列（独立 SQLite 文件，崩溃/重启后队列仍在）
	outboxDB := must(database.Open(cfg.Outbox.Path))
	store := repository.NewOutboxRepository(outboxDB)
	if err := store.Open(ctx); err != nil {
		panic(err)
	}

	// 文档库 + 用户/审计
	docDB := must(database.Open(cfg.Database.DSN))
	docs := must(repository.NewDocumentRepository(docDB))
	users := must(repository.NewUserRepository(docDB))
	audit := must(repository.NewAuditRepository(docDB))
	failed := repository.NewFailedRepository(outboxDB)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	revocations := auth.NewRevocationStore(rdb, cfg.JWT.TTL)

	prober := connectivity.NewProber(cfg.Outbox.ProbeAddr)
	up := uploader.NewCloudinary(cfg.Cloudinary)
	manager := outbox.NewManager(store, up, docs, prober,
		outbox.WithCollection(actionCollection),
		outbox.WithDropHook(func(item *model.OutboxItem, err error) {
			telemetry.CaptureError(err)
		}),
	)

	actions := service.NewActionService(manager, prober, docs, actionCollection)
	admin := service.NewAdminService(users, audit, revocations)

	watcher := service.NewDrainWatcher(manager, prober, cfg.Outbox.DrainInterval)
	stopWatcher := watcher.Start()

	h := handler.NewHandler(actions, admin, users, failed, cfg)
	r := api.NewRouter(h, middleware.Auth(cfg.JWT.Secret, revocations), cfg.Telemetry.ServiceName)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stopWatcher(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
