package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projecthub/internal/api/handler"
	"projecthub/internal/api/router"
	"projecthub/internal/notify"
	"projecthub/internal/repository"
	"projecthub/internal/service"
	"projecthub/pkg/database"
	"projecthub/pkg/jwt"
	"projecthub/pkg/mailer"
	"projecthub/pkg/redis"
	"projecthub/pkg/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与通知投递",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// 1. 配置与日志
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2. 数据库与迁移
	db, closeDB, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 3. Redis（可选：连接失败时降级运行，黑名单、限流与项目锁不可用）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	}

	// 4. 基础组件
	jwtMgr := jwt.NewManager(&cfg.Auth)
	uploader, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return err
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	deps := service.Deps{Uploader: uploader}
	if rdb != nil {
		deps.Locker = rdb
		deps.Blacklist = rdb
	}
	svc := service.NewService(repo, jwtMgr, deps, logger)

	hub := notify.NewHub(cfg.Server.CORS.AllowOrigins, logger)
	defer hub.Close()

	dispatcher, err := notify.NewDispatcher(repo.Outbox, mailer.New(&cfg.Mail, logger), cfg, logger,
		notify.WithPublisher(hub),
		notify.WithReconciler(svc.Team),
	)
	if err != nil {
		return err
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("启动通知投递失败: %w", err)
	}
	defer dispatcher.Stop()

	h := handler.NewHandler(svc, hub, cfg.Server.UploadDir, logger)
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 6. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 不设置：websocket 连接由 Hub 自行维护写超时
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
	return nil
}
