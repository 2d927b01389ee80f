package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projecthub/internal/repository"
	"projecthub/internal/service"
	"projecthub/pkg/database"
	"projecthub/pkg/jwt"
)

func newSeedAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "创建管理员账号",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, closeDB, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			if err := database.RunMigrations(sqlDB, logger); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}

			svc := service.NewService(repository.NewRepository(db), jwt.NewManager(&cfg.Auth), service.Deps{}, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			admin, err := svc.Auth.SeedAdmin(ctx, name, email, password)
			if err != nil {
				return fmt.Errorf("创建管理员失败: %w", err)
			}
			logger.Info("管理员已创建", zap.String("user_id", admin.ID), zap.String("email", admin.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "管理员姓名")
	cmd.Flags().StringVar(&email, "email", "", "管理员邮箱")
	cmd.Flags().StringVar(&password, "password", "", "管理员密码（至少 8 位）")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
