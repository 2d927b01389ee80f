package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projecthub/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(func(run migrateFunc) error { return run(0) })
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚最近的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps 必须大于 0")
			}
			return withSQLDB(func(run migrateFunc) error { return run(steps) })
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚的迁移步数")

	cmd.AddCommand(up, down)
	return cmd
}

// migrateFunc steps 为 0 表示向上迁移，大于 0 表示回滚步数
type migrateFunc func(steps int) error

func withSQLDB(fn func(run migrateFunc) error) error {
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

	return fn(func(steps int) error {
		if steps == 0 {
			return database.RunMigrations(sqlDB, logger)
		}
		return database.RollbackMigrations(sqlDB, steps, logger)
	})
}
