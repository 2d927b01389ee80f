package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User     UserRepository
	Project  ProjectRepository
	Team     ProjectTeamRepository
	Module   ModuleRepository
	Status   StatusRepository
	Task     TaskRepository
	UserTask UserTaskRepository
	Outbox   NotificationEventRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:       db,
		User:     NewUserRepo(db),
		Project:  NewProjectRepo(db),
		Team:     NewProjectTeamRepo(db),
		Module:   NewModuleRepo(db),
		Status:   NewStatusRepo(db),
		Task:     NewTaskRepo(db),
		UserTask: NewUserTaskRepo(db),
		Outbox:   NewNotificationEventRepo(db),
	}
}

// BeginTx 开启事务；单元测试中 db 为 nil 时返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本
// tx 为 nil 时返回自身，便于 mock 场景复用
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("提交事务失败: %w", err)
		}
	}
	return nil
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
