package repository

import (
	"context"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDAndRole(ctx context.Context, id, role string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByEmailAndRole(ctx context.Context, email, role string) (*model.User, error)
	List(ctx context.Context, role string, offset, limit int) ([]model.User, int64, error)
	ListByRole(ctx context.Context, role string) ([]model.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
	ListByManager(ctx context.Context, managerID string) ([]model.User, error)
	ListByTask(ctx context.Context, taskID string) ([]model.User, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDAndRole(ctx context.Context, id, role string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", id, role).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// 邮箱比较不区分大小写，与 uk_users_email 索引一致
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmailAndRole(ctx context.Context, email, role string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND role = ?", email, role).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		db = db.Where("role = ?", role)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListByManager(ctx context.Context, managerID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND role = ?", managerID, model.RoleDeveloper).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListByTask(ctx context.Context, taskID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_tasks ut ON ut.user_id = users.user_id").
		Where("ut.task_id = ?", taskID).
		Order("users.name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&model.User{})
	return result.RowsAffected, result.Error
}
