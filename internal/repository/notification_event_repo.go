package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"projecthub/internal/model"
)

// NotificationEventRepository 通知发件箱数据访问接口
type NotificationEventRepository interface {
	Create(ctx context.Context, events ...*model.NotificationEvent) error
	// Claim 领取一批待投递事件并标记为 sending，attempts 加一
	// 超过 staleAfter 仍处于 sending 的事件视为投递进程崩溃，可被重新领取；
	// 其中已用尽尝试次数的直接标记为 failed
	Claim(ctx context.Context, limit, maxAttempts int, staleAfter time.Duration) ([]model.NotificationEvent, error)
	MarkSent(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, lastError string, final bool) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]model.NotificationEvent, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]model.NotificationEvent, int64, error)
}

type notificationEventRepo struct {
	db *gorm.DB
}

// NewNotificationEventRepo 创建 NotificationEventRepository 实例
func NewNotificationEventRepo(db *gorm.DB) NotificationEventRepository {
	return &notificationEventRepo{db: db}
}

func (r *notificationEventRepo) Create(ctx context.Context, events ...*model.NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(events).Error
}

func (r *notificationEventRepo) Claim(ctx context.Context, limit, maxAttempts int, staleAfter time.Duration) ([]model.NotificationEvent, error) {
	var events []model.NotificationEvent
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 最后一次投递中途崩溃的事件已无重试机会，直接终结为 failed
		if err := tx.Model(&model.NotificationEvent{}).
			Where("status = ? AND updated_at < ? AND attempts >= ?",
				model.EventStatusSending, now.Add(-staleAfter), maxAttempts).
			Updates(map[string]interface{}{
				"status":     model.EventStatusFailed,
				"last_error": "投递中断且已达最大尝试次数",
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		// SKIP LOCKED 允许多实例并行领取互不重叠的批次
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("attempts < ?", maxAttempts).
			Where("status = ? OR (status = ? AND updated_at < ?)",
				model.EventStatusPending, model.EventStatusSending, now.Add(-staleAfter)).
			Order("created_at ASC").
			Limit(limit).
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]string, len(events))
		for i := range events {
			ids[i] = events[i].EventID
			events[i].Status = model.EventStatusSending
			events[i].Attempts++
		}

		return tx.Model(&model.NotificationEvent{}).
			Where("event_id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     model.EventStatusSending,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *notificationEventRepo) MarkSent(ctx context.Context, eventID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.NotificationEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     model.EventStatusSent,
			"sent_at":    now,
			"last_error": nil,
			"updated_at": now,
		}).Error
}

// MarkFailed 记录失败原因；final 为 false 时事件回到 pending 等待重试
func (r *notificationEventRepo) MarkFailed(ctx context.Context, eventID, lastError string, final bool) error {
	status := model.EventStatusPending
	if final {
		status = model.EventStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&model.NotificationEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

func (r *notificationEventRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]model.NotificationEvent, error) {
	var events []model.NotificationEvent
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *notificationEventRepo) ListByStatus(ctx context.Context, status string, offset, limit int) ([]model.NotificationEvent, int64, error) {
	var events []model.NotificationEvent
	var total int64

	db := r.db.WithContext(ctx).Model(&model.NotificationEvent{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
