package model

import (
	"time"

	"gorm.io/datatypes"
)

// 发件箱事件状态
const (
	EventStatusPending = "pending"
	EventStatusSending = "sending"
	EventStatusSent    = "sent"
	EventStatusFailed  = "failed"
)

// NotificationEvent 通知发件箱表 — 对应 notification_events
// 与触发它的业务写入在同一事务中插入，由调度器异步投递
type NotificationEvent struct {
	EventID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	Type      string         `gorm:"type:varchar(50);not null"                      json:"type"`
	ProjectID *string        `gorm:"type:uuid"                                      json:"project_id,omitempty"`
	Recipient string         `gorm:"type:varchar(255);not null"                     json:"recipient"`
	Subject   string         `gorm:"type:varchar(255);not null"                     json:"subject"`
	Template  string         `gorm:"type:varchar(100);not null"                     json:"template"`
	Args      datatypes.JSON `gorm:"type:jsonb;not null"                            json:"args"`
	Status    string         `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Attempts  int            `gorm:"not null;default:0"                             json:"attempts"`
	LastError *string        `gorm:"type:text"                                      json:"last_error,omitempty"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (NotificationEvent) TableName() string { return "notification_events" }
