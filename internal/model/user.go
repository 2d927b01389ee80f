package model

// User 用户表 — 对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'developer'"  json:"role"`
	ManagerID    *string `gorm:"type:uuid"                                      json:"manager_id,omitempty"` // 开发者的汇报经理
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
