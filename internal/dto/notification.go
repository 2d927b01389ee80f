package dto

// ── 通知发件箱 DTO ──

// NotificationListRequest 发件箱查询参数
type NotificationListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending sending sent failed"`
}

// NotificationEventResponse 发件箱事件
type NotificationEventResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	ProjectID *string `json:"project_id,omitempty"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject"`
	Status    string  `json:"status"`
	Attempts  int     `json:"attempts"`
	LastError *string `json:"last_error,omitempty"`
	CreatedAt string  `json:"created_at"`
	SentAt    *string `json:"sent_at,omitempty"`
}
