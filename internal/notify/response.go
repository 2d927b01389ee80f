package notify

import (
	"time"

	"projecthub/internal/dto"
	"projecthub/internal/model"
)

// Response 转换发件箱事件为接口输出，HTTP 查询与 websocket 推送共用
func Response(e *model.NotificationEvent) dto.NotificationEventResponse {
	resp := dto.NotificationEventResponse{
		ID:        e.EventID,
		Type:      e.Type,
		ProjectID: e.ProjectID,
		Recipient: e.Recipient,
		Subject:   e.Subject,
		Status:    e.Status,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.SentAt != nil {
		sent := e.SentAt.Format(time.RFC3339)
		resp.SentAt = &sent
	}
	return resp
}
