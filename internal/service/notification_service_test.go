package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/notify"
)

func TestNotificationQueries(t *testing.T) {
	st := newTestStore()
	svc := NewNotificationService(st.repo, zap.NewNop())
	ctx := context.Background()

	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	p1 := st.addProject("Apollo", mgr)
	p2 := st.addProject("Zeus", mgr)
	st.outbox.Create(ctx, notify.ManagerAssigned(p1, mgr), notify.ManagerAssigned(p2, mgr))

	claimed, _ := st.outbox.Claim(ctx, 1, 5, 0)
	st.outbox.MarkSent(ctx, claimed[0].EventID)

	all, total, err := svc.List(ctx, &dto.NotificationListRequest{})
	if err != nil || total != 2 || len(all) != 2 {
		t.Errorf("期望 2 条事件，实际 %d / %v", total, err)
	}
	pending, total, err := svc.List(ctx, &dto.NotificationListRequest{Status: model.EventStatusPending})
	if err != nil || total != 1 || pending[0].Status != model.EventStatusPending {
		t.Errorf("按状态筛选结果错误: %v / %v", pending, err)
	}

	activity, err := svc.ListByProject(ctx, p1.ProjectID, 0)
	if err != nil || len(activity) != 1 {
		t.Fatalf("期望项目 Apollo 有 1 条动态，实际 %d / %v", len(activity), err)
	}
	if activity[0].Recipient != mgr.Email || activity[0].Type != notify.TypeManagerAssigned {
		t.Errorf("动态内容错误: %+v", activity[0])
	}
}
