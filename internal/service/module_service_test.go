package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	pkgerrors "projecthub/pkg/errors"
)

func setupTestModuleService() (ModuleService, *testStore) {
	st := newTestStore()
	return NewModuleService(st.repo, zap.NewNop()), st
}

func TestModuleCreate(t *testing.T) {
	svc, st := setupTestModuleService()
	ctx := context.Background()
	p := st.addProject("Apollo", nil)
	status := st.addStatus("Todo")

	resp, err := svc.Create(ctx, &dto.CreateModuleRequest{
		ProjectID:      p.ProjectID,
		Name:           " Backend ",
		EstimatedHours: 40,
		StatusID:       &status.StatusID,
		StartDate:      strPtr("2026-04-01"),
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Name != "Backend" || resp.ProjectName != "Apollo" {
		t.Errorf("期望 Backend / Apollo，实际 %s / %s", resp.Name, resp.ProjectName)
	}
	if resp.StartDate == nil || *resp.StartDate != "2026-04-01" {
		t.Errorf("start_date 错误: %v", deref(resp.StartDate))
	}
}

func TestModuleCreate_Validation(t *testing.T) {
	svc, st := setupTestModuleService()
	ctx := context.Background()
	p := st.addProject("Apollo", nil)

	_, err := svc.Create(ctx, &dto.CreateModuleRequest{ProjectID: p.ProjectID, Name: "A", EstimatedHours: 0})
	if !errors.Is(err, ErrModuleHours) {
		t.Errorf("期望 ErrModuleHours，实际: %v", err)
	}
	_, err = svc.Create(ctx, &dto.CreateModuleRequest{ProjectID: p.ProjectID, Name: " ", EstimatedHours: 1})
	if !errors.Is(err, ErrEmptyModuleName) {
		t.Errorf("期望 ErrEmptyModuleName，实际: %v", err)
	}
	_, err = svc.Create(ctx, &dto.CreateModuleRequest{ProjectID: uuid.NewString(), Name: "A", EstimatedHours: 1})
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
	missing := uuid.NewString()
	_, err = svc.Create(ctx, &dto.CreateModuleRequest{ProjectID: p.ProjectID, Name: "A", EstimatedHours: 1, StatusID: &missing})
	if !errors.Is(err, ErrStatusNotFound) {
		t.Errorf("期望 ErrStatusNotFound，实际: %v", err)
	}
}

func TestModuleUpdate_RefreshesProjectName(t *testing.T) {
	svc, st := setupTestModuleService()
	ctx := context.Background()
	p := st.addProject("Apollo", nil)
	m := st.addModule(p, "Backend")

	// 项目改名后模块冗余字段尚未同步
	st.projects.mu.Lock()
	proj := st.projects.projects[p.ProjectID]
	proj.Title = "Artemis"
	st.projects.projects[p.ProjectID] = proj
	st.projects.mu.Unlock()

	hours := 16
	resp, err := svc.Update(ctx, m.ModuleID, &dto.UpdateModuleRequest{EstimatedHours: &hours})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.EstimatedHours != 16 || resp.ProjectName != "Artemis" {
		t.Errorf("期望 16h / Artemis，实际 %dh / %s", resp.EstimatedHours, resp.ProjectName)
	}

	zero := 0
	if _, err := svc.Update(ctx, m.ModuleID, &dto.UpdateModuleRequest{EstimatedHours: &zero}); !errors.Is(err, ErrModuleHours) {
		t.Errorf("期望 ErrModuleHours，实际: %v", err)
	}
}

func TestModuleListAndGet(t *testing.T) {
	svc, st := setupTestModuleService()
	ctx := context.Background()
	p := st.addProject("Apollo", nil)
	m := st.addModule(p, "Backend")
	st.addModule(p, "Frontend")
	st.addModule(st.addProject("Zeus", nil), "Infra")

	list, err := svc.ListByProject(ctx, p.ProjectID)
	if err != nil || len(list) != 2 {
		t.Errorf("期望 2 个模块，实际 %d / %v", len(list), err)
	}
	got, err := svc.Get(ctx, m.ModuleID)
	if err != nil || got.Name != "Backend" {
		t.Errorf("Get 结果错误: %v / %v", got, err)
	}
	if _, err := svc.Get(ctx, uuid.NewString()); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("期望 ErrModuleNotFound，实际: %v", err)
	}
}

func TestModuleDelete(t *testing.T) {
	svc, st := setupTestModuleService()
	ctx := context.Background()
	p := st.addProject("Apollo", nil)
	m := st.addModule(p, "Backend")

	st.modules.deleteErr = gorm.ErrForeignKeyViolated
	err := svc.Delete(ctx, m.ModuleID)
	if !errors.Is(err, ErrModuleHasTasks) || !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("仍有任务时期望 Conflict，实际: %v", err)
	}

	st.modules.deleteErr = nil
	if err := svc.Delete(ctx, m.ModuleID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := svc.Delete(ctx, m.ModuleID); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("重复删除期望 ErrModuleNotFound，实际: %v", err)
	}
}
