package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	pkgerrors "projecthub/pkg/errors"
)

// ── 通用业务错误 ──

var (
	ErrInvalidID   = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Invalid identifier")
	ErrInvalidDate = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Invalid date, expected YYYY-MM-DD")
)

// validateIDs 校验标识符均为合法 UUID
func validateIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return ErrInvalidID
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// parseDate 解析 YYYY-MM-DD；nil 或空串返回 nil
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, *s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.DateLayout)
	return &s
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ── 项目锁 ──

// ProjectLocker 项目级互斥，用于减少团队写入的版本冲突
// 正确性由版本号条件写入保证，锁只是优化
type ProjectLocker interface {
	LockProject(ctx context.Context, projectID string) (func(), error)
}

type noopLocker struct{}

func (noopLocker) LockProject(context.Context, string) (func(), error) {
	return func() {}, nil
}

// TokenBlacklist 注销 Token 的存储
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// ── 模型 → DTO ──

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		ManagerID: u.ManagerID,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toUserResponses(users []model.User) []dto.UserResponse {
	list := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		list = append(list, toUserResponse(&users[i]))
	}
	return list
}

func toProjectResponse(p *model.Project) *dto.ProjectResponse {
	return &dto.ProjectResponse{
		ID:             p.ProjectID,
		Title:          p.Title,
		Description:    p.Description,
		Technology:     p.Technology,
		EstimatedHours: p.EstimatedHours,
		StartDate:      formatDate(p.StartDate),
		CompletionDate: formatDate(p.CompletionDate),
		ManagerID:      p.ManagerID,
		ManagerEmail:   p.ManagerEmail,
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

func toProjectResponses(projects []model.Project) []dto.ProjectResponse {
	list := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		list = append(list, *toProjectResponse(&projects[i]))
	}
	return list
}

func toTeamResponse(t *model.ProjectTeam) *dto.TeamResponse {
	devs := make([]string, len(t.Developers))
	copy(devs, t.Developers)
	return &dto.TeamResponse{
		ID:         t.TeamID,
		ProjectID:  t.ProjectID,
		ManagerID:  t.ManagerID,
		Developers: devs,
		Version:    t.Version,
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}

func toModuleResponse(m *model.Module) dto.ModuleResponse {
	return dto.ModuleResponse{
		ID:             m.ModuleID,
		ProjectID:      m.ProjectID,
		ProjectName:    m.ProjectName,
		Name:           m.Name,
		Description:    m.Description,
		EstimatedHours: m.EstimatedHours,
		StatusID:       m.StatusID,
		StartDate:      formatDate(m.StartDate),
		CreatedAt:      formatTime(m.CreatedAt),
	}
}

func toStatusResponse(s *model.Status) dto.StatusResponse {
	return dto.StatusResponse{ID: s.StatusID, Label: s.Label}
}

func toTaskResponse(t *model.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:           t.TaskID,
		Title:        t.Title,
		Priority:     t.Priority,
		Description:  t.Description,
		TotalMinutes: t.TotalMinutes,
		ModuleID:     t.ModuleID,
		ProjectID:    t.ProjectID,
		StatusID:     t.StatusID,
		ImageURL:     t.ImageURL,
		CreatedAt:    formatTime(t.CreatedAt),
	}
}

func toTaskResponses(tasks []model.Task) []dto.TaskResponse {
	list := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		list = append(list, toTaskResponse(&tasks[i]))
	}
	return list
}
