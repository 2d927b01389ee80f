package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/notify"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 项目模块业务错误 ──

var (
	ErrProjectNotFound   = pkgerrors.New(pkgerrors.ErrNotFound, "Project not found")
	ErrProjectDateRange  = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Completion date must not be before start date")
	ErrNegativeHours     = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Estimated hours must not be negative")
	ErrEmptyProjectTitle = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Project title is required")

	// 以下两个错误不暴露给调用方，统一映射为 500
	ErrProjectDeleteFailed = errors.New("删除项目未影响任何行")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ProjectService 项目业务接口
//
// 设计说明：
//   - 删除项目时在单个事务中按顺序级联清理：用户任务 → 任务 → 模块 → 团队 → 项目
//   - 项目标题变更时同步刷新模块的 project_name 冗余字段
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头
type ProjectService interface {
	Create(ctx context.Context, req *dto.CreateProjectRequest, createdBy string) (*dto.ProjectResponse, error)
	Get(ctx context.Context, projectID string) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error)
	ListByManager(ctx context.Context, managerID string) ([]dto.ProjectResponse, error)
	Update(ctx context.Context, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, projectID string) error

	// ExportTasks 导出项目任务与模块为 Excel，返回内容与建议文件名
	ExportTasks(ctx context.Context, projectID string) (*bytes.Buffer, string, error)
	// Calendar 生成项目与模块排期的 iCalendar 文本
	Calendar(ctx context.Context, projectID string) (string, string, error)
}

type projectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, logger: logger}
}

func (s *projectService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

func checkDateRange(start, completion *time.Time) error {
	if start != nil && completion != nil && completion.Before(*start) {
		return ErrProjectDateRange
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// CRUD
// ═══════════════════════════════════════════════════════════

func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest, createdBy string) (*dto.ProjectResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyProjectTitle
	}
	if req.EstimatedHours < 0 {
		return nil, ErrNegativeHours
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	completion, err := parseDate(req.CompletionDate)
	if err != nil {
		return nil, err
	}
	if err := checkDateRange(start, completion); err != nil {
		return nil, err
	}

	project := &model.Project{
		Title:          title,
		Description:    req.Description,
		Technology:     req.Technology,
		EstimatedHours: req.EstimatedHours,
		StartDate:      start,
		CompletionDate: completion,
	}
	if createdBy != "" {
		project.CreatedBy = &createdBy
	}

	// 经理按邮箱解析一次，之后只以 manager_id 关联
	var manager *model.User
	if req.ManagerEmail != nil && strings.TrimSpace(*req.ManagerEmail) != "" {
		manager, err = s.repo.User.GetByEmailAndRole(ctx, strings.TrimSpace(*req.ManagerEmail), model.RoleManager)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrManagerNotFound
			}
			s.logger.Error("按邮箱查询经理失败", zap.Error(err))
			return nil, err
		}
		managerID, email := manager.UserID, manager.Email
		project.ManagerID = &managerID
		project.ManagerEmail = &email
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Project.Create(ctx, project); err != nil {
			return err
		}
		if manager == nil {
			return nil
		}
		// 带经理创建时同时建立团队，保持两处镜像一致
		team := &model.ProjectTeam{ProjectID: project.ProjectID, ManagerID: project.ManagerID}
		if err := tx.Team.Create(ctx, team); err != nil {
			return err
		}
		return tx.Outbox.Create(ctx, notify.ManagerAssigned(project, manager))
	})
	if err != nil {
		s.logger.Error("创建项目失败", zap.String("title", title), zap.Error(err))
		return nil, err
	}

	s.logger.Info("项目已创建", zap.String("project_id", project.ProjectID), zap.String("title", title))
	return toProjectResponse(project), nil
}

func (s *projectService) Get(ctx context.Context, projectID string) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(project), nil
}

func (s *projectService) List(ctx context.Context, req *dto.ProjectListRequest) ([]dto.ProjectResponse, int64, error) {
	projects, total, err := s.repo.Project.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询项目列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toProjectResponses(projects), total, nil
}

func (s *projectService) ListByManager(ctx context.Context, managerID string) ([]dto.ProjectResponse, error) {
	if err := validateIDs(managerID); err != nil {
		return nil, err
	}
	projects, err := s.repo.Project.ListByManager(ctx, managerID)
	if err != nil {
		s.logger.Error("查询经理项目失败", zap.String("manager_id", managerID), zap.Error(err))
		return nil, err
	}
	return toProjectResponses(projects), nil
}

func (s *projectService) Update(ctx context.Context, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	renamed := false
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrEmptyProjectTitle
		}
		renamed = title != project.Title
		project.Title = title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Technology != nil {
		project.Technology = *req.Technology
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours < 0 {
			return nil, ErrNegativeHours
		}
		project.EstimatedHours = *req.EstimatedHours
	}
	if req.StartDate != nil {
		if project.StartDate, err = parseDate(req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.CompletionDate != nil {
		if project.CompletionDate, err = parseDate(req.CompletionDate); err != nil {
			return nil, err
		}
	}
	if err := checkDateRange(project.StartDate, project.CompletionDate); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Project.Update(ctx, project); err != nil {
			return err
		}
		if !renamed {
			return nil
		}
		rows, err := tx.Module.RenameProject(ctx, projectID, project.Title)
		if err != nil {
			return err
		}
		s.logger.Debug("已同步模块冗余项目名", zap.String("project_id", projectID), zap.Int64("modules", rows))
		return nil
	})
	if err != nil {
		s.logger.Error("更新项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("项目已更新", zap.String("project_id", projectID))
	return toProjectResponse(project), nil
}

// ═══════════════════════════════════════════════════════════
// Delete — 级联删除
// ═══════════════════════════════════════════════════════════
//
// 步骤（同一事务内，任一步失败整体回滚）：
//  1. 校验 ID 并确认项目存在
//  2. 收集项目下所有任务 ID
//  3. 删除引用这些任务的用户任务关联
//  4. 删除项目任务
//  5. 删除项目模块
//  6. 删除项目团队
//  7. 用户表不保存项目列表，无需处理
//  8. 删除项目本身，零行视为失败

func (s *projectService) Delete(ctx context.Context, projectID string) error {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return err
	}

	log := s.logger.With(zap.String("project_id", projectID))
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		taskIDs, err := tx.Task.ListIDsByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("收集任务 ID: %w", err)
		}
		log.Debug("级联删除：收集任务", zap.Int("tasks", len(taskIDs)))

		rows, err := tx.UserTask.DeleteByTaskIDs(ctx, taskIDs)
		if err != nil {
			return fmt.Errorf("删除用户任务: %w", err)
		}
		log.Debug("级联删除：用户任务", zap.Int64("rows", rows))

		if rows, err = tx.Task.DeleteByProject(ctx, projectID); err != nil {
			return fmt.Errorf("删除任务: %w", err)
		}
		log.Debug("级联删除：任务", zap.Int64("rows", rows))

		if rows, err = tx.Module.DeleteByProject(ctx, projectID); err != nil {
			return fmt.Errorf("删除模块: %w", err)
		}
		log.Debug("级联删除：模块", zap.Int64("rows", rows))

		if rows, err = tx.Team.DeleteByProject(ctx, projectID); err != nil {
			return fmt.Errorf("删除团队: %w", err)
		}
		log.Debug("级联删除：团队", zap.Int64("rows", rows))

		if rows, err = tx.Project.Delete(ctx, projectID); err != nil {
			return fmt.Errorf("删除项目: %w", err)
		}
		if rows == 0 {
			return ErrProjectDeleteFailed
		}
		return nil
	})
	if err != nil {
		log.Error("级联删除项目失败，已回滚", zap.Error(err))
		return err
	}

	log.Info("项目已删除")
	return nil
}

// ═══════════════════════════════════════════════════════════
// ExportTasks — 导出任务为 Excel
// ═══════════════════════════════════════════════════════════
//
// Sheet "Tasks"：任务标题 / 模块 / 优先级 / 状态 / 工时（分钟）/ 创建时间
// Sheet "Modules"：模块名 / 预估工时 / 状态 / 开始日期

func (s *projectService) ExportTasks(ctx context.Context, projectID string) (*bytes.Buffer, string, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	tasks, err := s.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目任务失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, "", err
	}
	modules, err := s.repo.Module.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目模块失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, "", err
	}
	statuses, err := s.repo.Status.List(ctx)
	if err != nil {
		s.logger.Error("查询状态列表失败", zap.Error(err))
		return nil, "", err
	}

	moduleNames := make(map[string]string, len(modules))
	for _, m := range modules {
		moduleNames[m.ModuleID] = m.Name
	}
	labels := make(map[string]string, len(statuses))
	for _, st := range statuses {
		labels[st.StatusID] = st.Label
	}
	labelOf := func(id *string) string {
		if id == nil {
			return "-"
		}
		if l, ok := labels[*id]; ok {
			return l
		}
		return "-"
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	const taskSheet = "Tasks"
	f.SetSheetName("Sheet1", taskSheet)
	taskHeaders := []string{"Title", "Module", "Priority", "Status", "Minutes", "Created"}
	writeRow(f, taskSheet, 1, toCells(taskHeaders))
	f.SetCellStyle(taskSheet, "A1", cell(colName(len(taskHeaders)-1), 1), headerStyle)
	f.SetColWidth(taskSheet, "A", "B", 32)
	f.SetColWidth(taskSheet, "C", "F", 14)
	for i, t := range tasks {
		writeRow(f, taskSheet, i+2, []interface{}{
			t.Title, moduleNames[t.ModuleID], t.Priority, labelOf(t.StatusID), t.TotalMinutes,
			t.CreatedAt.Format(dto.DateLayout),
		})
	}

	const moduleSheet = "Modules"
	if _, err := f.NewSheet(moduleSheet); err != nil {
		s.logger.Error("创建模块工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	moduleHeaders := []string{"Module", "Estimated Hours", "Status", "Start Date"}
	writeRow(f, moduleSheet, 1, toCells(moduleHeaders))
	f.SetCellStyle(moduleSheet, "A1", cell(colName(len(moduleHeaders)-1), 1), headerStyle)
	f.SetColWidth(moduleSheet, "A", "A", 32)
	f.SetColWidth(moduleSheet, "B", "D", 16)
	for i, m := range modules {
		start := "-"
		if m.StartDate != nil {
			start = m.StartDate.Format(dto.DateLayout)
		}
		writeRow(f, moduleSheet, i+2, []interface{}{m.Name, m.EstimatedHours, labelOf(m.StatusID), start})
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("项目任务已导出",
		zap.String("project_id", projectID),
		zap.Int("tasks", len(tasks)),
		zap.Int("modules", len(modules)),
	)
	return buf, fmt.Sprintf("%s_tasks.xlsx", fileSafe(project.Title)), nil
}

// ═══════════════════════════════════════════════════════════
// Calendar — 项目排期 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *projectService) Calendar(ctx context.Context, projectID string) (string, string, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return "", "", err
	}
	modules, err := s.repo.Module.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目模块失败", zap.String("project_id", projectID), zap.Error(err))
		return "", "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//projecthub//project calendar//EN")
	cal.SetXWRCalName(project.Title)

	now := time.Now().UTC()
	if project.StartDate != nil {
		ev := cal.AddEvent(project.ProjectID + "@projecthub")
		ev.SetDtStampTime(now)
		ev.SetSummary(project.Title)
		ev.SetDescription(project.Description)
		ev.SetAllDayStartAt(*project.StartDate)
		end := project.StartDate
		if project.CompletionDate != nil {
			end = project.CompletionDate
		}
		// DTEND 为开区间
		ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
	}

	for _, m := range modules {
		if m.StartDate == nil {
			continue
		}
		ev := cal.AddEvent(m.ModuleID + "@projecthub")
		ev.SetDtStampTime(now)
		ev.SetSummary(fmt.Sprintf("%s: %s", project.Title, m.Name))
		ev.SetDescription(m.Description)
		ev.SetAllDayStartAt(*m.StartDate)
		ev.SetAllDayEndAt(m.StartDate.AddDate(0, 0, 1))
	}

	return cal.Serialize(), fmt.Sprintf("%s.ics", fileSafe(project.Title)), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		f.SetCellValue(sheet, cell(colName(i), row), v)
	}
}

// fileSafe 将标题转换为可用作文件名的形式
func fileSafe(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "project"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, title)
}
