package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/notify"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 团队模块业务错误 ──

var (
	ErrManagerNotFound          = pkgerrors.New(pkgerrors.ErrNotFound, "Manager not found")
	ErrDeveloperNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "Developer not found")
	ErrTeamNotFound             = pkgerrors.New(pkgerrors.ErrNotFound, "Project team not found")
	ErrNoManagerAssigned        = pkgerrors.New(pkgerrors.ErrNotFound, "Project has no manager assigned")
	ErrManagerMismatch          = pkgerrors.New(pkgerrors.ErrForbidden, "Manager is not assigned to this project")
	ErrDeveloperAlreadyAssigned = pkgerrors.New(pkgerrors.ErrConflict, "Developer already assigned to this project")
	ErrDeveloperNotAssigned     = pkgerrors.New(pkgerrors.ErrConflict, "Developer is not assigned to this project")
	ErrTeamExists               = pkgerrors.New(pkgerrors.ErrConflict, "Project team already exists")
	ErrTeamBusy                 = pkgerrors.New(pkgerrors.ErrConflict, "Project team was modified concurrently, please retry")
	ErrEmptyTeamUpdate          = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Nothing to update")
	ErrProjectWriteFailed       = pkgerrors.New(pkgerrors.ErrWriteFailed, "Failed to update project")
)

const (
	// 版本冲突或并发懒创建时的最大尝试次数
	maxTeamWriteAttempts = 3
	// 等待项目锁的上限，超时后仅依赖版本号
	teamLockWait = 2 * time.Second
)

// TeamService 项目团队（经理与开发者指派）业务接口
//
// 一致性约定：
//   - projects.manager_id 是经理的唯一权威来源，manager_email 仅为展示缓存
//   - 每次团队写入都以读取时的 version 为条件，冲突时整个事务回滚并重试
//   - 通知写入发件箱，与业务写入同一事务提交
type TeamService interface {
	AssignManager(ctx context.Context, projectID, managerID string) (*dto.ProjectResponse, error)
	DeassignManager(ctx context.Context, projectID, managerID string) (*dto.ProjectResponse, error)
	AssignDeveloper(ctx context.Context, projectID, developerID string) (*dto.TeamResponse, error)
	DeassignDeveloper(ctx context.Context, projectID, developerID string) (*dto.TeamResponse, error)

	GetTeam(ctx context.Context, projectID string) (*dto.TeamResponse, error)
	GetAssignedDevelopers(ctx context.Context, projectID string) ([]dto.UserResponse, error)
	GetDeveloperProjects(ctx context.Context, developerID string) ([]dto.ProjectResponse, error)

	CreateTeam(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	UpdateTeam(ctx context.Context, projectID string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error)
	DeleteTeam(ctx context.Context, projectID string) error
	ListTeams(ctx context.Context) ([]dto.TeamResponse, error)
	GetTeamProject(ctx context.Context, teamID string) (*dto.ProjectResponse, error)

	// ReconcileManagers 修复团队与项目之间的经理漂移，返回修复条数
	ReconcileManagers(ctx context.Context) (int, error)
}

type teamService struct {
	repo   *repository.Repository
	locker ProjectLocker
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例；locker 为 nil 时不加锁
func NewTeamService(repo *repository.Repository, locker ProjectLocker, logger *zap.Logger) TeamService {
	if locker == nil {
		locker = noopLocker{}
	}
	return &teamService{repo: repo, locker: locker, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// 写入框架
// ═══════════════════════════════════════════════════════════

// writeTeam 在事务中执行团队读-改-写
// 版本冲突（ErrOptimisticLock）或并发懒创建（唯一键冲突）时整体重试
func (s *teamService) writeTeam(ctx context.Context, projectID string, op func(tx *repository.Repository) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, teamLockWait)
	unlock, err := s.locker.LockProject(lockCtx, projectID)
	cancel()
	if err != nil {
		s.logger.Warn("获取项目锁失败，仅依赖版本号控制并发",
			zap.String("project_id", projectID), zap.Error(err))
		unlock = func() {}
	}
	defer unlock()

	for attempt := 1; attempt <= maxTeamWriteAttempts; attempt++ {
		err = s.repo.Transaction(ctx, op)
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		s.logger.Warn("团队写入冲突，准备重试",
			zap.String("project_id", projectID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return ErrTeamBusy
}

// loadTeam 读取项目团队；不存在时返回尚未持久化的空团队
func loadTeam(ctx context.Context, tx *repository.Repository, projectID string) (*model.ProjectTeam, bool, error) {
	team, err := tx.Team.GetByProject(ctx, projectID)
	if err == nil {
		return team, true, nil
	}
	if isNotFound(err) {
		return &model.ProjectTeam{ProjectID: projectID, Developers: model.StringArray{}}, false, nil
	}
	return nil, false, err
}

func saveTeam(ctx context.Context, tx *repository.Repository, team *model.ProjectTeam, exists bool) error {
	if exists {
		return tx.Team.Update(ctx, team)
	}
	return tx.Team.Create(ctx, team)
}

func (s *teamService) getProject(ctx context.Context, r *repository.Repository, projectID string) (*model.Project, error) {
	project, err := r.Project.GetByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

func (s *teamService) getUserWithRole(ctx context.Context, r *repository.Repository, userID, role string, notFound error) (*model.User, error) {
	user, err := r.User.GetByIDAndRole(ctx, userID, role)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// findUser 查询用户，不存在时返回 nil 而非错误（用于尽力而为的通知）
func findUser(ctx context.Context, r *repository.Repository, userID *string) (*model.User, error) {
	if userID == nil {
		return nil, nil
	}
	user, err := r.User.GetByID(ctx, *userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// outgoingManagerEvent 项目经理被替换时通知原经理；原经理不存在或未变更时返回 nil
func outgoingManagerEvent(ctx context.Context, tx *repository.Repository, project *model.Project, newManagerID string) (*model.NotificationEvent, error) {
	if project.ManagerID == nil || *project.ManagerID == newManagerID {
		return nil, nil
	}
	prev, err := findUser(ctx, tx, project.ManagerID)
	if err != nil || prev == nil {
		return nil, err
	}
	return notify.ManagerRemoved(project, prev), nil
}

// resolveManager 按 projects.manager_id 解析经理
// manager_email 缓存与用户邮箱不一致时顺带刷新
func (s *teamService) resolveManager(ctx context.Context, tx *repository.Repository, project *model.Project) (*model.User, error) {
	if project.ManagerID == nil {
		return nil, ErrManagerNotFound
	}
	manager, err := s.getUserWithRole(ctx, tx, *project.ManagerID, model.RoleManager, ErrManagerNotFound)
	if err != nil {
		return nil, err
	}

	if project.ManagerEmail == nil || *project.ManagerEmail != manager.Email {
		email := manager.Email
		if _, err := tx.Project.SetManager(ctx, project.ProjectID, project.ManagerID, &email); err != nil {
			s.logger.Error("刷新经理邮箱缓存失败", zap.String("project_id", project.ProjectID), zap.Error(err))
			return nil, err
		}
		s.logger.Info("经理邮箱缓存已刷新",
			zap.String("project_id", project.ProjectID),
			zap.String("manager_id", manager.UserID),
		)
		project.ManagerEmail = &email
	}
	return manager, nil
}

// loadDevelopers 按 id 顺序加载开发者，任一缺失或角色不符返回 ErrDeveloperNotFound
func (s *teamService) loadDevelopers(ctx context.Context, tx *repository.Repository, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := tx.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("批量查询开发者失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[string]*model.User, len(users))
	for i := range users {
		byID[users[i].UserID] = &users[i]
	}

	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok || u.Role != model.RoleDeveloper {
			return nil, ErrDeveloperNotFound
		}
		out = append(out, u)
	}
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════
// 经理指派
// ═══════════════════════════════════════════════════════════

func (s *teamService) AssignManager(ctx context.Context, projectID, managerID string) (*dto.ProjectResponse, error) {
	if err := validateIDs(projectID, managerID); err != nil {
		return nil, err
	}

	var project *model.Project
	err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
		p, err := s.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		manager, err := s.getUserWithRole(ctx, tx, managerID, model.RoleManager, ErrManagerNotFound)
		if err != nil {
			return err
		}
		replaced, err := outgoingManagerEvent(ctx, tx, p, managerID)
		if err != nil {
			return err
		}

		// 项目与团队两处镜像必须同时写入
		email := manager.Email
		rows, err := tx.Project.SetManager(ctx, projectID, &managerID, &email)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrProjectWriteFailed
		}

		team, exists, err := loadTeam(ctx, tx, projectID)
		if err != nil {
			return err
		}
		team.ManagerID = &managerID
		if err := saveTeam(ctx, tx, team, exists); err != nil {
			return err
		}

		p.ManagerID = &managerID
		p.ManagerEmail = &email
		project = p
		events := []*model.NotificationEvent{notify.ManagerAssigned(p, manager)}
		if replaced != nil {
			events = append(events, replaced)
		}
		return tx.Outbox.Create(ctx, events...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("项目经理已指派", zap.String("project_id", projectID), zap.String("manager_id", managerID))
	return toProjectResponse(project), nil
}

func (s *teamService) DeassignManager(ctx context.Context, projectID, managerID string) (*dto.ProjectResponse, error) {
	if err := validateIDs(projectID, managerID); err != nil {
		return nil, err
	}

	var project *model.Project
	err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
		p, err := s.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if p.ManagerID == nil {
			return ErrNoManagerAssigned
		}
		if *p.ManagerID != managerID {
			return ErrManagerMismatch
		}

		rows, err := tx.Project.SetManager(ctx, projectID, nil, nil)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrProjectWriteFailed
		}

		team, exists, err := loadTeam(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if exists && team.ManagerID != nil {
			team.ManagerID = nil
			if err := tx.Team.Update(ctx, team); err != nil {
				return err
			}
		}

		p.ManagerID = nil
		p.ManagerEmail = nil
		project = p

		// 经理账号已不存在时跳过通知
		manager, err := findUser(ctx, tx, &managerID)
		if err != nil {
			return err
		}
		if manager == nil {
			return nil
		}
		return tx.Outbox.Create(ctx, notify.ManagerRemoved(p, manager))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("项目经理已撤销", zap.String("project_id", projectID), zap.String("manager_id", managerID))
	return toProjectResponse(project), nil
}

// ═══════════════════════════════════════════════════════════
// 开发者指派
// ═══════════════════════════════════════════════════════════

func (s *teamService) AssignDeveloper(ctx context.Context, projectID, developerID string) (*dto.TeamResponse, error) {
	if err := validateIDs(projectID, developerID); err != nil {
		return nil, err
	}

	var result *model.ProjectTeam
	err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
		project, err := s.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		developer, err := s.getUserWithRole(ctx, tx, developerID, model.RoleDeveloper, ErrDeveloperNotFound)
		if err != nil {
			return err
		}

		team, exists, err := loadTeam(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if team.Developers.Contains(developerID) {
			return ErrDeveloperAlreadyAssigned
		}

		manager, err := s.resolveManager(ctx, tx, project)
		if err != nil {
			return err
		}

		team.Developers = append(append(model.StringArray{}, team.Developers...), developerID)
		if !exists {
			team.ManagerID = project.ManagerID
		}
		if err := saveTeam(ctx, tx, team, exists); err != nil {
			return err
		}

		result = team
		return tx.Outbox.Create(ctx, notify.DeveloperAssigned(project, developer, manager)...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("开发者已加入项目",
		zap.String("project_id", projectID),
		zap.String("developer_id", developerID),
		zap.Int("version", result.Version),
	)
	return toTeamResponse(result), nil
}

func (s *teamService) DeassignDeveloper(ctx context.Context, projectID, developerID string) (*dto.TeamResponse, error) {
	if err := validateIDs(projectID, developerID); err != nil {
		return nil, err
	}

	var result *model.ProjectTeam
	err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
		project, err := s.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		developer, err := s.getUserWithRole(ctx, tx, developerID, model.RoleDeveloper, ErrDeveloperNotFound)
		if err != nil {
			return err
		}

		team, exists, err := loadTeam(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrTeamNotFound
		}
		if !team.Developers.Contains(developerID) {
			return ErrDeveloperNotAssigned
		}

		manager, err := s.resolveManager(ctx, tx, project)
		if err != nil {
			return err
		}

		team.Developers = team.Developers.Without(developerID)
		if err := tx.Team.Update(ctx, team); err != nil {
			return err
		}

		result = team
		return tx.Outbox.Create(ctx, notify.DeveloperDeassigned(project, developer, manager)...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("开发者已移出项目",
		zap.String("project_id", projectID),
		zap.String("developer_id", developerID),
		zap.Int("version", result.Version),
	)
	return toTeamResponse(result), nil
}

// ═══════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════

func (s *teamService) GetTeam(ctx context.Context, projectID string) (*dto.TeamResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	team, err := s.repo.Team.GetByProject(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询项目团队失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toTeamResponse(team), nil
}

func (s *teamService) GetAssignedDevelopers(ctx context.Context, projectID string) ([]dto.UserResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	team, err := s.repo.Team.GetByProject(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return []dto.UserResponse{}, nil
		}
		s.logger.Error("查询项目团队失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	users, err := s.repo.User.ListByIDs(ctx, team.Developers)
	if err != nil {
		s.logger.Error("查询团队开发者失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *teamService) GetDeveloperProjects(ctx context.Context, developerID string) ([]dto.ProjectResponse, error) {
	if err := validateIDs(developerID); err != nil {
		return nil, err
	}
	teams, err := s.repo.Team.ListByDeveloper(ctx, developerID)
	if err != nil {
		s.logger.Error("查询开发者所属团队失败", zap.String("developer_id", developerID), zap.Error(err))
		return nil, err
	}
	if len(teams) == 0 {
		return []dto.ProjectResponse{}, nil
	}

	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ProjectID)
	}
	projects, err := s.repo.Project.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询开发者项目失败", zap.String("developer_id", developerID), zap.Error(err))
		return nil, err
	}
	return toProjectResponses(projects), nil
}

func (s *teamService) ListTeams(ctx context.Context) ([]dto.TeamResponse, error) {
	teams, err := s.repo.Team.List(ctx)
	if err != nil {
		s.logger.Error("查询团队列表失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		list = append(list, *toTeamResponse(&teams[i]))
	}
	return list, nil
}

func (s *teamService) GetTeamProject(ctx context.Context, teamID string) (*dto.ProjectResponse, error) {
	if err := validateIDs(teamID); err != nil {
		return nil, err
	}
	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询项目团队失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	project, err := s.getProject(ctx, s.repo, team.ProjectID)
	if err != nil {
		return nil, err
	}
	return toProjectResponse(project), nil
}

// ═══════════════════════════════════════════════════════════
// 团队维护（经理端）
// ═══════════════════════════════════════════════════════════

func (s *teamService) CreateTeam(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	ids := append([]string{req.ProjectID}, req.Developers...)
	if req.ManagerID != nil {
		ids = append(ids, *req.ManagerID)
	}
	if err := validateIDs(ids...); err != nil {
		return nil, err
	}
	developerIDs := dedupe(req.Developers)

	var result *model.ProjectTeam
	err := s.writeTeam(ctx, req.ProjectID, func(tx *repository.Repository) error {
		project, err := s.getProject(ctx, tx, req.ProjectID)
		if err != nil {
			return err
		}
		if _, err := tx.Team.GetByProject(ctx, req.ProjectID); err == nil {
			return ErrTeamExists
		} else if !isNotFound(err) {
			return err
		}

		var events []*model.NotificationEvent
		var manager *model.User
		if req.ManagerID != nil {
			manager, err = s.getUserWithRole(ctx, tx, *req.ManagerID, model.RoleManager, ErrManagerNotFound)
			if err != nil {
				return err
			}
			if project.ManagerID == nil || *project.ManagerID != manager.UserID {
				replaced, err := outgoingManagerEvent(ctx, tx, project, manager.UserID)
				if err != nil {
					return err
				}
				if replaced != nil {
					events = append(events, replaced)
				}
				managerID, email := manager.UserID, manager.Email
				rows, err := tx.Project.SetManager(ctx, project.ProjectID, &managerID, &email)
				if err != nil {
					return err
				}
				if rows == 0 {
					return ErrProjectWriteFailed
				}
				project.ManagerID = &managerID
				project.ManagerEmail = &email
				events = append(events, notify.ManagerAssigned(project, manager))
			}
		} else if manager, err = findUser(ctx, tx, project.ManagerID); err != nil {
			return err
		}

		developers, err := s.loadDevelopers(ctx, tx, developerIDs)
		if err != nil {
			return err
		}

		team := &model.ProjectTeam{
			ProjectID:  project.ProjectID,
			ManagerID:  project.ManagerID,
			Developers: model.StringArray(developerIDs),
		}
		if err := tx.Team.Create(ctx, team); err != nil {
			return err
		}

		for _, d := range developers {
			events = append(events, notify.DeveloperAssigned(project, d, manager)...)
		}
		result = team
		return tx.Outbox.Create(ctx, events...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("项目团队已创建",
		zap.String("project_id", req.ProjectID),
		zap.Int("developers", len(developerIDs)),
	)
	return toTeamResponse(result), nil
}

func (s *teamService) UpdateTeam(ctx context.Context, projectID string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error) {
	adds, removes := dedupe(req.AddDevelopers), dedupe(req.RemoveDevelopers)
	if len(adds) == 0 && len(removes) == 0 {
		return nil, ErrEmptyTeamUpdate
	}
	ids := append(append([]string{projectID}, adds...), removes...)
	if err := validateIDs(ids...); err != nil {
		return nil, err
	}

	var result *model.ProjectTeam
	err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
		project, err := s.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		team, exists, err := loadTeam(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrTeamNotFound
		}

		added, err := s.loadDevelopers(ctx, tx, adds)
		if err != nil {
			return err
		}

		set := append(model.StringArray{}, team.Developers...)
		for _, id := range removes {
			if !set.Contains(id) {
				return ErrDeveloperNotAssigned
			}
			set = set.Without(id)
		}
		for _, d := range added {
			if set.Contains(d.UserID) {
				return ErrDeveloperAlreadyAssigned
			}
			set = append(set, d.UserID)
		}

		team.Developers = set
		if err := tx.Team.Update(ctx, team); err != nil {
			return err
		}

		manager, err := findUser(ctx, tx, project.ManagerID)
		if err != nil {
			return err
		}
		removedUsers, err := tx.User.ListByIDs(ctx, removes)
		if err != nil {
			return err
		}

		var events []*model.NotificationEvent
		for _, d := range added {
			events = append(events, notify.DeveloperAssigned(project, d, manager)...)
		}
		for i := range removedUsers {
			events = append(events, notify.DeveloperDeassigned(project, &removedUsers[i], manager)...)
		}

		result = team
		return tx.Outbox.Create(ctx, events...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("项目团队已更新",
		zap.String("project_id", projectID),
		zap.Int("added", len(adds)),
		zap.Int("removed", len(removes)),
	)
	return toTeamResponse(result), nil
}

func (s *teamService) DeleteTeam(ctx context.Context, projectID string) error {
	if err := validateIDs(projectID); err != nil {
		return err
	}
	rows, err := s.repo.Team.DeleteByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("删除项目团队失败", zap.String("project_id", projectID), zap.Error(err))
		return err
	}
	if rows == 0 {
		return ErrTeamNotFound
	}
	s.logger.Info("项目团队已删除", zap.String("project_id", projectID))
	return nil
}

// ═══════════════════════════════════════════════════════════
// 漂移修复
// ═══════════════════════════════════════════════════════════

func (s *teamService) ReconcileManagers(ctx context.Context) (int, error) {
	drifts, err := s.repo.Team.ListManagerDrift(ctx)
	if err != nil {
		s.logger.Error("查询经理漂移失败", zap.Error(err))
		return 0, err
	}

	repaired := 0
	for _, d := range drifts {
		projectID := d.ProjectID
		// 列出漂移后团队可能已被删除或已被其他写入修正，此时不计数
		var changed bool
		err := s.writeTeam(ctx, projectID, func(tx *repository.Repository) error {
			changed = false
			project, err := s.getProject(ctx, tx, projectID)
			if err != nil {
				return err
			}
			team, exists, err := loadTeam(ctx, tx, projectID)
			if err != nil || !exists {
				return err
			}
			if sameID(project.ManagerID, team.ManagerID) {
				return nil
			}
			team.ManagerID = project.ManagerID
			if err := tx.Team.Update(ctx, team); err != nil {
				return err
			}
			changed = true
			return nil
		})
		if err != nil {
			s.logger.Warn("修复经理漂移失败", zap.String("project_id", projectID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		repaired++
		s.logger.Info("已修复团队经理漂移", zap.String("project_id", projectID))
	}

	refreshed, err := s.repo.Project.RefreshManagerEmails(ctx)
	if err != nil {
		s.logger.Error("刷新经理邮箱缓存失败", zap.Error(err))
		return repaired, err
	}
	if refreshed > 0 {
		s.logger.Info("已刷新经理邮箱缓存", zap.Int64("projects", refreshed))
	}
	return repaired + int(refreshed), nil
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
