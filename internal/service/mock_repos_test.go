package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 内存存储 ──
// 每个 mock 自带互斥锁，读写均返回副本，行为与数据库一致：
// 调用方修改返回值不会影响存储，必须显式写回

type testStore struct {
	repo      *repository.Repository
	users     *mockUserRepo
	projects  *mockProjectRepo
	teams     *mockTeamRepo
	modules   *mockModuleRepo
	statuses  *mockStatusRepo
	tasks     *mockTaskRepo
	userTasks *mockUserTaskRepo
	outbox    *mockOutboxRepo
}

func newTestStore() *testStore {
	st := &testStore{
		users:     &mockUserRepo{users: map[string]model.User{}},
		projects:  &mockProjectRepo{projects: map[string]model.Project{}},
		teams:     &mockTeamRepo{teams: map[string]model.ProjectTeam{}},
		modules:   &mockModuleRepo{modules: map[string]model.Module{}},
		statuses:  &mockStatusRepo{statuses: map[string]model.Status{}},
		tasks:     &mockTaskRepo{tasks: map[string]model.Task{}},
		userTasks: &mockUserTaskRepo{rows: map[string]model.UserTask{}},
		outbox:    &mockOutboxRepo{},
	}
	st.users.userTasks = st.userTasks
	st.projects.users = st.users
	st.teams.projects = st.projects
	st.tasks.userTasks = st.userTasks

	// db 为 nil：Transaction 直接执行回调
	st.repo = &repository.Repository{
		User:     st.users,
		Project:  st.projects,
		Team:     st.teams,
		Module:   st.modules,
		Status:   st.statuses,
		Task:     st.tasks,
		UserTask: st.userTasks,
		Outbox:   st.outbox,
	}
	return st
}

func (st *testStore) addUser(name, email, role string) *model.User {
	u := model.User{UserID: uuid.NewString(), Name: name, Email: email, Role: role, PasswordHash: "x"}
	st.users.mu.Lock()
	st.users.users[u.UserID] = u
	st.users.mu.Unlock()
	return &u
}

func (st *testStore) addProject(title string, manager *model.User) *model.Project {
	p := model.Project{ProjectID: uuid.NewString(), Title: title}
	if manager != nil {
		id, email := manager.UserID, manager.Email
		p.ManagerID = &id
		p.ManagerEmail = &email
	}
	st.projects.mu.Lock()
	st.projects.projects[p.ProjectID] = p
	st.projects.mu.Unlock()
	return &p
}

func (st *testStore) addStatus(label string) *model.Status {
	s := model.Status{StatusID: uuid.NewString(), Label: label, BaseModel: model.BaseModel{CreatedAt: time.Now()}}
	st.statuses.mu.Lock()
	st.statuses.statuses[s.StatusID] = s
	st.statuses.mu.Unlock()
	return &s
}

func (st *testStore) addModule(project *model.Project, name string) *model.Module {
	m := model.Module{ModuleID: uuid.NewString(), ProjectID: project.ProjectID, ProjectName: project.Title, Name: name, EstimatedHours: 8}
	st.modules.mu.Lock()
	st.modules.modules[m.ModuleID] = m
	st.modules.mu.Unlock()
	return &m
}

func (st *testStore) addTask(module *model.Module, title string) *model.Task {
	t := model.Task{TaskID: uuid.NewString(), Title: title, Priority: "medium", ModuleID: module.ModuleID, ProjectID: module.ProjectID}
	st.tasks.mu.Lock()
	st.tasks.tasks[t.TaskID] = t
	st.tasks.mu.Unlock()
	return &t
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]model.User
	userTasks *mockUserTaskRepo
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDAndRole(ctx context.Context, id, role string) (*model.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmailAndRole(ctx context.Context, email, role string) (*model.User, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockUserRepo) filter(keep func(model.User) bool) []model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	all := m.filter(func(u model.User) bool { return role == "" || u.Role == role })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	return m.filter(func(u model.User) bool { return u.Role == role }), nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	set := toSet(ids)
	return m.filter(func(u model.User) bool { return set[u.UserID] }), nil
}

func (m *mockUserRepo) ListByManager(_ context.Context, managerID string) ([]model.User, error) {
	return m.filter(func(u model.User) bool {
		return u.Role == model.RoleDeveloper && u.ManagerID != nil && *u.ManagerID == managerID
	}), nil
}

func (m *mockUserRepo) ListByTask(ctx context.Context, taskID string) ([]model.User, error) {
	uts, _ := m.userTasks.ListByTask(ctx, taskID)
	ids := make([]string, 0, len(uts))
	for _, ut := range uts {
		ids = append(ids, ut.UserID)
	}
	return m.ListByIDs(ctx, ids)
}

func (m *mockUserRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return 0, nil
	}
	delete(m.users, id)
	return 1, nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	mu       sync.Mutex
	projects map[string]model.Project
	users    *mockUserRepo

	setManagerCalls int
	// 为 true 时对应写入报告 0 行受影响，模拟并发删除
	setManagerNoRows bool
	deleteNoRows     bool
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.ProjectID == "" {
		project.ProjectID = uuid.NewString()
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.projects[project.ProjectID] = *project
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) filter(keep func(model.Project) bool) []model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Project
	for _, p := range m.projects {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (m *mockProjectRepo) List(_ context.Context, offset, limit int) ([]model.Project, int64, error) {
	all := m.filter(func(model.Project) bool { return true })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Project{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockProjectRepo) ListByManager(_ context.Context, managerID string) ([]model.Project, error) {
	return m.filter(func(p model.Project) bool { return p.ManagerID != nil && *p.ManagerID == managerID }), nil
}

func (m *mockProjectRepo) ListByIDs(_ context.Context, ids []string) ([]model.Project, error) {
	set := toSet(ids)
	return m.filter(func(p model.Project) bool { return set[p.ProjectID] }), nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[project.ProjectID]
	if !ok {
		return nil
	}
	p.Title = project.Title
	p.Description = project.Description
	p.Technology = project.Technology
	p.EstimatedHours = project.EstimatedHours
	p.StartDate = project.StartDate
	p.CompletionDate = project.CompletionDate
	m.projects[p.ProjectID] = p
	return nil
}

func (m *mockProjectRepo) SetManager(_ context.Context, projectID string, managerID, managerEmail *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setManagerCalls++
	p, ok := m.projects[projectID]
	if !ok || m.setManagerNoRows {
		return 0, nil
	}
	p.ManagerID = copyStr(managerID)
	p.ManagerEmail = copyStr(managerEmail)
	m.projects[projectID] = p
	return 1, nil
}

func (m *mockProjectRepo) ClearManagerEverywhere(_ context.Context, managerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.projects {
		if p.ManagerID != nil && *p.ManagerID == managerID {
			p.ManagerID, p.ManagerEmail = nil, nil
			m.projects[id] = p
			n++
		}
	}
	return n, nil
}

func (m *mockProjectRepo) RefreshManagerEmails(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.projects {
		if p.ManagerID == nil {
			if p.ManagerEmail != nil {
				p.ManagerEmail = nil
				m.projects[id] = p
				n++
			}
			continue
		}
		u, err := m.users.GetByID(ctx, *p.ManagerID)
		if err != nil {
			continue
		}
		if p.ManagerEmail == nil || *p.ManagerEmail != u.Email {
			email := u.Email
			p.ManagerEmail = &email
			m.projects[id] = p
			n++
		}
	}
	return n, nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok || m.deleteNoRows {
		return 0, nil
	}
	delete(m.projects, id)
	return 1, nil
}

// ── Mock ProjectTeamRepository ──
// Update 与 GORM 实现一致：以 version 为条件写入，冲突返回 ErrOptimisticLock

type mockTeamRepo struct {
	mu       sync.Mutex
	teams    map[string]model.ProjectTeam // key: team_id
	projects *mockProjectRepo

	// beforeUpdate 在版本校验前调用，用于模拟并发写入
	beforeUpdate func(team *model.ProjectTeam)
	// afterDriftList 在返回漂移列表后调用，用于模拟修复前的并发删除
	afterDriftList func()
	conflicts    int
}

func cloneTeam(t model.ProjectTeam) model.ProjectTeam {
	t.Developers = append(model.StringArray{}, t.Developers...)
	t.ManagerID = copyStr(t.ManagerID)
	return t
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.ProjectTeam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.ProjectID == team.ProjectID {
			return gorm.ErrDuplicatedKey
		}
	}
	if team.TeamID == "" {
		team.TeamID = uuid.NewString()
	}
	if team.Developers == nil {
		team.Developers = model.StringArray{}
	}
	team.Version = 1
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	m.teams[team.TeamID] = cloneTeam(*team)
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, teamID string) (*model.ProjectTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[teamID]; ok {
		c := cloneTeam(t)
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) GetByProject(_ context.Context, projectID string) (*model.ProjectTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.ProjectID == projectID {
			c := cloneTeam(t)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) List(_ context.Context) ([]model.ProjectTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProjectTeam, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, cloneTeam(t))
	}
	return out, nil
}

func (m *mockTeamRepo) ListByDeveloper(_ context.Context, developerID string) ([]model.ProjectTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ProjectTeam
	for _, t := range m.teams {
		if t.Developers.Contains(developerID) {
			out = append(out, cloneTeam(t))
		}
	}
	return out, nil
}

func (m *mockTeamRepo) Update(_ context.Context, team *model.ProjectTeam) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(team)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.teams[team.TeamID]
	if !ok || stored.Version != team.Version {
		m.conflicts++
		return pkgerrors.ErrOptimisticLock
	}
	team.Version++
	team.UpdatedAt = time.Now()
	m.teams[team.TeamID] = cloneTeam(*team)
	return nil
}

func (m *mockTeamRepo) DeleteByID(_ context.Context, teamID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[teamID]; !ok {
		return 0, nil
	}
	delete(m.teams, teamID)
	return 1, nil
}

func (m *mockTeamRepo) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.teams {
		if t.ProjectID == projectID {
			delete(m.teams, id)
			n++
		}
	}
	return n, nil
}

func (m *mockTeamRepo) RemoveDeveloperEverywhere(_ context.Context, developerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.teams {
		if t.Developers.Contains(developerID) {
			t.Developers = t.Developers.Without(developerID)
			t.Version++
			m.teams[id] = t
			n++
		}
	}
	return n, nil
}

func (m *mockTeamRepo) ClearManagerEverywhere(_ context.Context, managerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.teams {
		if t.ManagerID != nil && *t.ManagerID == managerID {
			t.ManagerID = nil
			t.Version++
			m.teams[id] = t
			n++
		}
	}
	return n, nil
}

func (m *mockTeamRepo) ListManagerDrift(ctx context.Context) ([]repository.ManagerDrift, error) {
	teams, _ := m.List(ctx)
	var out []repository.ManagerDrift
	for _, t := range teams {
		p, err := m.projects.GetByID(ctx, t.ProjectID)
		if err != nil {
			continue
		}
		if !sameID(p.ManagerID, t.ManagerID) {
			out = append(out, repository.ManagerDrift{
				ProjectID:        p.ProjectID,
				ProjectManagerID: p.ManagerID,
				TeamID:           t.TeamID,
				TeamManagerID:    t.ManagerID,
				TeamVersion:      t.Version,
			})
		}
	}
	if m.afterDriftList != nil {
		m.afterDriftList()
	}
	return out, nil
}

// ── Mock ModuleRepository ──

type mockModuleRepo struct {
	mu      sync.Mutex
	modules map[string]model.Module

	deleteErr error
}

func (m *mockModuleRepo) Create(_ context.Context, module *model.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if module.ModuleID == "" {
		module.ModuleID = uuid.NewString()
	}
	module.CreatedAt = time.Now()
	m.modules[module.ModuleID] = *module
	return nil
}

func (m *mockModuleRepo) GetByID(_ context.Context, id string) (*model.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mod, ok := m.modules[id]; ok {
		return &mod, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockModuleRepo) ListByProject(_ context.Context, projectID string) ([]model.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Module
	for _, mod := range m.modules {
		if mod.ProjectID == projectID {
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockModuleRepo) Update(_ context.Context, module *model.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[module.ModuleID]; ok {
		m.modules[module.ModuleID] = *module
	}
	return nil
}

func (m *mockModuleRepo) RenameProject(_ context.Context, projectID, projectName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, mod := range m.modules {
		if mod.ProjectID == projectID {
			mod.ProjectName = projectName
			m.modules[id] = mod
			n++
		}
	}
	return n, nil
}

func (m *mockModuleRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	if _, ok := m.modules[id]; !ok {
		return 0, nil
	}
	delete(m.modules, id)
	return 1, nil
}

func (m *mockModuleRepo) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, mod := range m.modules {
		if mod.ProjectID == projectID {
			delete(m.modules, id)
			n++
		}
	}
	return n, nil
}

// ── Mock StatusRepository ──

type mockStatusRepo struct {
	mu       sync.Mutex
	statuses map[string]model.Status
}

func (m *mockStatusRepo) Create(_ context.Context, status *model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status.StatusID == "" {
		status.StatusID = uuid.NewString()
	}
	status.CreatedAt = time.Now()
	m.statuses[status.StatusID] = *status
	return nil
}

func (m *mockStatusRepo) GetByID(_ context.Context, id string) (*model.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.statuses[id]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStatusRepo) GetByLabel(_ context.Context, label string) (*model.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.Status
	for _, s := range m.statuses {
		if s.Label == label && (found == nil || s.CreatedAt.Before(found.CreatedAt)) {
			c := s
			found = &c
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return found, nil
}

func (m *mockStatusRepo) List(_ context.Context) ([]model.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Status, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *mockStatusRepo) Update(_ context.Context, status *model.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[status.StatusID]
	if !ok {
		return 0, nil
	}
	s.Label = status.Label
	m.statuses[s.StatusID] = s
	return 1, nil
}

func (m *mockStatusRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statuses[id]; !ok {
		return 0, nil
	}
	delete(m.statuses, id)
	return 1, nil
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]model.Task
	userTasks *mockUserTaskRepo
}

func (m *mockTaskRepo) Create(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	task.CreatedAt = time.Now()
	m.tasks[task.TaskID] = *task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) filter(keep func(model.Task) bool) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Task
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (m *mockTaskRepo) ListByProject(_ context.Context, projectID string) ([]model.Task, error) {
	return m.filter(func(t model.Task) bool { return t.ProjectID == projectID }), nil
}

func (m *mockTaskRepo) ListIDsByProject(ctx context.Context, projectID string) ([]string, error) {
	tasks, _ := m.ListByProject(ctx, projectID)
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.TaskID)
	}
	return ids, nil
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID, projectID string) ([]model.Task, error) {
	uts, _ := m.userTasks.ListByUser(ctx, userID)
	ids := make(map[string]bool, len(uts))
	for _, ut := range uts {
		ids[ut.TaskID] = true
	}
	return m.filter(func(t model.Task) bool {
		return ids[t.TaskID] && (projectID == "" || t.ProjectID == projectID)
	}), nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.TaskID]; ok {
		m.tasks[task.TaskID] = *task
	}
	return nil
}

func (m *mockTaskRepo) UpdateStatus(_ context.Context, id, statusID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return 0, nil
	}
	sid := statusID
	t.StatusID = &sid
	m.tasks[id] = t
	return 1, nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return 0, nil
	}
	delete(m.tasks, id)
	return 1, nil
}

func (m *mockTaskRepo) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tasks {
		if t.ProjectID == projectID {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

// ── Mock UserTaskRepository ──

type mockUserTaskRepo struct {
	mu   sync.Mutex
	rows map[string]model.UserTask // key: user_task_id
}

func (m *mockUserTaskRepo) Create(_ context.Context, ut *model.UserTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == ut.UserID && r.TaskID == ut.TaskID {
			return gorm.ErrDuplicatedKey
		}
	}
	if ut.UserTaskID == "" {
		ut.UserTaskID = uuid.NewString()
	}
	ut.CreatedAt = time.Now()
	m.rows[ut.UserTaskID] = *ut
	return nil
}

func (m *mockUserTaskRepo) Get(_ context.Context, userID, taskID string) (*model.UserTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.TaskID == taskID {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserTaskRepo) filter(keep func(model.UserTask) bool) []model.UserTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserTask
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockUserTaskRepo) ListByUser(_ context.Context, userID string) ([]model.UserTask, error) {
	return m.filter(func(r model.UserTask) bool { return r.UserID == userID }), nil
}

func (m *mockUserTaskRepo) ListByTask(_ context.Context, taskID string) ([]model.UserTask, error) {
	return m.filter(func(r model.UserTask) bool { return r.TaskID == taskID }), nil
}

func (m *mockUserTaskRepo) deleteWhere(match func(model.UserTask) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if match(r) {
			delete(m.rows, id)
			n++
		}
	}
	return n
}

func (m *mockUserTaskRepo) Delete(_ context.Context, userID, taskID string) (int64, error) {
	return m.deleteWhere(func(r model.UserTask) bool { return r.UserID == userID && r.TaskID == taskID }), nil
}

func (m *mockUserTaskRepo) DeleteByTask(_ context.Context, taskID string) (int64, error) {
	return m.deleteWhere(func(r model.UserTask) bool { return r.TaskID == taskID }), nil
}

func (m *mockUserTaskRepo) DeleteByTaskIDs(_ context.Context, taskIDs []string) (int64, error) {
	set := toSet(taskIDs)
	return m.deleteWhere(func(r model.UserTask) bool { return set[r.TaskID] }), nil
}

func (m *mockUserTaskRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return m.deleteWhere(func(r model.UserTask) bool { return r.UserID == userID }), nil
}

// ── Mock NotificationEventRepository ──

type mockOutboxRepo struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

func (m *mockOutboxRepo) Create(_ context.Context, events ...*model.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		if e.EventID == "" {
			e.EventID = uuid.NewString()
		}
		e.CreatedAt = time.Now()
		m.events = append(m.events, *e)
	}
	return nil
}

func (m *mockOutboxRepo) Claim(_ context.Context, limit, maxAttempts int, _ time.Duration) ([]model.NotificationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.NotificationEvent
	for i := range m.events {
		if len(out) >= limit {
			break
		}
		if m.events[i].Status == model.EventStatusPending && m.events[i].Attempts < maxAttempts {
			m.events[i].Status = model.EventStatusSending
			m.events[i].Attempts++
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *mockOutboxRepo) MarkSent(_ context.Context, eventID string) error {
	return m.set(eventID, model.EventStatusSent, nil)
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, eventID, lastError string, final bool) error {
	status := model.EventStatusPending
	if final {
		status = model.EventStatusFailed
	}
	return m.set(eventID, status, &lastError)
}

func (m *mockOutboxRepo) set(eventID, status string, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].EventID == eventID {
			m.events[i].Status = status
			m.events[i].LastError = lastError
		}
	}
	return nil
}

func (m *mockOutboxRepo) ListByProject(_ context.Context, projectID string, limit int) ([]model.NotificationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.NotificationEvent
	for _, e := range m.events {
		if e.ProjectID != nil && *e.ProjectID == projectID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOutboxRepo) ListByStatus(_ context.Context, status string, offset, limit int) ([]model.NotificationEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.NotificationEvent
	for _, e := range m.events {
		if status == "" || e.Status == status {
			all = append(all, e)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.NotificationEvent{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// byType 按事件类型筛选已写入的发件箱事件
func (m *mockOutboxRepo) byType(typ string) []model.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.NotificationEvent
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ── 辅助函数 ──

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
