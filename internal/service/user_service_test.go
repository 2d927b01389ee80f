package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	pkgerrors "projecthub/pkg/errors"
)

func setupTestUserService() (*userService, *testStore) {
	st := newTestStore()
	svc := NewUserService(st.repo, zap.NewNop()).(*userService)
	svc.bcryptCost = bcrypt.MinCost
	return svc, st
}

// ═══════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════

func TestGetUser(t *testing.T) {
	svc, st := setupTestUserService()
	u := st.addUser("Dan", "dan@example.com", model.RoleDeveloper)

	resp, err := svc.Get(context.Background(), u.UserID)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if resp.Email != u.Email {
		t.Errorf("期望 %s，实际 %s", u.Email, resp.Email)
	}
	if _, err := svc.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestListUsers(t *testing.T) {
	svc, st := setupTestUserService()
	ctx := context.Background()
	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	d1 := st.addUser("D1", "d1@example.com", model.RoleDeveloper)
	st.addUser("D2", "d2@example.com", model.RoleDeveloper)

	st.users.mu.Lock()
	u := st.users.users[d1.UserID]
	u.ManagerID = &mgr.UserID
	st.users.users[d1.UserID] = u
	st.users.mu.Unlock()

	list, total, err := svc.List(ctx, &dto.UserListRequest{Role: model.RoleDeveloper})
	if err != nil || total != 2 || len(list) != 2 {
		t.Errorf("期望 2 个开发者，实际 %d / %v", total, err)
	}
	managers, err := svc.ListManagers(ctx)
	if err != nil || len(managers) != 1 {
		t.Errorf("期望 1 个经理，实际 %d / %v", len(managers), err)
	}
	devs, err := svc.ListDevelopers(ctx)
	if err != nil || len(devs) != 2 {
		t.Errorf("期望 2 个开发者，实际 %d / %v", len(devs), err)
	}
	reports, err := svc.ListDevelopersByManager(ctx, mgr.UserID)
	if err != nil || len(reports) != 1 || reports[0].ID != d1.UserID {
		t.Errorf("期望经理名下只有 D1，实际 %v / %v", reports, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Delete
// ═══════════════════════════════════════════════════════════

func TestDeleteUser_Developer(t *testing.T) {
	svc, st := setupTestUserService()
	ctx := context.Background()
	admin := st.addUser("Root", "root@example.com", model.RoleAdmin)
	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	dev := st.addUser("Dan", "dan@example.com", model.RoleDeveloper)
	p := st.addProject("Apollo", mgr)
	task := st.addTask(st.addModule(p, "Backend"), "API")
	st.userTasks.Create(ctx, &model.UserTask{UserID: dev.UserID, TaskID: task.TaskID})
	st.teams.Create(ctx, &model.ProjectTeam{ProjectID: p.ProjectID, ManagerID: &mgr.UserID, Developers: model.StringArray{dev.UserID}})

	if err := svc.Delete(ctx, dev.UserID, admin.UserID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := st.users.GetByID(ctx, dev.UserID); err == nil {
		t.Error("用户应被删除")
	}
	if uts, _ := st.userTasks.ListByUser(ctx, dev.UserID); len(uts) != 0 {
		t.Error("任务指派应被清理")
	}
	team, _ := st.teams.GetByProject(ctx, p.ProjectID)
	if team.Developers.Contains(dev.UserID) {
		t.Error("团队中不应再包含已删除的开发者")
	}
}

func TestDeleteUser_ManagerClearsBothMirrors(t *testing.T) {
	svc, st := setupTestUserService()
	ctx := context.Background()
	admin := st.addUser("Root", "root@example.com", model.RoleAdmin)
	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	p := st.addProject("Apollo", mgr)
	st.teams.Create(ctx, &model.ProjectTeam{ProjectID: p.ProjectID, ManagerID: &mgr.UserID})

	if err := svc.Delete(ctx, mgr.UserID, admin.UserID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	assertManagerMirrors(t, st, p.ProjectID, nil)
	got, _ := st.projects.GetByID(ctx, p.ProjectID)
	if got.ManagerEmail != nil {
		t.Errorf("manager_email 应一并清空，实际 %s", *got.ManagerEmail)
	}
}

func TestDeleteUser_Self(t *testing.T) {
	svc, st := setupTestUserService()
	admin := st.addUser("Root", "root@example.com", model.RoleAdmin)

	err := svc.Delete(context.Background(), admin.UserID, admin.UserID)
	if !errors.Is(err, ErrUserSelfDelete) || !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("期望 ErrUserSelfDelete，实际: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	svc, _ := setupTestUserService()
	err := svc.Delete(context.Background(), uuid.NewString(), uuid.NewString())
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Import
// ═══════════════════════════════════════════════════════════

func buildImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("写入测试行失败: %v", err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成测试文件失败: %v", err)
	}
	return buf
}

func TestParseImportFile(t *testing.T) {
	svc, _ := setupTestUserService()

	buf := buildImportFile(t, [][]interface{}{
		{"邮箱", "姓名", "Role", "Manager Email"},
		{"a@example.com", "Alice", "Developer", "mia@example.com"},
		{"", "", "", ""},
		{"b@example.com", "Bob"},
	})
	rows, err := svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("空行应被跳过，期望 2 行，实际 %d", len(rows))
	}
	if rows[0].Name != "Alice" || rows[0].Email != "a@example.com" || rows[0].Role != "developer" || rows[0].ManagerEmail != "mia@example.com" {
		t.Errorf("第一行解析错误: %+v", rows[0])
	}
	if rows[1].Row != 4 || rows[1].Role != "" {
		t.Errorf("第二行解析错误: %+v", rows[1])
	}
}

func TestParseImportFile_Errors(t *testing.T) {
	svc, _ := setupTestUserService()

	_, err := svc.ParseImportFile(bytes.NewReader([]byte("not an xlsx")))
	if !errors.Is(err, ErrImportBadFile) {
		t.Errorf("期望 ErrImportBadFile，实际: %v", err)
	}

	_, err = svc.ParseImportFile(buildImportFile(t, [][]interface{}{{"name", "email"}}))
	if !errors.Is(err, ErrImportNoData) {
		t.Errorf("期望 ErrImportNoData，实际: %v", err)
	}

	_, err = svc.ParseImportFile(buildImportFile(t, [][]interface{}{{"name", "phone"}, {"Alice", "123"}}))
	if !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader，实际: %v", err)
	}
}

func TestImportUsers(t *testing.T) {
	svc, st := setupTestUserService()
	ctx := context.Background()
	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	st.addUser("Old", "old@example.com", model.RoleDeveloper)

	resp, err := svc.ImportUsers(ctx, []ImportUserRow{
		{Row: 2, Name: "Alice", Email: "Alice@Example.com", ManagerEmail: "mia@example.com"},
		{Row: 3, Name: "Bob", Email: "bob@example.com", Role: "manager"},
		{Row: 4, Name: "Dup", Email: "alice@example.com"},
		{Row: 5, Name: "Old", Email: "old@example.com"},
		{Row: 6, Name: "Root", Email: "root@example.com", Role: "admin"},
		{Row: 7, Name: "Lost", Email: "lost@example.com", ManagerEmail: "ghost@example.com"},
		{Row: 8, Name: "", Email: "noname@example.com"},
	})
	if err != nil {
		t.Fatalf("ImportUsers 应成功: %v", err)
	}
	if resp.Total != 7 || resp.Success != 2 || resp.Failed != 5 {
		t.Errorf("期望 7/2/5，实际 %d/%d/%d: %+v", resp.Total, resp.Success, resp.Failed, resp.Errors)
	}

	alice, err := st.users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Alice 应已创建: %v", err)
	}
	if alice.ManagerID == nil || *alice.ManagerID != mgr.UserID {
		t.Errorf("Alice 的经理应为 Mia，实际 %v", deref(alice.ManagerID))
	}

	// 返回的临时密码能通过 bcrypt 校验
	for _, c := range resp.Created {
		u, err := st.users.GetByEmail(ctx, c.Email)
		if err != nil {
			t.Fatalf("查询导入用户失败: %v", err)
		}
		if len(c.TempPassword) != 12 {
			t.Errorf("临时密码长度应为 12，实际 %d", len(c.TempPassword))
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.TempPassword)) != nil {
			t.Errorf("第 %d 行临时密码与哈希不匹配", c.Row)
		}
	}
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := generateTempPassword(4)
	if err != nil {
		t.Fatalf("generateTempPassword 应成功: %v", err)
	}
	if len(pw) != 8 {
		t.Errorf("长度下限为 8，实际 %d", len(pw))
	}
}
