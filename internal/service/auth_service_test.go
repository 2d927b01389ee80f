package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"projecthub/config"
	"projecthub/internal/dto"
	"projecthub/internal/model"
	pkgerrors "projecthub/pkg/errors"
	"projecthub/pkg/jwt"
)

// ── 测试辅助 ──

// fakeBlacklist 内存 Token 黑名单
type fakeBlacklist struct {
	entries map[string]time.Duration
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.entries[jti] = ttl
	return nil
}

func setupTestAuthService() (*authService, *testStore, *jwt.Manager, *fakeBlacklist) {
	st := newTestStore()
	cfg := &config.AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026", AccessTokenTTL: time.Hour}
	jwtMgr := jwt.NewManager(cfg)
	bl := &fakeBlacklist{entries: map[string]time.Duration{}}

	svc := NewAuthService(st.repo, jwtMgr, bl, zap.NewNop()).(*authService)
	svc.bcryptCost = bcrypt.MinCost
	return svc, st, jwtMgr, bl
}

// ═══════════════════════════════════════════════════════════
// Register
// ═══════════════════════════════════════════════════════════

func TestRegister_DefaultsToDeveloper(t *testing.T) {
	svc, st, _, _ := setupTestAuthService()

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Dan",
		Email:    "  Dan@Example.com ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.Role != model.RoleDeveloper {
		t.Errorf("默认角色应为 developer，实际 %s", resp.Role)
	}
	if resp.Email != "dan@example.com" {
		t.Errorf("邮箱应规范化为小写，实际 %s", resp.Email)
	}

	stored, _ := st.users.GetByID(context.Background(), resp.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")) != nil {
		t.Error("密码应以 bcrypt 哈希存储")
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	svc, st, _, _ := setupTestAuthService()
	st.addUser("Dan", "dan@example.com", model.RoleDeveloper)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Other", Email: "DAN@example.com", Password: "password123",
	})
	if !errors.Is(err, ErrEmailTaken) || !errors.Is(err, pkgerrors.ErrConflict) {
		t.Errorf("期望 ErrEmailTaken，实际: %v", err)
	}
}

func TestRegister_RoleRules(t *testing.T) {
	svc, st, _, _ := setupTestAuthService()
	ctx := context.Background()
	mgr := st.addUser("Mia", "mia@example.com", model.RoleManager)
	dev := st.addUser("Dan", "dan@example.com", model.RoleDeveloper)

	_, err := svc.Register(ctx, &dto.RegisterRequest{Name: "Root", Email: "root@example.com", Password: "password123", Role: model.RoleAdmin})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("注册接口不允许创建 admin，实际: %v", err)
	}

	_, err = svc.Register(ctx, &dto.RegisterRequest{
		Name: "Max", Email: "max@example.com", Password: "password123", Role: model.RoleManager, ManagerID: &mgr.UserID,
	})
	if !errors.Is(err, ErrManagerOnlyForDev) {
		t.Errorf("期望 ErrManagerOnlyForDev，实际: %v", err)
	}

	_, err = svc.Register(ctx, &dto.RegisterRequest{
		Name: "Eve", Email: "eve@example.com", Password: "password123", ManagerID: &dev.UserID,
	})
	if !errors.Is(err, ErrManagerNotFound) {
		t.Errorf("汇报对象必须是经理，实际: %v", err)
	}

	resp, err := svc.Register(ctx, &dto.RegisterRequest{
		Name: "Eve", Email: "eve@example.com", Password: "password123", ManagerID: &mgr.UserID,
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.ManagerID == nil || *resp.ManagerID != mgr.UserID {
		t.Errorf("manager_id 错误: %v", deref(resp.ManagerID))
	}
}

func TestSeedAdmin(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	resp, err := svc.SeedAdmin(context.Background(), "Root", "root@example.com", "password123")
	if err != nil {
		t.Fatalf("SeedAdmin 应成功: %v", err)
	}
	if resp.Role != model.RoleAdmin {
		t.Errorf("期望 admin，实际 %s", resp.Role)
	}
}

// ═══════════════════════════════════════════════════════════
// Login / Logout / Me
// ═══════════════════════════════════════════════════════════

func TestLogin(t *testing.T) {
	svc, _, jwtMgr, _ := setupTestAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Name: "Dan", Email: "dan@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}

	tok, err := svc.Login(ctx, &dto.LoginRequest{Email: "DAN@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != 3600 {
		t.Errorf("token_type / expires_in 错误: %s / %d", tok.TokenType, tok.ExpiresIn)
	}
	claims, err := jwtMgr.ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("签发的 Token 应可解析: %v", err)
	}
	if claims.UserID != reg.ID || claims.Role != model.RoleDeveloper {
		t.Errorf("Token 声明错误: %+v", claims)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, &dto.RegisterRequest{Name: "Dan", Email: "dan@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}

	for _, req := range []dto.LoginRequest{
		{Email: "dan@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password123"},
	} {
		_, err := svc.Login(ctx, &req)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
		}
		if !errors.Is(err, pkgerrors.ErrUnauthenticated) {
			t.Errorf("登录失败应归类为 Unauthenticated")
		}
	}
}

func TestLogout(t *testing.T) {
	svc, _, _, bl := setupTestAuthService()
	ctx := context.Background()

	if err := svc.Logout(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if ttl, ok := bl.entries["jti-1"]; !ok || ttl <= 0 {
		t.Errorf("jti 应加入黑名单，实际 %v", bl.entries)
	}

	// 已过期的 Token 无需入黑名单
	if err := svc.Logout(ctx, "jti-2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if _, ok := bl.entries["jti-2"]; ok {
		t.Error("过期 Token 不应写入黑名单")
	}

	// 未配置黑名单时为空操作
	svc.blacklist = nil
	if err := svc.Logout(ctx, "jti-3", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("无黑名单时 Logout 不应报错: %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, st, _, _ := setupTestAuthService()
	u := st.addUser("Dan", "dan@example.com", model.RoleDeveloper)

	resp, err := svc.Me(context.Background(), u.UserID)
	if err != nil || resp.Email != u.Email {
		t.Errorf("Me 结果错误: %v / %v", resp, err)
	}
	if _, err := svc.Me(context.Background(), "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
