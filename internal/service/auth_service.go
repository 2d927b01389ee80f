package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
	"projecthub/pkg/jwt"
)

var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.ErrUnauthenticated, "Invalid email or password")
	ErrEmailTaken         = pkgerrors.New(pkgerrors.ErrConflict, "Email already registered")
	ErrInvalidRole        = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Role must be manager or developer")
	ErrManagerOnlyForDev  = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Only developers can report to a manager")
)

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Token 的 jti 加入黑名单直至其过期；未配置黑名单时为空操作
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	// SeedAdmin 创建管理员账号，仅供命令行使用
	SeedAdmin(ctx context.Context, name, email, password string) (*dto.UserResponse, error)
}

type authService struct {
	repo       *repository.Repository
	jwtMgr     *jwt.Manager
	blacklist  TokenBlacklist
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:       repo,
		jwtMgr:     jwtMgr,
		blacklist:  blacklist,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleDeveloper
	}
	if role != model.RoleManager && role != model.RoleDeveloper {
		return nil, ErrInvalidRole
	}

	var managerID *string
	if req.ManagerID != nil && *req.ManagerID != "" {
		if role != model.RoleDeveloper {
			return nil, ErrManagerOnlyForDev
		}
		if err := validateIDs(*req.ManagerID); err != nil {
			return nil, err
		}
		if _, err := s.repo.User.GetByIDAndRole(ctx, *req.ManagerID, model.RoleManager); err != nil {
			if isNotFound(err) {
				return nil, ErrManagerNotFound
			}
			s.logger.Error("查询经理失败", zap.Error(err))
			return nil, err
		}
		id := *req.ManagerID
		managerID = &id
	}

	user, err := s.createUser(ctx, strings.TrimSpace(req.Name), req.Email, req.Password, role, managerID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) SeedAdmin(ctx context.Context, name, email, password string) (*dto.UserResponse, error) {
	user, err := s.createUser(ctx, strings.TrimSpace(name), email, password, model.RoleAdmin, nil)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) createUser(ctx context.Context, name, email, password, role string, managerID *string) (*model.User, error) {
	email = normalizeEmail(email)

	// 1. 邮箱唯一
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !isNotFound(err) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	// 2. 密码哈希 (bcrypt)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		ManagerID:    managerID,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发注册同一邮箱时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已注册", zap.String("user_id", user.UserID), zap.String("role", role))
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role, user.Email)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        toUserResponse(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}
