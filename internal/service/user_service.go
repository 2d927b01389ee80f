package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfDelete   = pkgerrors.New(pkgerrors.ErrForbidden, "You cannot delete your own account")
	ErrUserDeleteFailed = pkgerrors.New(pkgerrors.ErrWriteFailed, "Failed to delete user")
)

// UserService 用户业务接口
type UserService interface {
	Get(ctx context.Context, userID string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	ListManagers(ctx context.Context) ([]dto.UserResponse, error)
	ListDevelopers(ctx context.Context) ([]dto.UserResponse, error)
	ListDevelopersByManager(ctx context.Context, managerID string) ([]dto.UserResponse, error)
	// Delete 删除用户，并在同一事务中清理其任务指派、团队成员身份与经理职务
	Delete(ctx context.Context, userID, callerID string) error

	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row          int
	Name         string
	Email        string
	Role         string
	ManagerEmail string
}

type userService struct {
	repo       *repository.Repository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, bcryptCost: bcrypt.DefaultCost, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *userService) Get(ctx context.Context, userID string) (*dto.UserResponse, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, req.Role, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}
	return toUserResponses(users), total, nil
}

func (s *userService) ListManagers(ctx context.Context) ([]dto.UserResponse, error) {
	return s.listByRole(ctx, model.RoleManager)
}

func (s *userService) ListDevelopers(ctx context.Context) ([]dto.UserResponse, error) {
	return s.listByRole(ctx, model.RoleDeveloper)
}

func (s *userService) listByRole(ctx context.Context, role string) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListByRole(ctx, role)
	if err != nil {
		s.logger.Error("按角色列出用户失败", zap.String("role", role), zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *userService) ListDevelopersByManager(ctx context.Context, managerID string) ([]dto.UserResponse, error) {
	if err := validateIDs(managerID); err != nil {
		return nil, err
	}
	users, err := s.repo.User.ListByManager(ctx, managerID)
	if err != nil {
		s.logger.Error("查询经理下属开发者失败", zap.String("manager_id", managerID), zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, userID, callerID string) error {
	if err := validateIDs(userID); err != nil {
		return err
	}
	if userID == callerID {
		return ErrUserSelfDelete
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return err
	}

	log := s.logger.With(zap.String("user_id", userID), zap.String("role", user.Role))
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		rows, err := tx.UserTask.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}
		log.Debug("删除用户：任务指派", zap.Int64("rows", rows))

		switch user.Role {
		case model.RoleDeveloper:
			// array_remove 会递增 version，与并发的团队写入互斥
			if rows, err = tx.Team.RemoveDeveloperEverywhere(ctx, userID); err != nil {
				return err
			}
			log.Debug("删除用户：团队成员", zap.Int64("teams", rows))
		case model.RoleManager:
			if rows, err = tx.Project.ClearManagerEverywhere(ctx, userID); err != nil {
				return err
			}
			log.Debug("删除用户：项目经理", zap.Int64("projects", rows))
			if rows, err = tx.Team.ClearManagerEverywhere(ctx, userID); err != nil {
				return err
			}
			log.Debug("删除用户：团队经理", zap.Int64("teams", rows))
		}

		if rows, err = tx.User.Delete(ctx, userID); err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserDeleteFailed
		}
		return nil
	})
	if err != nil {
		log.Error("删除用户失败，已回滚", zap.Error(err))
		return err
	}

	log.Info("用户已删除")
	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = pkgerrors.New(pkgerrors.ErrInvalidArgument, "The spreadsheet has no data rows (first row is the header)")
	ErrImportTooManyRows = pkgerrors.New(pkgerrors.ErrInvalidArgument, fmt.Sprintf("At most %d rows can be imported at once", maxImportRows))
	ErrImportBadHeader   = pkgerrors.New(pkgerrors.ErrInvalidArgument, "The header must contain name and email columns")
	ErrImportBadFile     = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Unable to read the spreadsheet")
)

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		s.logger.Warn("无法解析导入文件", zap.Error(err))
		return nil, ErrImportBadFile
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		s.logger.Warn("读取工作表失败", zap.Error(err))
		return nil, ErrImportBadFile
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{Row: i + 1}
		item.Name = column(row, colIndex["name"])
		item.Email = column(row, colIndex["email"])
		item.Role = strings.ToLower(column(row, colIndex["role"]))
		item.ManagerEmail = column(row, colIndex["manager_email"])

		// 跳过全空行
		if item.Name == "" && item.Email == "" && item.Role == "" && item.ManagerEmail == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

func column(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"name":          -1,
		"email":         -1,
		"role":          -1,
		"manager_email": -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "姓名":
			idx["name"] = i
		case "email", "邮箱":
			idx["email"] = i
		case "role", "角色":
			idx["role"] = i
		case "manager_email", "manager email", "经理邮箱":
			idx["manager_email"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

// ImportUsers 批量创建用户
// 第一阶段逐行校验并收集错误；第二阶段在单个事务中写入全部合法行
func (s *userService) ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows), Created: []dto.ImportedUser{}}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	type validatedRow struct {
		user     *model.User
		row      int
		password string
	}
	var validRows []validatedRow
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		email := normalizeEmail(row.Email)
		if row.Name == "" || email == "" {
			fail(row.Row, "name and email are required")
			continue
		}
		role := row.Role
		if role == "" {
			role = model.RoleDeveloper
		}
		if role != model.RoleManager && role != model.RoleDeveloper {
			fail(row.Row, fmt.Sprintf("unsupported role: %s", row.Role))
			continue
		}
		if seen[email] {
			fail(row.Row, fmt.Sprintf("duplicate email in file: %s", email))
			continue
		}
		if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
			fail(row.Row, fmt.Sprintf("email already registered: %s", email))
			continue
		} else if !isNotFound(err) {
			s.logger.Error("查询邮箱失败", zap.Error(err))
			return nil, err
		}

		var managerID *string
		if row.ManagerEmail != "" {
			if role != model.RoleDeveloper {
				fail(row.Row, "only developers can report to a manager")
				continue
			}
			manager, err := s.repo.User.GetByEmailAndRole(ctx, row.ManagerEmail, model.RoleManager)
			if err != nil {
				if isNotFound(err) {
					fail(row.Row, fmt.Sprintf("manager not found: %s", row.ManagerEmail))
					continue
				}
				s.logger.Error("查询经理失败", zap.Error(err))
				return nil, err
			}
			managerID = &manager.UserID
		}

		tempPassword, err := generateTempPassword(12)
		if err != nil {
			s.logger.Error("生成临时密码失败", zap.Error(err))
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), s.bcryptCost)
		if err != nil {
			fail(row.Row, "password hashing failed")
			continue
		}

		seen[email] = true
		validRows = append(validRows, validatedRow{
			row:      row.Row,
			password: tempPassword,
			user: &model.User{
				Name:         row.Name,
				Email:        email,
				PasswordHash: string(hash),
				Role:         role,
				ManagerID:    managerID,
			},
		})
	}

	if len(validRows) == 0 {
		return resp, nil
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, vr := range validRows {
			if err := tx.User.Create(ctx, vr.user); err != nil {
				s.logger.Error("导入用户写入失败，事务回滚", zap.Int("row", vr.row), zap.Error(err))
				return fmt.Errorf("第 %d 行写入失败: %w", vr.row, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, vr := range validRows {
		resp.Success++
		resp.Created = append(resp.Created, dto.ImportedUser{
			Row:          vr.row,
			Email:        vr.user.Email,
			TempPassword: vr.password,
		})
	}
	s.logger.Info("用户批量导入完成", zap.Int("success", resp.Success), zap.Int("failed", resp.Failed))
	return resp, nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}
	result := make([]byte, length)

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	// 保证至少1个字母+1个数字
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}
