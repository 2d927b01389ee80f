package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"projecthub/config"
)

var (
	// ErrUnsupportedImage 附件扩展名不在白名单内
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrNotConfigured 未配置附件存储
	ErrNotConfigured = errors.New("attachment storage is not configured")
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidateImageName 校验文件名扩展名，仅允许 jpg / jpeg / png
func ValidateImageName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	return nil
}

// Uploader 附件存储接口，返回可公开访问的 URL
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// New 根据配置创建 Uploader；未配置 Cloudinary 时所有上传均失败
func New(cfg *config.StorageConfig, logger *zap.Logger) (Uploader, error) {
	if cfg.CloudName == "" {
		logger.Warn("未配置 Cloudinary，任务图片上传不可用")
		return disabledUploader{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("初始化 Cloudinary 失败: %w", err)
	}
	cld.Config.URL.Secure = true

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &CloudinaryUploader{cld: cld, folder: cfg.Folder, timeout: timeout, logger: logger}, nil
}

// CloudinaryUploader 上传到 Cloudinary 并返回 secure_url
type CloudinaryUploader struct {
	cld     *cloudinary.Cloudinary
	folder  string
	timeout time.Duration
	logger  *zap.Logger
}

func (u *CloudinaryUploader) Upload(ctx context.Context, localPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	resp, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure_url")
	}

	u.logger.Debug("附件上传成功", zap.String("public_id", resp.PublicID))
	return resp.SecureURL, nil
}

type disabledUploader struct{}

func (disabledUploader) Upload(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
