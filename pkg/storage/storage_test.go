package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projecthub/config"
)

func TestValidateImageName(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png"} {
		assert.NoError(t, ValidateImageName(name), name)
	}
	for _, name := range []string{"a.gif", "b", "c.png.exe", "d.webp"} {
		assert.ErrorIs(t, ValidateImageName(name), ErrUnsupportedImage, name)
	}
}

func TestNew_NotConfigured(t *testing.T) {
	u, err := New(&config.StorageConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "/tmp/x.png")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_Cloudinary(t *testing.T) {
	u, err := New(&config.StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"}, zap.NewNop())
	require.NoError(t, err)
	_, ok := u.(*CloudinaryUploader)
	assert.True(t, ok)
}
