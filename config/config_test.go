package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Notify: NotifyConfig{MaxAttempts: 3, PollInterval: time.Second},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("期望校验通过，实际: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("过短的 jwt_secret 应校验失败")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("非法端口应校验失败")
	}
}

func TestValidate_ZeroTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.RequestTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("request_timeout=0 应校验失败")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PM_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("PM_SERVER_PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("期望默认 request_timeout=5s，实际=%v", cfg.Server.RequestTimeout)
	}
	if cfg.Mail.Enabled() {
		t.Error("未配置 smtp_host 时不应启用 SMTP")
	}
}
