package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"projecthub/config"
)

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New 根据配置选择实现：未配置 SMTP 主机时仅记录日志
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Warn("未配置 SMTP，邮件将仅写入日志")
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{cfg: *cfg}
}

// ── SMTP ──

// SMTPMailer 通过 SMTP 发送 HTML 邮件
// 465 端口使用隐式 TLS，其余端口在服务端支持时升级 STARTTLS
type SMTPMailer struct {
	cfg config.MailConfig
}

// Send 发送邮件，整个会话受 ctx 截止时间约束
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsCfg := &tls.Config{ServerName: m.cfg.SMTPHost}
	if m.cfg.SMTPPort == 465 {
		conn = tls.Client(conn, tlsCfg)
	}

	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(BuildMessage(m.cfg.From, to, subject, html)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return client.Quit()
}

// BuildMessage 组装 MIME 邮件报文
func BuildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// ── 日志 ──

// LogMailer 开发环境使用，只记录邮件摘要
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer 创建日志邮件器
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("邮件（未发送）",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(html)),
	)
	return nil
}
