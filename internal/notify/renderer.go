package notify

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/yuin/goldmark"

	"projecthub/internal/model"
)

//go:embed templates/*.md templates/layout.html
var templateFS embed.FS

// Renderer 将发件箱事件渲染为 HTML 邮件正文
// 正文模板为 Markdown（text/template 填参），经 goldmark 转换后套入 HTML 布局
type Renderer struct {
	bodies *template.Template
	layout *htmltemplate.Template
	md     goldmark.Markdown
}

// NewRenderer 解析内置模板
func NewRenderer() (*Renderer, error) {
	bodies, err := template.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("解析邮件模板失败: %w", err)
	}
	layout, err := htmltemplate.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("解析邮件布局失败: %w", err)
	}
	return &Renderer{bodies: bodies, layout: layout, md: goldmark.New()}, nil
}

// Render 渲染事件对应的邮件正文
func (r *Renderer) Render(ev *model.NotificationEvent) (string, error) {
	var args Args
	if len(ev.Args) > 0 {
		if err := json.Unmarshal(ev.Args, &args); err != nil {
			return "", fmt.Errorf("解析模板参数失败: %w", err)
		}
	}

	var md bytes.Buffer
	if err := r.bodies.ExecuteTemplate(&md, ev.Template+".md", args); err != nil {
		return "", fmt.Errorf("渲染模板 %s 失败: %w", ev.Template, err)
	}

	// goldmark 默认不输出原始 HTML，用户名中的标签会被丢弃
	var body bytes.Buffer
	if err := r.md.Convert(md.Bytes(), &body); err != nil {
		return "", fmt.Errorf("转换 Markdown 失败: %w", err)
	}

	var out bytes.Buffer
	err := r.layout.Execute(&out, struct {
		Subject string
		Body    htmltemplate.HTML
	}{
		Subject: ev.Subject,
		Body:    htmltemplate.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("渲染邮件布局失败: %w", err)
	}
	return out.String(), nil
}
