// Package view は埋め込みテンプレートによるHTMLレンダリングを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer はページ名ごとにパース済みテンプレートを保持する。
type Renderer struct {
	templates map[string]*template.Template
}

// ページテンプレートの一覧。各ページはlayout.htmlと組み合わせてパースされる。
var pageNames = []string{
	"home",
	"posts",
	"post",
	"login",
	"register",
	"password_forgot",
	"password_reset",
	"profile",
	"message",
	"admin_dashboard",
	"admin_post_edit",
	"error",
}

// NewRenderer は全ページテンプレートをパースしてRendererを生成する。
func NewRenderer() (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pageNames))

	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS,
			"templates/layout.html",
			fmt.Sprintf("templates/%s.html", name),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// Render は指定ページをレイアウト込みでレンダリングする。
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}
