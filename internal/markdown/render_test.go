package markdown

import (
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("# 見出し\n\nこれは**強調**です。")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := string(got)
	if !strings.Contains(html, "<h1>見出し</h1>") {
		t.Errorf("html = %q: 見出しが変換されるべき", html)
	}
	if !strings.Contains(html, "<strong>強調</strong>") {
		t.Errorf("html = %q: 強調が変換されるべき", html)
	}
}

func TestRenderer_Render_SanitizesScript(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("安全なテキスト\n\n<script>alert(1)</script>\n\n<p onclick=\"x()\">段落</p>")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := string(got)
	if strings.Contains(html, "<script>") {
		t.Errorf("html = %q: scriptタグは除去されるべき", html)
	}
	if strings.Contains(html, "onclick") {
		t.Errorf("html = %q: イベント属性は除去されるべき", html)
	}
	if !strings.Contains(html, "安全なテキスト") {
		t.Errorf("html = %q: 本文は保持されるべき", html)
	}
}

func TestRenderer_Render_Idempotent(t *testing.T) {
	r := NewRenderer()

	source := "> 引用と`コード`\n\n- リスト1\n- リスト2"
	a, err := r.Render(source)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b, err := r.Render(source)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if a != b {
		t.Error("同一入力に対して同一出力を返すべき")
	}
}
