// Package markdown は記事本文のマークダウンをHTMLへ変換する。
//
// 変換結果はbluemondayの許可リストベースのポリシーでサニタイズし、
// scriptタグやon*イベント属性の混入を防ぐ。同一入力に対して常に
// 同一出力を返す（冪等）。
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Renderer はマークダウンをサニタイズ済みHTMLへ変換する。
// 内部のポリシーとパーサーは並行利用可能。
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer はRendererを生成する。
func NewRenderer() *Renderer {
	return &Renderer{
		md:     goldmark.New(),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render はマークダウンをサニタイズ済みHTMLへ変換する。
func (r *Renderer) Render(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}
