// Package router はパスパターンとロールゲートを持つルートの登録・照合と、
// リクエスト/レスポンスの薄い抽象を提供する。
//
// ルートは起動時にプログラム的なルートテーブルから登録する。照合は
// 登録順の線形走査で、同一メソッドで重複するパターンは先勝ちになる。
package router

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultParamPattern は`:name`セグメントの既定パターン（スラッシュ以外の1文字以上）。
const defaultParamPattern = `[^/]+`

// HandlerFunc はルートに束縛されるアクションのシグネチャ。
type HandlerFunc func(c *Context) (*Response, error)

// Route はパスパターン・メソッド・任意のロールゲートを持つ1ルートを表す。
type Route struct {
	// Name はURL生成に使う一意なルート名。
	Name string
	// Methods は受け付けるHTTPメソッドのリスト。
	Methods []string
	// Granted は必要なロール。空文字列は認証不要を表す。
	// 管理者ロールはすべてのゲートを通過できる（判定は呼び出し側）。
	Granted string
	// Handler はルートに束縛されたアクション。
	Handler HandlerFunc

	pattern string            // 正規化済みパスパターン（先頭・末尾のスラッシュなし）
	params  []string          // 出現順のパラメータ名
	re      *regexp.Regexp    // アンカー済み・大文字小文字無視の照合用正規表現
	custom  map[string]string // パラメータ名→カスタムパターン
}

// RouteOption はRouteの生成オプション。
type RouteOption func(*Route)

// WithGranted はルートに必要なロールを設定する。
func WithGranted(role string) RouteOption {
	return func(r *Route) {
		r.Granted = role
	}
}

// WithParamPattern は指定パラメータの照合パターンを既定値から差し替える。
func WithParamPattern(name, pattern string) RouteOption {
	return func(r *Route) {
		r.custom[name] = pattern
	}
}

// NewRoute はルートを生成する。パスは正規化され、`:name`セグメントは
// キャプチャグループに変換されて1本のアンカー済み正規表現になる。
// パターンが正規表現として不正な場合はエラーを返す。
func NewRoute(name, path string, methods []string, handler HandlerFunc, opts ...RouteOption) (*Route, error) {
	r := &Route{
		Name:    name,
		Methods: methods,
		Handler: handler,
		pattern: normalizePath(path),
		custom:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	var sb strings.Builder
	sb.WriteString(`(?i)^`)
	for i, segment := range splitPath(r.pattern) {
		if i > 0 {
			sb.WriteString(`/`)
		}
		if strings.HasPrefix(segment, ":") {
			paramName := segment[1:]
			pattern := defaultParamPattern
			if custom, ok := r.custom[paramName]; ok {
				pattern = custom
			}
			r.params = append(r.params, paramName)
			sb.WriteString(`(` + pattern + `)`)
			continue
		}
		sb.WriteString(regexp.QuoteMeta(segment))
	}
	sb.WriteString(`$`)

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("route %s: invalid pattern: %w", name, err)
	}
	r.re = re

	return r, nil
}

// Match はリクエストパスをパターンと照合し、出現順のパラメータ値を返す。
// 照合しない場合は(nil, false)を返す。
func (r *Route) Match(path string) ([]string, bool) {
	m := r.re.FindStringSubmatch(normalizePath(path))
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// URL はパラメータ値を出現順に埋め込んだパスを生成する。
// 値の数がパラメータ数と一致しない場合はエラーを返す。
func (r *Route) URL(values ...string) (string, error) {
	if len(values) != len(r.params) {
		return "", fmt.Errorf("route %s: expected %d params, got %d", r.Name, len(r.params), len(values))
	}

	var sb strings.Builder
	i := 0
	for _, segment := range splitPath(r.pattern) {
		sb.WriteString(`/`)
		if strings.HasPrefix(segment, ":") {
			sb.WriteString(values[i])
			i++
			continue
		}
		sb.WriteString(segment)
	}
	if sb.Len() == 0 {
		return "/", nil
	}
	return sb.String(), nil
}

// ParamNames は出現順のパラメータ名を返す。
func (r *Route) ParamNames() []string {
	return r.params
}

// normalizePath は先頭・末尾のスラッシュを取り除く。ルートパスは空文字列になる。
func normalizePath(path string) string {
	return strings.Trim(path, "/")
}

// splitPath は正規化済みパスをセグメントに分割する。空パスは空スライスを返す。
func splitPath(pattern string) []string {
	if pattern == "" {
		return nil
	}
	return strings.Split(pattern, "/")
}
