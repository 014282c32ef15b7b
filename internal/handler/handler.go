// Package handler はHTTPハンドラー（コントローラー）とルートテーブルを提供する。
package handler

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/kiji/internal/auth"
	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/mailer"
	"github.com/hitoshi/kiji/internal/markdown"
	"github.com/hitoshi/kiji/internal/metrics"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
	"github.com/hitoshi/kiji/internal/repository"
	"github.com/hitoshi/kiji/internal/router"
	"github.com/hitoshi/kiji/internal/view"
)

// Deps はHandlerの依存をまとめた値。
type Deps struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository
	Manager  *persistence.Manager
	Auth     *auth.Service
	Signer   *csrf.Signer
	View     *view.Renderer
	Markdown *markdown.Renderer
	Mailer   mailer.Mailer
	Metrics  metrics.MetricsCollector
	BaseURL  string
}

// Handler は全コントローラーの依存を保持する。
type Handler struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	manager  *persistence.Manager
	auth     *auth.Service
	signer   *csrf.Signer
	view     *view.Renderer
	markdown *markdown.Renderer
	mailer   mailer.Mailer
	metrics  metrics.MetricsCollector
	baseURL  string
}

// New はHandlerを生成する。
func New(deps Deps) *Handler {
	return &Handler{
		users:    deps.Users,
		sessions: deps.Sessions,
		posts:    deps.Posts,
		comments: deps.Comments,
		manager:  deps.Manager,
		auth:     deps.Auth,
		signer:   deps.Signer,
		view:     deps.View,
		markdown: deps.Markdown,
		mailer:   deps.Mailer,
		metrics:  deps.Metrics,
		baseURL:  deps.BaseURL,
	}
}

// page は全ページテンプレート共通のデータ。各ページのデータ型に埋め込む。
type page struct {
	Title string
	User  *model.User
}

// newPage は共通ページデータを組み立てる。
func newPage(c *router.Context, title string) page {
	return page{Title: title, User: c.Principal()}
}

// render はテンプレートをレンダリングしてHTMLレスポンスを返す。
func (h *Handler) render(status int, name string, data any) (*router.Response, error) {
	body, err := h.view.Render(name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s page: %w", name, err)
	}
	return router.HTML(status, string(body)), nil
}

// errorPageData はエラーページテンプレートのデータ。
type errorPageData struct {
	page
	Status  int
	Message string
}

// ErrorPage はステータスコードとメッセージからエラーページを生成する。
// エッジ層のエラーマッピングからも利用される。
func (h *Handler) ErrorPage(c *router.Context, status int, message string) (*router.Response, error) {
	return h.render(status, "error", errorPageData{
		page:    newPage(c, fmt.Sprintf("%d", status)),
		Status:  status,
		Message: message,
	})
}

// notFound は404エラーページを返す。
func (h *Handler) notFound(c *router.Context) (*router.Response, error) {
	return h.ErrorPage(c, http.StatusNotFound, "お探しのページが見つかりません。")
}
