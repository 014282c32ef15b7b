package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kiji/internal/auth"
	"github.com/hitoshi/kiji/internal/metrics"
	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/router"
)

// ServerDeps はNewServerに必要な依存関係をまとめた構造体。
type ServerDeps struct {
	Handler     *Handler
	Auth        *auth.Service
	RateLimiter *middleware.RateLimiter
	Metrics     metrics.MetricsCollector
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// NewServer はエッジのミドルウェアチェーンとディスパッチを構成したhttp.Handlerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session(プリンシパル解決) → Logging
//
// /healthz と /metrics はアプリケーションルーターの外に配置する。
// ログイン・登録のPOSTにはIP単位のレート制限を追加する。
func NewServer(deps *ServerDeps) (http.Handler, error) {
	rt := router.New()
	routes, err := deps.Handler.Routes()
	if err != nil {
		return nil, err
	}
	if err := rt.Register(routes...); err != nil {
		return nil, err
	}

	dispatch := newDispatcher(deps.Handler, rt, deps.Metrics)

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(deps.Auth.Middleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// ブルートフォース対策はフォームPOSTのみに適用する
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", dispatch)
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", dispatch)

	// 残りはすべてアプリケーションルーターへ
	r.NotFound(dispatch)
	r.MethodNotAllowed(dispatch)

	return r, nil
}

// newDispatcher はアプリケーションルーターへの橋渡しハンドラーを生成する。
// ディスパッチ結果のエラーをHTTPレスポンスへ写像し、メトリクスを記録する。
func newDispatcher(h *Handler, rt *router.Router, mc metrics.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		c := router.NewContext(r)
		resp, err := rt.Dispatch(c)
		if err != nil {
			resp = errorResponse(h, c, err)
		}
		if resp == nil {
			resp = router.HTML(http.StatusInternalServerError, "internal server error")
		}

		if err := resp.Write(w); err != nil {
			slog.Error("failed to write response", slog.String("error", err.Error()))
		}

		routeName := c.MatchedRoute()
		if routeName == "" {
			routeName = "unmatched"
		}
		mc.RecordRequest(r.Method, routeName, resp.Status)
		mc.RecordRequestDuration(r.Method, routeName, time.Since(start))
	}
}

// errorResponse はディスパッチのエラーをレスポンスへ写像する。
//
//   - ErrNotFound: 404ページ
//   - ErrForbidden: HTMLはログインページへリダイレクト、JSONは403
//   - ErrNoRoutesForMethod: ルート設定の不備。500として記録する
//   - AppError: メッセージ付きのエラーページ
//   - それ以外: ログに記録して500ページ
func errorResponse(h *Handler, c *router.Context, err error) *router.Response {
	switch {
	case errors.Is(err, router.ErrNotFound):
		return renderOrFallback(h, c, http.StatusNotFound, "お探しのページが見つかりません。")

	case errors.Is(err, router.ErrForbidden):
		if wantsJSON(c.Request()) {
			return router.JSON(http.StatusForbidden, map[string]any{
				"ok":      false,
				"code":    "FORBIDDEN",
				"message": "この操作を行う権限がありません。",
			})
		}
		return router.Redirect(http.StatusSeeOther, "/login")

	case errors.Is(err, router.ErrNoRoutesForMethod):
		slog.Error("no routes registered for method",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
		)
		return renderOrFallback(h, c, http.StatusInternalServerError, "サーバー内部でエラーが発生しました。")
	}

	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return renderOrFallback(h, c, http.StatusBadRequest, appErr.Message+" "+appErr.Action)
	}

	slog.Error("handler error",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return renderOrFallback(h, c, http.StatusInternalServerError, "サーバー内部でエラーが発生しました。")
}

// renderOrFallback はエラーページをレンダリングする。
// レンダリング自体に失敗した場合はプレーンテキストへフォールバックする。
func renderOrFallback(h *Handler, c *router.Context, status int, message string) *router.Response {
	resp, err := h.ErrorPage(c, status, message)
	if err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
		fallback := router.NewResponse(status)
		fallback.Header.Set("Content-Type", "text/plain; charset=utf-8")
		fallback.Body = []byte(message)
		return fallback
	}
	return resp
}

// wantsJSON はリクエストがJSONレスポンスを期待しているかどうかを判定する。
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
