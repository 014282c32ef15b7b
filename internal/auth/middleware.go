package auth

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/kiji/internal/router"
)

// Middleware はセッションCookieからプリンシパルを解決し、
// リクエストコンテキストへ注入するミドルウェアを返す。
//
// 未認証でもリクエストは通す（ロールゲートの判定はルーターが行う）。
// 署名が不正な場合、またはセッションの持ち主がREGISTEREDでなくなっている
// 場合は、Cookieを即時失効させた上で未認証として通す。
func (s *Service) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			rc := router.NewContext(r)
			user, err := s.resolve(r.Context(), cookie.Value, rc.ClientIP(), rc.UserAgent())
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			if user == nil {
				// 署名不正・セッション失効・アカウント無効化。Cookieを掃除して未認証で通す。
				http.SetCookie(w, s.ExpiredCookie())
				next.ServeHTTP(w, r)
				return
			}

			ctx := router.WithPrincipal(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
