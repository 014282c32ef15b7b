package handler

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/router"
)

// routeDef はルートテーブルの1行を表す。
type routeDef struct {
	name    string
	path    string
	methods []string
	handler router.HandlerFunc
	opts    []router.RouteOption
}

// Routes はアプリケーション全体のルートテーブルを構築する。
// 登録順がそのまま照合の優先順になる。
func (h *Handler) Routes() ([]*router.Route, error) {
	granted := func(role string) []router.RouteOption {
		return []router.RouteOption{router.WithGranted(role)}
	}

	defs := []routeDef{
		// 公開ページ
		{name: "home", path: "/", methods: []string{http.MethodGet}, handler: h.Home},
		{name: "post_list", path: "/posts/:page", methods: []string{http.MethodGet}, handler: h.PostList,
			opts: []router.RouteOption{router.WithParamPattern("page", `[0-9]+`)}},
		{name: "post_detail", path: "/post/:id", methods: []string{http.MethodGet}, handler: h.PostDetail},
		{name: "comment_submit", path: "/post/:id", methods: []string{http.MethodPost}, handler: h.SubmitComment,
			opts: granted(model.RoleUser)},

		// 認証まわり
		{name: "login_page", path: "/login", methods: []string{http.MethodGet}, handler: h.LoginPage},
		{name: "login", path: "/login", methods: []string{http.MethodPost}, handler: h.Login},
		{name: "register_page", path: "/register", methods: []string{http.MethodGet}, handler: h.RegisterPage},
		{name: "register", path: "/register", methods: []string{http.MethodPost}, handler: h.Register},
		{name: "logout", path: "/logout", methods: []string{http.MethodGet}, handler: h.Logout},
		{name: "confirm", path: "/confirm/:id/:token", methods: []string{http.MethodGet}, handler: h.Confirm},
		{name: "password_forgot_page", path: "/password/forgot", methods: []string{http.MethodGet}, handler: h.ForgotPasswordPage},
		{name: "password_forgot", path: "/password/forgot", methods: []string{http.MethodPost}, handler: h.ForgotPassword},
		{name: "password_reset_page", path: "/password/reset/:id/:token", methods: []string{http.MethodGet}, handler: h.ResetPasswordPage},
		{name: "password_reset", path: "/password/reset/:id/:token", methods: []string{http.MethodPost}, handler: h.ResetPassword},

		// ログインユーザー
		{name: "profile_page", path: "/profile", methods: []string{http.MethodGet}, handler: h.ProfilePage,
			opts: granted(model.RoleUser)},
		{name: "change_password", path: "/profile", methods: []string{http.MethodPost}, handler: h.ChangePassword,
			opts: granted(model.RoleUser)},

		// 管理者
		{name: "admin_dashboard", path: "/admin/dashboard/:page", methods: []string{http.MethodGet}, handler: h.Dashboard,
			opts: []router.RouteOption{
				router.WithGranted(model.RoleAdmin),
				router.WithParamPattern("page", `users|posts|comments`),
			}},
		{name: "admin_post_new_page", path: "/admin/post/new", methods: []string{http.MethodGet}, handler: h.PostNewPage,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_create", path: "/admin/post/new", methods: []string{http.MethodPost}, handler: h.PostCreate,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_edit_page", path: "/admin/post/:id/edit", methods: []string{http.MethodGet}, handler: h.PostEditPage,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_update", path: "/admin/post/:id/edit", methods: []string{http.MethodPost}, handler: h.PostUpdate,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_publish", path: "/admin/post/:id/publish", methods: []string{http.MethodPost}, handler: h.TogglePublish,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_feature", path: "/admin/post/:id/feature", methods: []string{http.MethodPost}, handler: h.ToggleFeature,
			opts: granted(model.RoleAdmin)},
		{name: "admin_post_delete", path: "/admin/post/:id/delete", methods: []string{http.MethodPost}, handler: h.DeletePost,
			opts: granted(model.RoleAdmin)},
		{name: "admin_comment_validate", path: "/admin/comment/:id/validate", methods: []string{http.MethodPost}, handler: h.ValidateComment,
			opts: granted(model.RoleAdmin)},
		{name: "admin_user_status", path: "/admin/user/:id/status", methods: []string{http.MethodPost}, handler: h.ToggleUserStatus,
			opts: granted(model.RoleAdmin)},
		{name: "admin_user_role", path: "/admin/user/:id/role", methods: []string{http.MethodPost}, handler: h.ToggleUserRole,
			opts: granted(model.RoleAdmin)},
	}

	routes := make([]*router.Route, 0, len(defs))
	for _, def := range defs {
		route, err := router.NewRoute(def.name, def.path, def.methods, def.handler, def.opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build route table: %w", err)
		}
		routes = append(routes, route)
	}

	return routes, nil
}
