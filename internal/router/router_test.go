package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/kiji/internal/model"
)

// newTestContext はテスト用のContextを生成する。
func newTestContext(method, path string, user *model.User) *Context {
	req := httptest.NewRequest(method, path, nil)
	if user != nil {
		req = req.WithContext(WithPrincipal(req.Context(), user))
	}
	return NewContext(req)
}

// mustRoute はテスト用にルートを生成する。
func mustRoute(t *testing.T, name, path string, methods []string, handler HandlerFunc, opts ...RouteOption) *Route {
	t.Helper()
	route, err := NewRoute(name, path, methods, handler, opts...)
	if err != nil {
		t.Fatalf("NewRoute(%s) error = %v", name, err)
	}
	return route
}

func TestRouter_Dispatch_NoRoutesForMethod(t *testing.T) {
	rt := New()
	if err := rt.Register(mustRoute(t, "home", "/", []string{http.MethodGet}, nopHandler)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// GETのみ登録された状態でPOSTすると、照合失敗ではなく構成エラーになる
	_, err := rt.Dispatch(newTestContext(http.MethodPost, "/", nil))
	if !errors.Is(err, ErrNoRoutesForMethod) {
		t.Errorf("Dispatch() error = %v, want ErrNoRoutesForMethod", err)
	}
}

func TestRouter_Dispatch_NotFound(t *testing.T) {
	rt := New()
	if err := rt.Register(mustRoute(t, "home", "/", []string{http.MethodGet}, nopHandler)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := rt.Dispatch(newTestContext(http.MethodGet, "/missing", nil))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Dispatch() error = %v, want ErrNotFound", err)
	}
}

func TestRouter_Dispatch_FirstRegisteredWins(t *testing.T) {
	first := func(c *Context) (*Response, error) {
		return HTML(http.StatusOK, "first"), nil
	}
	second := func(c *Context) (*Response, error) {
		return HTML(http.StatusOK, "second"), nil
	}

	rt := New()
	err := rt.Register(
		mustRoute(t, "first", "/dup/:id", []string{http.MethodGet}, first),
		mustRoute(t, "second", "/dup/:id", []string{http.MethodGet}, second),
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := rt.Dispatch(newTestContext(http.MethodGet, "/dup/1", nil))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if string(resp.Body) != "first" {
		t.Errorf("body = %q, want %q（先勝ち）", resp.Body, "first")
	}
}

func TestRouter_Dispatch_RoleGate(t *testing.T) {
	rt := New()
	err := rt.Register(
		mustRoute(t, "admin_only", "/admin/x", []string{http.MethodGet}, nopHandler,
			WithGranted(model.RoleAdmin)),
		mustRoute(t, "user_only", "/member/x", []string{http.MethodGet}, nopHandler,
			WithGranted(model.RoleUser)),
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	admin := &model.User{ID: "u-admin", Role: model.RoleAdmin}
	user := &model.User{ID: "u-user", Role: model.RoleUser}

	tests := []struct {
		name      string
		path      string
		principal *model.User
		wantErr   error
	}{
		{name: "未認証は管理者ルートに入れない", path: "/admin/x", principal: nil, wantErr: ErrForbidden},
		{name: "一般ユーザーは管理者ルートに入れない", path: "/admin/x", principal: user, wantErr: ErrForbidden},
		{name: "管理者は管理者ルートに入れる", path: "/admin/x", principal: admin, wantErr: nil},
		{name: "一般ユーザーはユーザールートに入れる", path: "/member/x", principal: user, wantErr: nil},
		{name: "管理者はユーザールートにも入れる", path: "/member/x", principal: admin, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Dispatch(newTestContext(http.MethodGet, tt.path, tt.principal))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Dispatch() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Dispatch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRouter_Dispatch_GateFailureDoesNotFallThrough(t *testing.T) {
	// 照合済みルートのゲート失敗は、後続の同パターン公開ルートへ流れずに確定する
	rt := New()
	err := rt.Register(
		mustRoute(t, "gated", "/page", []string{http.MethodGet}, nopHandler,
			WithGranted(model.RoleAdmin)),
		mustRoute(t, "open", "/page", []string{http.MethodGet}, nopHandler),
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = rt.Dispatch(newTestContext(http.MethodGet, "/page", nil))
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Dispatch() error = %v, want ErrForbidden", err)
	}
}

func TestRouter_Dispatch_SetsParams(t *testing.T) {
	var gotID, gotToken string
	handler := func(c *Context) (*Response, error) {
		gotID = c.Param("id")
		gotToken = c.Param("token")
		return NewResponse(http.StatusOK), nil
	}

	rt := New()
	if err := rt.Register(mustRoute(t, "confirm", "/confirm/:id/:token", []string{http.MethodGet}, handler)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c := newTestContext(http.MethodGet, "/confirm/u-1/tok-9", nil)
	if _, err := rt.Dispatch(c); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if gotID != "u-1" || gotToken != "tok-9" {
		t.Errorf("params = (%q, %q), want (u-1, tok-9)", gotID, gotToken)
	}
	if c.MatchedRoute() != "confirm" {
		t.Errorf("MatchedRoute() = %q, want %q", c.MatchedRoute(), "confirm")
	}
}

func TestRouter_Register_DuplicateName(t *testing.T) {
	rt := New()
	err := rt.Register(
		mustRoute(t, "dup", "/a", []string{http.MethodGet}, nopHandler),
		mustRoute(t, "dup", "/b", []string{http.MethodGet}, nopHandler),
	)
	if err == nil {
		t.Error("同名ルートの重複登録はエラーになるべき")
	}
}

func TestRouter_URL(t *testing.T) {
	rt := New()
	if err := rt.Register(mustRoute(t, "post_detail", "/post/:id", []string{http.MethodGet}, nopHandler)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	url, err := rt.URL("post_detail", "p-1")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if url != "/post/p-1" {
		t.Errorf("URL() = %q, want %q", url, "/post/p-1")
	}

	if _, err := rt.URL("unknown"); err == nil {
		t.Error("未登録ルート名はエラーになるべき")
	}
}
