package router

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/hitoshi/kiji/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var principalContextKey = contextKey("principal")

// WithPrincipal はリクエストコンテキストに認証済みユーザーを注入する。
// プリンシパルはリクエストスコープであり、プロセス全体で共有されることはない。
func WithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalContextKey, user)
}

// PrincipalFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(principalContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// Context は1リクエスト分の情報をまとめた、ディスパッチに渡される値。
// *http.Requestのラッパーに、照合済みルートパラメータとプリンシパルを加える。
type Context struct {
	req *http.Request

	paramNames  []string
	paramValues []string
	routeName   string
}

// NewContext はリクエストからContextを生成する。
func NewContext(r *http.Request) *Context {
	return &Context{req: r}
}

// Request は元の*http.Requestを返す。
func (c *Context) Request() *http.Request { return c.req }

// Context はリクエストのcontext.Contextを返す。
func (c *Context) Context() context.Context { return c.req.Context() }

// Method はHTTPメソッドを返す。
func (c *Context) Method() string { return c.req.Method }

// Path はリクエストパスを返す。
func (c *Context) Path() string { return c.req.URL.Path }

// Param は照合済みルートパラメータの値を名前で返す。未定義なら空文字列。
func (c *Context) Param(name string) string {
	for i, n := range c.paramNames {
		if n == name {
			return c.paramValues[i]
		}
	}
	return ""
}

// Params は出現順のルートパラメータ値を返す。
func (c *Context) Params() []string { return c.paramValues }

// setParams は照合結果のパラメータを設定する。Dispatchからのみ呼ばれる。
func (c *Context) setParams(names, values []string) {
	c.paramNames = names
	c.paramValues = values
}

// MatchedRoute は照合したルート名を返す。未照合なら空文字列。
// メトリクスのラベル付けに使う。
func (c *Context) MatchedRoute() string { return c.routeName }

// FormValue はPOSTフォームまたはクエリの値を返す。
func (c *Context) FormValue(name string) string {
	return c.req.FormValue(name)
}

// Cookie は指定名のCookieを返す。
func (c *Context) Cookie(name string) (*http.Cookie, error) {
	return c.req.Cookie(name)
}

// UserAgent はUser-Agentヘッダーの値を返す。
func (c *Context) UserAgent() string {
	return c.req.UserAgent()
}

// ClientIP はクライアントのIPアドレスを返す。
// リバースプロキシ経由の場合はX-Forwarded-Forの先頭を優先する。
func (c *Context) ClientIP() string {
	if fwd := c.req.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(c.req.RemoteAddr)
	if err != nil {
		return c.req.RemoteAddr
	}
	return host
}

// Principal はリクエストコンテキストの認証済みユーザーを返す。未認証ならnil。
func (c *Context) Principal() *model.User {
	return PrincipalFromContext(c.req.Context())
}

// IsAuthenticated は認証済みかどうかを返す。
func (c *Context) IsAuthenticated() bool {
	return c.Principal() != nil
}
