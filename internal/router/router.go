package router

import (
	"errors"
	"fmt"
)

// ディスパッチ結果を呼び出し側で区別するためのセンチネルエラー。
var (
	// ErrNotFound はどのルートにも照合しなかったことを表す。エッジ層で404になる。
	ErrNotFound = errors.New("router: no route matched")
	// ErrNoRoutesForMethod は該当メソッドのルートが1つも登録されていないことを表す。
	// ルート設定の不備であり、404ではなく構成エラーとして扱う。
	ErrNoRoutesForMethod = errors.New("router: no routes registered for method")
	// ErrForbidden はルートに照合したがロールゲートを通過できなかったことを表す。
	ErrForbidden = errors.New("router: role not granted")
)

// Router はHTTPメソッドごとにバケツ分けしたルートを保持し、
// リクエストを最初に照合したルートへディスパッチする。
type Router struct {
	byMethod map[string][]*Route
	byName   map[string]*Route
}

// New は空のRouterを生成する。
func New() *Router {
	return &Router{
		byMethod: make(map[string][]*Route),
		byName:   make(map[string]*Route),
	}
}

// Register はルートを登録する。同名ルートの重複登録はエラーになる。
// 同一メソッドで重複するパターンは登録順の先勝ちで照合される。
func (rt *Router) Register(routes ...*Route) error {
	for _, r := range routes {
		if _, exists := rt.byName[r.Name]; exists {
			return fmt.Errorf("router: duplicate route name %q", r.Name)
		}
		rt.byName[r.Name] = r
		for _, method := range r.Methods {
			rt.byMethod[method] = append(rt.byMethod[method], r)
		}
	}
	return nil
}

// Dispatch はコンテキストのメソッド・パスに対応するルートを探して実行する。
//
//  1. 該当メソッドのルートが未登録ならErrNoRoutesForMethodを返す。
//  2. 登録順に照合し、最初に照合したルートで確定する。
//  3. ロールゲート: Grantedが設定されたルートは、認証済みプリンシパルが
//     該当ロール（または管理者）を持たない限りErrForbiddenを返す。
//  4. どのルートにも照合しなければErrNotFoundを返す。
func (rt *Router) Dispatch(c *Context) (*Response, error) {
	routes, ok := rt.byMethod[c.Method()]
	if !ok || len(routes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoutesForMethod, c.Method())
	}

	for _, route := range routes {
		values, matched := route.Match(c.Path())
		if !matched {
			continue
		}

		c.routeName = route.Name

		if route.Granted != "" {
			principal := c.Principal()
			if principal == nil || !principal.HasRole(route.Granted) {
				return nil, fmt.Errorf("%w: %s requires %s", ErrForbidden, route.Name, route.Granted)
			}
		}

		c.setParams(route.ParamNames(), values)
		return route.Handler(c)
	}

	return nil, ErrNotFound
}

// URL は登録済みルートの名前からパスを生成する。
func (rt *Router) URL(name string, values ...string) (string, error) {
	route, ok := rt.byName[name]
	if !ok {
		return "", fmt.Errorf("router: unknown route %q", name)
	}
	return route.URL(values...)
}
