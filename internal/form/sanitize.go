package form

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy はHTMLをすべて除去するサニタイズポリシー。
// bluemondayのポリシーは並行利用可能なので1つを共有する。
var strictPolicy = sync.OnceValue(func() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
})

// Default は既定のサニタイズ: 前後の空白を除去し、HTMLをすべて取り除く。
func Default(raw string) string {
	return strings.TrimSpace(strictPolicy().Sanitize(raw))
}

// Email はメールアドレス向けのサニタイズ: Defaultに加えて小文字化する。
func Email(raw string) string {
	return strings.ToLower(Default(raw))
}

// Raw は入力をそのまま返す。パスワードなど、変換してはならないフィールド向け。
func Raw(raw string) string {
	return raw
}
