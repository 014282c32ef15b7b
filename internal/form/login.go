package form

import "github.com/hitoshi/kiji/internal/csrf"

// LoginForm はログインフォーム。
// 認証の成否はハンドラーがGlobalErrorKeyへ注入する。
type LoginForm struct {
	*Form
}

// NewLoginForm はLoginFormを生成する。
func NewLoginForm(signer *csrf.Signer) *LoginForm {
	f := &LoginForm{Form: New("login", signer)}

	f.AddField(Field{
		Name:     "email",
		Sanitize: Email,
		Validate: ValidEmail(),
	})
	f.AddField(Field{
		Name:     "password",
		Sanitize: Raw,
		Validate: Required("パスワードを入力してください。"),
	})

	return f
}

// Email はサニタイズ済みのメールアドレスを返す。
func (f *LoginForm) Email() string { return f.Value("email") }

// Password は入力されたパスワードを返す。
func (f *LoginForm) Password() string { return f.Value("password") }
