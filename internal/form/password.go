package form

import "github.com/hitoshi/kiji/internal/csrf"

// ForgotPasswordForm はパスワードリセットメールの要求フォーム。
type ForgotPasswordForm struct {
	*Form
}

// NewForgotPasswordForm はForgotPasswordFormを生成する。
func NewForgotPasswordForm(signer *csrf.Signer) *ForgotPasswordForm {
	f := &ForgotPasswordForm{Form: New("forgot_password", signer)}

	f.AddField(Field{
		Name:     "email",
		Sanitize: Email,
		Validate: ValidEmail(),
	})

	return f
}

// Email はサニタイズ済みのメールアドレスを返す。
func (f *ForgotPasswordForm) Email() string { return f.Value("email") }

// ResetPasswordForm はリセットリンクから開く新パスワード設定フォーム。
type ResetPasswordForm struct {
	*Form
}

// NewResetPasswordForm はResetPasswordFormを生成する。
func NewResetPasswordForm(signer *csrf.Signer) *ResetPasswordForm {
	f := &ResetPasswordForm{Form: New("reset_password", signer)}
	addPasswordPair(f.Form)
	return f
}

// Password は入力された新パスワードを返す。
func (f *ResetPasswordForm) Password() string { return f.Value("password") }

// ChangePasswordForm はプロフィール画面のパスワード変更フォーム。
// 現在のパスワードの検証はハンドラーが行う。
type ChangePasswordForm struct {
	*Form
}

// NewChangePasswordForm はChangePasswordFormを生成する。
func NewChangePasswordForm(signer *csrf.Signer) *ChangePasswordForm {
	f := &ChangePasswordForm{Form: New("change_password", signer)}

	f.AddField(Field{
		Name:     "current_password",
		Sanitize: Raw,
		Validate: Required("現在のパスワードを入力してください。"),
	})
	addPasswordPair(f.Form)

	return f
}

// CurrentPassword は入力された現在のパスワードを返す。
func (f *ChangePasswordForm) CurrentPassword() string { return f.Value("current_password") }

// Password は入力された新パスワードを返す。
func (f *ChangePasswordForm) Password() string { return f.Value("password") }

// addPasswordPair は新パスワードと確認入力のフィールド対を登録する。
func addPasswordPair(f *Form) {
	f.AddField(Field{
		Name:     "password",
		Sanitize: Raw,
		Validate: Chain(
			Required("パスワードを入力してください。"),
			LengthBetween(passwordMinLength, passwordMaxLength),
		),
	})
	f.AddField(Field{
		Name:     "password_confirm",
		Sanitize: Raw,
		Validate: func(value string) string {
			if value != f.Value("password") {
				return "パスワードが一致しません。"
			}
			return ""
		},
	})
}
