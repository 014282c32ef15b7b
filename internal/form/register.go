package form

import (
	"context"
	"fmt"

	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
)

// passwordMinLength はパスワードの最小文字数。
// 上限はbcryptの72バイト制限に合わせる。
const (
	passwordMinLength = 8
	passwordMaxLength = 72
)

// RegisterForm はユーザー登録フォーム。
// パスワードはハッシュ化してから設定するためMappedにしない。
type RegisterForm struct {
	*Form
	user *model.User
}

// NewRegisterForm は束縛先ユーザーを指定してRegisterFormを生成する。
func NewRegisterForm(signer *csrf.Signer, user *model.User) *RegisterForm {
	f := &RegisterForm{
		Form: New("register", signer),
		user: user,
	}
	f.Bind(user)

	f.AddField(Field{
		Name:     "first_name",
		Validate: LengthBetween(1, 64),
		Mapped:   true,
	})
	f.AddField(Field{
		Name:     "last_name",
		Validate: LengthBetween(1, 64),
		Mapped:   true,
	})
	f.AddField(Field{
		Name:     "pseudo",
		Validate: LengthBetween(3, 32),
		Mapped:   true,
	})
	f.AddField(Field{
		Name:     "email",
		Sanitize: Email,
		Validate: ValidEmail(),
		Mapped:   true,
	})
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

	return f
}

// Password は入力されたパスワードを返す。
func (f *RegisterForm) Password() string { return f.Value("password") }

// CheckUnique はペンネームとメールアドレスの一意性を検証し、
// 重複があればフィールドエラーとして記録する。
func (f *RegisterForm) CheckUnique(ctx context.Context, users repository.UserRepository) error {
	exists, err := users.PseudoExists(ctx, f.Value("pseudo"))
	if err != nil {
		return fmt.Errorf("failed to check pseudo uniqueness: %w", err)
	}
	if exists {
		f.AddError("pseudo", model.NewDuplicatePseudoError().Message)
	}

	exists, err = users.EmailExists(ctx, f.Value("email"))
	if err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if exists {
		f.AddError("email", model.NewDuplicateEmailError().Message)
	}

	return nil
}
