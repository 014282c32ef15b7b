package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/kiji/internal/auth"
	"github.com/hitoshi/kiji/internal/form"
	"github.com/hitoshi/kiji/internal/mailer"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/router"
)

// トークンの有効期限。メール確認は24時間、パスワードリセットは1時間。
const (
	confirmationTokenTTL = 24 * time.Hour
	resetTokenTTL        = 1 * time.Hour
)

// loginData はログインページのデータ。
type loginData struct {
	page
	Form *form.LoginForm
	CSRF string
}

// LoginPage はログインフォームを表示する。
func (h *Handler) LoginPage(c *router.Context) (*router.Response, error) {
	if c.IsAuthenticated() {
		return router.Redirect(http.StatusSeeOther, "/"), nil
	}
	return h.renderLogin(c, form.NewLoginForm(h.signer), http.StatusOK)
}

// Login は資格情報を検証してセッションを発行する。
// 無効化済みアカウントにはその旨を、それ以外の失敗には
// 資格情報エラーを区別せずに表示する。
func (h *Handler) Login(c *router.Context) (*router.Response, error) {
	loginForm := form.NewLoginForm(h.signer)
	if err := loginForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle login form: %w", err)
	}

	if !loginForm.IsValid(c) {
		return h.renderLogin(c, loginForm, http.StatusUnprocessableEntity)
	}

	user, err := h.auth.Authenticate(c.Context(), loginForm.Email(), loginForm.Password())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAccountDeactivated):
			h.metrics.RecordAuthFailure("deactivated")
			loginForm.AddError(form.GlobalErrorKey, "このアカウントは無効化されています。管理者にお問い合わせください。")
		case errors.Is(err, model.ErrInvalidCredentials):
			h.metrics.RecordAuthFailure("invalid_credentials")
			loginForm.AddError(form.GlobalErrorKey, "メールアドレスまたはパスワードが正しくありません。")
		default:
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
		return h.renderLogin(c, loginForm, http.StatusUnprocessableEntity)
	}

	cookie, err := h.auth.Login(c.Context(), user, c.ClientIP(), c.UserAgent())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	resp := router.Redirect(http.StatusSeeOther, "/")
	resp.SetCookie(cookie)
	return resp, nil
}

// renderLogin はログインページを組み立てる。
func (h *Handler) renderLogin(c *router.Context, loginForm *form.LoginForm, status int) (*router.Response, error) {
	token, err := loginForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}
	return h.render(status, "login", loginData{
		page: newPage(c, "ログイン"),
		Form: loginForm,
		CSRF: token,
	})
}

// Logout はセッションを破棄してホームへリダイレクトする。
func (h *Handler) Logout(c *router.Context) (*router.Response, error) {
	resp := router.Redirect(http.StatusSeeOther, "/")

	cookie, err := c.Cookie(auth.CookieName)
	if err != nil || cookie.Value == "" {
		return resp, nil
	}

	expired, err := h.auth.Logout(c.Context(), cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to logout: %w", err)
	}
	resp.SetCookie(expired)

	return resp, nil
}

// registerData は登録ページのデータ。
type registerData struct {
	page
	Form *form.RegisterForm
	CSRF string
}

// RegisterPage は登録フォームを表示する。
func (h *Handler) RegisterPage(c *router.Context) (*router.Response, error) {
	if c.IsAuthenticated() {
		return router.Redirect(http.StatusSeeOther, "/"), nil
	}
	return h.renderRegister(c, form.NewRegisterForm(h.signer, &model.User{}), http.StatusOK)
}

// Register は新規ユーザーを確認待ち状態で作成し、確認メールを送る。
// ニックネーム・メールアドレスが既存ユーザーと重複する場合は
// フィールドエラーを表示し、行は作成しない。
func (h *Handler) Register(c *router.Context) (*router.Response, error) {
	user := &model.User{}
	registerForm := form.NewRegisterForm(h.signer, user)
	if err := registerForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle register form: %w", err)
	}

	valid := registerForm.IsValid(c)
	if err := registerForm.CheckUnique(c.Context(), h.users); err != nil {
		return nil, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	if !valid || registerForm.HasErrors() {
		return h.renderRegister(c, registerForm, http.StatusUnprocessableEntity)
	}

	hash, err := auth.HashPassword(registerForm.Password())
	if err != nil {
		return nil, err
	}

	token, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(confirmationTokenTTL)

	user.Password = hash
	user.Role = model.RoleUser
	user.Status = model.StatusWaiting
	user.ConfirmationToken = &token
	user.TokenExpiresAt = &expiresAt

	if err := h.manager.Flush(c.Context(), user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := h.sendConfirmationMail(c, user, token); err != nil {
		return nil, err
	}

	return h.render(http.StatusOK, "message", messageData{
		page:    newPage(c, "確認メールを送信しました"),
		Heading: "確認メールを送信しました",
		Body:    "メールに記載されたリンクを開いて登録を完了してください。リンクの有効期限は24時間です。",
	})
}

// renderRegister は登録ページを組み立てる。
func (h *Handler) renderRegister(c *router.Context, registerForm *form.RegisterForm, status int) (*router.Response, error) {
	token, err := registerForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}
	return h.render(status, "register", registerData{
		page: newPage(c, "ユーザー登録"),
		Form: registerForm,
		CSRF: token,
	})
}

// messageData は汎用メッセージページのデータ。
type messageData struct {
	page
	Heading string
	Body    string
}

// Confirm はメール確認リンクを処理する。
//
// トークンが一致して期限内であればアカウントをREGISTEREDへ遷移させる。
// 期限切れの場合は新しいトークンを発行してメールを再送する。
func (h *Handler) Confirm(c *router.Context) (*router.Response, error) {
	user, err := h.users.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.ConfirmationToken == nil {
		if user != nil && user.Status == model.StatusRegistered {
			return router.Redirect(http.StatusSeeOther, "/login"), nil
		}
		appErr := model.NewTokenInvalidError()
		return h.ErrorPage(c, http.StatusNotFound, appErr.Message+" "+appErr.Action)
	}

	if *user.ConfirmationToken != c.Param("token") {
		appErr := model.NewTokenInvalidError()
		return h.ErrorPage(c, http.StatusNotFound, appErr.Message+" "+appErr.Action)
	}

	if user.TokenExpiresAt == nil || time.Now().After(*user.TokenExpiresAt) {
		if err := h.reissueConfirmation(c, user); err != nil {
			return nil, err
		}
		appErr := model.NewTokenExpiredError()
		return h.render(http.StatusOK, "message", messageData{
			page:    newPage(c, "リンクの有効期限切れ"),
			Heading: appErr.Message,
			Body:    appErr.Action,
		})
	}

	user.Status = model.StatusRegistered
	user.ConfirmationToken = nil
	user.TokenExpiresAt = nil
	if err := h.manager.Flush(c.Context(), user); err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	h.metrics.RecordUserRegistered()

	return h.render(http.StatusOK, "message", messageData{
		page:    newPage(c, "登録が完了しました"),
		Heading: "登録が完了しました",
		Body:    "ログインしてブログをお楽しみください。",
	})
}

// reissueConfirmation は新しい確認トークンを発行してメールを再送する。
func (h *Handler) reissueConfirmation(c *router.Context, user *model.User) error {
	token, err := auth.NewToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(confirmationTokenTTL)

	user.ConfirmationToken = &token
	user.TokenExpiresAt = &expiresAt
	if err := h.manager.Flush(c.Context(), user); err != nil {
		return fmt.Errorf("failed to reissue confirmation token: %w", err)
	}

	return h.sendConfirmationMail(c, user, token)
}

// sendConfirmationMail は確認リンク付きメールを送信する。
func (h *Handler) sendConfirmationMail(c *router.Context, user *model.User, token string) error {
	link := fmt.Sprintf("%s/confirm/%s/%s", h.baseURL, user.ID, token)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "【kiji】メールアドレスの確認",
		Body: fmt.Sprintf("%s さん\n\n以下のリンクを開いて登録を完了してください（有効期限24時間）。\n\n%s\n",
			user.Pseudo, link),
	}
	if err := h.mailer.Send(c.Context(), msg); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}
	return nil
}
