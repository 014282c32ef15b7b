package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/kiji/internal/auth"
	"github.com/hitoshi/kiji/internal/form"
	"github.com/hitoshi/kiji/internal/mailer"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/router"
)

// forgotPasswordData はパスワード再設定依頼ページのデータ。
type forgotPasswordData struct {
	page
	Form *form.ForgotPasswordForm
	CSRF string
}

// ForgotPasswordPage は再設定依頼フォームを表示する。
func (h *Handler) ForgotPasswordPage(c *router.Context) (*router.Response, error) {
	return h.renderForgotPassword(c, form.NewForgotPasswordForm(h.signer), http.StatusOK)
}

// ForgotPassword は再設定メールを送信する。
// メールアドレスの存在有無にかかわらず同じメッセージを表示する（列挙攻撃対策）。
func (h *Handler) ForgotPassword(c *router.Context) (*router.Response, error) {
	forgotForm := form.NewForgotPasswordForm(h.signer)
	if err := forgotForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle forgot password form: %w", err)
	}

	if !forgotForm.IsValid(c) {
		return h.renderForgotPassword(c, forgotForm, http.StatusUnprocessableEntity)
	}

	user, err := h.users.FindByEmail(c.Context(), forgotForm.Email())
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user != nil && user.Status == model.StatusRegistered {
		if err := h.sendResetMail(c, user); err != nil {
			return nil, err
		}
	}

	return h.render(http.StatusOK, "message", messageData{
		page:    newPage(c, "再設定メールを送信しました"),
		Heading: "再設定メールを送信しました",
		Body:    "登録済みのメールアドレスであれば、パスワード再設定のリンクをお送りしています。リンクの有効期限は1時間です。",
	})
}

// renderForgotPassword は再設定依頼ページを組み立てる。
func (h *Handler) renderForgotPassword(c *router.Context, forgotForm *form.ForgotPasswordForm, status int) (*router.Response, error) {
	token, err := forgotForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}
	return h.render(status, "password_forgot", forgotPasswordData{
		page: newPage(c, "パスワード再設定"),
		Form: forgotForm,
		CSRF: token,
	})
}

// sendResetMail は新しいリセットトークンを発行してメールを送信する。
func (h *Handler) sendResetMail(c *router.Context, user *model.User) error {
	token, err := auth.NewToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(resetTokenTTL)

	user.ResetToken = &token
	user.ResetExpiresAt = &expiresAt
	if err := h.manager.Flush(c.Context(), user); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	link := fmt.Sprintf("%s/password/reset/%s/%s", h.baseURL, user.ID, token)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "【kiji】パスワード再設定",
		Body: fmt.Sprintf("%s さん\n\n以下のリンクからパスワードを再設定してください（有効期限1時間）。\n\n%s\n",
			user.Pseudo, link),
	}
	if err := h.mailer.Send(c.Context(), msg); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	return nil
}

// resetPasswordData はパスワード再設定ページのデータ。
type resetPasswordData struct {
	page
	Form   *form.ResetPasswordForm
	CSRF   string
	Action string
}

// ResetPasswordPage は再設定フォームを表示する。トークンが不正・期限切れの
// 場合はエラーページを返す。
func (h *Handler) ResetPasswordPage(c *router.Context) (*router.Response, error) {
	if _, errResp, err := h.resolveResetUser(c); err != nil || errResp != nil {
		return errResp, err
	}

	return h.renderResetPassword(c, form.NewResetPasswordForm(h.signer), http.StatusOK)
}

// ResetPassword は新しいパスワードを保存し、リセットトークンと
// 既存セッションをすべて破棄する。
func (h *Handler) ResetPassword(c *router.Context) (*router.Response, error) {
	user, errResp, err := h.resolveResetUser(c)
	if err != nil || errResp != nil {
		return errResp, err
	}

	resetForm := form.NewResetPasswordForm(h.signer)
	if err := resetForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle reset password form: %w", err)
	}

	if !resetForm.IsValid(c) {
		return h.renderResetPassword(c, resetForm, http.StatusUnprocessableEntity)
	}

	hash, err := auth.HashPassword(resetForm.Password())
	if err != nil {
		return nil, err
	}

	user.Password = hash
	user.ResetToken = nil
	user.ResetExpiresAt = nil
	if err := h.manager.Flush(c.Context(), user); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	// パスワード変更後は全セッションを失効させる
	if err := h.sessions.DeleteByUserID(c.Context(), user.ID); err != nil {
		return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	return h.render(http.StatusOK, "message", messageData{
		page:    newPage(c, "パスワードを変更しました"),
		Heading: "パスワードを変更しました",
		Body:    "新しいパスワードでログインしてください。",
	})
}

// resolveResetUser はパスにのったリセットトークンを検証し、対象ユーザーを返す。
// 不正・期限切れの場合はエラーページを組み立てて返す。
func (h *Handler) resolveResetUser(c *router.Context) (*model.User, *router.Response, error) {
	user, err := h.users.FindByID(c.Context(), c.Param("id"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || user.ResetToken == nil || *user.ResetToken != c.Param("token") {
		appErr := model.NewTokenInvalidError()
		resp, err := h.ErrorPage(c, http.StatusNotFound, appErr.Message+" "+appErr.Action)
		return nil, resp, err
	}

	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		appErr := model.NewTokenExpiredError()
		resp, err := h.ErrorPage(c, http.StatusGone, appErr.Message+" もう一度再設定を依頼してください。")
		return nil, resp, err
	}

	return user, nil, nil
}

// renderResetPassword は再設定ページを組み立てる。
func (h *Handler) renderResetPassword(c *router.Context, resetForm *form.ResetPasswordForm, status int) (*router.Response, error) {
	token, err := resetForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}
	return h.render(status, "password_reset", resetPasswordData{
		page:   newPage(c, "新しいパスワードの設定"),
		Form:   resetForm,
		CSRF:   token,
		Action: c.Path(),
	})
}

// profileData はプロフィールページのデータ。
type profileData struct {
	page
	Form    *form.ChangePasswordForm
	CSRF    string
	Updated bool
}

// ProfilePage はプロフィールとパスワード変更フォームを表示する。
func (h *Handler) ProfilePage(c *router.Context) (*router.Response, error) {
	return h.renderProfile(c, form.NewChangePasswordForm(h.signer), false, http.StatusOK)
}

// ChangePassword は現在のパスワードを確認した上で新しいパスワードを保存する。
func (h *Handler) ChangePassword(c *router.Context) (*router.Response, error) {
	changeForm := form.NewChangePasswordForm(h.signer)
	if err := changeForm.HandleRequest(c); err != nil {
		return nil, fmt.Errorf("failed to handle change password form: %w", err)
	}

	valid := changeForm.IsValid(c)
	principal := c.Principal()
	if !auth.VerifyPassword(principal, changeForm.CurrentPassword()) {
		changeForm.AddError("current_password", "現在のパスワードが正しくありません。")
		valid = false
	}
	if !valid {
		return h.renderProfile(c, changeForm, false, http.StatusUnprocessableEntity)
	}

	hash, err := auth.HashPassword(changeForm.Password())
	if err != nil {
		return nil, err
	}

	principal.Password = hash
	if err := h.manager.Flush(c.Context(), principal); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	return h.renderProfile(c, form.NewChangePasswordForm(h.signer), true, http.StatusOK)
}

// renderProfile はプロフィールページを組み立てる。
func (h *Handler) renderProfile(c *router.Context, changeForm *form.ChangePasswordForm, updated bool, status int) (*router.Response, error) {
	token, err := changeForm.CSRFToken(c)
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}
	return h.render(status, "profile", profileData{
		page:    newPage(c, "プロフィール"),
		Form:    changeForm,
		CSRF:    token,
		Updated: updated,
	})
}
