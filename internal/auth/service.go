// Package auth は資格情報の認証、署名付きセッションCookieの発行・検証、
// リクエストスコープのプリンシパル注入を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
	"github.com/hitoshi/kiji/internal/repository"
)

// CookieName はセッションCookieの名前。
const CookieName = "session"

// cookiePayload はセッションCookieに格納するJSONペイロード。
// セッションIDとそのHMAC署名を保持する。
type cookiePayload struct {
	ID   string `json:"id"`
	Sign string `json:"sign"`
}

// Config は認証サービスの設定。
type Config struct {
	SessionMaxAge time.Duration
	CookieSecure  bool
	CookieDomain  string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	manager  *persistence.Manager
	signer   *csrf.Signer
	config   Config
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	manager *persistence.Manager,
	signer *csrf.Signer,
	config Config,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		manager:  manager,
		signer:   signer,
		config:   config,
	}
}

// Authenticate はメールアドレスとパスワードでユーザーを認証する。
// 成功するのはステータスがREGISTEREDでパスワードが一致する場合のみ。
// 無効化済みアカウントはErrAccountDeactivatedを、それ以外の失敗
// （未登録メール・パスワード不一致・確認待ち）はErrInvalidCredentialsを返す。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}

	if user.Status == model.StatusDeactivated {
		return nil, model.ErrAccountDeactivated
	}
	if user.Status != model.StatusRegistered {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// Login は認証済みユーザーのセッションを発行し、署名付きCookieを返す。
// 既存セッションは先に削除する（1ユーザー1セッション）。
// この削除と挿入はトランザクションで囲っていないため、同一ユーザーの
// 同時ログインは後勝ちになる。
func (s *Service) Login(ctx context.Context, user *model.User, remoteAddr, userAgent string) (*http.Cookie, error) {
	if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to invalidate previous sessions: %w", err)
	}

	session := &model.Session{UserID: user.ID}
	if err := s.manager.Flush(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sign, err := s.signer.Sign(session.ID, remoteAddr, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	payload, err := json.Marshal(cookiePayload{ID: session.ID, Sign: sign})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session cookie: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(payload)),
		Path:     "/",
		Domain:   s.config.CookieDomain,
		Expires:  time.Now().Add(s.config.SessionMaxAge),
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Logout はCookieのセッションを破棄し、即時失効するCookieを返す。
func (s *Service) Logout(ctx context.Context, cookieValue string) (*http.Cookie, error) {
	payload, err := decodePayload(cookieValue)
	if err == nil && payload.ID != "" {
		if err := s.sessions.DeleteByID(ctx, payload.ID); err != nil {
			return nil, fmt.Errorf("failed to delete session: %w", err)
		}
		slog.Info("user logged out", slog.String("session_id", payload.ID))
	}

	return s.ExpiredCookie(), nil
}

// ExpiredCookie は即時失効（現在時刻の1秒前）するセッションCookieを返す。
func (s *Service) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		Expires:  time.Now().Add(-1 * time.Second),
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// resolve はCookie値からプリンシパルを解決する。
// 署名不正・セッション不在・ユーザーがREGISTEREDでない場合はnilを返す。
func (s *Service) resolve(ctx context.Context, cookieValue, remoteAddr, userAgent string) (*model.User, error) {
	payload, err := decodePayload(cookieValue)
	if err != nil {
		return nil, nil
	}

	if !s.signer.Verify(payload.Sign, payload.ID, remoteAddr, userAgent) {
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, payload.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil || user.Status != model.StatusRegistered {
		return nil, nil
	}

	return user, nil
}

// decodePayload はCookie値（URLエンコード済みJSON）をパースする。
func decodePayload(cookieValue string) (*cookiePayload, error) {
	raw, err := url.QueryUnescape(cookieValue)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape session cookie: %w", err)
	}

	payload := &cookiePayload{}
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		return nil, fmt.Errorf("failed to decode session cookie: %w", err)
	}

	return payload, nil
}

// VerifyPassword はユーザーの保存済みハッシュとパスワードを照合する。
// プロフィールのパスワード変更で現在のパスワード確認に使う。
func VerifyPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// HashPassword はパスワードのbcryptハッシュを生成する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// NewToken はメール確認・パスワードリセット用の暗号的に安全なトークンを生成する。
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
