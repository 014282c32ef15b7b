package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
)

// --- モック定義 ---

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) PseudoExists(ctx context.Context, pseudo string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

// mockSessionRepo はSessionRepositoryのモック実装。
type mockSessionRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- テストヘルパー ---

// newTestService はモックリポジトリを注入したServiceを生成する。
func newTestService(users *mockUserRepo, sessions *mockSessionRepo) *Service {
	return NewService(users, sessions, persistence.NewManager(nil), csrf.NewSigner("auth-test-secret"), Config{
		SessionMaxAge: 14 * 24 * time.Hour,
	})
}

// mustHash はテスト用にパスワードハッシュを生成する。
func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return hash
}

// --- Authenticate テスト ---

func TestService_Authenticate(t *testing.T) {
	hash := mustHash(t, "correct-password")

	tests := []struct {
		name     string
		user     *model.User
		password string
		wantErr  error
	}{
		{
			name:     "未登録メールアドレス",
			user:     nil,
			password: "correct-password",
			wantErr:  model.ErrInvalidCredentials,
		},
		{
			name:     "パスワード不一致",
			user:     &model.User{Status: model.StatusRegistered, Password: hash},
			password: "wrong-password",
			wantErr:  model.ErrInvalidCredentials,
		},
		{
			name:     "無効化済みアカウントは専用エラー",
			user:     &model.User{Status: model.StatusDeactivated, Password: hash},
			password: "correct-password",
			wantErr:  model.ErrAccountDeactivated,
		},
		{
			name:     "確認待ちアカウントは資格情報エラーに畳み込む",
			user:     &model.User{Status: model.StatusWaiting, Password: hash},
			password: "correct-password",
			wantErr:  model.ErrInvalidCredentials,
		},
		{
			name:     "正しい資格情報",
			user:     &model.User{ID: "u-1", Status: model.StatusRegistered, Password: hash},
			password: "correct-password",
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return tt.user, nil
				},
			}
			svc := newTestService(users, &mockSessionRepo{})

			got, err := svc.Authenticate(context.Background(), "a@example.com", tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if got == nil || got.ID != tt.user.ID {
				t.Errorf("Authenticate() = %v, want %v", got, tt.user)
			}
		})
	}
}

// --- Cookie テスト ---

func TestService_ExpiredCookie(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	cookie := svc.ExpiredCookie()
	if cookie.Name != CookieName {
		t.Errorf("Name = %q, want %q", cookie.Name, CookieName)
	}
	if cookie.Value != "" {
		t.Errorf("Value = %q, want empty", cookie.Value)
	}
	if !cookie.Expires.Before(time.Now()) {
		t.Error("Expiresは過去であるべき")
	}
	if !cookie.HttpOnly {
		t.Error("HttpOnlyであるべき")
	}
}

func TestDecodePayload(t *testing.T) {
	raw := `{"id":"s-1","sign":"abc123"}`
	payload, err := decodePayload(url.QueryEscape(raw))
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if payload.ID != "s-1" || payload.Sign != "abc123" {
		t.Errorf("payload = %+v", payload)
	}

	if _, err := decodePayload("not-json"); err == nil {
		t.Error("不正なペイロードはエラーになるべき")
	}
}

// --- resolve テスト ---

func TestService_Resolve(t *testing.T) {
	const (
		remoteAddr = "192.0.2.1"
		userAgent  = "test-agent"
	)

	signer := csrf.NewSigner("auth-test-secret")
	sign, err := signer.Sign("s-1", remoteAddr, userAgent)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	validCookie := url.QueryEscape(`{"id":"s-1","sign":"` + sign + `"}`)

	registered := &model.User{ID: "u-1", Status: model.StatusRegistered}

	tests := []struct {
		name     string
		cookie   string
		session  *model.Session
		user     *model.User
		wantUser bool
	}{
		{
			name:     "有効なCookie",
			cookie:   validCookie,
			session:  &model.Session{ID: "s-1", UserID: "u-1"},
			user:     registered,
			wantUser: true,
		},
		{
			name:     "壊れたCookieは未認証として扱う",
			cookie:   "garbage",
			wantUser: false,
		},
		{
			name:     "署名不一致",
			cookie:   url.QueryEscape(`{"id":"s-1","sign":"tampered"}`),
			session:  &model.Session{ID: "s-1", UserID: "u-1"},
			user:     registered,
			wantUser: false,
		},
		{
			name:     "セッションが存在しない",
			cookie:   validCookie,
			session:  nil,
			wantUser: false,
		},
		{
			name:     "持ち主がREGISTEREDでない",
			cookie:   validCookie,
			session:  &model.Session{ID: "s-1", UserID: "u-1"},
			user:     &model.User{ID: "u-1", Status: model.StatusDeactivated},
			wantUser: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
					return tt.user, nil
				},
			}
			sessions := &mockSessionRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
					return tt.session, nil
				},
			}
			svc := newTestService(users, sessions)

			got, err := svc.resolve(context.Background(), tt.cookie, remoteAddr, userAgent)
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			if tt.wantUser && got == nil {
				t.Error("resolve() = nil, want user")
			}
			if !tt.wantUser && got != nil {
				t.Errorf("resolve() = %+v, want nil", got)
			}
		})
	}
}

// --- トークン・ハッシュ テスト ---

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	if len(a) != 64 {
		t.Errorf("len = %d, want 64（32バイトの16進表現）", len(a))
	}
	if a == b {
		t.Error("トークンは毎回異なるべき")
	}
	if strings.ToLower(a) != a {
		t.Error("トークンは小文字16進であるべき")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash := mustHash(t, "secret-password")
	user := &model.User{Password: hash}

	if !VerifyPassword(user, "secret-password") {
		t.Error("正しいパスワードは受理されるべき")
	}
	if VerifyPassword(user, "wrong") {
		t.Error("誤ったパスワードは拒否されるべき")
	}
}
