package form

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/router"
)

const (
	testUserAgent = "test-agent/1.0"
	testSecret    = "form-test-secret"
)

// newFormContext はフォーム送信リクエストのContextを生成する。
func newFormContext(t *testing.T, method string, values url.Values) *router.Context {
	t.Helper()

	req := httptest.NewRequest(method, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", testUserAgent)
	return router.NewContext(req)
}

// signToken はテスト用にフォームキーのCSRFトークンを発行する。
func signToken(t *testing.T, signer *csrf.Signer, key string, c *router.Context) string {
	t.Helper()

	token, err := signer.Sign(key, c.ClientIP(), c.UserAgent())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return token
}

func TestCommentForm_ContentLength(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	tests := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{name: "1文字", content: "a", wantOK: true},
		{name: "上限ちょうど1024文字", content: strings.Repeat("あ", 1024), wantOK: true},
		{name: "上限超過1025文字", content: strings.Repeat("あ", 1025), wantOK: false},
		{name: "空", content: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{"content": {tt.content}}
			c := newFormContext(t, "POST", values)
			values.Set("_csrf", signToken(t, signer, "comment", c))
			c = newFormContext(t, "POST", values)

			comment := &model.Comment{}
			f := NewCommentForm(signer, comment)
			if err := f.HandleRequest(c); err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}

			if got := f.IsValid(c); got != tt.wantOK {
				t.Errorf("IsValid() = %v, want %v（errors: %v）", got, tt.wantOK, f.Errors())
			}
			if tt.wantOK && comment.Content != tt.content {
				t.Errorf("Content = %q: Mappedフィールドはエンティティへ書き込まれるべき", comment.Content)
			}
		})
	}
}

func TestForm_CSRFFailure(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	tests := []struct {
		name  string
		token func(c *router.Context) string
	}{
		{
			name:  "トークンなし",
			token: func(c *router.Context) string { return "" },
		},
		{
			name: "異なるフォームキーのトークン",
			token: func(c *router.Context) string {
				return signToken(t, signer, "login", c)
			},
		},
		{
			name: "改ざんされたトークン",
			token: func(c *router.Context) string {
				tok := signToken(t, signer, "comment", c)
				return tok[:len(tok)-1] + "0"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{"content": {"hello"}}
			c := newFormContext(t, "POST", values)
			values.Set("_csrf", tt.token(c))
			c = newFormContext(t, "POST", values)

			f := NewCommentForm(signer, &model.Comment{})
			if err := f.HandleRequest(c); err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}

			if f.IsValid(c) {
				t.Fatal("CSRF失敗でIsValid()はfalseになるべき")
			}
			if f.Error(GlobalErrorKey) == "" {
				t.Error("CSRF失敗はglobalエラーに記録されるべき")
			}
		})
	}
}

func TestForm_AllValidatorsRun(t *testing.T) {
	// CSRFが失敗しても、フィールドの検証はすべて実行されてまとめて収集される
	signer := csrf.NewSigner(testSecret)

	values := url.Values{"content": {""}} // contentも検証エラー
	c := newFormContext(t, "POST", values)

	f := NewCommentForm(signer, &model.Comment{})
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	if f.IsValid(c) {
		t.Fatal("IsValid() = true, want false")
	}
	if f.Error(GlobalErrorKey) == "" {
		t.Error("globalエラーが記録されるべき")
	}
	if f.Error("content") == "" {
		t.Error("contentエラーも同時に収集されるべき")
	}
}

func TestForm_IsSubmitted(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	f := NewCommentForm(signer, &model.Comment{})
	if err := f.HandleRequest(newFormContext(t, "GET", url.Values{})); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if f.IsSubmitted() {
		t.Error("GETではIsSubmitted() = falseであるべき")
	}

	f = NewCommentForm(signer, &model.Comment{})
	if err := f.HandleRequest(newFormContext(t, "POST", url.Values{})); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if !f.IsSubmitted() {
		t.Error("POSTではIsSubmitted() = trueであるべき")
	}
}

func TestForm_SanitizeStripsHTML(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	values := url.Values{"content": {"  <script>alert(1)</script>こんにちは  "}}
	c := newFormContext(t, "POST", values)

	f := NewCommentForm(signer, &model.Comment{})
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	got := f.Value("content")
	if strings.Contains(got, "<script>") {
		t.Errorf("Value = %q: HTMLタグは除去されるべき", got)
	}
	if !strings.Contains(got, "こんにちは") {
		t.Errorf("Value = %q: テキストは保持されるべき", got)
	}
	if strings.HasPrefix(got, " ") || strings.HasSuffix(got, " ") {
		t.Errorf("Value = %q: 前後の空白は除去されるべき", got)
	}
}

// mockUserRepo はUserRepositoryのモック実装。一意性チェックのみ使用する。
type mockUserRepo struct {
	pseudoExistsFn func(ctx context.Context, pseudo string) (bool, error)
	emailExistsFn  func(ctx context.Context, email string) (bool, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) PseudoExists(ctx context.Context, pseudo string) (bool, error) {
	if m.pseudoExistsFn != nil {
		return m.pseudoExistsFn(ctx, pseudo)
	}
	return false, nil
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

func registerValues(pseudo, email, password, confirm string) url.Values {
	return url.Values{
		"first_name":       {"太郎"},
		"last_name":        {"山田"},
		"pseudo":           {pseudo},
		"email":            {email},
		"password":         {password},
		"password_confirm": {confirm},
	}
}

func TestRegisterForm_Valid(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	values := registerValues("taro", "Taro@Example.com", "password123", "password123")
	c := newFormContext(t, "POST", values)
	values.Set("_csrf", signToken(t, signer, "register", c))
	c = newFormContext(t, "POST", values)

	user := &model.User{}
	f := NewRegisterForm(signer, user)
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	if !f.IsValid(c) {
		t.Fatalf("IsValid() = false, errors: %v", f.Errors())
	}

	// Mappedフィールドはエンティティへ書き込まれ、メールは小文字化される
	if user.Pseudo != "taro" {
		t.Errorf("Pseudo = %q, want taro", user.Pseudo)
	}
	if user.Email != "taro@example.com" {
		t.Errorf("Email = %q: 小文字化されるべき", user.Email)
	}
	// パスワードはMappedではないため生のまま書き込まれない
	if user.Password != "" {
		t.Errorf("Password = %q: エンティティに書き込まれないべき", user.Password)
	}
}

func TestRegisterForm_PasswordMismatch(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	values := registerValues("taro", "taro@example.com", "password123", "different456")
	c := newFormContext(t, "POST", values)
	values.Set("_csrf", signToken(t, signer, "register", c))
	c = newFormContext(t, "POST", values)

	f := NewRegisterForm(signer, &model.User{})
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	if f.IsValid(c) {
		t.Fatal("パスワード不一致でIsValid() = falseになるべき")
	}
	if f.Error("password_confirm") == "" {
		t.Error("password_confirmエラーが記録されるべき")
	}
}

func TestRegisterForm_CheckUnique(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	values := registerValues("taken", "taken@example.com", "password123", "password123")
	c := newFormContext(t, "POST", values)
	values.Set("_csrf", signToken(t, signer, "register", c))
	c = newFormContext(t, "POST", values)

	f := NewRegisterForm(signer, &model.User{})
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}
	if !f.IsValid(c) {
		t.Fatalf("IsValid() = false, errors: %v", f.Errors())
	}

	users := &mockUserRepo{
		pseudoExistsFn: func(ctx context.Context, pseudo string) (bool, error) {
			return pseudo == "taken", nil
		},
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return email == "taken@example.com", nil
		},
	}

	if err := f.CheckUnique(context.Background(), users); err != nil {
		t.Fatalf("CheckUnique() error = %v", err)
	}

	// フィールドエラーの文言は定義済みエラーと同一ソースを使う
	if got, want := f.Error("pseudo"), model.NewDuplicatePseudoError().Message; got != want {
		t.Errorf("pseudo error = %q, want %q", got, want)
	}
	if got, want := f.Error("email"), model.NewDuplicateEmailError().Message; got != want {
		t.Errorf("email error = %q, want %q", got, want)
	}
	if !f.HasErrors() {
		t.Error("HasErrors() = falseになってはいけない")
	}
}

func TestChain(t *testing.T) {
	validate := Chain(
		Required("必須です。"),
		LengthBetween(3, 5),
	)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "空文字は最初のエラーで止まる", value: "", want: "必須です。"},
		{name: "短すぎる", value: "ab", want: "3文字以上で入力してください。"},
		{name: "範囲内はエラーなし", value: "abcd", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validate(tt.value); got != tt.want {
				t.Errorf("Chain()(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestRegisterForm_EmptyPassword(t *testing.T) {
	signer := csrf.NewSigner(testSecret)

	values := registerValues("taro", "taro@example.com", "", "")
	c := newFormContext(t, "POST", values)
	values.Set("_csrf", signToken(t, signer, "register", c))
	c = newFormContext(t, "POST", values)

	f := NewRegisterForm(signer, &model.User{})
	if err := f.HandleRequest(c); err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	if f.IsValid(c) {
		t.Fatal("空のパスワードは無効になるべき")
	}
	if got := f.Error("password"); got != "パスワードを入力してください。" {
		t.Errorf("password error = %q: 未入力専用の文言を返すべき", got)
	}
}
