// Package form は宣言的なフィールド登録・サニタイズ・検証・CSRF検証と、
// 検証済み入力のエンティティへのマッピングを提供する。
package form

import (
	"github.com/hitoshi/kiji/internal/csrf"
	"github.com/hitoshi/kiji/internal/entity"
	"github.com/hitoshi/kiji/internal/router"
)

// GlobalErrorKey はフォーム全体のエラー（CSRF失敗・認証失敗など）を
// 格納する予約キー。
const GlobalErrorKey = "global"

// csrfFieldName はすべてのフォームが持つ固定フィールド。
const csrfFieldName = "_csrf"

// SanitizeFunc は生入力に適用する変換。
type SanitizeFunc func(raw string) string

// ValidateFunc はサニタイズ済みの値を検証し、
// エラーメッセージ（問題なければ空文字列）を返す。
type ValidateFunc func(value string) string

// Field は1フィールド分の設定を表す。
type Field struct {
	// Name はフィールド名。Mappedなフィールドではエンティティのカラム名と一致させる。
	Name string
	// Sanitize は生入力に適用する変換。nilの場合はDefaultが適用される。
	Sanitize SanitizeFunc
	// Validate はサニタイズ済みの値の検証。nilの場合は検証しない。
	Validate ValidateFunc
	// Mapped は束縛エンティティへ書き込む対象かどうか。
	Mapped bool
}

// Form はフィールド定義・受信済みの値・エラーを保持するフォームエンジン。
// 具象フォームはこの型を埋め込み、コンストラクタでフィールドを登録する。
type Form struct {
	key    string // フォーム種別ごとに一意なCSRFキー。種別をまたいだトークン再利用を防ぐ。
	signer *csrf.Signer

	fields []Field
	values map[string]string
	errors map[string]string

	csrfToken string
	submitted bool
	bound     entity.Entity
}

// New はフォームエンジンを生成する。keyはフォーム種別ごとに一意にすること。
func New(key string, signer *csrf.Signer) *Form {
	return &Form{
		key:    key,
		signer: signer,
		values: make(map[string]string),
		errors: make(map[string]string),
	}
}

// AddField はフィールドを登録する。登録順は保持される。
func (f *Form) AddField(field Field) {
	if field.Sanitize == nil {
		field.Sanitize = Default
	}
	f.fields = append(f.fields, field)
}

// Bind は検証済み入力の書き込み先エンティティを設定する。
func (f *Form) Bind(e entity.Entity) {
	f.bound = e
}

// HandleRequest は送信された全フィールドをサニタイズして取り込む。
// `_csrf`だけは加工せずそのまま保持する。エンティティが束縛されている場合は
// Mappedなフィールドのみをマッパー経由で書き込む。
func (f *Form) HandleRequest(c *router.Context) error {
	f.submitted = c.Method() == "POST"

	for _, field := range f.fields {
		f.values[field.Name] = field.Sanitize(c.FormValue(field.Name))
	}
	f.csrfToken = c.FormValue(csrfFieldName)

	if f.bound != nil {
		record := make(map[string]any)
		for _, field := range f.fields {
			if field.Mapped {
				record[field.Name] = f.values[field.Name]
			}
		}
		if err := entity.ToEntity(record, f.bound); err != nil {
			return err
		}
	}

	return nil
}

// IsSubmitted はフォームがPOSTで送信されたかどうかを返す。
func (f *Form) IsSubmitted() bool {
	return f.submitted
}

// IsValid はCSRFトークンと全フィールドを検証する。
// CSRF失敗はGlobalErrorKeyに記録する。フィールドの検証は途中で失敗しても
// すべて実行し、該当するエラーを一度にまとめて収集する。
func (f *Form) IsValid(c *router.Context) bool {
	if f.csrfToken == "" || !f.signer.Verify(f.csrfToken, f.key, c.ClientIP(), c.UserAgent()) {
		f.errors[GlobalErrorKey] = "セッションの有効期限が切れました。もう一度お試しください。"
	}

	for _, field := range f.fields {
		if field.Validate == nil {
			continue
		}
		if msg := field.Validate(f.values[field.Name]); msg != "" {
			f.errors[field.Name] = msg
		}
	}

	return len(f.errors) == 0
}

// CSRFToken はフォーム描画用のトークンを発行する。
func (f *Form) CSRFToken(c *router.Context) (string, error) {
	return f.signer.Sign(f.key, c.ClientIP(), c.UserAgent())
}

// SetValue はフィールド値を直接設定する。既存エンティティの内容で
// フォームを初期表示する場合に使う。
func (f *Form) SetValue(name, value string) {
	f.values[name] = value
}

// Value はサニタイズ済みのフィールド値を返す。
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Error は指定フィールドのエラーメッセージを返す。エラーがなければ空文字列。
func (f *Form) Error(name string) string {
	return f.errors[name]
}

// Errors はフィールド名をキーにした全エラーを返す。
func (f *Form) Errors() map[string]string {
	return f.errors
}

// AddError はフィールドエラーを追加する。具象フォームの相関検証・
// 一意性検証やハンドラーからの認証エラーの注入に使う。
func (f *Form) AddError(name, message string) {
	f.errors[name] = message
}

// HasErrors はエラーが1件以上あるかどうかを返す。
func (f *Form) HasErrors() bool {
	return len(f.errors) > 0
}
