package model

import (
	"errors"
	"fmt"
)

// 認証・認可の判定結果を呼び出し側で区別するためのセンチネルエラー。
var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しない場合のエラー。
	// 未登録メールアドレス・確認待ちアカウントもこのエラーに畳み込む（列挙攻撃対策）。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated はアカウントが無効化されている場合のエラー。
	ErrAccountDeactivated = errors.New("account deactivated")
)

// AppError はUI表示向けの統一エラーフォーマットを表す。
// 原因カテゴリとユーザー向け対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, moderation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeCommentNotFound  = "COMMENT_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeFeaturedLimit    = "FEATURED_LIMIT"
	ErrCodeNotPublished     = "NOT_PUBLISHED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeDuplicatePseudo  = "DUPLICATE_PSEUDO"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
)

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(postID string) *AppError {
	return &AppError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", postID),
		Category: "validation",
		Action:   "記事の一覧から選び直してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *AppError {
	return &AppError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "moderation",
		Action:   "ダッシュボードを再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewFeaturedLimitError は注目記事の上限超過エラーを生成する。
func NewFeaturedLimitError() *AppError {
	return &AppError{
		Code:     ErrCodeFeaturedLimit,
		Message:  fmt.Sprintf("注目記事は同時に%d件までです。", FeaturedLimit),
		Category: "moderation",
		Action:   "他の記事の注目を解除してから再度お試しください。",
	}
}

// NewNotPublishedError は未公開記事を注目記事にしようとした場合のエラーを生成する。
func NewNotPublishedError() *AppError {
	return &AppError{
		Code:     ErrCodeNotPublished,
		Message:  "未公開の記事は注目記事にできません。",
		Category: "moderation",
		Action:   "先に記事を公開してください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *AppError {
	return &AppError{
		Code:     ErrCodeTokenExpired,
		Message:  "リンクの有効期限が切れています。",
		Category: "auth",
		Action:   "新しいメールを送信しましたので、そちらのリンクをご利用ください。",
	}
}

// NewDuplicatePseudoError はペンネーム重複エラーを生成する。
func NewDuplicatePseudoError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicatePseudo,
		Message:  "このペンネームは既に使われています。",
		Category: "validation",
		Action:   "別のペンネームを入力してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、パスワードの再設定をお試しください。",
	}
}

// NewTokenInvalidError は不正トークンエラーを生成する。
func NewTokenInvalidError() *AppError {
	return &AppError{
		Code:     ErrCodeTokenInvalid,
		Message:  "リンクが正しくありません。",
		Category: "auth",
		Action:   "メールに記載されたリンクをそのまま開いてください。",
	}
}
