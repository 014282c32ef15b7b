package form

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// emailPattern はメールアドレスの簡易形式チェック。
// 厳密なRFC準拠ではなく、確認メールの到達で最終検証する前提。
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Required は空でないことを検証するValidateFuncを返す。
func Required(message string) ValidateFunc {
	return func(value string) string {
		if value == "" {
			return message
		}
		return ""
	}
}

// LengthBetween は文字数（rune単位）がmin以上max以下であることを検証する。
func LengthBetween(min, max int) ValidateFunc {
	return func(value string) string {
		n := utf8.RuneCountInString(value)
		if n < min {
			return fmt.Sprintf("%d文字以上で入力してください。", min)
		}
		if n > max {
			return fmt.Sprintf("%d文字以内で入力してください。", max)
		}
		return ""
	}
}

// ValidEmail はメールアドレスの形式を検証する。
func ValidEmail() ValidateFunc {
	return func(value string) string {
		if value == "" || !emailPattern.MatchString(value) {
			return "メールアドレスの形式が正しくありません。"
		}
		return ""
	}
}

// Chain は複数のValidateFuncを順に適用し、最初のエラーを返す。
func Chain(validators ...ValidateFunc) ValidateFunc {
	return func(value string) string {
		for _, v := range validators {
			if msg := v(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}
