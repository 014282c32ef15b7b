// Package csrf はシークレットとリクエスト指紋（IP・User-Agent）に束縛された
// HMACトークンの発行・検証を提供する。
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMissingMaterial は署名材料（シークレット・IP・User-Agent）のいずれかが
// 欠けている場合のエラー。ユーザー起因ではなく実行環境の不備を表す。
var ErrMissingMaterial = errors.New("csrf: signing material unavailable")

// Signer はキーをシークレット・クライアントIP・User-Agentに束縛して署名する。
// 発行したトークンは同一の指紋からの検証でのみ一致する。
type Signer struct {
	secret string
}

// NewSigner はSignerを生成する。
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Sign はキーに対するHMAC-SHA256トークンを16進文字列で返す。
// シークレット・IP・User-Agentのいずれかが空の場合はErrMissingMaterialを返す。
func (s *Signer) Sign(key, remoteAddr, userAgent string) (string, error) {
	if s.secret == "" || remoteAddr == "" || userAgent == "" {
		return "", ErrMissingMaterial
	}

	mac := hmac.New(sha256.New, []byte(s.secret+remoteAddr+userAgent))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify はトークンを再計算して定数時間比較で検証する。
// 署名材料が欠けている場合・一致しない場合はfalseを返す。
func (s *Signer) Verify(token, key, remoteAddr, userAgent string) bool {
	expected, err := s.Sign(key, remoteAddr, userAgent)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
