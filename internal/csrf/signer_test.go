package csrf

import (
	"errors"
	"testing"
)

func TestSigner_SignAndVerify(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Sign("login", "192.0.2.1", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if token == "" {
		t.Fatal("トークンが空")
	}

	if !signer.Verify(token, "login", "192.0.2.1", "Mozilla/5.0") {
		t.Error("同一指紋での検証は成功するべき")
	}
}

func TestSigner_Verify_Rejects(t *testing.T) {
	signer := NewSigner("test-secret")
	token, err := signer.Sign("login", "192.0.2.1", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		key   string
		ip    string
		ua    string
	}{
		{name: "改ざんされたトークン", token: token[:len(token)-1] + "0", key: "login", ip: "192.0.2.1", ua: "Mozilla/5.0"},
		{name: "異なるキー", token: token, key: "register", ip: "192.0.2.1", ua: "Mozilla/5.0"},
		{name: "異なるIP", token: token, key: "login", ip: "192.0.2.2", ua: "Mozilla/5.0"},
		{name: "異なるUser-Agent", token: token, key: "login", ip: "192.0.2.1", ua: "curl/8.0"},
		{name: "空のトークン", token: "", key: "login", ip: "192.0.2.1", ua: "Mozilla/5.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if signer.Verify(tt.token, tt.key, tt.ip, tt.ua) {
				t.Error("検証は失敗するべき")
			}
		})
	}
}

func TestSigner_Sign_MissingMaterial(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		ip     string
		ua     string
	}{
		{name: "シークレットなし", secret: "", ip: "192.0.2.1", ua: "Mozilla/5.0"},
		{name: "IPなし", secret: "s", ip: "", ua: "Mozilla/5.0"},
		{name: "User-Agentなし", secret: "s", ip: "192.0.2.1", ua: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := NewSigner(tt.secret)
			_, err := signer.Sign("login", tt.ip, tt.ua)
			if !errors.Is(err, ErrMissingMaterial) {
				t.Errorf("Sign() error = %v, want ErrMissingMaterial", err)
			}
		})
	}
}

func TestSigner_DifferentSecrets(t *testing.T) {
	a := NewSigner("secret-a")
	b := NewSigner("secret-b")

	token, err := a.Sign("login", "192.0.2.1", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if b.Verify(token, "login", "192.0.2.1", "Mozilla/5.0") {
		t.Error("異なるシークレットで発行されたトークンを受理してはいけない")
	}
}
