package mailer

import (
	"strings"
	"testing"
)

func TestSMTP_BuildMessage_EncodesJapaneseSubject(t *testing.T) {
	m := NewSMTP("localhost", "25", "no-reply@example.com")

	raw := string(m.buildMessage(Message{
		To:      "taro@example.com",
		Subject: "メールアドレスの確認",
		Body:    "本文",
	}))

	// 非ASCIIの件名はRFC 2047でエンコードする
	if strings.Contains(raw, "Subject: メールアドレスの確認") {
		t.Error("件名を生のUTF-8のまま出力しないべき")
	}
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Errorf("raw = %q: Qエンコードされた件名ヘッダーが含まれるべき", raw)
	}

	if !strings.Contains(raw, "From: no-reply@example.com\r\n") {
		t.Error("Fromヘッダーが含まれるべき")
	}
	if !strings.Contains(raw, "To: taro@example.com\r\n") {
		t.Error("Toヘッダーが含まれるべき")
	}
	if !strings.HasSuffix(raw, "\r\n\r\n本文") {
		t.Errorf("raw = %q: 空行の後に本文が続くべき", raw)
	}
}

func TestSMTP_BuildMessage_AsciiSubjectUnchanged(t *testing.T) {
	m := NewSMTP("localhost", "25", "no-reply@example.com")

	raw := string(m.buildMessage(Message{
		To:      "taro@example.com",
		Subject: "Welcome",
		Body:    "hello",
	}))

	// ASCIIのみの件名はそのまま出力される
	if !strings.Contains(raw, "Subject: Welcome\r\n") {
		t.Errorf("raw = %q: ASCII件名はエンコードしないべき", raw)
	}
}
