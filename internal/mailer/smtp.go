package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
)

// SMTP はnet/smtp経由でメールを送信するメーラー。
// 認証なしの内部リレーを前提とする（ホスト・ポートは設定から渡される）。
type SMTP struct {
	host string
	port string
	from string
}

// NewSMTP はSMTPメーラーを生成する。
func NewSMTP(host, port, from string) *SMTP {
	return &SMTP{host: host, port: port, from: from}
}

// Send はメールを組み立てて送信する。
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.host, s.port)
	if err := smtp.SendMail(addr, nil, s.from, []string{msg.To}, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}

	return nil
}

// buildMessage はヘッダー付きのメール本文を組み立てる。
// 件名は日本語を含むためRFC 2047のQエンコーディングで包む。
func (s *SMTP) buildMessage(msg Message) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + s.from + "\r\n")
	sb.WriteString("To: " + msg.To + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)

	return []byte(sb.String())
}

// compile-time interface check
var _ Mailer = (*SMTP)(nil)
