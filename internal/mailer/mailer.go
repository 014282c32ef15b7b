// Package mailer は確認メール・パスワードリセットメールの送信を提供する。
package mailer

import (
	"context"
	"log/slog"
)

// Message は送信する1通のメールを表す。
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer はメール送信のインターフェース。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Noop は送信せずログに記録するだけのメーラー。
// SMTPが未設定の開発環境で使用する。
type Noop struct{}

// NewNoop はNoopメーラーを生成する。
func NewNoop() *Noop {
	return &Noop{}
}

// Send はメールを送信したことにしてログへ記録する。
func (n *Noop) Send(ctx context.Context, msg Message) error {
	slog.Info("mail suppressed (noop mailer)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// compile-time interface check
var _ Mailer = (*Noop)(nil)
