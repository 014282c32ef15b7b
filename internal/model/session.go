package model

import "time"

// Session はユーザーのログインセッションを表す。
// IDがそのままセッションCookieのペイロードになる。
// 1ユーザーにつき有効なセッションは1つ: 新規発行時に既存セッションは削除される。
type Session struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// TableName は永続化先のテーブル名を返す。
func (s *Session) TableName() string { return "sessions" }

// GetID はエンティティIDを返す。未永続の場合は空文字列。
func (s *Session) GetID() string { return s.ID }

// SetID はエンティティIDを設定する。
func (s *Session) SetID(id string) { s.ID = id }

// StampCreated は作成日時を設定する。
func (s *Session) StampCreated(t time.Time) { s.CreatedAt = t }

// StampUpdated は更新日時を設定する。
func (s *Session) StampUpdated(t time.Time) { s.UpdatedAt = &t }
