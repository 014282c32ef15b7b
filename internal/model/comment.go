package model

import "time"

// Comment は記事へのコメントを表す。
// IsValidは三値をとる: nil=承認待ち、true=承認済み、false=却下。
// ValidatedBy・ValidatedAtはIsValidの設定と同時に設定される。
type Comment struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	PostID      string     `db:"post_id"`
	Content     string     `db:"content"`
	IsValid     *bool      `db:"is_valid"`
	ValidatedBy *string    `db:"validated_by"`
	ValidatedAt *time.Time `db:"validated_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// TableName は永続化先のテーブル名を返す。
func (c *Comment) TableName() string { return "comments" }

// GetID はエンティティIDを返す。未永続の場合は空文字列。
func (c *Comment) GetID() string { return c.ID }

// SetID はエンティティIDを設定する。
func (c *Comment) SetID(id string) { c.ID = id }

// StampCreated は作成日時を設定する。
func (c *Comment) StampCreated(t time.Time) { c.CreatedAt = t }

// StampUpdated は更新日時を設定する。
func (c *Comment) StampUpdated(t time.Time) { c.UpdatedAt = &t }

// Validate は承認・却下の判定結果と監査フィールドをまとめて設定する。
func (c *Comment) Validate(approved bool, adminID string, at time.Time) {
	c.IsValid = &approved
	c.ValidatedBy = &adminID
	c.ValidatedAt = &at
}

// IsPending は承認待ちかどうかを返す。
func (c *Comment) IsPending() bool { return c.IsValid == nil }

// IsApproved は承認済みかどうかを返す。
func (c *Comment) IsApproved() bool { return c.IsValid != nil && *c.IsValid }
