package model

import "time"

// FeaturedLimit は同時に注目記事にできる記事数の上限。
const FeaturedLimit = 5

// Post はブログ記事を表す。
// Contentはマークダウンで保持し、表示時にHTMLへ変換する。
type Post struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Title       string     `db:"title"`
	Chapo       string     `db:"chapo"`
	Content     string     `db:"content"`
	IsPublished bool       `db:"is_published"`
	IsFeatured  bool       `db:"is_featured"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// TableName は永続化先のテーブル名を返す。
func (p *Post) TableName() string { return "posts" }

// GetID はエンティティIDを返す。未永続の場合は空文字列。
func (p *Post) GetID() string { return p.ID }

// SetID はエンティティIDを設定する。
func (p *Post) SetID(id string) { p.ID = id }

// StampCreated は作成日時を設定する。
func (p *Post) StampCreated(t time.Time) { p.CreatedAt = t }

// StampUpdated は更新日時を設定する。
func (p *Post) StampUpdated(t time.Time) { p.UpdatedAt = &t }
