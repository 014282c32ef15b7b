// Package repository はエンティティごとの読み取りクエリを提供する。
// 書き込みはpersistence.Managerが担い、ここは検索・結合・集計に限定する。
package repository

import (
	"context"

	"github.com/hitoshi/kiji/internal/model"
)

// UserRepository はユーザーの検索に必要なインターフェース。
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	PseudoExists(ctx context.Context, pseudo string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListAll(ctx context.Context) ([]*model.User, error)
}

// SessionRepository はセッションの検索・破棄に必要なインターフェース。
type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// PostRepository は記事の検索・集計に必要なインターフェース。
type PostRepository interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*PostSummary, error)
	ListFeatured(ctx context.Context) ([]*PostSummary, error)
	ListAll(ctx context.Context) ([]*PostSummary, error)
	CountPublished(ctx context.Context) (int, error)
	CountFeatured(ctx context.Context) (int, error)
}

// CommentRepository はコメントの検索に必要なインターフェース。
type CommentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	ListApprovedByPost(ctx context.Context, postID string) ([]*CommentDetail, error)
	ListAll(ctx context.Context) ([]*CommentDetail, error)
}

// PostSummary は一覧表示用の記事と結合済みメタ情報を表す。
type PostSummary struct {
	Post         *model.Post
	AuthorPseudo string
	CommentCount int // 承認済みコメント数
}

// CommentDetail は表示・モデレーション用のコメントと結合済みメタ情報を表す。
type CommentDetail struct {
	Comment      *model.Comment
	AuthorPseudo string
	PostTitle    string
}
