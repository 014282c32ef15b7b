package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
)

// commentDetailSelect は表示・モデレーション系クエリで共通のSELECT句。
// 著者ペンネームと記事タイトルを結合する。
const commentDetailSelect = `
	SELECT c.id, c.user_id, c.post_id, c.content,
	       c.is_valid, c.validated_by, c.validated_at, c.created_at, c.updated_at,
	       u.pseudo, p.title
	FROM comments c
	JOIN users u ON u.id = c.user_id
	JOIN posts p ON p.id = c.post_id`

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db      persistence.DBTX
	generic *persistence.Repository[model.Comment, *model.Comment]
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db persistence.DBTX) *PostgresCommentRepo {
	return &PostgresCommentRepo{
		db:      db,
		generic: persistence.NewRepository[model.Comment](db),
	}
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	return r.generic.FindOneBy(ctx, map[string]any{"id": id})
}

// ListApprovedByPost は指定記事の承認済みコメントを古い順に返す。
func (r *PostgresCommentRepo) ListApprovedByPost(ctx context.Context, postID string) ([]*CommentDetail, error) {
	return r.queryDetails(ctx,
		commentDetailSelect+`
		 WHERE c.post_id = $1 AND c.is_valid = TRUE
		 ORDER BY c.created_at ASC`,
		postID,
	)
}

// ListAll は全コメントを承認待ち優先・新しい順に返す。管理ダッシュボード用。
func (r *PostgresCommentRepo) ListAll(ctx context.Context) ([]*CommentDetail, error) {
	return r.queryDetails(ctx,
		commentDetailSelect+`
		 ORDER BY (c.is_valid IS NULL) DESC, c.created_at DESC`,
	)
}

// queryDetails は結合クエリを実行してCommentDetailのリストを返す。
func (r *PostgresCommentRepo) queryDetails(ctx context.Context, query string, args ...any) ([]*CommentDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var details []*CommentDetail
	for rows.Next() {
		c := &model.Comment{}
		d := &CommentDetail{Comment: c}
		var isValid sql.NullBool
		var validatedBy sql.NullString
		var validatedAt, updatedAt sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.PostID, &c.Content,
			&isValid, &validatedBy, &validatedAt, &c.CreatedAt, &updatedAt,
			&d.AuthorPseudo, &d.PostTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		if isValid.Valid {
			c.IsValid = &isValid.Bool
		}
		if validatedBy.Valid {
			c.ValidatedBy = &validatedBy.String
		}
		if validatedAt.Valid {
			c.ValidatedAt = &validatedAt.Time
		}
		if updatedAt.Valid {
			c.UpdatedAt = &updatedAt.Time
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}

	return details, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
