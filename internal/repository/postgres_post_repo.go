package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
)

// postSummarySelect は一覧系クエリで共通のSELECT句。
// 著者ペンネームと承認済みコメント数を結合する。
const postSummarySelect = `
	SELECT p.id, p.user_id, p.title, p.chapo, p.content,
	       p.is_published, p.is_featured, p.created_at, p.updated_at,
	       u.pseudo,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.is_valid = TRUE)
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db      persistence.DBTX
	generic *persistence.Repository[model.Post, *model.Post]
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db persistence.DBTX) *PostgresPostRepo {
	return &PostgresPostRepo{
		db:      db,
		generic: persistence.NewRepository[model.Post](db),
	}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return r.generic.FindOneBy(ctx, map[string]any{"id": id})
}

// ListPublished は公開済み記事を新しい順に返す。
func (r *PostgresPostRepo) ListPublished(ctx context.Context, limit, offset int) ([]*PostSummary, error) {
	return r.querySummaries(ctx,
		postSummarySelect+`
		 WHERE p.is_published = TRUE
		 ORDER BY p.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
}

// ListFeatured は注目記事を新しい順に返す。上限は5件。
func (r *PostgresPostRepo) ListFeatured(ctx context.Context) ([]*PostSummary, error) {
	return r.querySummaries(ctx,
		postSummarySelect+`
		 WHERE p.is_featured = TRUE AND p.is_published = TRUE
		 ORDER BY p.created_at DESC
		 LIMIT $1`,
		model.FeaturedLimit,
	)
}

// ListAll は公開状態を問わず全記事を新しい順に返す。管理ダッシュボード用。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]*PostSummary, error) {
	return r.querySummaries(ctx,
		postSummarySelect+`
		 ORDER BY p.created_at DESC`,
	)
}

// CountPublished は公開済み記事の件数を返す。ページング用。
func (r *PostgresPostRepo) CountPublished(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM posts WHERE is_published = TRUE`)
}

// CountFeatured は注目記事の件数を返す。上限チェック用。
func (r *PostgresPostRepo) CountFeatured(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM posts WHERE is_featured = TRUE`)
}

// querySummaries は一覧系クエリを実行してPostSummaryのリストを返す。
func (r *PostgresPostRepo) querySummaries(ctx context.Context, query string, args ...any) ([]*PostSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var summaries []*PostSummary
	for rows.Next() {
		p := &model.Post{}
		s := &PostSummary{Post: p}
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Chapo, &p.Content,
			&p.IsPublished, &p.IsFeatured, &p.CreatedAt, &updatedAt,
			&s.AuthorPseudo, &s.CommentCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		if updatedAt.Valid {
			p.UpdatedAt = &updatedAt.Time
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return summaries, nil
}

// count は単一のCOUNTクエリを実行する。
func (r *PostgresPostRepo) count(ctx context.Context, query string) (int, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to scan post count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
