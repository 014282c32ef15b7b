package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/kiji/internal/entity"
)

// Repository は1テーブルに対する汎用読み取りクエリを提供する。
// TはエンティティのStruct型、PTはそのポインタ型（entity.Entityを満たす）。
// 並び順・ページングは保証しない。順序が必要な読み取りは
// エンティティごとのリポジトリが専用SQLで実装する。
type Repository[T any, PT interface {
	*T
	entity.Entity
}] struct {
	db DBTX
}

// NewRepository は型Tの汎用リポジトリを生成する。
func NewRepository[T any, PT interface {
	*T
	entity.Entity
}](db DBTX) *Repository[T, PT] {
	return &Repository[T, PT]{db: db}
}

// FindAll はテーブルの全行をエンティティとして返す。
func (r *Repository[T, PT]) FindAll(ctx context.Context) ([]PT, error) {
	return r.FindBy(ctx, nil)
}

// FindBy は等値フィルタに合致する行をエンティティとして返す。
// フィルタのキーはカラム名で、すべてANDで結合されバインドパラメータになる。
func (r *Repository[T, PT]) FindBy(ctx context.Context, filters map[string]any) ([]PT, error) {
	records, err := r.FindRecordsBy(ctx, filters)
	if err != nil {
		return nil, err
	}

	results := make([]PT, 0, len(records))
	for _, record := range records {
		e := PT(new(T))
		if err := entity.ToEntity(record, e); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, nil
}

// FindOneBy は等値フィルタに合致する最初の行をエンティティとして返す。
// 合致する行がない場合はnilを返す。
func (r *Repository[T, PT]) FindOneBy(ctx context.Context, filters map[string]any) (PT, error) {
	results, err := r.FindBy(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// FindRecordsBy は等値フィルタに合致する行を生のレコードとして返す。
func (r *Repository[T, PT]) FindRecordsBy(ctx context.Context, filters map[string]any) ([]map[string]any, error) {
	meta, err := entity.MetadataOf(PT(new(T)))
	if err != nil {
		return nil, err
	}

	where, args := buildWhere(filters)
	query := fmt.Sprintf(
		`SELECT %s FROM %s%s`,
		strings.Join(meta.Columns, ", "),
		meta.Table,
		where,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", meta.Table, err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		holders := make([]any, len(meta.Columns))
		for i := range holders {
			var v any
			holders[i] = &v
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", meta.Table, err)
		}

		record := make(map[string]any, len(meta.Columns))
		for i, column := range meta.Columns {
			record[column] = *(holders[i].(*any))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", meta.Table, err)
	}

	return records, nil
}
