package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/persistence"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// 等値検索は汎用リポジトリに委譲し、存在チェックと一覧は専用SQLで実装する。
type PostgresUserRepo struct {
	db      persistence.DBTX
	generic *persistence.Repository[model.User, *model.User]
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db persistence.DBTX) *PostgresUserRepo {
	return &PostgresUserRepo{
		db:      db,
		generic: persistence.NewRepository[model.User](db),
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.generic.FindOneBy(ctx, map[string]any{"id": id})
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.generic.FindOneBy(ctx, map[string]any{"email": email})
}

// PseudoExists は指定ペンネームのユーザーが存在するかどうかを返す。
func (r *PostgresUserRepo) PseudoExists(ctx context.Context, pseudo string) (bool, error) {
	return r.exists(ctx, "pseudo", pseudo)
}

// EmailExists は指定メールアドレスのユーザーが存在するかどうかを返す。
func (r *PostgresUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

// ListAll は全ユーザーを登録日時の降順で返す。管理ダッシュボード用。
func (r *PostgresUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, pseudo, email, role, status, created_at
		 FROM users
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID, &u.FirstName, &u.LastName, &u.Pseudo,
			&u.Email, &u.Role, &u.Status, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// exists は指定カラムの値を持つ行が存在するかどうかを返す。
func (r *PostgresUserRepo) exists(ctx context.Context, column, value string) (bool, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM users WHERE %s = $1 LIMIT 1`, column),
		value,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
