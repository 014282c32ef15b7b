// Package persistence はエンティティの書き込みキュー（persist/flush）と
// 汎用読み取りリポジトリを提供する。
//
// flushはキュー内の各タスクを独立したautocommitステートメントとして実行する。
// バッチ途中で失敗した場合、実行済みのステートメントはコミットされたまま残る
// （トランザクションによる巻き戻しは行わない）。
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/kiji/internal/entity"
)

// DBTX はステートメント実行に必要なデータベース操作のインターフェース。
// *sql.DBおよび*sql.Txが満たす。テストではフェイク実装を注入する。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// action は書き込みタスクの種別を表す。
type action int

const (
	actionCreate action = iota
	actionUpdate
)

// task はキューに積まれた1件の書き込みを表す。
type task struct {
	action action
	entity entity.Entity
}

// Manager はエンティティの書き込みをキューイングし、flushでまとめて実行する。
// キューはManagerインスタンスごとに独立している。
type Manager struct {
	db DBTX

	mu    sync.Mutex
	tasks []task
}

// NewManager はManagerを生成する。
func NewManager(db DBTX) *Manager {
	return &Manager{db: db}
}

// Persist はエンティティを書き込みキューへ追加する。
// IDを持たないエンティティにはこの時点で新しいUUIDを割り当ててcreateタスクに、
// IDを持つエンティティはupdateタスクにする。
// マッピング不能なエンティティはSQL実行前のこの時点でエラーになる。
func (m *Manager) Persist(entities ...entity.Entity) error {
	for _, e := range entities {
		if _, err := entity.MetadataOf(e); err != nil {
			return fmt.Errorf("persist: %w", err)
		}

		act := actionUpdate
		if e.GetID() == "" {
			e.SetID(uuid.NewString())
			act = actionCreate
		}

		m.mu.Lock()
		m.tasks = append(m.tasks, task{action: act, entity: e})
		m.mu.Unlock()
	}
	return nil
}

// Flush は引数のエンティティをキューへ追加した上で、キュー内の全タスクを
// 登録順に実行する。createは作成日時を設定してINSERT、updateは（同一バッチで
// createされたエンティティを除き）更新日時を設定してUPDATEを発行する。
// 成否にかかわらずキューは空になる。
func (m *Manager) Flush(ctx context.Context, entities ...entity.Entity) error {
	if err := m.Persist(entities...); err != nil {
		return err
	}

	m.mu.Lock()
	batch := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	now := time.Now()

	// 同一バッチでcreateされるIDの集合。対応するupdateでは更新日時を設定しない。
	createdIDs := make(map[string]struct{})
	for _, t := range batch {
		if t.action == actionCreate {
			createdIDs[t.entity.GetID()] = struct{}{}
		}
	}

	for _, t := range batch {
		switch t.action {
		case actionCreate:
			if s, ok := t.entity.(entity.Stampable); ok {
				s.StampCreated(now)
			}
			if err := m.insert(ctx, t.entity); err != nil {
				return err
			}
		case actionUpdate:
			if _, created := createdIDs[t.entity.GetID()]; !created {
				if s, ok := t.entity.(entity.Stampable); ok {
					s.StampUpdated(now)
				}
			}
			if err := m.update(ctx, t.entity); err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete はエンティティをIDで即時に削除する。キューとは独立に動作する。
func (m *Manager) Delete(ctx context.Context, e entity.Entity) error {
	meta, err := entity.MetadataOf(e)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, meta.Table)
	if _, err := m.db.ExecContext(ctx, query, e.GetID()); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", meta.Table, err)
	}

	return nil
}

// insert は全マップ済みカラムのパラメータ化INSERTを発行する。
func (m *Manager) insert(ctx context.Context, e entity.Entity) error {
	meta, err := entity.MetadataOf(e)
	if err != nil {
		return err
	}
	record, err := entity.ToRecord(e)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(meta.Columns))
	args := make([]any, len(meta.Columns))
	for i, column := range meta.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = record[column]
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		meta.Table,
		strings.Join(meta.Columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", meta.Table, err)
	}

	return nil
}

// update はid以外の全カラムをidをキーにUPDATEする。
func (m *Manager) update(ctx context.Context, e entity.Entity) error {
	meta, err := entity.MetadataOf(e)
	if err != nil {
		return err
	}
	record, err := entity.ToRecord(e)
	if err != nil {
		return err
	}

	var assignments []string
	var args []any
	i := 1
	for _, column := range meta.Columns {
		if column == "id" {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, record[column])
		i++
	}
	args = append(args, e.GetID())

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d`,
		meta.Table,
		strings.Join(assignments, ", "),
		i,
	)

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", meta.Table, err)
	}

	return nil
}

// PendingCount は未実行のタスク数を返す。テストおよびメトリクス用。
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// buildWhere は等値フィルタを決定的な順序の連言WHERE句に変換する。
func buildWhere(filters map[string]any) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conditions[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args[i] = filters[k]
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}
