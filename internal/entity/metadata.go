// Package entity はフラットなレコードとエンティティの相互変換を提供する。
// 変換対象のフィールドは`db`構造体タグで宣言し、メタデータは型ごとに1回だけ
// リフレクションで構築してキャッシュする。
package entity

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Entity は永続化可能なエンティティが実装するインターフェース。
type Entity interface {
	// TableName は永続化先のテーブル名を返す。
	TableName() string
	// GetID はエンティティIDを返す。未永続の場合は空文字列。
	GetID() string
	// SetID はエンティティIDを設定する。
	SetID(id string)
}

// Stampable は作成・更新日時の自動設定を受け付けるエンティティが実装する。
type Stampable interface {
	StampCreated(t time.Time)
	StampUpdated(t time.Time)
}

// マッピング不能なエンティティに対するエラー。SQL実行前に検出される。
var (
	// ErrNotMapped は`db`タグ付きフィールドを1つも持たない型に対するエラー。
	ErrNotMapped = errors.New("entity: type has no mapped fields")
	// ErrNoTable はテーブル名が空のエンティティに対するエラー。
	ErrNoTable = errors.New("entity: table name is empty")
	// ErrNotPointer はポインタ以外が渡された場合のエラー。
	ErrNotPointer = errors.New("entity: target must be a non-nil struct pointer")
)

// fieldMeta は1カラム分のマッピング情報を保持する。
type fieldMeta struct {
	column string
	index  int
}

// Metadata は1エンティティ型分のマッピング情報を保持する。
type Metadata struct {
	// Table は永続化先のテーブル名。
	Table string
	// Columns は宣言順のカラム名リスト。
	Columns []string

	byColumn map[string]fieldMeta
}

// metaCache は型ごとのMetadataを保持する。リフレクションは型につき1回で済む。
var metaCache sync.Map // reflect.Type -> *Metadata

// MetadataOf はエンティティのマッピングメタデータを返す。
// 初回のみリフレクションでタグを解析し、以降はキャッシュを返す。
func MetadataOf(e Entity) (*Metadata, error) {
	val := reflect.ValueOf(e)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, ErrNotPointer
	}

	typ := val.Elem().Type()
	if cached, ok := metaCache.Load(typ); ok {
		return cached.(*Metadata), nil
	}

	meta, err := parseType(typ, e.TableName())
	if err != nil {
		return nil, err
	}
	metaCache.Store(typ, meta)

	return meta, nil
}

// parseType はリフレクションで`db`タグを解析してMetadataを構築する。
func parseType(typ reflect.Type, table string) (*Metadata, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: type %s is not a struct", typ.Name())
	}
	if table == "" {
		return nil, ErrNoTable
	}

	meta := &Metadata{
		Table:    table,
		byColumn: make(map[string]fieldMeta),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		column := field.Tag.Get("db")
		if column == "" || column == "-" {
			continue
		}
		meta.Columns = append(meta.Columns, column)
		meta.byColumn[column] = fieldMeta{column: column, index: i}
	}

	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotMapped, typ.Name())
	}

	return meta, nil
}

// Field は指定カラムに対応するフィールドのインデックスを返す。
// 対応するフィールドがない場合は-1を返す。
func (m *Metadata) Field(column string) int {
	fm, ok := m.byColumn[column]
	if !ok {
		return -1
	}
	return fm.index
}
