package entity

import (
	"fmt"
	"reflect"
	"time"
)

// ToRecord はエンティティをフラットなカラム名→値のレコードに変換する。
// キー集合はエンティティの宣言済みカラムと厳密に一致する。
// 日時はRFC 3339文字列へ、nilポインタはnilへシリアライズされる。
func ToRecord(e Entity) (map[string]any, error) {
	meta, err := MetadataOf(e)
	if err != nil {
		return nil, err
	}

	val := reflect.ValueOf(e).Elem()
	record := make(map[string]any, len(meta.Columns))

	for _, column := range meta.Columns {
		field := val.Field(meta.Field(column))
		record[column] = serialize(field)
	}

	return record, nil
}

// ToEntity はレコードの値をエンティティのフィールドへ書き込む。
// エンティティに対応しないキーは黙って無視する。nilおよび空文字列の値は
// 「値なし」としてスキップするが、falseや0は通常の値として設定する。
func ToEntity(record map[string]any, e Entity) error {
	meta, err := MetadataOf(e)
	if err != nil {
		return err
	}

	val := reflect.ValueOf(e).Elem()

	for column, raw := range record {
		idx := meta.Field(column)
		if idx < 0 {
			continue
		}
		if raw == nil {
			continue
		}
		if s, ok := raw.(string); ok && s == "" {
			continue
		}
		if err := assign(val.Field(idx), raw); err != nil {
			return fmt.Errorf("entity: column %s: %w", column, err)
		}
	}

	return nil
}

// serialize はフィールド値をレコード格納用の値に変換する。
func serialize(field reflect.Value) any {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil
		}
		field = field.Elem()
	}

	if t, ok := field.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}

	switch field.Kind() {
	case reflect.String:
		return field.String()
	case reflect.Bool:
		return field.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int()
	default:
		return field.Interface()
	}
}

// assign はレコードの値を型変換しつつフィールドへ設定する。
// database/sqlのスキャン結果（int64, bool, string, time.Time, []byte）と
// ToRecordの出力（RFC 3339文字列化された日時を含む）の両方を受け付ける。
func assign(field reflect.Value, raw any) error {
	// ポインタフィールドは指し先を確保してから書き込む
	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	// time.Timeフィールド: time.TimeまたはRFC 3339文字列を受け付ける
	if field.Type() == reflect.TypeOf(time.Time{}) {
		switch v := raw.(type) {
		case time.Time:
			field.Set(reflect.ValueOf(v))
			return nil
		case string:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fmt.Errorf("invalid time value %q: %w", v, err)
			}
			field.Set(reflect.ValueOf(t))
			return nil
		default:
			return fmt.Errorf("cannot assign %T to time.Time", raw)
		}
	}

	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	rv := reflect.ValueOf(raw)

	switch field.Kind() {
	case reflect.String:
		if rv.Kind() != reflect.String {
			return fmt.Errorf("cannot assign %T to string", raw)
		}
		field.SetString(rv.String())
	case reflect.Bool:
		if rv.Kind() != reflect.Bool {
			return fmt.Errorf("cannot assign %T to bool", raw)
		}
		field.SetBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetInt(rv.Int())
		case reflect.Float32, reflect.Float64:
			field.SetInt(int64(rv.Float()))
		default:
			return fmt.Errorf("cannot assign %T to integer", raw)
		}
	default:
		if !rv.Type().AssignableTo(field.Type()) {
			return fmt.Errorf("cannot assign %T to %s", raw, field.Type())
		}
		field.Set(rv)
	}

	return nil
}
