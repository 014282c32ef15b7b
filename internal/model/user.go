// Package model はドメインモデルを定義する。
package model

import "time"

// ユーザーのロール。管理者はすべてのロールゲートを通過できる。
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// UserStatus はユーザーアカウントの状態を表す。
type UserStatus int

const (
	// StatusWaiting はメール確認待ちの状態。
	StatusWaiting UserStatus = 0
	// StatusRegistered はメール確認済みでログイン可能な状態。
	StatusRegistered UserStatus = 1
	// StatusDeactivated は管理者によって無効化された状態。
	StatusDeactivated UserStatus = 2
)

// User はブログの利用ユーザーを表す。
// PseudoとEmailは全ユーザーで一意。Passwordはbcryptハッシュを保持する。
type User struct {
	ID                string     `db:"id"`
	FirstName         string     `db:"first_name"`
	LastName          string     `db:"last_name"`
	Pseudo            string     `db:"pseudo"`
	Email             string     `db:"email"`
	Password          string     `db:"password"`
	Role              string     `db:"role"`
	Status            UserStatus `db:"status"`
	ConfirmationToken *string    `db:"confirmation_token"`
	TokenExpiresAt    *time.Time `db:"token_expires_at"`
	ResetToken        *string    `db:"reset_token"`
	ResetExpiresAt    *time.Time `db:"reset_expires_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         *time.Time `db:"updated_at"`
}

// TableName は永続化先のテーブル名を返す。
func (u *User) TableName() string { return "users" }

// GetID はエンティティIDを返す。未永続の場合は空文字列。
func (u *User) GetID() string { return u.ID }

// SetID はエンティティIDを設定する。
func (u *User) SetID(id string) { u.ID = id }

// StampCreated は作成日時を設定する。
func (u *User) StampCreated(t time.Time) { u.CreatedAt = t }

// StampUpdated は更新日時を設定する。
func (u *User) StampUpdated(t time.Time) { u.UpdatedAt = &t }

// IsAdmin は管理者ロールかどうかを返す。
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasRole は指定ロールのゲートを通過できるかどうかを返す。
// 管理者はすべてのロールゲートを通過できる。
func (u *User) HasRole(role string) bool {
	return u.Role == role || u.Role == RoleAdmin
}

// FullName は表示用の氏名を返す。
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
