package model

import "time"

// 表示言語
type Language string

const (
	LanguageEN Language = "EN"
	LanguageFR Language = "FR"
)

// 言語が選択肢に含まれるか
func (l Language) Valid() bool {
	return l == LanguageEN || l == LanguageFR
}

type User struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`

	// argon2idハッシュ（平文は保存しない）
	Password string `gorm:"not null" json:"-"`

	// パスワードリセット用コード。未発行ならNULL
	ResetPasswordCode *string `gorm:"type:varchar(10)" json:"-"`

	Lang Language `gorm:"type:varchar(2);not null;default:'EN'" json:"lang"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
