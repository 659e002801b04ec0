package model

import "time"

// 発行済みaccess/refreshペアにつき1行。
// 行を消せばそのセッションの両トークンが無効になる。
type Token struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"user_id"`
	AccessToken  string    `gorm:"not null;uniqueIndex" json:"-"`
	RefreshToken string    `gorm:"not null;index" json:"-"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}
