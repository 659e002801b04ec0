package repository

import (
	"app/internal/domain/model"
	"context"
)

// 保存・取得を約束
// 見つからない場合は (nil, nil) を返す（エラーにしない）
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ユーザー情報の更新=>言語設定の変更など
	Update(ctx context.Context, user *model.User) error
	//パスワードハッシュだけを上書き
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	//リセットコードをセット（nilでクリア）
	SetResetCode(ctx context.Context, userID string, code *string) error
	//パスワード上書きとリセットコードのクリアを1回の書き込みで行う
	UpdatePasswordAndClearResetCode(ctx context.Context, userID string, passwordHash string) error
}
