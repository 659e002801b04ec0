package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("token not found")

// トークン行の保存・取得・削除
type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	FindByAccessToken(ctx context.Context, accessToken string) (*model.Token, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Token, error)
	//同じセッション行のaccess tokenを差し替える
	UpdateAccessToken(ctx context.Context, tokenID string, accessToken string) error
	DeleteByID(ctx context.Context, tokenID string) error
	//access tokenで削除。対象がなければErrTokenNotFound
	DeleteByAccessToken(ctx context.Context, accessToken string) error
	//cutoff以前に作られた行を列挙（期限切れ掃除用）
	FindOlderThan(ctx context.Context, cutoff time.Time) ([]*model.Token, error)
}
