package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type tokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewTokenRepository(db *gorm.DB) repo.TokenRepository {
	return &tokenGormRepository{db: db}
}

// トークン行を保存。
func (r *tokenGormRepository) Create(ctx context.Context, token *model.Token) error {
	//タイムアウトやキャンセルをDB処理に伝える
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return err
	}
	return nil
}

// access_tokenで1件検索します。
func (r *tokenGormRepository) FindByAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	var token model.Token

	err := r.db.WithContext(ctx).
		Where("access_token = ?", accessToken).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrTokenNotFound
		}
		return nil, err
	}

	return &token, nil
}

// refresh_tokenで1件検索します。
func (r *tokenGormRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Token, error) {
	var token model.Token

	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrTokenNotFound
		}
		return nil, err
	}

	return &token, nil
}

// 同じ行のaccess_tokenを差し替える（refresh時）。
func (r *tokenGormRepository) UpdateAccessToken(ctx context.Context, tokenID string, accessToken string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Token{}).
		Where("id = ?", tokenID).
		Update("access_token", accessToken)

	if result.Error != nil {
		return result.Error
	}

	// 更新件数が0なら「すでに削除済み/存在しない」の可能性
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}

	return nil
}

// 指定IDのトークン行を削除。
func (r *tokenGormRepository) DeleteByID(ctx context.Context, tokenID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", tokenID).
		Delete(&model.Token{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}

	return nil
}

// access_tokenで削除（logout用）。
func (r *tokenGormRepository) DeleteByAccessToken(ctx context.Context, accessToken string) error {
	result := r.db.WithContext(ctx).
		Where("access_token = ?", accessToken).
		Delete(&model.Token{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}

	return nil
}

// cutoff以前に作られた行を列挙します（期限切れ掃除用）。
func (r *tokenGormRepository) FindOlderThan(ctx context.Context, cutoff time.Time) ([]*model.Token, error) {
	var tokens []*model.Token

	err := r.db.WithContext(ctx).
		Where("created_at <= ?", cutoff).
		Find(&tokens).Error

	if err != nil {
		return nil, err
	}

	return tokens, nil
}
