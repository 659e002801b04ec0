package validator

import (
	"context"
	"net/mail"
	"strings"

	"app/internal/usecase"
)

// パスワードは8〜20文字
const (
	passwordMinLen = 8
	passwordMaxLen = 20
)

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	// email形式
	if !isValidEmailFormat(email) {
		return usecase.ErrEmailNotValid
	}

	return v.ValidatePassword(password)
}

// ログインの入力を検証
// 失敗理由は全部account_not_foundに潰す（メールの存在を漏らさない）
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return usecase.ErrAccountNotFound
	}

	return nil
}

// パスワード長のポリシーを検証
func (v *authValidator) ValidatePassword(password string) error {
	if len(password) < passwordMinLen {
		return usecase.ErrPasswordValidation
	}
	if len(password) > passwordMaxLen {
		return usecase.ErrPasswordValidation
	}
	return nil
}

// メールチェック
func isValidEmailFormat(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	_, err := mail.ParseAddress(trimmed)
	return err == nil
}
