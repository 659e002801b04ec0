package token

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 署名不正・期限切れ・形式不正は全部これに寄せる。
// 呼び出し側に理由を区別させない（expired/forgedを漏らさない）。
var ErrInvalidToken = errors.New("invalid_token")

// 発行したトークンのペア
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// JWTの発行・検証・失効
type Issuer struct {
	tokens        repository.TokenRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// DI
func NewIssuer(
	tokens repository.TokenRepository,
	accessSecret string,
	refreshSecret string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Issuer {
	return &Issuer{
		tokens:        tokens,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Issue はaccess/refreshのペアを発行してトークン行を保存する。
func (i *Issuer) Issue(ctx context.Context, userID string) (*Pair, error) {
	now := time.Now()

	accessToken, err := i.sign(userID, i.accessSecret, now, i.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := i.sign(userID, i.refreshSecret, now, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	//1セッション1行。行を消せば両方無効になる
	row := &model.Token{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
	}
	if err := i.tokens.Create(ctx, row); err != nil {
		return nil, err
	}

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess はaccess tokenを検証してuserIDを返す。
// ストアは見ない（署名と期限だけのステートレス検証）。
func (i *Issuer) VerifyAccess(accessToken string) (string, error) {
	return i.verify(accessToken, i.accessSecret)
}

// Refresh はrefresh tokenを検証して新しいaccess tokenを発行する。
// トークン行は同じ行のままaccess_tokenだけ差し替える。
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalidToken
	}

	userID, err := i.verify(refreshToken, i.refreshSecret)
	if err != nil {
		return "", ErrInvalidToken
	}

	//行がなければ失効済み（logout済みなど）
	row, err := i.tokens.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	accessToken, err := i.sign(userID, i.accessSecret, time.Now(), i.accessTTL)
	if err != nil {
		return "", err
	}

	if err := i.tokens.UpdateAccessToken(ctx, row.ID, accessToken); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	return accessToken, nil
}

// Revoke はaccess tokenに対応する行を削除する。
// 行がなくても成功扱い（冪等）。
func (i *Issuer) Revoke(ctx context.Context, accessToken string) error {
	err := i.tokens.DeleteByAccessToken(ctx, accessToken)
	if err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return err
	}
	return nil
}

// jwt発行
func (i *Issuer) sign(userID string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// jwt検証。失敗理由は区別せずErrInvalidToken
func (i *Issuer) verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}
