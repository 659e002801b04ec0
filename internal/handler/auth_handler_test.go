package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"app/internal/crypto"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/repository"
	"app/internal/session"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DB無しで全ルートを通すためのインメモリ実装

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*model.User{}}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Password = passwordHash
	}
	return nil
}

func (r *memoryUserRepo) SetResetCode(ctx context.Context, userID string, code *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.ResetPasswordCode = code
	}
	return nil
}

func (r *memoryUserRepo) UpdatePasswordAndClearResetCode(ctx context.Context, userID string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Password = passwordHash
		u.ResetPasswordCode = nil
	}
	return nil
}

// 発行したリセットコードをテストから覗くため
func (r *memoryUserRepo) resetCodeFor(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.ResetPasswordCode != nil {
			return *u.ResetPasswordCode
		}
	}
	return ""
}

type memoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.Token
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: map[string]*model.Token{}}
}

func (r *memoryTokenRepo) Create(ctx context.Context, t *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *memoryTokenRepo) FindByAccessToken(ctx context.Context, accessToken string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.AccessToken == accessToken {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *memoryTokenRepo) FindByRefreshToken(ctx context.Context, refreshToken string) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.RefreshToken == refreshToken {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *memoryTokenRepo) UpdateAccessToken(ctx context.Context, tokenID string, accessToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return repository.ErrTokenNotFound
	}
	t.AccessToken = accessToken
	return nil
}

func (r *memoryTokenRepo) DeleteByID(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tokenID]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(r.tokens, tokenID)
	return nil
}

func (r *memoryTokenRepo) DeleteByAccessToken(ctx context.Context, accessToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.AccessToken == accessToken {
			delete(r.tokens, id)
			return nil
		}
	}
	return repository.ErrTokenNotFound
}

func (r *memoryTokenRepo) FindOlderThan(ctx context.Context, cutoff time.Time) ([]*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Token
	for _, t := range r.tokens {
		if !t.CreatedAt.After(cutoff) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type noopMailer struct{}

func (noopMailer) SendTransactional(ctx context.Context, templateID string, recipient string, params map[string]string) error {
	return nil
}

type argonHasher struct{}

func (argonHasher) Hash(plain string) (string, error) {
	return crypto.Hash(plain)
}

func (argonHasher) Verify(plain string, hashed string) (bool, error) {
	return crypto.Verify(plain, hashed)
}

type testApp struct {
	e     *echo.Echo
	users *memoryUserRepo
}

func newTestApp() *testApp {
	users := newMemoryUserRepo()
	tokens := newMemoryTokenRepo()

	issuer := token.NewIssuer(tokens, "access-secret-for-test", "refresh-secret-for-test", 15*time.Minute, 24*time.Hour)
	sessions := session.NewManager("0123456789abcdef0123456789abcdef012345", "0123456789abcdef", false, 24*time.Hour)
	uc := usecase.NewAuthUsecase(users, issuer, argonHasher{}, noopMailer{}, validator.NewAuthValidator())

	e := echo.New()
	handler.NewAuthHandler(uc, sessions).RegisterRoutes(e, issuer)

	return &testApp{e: e, users: users}
}

// リクエスト1回分。bearerとcookieは任意
func (a *testApp) do(t *testing.T, method, path string, body any, bearer string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp()

	//登録
	rec := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"first_name": "Taro",
		"last_name":  "Yamada",
		"email":      "taro@example.com",
		"password":   "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decodeJSON(t, rec)["message"])

	//同じメールで再登録は弾かれる
	rec = app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_already_exist", decodeJSON(t, rec)["error"])

	//ログイン
	rec = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accessToken, _ := decodeJSON(t, rec)["access_token"].(string)
	require.NotEmpty(t, accessToken)
	sessionCookies := rec.Result().Cookies()
	require.NotEmpty(t, sessionCookies)

	//bearerでユーザー情報
	rec = app.do(t, http.MethodGet, "/auth/info", nil, accessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeJSON(t, rec)
	assert.Equal(t, "taro@example.com", info["email"])
	assert.Equal(t, "Taro", info["first_name"])

	//bearer無しは401
	rec = app.do(t, http.MethodGet, "/auth/info", nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	//cookieからrefresh
	rec = app.do(t, http.MethodPost, "/auth/refresh", nil, "", sessionCookies)
	require.Equal(t, http.StatusOK, rec.Code)
	newAccessToken, _ := decodeJSON(t, rec)["access_token"].(string)
	require.NotEmpty(t, newAccessToken)

	//refresh後のaccess tokenが使える
	rec = app.do(t, http.MethodGet, "/auth/info", nil, newAccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	//ログアウト
	rec = app.do(t, http.MethodPost, "/auth/logout", nil, newAccessToken, sessionCookies)
	require.Equal(t, http.StatusOK, rec.Code)

	//ログアウト後はrefreshできない（行が消えている）
	rec = app.do(t, http.MethodPost, "/auth/refresh", nil, "", sessionCookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_token", decodeJSON(t, rec)["error"])
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	//メール不明もパスワード違いも同じレスポンス
	for _, body := range []map[string]string{
		{"email": "nobody@example.com", "password": "password123"},
		{"email": "taro@example.com", "password": "wrongpassword"},
	} {
		rec = app.do(t, http.MethodPost, "/auth/login", body, "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "account_not_found", decodeJSON(t, rec)["error"])
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/auth/refresh", nil, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "refresh_not_found", decodeJSON(t, rec)["error"])
}

func TestResetPasswordFlow(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	//コード発行
	rec = app.do(t, http.MethodPost, "/auth/reset-password/ask", map[string]string{
		"email": "taro@example.com",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decodeJSON(t, rec)["message"])

	code := app.users.resetCodeFor("taro@example.com")
	require.Len(t, code, 4)

	//コード違いは弾かれる
	wrong := "0000"
	if code == "0000" {
		wrong = "1111"
	}
	rec = app.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email":      "taro@example.com",
		"reset_code": wrong,
		"password":   "newpassword",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "wrong_reset_code", decodeJSON(t, rec)["error"])

	//正しいコードで差し替え
	rec = app.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email":      "taro@example.com",
		"reset_code": code,
		"password":   "newpassword",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	//旧パスワードではログインできない
	rec = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	//新パスワードでログインできる
	rec = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "taro@example.com",
		"password": "newpassword",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	//コードは一度使うと無効
	rec = app.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"email":      "taro@example.com",
		"reset_code": code,
		"password":   "anotherpassword",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "wrong_reset_code", decodeJSON(t, rec)["error"])
}

func TestChangePasswordAndLanguage(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "taro@example.com",
		"password": "password123",
	}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accessToken, _ := decodeJSON(t, rec)["access_token"].(string)
	require.NotEmpty(t, accessToken)

	//旧パスワード違い
	rec = app.do(t, http.MethodPost, "/auth/password", map[string]string{
		"old_password": "wrongpassword",
		"new_password": "newpassword",
	}, accessToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password_error", decodeJSON(t, rec)["error"])

	//変更成功。既存のaccess tokenはそのまま使える
	rec = app.do(t, http.MethodPost, "/auth/password", map[string]string{
		"old_password": "password123",
		"new_password": "newpassword",
	}, accessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/auth/info", nil, accessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	//言語変更
	rec = app.do(t, http.MethodPut, "/auth/language", map[string]string{"lang": "FR"}, accessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FR", decodeJSON(t, rec)["lang"])

	rec = app.do(t, http.MethodPut, "/auth/language", map[string]string{"lang": "JP"}, accessToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "language_not_valid", decodeJSON(t, rec)["error"])
}
