package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/argon2"
)

const (
	cookieName = "app_session"
	nonceSize  = 12
	keySize    = 32
)

// Manager はrefresh tokenを暗号化cookieに入れて運ぶ。
// トークンが有効かどうかの判断はしない（それはIssuerの仕事）。
type Manager struct {
	key    []byte
	secure bool
	maxAge time.Duration
}

// NewManager はcookie secret/saltから暗号鍵を導出する。
func NewManager(secret string, salt string, secure bool, maxAge time.Duration) *Manager {
	key := argon2.IDKey([]byte(secret), []byte(salt), 3, 64*1024, 4, keySize)

	return &Manager{
		key:    key,
		secure: secure,
		maxAge: maxAge,
	}
}

// SetRefresh はrefresh値を暗号化してcookieにセットする。
func (m *Manager) SetRefresh(c echo.Context, refresh string) error {
	sealed, err := m.seal([]byte(refresh))
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.maxAge),
	})

	return nil
}

// GetRefresh はcookieからrefresh値を取り出す。
// cookieがない・復号できない場合は空文字を返す（エラーにしない）。
func (m *Manager) GetRefresh(c echo.Context) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	plain, err := m.open(cookie.Value)
	if err != nil {
		//改ざん・鍵違いは「セッションなし」扱い
		return ""
	}

	return string(plain)
}

// Clear はcookieを失効させる。
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// AES-GCMで暗号化してbase64urlにする。出力は nonce || ciphertext
func (m *Manager) seal(plain []byte) (string, error) {
	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plain, nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// sealの逆。認証タグが合わなければエラー
func (m *Manager) open(encoded string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(data) < nonceSize {
		return nil, errors.New("sealed value too short")
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}
