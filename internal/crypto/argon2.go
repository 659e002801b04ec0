package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ハッシュ文字列が壊れている
var ErrMalformedHash = errors.New("malformed argon2 hash")

// Hash は平文パスワードをargon2idでハッシュ化する。
// 呼び出しごとにランダムなソルトを使い、ソルト込みの文字列を返す。
func Hash(plain string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMem, argonPar, keySize)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMem, argonTime, argonPar,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify は平文と保存済みハッシュを定数時間で比較する。
// 不一致はfalse（エラーにしない）。ハッシュが壊れている場合だけエラー。
func Verify(plain string, encoded string) (bool, error) {
	salt, key, mem, t, par, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(plain), salt, t, mem, par, uint32(len(key)))

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// 保存形式をパースしてソルト・鍵・パラメータに分解する
func decodeHash(encoded string) (salt []byte, key []byte, mem uint32, t uint32, par uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &par); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}
	if len(key) == 0 {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	return salt, key, mem, t, par, nil
}
