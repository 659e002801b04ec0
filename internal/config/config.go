package config

import (
	"fmt"
	"os"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL string // Postgres接続文字列

	JWTAccessSecret  string        // access token署名シークレット
	JWTRefreshSecret string        // refresh token署名シークレット
	JWTAccessTime    time.Duration // access tokenの有効期限（15m）
	JWTRefreshTime   time.Duration // refresh tokenの有効期限（168h）

	CookieSecret string // セッションcookie暗号化シークレット（38文字）
	CookieSalt   string // セッションcookie鍵導出用ソルト（16文字）

	MailAPIURL string // 送信APIのURL（空なら送信しない）
	MailAPIKey string // 送信APIキー
	MailFrom   string // 送信元アドレス

	GoEnv     string // dev/prod
	APIDomain string // APIドメイン（cookieなどで使う）
	FEURL     string // フロントURL（CORSなどで使う）
}

// Loadは環境変数
func Load() (Config, error) {
	accessTime, err := mustDuration("JWT_ACCESS_TIME")
	if err != nil {
		return Config{}, err
	}
	refreshTime, err := mustDuration("JWT_REFRESH_TIME")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		JWTAccessTime:    accessTime,
		JWTRefreshTime:   refreshTime,

		CookieSecret: os.Getenv("COOKIE_SECRET"),
		CookieSalt:   os.Getenv("COOKIE_SALT"),

		MailAPIURL: os.Getenv("MAIL_API_URL"),
		MailAPIKey: os.Getenv("MAIL_API_KEY"),
		MailFrom:   os.Getenv("MAIL_FROM"),

		GoEnv:     os.Getenv("GO_ENV"),
		APIDomain: os.Getenv("API_DOMAIN"),
		FEURL:     os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if len(cfg.CookieSecret) < 32 {
		return Config{}, fmt.Errorf("COOKIE_SECRET must be at least 32 characters")
	}
	if len(cfg.CookieSalt) < 16 {
		return Config{}, fmt.Errorf("COOKIE_SALT must be at least 16 characters")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

// IsProductionは本番環境かどうか
func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

func mustDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
