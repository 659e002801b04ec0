package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/crypto"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/job"
	"app/internal/mail"
	"app/internal/server"
	"app/internal/session"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// argon2idハッシュをusecaseのPasswordHasherに合わせる
type argonHasher struct{}

func (argonHasher) Hash(plain string) (string, error) {
	return crypto.Hash(plain)
}

func (argonHasher) Verify(plain string, hashed string) (bool, error) {
	return crypto.Verify(plain, hashed)
}

func main() {
	//.envは無ければ無いで良い（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Token{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserRepository(gormDB)
	tokenRepo := infraRepo.NewTokenRepository(gormDB)

	//Token issuer
	issuer := token.NewIssuer(
		tokenRepo,
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.JWTAccessTime,
		cfg.JWTRefreshTime,
	)

	//セッションcookie（refresh値の運搬のみ）
	sessions := session.NewManager(cfg.CookieSecret, cfg.CookieSalt, cfg.IsProduction(), cfg.JWTRefreshTime)

	//メール送信クライアント
	mailer := mail.NewClient(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
	if !mailer.Configured() {
		log.Warn("mail client not configured, transactional mail disabled")
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, issuer, argonHasher{}, mailer, validator.NewAuthValidator())

	//Handler生成
	authH := handler.NewAuthHandler(authUC, sessions)

	//期限切れトークンの掃除（起動時に1回＋毎日）
	sweeper := job.NewSweeper(tokenRepo, cfg.JWTRefreshTime)
	runner := job.NewRunner(24*time.Hour, sweeper.Sweep)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)
	defer runner.Stop()

	//Server起動
	e := server.New(cfg, authH, issuer)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
