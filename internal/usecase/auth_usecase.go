package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"app/internal/domain/model"
	"app/internal/mail"
	"app/internal/repository"
	"app/internal/token"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

var (
	//400 メール不明またはパスワード不一致（列挙攻撃対策で同じエラーに潰す）
	ErrAccountNotFound = errors.New("account_not_found")
	//400 email重複
	ErrUserAlreadyExist = errors.New("user_already_exist")
	//400 emailの形式が不正
	ErrEmailNotValid = errors.New("email_not_valid")
	//400 パスワードポリシー違反（8〜20文字）
	ErrPasswordValidation = errors.New("password_validation_error")
	//400 旧パスワード不一致
	ErrPasswordError = errors.New("password_error")
	//400 リセットコード不一致
	ErrWrongResetCode = errors.New("wrong_reset_code")
	//400 セッションにrefresh値がない
	ErrRefreshNotFound = errors.New("refresh_not_found")
	//400 言語が選択肢にない
	ErrLanguageNotValid = errors.New("language_not_valid")
	//500
	ErrInternal = errors.New("internal error")
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidatePassword(password string) error
}

// 平文パスワードとハッシュの変換の約束
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hashed string) (bool, error)
}

// トークン発行・更新・失効の約束
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (*token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, accessToken string) error
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handlerがCookieに詰めるためにrefreshも返す
type LoginResult struct {
	AccessToken       string
	PlainRefreshToken string
}

type UserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type AuthUsecase struct {
	users     repository.UserRepository
	issuer    TokenIssuer
	hasher    PasswordHasher
	mailer    mail.Sender
	validator AuthValidator
}

func NewAuthUsecase(
	users repository.UserRepository,
	issuer TokenIssuer,
	hasher PasswordHasher,
	mailer mail.Sender,
	validator AuthValidator,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		issuer:    issuer,
		hasher:    hasher,
		mailer:    mailer,
		validator: validator,
	}
}

// Register は会員登録を実行する。
func (u *AuthUsecase) Register(ctx context.Context, req RegisterRequest) error {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return err
	}

	//email重複チェック
	existing, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserAlreadyExist
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return ErrInternal
	}

	user := &model.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  pwHash,
		Lang:      model.LanguageEN,
	}

	if err := u.users.Create(ctx, user); err != nil {
		return err
	}

	//ウェルカムメールはfire-and-forget（失敗してもRegisterは成功）
	u.sendMail(mail.TemplateWelcome, user.Email, map[string]string{
		"first_name": user.FirstName,
		"lang":       string(user.Lang),
	})

	return nil
}

// Login はメール＋パスワードで認証してトークンペアを発行する。
func (u *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		//「メールなし」と「パスワード違い」を同じエラーにする
		return nil, ErrAccountNotFound
	}

	//パスワード照合
	ok, err := u.hasher.Verify(req.Password, user.Password)
	if err != nil {
		return nil, ErrInternal
	}
	if !ok {
		return nil, ErrAccountNotFound
	}

	pair, err := u.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:       pair.AccessToken,
		PlainRefreshToken: pair.RefreshToken,
	}, nil
}

// Logout はaccess tokenに対応するトークン行を削除する。
// 行がなくても成功（冪等）。cookieのクリアはhandlerの仕事。
func (u *AuthUsecase) Logout(ctx context.Context, accessToken string) error {
	return u.issuer.Revoke(ctx, accessToken)
}

// Refresh はセッションのrefresh値から新しいaccess tokenを発行する。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrRefreshNotFound
	}

	accessToken, err := u.issuer.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// ChangePassword は旧パスワードを確認して新パスワードに差し替える。
// 既存トークンは失効させない（セッション継続は仕様）。
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID string, oldPassword string, newPassword string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	ok, err := u.hasher.Verify(oldPassword, user.Password)
	if err != nil {
		return ErrInternal
	}
	if !ok {
		return ErrPasswordError
	}

	if err := u.validator.ValidatePassword(newPassword); err != nil {
		return err
	}

	pwHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return ErrInternal
	}

	return u.users.UpdatePassword(ctx, userID, pwHash)
}

// AskResetPassword はリセットコードを発行してメールで送る。
// メール送信はベストエフォート（失敗しても成功を返す）。
func (u *AuthUsecase) AskResetPassword(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	code, err := generateResetCode()
	if err != nil {
		return ErrInternal
	}

	if err := u.users.SetResetCode(ctx, user.ID, &code); err != nil {
		return err
	}

	u.sendMail(mail.TemplateResetPassword, user.Email, map[string]string{
		"first_name": user.FirstName,
		"code":       code,
		"lang":       string(user.Lang),
	})

	return nil
}

// ResetPassword はコードを照合してパスワードを差し替える。
// コードのクリアとハッシュの上書きは1回の書き込みで行う。
func (u *AuthUsecase) ResetPassword(ctx context.Context, email string, resetCode string, newPassword string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}

	//コード未発行も不一致も同じ扱い
	if user.ResetPasswordCode == nil || resetCode == "" || *user.ResetPasswordCode != resetCode {
		return ErrWrongResetCode
	}

	if err := u.validator.ValidatePassword(newPassword); err != nil {
		return err
	}

	pwHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return ErrInternal
	}

	return u.users.UpdatePasswordAndClearResetCode(ctx, user.ID, pwHash)
}

// GetUserInfo はbearerユーザーの基本情報を返す。
func (u *AuthUsecase) GetUserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}

	return &UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// UpdateLanguage は表示言語を更新する。
func (u *AuthUsecase) UpdateLanguage(ctx context.Context, userID string, lang model.Language) (*model.User, error) {
	if !lang.Valid() {
		return nil, ErrLanguageNotValid
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}

	user.Lang = lang
	if err := u.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// メール送信。呼び出し元をブロックしない
func (u *AuthUsecase) sendMail(templateID string, recipient string, params map[string]string) {
	go func() {
		if err := u.mailer.SendTransactional(context.Background(), templateID, recipient, params); err != nil {
			log.Warnf("send %s mail to %s: %v", templateID, recipient, err)
		}
	}()
}

// 4桁の数字コードを作る
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
