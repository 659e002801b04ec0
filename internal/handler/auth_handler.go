package handler

import (
	"errors"
	"net/http"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/session"
	"app/internal/token"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /authのHTTP
type AuthHandler struct {
	uc       *usecase.AuthUsecase
	sessions *session.Manager
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		uc:       uc,
		sessions: sessions,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	Message string `json:"message"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type AskResetPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email     string `json:"email"`
	ResetCode string `json:"reset_code"`
	Password  string `json:"password"`
}

type UpdateLanguageRequest struct {
	Lang string `json:"lang"`
}

// /auth配下を登録。ログイン後の操作はbearer必須。
func (h *AuthHandler) RegisterRoutes(e *echo.Echo, verifier middleware.AccessVerifier) {
	g := e.Group("/auth")

	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/reset-password/ask", h.askResetPassword)
	g.POST("/reset-password", h.resetPassword)

	authed := g.Group("")
	authed.Use(middleware.AuthJWT(verifier))
	authed.POST("/logout", h.logout)
	authed.GET("/info", h.userInfo)
	authed.POST("/password", h.changePassword)
	authed.PUT("/language", h.updateLanguage)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.Register(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OKResponse{Message: "OK"})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	res, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	//refresh値は暗号化cookieへ。bodyにはaccess tokenだけ返す
	if err := h.sessions.SetRefresh(c, res.PlainRefreshToken); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}

	return c.JSON(http.StatusOK, AccessTokenResponse{AccessToken: res.AccessToken})
}

func (h *AuthHandler) logout(c echo.Context) error {
	accessToken, _ := c.Get(middleware.CtxAccessTokenKey).(string)

	if err := h.uc.Logout(c.Request().Context(), accessToken); err != nil {
		return writeError(c, err)
	}

	h.sessions.Clear(c)

	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	refresh := h.sessions.GetRefresh(c)

	accessToken, err := h.uc.Refresh(c.Request().Context(), refresh)
	if err != nil {
		//使えないrefresh値を持ち続けさせない
		h.sessions.Clear(c)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, AccessTokenResponse{AccessToken: accessToken})
}

func (h *AuthHandler) userInfo(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	info, err := h.uc.GetUserInfo(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *AuthHandler) changePassword(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.ChangePassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OKResponse{Message: "OK"})
}

func (h *AuthHandler) askResetPassword(c echo.Context) error {
	var req AskResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AskResetPassword(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OKResponse{Message: "OK"})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.ResetPassword(c.Request().Context(), req.Email, req.ResetCode, req.Password); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, OKResponse{Message: "OK"})
}

func (h *AuthHandler) updateLanguage(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req UpdateLanguageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	user, err := h.uc.UpdateLanguage(c.Request().Context(), userID, model.Language(req.Lang))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, user)
}

// contextからuser_idを取り出す（middlewareがセット済み）
func getUserIDFromContext(c echo.Context) (string, bool) {
	userID, ok := c.Get(middleware.CtxUserIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// usecaseのエラーをHTTPへ変換する。
// ドメインエラーは全部400で、種別はerror文字列で返す。
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrAccountNotFound),
		errors.Is(err, usecase.ErrUserAlreadyExist),
		errors.Is(err, usecase.ErrEmailNotValid),
		errors.Is(err, usecase.ErrPasswordValidation),
		errors.Is(err, usecase.ErrPasswordError),
		errors.Is(err, usecase.ErrWrongResetCode),
		errors.Is(err, usecase.ErrRefreshNotFound),
		errors.Is(err, usecase.ErrLanguageNotValid),
		errors.Is(err, token.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}
}
