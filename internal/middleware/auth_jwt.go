package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey      = "user_id"      // string (uuid)
	CtxAccessTokenKey = "access_token" // string
)

// access tokenを検証する約束（署名と期限だけのステートレス検証）
type AccessVerifier interface {
	VerifyAccess(accessToken string) (string, error)
}

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//検証してuser_idを取り出す
			userID, err := verifier.VerifyAccess(rawToken)
			if err != nil || userID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存（logoutは生のtokenも使う）
			c.Set(CtxUserIDKey, userID)
			c.Set(CtxAccessTokenKey, rawToken)

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
