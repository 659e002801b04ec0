package server

import (
	"net/http"

	"app/internal/handler"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, authH *handler.AuthHandler, verifier middleware.AccessVerifier) {
	authH.RegisterRoutes(e, verifier)

	//死活確認
	e.GET("/live", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/ready", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}
