package server

import (
	"app/internal/config"
	"app/internal/handler"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はechoを組み立てて返す。
func New(cfg config.Config, authH *handler.AuthHandler, verifier middleware.AccessVerifier) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowCredentials: true,
	}))

	RegisterRoutes(e, authH, verifier)

	return e
}
