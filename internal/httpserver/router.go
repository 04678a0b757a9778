package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Auth *AuthHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.GET("/", d.Auth.ApiInfo)

	v1 := e.Group("/api/v1")

	v1.GET("", d.Auth.ApiInfo)
	v1.POST("/register", d.Auth.Register)
	v1.GET("/account/activate/:token", d.Auth.ActivateAccount)
	v1.POST("/login", d.Auth.Login)
	v1.GET("/user", d.Auth.AuthenticatedUser)
	v1.POST("/refresh", d.Auth.Refresh)
	v1.POST("/logout", d.Auth.Logout)
}
