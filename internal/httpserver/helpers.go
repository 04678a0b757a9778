package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func createCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		MaxAge:   int(time.Until(expTime).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func deleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// failMsg writes the flat legacy error shape.
func failMsg(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "message": msg})
}

// failData writes the nested legacy error shape.
func failData(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "data": echo.Map{"message": msg}})
}

// baseURL rebuilds the externally visible origin the way the legacy API
// did, from the incoming request itself.
func baseURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}
