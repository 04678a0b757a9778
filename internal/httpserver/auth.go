package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ayezhov/auth-service/internal/service"
	"github.com/ayezhov/auth-service/pkg/logging"
)

// AuthHTTP maps classified service errors onto the legacy API's status
// codes and body shapes. Strict switches to corrected statuses
// (400/409/401) for the conditions the legacy API reported as 500.
type AuthHTTP struct {
	Svc    *service.AuthService
	Strict bool
}

func (h *AuthHTTP) compat(legacy, corrected int) int {
	if h.Strict {
		return corrected
	}
	return legacy
}

func (h *AuthHTTP) ApiInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"message":     "Auth API",
		"description": "Auth API | Version 1",
	})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "reason", "bad_body", "error", err)
		return failMsg(c, h.compat(http.StatusInternalServerError, http.StatusBadRequest), "Please enter all fields!")
	}

	err := h.Svc.Register(ctx, req.Username, req.Email, req.Password, baseURL(c))
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"data": echo.Map{
				"message": "User registered successfully. Please verify your email by clicking on the link sent to activate your account.",
			},
		})
	case errors.Is(err, service.ErrMissingFields):
		return failMsg(c, h.compat(http.StatusInternalServerError, http.StatusBadRequest), "Please enter all fields!")
	case errors.Is(err, service.ErrEmailTaken):
		return failMsg(c, h.compat(http.StatusInternalServerError, http.StatusConflict), "User already exists!")
	case errors.Is(err, service.ErrUsernameTaken):
		return failMsg(c, h.compat(http.StatusInternalServerError, http.StatusConflict), "Username already taken!")
	default:
		l.Error("register_failed", "error", err)
		return failMsg(c, http.StatusInternalServerError, "Error occurred while registering user!")
	}
}

func (h *AuthHTTP) ActivateAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_activate")

	identity, err := h.Svc.ActivateAccount(ctx, c.Param("token"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data":    echo.Map{"user": identity, "message": "Account activated"},
		})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
		l.Warn("activate_failed", "reason", "invalid_token")
		return failData(c, http.StatusForbidden, "Invalid token!")
	case errors.Is(err, service.ErrAlreadyVerified):
		return failData(c, h.compat(http.StatusInternalServerError, http.StatusConflict), "User already verified")
	default:
		l.Error("activate_failed", "error", err)
		return failData(c, http.StatusInternalServerError, "Error activating account!")
	}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "reason", "bad_body", "error", err)
		return failMsg(c, http.StatusBadRequest, "Invalid credentials!")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	switch {
	case err == nil:
		c.SetCookie(createCookie("refreshToken", res.RefreshToken, "/", res.RefreshExpiresAt))
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data":    echo.Map{"token": res.AccessToken},
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		l.Warn("login_failed", "reason", "invalid_credentials")
		return failMsg(c, http.StatusBadRequest, "Invalid credentials!")
	default:
		l.Error("login_failed", "error", err)
		return failMsg(c, http.StatusInternalServerError, "Error signing in!")
	}
}

func (h *AuthHTTP) AuthenticatedUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_user")

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return failData(c, http.StatusUnauthorized, "Unauthenticated!")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) < 2 || parts[1] == "" {
		return failData(c, http.StatusUnauthorized, "Unauthenticated!")
	}

	user, err := h.Svc.AuthenticatedUser(ctx, parts[1])
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data":    echo.Map{"user": user},
		})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
		l.Warn("user_lookup_failed", "reason", "invalid_token")
		return failData(c, http.StatusForbidden, "Invalid token!")
	default:
		l.Error("user_lookup_failed", "error", err)
		return failData(c, http.StatusInternalServerError, "Error fetching user!")
	}
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		return failMsg(c, http.StatusUnauthorized, "Unauthenticated!")
	}

	token, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		if h.Strict && errors.Is(err, service.ErrPersistence) {
			l.Error("refresh_failed", "error", err)
			return failMsg(c, http.StatusInternalServerError, "Error refreshing token!")
		}
		l.Warn("refresh_failed", "error", err)
		return failMsg(c, http.StatusUnauthorized, "Unauthenticated!")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"token": token},
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		return failMsg(c, h.compat(http.StatusInternalServerError, http.StatusUnauthorized), "Unauthenticated!")
	}

	if err := h.Svc.Logout(ctx, cookie.Value); err != nil {
		l.Error("logout_failed", "error", err)
		return failMsg(c, http.StatusInternalServerError, "Error signing out!")
	}

	c.SetCookie(deleteCookie("refreshToken", "/"))
	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Sign out successfull!",
	})
}
