package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/events"
	"github.com/craftwerk/portfolio-backend/internal/hash"
	"github.com/craftwerk/portfolio-backend/internal/logging"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/ratelimit"
	"github.com/craftwerk/portfolio-backend/internal/session"
	"github.com/craftwerk/portfolio-backend/internal/token"
)

type AuthHandler struct {
	DB             *gorm.DB
	Tokens         *token.Service
	Cookies        session.CookieFactory
	LoginLimiter   *ratelimit.Limiter
	RefreshLimiter *ratelimit.Limiter
	Producer       *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperr.Validation("invalid email")
	}
	if req.Username == "" {
		return apperr.Validation("username is required")
	}
	if len(req.Password) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}

	var existing models.User
	err := h.DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		return apperr.UserExists("user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Internal(err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return apperr.Internal(err)
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: pwHash,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.UserExists("user already exists")
		}
		return apperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return apperr.OK(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ip := c.RealIP()
	if err := h.LoginLimiter.Allow(ip); err != nil {
		return apperr.TooManyRequests("too many login attempts")
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.TrimSpace(strings.ToLower(req.Email))).First(&user).Error; err != nil {
		return apperr.Unauthorized("invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.Unauthorized("invalid credentials")
	}

	pair, err := h.Tokens.IssuePair(c.Request().Context(), &user)
	if err != nil {
		return apperr.Internal(err)
	}

	h.LoginLimiter.Reset(ip)
	h.setAuthCookies(c, pair)

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return apperr.OK(c, http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExpiry,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	if err := h.RefreshLimiter.Allow(c.RealIP()); err != nil {
		return apperr.TooManyRequests("too many refresh attempts")
	}

	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		return apperr.Unauthorized("refresh token missing")
	}

	pair, err := h.Tokens.Rotate(c.Request().Context(), raw)
	if err != nil {
		if errors.Is(err, token.ErrRefreshInvalid) {
			return apperr.Unauthorized("invalid refresh token")
		}
		return apperr.Internal(err)
	}

	h.setAuthCookies(c, pair)

	return apperr.OK(c, http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExpiry,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		return apperr.Validation("refresh token missing")
	}

	if err := h.Tokens.Revoke(c.Request().Context(), raw); err != nil &&
		!errors.Is(err, token.ErrRefreshInvalid) {
		return apperr.Internal(err)
	}

	c.SetCookie(h.Cookies.Expired(session.AccessCookie, session.AccessCookiePath))
	c.SetCookie(h.Cookies.Expired(session.RefreshCookie, session.RefreshCookiePath))

	return apperr.OK(c, http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user with roles preloaded.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := session.UserID(c)
	if !ok {
		return apperr.Unauthorized("missing credentials")
	}

	var user models.User
	if err := h.DB.Preload("Roles").First(&user, userID).Error; err != nil {
		return apperr.NotFound("user not found")
	}
	return apperr.OK(c, http.StatusOK, user)
}

func (h *AuthHandler) setAuthCookies(c echo.Context, pair *token.Pair) {
	c.SetCookie(h.Cookies.New(session.AccessCookie, pair.AccessToken, session.AccessCookiePath, pair.AccessExpiry))
	c.SetCookie(h.Cookies.New(session.RefreshCookie, pair.RefreshToken, session.RefreshCookiePath, pair.RefreshExpiry))
}

// refreshTokenFromRequest mirrors access resolution: cookie first,
// JSON body as the bearer-style fallback for non-browser clients.
func (h *AuthHandler) refreshTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(session.RefreshCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}
