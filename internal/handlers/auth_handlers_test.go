package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/hash"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/ratelimit"
	"github.com/craftwerk/portfolio-backend/internal/session"
	"github.com/craftwerk/portfolio-backend/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to connect to in-memory db")

	if err := db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.Permission{},
		&models.RefreshToken{}, &models.About{}, &models.Project{}, &models.Experience{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newAuthHandler(t *testing.T, loginMax int) (*AuthHandler, *gorm.DB) {
	db := initTestDB(t)
	tokens := &token.Service{
		DB:         db,
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	login := ratelimit.New(loginMax, time.Minute)
	refresh := ratelimit.New(100, time.Minute)
	t.Cleanup(func() { login.Close(); refresh.Close() })

	return &AuthHandler{
		DB:             db,
		Tokens:         tokens,
		Cookies:        session.CookieFactory{},
		LoginLimiter:   login,
		RefreshLimiter: refresh,
	}, db
}

func newJSONContext(t *testing.T, method, path string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func createTestUser(t *testing.T, db *gorm.DB, email, username, password string) *models.User {
	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, Username: username, PasswordHash: pwHash}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRegister(t *testing.T) {
	h, _ := newAuthHandler(t, 100)

	c, rec := newJSONContext(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "dev@example.com",
		"username": "dev",
		"password": "correct-horse",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	decodeData(t, rec, &user)
	require.Equal(t, "dev", user.Username)
	require.NotEmpty(t, user.ID)

	// Duplicate registration conflicts.
	c2, _ := newJSONContext(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "dev@example.com",
		"username": "dev",
		"password": "correct-horse",
	})
	err := h.Register(c2)
	require.Error(t, err)
	require.Equal(t, apperr.KindUserExists, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newAuthHandler(t, 100)

	cases := []map[string]string{
		{"email": "not-an-email", "username": "dev", "password": "correct-horse"},
		{"email": "dev@example.com", "username": "", "password": "correct-horse"},
		{"email": "dev@example.com", "username": "dev", "password": "short"},
	}
	for _, payload := range cases {
		c, _ := newJSONContext(t, http.MethodPost, "/auth/register", payload)
		err := h.Register(c)
		require.Error(t, err)
		require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestLoginSetsCookiesAndTokens(t *testing.T) {
	h, db := newAuthHandler(t, 100)
	createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	c, rec := newJSONContext(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "dev@example.com",
		"password": "correct-horse",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	decodeData(t, rec, &data)
	require.NotEmpty(t, data["access_token"])
	require.NotEmpty(t, data["refresh_token"])

	cookies := rec.Result().Cookies()
	paths := make(map[string]string, len(cookies))
	for _, cookie := range cookies {
		paths[cookie.Name] = cookie.Path
		require.True(t, cookie.HttpOnly)
	}
	require.Equal(t, session.AccessCookiePath, paths[session.AccessCookie])
	// The refresh credential must only travel to the auth endpoints.
	require.Equal(t, session.RefreshCookiePath, paths[session.RefreshCookie])
}

func TestLoginInvalidCredentials(t *testing.T) {
	h, db := newAuthHandler(t, 100)
	createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	c, _ := newJSONContext(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "dev@example.com",
		"password": "wrong",
	})
	err := h.Login(c)
	require.Error(t, err)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	c2, _ := newJSONContext(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever",
	})
	err = h.Login(c2)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestLoginRateLimit(t *testing.T) {
	h, db := newAuthHandler(t, 3)
	createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	payload := map[string]string{"email": "dev@example.com", "password": "wrong"}
	for i := 0; i < 3; i++ {
		c, _ := newJSONContext(t, http.MethodPost, "/auth/login", payload)
		err := h.Login(c)
		require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	}

	// Budget exhausted: even correct credentials are rejected until the
	// window resets.
	c, _ := newJSONContext(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "dev@example.com",
		"password": "correct-horse",
	})
	err := h.Login(c)
	require.Error(t, err)
	require.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))
}

func TestRefreshRotatesToken(t *testing.T) {
	h, db := newAuthHandler(t, 100)
	user := createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	pair, err := h.Tokens.IssuePair(t.Context(), user)
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	decodeData(t, rec, &data)
	newRefresh, _ := data["refresh_token"].(string)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, pair.RefreshToken, newRefresh)

	// The presented token is now dead.
	c2, _ := newJSONContext(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	err = h.Refresh(c2)
	require.Error(t, err)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// The replacement still works.
	c3, _ := newJSONContext(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": newRefresh,
	})
	require.NoError(t, h.Refresh(c3))
}

func TestRefreshReadsCookie(t *testing.T) {
	h, db := newAuthHandler(t, 100)
	user := createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	pair, err := h.Tokens.IssuePair(t.Context(), user)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: session.RefreshCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h, db := newAuthHandler(t, 100)
	user := createTestUser(t, db, "dev@example.com", "dev", "correct-horse")

	pair, err := h.Tokens.IssuePair(t.Context(), user)
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodPost, "/auth/logout", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Both cookies are expired on the way out.
	for _, cookie := range rec.Result().Cookies() {
		require.True(t, cookie.Expires.Before(time.Now()))
	}

	c2, _ := newJSONContext(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	err = h.Refresh(c2)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
