package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/rbac"
	"github.com/craftwerk/portfolio-backend/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to connect to in-memory db")
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.Permission{}, &models.RefreshToken{},
	))
	return db
}

func newTestMiddleware(t *testing.T) (*Middleware, *models.User) {
	db := initTestDB(t)
	user := &models.User{Email: "dev@example.com", Username: "dev", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	return &Middleware{
		Tokens: &token.Service{
			DB:         db,
			Secret:     []byte("test-secret"),
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		Resolver: &rbac.Resolver{DB: db},
	}, user
}

func runRequest(m *Middleware, req *http.Request) (echo.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := m.RequireAuth(func(c echo.Context) error { return nil })
	return c, handler(c)
}

func TestRequireAuthFromCookie(t *testing.T) {
	m, user := newTestMiddleware(t)
	raw, _, err := m.Tokens.SignAccess(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: raw})

	c, err := runRequest(m, req)
	require.NoError(t, err)

	id, ok := UserID(c)
	require.True(t, ok)
	require.Equal(t, user.ID, id)
	require.Equal(t, "dev", Username(c))
}

func TestRequireAuthBearerFallback(t *testing.T) {
	m, user := newTestMiddleware(t)
	raw, _, err := m.Tokens.SignAccess(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)

	c, err := runRequest(m, req)
	require.NoError(t, err)

	id, ok := UserID(c)
	require.True(t, ok)
	require.Equal(t, user.ID, id)
}

func TestRequireAuthCookieWinsOverHeader(t *testing.T) {
	m, user := newTestMiddleware(t)
	raw, _, err := m.Tokens.SignAccess(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: raw})
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")

	_, err = runRequest(m, req)
	require.NoError(t, err, "cookie resolves first; the bad header is never consulted")
}

func TestRequireAuthMissingAndMalformed(t *testing.T) {
	m, _ := newTestMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runRequest(m, req)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	_, err = runRequest(m, req2)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRequireAuthExpiredGetsOwnCode(t *testing.T) {
	m, user := newTestMiddleware(t)
	m.Tokens.AccessTTL = -time.Minute
	raw, _, err := m.Tokens.SignAccess(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)

	_, err = runRequest(m, req)
	require.Equal(t, apperr.KindTokenExpired, apperr.KindOf(err))
}

func TestRequirePermission(t *testing.T) {
	m, user := newTestMiddleware(t)
	ctx := t.Context()
	db := m.Resolver.DB

	require.NoError(t, db.Create(&models.Permission{Key: rbac.PermAboutManage}).Error)
	require.NoError(t, db.Create(&models.Role{Name: "EDITOR"}).Error)

	raw, _, err := m.Tokens.SignAccess(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	call := func() error {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		handler := m.RequireAuth(m.RequirePermission(rbac.PermAboutManage)(func(c echo.Context) error {
			return nil
		}))
		return handler(c)
	}

	err = call()
	require.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	require.NoError(t, m.Resolver.GrantPermission(ctx, "EDITOR", rbac.PermAboutManage))
	require.NoError(t, m.Resolver.AssignRole(ctx, user.ID, "EDITOR"))
	require.NoError(t, call())
}

func TestCookieFactoryEnvironmentAttributes(t *testing.T) {
	dev := CookieFactory{Production: false}
	cookie := dev.New(AccessCookie, "v", "/", time.Now().Add(time.Hour))
	require.False(t, cookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.True(t, cookie.HttpOnly)

	prod := CookieFactory{Production: true}
	cookie = prod.New(AccessCookie, "v", "/", time.Now().Add(time.Hour))
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}
