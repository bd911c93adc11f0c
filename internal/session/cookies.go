// Package session resolves the caller identity of each request and
// owns the auth cookies. Resolution order: HttpOnly access_token
// cookie first, then Authorization: Bearer.
package session

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Cookie paths. The refresh token is long-lived, so its cookie is
// scoped to the auth endpoints instead of riding every request.
const (
	AccessCookiePath  = "/"
	RefreshCookiePath = "/api/v1/auth"
)

// CookieFactory stamps environment-dependent attributes. Production
// needs Secure + SameSite=None because the frontend lives on another
// origin; everything else keeps Lax so local http still works.
type CookieFactory struct {
	Production bool
}

func (f CookieFactory) New(name, value, path string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   f.Production,
		SameSite: http.SameSiteLaxMode,
	}
	if f.Production {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

// Expired returns a deletion cookie for the name.
func (f CookieFactory) Expired(name, path string) *http.Cookie {
	return f.New(name, "", path, time.Now().Add(-time.Hour))
}
