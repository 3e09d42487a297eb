package security

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "AccessToken"
	RefreshCookieName = "RefreshToken"
)

// CookieWriter sets and clears the auth cookies. Secure is off only in dev.
type CookieWriter struct {
	Secure bool
}

func (c CookieWriter) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (c CookieWriter) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// SetTokens writes both cookies with lifetimes matching the tokens.
func (c CookieWriter) SetTokens(w http.ResponseWriter, access string, accessTTL time.Duration, refresh string, refreshTTL time.Duration) {
	c.set(w, AccessCookieName, access, accessTTL)
	c.set(w, RefreshCookieName, refresh, refreshTTL)
}

func (c CookieWriter) ClearTokens(w http.ResponseWriter) {
	c.clear(w, AccessCookieName)
	c.clear(w, RefreshCookieName)
}

func ReadRefreshToken(r *http.Request) (string, error) {
	ck, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return ck.Value, nil
}

func ReadAccessToken(r *http.Request) (string, error) {
	ck, err := r.Cookie(AccessCookieName)
	if err != nil {
		return "", err
	}
	return ck.Value, nil
}
