// Package transport places, clears, and reads the session cookies. It is
// the only package that touches transport-level cookie semantics; token
// logic never learns about cookie framing.
package transport

import (
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// AccessCookie is the fixed name of the access-token cookie.
	AccessCookie = "accessToken"
	// RefreshCookie is the fixed name of the refresh-token cookie.
	RefreshCookie = "refreshToken"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Secure marks cookies Secure. It is ignored (forced off) when Domain
	// resolves to a loopback host, so local development over plain HTTP
	// still receives cookies.
	Secure bool
	// Domain scopes the cookies; empty means host-only.
	Domain string
	// Path defaults to "/".
	Path string
}

// Binder applies cookie attributes. HttpOnly and SameSite=Lax are not
// configurable: the former keeps tokens out of script reach, the latter is
// the baseline CSRF posture for a cookie-borne session.
type Binder struct {
	config Config
}

// NewBinder creates a [Binder] with the given static configuration.
func NewBinder(cfg Config) *Binder {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.Secure && isLoopback(cfg.Domain) {
		cfg.Secure = false
	}
	return &Binder{config: cfg}
}

// Bind sets an HTTP-only, SameSite=Lax cookie with the given lifetime.
func (b *Binder) Bind(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     b.config.Path,
		Domain:   b.config.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   b.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the named cookie immediately.
func (b *Binder) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     b.config.Path,
		Domain:   b.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the named cookie's value from the incoming request, or
// ok == false when absent or empty. Reading needs no binder configuration,
// so it is a package-level function.
func Read(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// BindPair sets both session cookies with their respective lifetimes.
func (b *Binder) BindPair(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	b.Bind(w, AccessCookie, accessToken, accessTTL)
	b.Bind(w, RefreshCookie, refreshToken, refreshTTL)
}

// ClearPair expires both session cookies.
func (b *Binder) ClearPair(w http.ResponseWriter) {
	b.Clear(w, AccessCookie)
	b.Clear(w, RefreshCookie)
}

func isLoopback(domain string) bool {
	if domain == "" {
		return false
	}
	host := strings.TrimPrefix(domain, ".")
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
