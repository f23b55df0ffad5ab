package token

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the claim set carried by an access token. It exists only
// inside a signed token and, once verified, for the lifetime of a single
// request; it is never persisted.
type AccessClaims struct {
	Email string `json:"email"`
	Plan  string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set carried by a refresh token. Counter is a
// snapshot of the subject's rotation counter at issuance time and is the
// only claim with a consistency obligation against persisted state.
type RefreshClaims struct {
	Counter int64 `json:"ctr"`
	jwt.RegisteredClaims
}

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Codec signs and verifies both token classes with independent secrets, so
// a compromise of one signing key cannot be used to mint the other class.
type Codec struct {
	config Config
	now    func() time.Time
}

// NewCodec validates cfg and returns a ready [Codec].
//
// NewCodec may return an error when input validation fails.
// NewCodec does not mutate shared global state and can be used concurrently.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < 32 {
		return nil, errors.New("access secret must be at least 32 bytes")
	}
	if len(cfg.RefreshSecret) < 32 {
		return nil, errors.New("refresh secret must be at least 32 bytes")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Codec{config: cfg, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now instead of
// [time.Now]. Used by tests to pin expiry boundaries.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// SignAccess encodes subject identity into a signed access token with the
// short TTL. It fails only if the signing key is unusable.
func (c *Codec) SignAccess(subject, email, plan string) (string, error) {
	now := c.now()
	claims := AccessClaims{
		Email: email,
		Plan:  plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.AccessSecret)
}

// SignRefresh encodes the subject and its current rotation counter into a
// signed refresh token with the long TTL and a unique jti.
func (c *Codec) SignRefresh(subject string, counter int64) (string, error) {
	now := c.now()
	claims := RefreshClaims{
		Counter: counter,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.RefreshSecret)
}

// VerifyAccess checks signature and expiry of an access token. All failure
// causes (malformed, bad signature, expired) fold into ok == false so the
// caller cannot be used as a validity oracle.
func (c *Codec) VerifyAccess(tokenStr string) (*AccessClaims, bool) {
	claims := &AccessClaims{}
	if !c.verify(tokenStr, claims, c.config.AccessSecret) {
		return nil, false
	}
	return claims, true
}

// VerifyRefresh checks signature and expiry of a refresh token under the
// independent refresh secret. Same pass/fail contract as [Codec.VerifyAccess].
func (c *Codec) VerifyRefresh(tokenStr string) (*RefreshClaims, bool) {
	claims := &RefreshClaims{}
	if !c.verify(tokenStr, claims, c.config.RefreshSecret) {
		return nil, false
	}
	return claims, true
}

func (c *Codec) verify(tokenStr string, claims jwt.Claims, secret []byte) bool {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return false
	}

	return true
}
