package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	authgate "github.com/mwielgat/authgate"
	"github.com/mwielgat/authgate/transport"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the identity injected by [Guard].
func AuthResultFromContext(ctx context.Context) (*authgate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authgate.AuthResult)
	return res, ok
}

// Guard returns middleware that authenticates requests from the access token
// cookie. Requests without the cookie are rejected before any verification
// work; requests with an invalid token are rejected without revealing the
// failure cause. A panic inside verification is converted into a generic
// authentication failure rather than a 500.
func Guard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeGuardError(w, authgate.ErrAuthenticationFailed)
				return
			}

			tokenStr, ok := transport.Read(r, transport.AccessCookie)
			if !ok || tokenStr == "" {
				writeGuardError(w, authgate.ErrNoAccessToken)
				return
			}

			res, err := validateRecovered(engine, r.Context(), tokenStr)
			if err != nil {
				writeGuardError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateRecovered(engine *authgate.Engine, ctx context.Context, tokenStr string) (res *authgate.AuthResult, err error) {
	defer func() {
		if recover() != nil {
			res = nil
			err = authgate.ErrAuthenticationFailed
		}
	}()

	res, err = engine.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return nil, authgate.ErrInvalidAccessToken
	}
	return res, nil
}

func writeGuardError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}
