package middleware

import (
	"context"
	"net/http"
	"strings"

	authgate "github.com/mwielgat/authgate"
)

type providerIdentityContextKey struct{}

// ProviderIdentityFromContext returns the identity injected by [FederatedGuard].
func ProviderIdentityFromContext(ctx context.Context) (*authgate.ProviderIdentity, bool) {
	id, ok := ctx.Value(providerIdentityContextKey{}).(*authgate.ProviderIdentity)
	return id, ok
}

// FederatedGuard returns middleware that authenticates requests carrying a
// federated ID token in the Authorization header. Verification is delegated
// to the engine's IdentityProvider.
func FederatedGuard(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeGuardError(w, authgate.ErrAuthenticationFailed)
				return
			}

			rawToken, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeGuardError(w, authgate.ErrNoAccessToken)
				return
			}

			identity, err := engine.VerifyIdentity(r.Context(), rawToken)
			if err != nil {
				writeGuardError(w, authgate.ErrIdentityRejected)
				return
			}

			ctx := context.WithValue(r.Context(), providerIdentityContextKey{}, &identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
