package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authgate "github.com/mwielgat/authgate"
	"github.com/mwielgat/authgate/transport"
)

type staticUserProvider struct {
	user authgate.UserRecord
}

func (p *staticUserProvider) GetUserByID(_ context.Context, userID string) (authgate.UserRecord, error) {
	if userID != p.user.UserID {
		return authgate.UserRecord{}, fmt.Errorf("%w: %q", authgate.ErrUserNotFound, userID)
	}
	return p.user, nil
}

func (p *staticUserProvider) GetUserByEmail(_ context.Context, email string) (authgate.UserRecord, error) {
	if email != p.user.Email {
		return authgate.UserRecord{}, fmt.Errorf("%w: email %q", authgate.ErrUserNotFound, email)
	}
	return p.user, nil
}

type stubIdentityProvider struct {
	identity authgate.ProviderIdentity
	err      error
}

func (p *stubIdentityProvider) VerifyIDToken(_ context.Context, _ string) (authgate.ProviderIdentity, error) {
	return p.identity, p.err
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (fakeHasher) Verify(password, encodedHash string) bool {
	return encodedHash == "h:"+password
}

func newGuardEngine(t *testing.T, idp authgate.IdentityProvider) (*authgate.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := authgate.Config{}
	cfg.Tokens.AccessSecret = bytes.Repeat([]byte("a"), 32)
	cfg.Tokens.RefreshSecret = bytes.Repeat([]byte("r"), 32)
	cfg.Tokens.AccessTTL = 15 * time.Minute
	cfg.Tokens.RefreshTTL = 7 * 24 * time.Hour
	cfg.Tokens.Issuer = "authgate-test"
	cfg.Tokens.Leeway = 30 * time.Second
	cfg.Cookies.Path = "/"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32
	cfg.Ledger.RedisPrefix = "agrc"
	cfg.Security.MaxLoginAttempts = 5
	cfg.Security.LoginCooldownDuration = time.Minute
	cfg.Security.MaxRefreshAttempts = 20
	cfg.Security.RefreshCooldownDuration = time.Minute

	builder := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPasswordHasher(fakeHasher{}).
		WithUserProvider(&staticUserProvider{user: authgate.UserRecord{
			UserID:       "user-1",
			Email:        "alice@example.com",
			Plan:         "pro",
			PasswordHash: "h:secret-password",
		}})
	if idp != nil {
		builder = builder.WithIdentityProvider(idp)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build: %v", err)
	}
	cleanup := func() {
		engine.Close()
		client.Close()
		mr.Close()
	}
	return engine, cleanup
}

func accessCookie(t *testing.T, engine *authgate.Engine) *http.Cookie {
	t.Helper()

	access, _, err := engine.Login(context.Background(), "alice@example.com", "secret-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return &http.Cookie{Name: transport.AccessCookie, Value: access}
}

func TestGuardRejectsMissingCookie(t *testing.T) {
	engine, cleanup := newGuardEngine(t, nil)
	defer cleanup()

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardRejectsForgedToken(t *testing.T) {
	engine, cleanup := newGuardEngine(t, nil)
	defer cleanup()

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached with a forged token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: transport.AccessCookie, Value: "eyJ.forged.token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardPassesValidToken(t *testing.T) {
	engine, cleanup := newGuardEngine(t, nil)
	defer cleanup()

	var seen *authgate.AuthResult
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Fatal("no auth result in context")
		}
		seen = res
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(accessCookie(t, engine))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.UserID != "user-1" || seen.Email != "alice@example.com" || seen.Plan != "pro" {
		t.Fatalf("auth result = %+v", seen)
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler reached with nil engine")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestFederatedGuard(t *testing.T) {
	t.Run("valid bearer token", func(t *testing.T) {
		engine, cleanup := newGuardEngine(t, &stubIdentityProvider{
			identity: authgate.ProviderIdentity{
				SubjectID: "google-sub-1",
				Email:     "alice@example.com",
				Name:      "Alice",
			},
		})
		defer cleanup()

		var seen *authgate.ProviderIdentity
		handler := FederatedGuard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := ProviderIdentityFromContext(r.Context())
			if !ok {
				t.Fatal("no provider identity in context")
			}
			seen = id
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/federated", nil)
		req.Header.Set("Authorization", "Bearer raw-id-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if seen == nil || seen.SubjectID != "google-sub-1" {
			t.Fatalf("identity = %+v", seen)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		engine, cleanup := newGuardEngine(t, &stubIdentityProvider{err: fmt.Errorf("token expired")})
		defer cleanup()

		handler := FederatedGuard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler reached with rejected identity")
		}))

		req := httptest.NewRequest(http.MethodGet, "/federated", nil)
		req.Header.Set("Authorization", "Bearer raw-id-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		engine, cleanup := newGuardEngine(t, &stubIdentityProvider{})
		defer cleanup()

		handler := FederatedGuard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler reached without Authorization header")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/federated", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
