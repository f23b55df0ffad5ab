package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	authgate "github.com/mwielgat/authgate"
	"github.com/mwielgat/authgate/transport"
)

// Handlers bundles the credential endpoints for one engine/binder pair.
type Handlers struct {
	engine *authgate.Engine
	binder *transport.Binder
}

// NewHandlers creates [Handlers] backed by engine, with cookies written
// through binder.
func NewHandlers(engine *authgate.Engine, binder *transport.Binder) *Handlers {
	return &Handlers{
		engine: engine,
		binder: binder,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
}

// Login authenticates an email/password pair and binds a fresh cookie pair.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx := authgate.WithClientIP(r.Context(), remoteIP(r))
	result, err := h.engine.LoginWithResult(ctx, req.Email, req.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	accessTTL, refreshTTL := h.engine.TokenTTLs()
	h.binder.BindPair(w, result.AccessToken, result.RefreshToken, accessTTL, refreshTTL)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:      result.UserID,
		AccessToken: result.AccessToken,
	})
}

// Refresh rotates the refresh token cookie and rebinds the pair. Replay of a
// consumed token clears both cookies and returns 403.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	refreshToken, ok := transport.Read(r, transport.RefreshCookie)
	if !ok || refreshToken == "" {
		writeEngineError(w, authgate.ErrNoRefreshToken)
		return
	}

	ctx := authgate.WithClientIP(r.Context(), remoteIP(r))
	result, err := h.engine.RefreshWithResult(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, authgate.ErrTokenReused) {
			h.binder.ClearPair(w)
		}
		writeEngineError(w, err)
		return
	}

	accessTTL, refreshTTL := h.engine.TokenTTLs()
	h.binder.BindPair(w, result.AccessToken, result.RefreshToken, accessTTL, refreshTTL)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:      result.UserID,
		AccessToken: result.AccessToken,
	})
}

// Logout clears both cookies unconditionally. When a usable access cookie is
// present it also advances the subject's rotation counter so outstanding
// refresh tokens die server-side; a missing or rejected cookie still sheds
// the pair.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if accessToken, ok := transport.Read(r, transport.AccessCookie); ok && accessToken != "" {
		ctx := authgate.WithClientIP(r.Context(), remoteIP(r))
		// Best effort: the client sheds its cookies either way.
		_ = h.engine.LogoutByAccessToken(ctx, accessToken)
	}

	h.binder.ClearPair(w)
	w.WriteHeader(http.StatusNoContent)
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		// Backend faults carry infrastructure detail; never serialize them
		// for the client.
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, authgate.ErrTokenReused):
		return http.StatusForbidden
	case errors.Is(err, authgate.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, authgate.ErrLoginRateLimited),
		errors.Is(err, authgate.ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, authgate.ErrNoAccessToken),
		errors.Is(err, authgate.ErrInvalidAccessToken),
		errors.Is(err, authgate.ErrAuthenticationFailed),
		errors.Is(err, authgate.ErrNoRefreshToken),
		errors.Is(err, authgate.ErrInvalidRefreshToken),
		errors.Is(err, authgate.ErrInvalidCredentials),
		errors.Is(err, authgate.ErrIdentityRejected):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
