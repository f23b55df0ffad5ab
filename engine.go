package authgate

import (
	"context"
	"time"

	"github.com/mwielgat/authgate/internal/flows"
	"github.com/mwielgat/authgate/internal/rate"
	"github.com/mwielgat/authgate/ledger"
	"github.com/mwielgat/authgate/token"
)

// Engine defines a public type used by authgate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config           Config
	codec            *token.Codec
	ledger           ledger.Ledger
	rateLimiter      *rate.Limiter
	audit            *auditDispatcher
	metrics          *Metrics
	passwordHash     PasswordHasher
	userProvider     UserProvider
	identityProvider IdentityProvider
	warn             func(string, ...any)
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTLs returns the configured access and refresh token lifetimes.
// Transport layers use them to align cookie expiry with token expiry.
func (e *Engine) TokenTTLs() (access, refresh time.Duration) {
	if e == nil {
		return 0, 0
	}
	return e.config.Tokens.AccessTTL, e.config.Tokens.RefreshTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, password string) (string, string, error) {
	result, err := e.LoginWithResult(ctx, email, password)
	if err != nil {
		return "", "", err
	}
	return result.AccessToken, result.RefreshToken, nil
}

// LoginWithResult verifies the email/password pair and issues a fresh token
// pair. The refresh token snapshots the subject's current rotation counter.
// Unknown email and wrong password both return [ErrInvalidCredentials].
func (e *Engine) LoginWithResult(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunLogin(ctx, email, password, e.loginDeps())
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:       result.UserID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	result, err := e.RefreshWithResult(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}
	return result.AccessToken, result.RefreshToken, nil
}

// RefreshWithResult rotates the presented refresh token: the ledger counter
// is advanced by exactly one, a new pair is issued, and the presented token
// becomes permanently unusable. A second presentation of the same token
// observes a counter mismatch and returns [ErrTokenReused].
func (e *Engine) RefreshWithResult(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", 0, ErrNoRefreshToken, nil)
		return nil, ErrNoRefreshToken
	}

	result := flows.RunRefresh(ctx, refreshToken, e.refreshDeps())

	switch result.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, result.UserID, result.TokenID, result.NewCounter, nil, nil)
		return &RefreshResult{
			UserID:       result.UserID,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			Counter:      result.NewCounter,
		}, nil

	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", 0, ErrInvalidRefreshToken, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil, ErrInvalidRefreshToken

	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, result.UserID, result.TokenID, result.Counter, ErrRefreshRateLimited, nil)
		e.emitRateLimit(ctx, "refresh", func() map[string]string {
			return map[string]string{
				"token_id": result.TokenID,
			}
		})
		return nil, ErrRefreshRateLimited

	case flows.RefreshFailureUserNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.TokenID, result.Counter, ErrUserNotFound, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrUserNotFound

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuse, false, result.UserID, result.TokenID, result.Counter, ErrTokenReused, nil)
		return nil, ErrTokenReused

	case flows.RefreshFailureInternal:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.TokenID, result.Counter, result.Err, func() map[string]string {
			return map[string]string{
				"reason": "backend_failed",
			}
		})
		return nil, result.Err

	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.TokenID, result.Counter, result.Err, func() map[string]string {
			return map[string]string{
				"reason": "rotation_failed",
			}
		})
		return nil, result.Err
	}
}

// ValidateAccess checks an access token signature, expiry, and issuer, and
// returns the embedded identity. It performs no store round-trips and reports
// no failure cause beyond [ErrInvalidAccessToken].
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, ok := flows.RunValidate(tokenStr, flows.ValidateDeps{
		VerifyAccess: e.codec.VerifyAccess,
	})
	if !ok {
		e.metricInc(MetricGuardReject)
		return nil, ErrInvalidAccessToken
	}

	e.metricInc(MetricGuardPass)
	return &AuthResult{
		UserID: claims.Subject,
		Email:  claims.Email,
		Plan:   claims.Plan,
	}, nil
}

// Logout invalidates every outstanding refresh token for userID by advancing
// its rotation counter. Access tokens already issued remain valid until they
// expire.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}

	if err := flows.RunLogout(ctx, userID, e.logoutDeps()); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, userID, "", 0, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", 0, nil, nil)
	return nil
}

// LogoutByAccessToken resolves the subject from an access token and performs
// [Engine.Logout] for it.
func (e *Engine) LogoutByAccessToken(ctx context.Context, tokenStr string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	result := flows.RunLogoutByAccessToken(ctx, tokenStr, e.logoutDeps())
	if result.UserID == "" {
		e.emitAudit(ctx, auditEventLogout, false, "", "", 0, ErrInvalidAccessToken, nil)
		return ErrInvalidAccessToken
	}
	if result.Err != nil {
		e.emitAudit(ctx, auditEventLogout, false, result.UserID, "", 0, result.Err, nil)
		return result.Err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, result.UserID, "", 0, nil, nil)
	return nil
}

// VerifyIdentity delegates a federated ID token to the configured
// [IdentityProvider]. Any verification failure maps to [ErrIdentityRejected].
func (e *Engine) VerifyIdentity(ctx context.Context, rawToken string) (ProviderIdentity, error) {
	if e == nil || e.identityProvider == nil {
		return ProviderIdentity{}, ErrEngineNotReady
	}
	if rawToken == "" {
		return ProviderIdentity{}, ErrIdentityRejected
	}

	identity, err := e.identityProvider.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return ProviderIdentity{}, ErrIdentityRejected
	}
	return identity, nil
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		ClientIPFromContext: clientIPFromContext,
		GetUserByEmail: func(ctx context.Context, email string) (flows.LoginUserRecord, error) {
			u, err := e.userProvider.GetUserByEmail(ctx, email)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flows.LoginUserRecord{
				UserID:       u.UserID,
				Email:        u.Email,
				Plan:         u.Plan,
				PasswordHash: u.PasswordHash,
			}, nil
		},
		VerifyPassword: e.passwordHash.Verify,
		CurrentCounter: e.ledger.Current,
		SignAccess:     e.codec.SignAccess,
		SignRefresh:    e.codec.SignRefresh,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: func(ctx context.Context, eventType string, success bool, userID string, err error, mb func() map[string]string) {
			e.emitAudit(ctx, eventType, success, userID, "", 0, err, mb)
		},
		EmitRateLimit: e.emitRateLimit,
		RateLimited:   rate.ErrRateLimited,
		Warn:          e.warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
		},
	}

	if e.rateLimiter != nil {
		deps.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	return deps
}

func (e *Engine) refreshDeps() flows.RefreshDeps {
	deps := flows.RefreshDeps{
		VerifyRefresh: e.codec.VerifyRefresh,
		GetUserByID: func(ctx context.Context, userID string) (flows.LoginUserRecord, error) {
			u, err := e.userProvider.GetUserByID(ctx, userID)
			if err != nil {
				return flows.LoginUserRecord{}, err
			}
			return flows.LoginUserRecord{
				UserID:       u.UserID,
				Email:        u.Email,
				Plan:         u.Plan,
				PasswordHash: u.PasswordHash,
			}, nil
		},
		AdvanceCounter:  e.ledger.Advance,
		SignAccess:      e.codec.SignAccess,
		SignRefresh:     e.codec.SignRefresh,
		CounterMismatch: ledger.ErrCounterMismatch,
		UnknownSubject:  ledger.ErrUnknownSubject,
		RateLimited:     rate.ErrRateLimited,
		UserMissing:     ErrUserNotFound,
		Warn:            e.warn,
	}

	if e.rateLimiter != nil && e.config.Security.EnableRefreshThrottle {
		deps.RateLimiter = e.rateLimiter
	}

	return deps
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		VerifyAccess:    e.codec.VerifyAccess,
		CurrentCounter:  e.ledger.Current,
		AdvanceCounter:  e.ledger.Advance,
		CounterMismatch: ledger.ErrCounterMismatch,
	}
}
