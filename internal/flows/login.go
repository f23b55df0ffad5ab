package flows

import (
	"context"
	"errors"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// LoginUserRecord is a flow-local user model used by login and refresh flows.
type LoginUserRecord struct {
	UserID       string
	Email        string
	Plan         string
	PasswordHash string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	GetUserByEmail func(context.Context, string) (LoginUserRecord, error)
	VerifyPassword func(string, string) bool

	CurrentCounter func(context.Context, string) (int64, error)
	SignAccess     func(string, string, string) (string, error)
	SignRefresh    func(string, int64) (string, error)

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, func() map[string]string)
	RateLimited   error
	Warn          func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies credentials and issues a token pair whose refresh token
// snapshots the subject's current rotation counter. Unknown email and wrong
// password take the same exit path so callers cannot distinguish them.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.CurrentCounter == nil ||
		deps.SignAccess == nil ||
		deps.SignRefresh == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			// A limiter backend fault is not a rate-limit verdict. Fail
			// closed, but let the host classify it as an internal fault.
			if deps.RateLimited != nil && !errors.Is(err, deps.RateLimited) {
				deps.MetricInc(deps.Metrics.LoginFailure)
				deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, func() map[string]string {
					return map[string]string{
						"email":  email,
						"reason": "limiter_unavailable",
					}
				})
				return nil, err
			}
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			deps.EmitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, deps.Errors.LoginRateLimited
		}
	}

	if password == "" {
		return nil, failLogin(ctx, email, ip, "", "empty_password", deps)
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, failLogin(ctx, email, ip, "", "user_not_found", deps)
	}

	if !deps.VerifyPassword(password, user.PasswordHash) {
		return nil, failLogin(ctx, email, ip, user.UserID, "password_mismatch", deps)
	}
	password = ""

	counter, err := deps.CurrentCounter(ctx, user.UserID)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "counter_load_failed",
			}
		})
		return nil, err
	}

	access, err := deps.SignAccess(user.UserID, user.Email, user.Plan)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "sign_access_failed",
			}
		})
		return nil, err
	}

	refresh, err := deps.SignRefresh(user.UserID, counter)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "sign_refresh_failed",
			}
		})
		return nil, err
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			deps.Warn("authgate: login limiter reset failed")
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return &LoginResult{
		UserID:       user.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func failLogin(ctx context.Context, email, ip, userID, reason string, deps LoginDeps) error {
	if deps.IncrementLoginRate != nil {
		if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
			if deps.RateLimited != nil && !errors.Is(err, deps.RateLimited) {
				// The attempt could not be recorded; the login still fails
				// on credentials, so fall through to that verdict.
				deps.Warn("authgate: login limiter increment failed")
			} else {
				deps.MetricInc(deps.Metrics.LoginRateLimited)
				deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, deps.Errors.LoginRateLimited, func() map[string]string {
					return map[string]string{
						"email": email,
					}
				})
				deps.EmitRateLimit(ctx, "login", func() map[string]string {
					return map[string]string{
						"email": email,
					}
				})
				return deps.Errors.LoginRateLimited
			}
		}
	}
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{
			"email":  email,
			"reason": reason,
		}
	})
	return deps.Errors.InvalidCredentials
}
