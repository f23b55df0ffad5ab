package flows

import (
	"context"
	"errors"

	"github.com/mwielgat/authgate/token"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyAccess    func(string) (*token.AccessClaims, bool)
	CurrentCounter  func(context.Context, string) (int64, error)
	AdvanceCounter  func(ctx context.Context, subject string, expected int64) (int64, error)
	CounterMismatch error
}

type LogoutByAccessResult struct {
	UserID string
	Err    error
}

// RunLogout invalidates every outstanding refresh token for subject by
// advancing its rotation counter past the values any of them carry. A
// concurrent advance by another caller achieves the same thing, so a
// counter mismatch is treated as success.
func RunLogout(ctx context.Context, subject string, deps LogoutDeps) error {
	current, err := deps.CurrentCounter(ctx, subject)
	if err != nil {
		return err
	}

	if _, err := deps.AdvanceCounter(ctx, subject, current); err != nil {
		if deps.CounterMismatch != nil && errors.Is(err, deps.CounterMismatch) {
			return nil
		}
		return err
	}

	return nil
}

// RunLogoutByAccessToken resolves the subject from an access token and
// invalidates its refresh tokens.
func RunLogoutByAccessToken(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutByAccessResult {
	claims, ok := deps.VerifyAccess(tokenStr)
	if !ok {
		return LogoutByAccessResult{
			Err: errors.New("access token rejected"),
		}
	}

	return LogoutByAccessResult{
		UserID: claims.Subject,
		Err:    RunLogout(ctx, claims.Subject, deps),
	}
}
