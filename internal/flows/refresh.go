package flows

import (
	"context"
	"errors"

	"github.com/mwielgat/authgate/token"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureUserNotFound
	RefreshFailureReuse
	RefreshFailureAdvance
	RefreshFailureSignAccess
	RefreshFailureSignRefresh
	RefreshFailureInternal
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	TokenID      string
	Counter      int64
	NewCounter   int64
	AccessToken  string
	RefreshToken string
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, tokenID string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefresh  func(string) (*token.RefreshClaims, bool)
	GetUserByID    func(context.Context, string) (LoginUserRecord, error)
	AdvanceCounter func(ctx context.Context, subject string, expected int64) (int64, error)
	SignAccess     func(string, string, string) (string, error)
	SignRefresh    func(string, int64) (string, error)

	RateLimiter     RefreshRateLimiter
	CounterMismatch error
	UnknownSubject  error
	RateLimited     error
	UserMissing     error
	Warn            func(string, ...any)
}

// RunRefresh executes counter rotation and issuance logic without root
// package dependencies. Exactly one caller presenting a given counter value
// can succeed; everyone else observes a mismatch and is classified as reuse.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, ok := deps.VerifyRefresh(refreshToken)
	if !ok {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     errors.New("refresh token rejected"),
		}
	}

	subject := claims.Subject
	tokenID := claims.ID

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, tokenID); err != nil {
			// A limiter backend fault is not a rate-limit verdict; callers
			// told to back off would retry a request that can never pass.
			failure := RefreshFailureInternal
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				failure = RefreshFailureRateLimited
			}
			return RefreshResult{
				Failure: failure,
				Err:     err,
				UserID:  subject,
				TokenID: tokenID,
				Counter: claims.Counter,
			}
		}
	}

	user, err := deps.GetUserByID(ctx, subject)
	if err != nil {
		// Only a lookup that positively reports an unknown user counts as
		// user-not-found; a storage fault takes the internal path.
		failure := RefreshFailureInternal
		if deps.UserMissing != nil && errors.Is(err, deps.UserMissing) {
			failure = RefreshFailureUserNotFound
		}
		return RefreshResult{
			Failure: failure,
			Err:     err,
			UserID:  subject,
			TokenID: tokenID,
			Counter: claims.Counter,
		}
	}

	next, err := deps.AdvanceCounter(ctx, subject, claims.Counter)
	if err != nil {
		switch {
		case deps.CounterMismatch != nil && errors.Is(err, deps.CounterMismatch):
			return RefreshResult{
				Failure: RefreshFailureReuse,
				Err:     err,
				UserID:  subject,
				TokenID: tokenID,
				Counter: claims.Counter,
			}
		case deps.UnknownSubject != nil && errors.Is(err, deps.UnknownSubject):
			return RefreshResult{
				Failure: RefreshFailureUserNotFound,
				Err:     err,
				UserID:  subject,
				TokenID: tokenID,
				Counter: claims.Counter,
			}
		default:
			return RefreshResult{
				Failure: RefreshFailureAdvance,
				Err:     err,
				UserID:  subject,
				TokenID: tokenID,
				Counter: claims.Counter,
			}
		}
	}

	access, err := deps.SignAccess(user.UserID, user.Email, user.Plan)
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureSignAccess,
			Err:        err,
			UserID:     subject,
			TokenID:    tokenID,
			Counter:    claims.Counter,
			NewCounter: next,
		}
	}

	refresh, err := deps.SignRefresh(subject, next)
	if err != nil {
		return RefreshResult{
			Failure:    RefreshFailureSignRefresh,
			Err:        err,
			UserID:     subject,
			TokenID:    tokenID,
			Counter:    claims.Counter,
			NewCounter: next,
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       subject,
		TokenID:      tokenID,
		Counter:      claims.Counter,
		NewCounter:   next,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
