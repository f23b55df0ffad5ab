package ledger

import (
	"context"
	"errors"
)

// ErrCounterMismatch is returned by Advance when the expected counter no
// longer matches the persisted one. Exactly one of N concurrent callers
// presenting the same expected value succeeds; the rest observe this error.
var ErrCounterMismatch = errors.New("rotation counter mismatch")

// ErrUnknownSubject is returned when the subject has no persisted record.
// Only backends that co-locate the counter with the user row can detect this.
var ErrUnknownSubject = errors.New("unknown subject")

// ErrLedgerUnavailable wraps backend infrastructure failures.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// Ledger defines a public type used by authgate APIs.
//
// Ledger instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Ledger interface {
	// Current reads the persisted rotation counter for a subject.
	Current(ctx context.Context, subject string) (int64, error)

	// Advance atomically increments the counter if and only if it still
	// equals expected, returning the new value. Callers must only invoke
	// Advance after confirming the presented counter equals Current; a
	// mismatch here means another refresh won the race.
	Advance(ctx context.Context, subject string, expected int64) (int64, error)
}
