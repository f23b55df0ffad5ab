package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores the rotation counter on the user row itself,
// expecting a schema of the form:
//
//	CREATE TABLE users (
//	    id               TEXT PRIMARY KEY,
//	    rotation_counter BIGINT NOT NULL DEFAULT 0
//	    -- application-owned columns elided
//	);
//
// Advance is a single conditional UPDATE keyed on the expected prior value,
// never a read-modify-write, so concurrent refreshes for the same subject
// resolve to exactly one winner inside the database.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a [PostgresLedger] over the given pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Current reads the persisted counter for a subject. A missing row is
// [ErrUnknownSubject], distinct from any counter-comparison outcome.
func (l *PostgresLedger) Current(ctx context.Context, subject string) (int64, error) {
	var counter int64
	err := l.pool.QueryRow(ctx,
		`SELECT rotation_counter FROM users WHERE id = $1`,
		subject,
	).Scan(&counter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownSubject
		}
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return counter, nil
}

// Advance increments the counter only when it still equals expected. When
// the conditional UPDATE matches no row, a follow-up read distinguishes a
// vanished subject from a counter that moved underneath the caller.
func (l *PostgresLedger) Advance(ctx context.Context, subject string, expected int64) (int64, error) {
	var next int64
	err := l.pool.QueryRow(ctx,
		`UPDATE users
		    SET rotation_counter = rotation_counter + 1
		  WHERE id = $1 AND rotation_counter = $2
		  RETURNING rotation_counter`,
		subject, expected,
	).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	current, err := l.Current(ctx, subject)
	if err != nil {
		return 0, err
	}
	return current, ErrCounterMismatch
}
