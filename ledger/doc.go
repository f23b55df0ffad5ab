// Package ledger is the authority on which refresh token is currently valid
// for a subject. It stores one monotonically increasing rotation counter per
// subject and advances it with an atomic compare-and-increment, so that two
// concurrent refreshes presenting the same counter cannot both win.
//
// # Backends
//
//   - [RedisLedger] — counter keys in Redis, advanced by a Lua CAS script.
//   - [PostgresLedger] — counter column on the user row, advanced by a
//     conditional UPDATE keyed on the expected prior value.
//
// # Architecture boundaries
//
// The counter is owned exclusively by this package. Callers must never cache
// it across requests: staleness defeats reuse detection.
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Decide what a counter mismatch means (the Engine classifies it).
package ledger
