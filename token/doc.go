// Package token manages signing and verification of the paired bearer
// credentials: short-lived JWT access tokens and long-lived JWT refresh
// tokens carrying a rotation counter snapshot.
//
// # Architecture boundaries
//
// This package owns claim encoding and signature/expiry validation, nothing
// else. Counter comparison, reuse detection, and user lookup belong to the
// Engine and the ledger package.
//
// # What this package must NOT do
//
//   - Access Redis, Postgres, or any I/O.
//   - Import authgate, ledger, or transport.
//   - Report the cause of a verification failure: callers get pass/fail only.
package token
