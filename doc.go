// Package authgate provides a session-authentication engine built on paired
// JWT credentials: short-lived access tokens and rotating refresh tokens whose
// reuse is detected through a per-subject rotation counter ledger.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (AuthResult, MetricsSnapshot, etc.). All internal coordination — flow orchestration,
// rate limiting, audit dispatch, metric storage — lives under internal/ and is never
// exported. Token encoding lives in token/, counter storage in ledger/, and cookie
// handling in transport/.
//
// # What this package must NOT do
//
//   - Expose Redis or Postgres clients, internal stores, or claim encoding details in
//     its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports authgate (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It must not allocate beyond the returned AuthResult
// and must complete without any store round-trips. Login and Refresh are allowed one
// ledger round-trip plus rate limiter traffic per call.
package authgate
