// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive authentication workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - agl:  — login per-email
//   - agli: — login per-IP
//   - agr:  — refresh per-token-ID
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the flow functions).
//   - Be imported outside the authgate module.
package rate
