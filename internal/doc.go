// Package internal groups code that is intentionally private to authgate.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - metrics — lock-free counters and latency histograms
//   - rate — Redis-backed fixed-window rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API, other than through
//     the root package's documented aliases.
//   - Be imported by any package outside the authgate module.
package internal
