// Package middleware exposes HTTP middleware adapters for cookie-based and
// federated bearer authentication built on top of authgate.Engine validation.
//
// # Guards
//
//   - [Guard] — reads the access cookie, validates it, injects [authgate.AuthResult].
//   - [FederatedGuard] — reads an Authorization bearer ID token, verifies it
//     through the engine's IdentityProvider, injects [authgate.ProviderIdentity].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or Postgres (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
