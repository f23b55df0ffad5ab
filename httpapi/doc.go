// Package httpapi provides ready-made net/http handlers for the credential
// endpoints: login, refresh, and logout. Tokens travel exclusively in cookies
// bound through the transport package; response bodies never contain them.
//
// # Status mapping
//
//   - 401 — missing or invalid credentials and tokens
//   - 403 — refresh token reuse (both cookies are cleared first)
//   - 404 — subject no longer exists
//   - 429 — rate limited
//
// # Architecture boundaries
//
// This package owns HTTP decoding, status mapping, and cookie binding. All
// authentication decisions are delegated to authgate.Engine.
//
// # What this package must NOT do
//
//   - Place tokens in response bodies or headers.
//   - Distinguish unknown-user from wrong-password in any observable way.
//   - Import internal packages.
package httpapi
