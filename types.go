package authgate

import (
	"context"
	"io"

	internalaudit "github.com/mwielgat/authgate/internal/audit"
	internalmetrics "github.com/mwielgat/authgate/internal/metrics"
)

// UserRecord is the account record returned by [UserProvider]. It carries the
// stable subject identifier, profile fields embedded into access tokens, and
// the password hash used for credential verification.
type UserRecord struct {
	UserID       string
	Email        string
	Plan         string
	PasswordHash string
}

// UserProvider is the primary interface that callers must implement to
// integrate authgate with their user database. Lookups for unknown users
// must return an error wrapping [ErrUserNotFound]; any other error is
// treated as a storage fault and never reported as a missing user. The
// engine folds both into its credential responses so callers cannot probe
// for account existence.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
}

// PasswordHasher hashes and verifies user passwords. [password.Argon2] is the
// default implementation wired by [Builder.Build].
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// ProviderIdentity is the verified identity returned by [IdentityProvider].
type ProviderIdentity struct {
	SubjectID string
	Email     string
	Name      string
}

// IdentityProvider verifies federated ID tokens (for example OIDC tokens from
// an external provider) presented as bearer credentials.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, rawToken string) (ProviderIdentity, error)
}

// AuthResult is returned by [Engine.ValidateAccess]. It contains the
// authenticated subject and the profile claims carried by the access token.
type AuthResult struct {
	UserID string
	Email  string
	Plan   string
}

// LoginResult is returned by [Engine.LoginWithResult].
type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// RefreshResult is returned by [Engine.RefreshWithResult]. Counter is the
// rotation counter embedded in the newly issued refresh token.
type RefreshResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Counter      int64
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess = MetricID(internalmetrics.MetricLoginSuccess)
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure = MetricID(internalmetrics.MetricLoginFailure)
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited = MetricID(internalmetrics.MetricLoginRateLimited)
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess = MetricID(internalmetrics.MetricRefreshSuccess)
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure = MetricID(internalmetrics.MetricRefreshFailure)
	// MetricRefreshReuseDetected is an exported constant or variable used by the authentication engine.
	MetricRefreshReuseDetected = MetricID(internalmetrics.MetricRefreshReuseDetected)
	// MetricRefreshRateLimited is an exported constant or variable used by the authentication engine.
	MetricRefreshRateLimited = MetricID(internalmetrics.MetricRefreshRateLimited)
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricGuardPass is an exported constant or variable used by the authentication engine.
	MetricGuardPass = MetricID(internalmetrics.MetricGuardPass)
	// MetricGuardReject is an exported constant or variable used by the authentication engine.
	MetricGuardReject = MetricID(internalmetrics.MetricGuardReject)
	// MetricRateLimitHit is an exported constant or variable used by the authentication engine.
	MetricRateLimitHit = MetricID(internalmetrics.MetricRateLimitHit)
	// MetricValidateLatency is an exported constant or variable used by the authentication engine.
	MetricValidateLatency = MetricID(internalmetrics.MetricValidateLatency)
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
