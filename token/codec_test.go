package token

import (
	"bytes"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessSecret:  bytes.Repeat([]byte{0xA1}, 32),
		RefreshSecret: bytes.Repeat([]byte{0xB2}, 32),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "authgate-test",
	}
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short access secret", func(c *Config) { c.AccessSecret = []byte("short") }},
		{"short refresh secret", func(c *Config) { c.RefreshSecret = []byte("short") }},
		{"identical secrets", func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"refresh ttl below access ttl", func(c *Config) { c.RefreshTTL = time.Minute }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"excessive leeway", func(c *Config) { c.Leeway = 3 * time.Minute }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewCodec(cfg); err == nil {
				t.Fatalf("expected config rejection")
			}
		})
	}
}

func TestAccessRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.SignAccess("user-1", "alice@example.com", "pro")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	claims, ok := c.VerifyAccess(signed)
	if !ok {
		t.Fatalf("VerifyAccess rejected a freshly signed token")
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Plan != "pro" {
		t.Errorf("plan = %q", claims.Plan)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.SignRefresh("user-1", 7)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	claims, ok := c.VerifyRefresh(signed)
	if !ok {
		t.Fatalf("VerifyRefresh rejected a freshly signed token")
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Counter != 7 {
		t.Errorf("counter = %d, want 7", claims.Counter)
	}
	if claims.ID == "" {
		t.Errorf("refresh token missing jti")
	}
}

func TestCrossSecretRejected(t *testing.T) {
	c := newTestCodec(t)

	access, err := c.SignAccess("user-1", "alice@example.com", "free")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, err := c.SignRefresh("user-1", 0)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	if _, ok := c.VerifyRefresh(access); ok {
		t.Fatalf("access token verified under refresh secret")
	}
	if _, ok := c.VerifyAccess(refresh); ok {
		t.Fatalf("refresh token verified under access secret")
	}
}

func TestForeignSecretRejected(t *testing.T) {
	c := newTestCodec(t)

	other := testConfig()
	other.AccessSecret = bytes.Repeat([]byte{0xC3}, 32)
	foreign, err := NewCodec(other)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	signed, err := foreign.SignAccess("user-1", "alice@example.com", "")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, ok := c.VerifyAccess(signed); ok {
		t.Fatalf("token signed under a foreign secret verified")
	}
}

func TestMalformedTokensRejected(t *testing.T) {
	c := newTestCodec(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d", "eyJh.eyJz."} {
		if _, ok := c.VerifyAccess(tok); ok {
			t.Errorf("VerifyAccess accepted %q", tok)
		}
		if _, ok := c.VerifyRefresh(tok); ok {
			t.Errorf("VerifyRefresh accepted %q", tok)
		}
	}
}

func TestExpiryBoundary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t).WithClock(func() time.Time { return base })

	signed, err := c.SignAccess("user-1", "alice@example.com", "")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	expiry := base.Add(testConfig().AccessTTL)

	// 1ms before expiry the token still verifies.
	early := c.WithClock(func() time.Time { return expiry.Add(-time.Millisecond) })
	if _, ok := early.VerifyAccess(signed); !ok {
		t.Fatalf("token rejected 1ms before expiry")
	}

	// Exactly at expiry it does not.
	atExpiry := c.WithClock(func() time.Time { return expiry })
	if _, ok := atExpiry.VerifyAccess(signed); ok {
		t.Fatalf("token accepted exactly at expiry")
	}
}

func TestMissingSubjectRejected(t *testing.T) {
	c := newTestCodec(t)

	signed, err := c.SignAccess("", "alice@example.com", "")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, ok := c.VerifyAccess(signed); ok {
		t.Fatalf("token without subject verified")
	}
}
