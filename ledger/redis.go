package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const advanceScript = `
local key = KEYS[1]
local expected = tonumber(ARGV[1])

local current = tonumber(redis.call("GET", key) or "0")
if current ~= expected then
  return {0, current}
end

return {1, redis.call("INCR", key)}
`

var advanceLua = redis.NewScript(advanceScript)

// RedisLedger keeps one counter key per subject. Absent keys read as zero,
// matching the counter's initial value for a fresh account, so no explicit
// provisioning step is needed at login. Keys carry no TTL: an expiring
// counter would silently reset to zero and re-validate superseded tokens.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisLedger creates a [RedisLedger] namespaced under prefix.
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "agrc"
	}
	return &RedisLedger{redis: client, prefix: prefix}
}

func (l *RedisLedger) key(subject string) string {
	return l.prefix + ":" + subject
}

// Current reads the persisted counter for a subject.
//
//	Performance: 1 Redis GET.
func (l *RedisLedger) Current(ctx context.Context, subject string) (int64, error) {
	count, err := l.redis.Get(ctx, l.key(subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Advance performs the compare-and-increment as a single Lua script.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: CAS prevents two refreshes from consuming the same counter.
func (l *RedisLedger) Advance(ctx context.Context, subject string, expected int64) (int64, error) {
	result, err := advanceLua.Run(ctx, l.redis, []string{l.key(subject)}, expected).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return 0, fmt.Errorf("%w: invalid advance script response", ErrLedgerUnavailable)
	}
	status, ok := parts[0].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid advance script status", ErrLedgerUnavailable)
	}
	value, ok := parts[1].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid advance script value", ErrLedgerUnavailable)
	}

	if status == 0 {
		return value, ErrCounterMismatch
	}
	return value, nil
}
