package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes one token bucket: refill rate in tokens per second,
// capacity, and how long an idle bucket survives in Redis.
type bucket struct {
	key   string
	rate  float64
	burst int
	idle  time.Duration
}

// Buckets for the two limited scopes. Account endpoints are keyed by a
// hash of the client IP; everything else behind auth is keyed by user id.
const (
	accountBucketPrefix = "rl:account:"
	apiBucketPrefix     = "rl:api:"
)

// takeTokenScript refills the bucket for the elapsed milliseconds, then
// takes one token if available. It returns {allowed, retry_after_ms,
// remaining}.
var takeTokenScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local idle = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

if now > ts then
	tokens = math.min(burst, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', key, idle)

return {allowed, wait, math.floor(tokens)}
`)

// CheckUserRateLimit takes a token from the user's API bucket.
// A non-positive ratePerMinute disables the limit.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:   apiBucketPrefix + userID,
		rate:  float64(ratePerMinute) / 60,
		burst: burst,
		idle:  2 * time.Minute,
	})
}

// CheckIPRateLimit takes a token from the client's account bucket, used for
// register and login. Raw addresses are never stored.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:   accountBucketPrefix + hashSubject(ip),
		rate:  float64(ratePerSecond),
		burst: burst,
		idle:  10 * time.Second,
	})
}

// take runs the bucket script. On Redis failure it allows the request and
// returns the error for the caller to log.
func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	now := time.Now()

	res, err := takeTokenScript.Run(ctx, c.client,
		[]string{b.key},
		b.rate, b.burst, now.UnixMilli(), b.idle.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return unlimited(b.burst), fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return unlimited(b.burst), fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	// Time until the bucket is full again.
	refill := time.Duration(math.Ceil(float64(int64(b.burst)-res[2])/b.rate*1000)) * time.Millisecond

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(refill),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashSubject returns 16 hex characters of SHA-256.
func hashSubject(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
