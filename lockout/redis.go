package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordFailureScript = `
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local lockout = tonumber(ARGV[3])
local window = tonumber(ARGV[4])
local idle = tonumber(ARGV[5])

local fields = redis.call("HMGET", KEYS[1], "count", "until", "start")
local count = tonumber(fields[1] or "0")
local locked_until = tonumber(fields[2] or "0")
local start = tonumber(fields[3] or "0")

if locked_until > 0 then
  if now < locked_until then
    return {count, locked_until, 0}
  end
  count = 0
  locked_until = 0
  start = 0
end

if window > 0 and count > 0 and now - start >= window then
  count = 0
  start = 0
end

if count == 0 then
  start = now
end
count = count + 1

local tripped = 0
local ttl = idle
if window > 0 then
  ttl = window
end
if count >= max then
  locked_until = now + lockout
  tripped = 1
  ttl = lockout
end

redis.call("HSET", KEYS[1], "count", count, "until", locked_until, "start", start)
redis.call("PEXPIRE", KEYS[1], ttl)
return {count, locked_until, tripped}
`

const isLockedScript = `
local now = tonumber(ARGV[1])
local fields = redis.call("HMGET", KEYS[1], "count", "until")
local locked_until = tonumber(fields[2] or "0")
if locked_until > 0 and now >= locked_until then
  redis.call("DEL", KEYS[1])
  return {0, 0}
end
return {tonumber(fields[1] or "0"), locked_until}
`

var (
	recordFailureLua = redis.NewScript(recordFailureScript)
	isLockedLua      = redis.NewScript(isLockedScript)
)

// RedisTracker is a [Tracker] whose state lives in Redis so that every
// process behind a load balancer sees the same counters. Each mutation is a
// single Lua script, which Redis executes atomically per key.
type RedisTracker struct {
	redis  redis.UniversalClient
	prefix string
	config Config
	now    Clock
}

var _ Tracker = (*RedisTracker)(nil)

// NewRedisTracker creates a Redis-backed tracker. prefix namespaces keys and
// defaults to "alo". A nil clock uses time.Now.
func NewRedisTracker(redisClient redis.UniversalClient, prefix string, cfg Config, clock Clock) (*RedisTracker, error) {
	if redisClient == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("redis client required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "alo"
	}
	if clock == nil {
		clock = time.Now
	}
	return &RedisTracker{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
		now:    clock,
	}, nil
}

func (r *RedisTracker) key(username string) string {
	return r.prefix + ":" + username
}

// IsLocked implements [Tracker].
func (r *RedisTracker) IsLocked(ctx context.Context, username string) (bool, time.Time, error) {
	now := r.now()
	res, err := isLockedLua.Run(ctx, r.redis, []string{r.key(username)}, now.UnixMilli()).Int64Slice()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("%w: unexpected script reply", ErrUnavailable)
	}

	lockedUntil := res[1]
	if lockedUntil == 0 || now.UnixMilli() >= lockedUntil {
		return false, time.Time{}, nil
	}
	return true, time.UnixMilli(lockedUntil), nil
}

// RecordFailure implements [Tracker].
func (r *RedisTracker) RecordFailure(ctx context.Context, username string) (State, error) {
	now := r.now()
	res, err := recordFailureLua.Run(ctx, r.redis, []string{r.key(username)},
		now.UnixMilli(),
		r.config.MaxFailures,
		r.config.LockoutDuration.Milliseconds(),
		r.config.FailureWindow.Milliseconds(),
		r.config.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 3 {
		return State{}, fmt.Errorf("%w: unexpected script reply", ErrUnavailable)
	}

	state := State{
		Failures: int(res[0]),
		Tripped:  res[2] == 1,
	}
	if res[1] > 0 {
		state.LockedUntil = time.UnixMilli(res[1])
	}
	return state, nil
}

// RecordSuccess implements [Tracker].
func (r *RedisTracker) RecordSuccess(ctx context.Context, username string) error {
	if err := r.redis.Del(ctx, r.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Failures implements [Tracker].
func (r *RedisTracker) Failures(ctx context.Context, username string) (int, error) {
	vals, err := r.redis.HMGet(ctx, r.key(username), "count", "until", "start").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	count := parseInt64(vals[0])
	if count <= 0 {
		return 0, nil
	}

	now := r.now().UnixMilli()
	lockedUntil := parseInt64(vals[1])
	if lockedUntil > 0 && now >= lockedUntil {
		return 0, nil
	}
	window := r.config.FailureWindow.Milliseconds()
	if lockedUntil == 0 && window > 0 && now-parseInt64(vals[2]) >= window {
		return 0, nil
	}
	return int(count), nil
}

func parseInt64(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
