package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a session id is unknown, revoked or expired.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps Redis transport and script failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const deleteSessionScript = `
local username = redis.call("HGET", KEYS[1], "user")
if not username then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. username, ARGV[2])
return 1
`

const saveSessionScript = `
local ttl = tonumber(ARGV[5])
redis.call("HSET", KEYS[1], "user", ARGV[1], "created", ARGV[2], "refreshed", ARGV[3], "expires", ARGV[4])
redis.call("PEXPIRE", KEYS[1], ttl)
redis.call("SADD", KEYS[2], ARGV[6])
if redis.call("PTTL", KEYS[2]) < ttl then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`

const touchSessionScript = `
local username = redis.call("HGET", KEYS[1], "user")
if not username then
  return 0
end
local ttl = tonumber(ARGV[3])
redis.call("HSET", KEYS[1], "refreshed", ARGV[1], "expires", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ttl)
local index = ARGV[4] .. username
if redis.call("PTTL", index) < ttl then
  redis.call("PEXPIRE", index, ttl)
end
return 1
`

const revokeUserSessionsScript = `
local now = tonumber(ARGV[1])
local keep = ARGV[2]
local prefix = ARGV[3]
local revoked = 0
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  if id ~= keep then
    local key = prefix .. id
    local expires = tonumber(redis.call("HGET", key, "expires") or "0")
    if expires > now then
      revoked = revoked + 1
    end
    redis.call("DEL", key)
    redis.call("SREM", KEYS[1], id)
  end
end
return revoked
`

const activeSessionsScript = `
local now = tonumber(ARGV[1])
local prefix = ARGV[2]
local active = {}
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local expires = tonumber(redis.call("HGET", prefix .. id, "expires") or "0")
  if expires > now then
    active[#active + 1] = id
  else
    redis.call("SREM", KEYS[1], id)
  end
end
return active
`

var (
	deleteSessionLua      = redis.NewScript(deleteSessionScript)
	saveSessionLua        = redis.NewScript(saveSessionScript)
	touchSessionLua       = redis.NewScript(touchSessionScript)
	revokeUserSessionsLua = redis.NewScript(revokeUserSessionsScript)
	activeSessionsLua     = redis.NewScript(activeSessionsScript)
)

// Store is a Redis-backed session registry. Each session is a hash keyed by
// id with a TTL; a per-user set indexes ids for bulk revocation. The index
// lives as long as the longest-lived session it names.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a registry. prefix defaults to "gs". A nil clock uses
// time.Now.
func NewStore(client redis.UniversalClient, prefix string, clock func() time.Time) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    clock,
	}
}

func (s *Store) sessionPrefix() string {
	return s.prefix + ":s:"
}

func (s *Store) key(id string) string {
	return s.sessionPrefix() + id
}

func (s *Store) userPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(username string) string {
	return s.userPrefix() + username
}

// Save persists rec with a TTL derived from rec.ExpiresAt and extends the
// user index to cover it.
func (s *Store) Save(ctx context.Context, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session: record %s already expired", rec.ID)
	}

	err := saveSessionLua.Run(ctx, s.redis, []string{s.key(rec.ID), s.userKey(rec.Username)},
		rec.Username,
		rec.CreatedAt.UnixMilli(),
		rec.RefreshedAt.UnixMilli(),
		rec.ExpiresAt.UnixMilli(),
		ttl.Milliseconds(),
		rec.ID,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	vals, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(vals) == 0 || vals["user"] == "" {
		return Record{}, ErrNotFound
	}

	rec := Record{
		ID:          id,
		Username:    vals["user"],
		CreatedAt:   unixMilli(vals["created"]),
		RefreshedAt: unixMilli(vals["refreshed"]),
		ExpiresAt:   unixMilli(vals["expires"]),
	}
	if !rec.Live(s.now()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Touch extends a live session to expire ttl from now. It returns
// ErrNotFound when the session was revoked or has lapsed.
func (s *Store) Touch(ctx context.Context, id string, ttl time.Duration) (time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)

	ok, err := touchSessionLua.Run(ctx, s.redis, []string{s.key(id)},
		now.UnixMilli(),
		expires.UnixMilli(),
		ttl.Milliseconds(),
		s.userPrefix(),
	).Int()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ok == 0 {
		return time.Time{}, ErrNotFound
	}
	return expires, nil
}

// Delete revokes one session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(id)}, s.userPrefix(), id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser revokes every session of username except keepID, which
// may be empty. It returns the number of revoked sessions that were still
// live; lapsed ids are dropped from the index without being counted.
func (s *Store) DeleteAllForUser(ctx context.Context, username, keepID string) (int, error) {
	n, err := revokeUserSessionsLua.Run(ctx, s.redis, []string{s.userKey(username)},
		s.now().UnixMilli(),
		keepID,
		s.sessionPrefix(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// ActiveSessionIDs returns the sorted ids of username whose records are still
// live. Stale index members are pruned.
func (s *Store) ActiveSessionIDs(ctx context.Context, username string) ([]string, error) {
	ids, err := activeSessionsLua.Run(ctx, s.redis, []string{s.userKey(username)},
		s.now().UnixMilli(),
		s.sessionPrefix(),
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sort.Strings(ids)
	return ids, nil
}

func unixMilli(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
