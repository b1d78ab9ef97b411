package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

// Store keeps view states in a redis hash per client so that every replica
// renders the same state. The generation guard runs inside Lua scripts.
type Store struct {
	c   *redis.Client
	ttl time.Duration
}

func New(addr, pass string, db int, ttl time.Duration) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl)
}

func NewWithClient(c *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{c: c, ttl: ttl}
}

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

func (s *Store) Close() error { return s.c.Close() }

func viewKey(clientID string) string { return "hb:view:" + clientID }

// beginScript bumps the generation and records the constraints.
var beginScript = redis.NewScript(`
local gen = redis.call("HINCRBY", KEYS[1], "latest", 1)
redis.call("HSET", KEYS[1], "constraints", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return gen
`)

// commitScript replaces the result set only if ARGV[1] is still the latest generation.
// Returns 1 if applied, 0 if stale.
var commitScript = redis.NewScript(`
local latest = tonumber(redis.call("HGET", KEYS[1], "latest") or "0")
if latest ~= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "settled", ARGV[1], "hotels", ARGV[2], "updated", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// abortScript settles ARGV[1] without touching the result set.
var abortScript = redis.NewScript(`
local latest = tonumber(redis.call("HGET", KEYS[1], "latest") or "0")
if latest ~= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "settled", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

func (s *Store) Begin(ctx context.Context, clientID string, c domain.Constraints) (int64, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("marshal constraints: %w", err)
	}
	gen, err := beginScript.Run(ctx, s.c, []string{viewKey(clientID)}, b, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis begin search: %w", err)
	}
	observability.ObserveStore("redis", "begin")
	return gen, nil
}

func (s *Store) Commit(ctx context.Context, clientID string, gen int64, hotels []domain.Hotel) (bool, error) {
	if hotels == nil {
		hotels = []domain.Hotel{}
	}
	b, err := json.Marshal(hotels)
	if err != nil {
		return false, fmt.Errorf("marshal hotels: %w", err)
	}
	n, err := commitScript.Run(ctx, s.c, []string{viewKey(clientID)},
		gen, b, time.Now().UnixMilli(), s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis commit search: %w", err)
	}
	if n == 0 {
		observability.ObserveStore("redis", "stale")
		return false, nil
	}
	observability.ObserveStore("redis", "commit")
	return true, nil
}

func (s *Store) Abort(ctx context.Context, clientID string, gen int64) (bool, error) {
	n, err := abortScript.Run(ctx, s.c, []string{viewKey(clientID)}, gen, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis abort search: %w", err)
	}
	if n == 1 {
		observability.ObserveStore("redis", "abort")
	}
	return n == 1, nil
}

func (s *Store) Load(ctx context.Context, clientID string) (domain.ViewState, error) {
	v := domain.ViewState{ClientID: clientID}
	m, err := s.c.HGetAll(ctx, viewKey(clientID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(m) == 0) {
		observability.ObserveStore("redis", "miss")
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("redis load view: %w", err)
	}

	atoi := func(k string) int64 {
		n, _ := strconv.ParseInt(m[k], 10, 64)
		return n
	}
	v.Latest = atoi("latest")
	v.Settled = atoi("settled")
	if ms := atoi("updated"); ms > 0 {
		v.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	if raw := m["constraints"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &v.Constraints); err != nil {
			return v, fmt.Errorf("decode constraints: %w", err)
		}
	}
	if raw := m["hotels"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &v.Hotels); err != nil {
			return v, fmt.Errorf("decode hotels: %w", err)
		}
	}
	observability.ObserveStore("redis", "hit")
	return v, nil
}
