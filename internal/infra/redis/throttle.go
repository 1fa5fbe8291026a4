package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	throttleOpTimeout = 500 * time.Millisecond
	throttleKeyTTL    = time.Minute
)

// admitScript compares and replaces the remembered message in one step so
// replicas cannot both admit the same error.
//
// KEYS[1] throttle hash, ARGV: message, now (ms), window (ms), ttl (ms).
var admitScript = redis.NewScript(`
local key = KEYS[1]
local message = ARGV[1]
local now = tonumber(ARGV[2])
local last = redis.call('HGET', key, 'message')
local at = tonumber(redis.call('HGET', key, 'at'))
if last == message and at and now - at <= tonumber(ARGV[3]) then
  return 0
end
redis.call('HSET', key, 'message', message, 'at', ARGV[2])
redis.call('PEXPIRE', key, ARGV[4])
return 1
`)

// ThrottleStore shares the last shown error between instances so a host
// running several replicas still shows one notification per click.
// Redis errors admit the message.
type ThrottleStore struct {
	client *Client
	key    string
}

// NewThrottleStore creates a Redis-backed session.ThrottleStore.
func NewThrottleStore(client *Client) *ThrottleStore {
	return &ThrottleStore{client: client, key: throttleKey(client.prefix)}
}

func (s *ThrottleStore) Admit(message string, now time.Time, window time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), throttleOpTimeout)
	defer cancel()

	res, err := admitScript.Run(ctx, s.client.rdb, []string{s.key}, admitArgs(message, now, window)...).Int()
	if err != nil {
		slog.Warn("Failed to run throttle script", "error", err)
		return true
	}
	return res == 1
}

func admitArgs(message string, now time.Time, window time.Duration) []any {
	ttl := max(throttleKeyTTL, 2*window)
	return []any{message, now.UnixMilli(), window.Milliseconds(), ttl.Milliseconds()}
}
