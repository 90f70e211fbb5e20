// Package lock serializes actions on a mission across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/port"
)

// ErrLockTimeout is returned when the lock is still held after the wait window
var ErrLockTimeout = errors.New("timed out acquiring mission lock")

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Config tunes the Redis locker
type Config struct {
	Prefix       string
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
}

func (c *Config) defaults() {
	if c.Prefix == "" {
		c.Prefix = "viaticos:"
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.Wait <= 0 {
		c.Wait = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
}

// RedisLocker implements port.MissionLocker with SET NX PX and a
// value-checked release
type RedisLocker struct {
	client *backend.Client
	cfg    Config
	logger *zap.Logger
}

// NewRedisLocker creates a new Redis locker
func NewRedisLocker(client *backend.Client, cfg Config, logger *zap.Logger) *RedisLocker {
	cfg.defaults()
	return &RedisLocker{client: client, cfg: cfg, logger: logger}
}

func (l *RedisLocker) key(missionID int64) string {
	return l.cfg.Prefix + "lock:mission:" + strconv.FormatInt(missionID, 10)
}

// Lock acquires the mission lock, polling until cfg.Wait elapses
func (l *RedisLocker) Lock(ctx context.Context, missionID int64) (func(), error) {
	key := l.key(missionID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.cfg.TTL).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token, missionID) }, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: mission %d", ErrLockTimeout, missionID)
		case <-ticker.C:
		}
	}
}

// release runs detached from the action context so a cancelled request
// still frees the lock
func (l *RedisLocker) release(key, token string, missionID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.client.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
		l.logger.Warn("Failed to release mission lock",
			zap.Int64("mission_id", missionID),
			zap.Error(err))
	}
}

var _ port.MissionLocker = (*RedisLocker)(nil)
