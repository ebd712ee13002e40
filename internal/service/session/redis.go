package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	fieldAmbience    = "ambience"
	fieldLastRequest = "last_request"
)

// RedisStore shares session state between replicas. The debounce relies on
// SET NX PX so concurrent turns across processes still see a single winner.
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	debounce time.Duration
	idleTTL  time.Duration
}

// NewRedisStore wraps an existing client. Keys are namespaced with prefix.
func NewRedisStore(client redis.Cmdable, prefix string, debounce, idleTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &RedisStore{client: client, prefix: prefix, debounce: debounce, idleTTL: idleTTL}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (State, bool, error) {
	values, err := s.client.HGetAll(ctx, s.stateKey(id)).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(values) == 0 {
		return State{}, false, nil
	}

	state := State{AmbienceID: values[fieldAmbience]}
	if raw := values[fieldLastRequest]; raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			state.LastRequest = time.UnixMilli(ms)
		}
	}
	return state, true, nil
}

// TryTouch implements Store.
func (s *RedisStore) TryTouch(ctx context.Context, id string, now time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.debounceKey(id), now.UnixMilli(), s.debounce).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("debounce session %s: %w", id, err)
	}
	if !ok {
		return false, nil
	}
	return true, s.Touch(ctx, id, now)
}

// Touch implements Store.
func (s *RedisStore) Touch(ctx context.Context, id string, now time.Time) error {
	return s.writeField(ctx, id, fieldLastRequest, strconv.FormatInt(now.UnixMilli(), 10))
}

// SetAmbience implements Store.
func (s *RedisStore) SetAmbience(ctx context.Context, id, ambienceID string) error {
	return s.writeField(ctx, id, fieldAmbience, ambienceID)
}

func (s *RedisStore) writeField(ctx context.Context, id, field, value string) error {
	key := s.stateKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		pipe.Expire(ctx, key, s.idleTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update session %s %s: %w", id, field, err)
	}
	return nil
}

func (s *RedisStore) stateKey(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) debounceKey(id string) string {
	return s.prefix + ":" + id + ":debounce"
}
