package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// casScript swaps KEYS[1] to ARGV[2] only if it currently equals ARGV[1]; a
// missing key counts as 0.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then cur = '0' end
if tonumber(cur) == tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], ARGV[2])
  return 1
end
return 0
`)

// RedisStore persists values in Redis under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) wrapKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *RedisStore) Get(ctx context.Context, key string) (float64, error) {
	v, err := r.client.Get(ctx, r.wrapKey(key)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value float64) error {
	if err := r.client.Set(ctx, r.wrapKey(key), formatFloat(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) CompareAndSwap(ctx context.Context, key string, old, new float64) (bool, error) {
	n, err := casScript.Run(ctx, r.client, []string{r.wrapKey(key)}, formatFloat(old), formatFloat(new)).Int()
	if err != nil {
		return false, fmt.Errorf("redis cas: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
