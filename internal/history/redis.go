package history

import (
	"context"
	"errors"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"

	"github.com/redis/go-redis/v9"
)

const report_redis_command = "redis.command"

// RedisCache is a CacheAPI backed by redis, keys are stored under `prefix`.
type RedisCache struct {
	client *redis.Client
	prefix string
	tel    telemetry.API
}

func NewRedisCache(client *redis.Client, prefix string, tel telemetry.API) RedisCache {
	assert.NotNil(client)
	assert.NotNil(tel)
	return RedisCache{
		client: client,
		prefix: prefix,
		tel:    telemetry.NewScopedAPI("cache", tel),
	}
}

func (c RedisCache) key(key db.CacheKey) string {
	return c.prefix + string(key)
}

func (c RedisCache) Get(ctx context.Context, key db.CacheKey) (string, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		c.tel.ReportBroken(report_redis_command, err, "GET", key)
		return "", false, err
	}
	return value, true, nil
}

func (c RedisCache) Set(ctx context.Context, key db.CacheKey, value string) error {
	created, err := c.client.SetNX(ctx, c.key(key), value, 0).Result()
	if err != nil {
		c.tel.ReportBroken(report_redis_command, err, "SETNX", key)
		return err
	}
	if !created {
		return ErrKeyExists
	}
	return nil
}

func (c RedisCache) Upsert(ctx context.Context, key db.CacheKey, value string) error {
	err := c.client.Set(ctx, c.key(key), value, 0).Err()
	if err != nil {
		c.tel.ReportBroken(report_redis_command, err, "SET", key)
		return err
	}
	return nil
}

func (c RedisCache) Delete(ctx context.Context, key db.CacheKey) error {
	err := c.client.Del(ctx, c.key(key)).Err()
	if err != nil {
		c.tel.ReportBroken(report_redis_command, err, "DEL", key)
		return err
	}
	return nil
}
