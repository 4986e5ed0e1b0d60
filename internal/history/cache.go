package history

import (
	"context"
	"database/sql"
	"errors"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
)

var ErrKeyExists = errors.New("cache key already exists")

// CacheAPI is a small string key-value store.
type CacheAPI interface {
	// Get returns ok = false if the key is not present.
	Get(ctx context.Context, key db.CacheKey) (value string, ok bool, err error)
	// Set inserts a new key, it fails with ErrKeyExists if the key is already present.
	Set(ctx context.Context, key db.CacheKey, value string) error
	Upsert(ctx context.Context, key db.CacheKey, value string) error
	Delete(ctx context.Context, key db.CacheKey) error
}

// SQLCache is a CacheAPI backed by the `cache` table.
type SQLCache struct {
	db  *db.Queries
	tel telemetry.API
}

func NewSQLCache(database *sql.DB, tel telemetry.API) SQLCache {
	assert.NotNil(database)
	assert.NotNil(tel)
	return SQLCache{
		db:  db.New(database),
		tel: telemetry.NewScopedAPI("cache", tel),
	}
}

func (c SQLCache) Get(ctx context.Context, key db.CacheKey) (string, bool, error) {
	value, err := c.db.GetCacheValue(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		c.tel.ReportBroken(report_db_query, err, "GetCacheValue", key)
		return "", false, err
	}
	return value, true, nil
}

func (c SQLCache) Set(ctx context.Context, key db.CacheKey, value string) error {
	_, exists, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}
	err = c.db.SetCacheValue(ctx, db.SetCacheValueParams{Key: key, Value: value})
	if err != nil {
		c.tel.ReportBroken(report_db_query, err, "SetCacheValue", key)
		return err
	}
	return nil
}

func (c SQLCache) Upsert(ctx context.Context, key db.CacheKey, value string) error {
	err := c.db.UpsertCacheValue(ctx, db.UpsertCacheValueParams{Key: key, Value: value})
	if err != nil {
		c.tel.ReportBroken(report_db_query, err, "UpsertCacheValue", key)
		return err
	}
	return nil
}

func (c SQLCache) Delete(ctx context.Context, key db.CacheKey) error {
	err := c.db.DeleteCacheValue(ctx, key)
	if err != nil {
		c.tel.ReportBroken(report_db_query, err, "DeleteCacheValue", key)
		return err
	}
	return nil
}
