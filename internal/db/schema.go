package db

import _ "embed"

//go:embed schema.sql
var Schema string

// CacheKey is a key of the cache table.
type CacheKey string

const (
	CACHE_REPLACES_URL CacheKey = "replaces_url"
)
