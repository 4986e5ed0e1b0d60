package commands

import (
	"context"
	"database/sql"
	"errors"

	"replaces-backend/internal/components/chrono"
	"replaces-backend/internal/components/serviceutil"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
	"replaces-backend/internal/history"
	"replaces-backend/internal/pipeline"
	"replaces-backend/internal/scrapers/spbkit"

	"github.com/redis/go-redis/v9"
)

type app struct {
	config Config
	db     *sql.DB
	redis  *redis.Client
	otel   telemetry.Telemetry
	tel    telemetry.API
	store  history.Store
	cache  history.CacheAPI
	driver pipeline.Driver
}

func newCache(config CacheConfig, database *sql.DB, tel telemetry.API) (history.CacheAPI, *redis.Client) {
	if config.Backend == CacheRedis {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		return history.NewRedisCache(client, config.RedisPrefix, tel), client
	}
	return history.NewSQLCache(database, tel), nil
}

// openApp wires every component from the configuration, it exits the
// process if anything fails.
func openApp(ctx context.Context, options pipeline.Options) *app {
	config, err := LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	otel, err := telemetry.Setup(ctx, "replaces", config.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	database, err := db.OpenDB(config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	tel := telemetry.SlogAPI{}
	cache, redisClient := newCache(config.Cache, database, tel)
	store := history.NewStore(database, chrono.NewStandardTime(), tel)

	client, err := spbkit.NewClient(config.Site, tel)
	if err != nil {
		serviceutil.Fatal("failed to create site client", err)
	}

	return &app{
		config: config,
		db:     database,
		redis:  redisClient,
		otel:   otel,
		tel:    tel,
		store:  store,
		cache:  cache,
		driver: pipeline.NewDriver(client, store, cache, options, tel),
	}
}

func (a *app) Close() error {
	var errlist []error
	if a.redis != nil {
		errlist = append(errlist, a.redis.Close())
	}
	errlist = append(errlist, a.db.Close())
	errlist = append(errlist, a.otel.Shutdown(context.Background()))
	return errors.Join(errlist...)
}
