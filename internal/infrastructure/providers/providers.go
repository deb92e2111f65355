package providers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"

	"github.com/totegamma/questlog/internal/config"
	"github.com/totegamma/questlog/internal/infrastructure/database"
	"github.com/totegamma/questlog/kvstore"
)

// NewDatabase opens Postgres when a DSN is configured and the embedded
// SQLite store otherwise, then migrates the schema.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	if conf.PostgresDsn != "" {
		db, err = database.NewPostgres(conf.PostgresDsn)
	} else {
		path := conf.SqlitePath
		if path == "" {
			path = "questlog.db"
		}
		db, err = database.NewSQLite(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := database.Migrate(db); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}

// NewRedis returns nil when no address is configured.
func NewRedis(conf config.Server) *redis.Client {
	if conf.RedisAddr == "" {
		return nil
	}
	return database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
}

// NewLayoutStore builds the key-value store the layout client persists into.
func NewLayoutStore(conf config.Layout) (kvstore.Store, error) {
	switch conf.Store {
	case "redis":
		if conf.StoreAddr == "" {
			return nil, errors.New("layout.storeAddr is required for redis")
		}
		return kvstore.NewRedis(database.NewRedis(conf.StoreAddr, "", 0)), nil
	case "memcache":
		if conf.StoreAddr == "" {
			return nil, errors.New("layout.storeAddr is required for memcache")
		}
		return kvstore.NewMemcache(database.NewMemcached(conf.StoreAddr)), nil
	default:
		return kvstore.NewMemory(conf.StorePath)
	}
}

// SetupTracing registers an OTLP exporter when tracing is enabled and
// returns the shutdown func to defer.
func SetupTracing(ctx context.Context, conf config.Server, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !conf.EnableTrace {
		return noop, nil
	}

	opts := []otlptracehttp.Option{}
	if conf.TraceEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(conf.TraceEndpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, errors.Wrap(err, "trace exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
