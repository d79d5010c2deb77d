package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
	"github.com/rbaliyan/conversation/store/attachment/cached"
	"github.com/rbaliyan/conversation/store/attachment/gcs"
	attachotel "github.com/rbaliyan/conversation/store/attachment/otel"
	"github.com/rbaliyan/conversation/store/attachment/s3"
	"github.com/rbaliyan/conversation/store/memory"
	"github.com/rbaliyan/conversation/store/mongo"
	"github.com/rbaliyan/conversation/store/postgres"
)

func newLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// closers runs cleanup functions in reverse order of registration.
type closers []func(context.Context) error

func (c *closers) add(fn func(context.Context) error) {
	*c = append(*c, fn)
}

func (c closers) close(ctx context.Context, logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](ctx); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}
}

// openStore builds the message store. The mailbox service connects and
// closes it; connections the store does not own are registered in cl.
func openStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger, cl *closers) (store.Store, error) {
	switch cfg.Type {
	case "postgres":
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		cl.add(func(context.Context) error { return db.Close() })
		return postgres.New(db, postgres.WithLogger(logger)), nil
	case "mongo":
		client, err := mongodrv.Connect(mongoopts.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		cl.add(client.Disconnect)
		return mongo.New(client, mongo.WithDatabase(cfg.Mongo.Database), mongo.WithLogger(logger)), nil
	default:
		return memory.New(), nil
	}
}

// openFiles builds the attachment store: the configured backend, an
// optional disk cache in front of it, and telemetry around both.
func openFiles(ctx context.Context, cfg FilesConfig, tel TelemetryConfig, logger *slog.Logger, cl *closers) (store.AttachmentFileStore, error) {
	var files store.AttachmentFileStore
	switch cfg.Type {
	case "s3":
		opts := []s3.Option{
			s3.WithBucket(cfg.S3.Bucket),
			s3.WithPrefix(cfg.S3.Prefix),
			s3.WithLogger(logger),
		}
		if cfg.S3.Region != "" {
			opts = append(opts, s3.WithRegion(cfg.S3.Region))
		}
		if cfg.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.S3.Endpoint, cfg.S3.PathStyle))
		}
		if cfg.S3.AccessKey != "" {
			opts = append(opts, s3.WithStaticCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey, ""))
		}
		if cfg.S3.RoleARN != "" {
			opts = append(opts, s3.WithAssumeRole(cfg.S3.RoleARN, cfg.S3.ExternalID))
		}
		s, err := s3.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		files = s
	case "gcs":
		opts := []gcs.Option{
			gcs.WithBucket(cfg.GCS.Bucket),
			gcs.WithPrefix(cfg.GCS.Prefix),
			gcs.WithLogger(logger),
		}
		if cfg.GCS.Endpoint != "" {
			opts = append(opts, gcs.WithEndpoint(cfg.GCS.Endpoint))
		}
		if cfg.GCS.CredentialsFile != "" {
			opts = append(opts, gcs.WithCredentialsFile(cfg.GCS.CredentialsFile))
		}
		s, err := gcs.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		cl.add(func(context.Context) error { return s.Close() })
		files = s
	default:
		files = memory.NewFileStore()
	}

	if cfg.Cache.Dir != "" {
		c, err := cached.New(files,
			cached.WithDir(cfg.Cache.Dir),
			cached.WithMaxSize(cfg.Cache.MaxSize),
			cached.WithTTL(cfg.Cache.TTL),
			cached.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		cl.add(func(context.Context) error { return c.Close() })
		files = c
	}

	if tel.Tracing || tel.Metrics {
		o, err := attachotel.New(files, attachotel.WithTracing(tel.Tracing), attachotel.WithMetrics(tel.Metrics))
		if err != nil {
			return nil, err
		}
		files = o
	}
	return files, nil
}

// openRedis returns nil when no address is configured.
func openRedis(ctx context.Context, cfg RedisConfig, cl *closers) (redis.UniversalClient, error) {
	if len(cfg.Addrs) == 0 {
		return nil, nil
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	cl.add(func(context.Context) error { return rdb.Close() })
	return rdb, nil
}

func newDirectory(cfg DirectoryConfig) *directory.Static {
	users := make([]directory.User, len(cfg.Users))
	for i, u := range cfg.Users {
		users[i] = directory.User{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			Name:        u.Name,
			Profile:     u.Profile,
			Active:      u.Active,
		}
	}
	groups := make([]directory.Group, len(cfg.Groups))
	for i, g := range cfg.Groups {
		groups[i] = directory.Group{ID: g.ID, Name: g.Name, Members: g.Members}
	}
	return directory.NewStatic(users, groups)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
