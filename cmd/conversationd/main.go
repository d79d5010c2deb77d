// Command conversationd serves the conversation API.
//
//	conversationd -config conversation.yaml
//	conversationd -config conversation.yaml -token ada -ttl 24h
//
// With -token it prints a bearer token for the given user and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/rbaliyan/conversation/mailbox"
	"github.com/rbaliyan/conversation/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	tokenFor := flag.String("token", "", "print a token for this user id and exit")
	tokenTTL := flag.Duration("ttl", 24*time.Hour, "lifetime of the token printed with -token")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		exitf("%v", err)
	}

	if *tokenFor != "" {
		token, err := server.NewToken([]byte(cfg.Auth.Secret), *tokenFor, *tokenTTL)
		if err != nil {
			exitf("%v", err)
		}
		fmt.Println(token)
		return
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("conversationd failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	var cl closers
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		cl.close(cctx, logger)
	}()

	svc, err := newService(ctx, cfg, logger, &cl)
	if err != nil {
		return err
	}
	if err := svc.Connect(ctx); err != nil {
		return err
	}
	cl.add(svc.Close)

	srv, err := server.New(svc,
		server.WithSecret([]byte(cfg.Auth.Secret)),
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.HTTP.AllowedOrigins...),
		server.WithRateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
		server.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		server.WithMaxUploadSize(cfg.HTTP.MaxUploadSize),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go cleanupLoop(ctx, svc, cfg.Mailbox.CleanupEvery, logger)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "store", cfg.Store.Type, "files", cfg.Files.Type)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	return nil
}

func newService(ctx context.Context, cfg *Config, logger *slog.Logger, cl *closers) (*mailbox.Service, error) {
	st, err := openStore(ctx, cfg.Store, logger, cl)
	if err != nil {
		return nil, err
	}
	files, err := openFiles(ctx, cfg.Files, cfg.Telemetry, logger, cl)
	if err != nil {
		return nil, err
	}
	rdb, err := openRedis(ctx, cfg.Redis, cl)
	if err != nil {
		return nil, err
	}

	opts := []mailbox.Option{
		mailbox.WithStore(st),
		mailbox.WithFileStore(files),
		mailbox.WithDirectory(newDirectory(cfg.Directory)),
		mailbox.WithLogger(logger),
		mailbox.WithPageSize(cfg.Mailbox.PageSize),
		mailbox.WithMaxFolderDepth(cfg.Mailbox.MaxFolderDepth),
		mailbox.WithQuota(cfg.Mailbox.Quota),
		mailbox.WithTrashRetention(cfg.Mailbox.TrashRetention),
		mailbox.WithExportDomain(cfg.Mailbox.ExportDomain),
		mailbox.WithTracing(cfg.Telemetry.Tracing),
		mailbox.WithMetrics(cfg.Telemetry.Metrics),
	}
	if rdb != nil {
		opts = append(opts, mailbox.WithUnreadCache(rdb, cfg.Redis.UnreadTTL))
		if cfg.Redis.Events {
			opts = append(opts, mailbox.WithRedisClient(rdb))
		}
	}
	return mailbox.NewService(opts...)
}

// cleanupLoop empties expired trash every interval until ctx is done.
func cleanupLoop(ctx context.Context, svc *mailbox.Service, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.CleanupTrash(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("trash cleanup failed", "error", err)
			}
		}
	}
}
