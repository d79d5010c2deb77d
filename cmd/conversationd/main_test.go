package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

const sample = `
listen: ":9090"
auth:
  secret: s3cret
log:
  level: debug
  format: json
mailbox:
  page_size: 20
  trash_retention: 72h
store:
  type: memory
files:
  type: memory
directory:
  users:
    - id: ada
      display_name: Ada Lovelace
      profile: Teacher
      active: true
    - id: bob
      display_name: Bob Martin
  groups:
    - id: g1
      name: Teachers
      members: [ada, bob]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversation.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, sample))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Listen != ":9090" || cfg.Auth.Secret != "s3cret" {
			t.Errorf("listen = %q secret = %q", cfg.Listen, cfg.Auth.Secret)
		}
		if cfg.Mailbox.PageSize != 20 || cfg.Mailbox.TrashRetention != 72*time.Hour {
			t.Errorf("mailbox = %+v", cfg.Mailbox)
		}
		if cfg.HTTP.RateBurst != 40 || cfg.Mailbox.CleanupEvery != time.Hour || cfg.Files.Cache.TTL != 12*time.Hour {
			t.Errorf("defaults not applied: http = %+v mailbox = %+v", cfg.HTTP, cfg.Mailbox)
		}
		if len(cfg.Directory.Users) != 2 || !cfg.Directory.Users[0].Active || cfg.Directory.Groups[0].Members[1] != "bob" {
			t.Errorf("directory = %+v", cfg.Directory)
		}
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("CONVERSATION_LISTEN", ":7070")
		t.Setenv("CONVERSATION_AUTH_SECRET", "from-env")
		cfg, err := LoadConfig(writeConfig(t, sample))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Listen != ":7070" || cfg.Auth.Secret != "from-env" {
			t.Errorf("listen = %q secret = %q", cfg.Listen, cfg.Auth.Secret)
		}
	})

	t.Run("environment only", func(t *testing.T) {
		t.Setenv("CONVERSATION_AUTH_SECRET", "only-env")
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Auth.Secret != "only-env" || cfg.Store.Type != "memory" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	invalid := map[string]string{
		"missing secret":  "store:\n  type: memory\n",
		"unknown store":   "auth:\n  secret: x\nstore:\n  type: sqlite\n",
		"postgres no dsn": "auth:\n  secret: x\nstore:\n  type: postgres\n",
		"mongo no uri":    "auth:\n  secret: x\nstore:\n  type: mongo\n",
		"unknown files":   "auth:\n  secret: x\nfiles:\n  type: ftp\n",
		"events no redis": "auth:\n  secret: x\nredis:\n  events: true\n",
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("log output = %q", out)
	}

	buf.Reset()
	newLogger(LogConfig{Level: "nonsense"}, &buf).Debug("dropped")
	if buf.Len() != 0 {
		t.Errorf("unknown level should default to info, got %q", buf.String())
	}
}

func TestNewService(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	mr := miniredis.RunT(t)
	cfg.Redis.Addrs = []string{mr.Addr()}

	ctx := context.Background()
	var cl closers
	defer cl.close(ctx, slog.New(slog.DiscardHandler))

	svc, err := newService(ctx, cfg, slog.New(slog.DiscardHandler), &cl)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	cl.add(svc.Close)

	if svc.PageSize() != 20 {
		t.Errorf("page size = %d", svc.PageSize())
	}
	users, groups, err := svc.Mailbox("ada").Visible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != "bob" || len(groups) != 1 {
		t.Errorf("visible = %+v %+v", users, groups)
	}
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	var cl closers

	rdb, err := openRedis(ctx, RedisConfig{}, &cl)
	if err != nil || rdb != nil {
		t.Errorf("no addrs: rdb = %v err = %v", rdb, err)
	}

	mr := miniredis.RunT(t)
	rdb, err = openRedis(ctx, RedisConfig{Addrs: []string{mr.Addr()}}, &cl)
	if err != nil || rdb == nil {
		t.Fatalf("rdb = %v err = %v", rdb, err)
	}
	if len(cl) != 1 {
		t.Errorf("closers = %d, want 1", len(cl))
	}
	cl.close(ctx, slog.New(slog.DiscardHandler))
}

func TestCleanupLoopStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupLoop(ctx, nil, time.Hour, slog.New(slog.DiscardHandler))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
