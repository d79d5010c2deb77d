package cached

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rbaliyan/conversation/store"
	"github.com/rbaliyan/conversation/store/memory"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.FileStore) {
	t.Helper()
	backend := memory.NewFileStore()
	s, err := New(backend, append([]Option{WithDir(t.TempDir())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, backend
}

func readAll(t *testing.T, s *Store, uri string) string {
	t.Helper()
	rc, err := s.Load(context.Background(), uri)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return string(data)
}

func TestLoadCachesAfterFullRead(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	uri, err := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if got := readAll(t, s, uri); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if s.Used() != 5 {
		t.Fatalf("expected 5 cached bytes, got %d", s.Used())
	}

	// Served from disk once the backend copy is gone.
	if err := backend.Delete(ctx, uri); err != nil {
		t.Fatalf("backend delete: %v", err)
	}
	if got := readAll(t, s, uri); got != "hello" {
		t.Fatalf("cached read got %q", got)
	}
}

func TestPartialReadIsNotCached(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	uri, _ := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("hello world"))

	rc, err := s.Load(ctx, uri)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := io.ReadFull(rc, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = rc.Close()

	if s.Used() != 0 {
		t.Fatalf("partial read should not be cached, used=%d", s.Used())
	}
}

func TestMaxSize(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithMaxSize(4))

	uri, _ := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("too large"))
	if got := readAll(t, s, uri); got != "too large" {
		t.Fatalf("got %q", got)
	}
	if s.Used() != 0 {
		t.Fatalf("oversized file should not be cached, used=%d", s.Used())
	}
}

func TestDeleteEvicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	uri, _ := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("hello"))
	readAll(t, s, uri)

	if err := s.Delete(ctx, uri); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Used() != 0 {
		t.Fatalf("expected empty cache, used=%d", s.Used())
	}
	if _, err := s.Load(ctx, uri); !store.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithTTL(time.Hour))

	uri, _ := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("hello"))
	readAll(t, s, uri)

	if n := s.sweep(time.Now()); n != 0 {
		t.Fatalf("fresh entry swept: %d", n)
	}
	if n := s.sweep(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	if s.Used() != 0 {
		t.Fatalf("expected empty cache, used=%d", s.Used())
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	uri, _ := s.Upload(ctx, "a.txt", "text/plain", strings.NewReader("hello"))
	readAll(t, s, uri)

	if err := s.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if s.Used() != 0 {
		t.Fatalf("expected empty cache, used=%d", s.Used())
	}
}
