// Package cached keeps a local copy of downloaded attachments in front of a
// remote AttachmentFileStore. Attachments are immutable once uploaded, so a
// URI always maps to the same bytes.
package cached

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbaliyan/conversation/store"
	"golang.org/x/crypto/blake2b"
)

// Store wraps an AttachmentFileStore with an on-disk read cache.
type Store struct {
	backend store.AttachmentFileStore
	dir     string
	maxSize int64
	ttl     time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	used int64

	stop chan struct{}
	done chan struct{}
}

var _ store.AttachmentFileStore = (*Store)(nil)

// New wraps backend. Call Close to stop the background sweep.
func New(backend store.AttachmentFileStore, opts ...Option) (*Store, error) {
	o := newOptions(opts...)

	dir := filepath.Join(o.dir, "conversation-attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cached: create dir: %w", err)
	}

	s := &Store{
		backend: backend,
		dir:     dir,
		maxSize: o.maxSize,
		ttl:     o.ttl,
		logger:  o.logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.used = s.diskUsage()

	if s.ttl > 0 {
		go s.sweepLoop()
	} else {
		close(s.done)
	}
	return s, nil
}

// Upload passes through to the backend. Files are cached on first Load.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	return s.backend.Upload(ctx, filename, contentType, content)
}

// Load serves uri from disk when a fresh copy exists, otherwise streams it
// from the backend and keeps a copy once the caller has read it fully.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	path := s.path(uri)

	if info, err := os.Stat(path); err == nil {
		if s.ttl == 0 || time.Since(info.ModTime()) < s.ttl {
			if f, err := os.Open(path); err == nil {
				now := time.Now()
				_ = os.Chtimes(path, now, now)
				s.logger.Debug("attachment cache hit", "uri", uri)
				return f, nil
			}
		}
		s.evict(path, info.Size())
	}

	rc, err := s.backend.Load(ctx, uri)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, "partial-*")
	if err != nil {
		s.logger.Warn("attachment cache unavailable", "error", err)
		return rc, nil
	}
	return &teeReader{src: rc, tmp: tmp, path: path, s: s}, nil
}

// Delete removes uri from the cache and the backend.
func (s *Store) Delete(ctx context.Context, uri string) error {
	path := s.path(uri)
	if info, err := os.Stat(path); err == nil {
		s.evict(path, info.Size())
	}
	return s.backend.Delete(ctx, uri)
}

// Purge empties the cache directory.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("cached: read dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			_ = os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	s.used = 0
	return nil
}

// Used returns the bytes currently cached.
func (s *Store) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Close stops the background sweep.
func (s *Store) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return nil
}

func (s *Store) path(uri string) string {
	sum := blake2b.Sum256([]byte(uri))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:]))
}

func (s *Store) evict(path string, size int64) {
	if err := os.Remove(path); err != nil {
		return
	}
	s.mu.Lock()
	s.used = max(s.used-size, 0)
	s.mu.Unlock()
}

// reserve claims size bytes of cache space.
func (s *Store) reserve(size int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used+size > s.maxSize {
		return false
	}
	s.used += size
	return true
}

func (s *Store) diskUsage() int64 {
	var n int64
	_ = filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			n += info.Size()
		}
		return nil
	})
	return n
}

func (s *Store) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep removes files not touched within ttl of now.
func (s *Store) sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("attachment cache sweep failed", "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= s.ttl {
			continue
		}
		s.evict(filepath.Join(s.dir, e.Name()), info.Size())
		removed++
	}
	if removed > 0 {
		s.logger.Debug("attachment cache swept", "removed", removed)
	}
	return removed
}

// teeReader copies what the caller reads into a temp file and promotes it
// into the cache on Close if the source was read to EOF.
type teeReader struct {
	src  io.ReadCloser
	tmp  *os.File
	path string
	s    *Store

	n      int64
	eof    bool
	failed bool
	closed bool
}

func (r *teeReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 && !r.failed {
		if _, werr := r.tmp.Write(p[:n]); werr != nil {
			r.failed = true
		}
		r.n += int64(n)
	}
	if err == io.EOF {
		r.eof = true
	}
	return n, err
}

func (r *teeReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.src.Close()
	tmp := r.tmp.Name()
	if cerr := r.tmp.Close(); cerr != nil {
		r.failed = true
	}

	if r.failed || !r.eof || !r.s.reserve(r.n) {
		_ = os.Remove(tmp)
		return err
	}
	if rerr := os.Rename(tmp, r.path); rerr != nil {
		_ = os.Remove(tmp)
		r.s.mu.Lock()
		r.s.used -= r.n
		r.s.mu.Unlock()
	}
	return err
}
