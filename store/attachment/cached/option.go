package cached

import (
	"log/slog"
	"os"
	"time"
)

type options struct {
	dir     string
	maxSize int64
	ttl     time.Duration
	logger  *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		dir:     os.TempDir(),
		maxSize: 512 << 20,
		ttl:     12 * time.Hour,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the cached store.
type Option func(*options)

// WithDir sets the parent directory of the cache. Default is os.TempDir().
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithMaxSize bounds the bytes kept on disk. Default is 512MB.
// Loads that would overflow the cache are served without being cached.
func WithMaxSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.maxSize = size
		}
	}
}

// WithTTL sets how long an unread cached file is kept. Default is 12h.
// Zero disables the background sweep.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
