package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rbaliyan/conversation/retry"
)

// DefaultTimeout bounds requests made with the default HTTP client.
const DefaultTimeout = 60 * time.Second

type options struct {
	httpClient *http.Client
	token      func() string
	retry      *retry.Config
	logger     *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		token:      func() string { return "" },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client. Uploads stream through it, so its
// timeout should allow for large files.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithToken authenticates every request with a fixed bearer token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = func() string { return token }
	}
}

// WithTokenSource authenticates every request with the token returned by
// fn at request time.
func WithTokenSource(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.token = fn
		}
	}
}

// WithRetry retries idempotent requests that fail with a transport error,
// a 429 or a 5xx, waiting as long as the server asks through Retry-After.
// Requests are not retried by default.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.retry = &cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
