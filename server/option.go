package server

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultRateLimit      = rate.Limit(20)
	DefaultRateBurst      = 40
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxUploadSize  = 32 * 1024 * 1024
	DefaultLimiterIdle    = 10 * time.Minute
)

type options struct {
	secret         []byte
	logger         *slog.Logger
	allowedOrigins []string
	rateLimit      rate.Limit
	rateBurst      int
	limiterIdle    time.Duration
	requestTimeout time.Duration
	maxUploadSize  int64
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:         slog.Default(),
		rateLimit:      DefaultRateLimit,
		rateBurst:      DefaultRateBurst,
		limiterIdle:    DefaultLimiterIdle,
		requestTimeout: DefaultRequestTimeout,
		maxUploadSize:  DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the server.
type Option func(*options)

// WithSecret sets the HMAC key bearer tokens are signed with (required).
func WithSecret(secret []byte) Option {
	return func(o *options) {
		if len(secret) > 0 {
			o.secret = secret
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) {
		o.allowedOrigins = append(o.allowedOrigins, origins...)
	}
}

// WithRateLimit sets the per-user request rate and burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		if r > 0 && burst > 0 {
			o.rateLimit = r
			o.rateBurst = burst
		}
	}
}

// WithRequestTimeout bounds the time spent on a request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithMaxUploadSize bounds the size of attachment upload bodies.
func WithMaxUploadSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadSize = n
		}
	}
}
