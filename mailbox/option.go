package mailbox

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/conversation/content"
	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Default configuration values.
const (
	DefaultPageSize        = 20
	DefaultMaxFolderDepth  = 3
	DefaultQuota           = 100 * 1024 * 1024 // per user, in bytes
	DefaultTrashRetention  = 30 * 24 * time.Hour
	MinTrashRetention      = 24 * time.Hour
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMaxSubjectLength   = 998
	DefaultMaxBodySize        = 2 * 1024 * 1024
	DefaultMaxAttachmentSize  = 25 * 1024 * 1024
	DefaultMaxAttachmentCount = 20
	DefaultMaxRecipientCount  = 500
	DefaultMaxFolderNameLen   = 255

	DefaultMaxConcurrentSends = 10
	DefaultDeliveryWorkers    = 8
	DefaultUnreadCacheTTL     = 5 * time.Minute
)

type options struct {
	store     store.Store
	files     store.AttachmentFileStore
	directory directory.Directory
	sanitizer *content.Sanitizer
	logger    *slog.Logger

	pageSize       int
	maxFolderDepth int
	quota          int64
	trashRetention time.Duration

	maxSubjectLength   int
	maxBodySize        int
	maxAttachmentSize  int64
	maxAttachmentCount int
	maxRecipientCount  int

	maxConcurrentSends int
	deliveryWorkers    int
	shutdownTimeout    time.Duration

	exportDomain string

	tracingEnabled bool
	metricsEnabled bool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	eventTransport   transport.Transport
	redisClient      redis.UniversalClient
	eventErrorsFatal bool

	unreadCache    redis.UniversalClient
	unreadCacheTTL time.Duration
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		pageSize:           DefaultPageSize,
		maxFolderDepth:     DefaultMaxFolderDepth,
		quota:              DefaultQuota,
		trashRetention:     DefaultTrashRetention,
		maxSubjectLength:   DefaultMaxSubjectLength,
		maxBodySize:        DefaultMaxBodySize,
		maxAttachmentSize:  DefaultMaxAttachmentSize,
		maxAttachmentCount: DefaultMaxAttachmentCount,
		maxRecipientCount:  DefaultMaxRecipientCount,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		deliveryWorkers:    DefaultDeliveryWorkers,
		shutdownTimeout:    DefaultShutdownTimeout,
		exportDomain:       "conversation.local",
		unreadCacheTTL:     DefaultUnreadCacheTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sanitizer == nil {
		o.sanitizer = content.NewSanitizer()
	}
	return o
}

// Option configures the service.
type Option func(*options)

// WithStore sets the message and folder store (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithFileStore sets where attachment bytes are kept. Without it,
// attachment operations return ErrAttachmentStoreNotConfigured.
func WithFileStore(f store.AttachmentFileStore) Option {
	return func(o *options) {
		if f != nil {
			o.files = f
		}
	}
}

// WithDirectory sets the user and group directory (required).
func WithDirectory(d directory.Directory) Option {
	return func(o *options) {
		if d != nil {
			o.directory = d
		}
	}
}

// WithSanitizer replaces the HTML sanitizer applied to message bodies.
func WithSanitizer(s *content.Sanitizer) Option {
	return func(o *options) {
		if s != nil {
			o.sanitizer = s
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

// WithPageSize sets how many messages a listing page holds. Default is 20.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithMaxFolderDepth sets how deep user folders may nest. Default is 3.
func WithMaxFolderDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFolderDepth = n
		}
	}
}

// WithQuota sets the attachment storage allowed per user, in bytes.
// Default is 100 MB.
func WithQuota(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.quota = bytes
		}
	}
}

// WithTrashRetention sets how long messages stay in trash before
// CleanupTrash removes them. Default is 30 days, minimum 1 day.
func WithTrashRetention(d time.Duration) Option {
	return func(o *options) {
		if d >= MinTrashRetention {
			o.trashRetention = d
		}
	}
}

// WithMaxSubjectLength sets the maximum subject length in bytes.
func WithMaxSubjectLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSubjectLength = n
		}
	}
}

// WithMaxBodySize sets the maximum body size in bytes.
func WithMaxBodySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// WithMaxAttachmentSize sets the maximum size of one attachment in bytes.
func WithMaxAttachmentSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttachmentSize = n
		}
	}
}

// WithMaxAttachmentCount sets how many attachments a message may carry.
func WithMaxAttachmentCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttachmentCount = n
		}
	}
}

// WithMaxRecipients sets the maximum number of to and cc entries.
func WithMaxRecipients(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRecipientCount = n
		}
	}
}

// WithMaxConcurrentSends bounds how many sends run at once. Default is 10.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithDeliveryWorkers bounds how many recipient copies one send writes in
// parallel. Default is 8.
func WithDeliveryWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.deliveryWorkers = n
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight sends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithExportDomain sets the domain used to build addresses when exporting
// messages. Default is "conversation.local".
func WithExportDomain(domain string) Option {
	return func(o *options) {
		if domain != "" {
			o.exportDomain = domain
		}
	}
}

// WithTracing enables OpenTelemetry spans. Default is disabled.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics. Default is disabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithEventTransport sets the transport events are published on.
// It takes precedence over WithRedisClient.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithRedisClient publishes events through Redis streams.
func WithRedisClient(c redis.UniversalClient) Option {
	return func(o *options) {
		if c != nil {
			o.redisClient = c
		}
	}
}

// WithEventErrorsFatal makes operations fail when their event cannot be
// published. By default failures are only logged.
func WithEventErrorsFatal(fatal bool) Option {
	return func(o *options) {
		o.eventErrorsFatal = fatal
	}
}

// WithUnreadCache caches unread inbox counts in Redis for ttl.
// Zero ttl keeps DefaultUnreadCacheTTL.
func WithUnreadCache(c redis.UniversalClient, ttl time.Duration) Option {
	return func(o *options) {
		if c != nil {
			o.unreadCache = c
		}
		if ttl > 0 {
			o.unreadCacheTTL = ttl
		}
	}
}
