package gcs

import (
	"log/slog"
)

// options holds GCS store configuration.
type options struct {
	bucket   string
	prefix   string
	endpoint string

	// Credential sources, checked in this order. None means Application
	// Default Credentials (GOOGLE_APPLICATION_CREDENTIALS, Workload Identity,
	// metadata server).
	credentialsJSON []byte
	credentialsFile string
	apiKey          string

	logger *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		prefix: "conversation/attachments",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the GCS store.
type Option func(*options)

// WithBucket sets the bucket name (required).
func WithBucket(bucket string) Option {
	return func(o *options) {
		o.bucket = bucket
	}
}

// WithPrefix sets the object name prefix. Default is "conversation/attachments".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithEndpoint points the client at an emulator.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithCredentialsJSON uses a service account key held in memory.
func WithCredentialsJSON(json []byte) Option {
	return func(o *options) {
		o.credentialsJSON = json
	}
}

// WithCredentialsFile uses a service account key file.
func WithCredentialsFile(path string) Option {
	return func(o *options) {
		o.credentialsFile = path
	}
}

// WithAPIKey authenticates with an API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
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
