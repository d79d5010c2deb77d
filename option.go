package conversation

import (
	"log/slog"

	"golang.org/x/text/language"
)

// Default configuration values.
const (
	// DefaultMaxFolderDepth is used until the server reports its own limit.
	DefaultMaxFolderDepth = 3

	// DefaultUploadWorkers bounds parallel attachment uploads.
	DefaultUploadWorkers = 4
)

type options struct {
	me            string
	logger        *slog.Logger
	notifier      Notifier
	translator    Translator
	uploadWorkers int
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:        slog.Default(),
		uploadWorkers: DefaultUploadWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.translator == nil {
		o.translator = NewCatalog(language.French)
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	return o
}

// Option configures a Conversation.
type Option func(*options)

// WithMe sets the id of the signed-in user. Required.
func WithMe(id string) Option {
	return func(o *options) {
		o.me = id
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

// WithNotifier sets where user-facing messages go.
// Defaults to a LogNotifier on the configured logger.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithTranslator sets the translator of user-facing strings.
// Defaults to the French catalog.
func WithTranslator(t Translator) Option {
	return func(o *options) {
		if t != nil {
			o.translator = t
		}
	}
}

// WithUploadWorkers bounds how many attachments upload at once.
func WithUploadWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.uploadWorkers = n
		}
	}
}
