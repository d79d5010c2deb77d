package mailbox

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/conversation/store"
)

// Sentinel errors. Those wrapping store errors match both levels with
// errors.Is.
var (
	ErrNotFound         = fmt.Errorf("mailbox: %w", store.ErrNotFound)
	ErrInvalidID        = fmt.Errorf("mailbox: %w", store.ErrInvalidID)
	ErrNotConnected     = fmt.Errorf("mailbox: %w", store.ErrNotConnected)
	ErrAlreadyConnected = fmt.Errorf("mailbox: %w", store.ErrAlreadyConnected)

	ErrStoreRequired     = errors.New("mailbox: store is required")
	ErrDirectoryRequired = errors.New("mailbox: directory is required")
	ErrInvalidUserID     = errors.New("mailbox: invalid user id")

	// ErrInvalidMessage is matched by every *ValidationError.
	ErrInvalidMessage    = errors.New("mailbox: invalid message")
	ErrEmptyRecipients   = errors.New("mailbox: no recipients")
	ErrUnknownFolder     = errors.New("mailbox: unknown folder")
	ErrNotDraft          = errors.New("mailbox: message is not a draft")
	ErrNotInTrash        = errors.New("mailbox: message not in trash")
	ErrFolderTrashed     = errors.New("mailbox: folder is in trash")
	ErrMaxDepthExceeded  = errors.New("mailbox: folder depth limit reached")
	ErrInvalidFolderName = errors.New("mailbox: invalid folder name")

	ErrAttachmentStoreNotConfigured = errors.New("mailbox: attachment store not configured")
	ErrAttachmentNotFound           = fmt.Errorf("mailbox: attachment %w", store.ErrNotFound)
	ErrAttachmentTooLarge           = errors.New("mailbox: attachment too large")
	ErrTooManyAttachments           = errors.New("mailbox: too many attachments")
	ErrQuotaExceeded                = errors.New("mailbox: quota exceeded")
)

// ValidationError reports which field of a message was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mailbox: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMessage
}

// EventPublishError is returned, when event errors are fatal, by an
// operation that succeeded but whose event could not be published.
type EventPublishError struct {
	Event     string
	MessageID string
	Err       error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("mailbox: publish %s for message %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err was caused by the request rather than
// the service, so HTTP layers can answer 4xx.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidMessage, ErrEmptyRecipients, ErrUnknownFolder, ErrNotDraft,
		ErrNotInTrash, ErrFolderTrashed, ErrMaxDepthExceeded, ErrInvalidFolderName,
		ErrAttachmentTooLarge, ErrTooManyAttachments, ErrQuotaExceeded,
		ErrInvalidID, ErrInvalidUserID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
