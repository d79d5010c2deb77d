package conversation

import "errors"

// Sentinel errors.
var (
	ErrBackendRequired = errors.New("conversation: backend is required")
	ErrMeRequired      = errors.New("conversation: current user id is required")
	ErrNoCurrentMail   = errors.New("conversation: no mail open")
	ErrNoDraft         = errors.New("conversation: no mail being composed")
	ErrUnknownFolder   = errors.New("conversation: unknown folder")
	ErrMaxDepth        = errors.New("conversation: folder depth limit reached")
	ErrFolderCycle     = errors.New("conversation: folder cannot be moved into itself")
	ErrInvalidPayload  = errors.New("conversation: invalid drag payload")
	ErrNoSelection     = errors.New("conversation: nothing selected")
)
