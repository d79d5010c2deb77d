// Package store provides interfaces and types for conversation storage.
// Implementations are in store/memory, store/postgres and store/mongo.
//
// Every user owns an independent copy of each message they sent, received or
// drafted. Copies never share mutable state: trashing, reading or moving a
// copy only affects its owner. Attachment blobs are shared between copies and
// released once no copy references them (see AttachmentRefs).
//
// All operations must be safe for concurrent use and rely on database-level
// atomicity rather than external locks.
package store

import (
	"context"
	"time"
)

// Store is the storage interface for the conversation service.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	MessageStore
	FolderStore
}

// MessageStore persists message copies.
type MessageStore interface {
	// CreateMessage inserts a new copy. An empty ID is assigned by the store.
	CreateMessage(ctx context.Context, m *Message) (*Message, error)

	// GetMessage returns the copy with the given ID or ErrNotFound.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// UpdateMessage replaces the stored copy with m (matched by ID).
	UpdateMessage(ctx context.Context, m *Message) error

	// DeleteMessages permanently removes copies and reports how many existed.
	DeleteMessages(ctx context.Context, ids []string) (int64, error)

	// ListMessages returns one page of copies, newest first.
	ListMessages(ctx context.Context, q Query) ([]*Message, error)

	// CountMessages counts copies matching q, ignoring Offset and Limit.
	CountMessages(ctx context.Context, q Query) (int64, error)

	// FindMessages returns the copies among ids owned by ownerID.
	// Unknown or foreign ids are silently skipped; callers compare lengths.
	FindMessages(ctx context.Context, ownerID string, ids []string) ([]*Message, error)

	// FolderMessages returns every copy owned by ownerID filed in one of
	// the given user folders, trashed or not.
	FolderMessages(ctx context.Context, ownerID string, folderIDs []string) ([]*Message, error)

	// UpdateFlags applies u to the copies among ids owned by ownerID.
	UpdateFlags(ctx context.Context, ownerID string, ids []string, u FlagUpdate) (int64, error)

	// AttachmentRefs counts copies referencing the attachment.
	AttachmentRefs(ctx context.Context, attachmentID string) (int64, error)

	// StorageUsed sums the attachment sizes of every copy owned by ownerID.
	StorageUsed(ctx context.Context, ownerID string) (int64, error)

	// ExpiredTrash returns up to limit trashed copies trashed before cutoff.
	ExpiredTrash(ctx context.Context, cutoff time.Time, limit int) ([]*Message, error)
}

// FolderStore persists user folders.
type FolderStore interface {
	// CreateFolder inserts a folder. An empty ID is assigned by the store.
	CreateFolder(ctx context.Context, f *Folder) (*Folder, error)

	// GetFolder returns the folder with the given ID or ErrNotFound.
	GetFolder(ctx context.Context, id string) (*Folder, error)

	// ListFolders returns every folder owned by ownerID, trashed or not,
	// ordered by name.
	ListFolders(ctx context.Context, ownerID string) ([]*Folder, error)

	// UpdateFolder replaces the stored folder with f (matched by ID).
	UpdateFolder(ctx context.Context, f *Folder) error

	// DeleteFolders permanently removes folders.
	DeleteFolders(ctx context.Context, ids []string) (int64, error)

	// SetFoldersTrashed flags the folders among ids owned by ownerID.
	SetFoldersTrashed(ctx context.Context, ownerID string, ids []string, trashed bool) (int64, error)
}

// Query selects copies for a single owner.
//
// Exactly one of Folder, UserFolderID or Trashed drives the selection:
//   - Trashed: trashed copies not filed in a user folder.
//   - UserFolderID: non-trashed copies filed in that user folder.
//   - Folder: non-trashed copies of that system folder not filed in a user folder.
type Query struct {
	OwnerID      string
	Folder       string
	UserFolderID string
	Trashed      bool
	UnreadOnly   bool
	Offset       int
	Limit        int
}

// FlagUpdate describes a bulk flag change. Nil fields are left untouched.
type FlagUpdate struct {
	Unread       *bool
	Trashed      *bool
	UserFolderID *string
}

// Bool returns a pointer to b, for building FlagUpdate values.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for building FlagUpdate values.
func String(s string) *string { return &s }
