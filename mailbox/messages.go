package mailbox

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rbaliyan/conversation/content"
	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
)

// Folder names accepted by List and CountUnread. Matching is case
// insensitive.
const (
	FolderInbox  = "inbox"
	FolderOutbox = "outbox"
	FolderDraft  = "draft"
	FolderTrash  = "trash"
)

// systemQuery maps a folder name to the store query selecting it.
func (m *Mailbox) systemQuery(folder string) (store.Query, error) {
	q := store.Query{OwnerID: m.userID}
	switch strings.ToLower(folder) {
	case FolderInbox:
		q.Folder = store.FolderInbox
	case FolderOutbox:
		q.Folder = store.FolderOutbox
	case FolderDraft:
		q.Folder = store.FolderDraft
	case FolderTrash:
		q.Trashed = true
	default:
		return q, fmt.Errorf("%w: %q", ErrUnknownFolder, folder)
	}
	return q, nil
}

func (m *Mailbox) paginate(q store.Query, page int) store.Query {
	page = max(page, 0)
	q.Limit = m.s.opts.pageSize
	q.Offset = page * q.Limit
	return q
}

// List returns one page of a system folder, newest first.
func (m *Mailbox) List(ctx context.Context, folder string, page int) (msgs []*store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "list", attribute.String("folder", folder), attribute.Int("page", page))
	defer func() { end(err) }()

	q, err := m.systemQuery(folder)
	if err != nil {
		return nil, err
	}
	msgs, err = m.s.store.ListMessages(ctx, m.paginate(q, page))
	if err != nil {
		return nil, fmt.Errorf("mailbox: list %s: %w", folder, err)
	}
	return msgs, nil
}

// ListUserFolder returns one page of the messages filed directly in a user
// folder, excluding trashed ones.
func (m *Mailbox) ListUserFolder(ctx context.Context, folderID string, page int) (msgs []*store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "list_user_folder", attribute.String("folder_id", folderID), attribute.Int("page", page))
	defer func() { end(err) }()

	if _, err = m.folder(ctx, folderID); err != nil {
		return nil, err
	}
	q := store.Query{OwnerID: m.userID, UserFolderID: folderID}
	msgs, err = m.s.store.ListMessages(ctx, m.paginate(q, page))
	if err != nil {
		return nil, fmt.Errorf("mailbox: list folder %s: %w", folderID, err)
	}
	return msgs, nil
}

// CountUnread counts the unread messages of a system folder. Inbox counts
// are served from the unread cache when one is configured.
func (m *Mailbox) CountUnread(ctx context.Context, folder string) (int64, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	q, err := m.systemQuery(folder)
	if err != nil {
		return 0, err
	}
	q.UnreadOnly = true

	inbox := q.Folder == store.FolderInbox
	if inbox {
		if n, ok := m.s.unread.get(ctx, m.userID); ok {
			return n, nil
		}
	}

	n, err := m.s.store.CountMessages(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("mailbox: count %s: %w", folder, err)
	}
	if inbox {
		m.s.unread.set(ctx, m.userID, n)
	}
	return n, nil
}

// Get returns a message and marks it read.
func (m *Mailbox) Get(ctx context.Context, id string) (msg *store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "get", attribute.String("message_id", id))
	defer func() { end(err) }()

	msg, err = m.ownedOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.Unread {
		return msg, nil
	}

	if _, err = m.s.store.UpdateFlags(ctx, m.userID, []string{id}, store.FlagUpdate{Unread: store.Bool(false)}); err != nil {
		return nil, fmt.Errorf("mailbox: mark read: %w", err)
	}
	msg.Unread = false
	m.s.unread.invalidate(ctx, m.userID)

	err = publish(ctx, m.s, m.s.events.MessageRead, EventNameMessageRead, id, MessageReadEvent{
		MessageID: id,
		UserID:    m.userID,
		ReadAt:    time.Now().UTC(),
	})
	return msg, err
}

// Export writes a message as an RFC 5322 file, attachments included when
// an attachment store is configured. The message is not marked read.
func (m *Mailbox) Export(ctx context.Context, w io.Writer, id string) error {
	if err := m.check(); err != nil {
		return err
	}
	msg, err := m.ownedOne(ctx, id)
	if err != nil {
		return err
	}

	e := &content.Exporter{Domain: m.s.opts.exportDomain, Sanitizer: m.s.opts.sanitizer}
	if files := m.s.opts.files; files != nil {
		e.Open = func(ctx context.Context, a store.Attachment) (io.ReadCloser, error) {
			return files.Load(ctx, a.URI)
		}
	}
	return e.Export(ctx, w, msg)
}
