package mailbox

import (
	"context"
	"fmt"

	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
)

// Trash moves messages to the trash, taking them out of any user folder.
func (m *Mailbox) Trash(ctx context.Context, ids []string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "trash", attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	msgs, err := m.owned(ctx, ids)
	if err != nil {
		return err
	}
	_, err = m.s.store.UpdateFlags(ctx, m.userID, messageIDs(msgs), store.FlagUpdate{
		Trashed:      store.Bool(true),
		UserFolderID: store.String(""),
	})
	if err != nil {
		return fmt.Errorf("mailbox: trash: %w", err)
	}
	m.s.unread.invalidate(ctx, m.userID)
	return nil
}

// Restore brings trashed messages back to their system folder. Every
// message must be in the trash.
func (m *Mailbox) Restore(ctx context.Context, ids []string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "restore", attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	msgs, err := m.trashed(ctx, ids)
	if err != nil {
		return err
	}
	if _, err = m.s.store.UpdateFlags(ctx, m.userID, messageIDs(msgs), store.FlagUpdate{Trashed: store.Bool(false)}); err != nil {
		return fmt.Errorf("mailbox: restore: %w", err)
	}
	m.s.unread.invalidate(ctx, m.userID)
	return nil
}

// Delete permanently deletes trashed messages. Attachment blobs are
// released once no other copy references them.
func (m *Mailbox) Delete(ctx context.Context, ids []string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "delete", attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	msgs, err := m.trashed(ctx, ids)
	if err != nil {
		return err
	}
	_, err = m.s.deleteCopies(ctx, msgs)
	return err
}

func (m *Mailbox) trashed(ctx context.Context, ids []string) ([]*store.Message, error) {
	msgs, err := m.owned(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if !msg.Trashed {
			return nil, fmt.Errorf("%w: %s", ErrNotInTrash, msg.ID)
		}
	}
	return msgs, nil
}
