package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
)

// SaveDraft creates a draft. When inReplyTo is set, the draft joins the
// thread of that message.
func (m *Mailbox) SaveDraft(ctx context.Context, d Draft, inReplyTo string) (msg *store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "save_draft", attribute.Bool("reply", inReplyTo != ""))
	defer func() { end(err) }()

	if err = m.s.opts.validate(d, false); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	draft := &store.Message{
		OwnerID:   m.userID,
		From:      m.userID,
		State:     store.StateDraft,
		Folder:    store.FolderDraft,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if inReplyTo != "" {
		parent, perr := m.ownedOne(ctx, inReplyTo)
		if perr != nil {
			return nil, perr
		}
		draft.ParentID = parent.ID
		draft.ThreadID = parent.ThreadID
	}
	if err = m.fill(ctx, draft, d); err != nil {
		return nil, err
	}

	msg, err = m.s.store.CreateMessage(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("mailbox: create draft: %w", err)
	}
	m.s.logger.Debug("draft saved", "user_id", m.userID, "message_id", msg.ID)
	return msg, nil
}

// UpdateDraft replaces the content of an existing draft.
func (m *Mailbox) UpdateDraft(ctx context.Context, id string, d Draft) (msg *store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "update_draft", attribute.String("message_id", id))
	defer func() { end(err) }()

	if err = m.s.opts.validate(d, false); err != nil {
		return nil, err
	}
	msg, err = m.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = m.fill(ctx, msg, d); err != nil {
		return nil, err
	}
	msg.Date = time.Now().UTC()
	msg.UpdatedAt = msg.Date

	if err = m.s.store.UpdateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("mailbox: update draft: %w", err)
	}
	return msg, nil
}

// draft loads one of the user's drafts.
func (m *Mailbox) draft(ctx context.Context, id string) (*store.Message, error) {
	msg, err := m.ownedOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.State != store.StateDraft {
		return nil, ErrNotDraft
	}
	return msg, nil
}

// fill copies d into msg, sanitizing the body and resolving the display
// names of the sender and every addressee.
func (m *Mailbox) fill(ctx context.Context, msg *store.Message, d Draft) error {
	msg.Subject = d.Subject
	msg.Body = m.s.opts.sanitizer.Sanitize(d.Body)
	msg.To = dedupe(d.To)
	msg.Cc = dedupe(d.Cc)

	names, err := m.displayNames(ctx, append([]string{m.userID}, msg.Recipients()...))
	if err != nil {
		return err
	}
	msg.DisplayNames = names
	return nil
}

// displayNames resolves ids to users or groups. Unknown ids are left out
// so that clients show them as deleted.
func (m *Mailbox) displayNames(ctx context.Context, ids []string) ([]store.Party, error) {
	ids = dedupe(ids)
	names := make([]store.Party, 0, len(ids))
	for _, id := range ids {
		u, err := m.s.opts.directory.User(ctx, id)
		switch {
		case err == nil:
			names = append(names, store.Party{ID: id, Name: u.DisplayName})
			continue
		case !errors.Is(err, directory.ErrUnknownUser):
			return nil, fmt.Errorf("mailbox: resolve %s: %w", id, err)
		}

		exp, err := m.s.opts.directory.Expand(ctx, []string{id})
		if err != nil {
			return nil, fmt.Errorf("mailbox: resolve %s: %w", id, err)
		}
		for _, g := range exp.Groups {
			if g.ID == id {
				names = append(names, store.Party{ID: id, Name: g.Name})
			}
		}
	}
	return names, nil
}
