package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// SendResult reports how a send was delivered.
type SendResult struct {
	// Message is the sender's copy, filed in OUTBOX.
	Message *store.Message
	// Sent is the number of copies delivered.
	Sent int
	// Inactive holds the display names of recipients that have not
	// activated their account. They receive nothing.
	Inactive []string
	// Undelivered holds the addressed ids that matched no user or group,
	// and recipients whose copy could not be written.
	Undelivered []string
}

// Send sends a message. With a draftID, that draft becomes the sender's
// copy; otherwise a new one is created. inReplyTo links the message to its
// parent thread.
func (m *Mailbox) Send(ctx context.Context, draftID, inReplyTo string, d Draft) (res *SendResult, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "send", attribute.Bool("from_draft", draftID != ""))
	defer func() { end(err) }()

	if err = m.s.opts.validate(d, true); err != nil {
		return nil, err
	}

	if err = m.s.sendSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("mailbox: send: %w", err)
	}
	defer m.s.sendSem.Release(1)

	var msg *store.Message
	if draftID != "" {
		if msg, err = m.draft(ctx, draftID); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	if msg == nil {
		msg = &store.Message{OwnerID: m.userID, From: m.userID, CreatedAt: now}
	}

	if inReplyTo != "" {
		parent, perr := m.ownedOne(ctx, inReplyTo)
		if perr != nil {
			return nil, perr
		}
		msg.ParentID = parent.ID
		msg.ThreadID = parent.ThreadID
	}
	if msg.ThreadID == "" {
		msg.ThreadID = uuid.NewString()
	}
	if err = m.fill(ctx, msg, d); err != nil {
		return nil, err
	}

	exp, err := m.s.opts.directory.Expand(ctx, msg.Recipients())
	if err != nil {
		return nil, fmt.Errorf("mailbox: expand recipients: %w", err)
	}

	res = &SendResult{Undelivered: append([]string(nil), exp.Unknown...)}
	var active []directory.User
	for _, u := range exp.Users {
		if u.Active {
			active = append(active, u)
		} else {
			res.Inactive = append(res.Inactive, u.DisplayName)
		}
	}

	msg.State = store.StateSent
	msg.Folder = store.FolderOutbox
	msg.Unread = false
	msg.Date = now
	msg.UpdatedAt = now
	if msg.ID == "" {
		msg, err = m.s.store.CreateMessage(ctx, msg)
	} else {
		err = m.s.store.UpdateMessage(ctx, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("mailbox: store sent copy: %w", err)
	}
	res.Message = msg

	delivered := m.deliver(ctx, msg, active)
	var recipients []string
	for i, u := range active {
		if delivered[i] {
			recipients = append(recipients, u.ID)
		} else {
			res.Undelivered = append(res.Undelivered, u.ID)
		}
	}
	res.Sent = len(recipients)

	m.s.otel.recordDelivered(ctx, res.Sent)
	m.s.unread.invalidate(ctx, recipients...)
	m.s.logger.Info("message sent",
		"user_id", m.userID,
		"message_id", msg.ID,
		"sent", res.Sent,
		"inactive", len(res.Inactive),
		"undelivered", len(res.Undelivered))

	err = publish(ctx, m.s, m.s.events.MessageSent, EventNameMessageSent, msg.ID, MessageSentEvent{
		MessageID:    msg.ID,
		ThreadID:     msg.ThreadID,
		SenderID:     m.userID,
		RecipientIDs: recipients,
		Subject:      msg.Subject,
		SentAt:       now,
	})
	return res, err
}

// deliver writes one INBOX copy of sent per user and reports which writes
// succeeded. Copies share attachment blobs with sent.
func (m *Mailbox) deliver(ctx context.Context, sent *store.Message, users []directory.User) []bool {
	ok := make([]bool, len(users))

	var g errgroup.Group
	g.SetLimit(m.s.opts.deliveryWorkers)
	for i, u := range users {
		g.Go(func() error {
			c := sent.Clone()
			c.ID = ""
			c.OwnerID = u.ID
			c.Folder = store.FolderInbox
			c.UserFolderID = ""
			c.Unread = true
			c.Trashed = false
			c.TrashedAt = time.Time{}
			if _, err := m.s.store.CreateMessage(ctx, c); err != nil {
				m.s.logger.Warn("delivery failed", "message_id", sent.ID, "recipient", u.ID, "error", err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()
	return ok
}
