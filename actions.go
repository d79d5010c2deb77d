package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rbaliyan/conversation/api"
)

// SendReport tells how a mail was delivered.
type SendReport struct {
	Sent int
	// Inactive holds the display names of recipients without an active
	// account.
	Inactive []string
	// Undelivered holds the recipient ids nothing could be delivered to.
	Undelivered []string
}

// SaveAsDraft creates or updates m as a draft and reloads the draft folder.
// An empty subject is replaced by the translated "no subject".
func (c *Conversation) SaveAsDraft(ctx context.Context, m *Mail) error {
	if m.Subject == "" {
		m.Subject = c.Translate(KeyNoSubject)
	}

	req := m.request()
	if m.ID != "" {
		if err := c.backend.UpdateDraft(ctx, m.ID, req); err != nil {
			return c.fail(fmt.Errorf("conversation: update draft %s: %w", m.ID, err))
		}
	} else {
		id, err := c.backend.CreateDraft(ctx, req, m.inReplyTo())
		if err != nil {
			return c.fail(fmt.Errorf("conversation: create draft: %w", err))
		}
		m.ID = id
	}
	m.State = api.StateDraft
	c.notifier.Info(c.Translate(KeyDraftSaved))

	return c.Drafts.Mails().Refresh(ctx)
}

// Send sends m, reports the delivery to the notifier and reloads outbox and
// drafts. A mail with an id is sent from that draft.
func (c *Conversation) Send(ctx context.Context, m *Mail) (SendReport, error) {
	res, err := c.backend.Send(ctx, m.ID, m.inReplyTo(), m.request())
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			c.notifier.Error(apiErr.Message)
		} else {
			c.notifier.Error(err.Error())
		}
		c.logger.Error("send failed", "user_id", c.Me(), "draft_id", m.ID, "error", err)
		return SendReport{}, fmt.Errorf("conversation: send: %w", err)
	}

	m.ID = res.ID
	m.State = api.StateSent
	if m.Addressed(c.Me()) {
		c.Inbox.addUnread(1)
	}

	report := SendReport{Sent: res.Sent, Inactive: res.Inactive, Undelivered: res.Undelivered}
	if report.Sent > 0 {
		c.notifier.Info(c.Translate(KeyMailSent))
	}
	if len(report.Inactive) > 0 {
		c.notifier.Error(strings.Join(report.Inactive, ", ") + c.Translate(KeyInactive))
	}
	if len(report.Undelivered) > 0 {
		c.notifier.Error(strings.Join(report.Undelivered, ", ") + c.Translate(KeyUndelivered))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Outbox.Mails().Refresh(gctx) })
	g.Go(func() error { return c.Drafts.Mails().Refresh(gctx) })
	return report, g.Wait()
}

// Open loads the full mail, which marks it read, then reloads the inbox
// unread count and the open folder.
func (c *Conversation) Open(ctx context.Context, m *Mail) error {
	m.Unread = false

	a, err := c.backend.GetMail(ctx, m.ID)
	if err != nil {
		return c.fail(fmt.Errorf("conversation: open %s: %w", m.ID, err))
	}
	m.update(a, c.Users)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Inbox.CountUnread(gctx) })
	g.Go(func() error { return c.RefreshCurrent(gctx) })
	return g.Wait()
}

// Remove trashes mails, or deletes them for good when the trash is open.
func (c *Conversation) Remove(ctx context.Context, mails ...*Mail) error {
	if c.InTrash() {
		return c.Trash.RemoveMails(ctx, mails)
	}
	return c.TrashMails(ctx, mails...)
}

// TrashMails moves mails to the trash.
func (c *Conversation) TrashMails(ctx context.Context, mails ...*Mail) error {
	if len(mails) == 0 {
		return nil
	}
	ids := mailIDs(mails)
	if err := c.backend.Trash(ctx, ids); err != nil {
		return c.fail(fmt.Errorf("conversation: trash: %w", err))
	}
	c.dropFromCurrent(ids)
	return nil
}

// Move files mails into dest.
func (c *Conversation) Move(ctx context.Context, dest *UserFolder, mails ...*Mail) error {
	if len(mails) == 0 {
		return nil
	}
	ids := mailIDs(mails)
	if err := c.backend.MoveToFolder(ctx, dest.ID, ids); err != nil {
		return c.fail(fmt.Errorf("conversation: move to %s: %w", dest.ID, err))
	}
	c.dropFromCurrent(ids)
	return nil
}

// RemoveFromFolder takes mails out of their user folder, back to the
// system folder they came from.
func (c *Conversation) RemoveFromFolder(ctx context.Context, mails ...*Mail) error {
	if len(mails) == 0 {
		return nil
	}
	ids := mailIDs(mails)
	if err := c.backend.MoveToRoot(ctx, ids); err != nil {
		return c.fail(fmt.Errorf("conversation: move to root: %w", err))
	}
	c.dropFromCurrent(ids)
	return nil
}

func (c *Conversation) dropFromCurrent(ids []string) {
	if ms := c.currentMails(); ms != nil {
		ms.Remove(ids...)
	}
}

// PostAttachments uploads files to m in parallel, saving m as a draft first
// when it has no id yet. Uploads are listed in m.LoadingAttachments while
// they run. Every failed upload is reported; the others are kept.
func (c *Conversation) PostAttachments(ctx context.Context, m *Mail, files []File) error {
	if len(files) == 0 {
		return nil
	}
	if m.ID == "" {
		if err := c.SaveAsDraft(ctx, m); err != nil {
			return err
		}
	}

	uploads := make([]*Upload, len(files))
	for i, f := range files {
		uploads[i] = &Upload{Filename: f.Name, Size: f.Size}
	}
	m.LoadingAttachments = append(m.LoadingAttachments, uploads...)
	defer m.removeUploads(uploads)

	ids := make([]string, len(files))
	errs := make([]error, len(files))
	var g errgroup.Group
	g.SetLimit(c.opts.uploadWorkers)
	for i, f := range files {
		g.Go(func() error {
			ids[i], errs[i] = c.backend.UploadAttachment(ctx, m.ID, f, uploads[i].setProgress)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("conversation: upload %s: %w", f.Name, errs[i])
			} else {
				uploads[i].setProgress(100)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		if errs[i] == nil {
			m.Attachments = append(m.Attachments, Attachment{ID: ids[i], Filename: f.Name, ContentType: f.ContentType, Size: f.Size})
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		c.notifier.Error(err.Error())
	}
	return errors.Join(err, c.Quota.Refresh(ctx))
}

// DeleteAttachment removes an attachment from the draft m.
func (c *Conversation) DeleteAttachment(ctx context.Context, m *Mail, attachmentID string) error {
	if err := c.backend.DeleteAttachment(ctx, m.ID, attachmentID); err != nil {
		return c.fail(fmt.Errorf("conversation: delete attachment %s: %w", attachmentID, err))
	}
	for i, a := range m.Attachments {
		if a.ID == attachmentID {
			m.Attachments = append(m.Attachments[:i], m.Attachments[i+1:]...)
			break
		}
	}
	return c.Quota.Refresh(ctx)
}

// fail reports err to the user and returns it.
func (c *Conversation) fail(err error) error {
	c.notifier.Error(err.Error())
	return err
}
