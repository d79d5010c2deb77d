package mailbox

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/content"
	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
)

// Usage is the storage consumed by a user against their quota, in bytes.
type Usage struct {
	Quota   int64
	Storage int64
}

// Quota reports the user's attachment storage.
func (m *Mailbox) Quota(ctx context.Context) (Usage, error) {
	if err := m.check(); err != nil {
		return Usage{}, err
	}
	used, err := m.s.store.StorageUsed(ctx, m.userID)
	if err != nil {
		return Usage{}, fmt.Errorf("mailbox: storage used: %w", err)
	}
	return Usage{Quota: m.s.opts.quota, Storage: used}, nil
}

// AddAttachment streams r into the attachment store and attaches it to a
// draft.
func (m *Mailbox) AddAttachment(ctx context.Context, draftID, filename, contentType string, r io.Reader) (att store.Attachment, err error) {
	if err := m.check(); err != nil {
		return store.Attachment{}, err
	}
	ctx, end := m.start(ctx, "add_attachment", attribute.String("message_id", draftID))
	defer func() { end(err) }()

	files := m.s.opts.files
	if files == nil {
		return store.Attachment{}, ErrAttachmentStoreNotConfigured
	}
	filename = path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if filename == "." || filename == "/" {
		return store.Attachment{}, &ValidationError{Field: "filename", Message: "empty"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	draft, err := m.draft(ctx, draftID)
	if err != nil {
		return store.Attachment{}, err
	}
	if len(draft.Attachments) >= m.s.opts.maxAttachmentCount {
		return store.Attachment{}, ErrTooManyAttachments
	}

	usage, err := m.Quota(ctx)
	if err != nil {
		return store.Attachment{}, err
	}
	limit := min(m.s.opts.maxAttachmentSize, usage.Quota-usage.Storage)
	if limit <= 0 {
		return store.Attachment{}, ErrQuotaExceeded
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return store.Attachment{}, fmt.Errorf("mailbox: checksum: %w", err)
	}
	lr := &limitedReader{r: io.TeeReader(r, h), n: limit}

	uri, err := files.Upload(ctx, filename, contentType, lr)
	if err != nil {
		if lr.exceeded || errors.Is(err, errLimit) {
			err = m.limitError(limit)
		} else {
			err = fmt.Errorf("mailbox: upload attachment: %w", err)
		}
		return store.Attachment{}, err
	}
	if lr.exceeded {
		_ = files.Delete(ctx, uri)
		return store.Attachment{}, m.limitError(limit)
	}

	att = store.Attachment{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        lr.read,
		URI:         uri,
		Checksum:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt:   time.Now().UTC(),
	}
	draft.Attachments = append(draft.Attachments, att)
	draft.UpdatedAt = att.CreatedAt
	if err = m.s.store.UpdateMessage(ctx, draft); err != nil {
		_ = files.Delete(ctx, uri)
		return store.Attachment{}, fmt.Errorf("mailbox: attach: %w", err)
	}

	m.s.logger.Debug("attachment added", "user_id", m.userID, "message_id", draftID, "attachment_id", att.ID, "size", att.Size)
	return att, nil
}

func (m *Mailbox) limitError(limit int64) error {
	if limit < m.s.opts.maxAttachmentSize {
		return ErrQuotaExceeded
	}
	return ErrAttachmentTooLarge
}

var errLimit = errors.New("mailbox: size limit reached")

// limitedReader fails once more than n bytes have been read, so uploads
// abort instead of being truncated.
type limitedReader struct {
	r        io.Reader
	n        int64
	read     int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, errLimit
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.n {
		l.exceeded = true
		return n, errLimit
	}
	return n, err
}

// RemoveAttachment detaches an attachment from a draft.
func (m *Mailbox) RemoveAttachment(ctx context.Context, draftID, attachmentID string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "remove_attachment", attribute.String("message_id", draftID))
	defer func() { end(err) }()

	draft, err := m.draft(ctx, draftID)
	if err != nil {
		return err
	}
	att, ok := draft.Attachment(attachmentID)
	if !ok {
		return ErrAttachmentNotFound
	}
	draft.Attachments = slices.DeleteFunc(draft.Attachments, func(a store.Attachment) bool { return a.ID == attachmentID })
	draft.UpdatedAt = time.Now().UTC()
	if err = m.s.store.UpdateMessage(ctx, draft); err != nil {
		return fmt.Errorf("mailbox: detach: %w", err)
	}
	if m.s.opts.files != nil {
		m.s.releaseAttachment(ctx, att)
	}
	return nil
}

// LoadAttachment opens an attachment of one of the user's messages. The
// caller closes the reader.
func (m *Mailbox) LoadAttachment(ctx context.Context, messageID, attachmentID string) (store.Attachment, io.ReadCloser, error) {
	if err := m.check(); err != nil {
		return store.Attachment{}, nil, err
	}
	files := m.s.opts.files
	if files == nil {
		return store.Attachment{}, nil, ErrAttachmentStoreNotConfigured
	}
	msg, err := m.ownedOne(ctx, messageID)
	if err != nil {
		return store.Attachment{}, nil, err
	}
	att, ok := msg.Attachment(attachmentID)
	if !ok {
		return store.Attachment{}, nil, ErrAttachmentNotFound
	}
	rc, err := files.Load(ctx, att.URI)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Attachment{}, nil, ErrAttachmentNotFound
		}
		return store.Attachment{}, nil, fmt.Errorf("mailbox: load attachment: %w", err)
	}
	return att, rc, nil
}

// Forward prepares draftID as a forward of originID: the draft is linked
// to the origin's thread, its subject and body quote the origin when still
// empty, and it references every attachment of the origin not already
// attached.
func (m *Mailbox) Forward(ctx context.Context, draftID, originID string) (msg *store.Message, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "forward", attribute.String("message_id", draftID), attribute.String("origin_id", originID))
	defer func() { end(err) }()

	draft, err := m.draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	origin, err := m.ownedOne(ctx, originID)
	if err != nil {
		return nil, err
	}

	var extra int64
	for _, a := range origin.Attachments {
		if _, ok := draft.Attachment(a.ID); !ok {
			draft.Attachments = append(draft.Attachments, a)
			extra += a.Size
		}
	}
	if len(draft.Attachments) > m.s.opts.maxAttachmentCount {
		return nil, ErrTooManyAttachments
	}
	if extra > 0 {
		usage, qerr := m.Quota(ctx)
		if qerr != nil {
			return nil, qerr
		}
		if usage.Storage+extra > usage.Quota {
			return nil, ErrQuotaExceeded
		}
	}

	if draft.Subject == "" {
		draft.Subject = content.Prefix("Fwd: ", origin.Subject)
	}
	if draft.Body == "" {
		draft.Body = m.s.opts.sanitizer.Sanitize(content.Quote(content.ForwardTemplate, origin.Body))
	}
	draft.ParentID = origin.ID
	draft.ThreadID = origin.ThreadID
	draft.UpdatedAt = time.Now().UTC()

	if err = m.s.store.UpdateMessage(ctx, draft); err != nil {
		return nil, fmt.Errorf("mailbox: forward: %w", err)
	}
	return draft, nil
}
