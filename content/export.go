package content

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rbaliyan/conversation/store"
)

// Exporter writes messages as RFC 5322 files. Internal user ids are turned
// into addresses under Domain.
type Exporter struct {
	Domain    string
	Sanitizer *Sanitizer
	// Open returns the bytes of an attachment. When nil, attachments are
	// left out of the export.
	Open func(ctx context.Context, a store.Attachment) (io.ReadCloser, error)
}

// Export writes m to w as a multipart message with a text and an HTML
// alternative followed by its attachments.
func (e *Exporter) Export(ctx context.Context, w io.Writer, m *store.Message) error {
	var h mail.Header
	h.SetDate(exportDate(m))
	h.SetSubject(m.Subject)
	h.SetMessageID(m.ID + "@" + e.Domain)
	h.SetAddressList("From", e.addresses(m, m.From))
	h.SetAddressList("To", e.addresses(m, m.To...))
	if len(m.Cc) > 0 {
		h.SetAddressList("Cc", e.addresses(m, m.Cc...))
	}
	if m.ParentID != "" {
		h.Set("In-Reply-To", "<"+m.ParentID+"@"+e.Domain+">")
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("content: create writer: %w", err)
	}

	if err := e.writeBody(mw, m.Body); err != nil {
		return err
	}

	if e.Open != nil {
		for _, a := range m.Attachments {
			if err := e.writeAttachment(ctx, mw, a); err != nil {
				return err
			}
		}
	}
	return mw.Close()
}

func (e *Exporter) writeBody(mw *mail.Writer, body string) error {
	s := e.Sanitizer
	if s == nil {
		s = NewSanitizer()
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("content: create inline: %w", err)
	}

	parts := []struct {
		mediaType string
		body      string
	}{
		{"text/plain", s.PlainText(body)},
		{"text/html", s.Sanitize(body)},
	}
	for _, p := range parts {
		var ih mail.InlineHeader
		ih.SetContentType(p.mediaType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ih)
		if err != nil {
			return fmt.Errorf("content: create %s part: %w", p.mediaType, err)
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			pw.Close()
			return fmt.Errorf("content: write %s part: %w", p.mediaType, err)
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}
	return iw.Close()
}

func (e *Exporter) writeAttachment(ctx context.Context, mw *mail.Writer, a store.Attachment) error {
	rc, err := e.Open(ctx, a)
	if err != nil {
		return fmt.Errorf("content: open attachment %s: %w", a.ID, err)
	}
	defer rc.Close()

	var ah mail.AttachmentHeader
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType, params = "application/octet-stream", nil
	}
	ah.SetContentType(mediaType, params)
	ah.SetFilename(a.Filename)

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("content: create attachment: %w", err)
	}
	if _, err := io.Copy(aw, rc); err != nil {
		aw.Close()
		return fmt.Errorf("content: copy attachment %s: %w", a.ID, err)
	}
	return aw.Close()
}

func (e *Exporter) addresses(m *store.Message, ids ...string) []*mail.Address {
	out := make([]*mail.Address, 0, len(ids))
	for _, id := range ids {
		addr := &mail.Address{Address: id + "@" + e.Domain}
		for _, p := range m.DisplayNames {
			if p.ID == id {
				addr.Name = p.Name
				break
			}
		}
		out = append(out, addr)
	}
	return out
}

func exportDate(m *store.Message) time.Time {
	if !m.Date.IsZero() {
		return m.Date
	}
	return m.CreatedAt
}
