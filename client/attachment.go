package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/rbaliyan/conversation"
	"github.com/rbaliyan/conversation/api"
)

// UploadAttachment streams f to the draft mailID as multipart form data.
// Uploads are never retried: the content can only be read once.
func (c *Client) UploadAttachment(ctx context.Context, mailID string, f conversation.File, progress func(percent int)) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		_ = pw.CloseWithError(writeFile(mw, f, progress))
	}()

	path := route(api.RouteAttachments, "id", mailID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("client: upload %s: %w", f.Name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out api.IDResponse
	err = c.send(req, &out)
	// Unblock the writer if the request ended before the body was read.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func writeFile(mw *multipart.Writer, f conversation.File, progress func(int)) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     api.FormFile,
		"filename": f.Name,
	}))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	src := f.Content
	if progress != nil && f.Size > 0 {
		src = &progressReader{r: f.Content, total: f.Size, report: progress, last: -1}
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

// progressReader reports the share of total read so far, once per
// percent.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if pct := int(min(p.read*100/p.total, 100)); pct != p.last {
		p.last = pct
		p.report(pct)
	}
	return n, err
}

// DownloadAttachment opens an attachment. The caller closes the reader.
func (c *Client) DownloadAttachment(ctx context.Context, mailID, attachmentID string) (io.ReadCloser, error) {
	return c.stream(ctx, route(api.RouteAttachment, "id", mailID, "attachmentId", attachmentID))
}

// Export writes the message id to w as an RFC 5322 file.
func (c *Client) Export(ctx context.Context, w io.Writer, id string) error {
	rc, err := c.stream(ctx, route(api.RouteExport, "id", id))
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("client: export %s: %w", id, err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("client: GET %s: %w", path, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: GET %s: %w", path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}
