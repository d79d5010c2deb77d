package content

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rbaliyan/conversation/store"
)

func TestSanitize(t *testing.T) {
	s := NewSanitizer()

	got := s.Sanitize(`<p onclick="x()">hi<script>alert(1)</script></p><blockquote>quoted</blockquote>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
		t.Fatalf("unsafe markup kept: %q", got)
	}
	if !strings.Contains(got, "<blockquote>quoted</blockquote>") {
		t.Fatalf("blockquote dropped: %q", got)
	}
}

func TestPlainText(t *testing.T) {
	got := NewSanitizer().PlainText(`<p>Hello&nbsp;<b>Ada</b></p><p>see   you</p>`)
	want := "Hello Ada\nsee you"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuote(t *testing.T) {
	if got := Quote("<p>x</p>", "orig"); got != "<p>x</p><blockquote>orig</blockquote>" {
		t.Fatalf("got %q", got)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		prefix, subject, want string
	}{
		{"Re : ", "Hello", "Re : Hello"},
		{"Re : ", "Re : Hello", "Re : Hello"},
		{"Tr : ", "Re : Hello", "Tr : Re : Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := Prefix(tt.prefix, tt.subject); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	m := &store.Message{
		ID:      "m1",
		From:    "u1",
		To:      []string{"u2"},
		Subject: "Minutes",
		Body:    "<p>See attached</p>",
		DisplayNames: []store.Party{
			{ID: "u1", Name: "Ada Lovelace"},
			{ID: "u2", Name: "Bob"},
		},
		Attachments: []store.Attachment{{ID: "a1", Filename: "notes.txt", ContentType: "text/plain"}},
		Date:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	e := &Exporter{
		Domain: "example.org",
		Open: func(context.Context, store.Attachment) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("note body")), nil
		},
	}

	var buf bytes.Buffer
	if err := e.Export(context.Background(), &buf, m); err != nil {
		t.Fatalf("Export: %v", err)
	}

	mr, err := mail.CreateReader(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if subject, _ := mr.Header.Subject(); subject != "Minutes" {
		t.Errorf("subject = %q", subject)
	}
	from, err := mr.Header.AddressList("From")
	if err != nil || len(from) != 1 || from[0].Name != "Ada Lovelace" || from[0].Address != "u1@example.org" {
		t.Errorf("from = %v (%v)", from, err)
	}

	var sawText, sawAttachment bool
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		body, _ := io.ReadAll(p.Body)
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			if ct, _, _ := h.ContentType(); ct == "text/plain" {
				sawText = strings.Contains(string(body), "See attached")
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			sawAttachment = name == "notes.txt" && string(body) == "note body"
		}
	}
	if !sawText || !sawAttachment {
		t.Fatalf("text=%v attachment=%v", sawText, sawAttachment)
	}
}
