// Package content handles message bodies: HTML sanitising, reply and
// forward quoting, and export to RFC 5322 files.
package content

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from user-written HTML bodies.
// The zero value is not usable; use NewSanitizer.
type Sanitizer struct {
	body *bluemonday.Policy
	text *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer that keeps user-generated-content markup
// (formatting, links, images, blockquotes) and inline colour styles.
func NewSanitizer() *Sanitizer {
	body := bluemonday.UGCPolicy()
	body.AllowStyles("color", "background-color", "text-align", "font-weight", "font-style", "text-decoration").Globally()
	body.AllowAttrs("class").Globally()
	body.RequireNoFollowOnLinks(true)
	body.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		body: body,
		text: bluemonday.StrictPolicy(),
	}
}

// Sanitize returns body with scripts, event handlers and other unsafe
// constructs removed.
func (s *Sanitizer) Sanitize(body string) string {
	return s.body.Sanitize(body)
}

// PlainText returns body with every tag removed and entities decoded,
// whitespace collapsed.
func (s *Sanitizer) PlainText(body string) string {
	body = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "</p>\n").Replace(body)
	text := html.UnescapeString(s.text.Sanitize(body))

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
