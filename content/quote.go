package content

import "strings"

// Kind tells how a new message relates to the one it quotes.
type Kind int

const (
	Reply Kind = iota
	Forward
)

// Default templates placed above the quoted body.
const (
	ReplyTemplate   = `<p><br></p><p><br></p><p class="medium-text"><span translate key="transfer.from"></span></p>`
	ForwardTemplate = `<p><br></p><p><br></p><p class="medium-text"><span translate key="transfer.from"></span><br><span translate key="transfer.date"></span><br><span translate key="transfer.subject"></span></p>`
)

// Template returns the template content for k.
func (k Kind) Template() string {
	if k == Forward {
		return ForwardTemplate
	}
	return ReplyTemplate
}

// Quote builds a reply or forward body: the template content followed by
// the original body in a blockquote.
func Quote(template, origin string) string {
	var b strings.Builder
	b.Grow(len(template) + len(origin) + len("<blockquote></blockquote>"))
	b.WriteString(template)
	b.WriteString("<blockquote>")
	b.WriteString(origin)
	b.WriteString("</blockquote>")
	return b.String()
}

// Prefix returns subject with prefix prepended unless subject already
// contains it.
func Prefix(prefix, subject string) string {
	if strings.Contains(subject, strings.TrimSpace(prefix)) {
		return subject
	}
	return prefix + subject
}
