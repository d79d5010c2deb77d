package mailbox

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Draft is the user-editable part of a message.
type Draft struct {
	Subject string
	Body    string
	To      []string
	Cc      []string
}

func (d Draft) recipients() []string {
	return dedupe(append(append([]string(nil), d.To...), d.Cc...))
}

// validate checks d against the configured limits. Recipients are only
// required when sending.
func (o *options) validate(d Draft, sending bool) error {
	if !utf8.ValidString(d.Subject) {
		return &ValidationError{Field: "subject", Message: "not valid UTF-8"}
	}
	if len(d.Subject) > o.maxSubjectLength {
		return &ValidationError{Field: "subject", Message: fmt.Sprintf("length %d exceeds %d", len(d.Subject), o.maxSubjectLength)}
	}
	if strings.ContainsAny(d.Subject, "\r\n") {
		return &ValidationError{Field: "subject", Message: "contains line breaks"}
	}
	if !utf8.ValidString(d.Body) {
		return &ValidationError{Field: "body", Message: "not valid UTF-8"}
	}
	if len(d.Body) > o.maxBodySize {
		return &ValidationError{Field: "body", Message: fmt.Sprintf("size %d exceeds %d", len(d.Body), o.maxBodySize)}
	}

	n := len(d.recipients())
	if n > o.maxRecipientCount {
		return &ValidationError{Field: "recipients", Message: fmt.Sprintf("%d recipients exceed %d", n, o.maxRecipientCount)}
	}
	if sending && n == 0 {
		return ErrEmptyRecipients
	}
	return nil
}

func (o *options) validateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > DefaultMaxFolderNameLen || !utf8.ValidString(name) {
		return "", ErrInvalidFolderName
	}
	return name, nil
}
