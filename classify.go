package conversation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rbaliyan/conversation/api"
)

// System folders a mail can be classified into.
const (
	ClassInbox  = "INBOX"
	ClassOutbox = "OUTBOX"
	ClassDraft  = "DRAFT"
)

// SystemFolderOf tells which system folder m comes from for the user me:
// mails sent by others come from the inbox, mails me sent from the outbox,
// unsent mails of me from the drafts. Anything else gives "".
func SystemFolderOf(m *Mail, me string) string {
	switch {
	case m.From != me && m.State == api.StateSent:
		return ClassInbox
	case m.From == me && m.State == api.StateSent:
		return ClassOutbox
	case m.From == me && m.State == api.StateDraft:
		return ClassDraft
	}
	return ""
}

// MatchSystemIcon returns the icon name of m's system folder.
func MatchSystemIcon(m *Mail, me string) string {
	switch SystemFolderOf(m, me) {
	case ClassInbox:
		return "mail-in"
	case ClassOutbox:
		return "mail-out"
	case ClassDraft:
		return "mail-new"
	}
	return ""
}

// SortKey is a column mails can be sorted by.
type SortKey string

const (
	SortName         SortKey = "name"
	SortSubject      SortKey = "subject"
	SortDate         SortKey = "date"
	SortSystemFolder SortKey = "systemFolder"
)

// Sort is a sort column and direction.
type Sort struct {
	Key     SortKey
	Reverse bool
}

// Compare returns the ordering of a and b for s, as seen by me.
func (s Sort) Compare(me string) func(a, b *Mail) int {
	return func(a, b *Mail) int {
		var c int
		switch s.Key {
		case SortName:
			c = strings.Compare(sortName(a, me), sortName(b, me))
		case SortSubject:
			c = strings.Compare(a.Subject, b.Subject)
		case SortSystemFolder:
			c = cmp.Compare(systemFolderRank(a, me), systemFolderRank(b, me))
		default:
			c = cmp.Compare(a.millis(), b.millis())
		}
		if s.Reverse {
			return -c
		}
		return c
	}
}

// sortName is the sender of received mails and the sorted recipient names
// of the others.
func sortName(m *Mail, me string) string {
	if SystemFolderOf(m, me) == ClassInbox {
		if m.FromName != "" {
			return m.FromName
		}
		return m.Sender().DisplayName
	}
	var names []string
	for _, p := range m.DisplayNames {
		if containsUser(m.To, p[0]) {
			names = append(names, p[1])
		}
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}

func systemFolderRank(m *Mail, me string) int {
	switch SystemFolderOf(m, me) {
	case ClassInbox:
		return 1
	case ClassOutbox:
		return 2
	case ClassDraft:
		return 3
	}
	return 0
}
