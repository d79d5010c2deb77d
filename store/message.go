package store

import (
	"slices"
	"time"
)

// System folders a copy can belong to.
const (
	FolderInbox  = "INBOX"
	FolderOutbox = "OUTBOX"
	FolderDraft  = "DRAFT"
)

// Message states.
const (
	StateDraft = "DRAFT"
	StateSent  = "SENT"
)

// Party resolves a user or group id to the display name it had when the
// message was written.
type Party struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Attachment is the metadata of a file attached to a message.
// The bytes live in an AttachmentFileStore under URI.
type Attachment struct {
	ID          string    `json:"id" bson:"id"`
	Filename    string    `json:"filename" bson:"filename"`
	ContentType string    `json:"content_type" bson:"content_type"`
	Size        int64     `json:"size" bson:"size"`
	URI         string    `json:"uri" bson:"uri"`
	Checksum    string    `json:"checksum" bson:"checksum"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Message is one owner's copy of a message.
type Message struct {
	ID       string
	OwnerID  string
	ThreadID string
	// ParentID is the message this one replies to or forwards, if any.
	ParentID string

	From         string
	To           []string
	Cc           []string
	DisplayNames []Party

	Subject string
	Body    string

	State        string
	Folder       string
	UserFolderID string
	Unread       bool
	Trashed      bool
	TrashedAt    time.Time

	Attachments []Attachment

	// Date orders listings: last save for drafts, send time otherwise.
	Date      time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.To = slices.Clone(m.To)
	c.Cc = slices.Clone(m.Cc)
	c.DisplayNames = slices.Clone(m.DisplayNames)
	c.Attachments = slices.Clone(m.Attachments)
	return &c
}

// Attachment returns the attachment with the given id.
func (m *Message) Attachment(id string) (Attachment, bool) {
	for _, a := range m.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// AttachmentSize sums the size of every attachment of m.
func (m *Message) AttachmentSize() int64 {
	var n int64
	for _, a := range m.Attachments {
		n += a.Size
	}
	return n
}

// Recipients returns To followed by Cc.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// Folder is a user-created folder. Root folders have an empty ParentID and
// a Depth of 1.
type Folder struct {
	ID        string
	OwnerID   string
	Name      string
	ParentID  string
	Depth     int
	Trashed   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of f.
func (f *Folder) Clone() *Folder {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Matches reports whether m is selected by q, ignoring pagination.
// Stores without a query language (memory) use it directly; the others
// translate the same rules into their own filters.
func (q Query) Matches(m *Message) bool {
	if m.OwnerID != q.OwnerID {
		return false
	}
	if q.UnreadOnly && !m.Unread {
		return false
	}
	switch {
	case q.Trashed:
		return m.Trashed && m.UserFolderID == ""
	case q.UserFolderID != "":
		return !m.Trashed && m.UserFolderID == q.UserFolderID
	default:
		return !m.Trashed && m.UserFolderID == "" && m.Folder == q.Folder
	}
}

// Apply applies u to m and reports whether anything changed.
func (u FlagUpdate) Apply(m *Message, now time.Time) bool {
	changed := false
	if u.Unread != nil && m.Unread != *u.Unread {
		m.Unread = *u.Unread
		changed = true
	}
	if u.Trashed != nil && m.Trashed != *u.Trashed {
		m.Trashed = *u.Trashed
		if m.Trashed {
			m.TrashedAt = now
		} else {
			m.TrashedAt = time.Time{}
		}
		changed = true
	}
	if u.UserFolderID != nil && m.UserFolderID != *u.UserFolderID {
		m.UserFolderID = *u.UserFolderID
		changed = true
	}
	if changed {
		m.UpdatedAt = now
	}
	return changed
}
