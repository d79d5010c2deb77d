package conversation

import (
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/content"
)

// Attachment is a file attached to a mail.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
}

// Upload is an attachment being uploaded.
type Upload struct {
	Filename string
	Size     int64
	progress atomic.Int32
}

// Progress returns the uploaded percentage, 0 to 100.
func (u *Upload) Progress() int {
	return int(u.progress.Load())
}

func (u *Upload) setProgress(p int) {
	u.progress.Store(int32(min(max(p, 0), 100)))
}

// Mail is a message of one of the user's folders, or one being written.
type Mail struct {
	ID string
	// Date is the send or last save time in milliseconds since the Unix
	// epoch, as a decimal string.
	Date    string
	Subject string
	Body    string
	From    string
	To      []*User
	Cc      []*User
	// DisplayNames pairs every party id with the name it had when the mail
	// was written.
	DisplayNames [][2]string
	Unread       bool
	State        string
	ParentID     string
	ThreadID     string
	FromName     string
	ToName       []string

	Attachments        []Attachment
	LoadingAttachments []*Upload

	// ParentConversation is the mail replied to or forwarded.
	ParentConversation *Mail
}

// NewMail returns an empty mail to compose.
func NewMail() *Mail {
	return &Mail{}
}

func mailFromAPI(a api.Mail, users *Users) *Mail {
	m := &Mail{}
	m.update(a, users)
	return m
}

func (m *Mail) update(a api.Mail, users *Users) {
	m.ID = a.ID
	m.Date = strconv.FormatInt(a.Date, 10)
	m.Subject = a.Subject
	m.Body = a.Body
	m.From = a.From
	m.DisplayNames = slices.Clone(a.DisplayNames)
	m.Unread = a.Unread
	m.State = a.State
	m.ParentID = a.ParentID
	m.ThreadID = a.ThreadID
	m.FromName = a.FromName
	m.ToName = slices.Clone(a.ToName)
	m.To = m.resolve(a.To, users)
	m.Cc = m.resolve(a.Cc, users)

	m.Attachments = make([]Attachment, 0, len(a.Attachments))
	for _, att := range a.Attachments {
		m.Attachments = append(m.Attachments, Attachment(att))
	}
}

// resolve maps ids to users through the mail's display names, then the
// directory. Ids neither knows keep an entry with the id alone.
func (m *Mail) resolve(ids []string, users *Users) []*User {
	out := make([]*User, 0, len(ids))
	for _, id := range ids {
		u := m.Map(id)
		if u == nil && users != nil {
			if d := users.Get(id); d != nil {
				c := *d
				u = &c
			}
		}
		if u == nil {
			u = &User{ID: id}
		}
		if users != nil && users.IsGroup(id) {
			u.IsGroup = true
		}
		out = append(out, u)
	}
	return out
}

// Map resolves id through the mail's display names.
func (m *Mail) Map(id string) *User {
	return MapUser(m.DisplayNames, id)
}

// Sender returns the author of the mail.
func (m *Mail) Sender() *User {
	if u := m.Map(m.From); u != nil {
		return u
	}
	return &User{ID: m.From, DisplayName: m.FromName}
}

// SentDate returns Date as a time. It is the zero time for unsaved mails.
func (m *Mail) SentDate() time.Time {
	ms := m.millis()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (m *Mail) millis() int64 {
	ms, _ := strconv.ParseInt(m.Date, 10, 64)
	return ms
}

// Addressed reports whether id is a direct recipient of m.
func (m *Mail) Addressed(id string) bool {
	return containsUser(m.To, id) || containsUser(m.Cc, id)
}

// SetMailContent prepares m as a reply to or forward of origin. The subject
// gets the translated prefix unless it already carries it, the body quotes
// the origin under the kind's template. With copyReceivers the origin's To
// and Cc are copied as well.
func (m *Mail) SetMailContent(origin *Mail, kind content.Kind, copyReceivers bool, t Translator) {
	key := KeyReply
	if kind == content.Forward {
		key = KeyForward
	}
	m.Subject = content.Prefix(translate(t, key), origin.Subject)
	if copyReceivers {
		m.To = slices.Clone(origin.To)
		m.Cc = slices.Clone(origin.Cc)
	}
	m.Body = content.Quote(kind.Template(), origin.Body)
	m.ParentConversation = origin
}

func (m *Mail) request() api.DraftRequest {
	return api.DraftRequest{
		Subject: m.Subject,
		Body:    m.Body,
		To:      toUsers(m.To),
		Cc:      toUsers(m.Cc),
	}
}

// inReplyTo is the id of the mail m answers, if any.
func (m *Mail) inReplyTo() string {
	if m.ParentConversation != nil {
		return m.ParentConversation.ID
	}
	return m.ParentID
}

func (m *Mail) removeUploads(done []*Upload) {
	m.LoadingAttachments = slices.DeleteFunc(m.LoadingAttachments, func(u *Upload) bool {
		return slices.Contains(done, u)
	})
}
