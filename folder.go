package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rbaliyan/conversation/api"
)

// Folder is anything whose mails can be listed: a system folder or a user
// folder.
type Folder interface {
	Mails() *Mails
}

// SystemFolder is one of inbox, outbox, draft and trash.
type SystemFolder struct {
	name  string
	mails *Mails
}

func newSystemFolder(name string, b Backend, users *Users) *SystemFolder {
	fetch := func(ctx context.Context, page int) ([]api.Mail, error) {
		mails, err := b.ListMails(ctx, name, page)
		if err != nil {
			return nil, fmt.Errorf("conversation: list %s: %w", name, err)
		}
		return mails, nil
	}
	return &SystemFolder{name: name, mails: newMails(fetch, users)}
}

// Name returns the folder name, as used by OpenFolder.
func (f *SystemFolder) Name() string { return f.name }

func (f *SystemFolder) Mails() *Mails { return f.mails }

// Inbox is the system folder of received mails.
type Inbox struct {
	*SystemFolder
	backend Backend
	unread  atomic.Int64
}

// CountUnread reloads the number of unread mails.
func (f *Inbox) CountUnread(ctx context.Context) error {
	n, err := f.backend.CountUnread(ctx, strings.ToUpper(api.FolderInbox))
	if err != nil {
		return fmt.Errorf("conversation: count unread: %w", err)
	}
	f.unread.Store(n)
	return nil
}

// Unread returns the last known number of unread mails.
func (f *Inbox) Unread() int64 {
	return f.unread.Load()
}

func (f *Inbox) addUnread(n int64) {
	f.unread.Add(n)
}

// DraftFolder holds the mails being written.
type DraftFolder struct {
	*SystemFolder
	c *Conversation
}

// SaveDraft saves m and shows it in the folder.
func (f *DraftFolder) SaveDraft(ctx context.Context, m *Mail) error {
	if err := f.c.SaveAsDraft(ctx, m); err != nil {
		return err
	}
	f.mails.Push(m)
	return nil
}

// Transfer saves the forward m, then copies the attachments of the mail it
// forwards into it.
func (f *DraftFolder) Transfer(ctx context.Context, m *Mail) error {
	if err := f.SaveDraft(ctx, m); err != nil {
		return err
	}
	origin := m.ParentConversation
	if origin == nil || origin.ID == "" {
		return nil
	}

	fwd, err := f.c.backend.Forward(ctx, m.ID, origin.ID)
	if err != nil {
		return fmt.Errorf("conversation: forward %s: %w", origin.ID, err)
	}
	m.Attachments = m.Attachments[:0]
	for _, a := range fwd.Attachments {
		m.Attachments = append(m.Attachments, Attachment(a))
	}
	return f.c.Quota.Refresh(ctx)
}

// TrashFolder holds trashed mails and trashed user folders.
type TrashFolder struct {
	*SystemFolder
	c       *Conversation
	folders *UserFolders
}

// UserFolders returns the trashed folders whose parent is not trashed.
func (f *TrashFolder) UserFolders() *UserFolders {
	return f.folders
}

// RestoreMails puts mails back where they were trashed from.
func (f *TrashFolder) RestoreMails(ctx context.Context, mails []*Mail) error {
	if len(mails) == 0 {
		return nil
	}
	ids := mailIDs(mails)
	if err := f.c.backend.Restore(ctx, ids); err != nil {
		return fmt.Errorf("conversation: restore: %w", err)
	}
	f.mails.Remove(ids...)
	return nil
}

// RemoveMails deletes mails for good.
func (f *TrashFolder) RemoveMails(ctx context.Context, mails []*Mail) error {
	if len(mails) == 0 {
		return nil
	}
	ids := mailIDs(mails)
	if err := f.c.backend.Delete(ctx, ids); err != nil {
		return fmt.Errorf("conversation: delete: %w", err)
	}
	f.mails.Remove(ids...)
	return f.c.Quota.Refresh(ctx)
}
