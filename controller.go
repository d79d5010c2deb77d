package conversation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/content"
)

// Views a Controller can show.
const (
	ViewInbox     = api.FolderInbox
	ViewOutbox    = api.FolderOutbox
	ViewDraft     = api.FolderDraft
	ViewTrash     = api.FolderTrash
	ViewFolder    = "folder"
	ViewReadMail  = "read-mail"
	ViewViewMail  = "view-mail"
	ViewWriteMail = "write-mail"
)

// Controller holds the state of a mail screen on top of a Conversation:
// the view shown, the mail being read, the mail being written, the user
// search results, the select-all switch and the sort order.
//
// State accessors are safe for concurrent use. Actions are meant to be
// issued one at a time, like the events of a user interface.
type Controller struct {
	c *Conversation

	mu        sync.Mutex
	view      string
	mail      *Mail
	newItem   *Mail
	found     []*User
	foundCC   []*User
	selectAll bool
	sort      Sort
}

// NewController returns a controller showing the inbox view.
func NewController(c *Conversation) *Controller {
	ctl := &Controller{c: c, sort: Sort{Key: SortDate, Reverse: true}}
	ctl.openView(ViewInbox)
	return ctl
}

// Conversation returns the controlled conversation.
func (ctl *Controller) Conversation() *Conversation { return ctl.c }

// View returns the view shown.
func (ctl *Controller) View() string {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.view
}

// Mail returns the mail being read, if any.
func (ctl *Controller) Mail() *Mail {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.mail
}

// NewItem returns the mail being written.
func (ctl *Controller) NewItem() *Mail {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.newItem
}

// Found returns the last To search results.
func (ctl *Controller) Found() []*User {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return slices.Clone(ctl.found)
}

// FoundCC returns the last Cc search results.
func (ctl *Controller) FoundCC() []*User {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return slices.Clone(ctl.foundCC)
}

// SelectAll reports whether the select-all switch is on.
func (ctl *Controller) SelectAll() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.selectAll
}

// Sort returns the sort order.
func (ctl *Controller) Sort() Sort {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.sort
}

// openView switches view and starts a fresh mail to write.
func (ctl *Controller) openView(view string) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.view = view
	ctl.found = nil
	ctl.foundCC = nil
	ctl.newItem = NewMail()
	ctl.selectAll = false
}

func (ctl *Controller) setMail(m *Mail) {
	ctl.mu.Lock()
	ctl.mail = m
	ctl.mu.Unlock()
}

func (ctl *Controller) currentMail() (*Mail, error) {
	m := ctl.Mail()
	if m == nil {
		return nil, ErrNoCurrentMail
	}
	return m, nil
}

// OpenFolder shows the system folder name. An empty name reopens the
// current folder.
func (ctl *Controller) OpenFolder(ctx context.Context, name string) error {
	if name == "" {
		switch f := ctl.c.CurrentFolder().(type) {
		case *UserFolder:
			return ctl.OpenUserFolder(ctx, f)
		case interface{ Name() string }:
			name = f.Name()
		default:
			name = api.FolderInbox
		}
	}
	if _, err := ctl.c.SystemFolder(name); err != nil {
		return err
	}
	ctl.setMail(nil)
	ctl.openView(name)
	return ctl.c.OpenFolder(ctx, name)
}

// OpenUserFolder shows f, loading its sub-folders and first page.
func (ctl *Controller) OpenUserFolder(ctx context.Context, f *UserFolder) error {
	ctl.setMail(nil)
	ctl.openView(ViewFolder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.Children.Sync(gctx) })
	g.Go(func() error { return ctl.c.OpenUserFolder(gctx, f) })
	return g.Wait()
}

// setCurrent makes m the mail read and, unless doNotSelect, the only one
// selected.
func (ctl *Controller) setCurrent(m *Mail, doNotSelect bool) {
	if ms := ctl.c.currentMails(); ms != nil {
		ms.SelectAll(false)
		if !doNotSelect {
			ms.Select(m.ID, true)
		}
	}
	ctl.setMail(m)
}

// ReadMail shows a received mail.
func (ctl *Controller) ReadMail(ctx context.Context, m *Mail) error {
	ctl.openView(ViewReadMail)
	ctl.setCurrent(m, true)
	return ctl.c.Open(ctx, m)
}

// ViewMail shows a sent mail.
func (ctl *Controller) ViewMail(ctx context.Context, m *Mail) error {
	ctl.openView(ViewViewMail)
	ctl.setCurrent(m, false)
	return ctl.c.Open(ctx, m)
}

// EditDraft opens the draft m for writing.
func (ctl *Controller) EditDraft(ctx context.Context, m *Mail) error {
	ctl.openView(ViewWriteMail)
	if err := ctl.c.Open(ctx, m); err != nil {
		return err
	}
	ctl.mu.Lock()
	ctl.newItem = m
	ctl.mu.Unlock()
	return nil
}

// VariableMailAction edits drafts, views sent mails and reads the others.
func (ctl *Controller) VariableMailAction(ctx context.Context, m *Mail) error {
	switch SystemFolderOf(m, ctl.c.Me()) {
	case ClassDraft:
		return ctl.EditDraft(ctx, m)
	case ClassOutbox:
		return ctl.ViewMail(ctx, m)
	default:
		return ctl.ReadMail(ctx, m)
	}
}

// Reply starts an answer to the sender of the mail being read.
func (ctl *Controller) Reply() error {
	m, err := ctl.currentMail()
	if err != nil {
		return err
	}
	ctl.openView(ViewWriteMail)
	item := ctl.NewItem()
	item.SetMailContent(m, content.Reply, false, ctl.c.Translator())
	ctl.AddUser(m.Sender())
	return nil
}

// ReplyAll starts an answer to the sender and every recipient of the mail
// being read, except the signed-in user.
func (ctl *Controller) ReplyAll() error {
	m, err := ctl.currentMail()
	if err != nil {
		return err
	}
	ctl.openView(ViewWriteMail)
	item := ctl.NewItem()
	item.SetMailContent(m, content.Reply, true, ctl.c.Translator())

	me := ctl.c.Me()
	item.To = slices.DeleteFunc(item.To, func(u *User) bool { return u.ID == me })
	item.Cc = slices.DeleteFunc(item.Cc, func(u *User) bool {
		return u.ID == me || containsUser(item.To, u.ID)
	})
	if sender := m.Sender(); !containsUser(item.To, sender.ID) {
		ctl.AddUser(sender)
	}
	return nil
}

// Transfer starts a forward of the mail being read and saves it with the
// forwarded attachments.
func (ctl *Controller) Transfer(ctx context.Context) error {
	m, err := ctl.currentMail()
	if err != nil {
		return err
	}
	ctl.openView(ViewWriteMail)
	item := ctl.NewItem()
	item.SetMailContent(m, content.Forward, false, ctl.c.Translator())
	return ctl.c.Drafts.Transfer(ctx, item)
}

// SaveDraft saves the mail being written and shows the drafts.
func (ctl *Controller) SaveDraft(ctx context.Context) error {
	if err := ctl.c.Drafts.SaveDraft(ctx, ctl.NewItem()); err != nil {
		return err
	}
	return ctl.OpenFolder(ctx, api.FolderDraft)
}

// SendMail sends the mail being written and shows the outbox.
func (ctl *Controller) SendMail(ctx context.Context) (SendReport, error) {
	report, err := ctl.c.Send(ctx, ctl.NewItem())
	if err != nil {
		return report, err
	}
	return report, ctl.OpenFolder(ctx, api.FolderOutbox)
}

// Restore takes the selected mails and folders out of the trash.
func (ctl *Controller) Restore(ctx context.Context) error {
	trash := ctl.c.Trash
	var errs []error
	if sel := trash.Mails().Selection(); len(sel) > 0 {
		errs = append(errs, trash.RestoreMails(ctx, sel))
	}
	errs = append(errs, ctl.eachFolder(ctx, trash.UserFolders().Selection(), (*UserFolder).Restore, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return trash.UserFolders().Sync(gctx) })
		g.Go(func() error { return ctl.RefreshFolders(gctx) })
		return g.Wait()
	}))
	return errors.Join(errs...)
}

// RemoveSelection trashes the selected mails and folders of the current
// folder, or deletes them for good when the trash is open.
func (ctl *Controller) RemoveSelection(ctx context.Context) error {
	var errs []error
	if ms := ctl.c.currentMails(); ms != nil {
		if sel := ms.Selection(); len(sel) > 0 {
			errs = append(errs, ctl.c.Remove(ctx, sel...))
		}
	}

	folders := ctl.currentUserFolders()
	if folders == nil {
		return errors.Join(errs...)
	}
	action := (*UserFolder).Trash
	if ctl.c.InTrash() {
		action = (*UserFolder).Delete
	}
	errs = append(errs, ctl.eachFolder(ctx, folders.Selection(), action, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return folders.Sync(gctx) })
		g.Go(func() error { return ctl.RefreshFolders(gctx) })
		g.Go(func() error { return ctl.c.Quota.Refresh(gctx) })
		return g.Wait()
	}))
	return errors.Join(errs...)
}

// eachFolder runs action on every folder in parallel, then done once all
// of them have finished.
func (ctl *Controller) eachFolder(ctx context.Context, folders []*UserFolder, action func(*UserFolder, context.Context) error, done func() error) error {
	if len(folders) == 0 {
		return nil
	}
	var doneErr error
	launcher := NewLauncher(len(folders), func() { doneErr = done() })

	var g errgroup.Group
	for _, f := range folders {
		g.Go(func() error {
			defer launcher.Launch()
			return action(f, ctx)
		})
	}
	return errors.Join(g.Wait(), doneErr)
}

// currentUserFolders returns the folder list shown with the current
// folder: the sub-folders of a user folder or the trashed folders.
func (ctl *Controller) currentUserFolders() *UserFolders {
	switch f := ctl.c.CurrentFolder().(type) {
	case *UserFolder:
		return f.Children
	case *TrashFolder:
		return f.UserFolders()
	}
	return nil
}

// RemoveFromUserFolder takes the selected mails out of the current user
// folder.
func (ctl *Controller) RemoveFromUserFolder(ctx context.Context) error {
	ms := ctl.c.currentMails()
	if ms == nil {
		return nil
	}
	return ctl.c.RemoveFromFolder(ctx, ms.Selection()...)
}

// NextPage loads one more page of the current folder.
func (ctl *Controller) NextPage(ctx context.Context) error {
	ms := ctl.c.currentMails()
	if ms == nil {
		return nil
	}
	return ms.NextPage(ctx)
}

// Refresh reloads the current folder and the unread count.
func (ctl *Controller) Refresh(ctx context.Context) error {
	ctl.c.notifier.Info(ctl.c.Translate(KeyUpdating))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.c.RefreshCurrent(gctx) })
	g.Go(func() error { return ctl.c.Inbox.CountUnread(gctx) })
	return g.Wait()
}

// SwitchSelectAll flips the select-all switch and applies it to the mails
// and folders of the current folder.
func (ctl *Controller) SwitchSelectAll() {
	ctl.mu.Lock()
	ctl.selectAll = !ctl.selectAll
	on := ctl.selectAll
	ctl.mu.Unlock()

	if ms := ctl.c.currentMails(); ms != nil {
		ms.SelectAll(on)
	}
	if fs := ctl.currentUserFolders(); fs != nil {
		fs.SelectAll(on)
	}
}

// MoveMessages files the selected mails into dest.
func (ctl *Controller) MoveMessages(ctx context.Context, dest *UserFolder) error {
	ms := ctl.c.currentMails()
	if ms == nil {
		return ErrNoSelection
	}
	return ctl.c.Move(ctx, dest, ms.Selection()...)
}

// RefreshFolders reloads the folder tree.
func (ctl *Controller) RefreshFolders(ctx context.Context) error {
	return ctl.c.UserFolders.Sync(ctx)
}

// CreateFolder creates a folder under parent, or at the root when parent
// is nil, and reloads the tree.
func (ctl *Controller) CreateFolder(ctx context.Context, name string, parent *UserFolder) (*UserFolder, error) {
	a := api.Folder{Name: name}
	if parent != nil {
		if parent.Depth() >= ctl.c.MaxFolderDepth() {
			return nil, ErrMaxDepth
		}
		a.ParentID = parent.ID
	}
	f := newUserFolder(ctl.c.backend, ctl.c.Users, a)
	if err := f.Create(ctx); err != nil {
		return nil, ctl.c.fail(err)
	}
	if err := ctl.RefreshFolders(ctx); err != nil {
		return f, err
	}
	if synced := ctl.c.UserFolders.Find(f.ID); synced != nil {
		return synced, nil
	}
	return f, nil
}

// RenameFolder renames f.
func (ctl *Controller) RenameFolder(ctx context.Context, f *UserFolder, name string) error {
	old := f.Name
	f.Name = name
	if err := f.Update(ctx); err != nil {
		f.Name = old
		return ctl.c.fail(err)
	}
	return nil
}

// TrashFolder trashes f and shows the trash.
func (ctl *Controller) TrashFolder(ctx context.Context, f *UserFolder) error {
	if err := f.Trash(ctx); err != nil {
		return ctl.c.fail(err)
	}
	if err := ctl.RefreshFolders(ctx); err != nil {
		return err
	}
	return ctl.OpenFolder(ctx, api.FolderTrash)
}

// RestoreFolder takes f out of the trash.
func (ctl *Controller) RestoreFolder(ctx context.Context, f *UserFolder) error {
	if err := f.Restore(ctx); err != nil {
		return ctl.c.fail(err)
	}
	ctl.c.Trash.UserFolders().Remove(f.ID)
	return ctl.RefreshFolders(ctx)
}

// DeleteFolder deletes f, its sub-folders and their mails.
func (ctl *Controller) DeleteFolder(ctx context.Context, f *UserFolder) error {
	if err := f.Delete(ctx); err != nil {
		return ctl.c.fail(err)
	}
	ctl.c.Trash.UserFolders().Remove(f.ID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.RefreshFolders(gctx) })
	g.Go(func() error { return ctl.c.Quota.Refresh(gctx) })
	return g.Wait()
}

// PostAttachments uploads files to the mail being written.
func (ctl *Controller) PostAttachments(ctx context.Context, files []File) error {
	return ctl.c.PostAttachments(ctx, ctl.NewItem(), files)
}

// DeleteAttachment removes an attachment from m.
func (ctl *Controller) DeleteAttachment(ctx context.Context, m *Mail, attachmentID string) error {
	return ctl.c.DeleteAttachment(ctx, m, attachmentID)
}

// AddUser adds u to the To of the mail being written.
func (ctl *Controller) AddUser(u *User) {
	if u == nil {
		return
	}
	item := ctl.NewItem()
	item.To = append(item.To, u)
}

// RemoveUser removes u from the To of the mail being written.
func (ctl *Controller) RemoveUser(u *User) {
	item := ctl.NewItem()
	item.To = slices.DeleteFunc(item.To, func(x *User) bool { return x.ID == u.ID })
}

// AddCCUser adds u to the Cc of the mail being written.
func (ctl *Controller) AddCCUser(u *User) {
	if u == nil {
		return
	}
	item := ctl.NewItem()
	item.Cc = append(item.Cc, u)
}

// RemoveCCUser removes u from the Cc of the mail being written.
func (ctl *Controller) RemoveCCUser(u *User) {
	item := ctl.NewItem()
	item.Cc = slices.DeleteFunc(item.Cc, func(x *User) bool { return x.ID == u.ID })
}

// UpdateFoundUsers searches recipients for To. The parties of the mail
// being read are searched too; users already in To are left out.
func (ctl *Controller) UpdateFoundUsers(search string) []*User {
	found := ctl.c.Users.FindUser(search, ctl.parties(), ctl.NewItem().To)
	ctl.mu.Lock()
	ctl.found = found
	ctl.mu.Unlock()
	return found
}

// UpdateFoundCCUsers is UpdateFoundUsers for Cc.
func (ctl *Controller) UpdateFoundCCUsers(search string) []*User {
	found := ctl.c.Users.FindUser(search, ctl.parties(), ctl.NewItem().Cc)
	ctl.mu.Lock()
	ctl.foundCC = found
	ctl.mu.Unlock()
	return found
}

func (ctl *Controller) parties() []*User {
	m := ctl.Mail()
	if m == nil {
		return nil
	}
	users := make([]*User, 0, len(m.DisplayNames))
	for _, p := range m.DisplayNames {
		users = append(users, &User{ID: p[0], DisplayName: p[1]})
	}
	return users
}

// AllReceivers returns the recipients of m followed by the recipients
// whose account was deleted, known only by name.
func AllReceivers(m *Mail) []*User {
	out := slices.Clone(m.To)
	for _, name := range m.ToName {
		out = append(out, &User{DisplayName: name, Deleted: true})
	}
	return out
}

// FilterUsers returns a filter keeping deleted receivers and the users m
// has a display name for.
func FilterUsers(m *Mail) func(*User) bool {
	return func(u *User) bool {
		if u.Deleted {
			return true
		}
		mapped := m.Map(u.ID)
		return mapped != nil && mapped.DisplayName != ""
	}
}

// CurrentFolderDepth returns the depth of the current user folder, 0 for a
// system folder.
func (ctl *Controller) CurrentFolderDepth() int {
	if f, ok := ctl.c.CurrentFolder().(*UserFolder); ok {
		return f.Depth()
	}
	return 0
}

// SetSort sorts by key, flipping the direction when key is already used.
func (ctl *Controller) SetSort(key SortKey) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.sort.Key == key {
		ctl.sort.Reverse = !ctl.sort.Reverse
		return
	}
	ctl.sort = Sort{Key: key}
}

// SortedMails returns the loaded mails of the current folder in the sort
// order.
func (ctl *Controller) SortedMails() []*Mail {
	ms := ctl.c.currentMails()
	if ms == nil {
		return nil
	}
	mails := ms.All()
	slices.SortStableFunc(mails, ctl.Sort().Compare(ctl.c.Me()))
	return mails
}
