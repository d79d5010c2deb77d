package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbaliyan/conversation/api"
)

// Conversation is the mailbox of the signed-in user: its system folders,
// its folder tree, the directory and the quota. Exactly one folder is open
// at a time.
type Conversation struct {
	backend  Backend
	opts     *options
	logger   *slog.Logger
	notifier Notifier

	Inbox       *Inbox
	Outbox      *SystemFolder
	Drafts      *DraftFolder
	Trash       *TrashFolder
	UserFolders *UserFolders
	Users       *Users
	Quota       *Quota

	mu       sync.Mutex
	current  Folder
	cancel   context.CancelFunc
	maxDepth int
}

// New returns the mailbox of the user set with WithMe. Nothing is fetched
// until Sync.
func New(b Backend, opts ...Option) (*Conversation, error) {
	if b == nil {
		return nil, ErrBackendRequired
	}
	o := newOptions(opts...)
	if o.me == "" {
		return nil, ErrMeRequired
	}

	c := &Conversation{
		backend:  b,
		opts:     o,
		logger:   o.logger,
		notifier: o.notifier,
		maxDepth: DefaultMaxFolderDepth,
	}
	c.Users = newUsers(b)
	c.Quota = newQuota(b, o.me)
	c.Inbox = &Inbox{SystemFolder: newSystemFolder(api.FolderInbox, b, c.Users), backend: b}
	c.Outbox = newSystemFolder(api.FolderOutbox, b, c.Users)
	c.Drafts = &DraftFolder{SystemFolder: newSystemFolder(api.FolderDraft, b, c.Users), c: c}
	c.Trash = &TrashFolder{
		SystemFolder: newSystemFolder(api.FolderTrash, b, c.Users),
		c:            c,
		folders:      newUserFolders(b, c.Users, true),
	}
	c.UserFolders = newUserFolders(b, c.Users, false)
	return c, nil
}

// Me returns the id of the signed-in user.
func (c *Conversation) Me() string { return c.opts.me }

// Translate returns the user-facing text of key.
func (c *Conversation) Translate(key string) string {
	return translate(c.opts.translator, key)
}

// Translator returns the translator in use.
func (c *Conversation) Translator() Translator { return c.opts.translator }

// Sync loads the folder tree, the directory, the quota, the unread count
// and the folder depth limit, then opens the inbox if no folder is open.
func (c *Conversation) Sync(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.UserFolders.Sync(gctx) })
	g.Go(func() error { return c.Users.Sync(gctx) })
	g.Go(func() error { return c.Quota.Refresh(gctx) })
	g.Go(func() error { return c.Inbox.CountUnread(gctx) })
	g.Go(func() error { return c.syncMaxDepth(gctx) })
	if err := g.Wait(); err != nil {
		c.logger.Error("sync failed", "user_id", c.Me(), "error", err)
		return err
	}

	if c.CurrentFolder() == nil {
		return c.OpenFolder(ctx, api.FolderInbox)
	}
	return nil
}

func (c *Conversation) syncMaxDepth(ctx context.Context) error {
	n, err := c.backend.MaxDepth(ctx)
	if err != nil {
		return fmt.Errorf("conversation: max depth: %w", err)
	}
	c.mu.Lock()
	c.maxDepth = n
	c.mu.Unlock()
	return nil
}

// MaxFolderDepth returns how deep user folders may nest.
func (c *Conversation) MaxFolderDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxDepth
}

// SystemFolder returns the system folder called name, ignoring case.
func (c *Conversation) SystemFolder(name string) (Folder, error) {
	switch strings.ToLower(name) {
	case api.FolderInbox:
		return c.Inbox, nil
	case api.FolderOutbox:
		return c.Outbox, nil
	case api.FolderDraft:
		return c.Drafts, nil
	case api.FolderTrash:
		return c.Trash, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFolder, name)
}

// SystemFolders returns inbox, outbox, drafts and trash.
func (c *Conversation) SystemFolders() []Folder {
	return []Folder{c.Inbox, c.Outbox, c.Drafts, c.Trash}
}

// OpenFolder makes the system folder name current and loads its first page.
func (c *Conversation) OpenFolder(ctx context.Context, name string) error {
	f, err := c.SystemFolder(name)
	if err != nil {
		return err
	}
	return c.open(ctx, f)
}

// OpenUserFolder makes f current and loads its first page.
func (c *Conversation) OpenUserFolder(ctx context.Context, f *UserFolder) error {
	return c.open(ctx, f)
}

// open switches the current folder and cancels the load of the previous
// one.
func (c *Conversation) open(ctx context.Context, f Folder) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	navCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.current = f
	c.mu.Unlock()
	defer cancel()

	var err error
	if f == Folder(c.Trash) {
		g, gctx := errgroup.WithContext(navCtx)
		g.Go(func() error { return f.Mails().Refresh(gctx) })
		g.Go(func() error { return c.Trash.folders.Sync(gctx) })
		err = g.Wait()
	} else {
		err = f.Mails().Refresh(navCtx)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// Another folder was opened meanwhile.
		return nil
	}
	return err
}

// CurrentFolder returns the open folder, nil before the first open.
func (c *Conversation) CurrentFolder() Folder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// InTrash reports whether the trash is the open folder.
func (c *Conversation) InTrash() bool {
	return c.CurrentFolder() == Folder(c.Trash)
}

// RefreshCurrent reloads the first page of the open folder.
func (c *Conversation) RefreshCurrent(ctx context.Context) error {
	f := c.CurrentFolder()
	if f == nil {
		return nil
	}
	return f.Mails().Refresh(ctx)
}

func (c *Conversation) currentMails() *Mails {
	if f := c.CurrentFolder(); f != nil {
		return f.Mails()
	}
	return nil
}
