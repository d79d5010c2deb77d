package conversation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbaliyan/conversation/api"
)

// UserFolder is a folder created by the user. Root folders have no parent
// and a depth of 1.
type UserFolder struct {
	ID             string
	Name           string
	ParentFolderID string
	// Parent is set only when the server reported ParentFolderID as the
	// folder this one was listed under.
	Parent  *UserFolder
	Trashed bool

	// Children holds the sub-folders. It is empty for trashed folders.
	Children *UserFolders

	backend Backend
	mails   *Mails
}

func newUserFolder(b Backend, users *Users, a api.Folder) *UserFolder {
	f := &UserFolder{
		ID:             a.ID,
		Name:           a.Name,
		ParentFolderID: a.ParentID,
		Trashed:        a.Trashed,
		backend:        b,
	}
	f.Children = &UserFolders{backend: b, users: users, parent: f, selected: make(map[string]bool)}
	f.mails = newMails(func(ctx context.Context, page int) ([]api.Mail, error) {
		mails, err := b.ListUserFolderMails(ctx, f.ID, page)
		if err != nil {
			return nil, fmt.Errorf("conversation: list folder %s: %w", f.ID, err)
		}
		return mails, nil
	}, users)
	return f
}

func (f *UserFolder) Mails() *Mails { return f.mails }

// Depth returns 1 for a root folder, 2 for its children and so on.
func (f *UserFolder) Depth() int {
	d := 1
	for p := f.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// IsParentOf reports whether folder is an ancestor of target.
func IsParentOf(folder, target *UserFolder) bool {
	if folder == nil || target == nil {
		return false
	}
	for p := target.Parent; p != nil; p = p.Parent {
		if p.ID == folder.ID {
			return true
		}
	}
	return false
}

// Create creates the folder under ParentFolderID and sets its id.
func (f *UserFolder) Create(ctx context.Context) error {
	id, err := f.backend.CreateFolder(ctx, f.Name, f.ParentFolderID)
	if err != nil {
		return fmt.Errorf("conversation: create folder %q: %w", f.Name, err)
	}
	f.ID = id
	return nil
}

// Update saves the folder name.
func (f *UserFolder) Update(ctx context.Context) error {
	if err := f.backend.RenameFolder(ctx, f.ID, f.Name); err != nil {
		return fmt.Errorf("conversation: rename folder %s: %w", f.ID, err)
	}
	return nil
}

// Trash moves the folder, its sub-folders and their mails to the trash.
func (f *UserFolder) Trash(ctx context.Context) error {
	if err := f.backend.TrashFolder(ctx, f.ID); err != nil {
		return fmt.Errorf("conversation: trash folder %s: %w", f.ID, err)
	}
	f.Trashed = true
	return nil
}

// Restore takes the folder out of the trash.
func (f *UserFolder) Restore(ctx context.Context) error {
	if err := f.backend.RestoreFolder(ctx, f.ID); err != nil {
		return fmt.Errorf("conversation: restore folder %s: %w", f.ID, err)
	}
	f.Trashed = false
	return nil
}

// Delete removes the folder, its sub-folders and their mails for good.
func (f *UserFolder) Delete(ctx context.Context) error {
	if err := f.backend.DeleteFolder(ctx, f.ID); err != nil {
		return fmt.Errorf("conversation: delete folder %s: %w", f.ID, err)
	}
	return nil
}

// UserFolders is a list of sibling folders: the roots, the children of a
// folder, or the trashed folders.
type UserFolders struct {
	backend Backend
	users   *Users
	parent  *UserFolder
	trash   bool

	mu       sync.Mutex
	all      []*UserFolder
	selected map[string]bool
}

func newUserFolders(b Backend, users *Users, trash bool) *UserFolders {
	return &UserFolders{backend: b, users: users, trash: trash, selected: make(map[string]bool)}
}

// Sync reloads the list and, outside the trash, every sub-folder below it.
func (fs *UserFolders) Sync(ctx context.Context) error {
	parentID := ""
	if fs.parent != nil {
		parentID = fs.parent.ID
	}
	raw, err := fs.backend.ListFolders(ctx, parentID, fs.trash)
	if err != nil {
		return fmt.Errorf("conversation: list folders: %w", err)
	}

	folders := make([]*UserFolder, 0, len(raw))
	for _, a := range raw {
		f := newUserFolder(fs.backend, fs.users, a)
		if fs.parent != nil {
			if a.ID == fs.parent.ID || IsParentOf(f, fs.parent) {
				continue
			}
			if a.ParentID == fs.parent.ID {
				f.Parent = fs.parent
			}
		}
		folders = append(folders, f)
	}

	if !fs.trash {
		g, gctx := errgroup.WithContext(ctx)
		for _, f := range folders {
			g.Go(func() error { return f.Children.Sync(gctx) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.all = folders
	for id := range fs.selected {
		if !slices.ContainsFunc(folders, func(f *UserFolder) bool { return f.ID == id }) {
			delete(fs.selected, id)
		}
	}
	return nil
}

// All returns the folders of the list.
func (fs *UserFolders) All() []*UserFolder {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Clone(fs.all)
}

// Find returns the folder with the given id in the list or below it.
func (fs *UserFolders) Find(id string) *UserFolder {
	for _, f := range fs.All() {
		if f.ID == id {
			return f
		}
		if found := f.Children.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Add appends f to the list.
func (fs *UserFolders) Add(f *UserFolder) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.all = append(fs.all, f)
}

// Remove drops the folder id from the list.
func (fs *UserFolders) Remove(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.all = slices.DeleteFunc(fs.all, func(f *UserFolder) bool { return f.ID == id })
	delete(fs.selected, id)
}

// Select marks or unmarks the folder id.
func (fs *UserFolders) Select(id string, selected bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if selected {
		fs.selected[id] = true
	} else {
		delete(fs.selected, id)
	}
}

// SelectAll marks every folder of the list, or none.
func (fs *UserFolders) SelectAll(selected bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	clear(fs.selected)
	if !selected {
		return
	}
	for _, f := range fs.all {
		fs.selected[f.ID] = true
	}
}

// Selection returns the marked folders in list order.
func (fs *UserFolders) Selection() []*UserFolder {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []*UserFolder
	for _, f := range fs.all {
		if fs.selected[f.ID] {
			out = append(out, f)
		}
	}
	return out
}
