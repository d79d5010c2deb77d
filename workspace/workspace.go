// Package workspace models the document space of a user: folder trees of
// documents, with selection and trashing.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Backend trashes workspace entries on the server.
type Backend interface {
	TrashDocument(ctx context.Context, id string) error
	TrashFolder(ctx context.Context, id string) error
}

// Document is a file of the workspace.
type Document struct {
	ID       string
	Name     string
	Selected bool
}

// Folder holds sub-folders and documents. Selection is tracked with the
// Selected flag of each entry.
type Folder struct {
	ID       string
	Name     string
	Selected bool

	mu        sync.Mutex
	folders   []*Folder
	documents []*Document
}

// NewFolder returns a folder holding folders and documents.
func NewFolder(id, name string, folders []*Folder, documents []*Document) *Folder {
	return &Folder{ID: id, Name: name, folders: folders, documents: documents}
}

// Folders returns the sub-folders.
func (f *Folder) Folders() []*Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.folders)
}

// Documents returns the documents.
func (f *Folder) Documents() []*Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.documents)
}

// ToTrashSelection trashes the selected documents and sub-folders and
// drops them from f. Entries the server refused stay in place and their
// errors are returned.
func (f *Folder) ToTrashSelection(ctx context.Context, b Backend) error {
	f.mu.Lock()
	var docs []*Document
	for _, d := range f.documents {
		if d.Selected {
			docs = append(docs, d)
		}
	}
	var folders []*Folder
	for _, sub := range f.folders {
		if sub.Selected {
			folders = append(folders, sub)
		}
	}
	f.mu.Unlock()

	docErrs := make([]error, len(docs))
	folderErrs := make([]error, len(folders))
	var g errgroup.Group
	for i, d := range docs {
		g.Go(func() error {
			if err := b.TrashDocument(ctx, d.ID); err != nil {
				docErrs[i] = fmt.Errorf("workspace: trash document %s: %w", d.ID, err)
			}
			return nil
		})
	}
	for i, sub := range folders {
		g.Go(func() error {
			if err := b.TrashFolder(ctx, sub.ID); err != nil {
				folderErrs[i] = fmt.Errorf("workspace: trash folder %s: %w", sub.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = slices.DeleteFunc(f.documents, func(d *Document) bool {
		i := slices.Index(docs, d)
		return i >= 0 && docErrs[i] == nil
	})
	f.folders = slices.DeleteFunc(f.folders, func(sub *Folder) bool {
		i := slices.Index(folders, sub)
		return i >= 0 && folderErrs[i] == nil
	})
	return errors.Join(append(docErrs, folderErrs...)...)
}

// TreeKind names the root trees of a workspace.
type TreeKind string

const (
	MyDocuments  TreeKind = "mydocuments"
	Shared       TreeKind = "shared"
	AppDocuments TreeKind = "appDocuments"
	Trash        TreeKind = "trash"
)

// Tree is a root of the workspace and its top-level folders.
type Tree struct {
	Kind TreeKind
	Name string
	Root *Folder
}

// Workspace is the set of trees of one user.
type Workspace struct {
	backend Backend
	trees   []*Tree
}

// New returns a workspace with an empty tree of each kind.
func New(b Backend) *Workspace {
	w := &Workspace{backend: b}
	for _, kind := range []TreeKind{MyDocuments, Shared, AppDocuments, Trash} {
		w.trees = append(w.trees, &Tree{Kind: kind, Name: string(kind), Root: NewFolder("", string(kind), nil, nil)})
	}
	return w
}

// Trees returns the trees in display order.
func (w *Workspace) Trees() []*Tree {
	return slices.Clone(w.trees)
}

// Tree returns the tree of the given kind.
func (w *Workspace) Tree(kind TreeKind) *Tree {
	for _, t := range w.trees {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// TrashSelection trashes the selection of f.
func (w *Workspace) TrashSelection(ctx context.Context, f *Folder) error {
	return f.ToTrashSelection(ctx, w.backend)
}
