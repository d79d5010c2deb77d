package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
)

// ListFolders returns the user folders directly under parentID (root when
// empty). With trash set it returns the folders sitting at the top of the
// trash instead: trashed folders whose parent is not trashed.
func (m *Mailbox) ListFolders(ctx context.Context, parentID string, trash bool) ([]*store.Folder, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	all, err := m.s.store.ListFolders(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("mailbox: list folders: %w", err)
	}

	byID := make(map[string]*store.Folder, len(all))
	for _, f := range all {
		byID[f.ID] = f
	}

	out := make([]*store.Folder, 0)
	for _, f := range all {
		if trash {
			parent := byID[f.ParentID]
			if f.Trashed && (parent == nil || !parent.Trashed) {
				out = append(out, f)
			}
			continue
		}
		if !f.Trashed && f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out, nil
}

// folder loads one of the user's folders.
func (m *Mailbox) folder(ctx context.Context, id string) (*store.Folder, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	f, err := m.s.store.GetFolder(ctx, id)
	if err != nil {
		if store.IsNotFound(err) || store.IsInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mailbox: get folder: %w", err)
	}
	if f.OwnerID != m.userID {
		return nil, ErrNotFound
	}
	return f, nil
}

// CreateFolder creates a folder under parentID, or at the root when
// parentID is empty.
func (m *Mailbox) CreateFolder(ctx context.Context, name, parentID string) (f *store.Folder, err error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	ctx, end := m.start(ctx, "create_folder")
	defer func() { end(err) }()

	if name, err = m.s.opts.validateFolderName(name); err != nil {
		return nil, err
	}

	depth := 1
	if parentID != "" {
		parent, perr := m.folder(ctx, parentID)
		if perr != nil {
			return nil, perr
		}
		if parent.Trashed {
			return nil, ErrFolderTrashed
		}
		depth = parent.Depth + 1
	}
	if depth > m.s.opts.maxFolderDepth {
		return nil, ErrMaxDepthExceeded
	}

	f, err = m.s.store.CreateFolder(ctx, &store.Folder{
		OwnerID:  m.userID,
		Name:     name,
		ParentID: parentID,
		Depth:    depth,
	})
	if err != nil {
		return nil, fmt.Errorf("mailbox: create folder: %w", err)
	}
	return f, nil
}

// RenameFolder renames a folder.
func (m *Mailbox) RenameFolder(ctx context.Context, id, name string) (*store.Folder, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	name, err := m.s.opts.validateFolderName(name)
	if err != nil {
		return nil, err
	}
	f, err := m.folder(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Name = name
	f.UpdatedAt = time.Now().UTC()
	if err := m.s.store.UpdateFolder(ctx, f); err != nil {
		return nil, fmt.Errorf("mailbox: rename folder: %w", err)
	}
	return f, nil
}

// subtree returns root followed by every folder below it.
func (m *Mailbox) subtree(ctx context.Context, root *store.Folder) ([]*store.Folder, error) {
	all, err := m.s.store.ListFolders(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("mailbox: list folders: %w", err)
	}
	children := make(map[string][]*store.Folder)
	for _, f := range all {
		if f.ParentID != "" {
			children[f.ParentID] = append(children[f.ParentID], f)
		}
	}

	out := []*store.Folder{root}
	seen := map[string]bool{root.ID: true}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i].ID] {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func folderIDs(fs []*store.Folder) []string {
	ids := make([]string, len(fs))
	for i, f := range fs {
		ids[i] = f.ID
	}
	return ids
}

// TrashFolder moves a folder and everything below it to the trash. The
// messages filed there follow their folder.
func (m *Mailbox) TrashFolder(ctx context.Context, id string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "trash_folder", attribute.String("folder_id", id))
	defer func() { end(err) }()

	f, err := m.folder(ctx, id)
	if err != nil {
		return err
	}
	tree, err := m.subtree(ctx, f)
	if err != nil {
		return err
	}
	if _, err = m.s.store.SetFoldersTrashed(ctx, m.userID, folderIDs(tree), true); err != nil {
		return fmt.Errorf("mailbox: trash folder: %w", err)
	}
	return nil
}

// RestoreFolder brings a trashed folder and everything below it back. A
// folder whose parent is still in the trash is restored at the root.
func (m *Mailbox) RestoreFolder(ctx context.Context, id string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "restore_folder", attribute.String("folder_id", id))
	defer func() { end(err) }()

	f, err := m.folder(ctx, id)
	if err != nil {
		return err
	}
	if !f.Trashed {
		return ErrNotInTrash
	}

	if f.ParentID != "" {
		parent, perr := m.folder(ctx, f.ParentID)
		if perr != nil && !store.IsNotFound(perr) {
			return perr
		}
		if perr != nil || parent.Trashed {
			if err = m.detach(ctx, f); err != nil {
				return err
			}
		}
	}

	tree, err := m.subtree(ctx, f)
	if err != nil {
		return err
	}
	if _, err = m.s.store.SetFoldersTrashed(ctx, m.userID, folderIDs(tree), false); err != nil {
		return fmt.Errorf("mailbox: restore folder: %w", err)
	}
	return nil
}

// detach moves f to the root and recomputes the depth of its subtree.
func (m *Mailbox) detach(ctx context.Context, f *store.Folder) error {
	f.ParentID = ""
	tree, err := m.subtree(ctx, f)
	if err != nil {
		return err
	}

	depth := map[string]int{f.ID: 1}
	now := time.Now().UTC()
	for _, c := range tree {
		d := depth[c.ParentID] + 1
		if c.ID == f.ID {
			d = 1
			c.ParentID = ""
		}
		depth[c.ID] = d
		c.Depth = d
		c.UpdatedAt = now
		if err := m.s.store.UpdateFolder(ctx, c); err != nil {
			return fmt.Errorf("mailbox: detach folder: %w", err)
		}
	}
	return nil
}

// DeleteFolder permanently deletes a folder, its sub-folders and every
// message filed in them.
func (m *Mailbox) DeleteFolder(ctx context.Context, id string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "delete_folder", attribute.String("folder_id", id))
	defer func() { end(err) }()

	f, err := m.folder(ctx, id)
	if err != nil {
		return err
	}
	tree, err := m.subtree(ctx, f)
	if err != nil {
		return err
	}
	ids := folderIDs(tree)

	msgs, err := m.s.store.FolderMessages(ctx, m.userID, ids)
	if err != nil {
		return fmt.Errorf("mailbox: folder messages: %w", err)
	}
	if _, err = m.s.deleteCopies(ctx, msgs); err != nil {
		return err
	}
	if _, err = m.s.store.DeleteFolders(ctx, ids); err != nil {
		return fmt.Errorf("mailbox: delete folders: %w", err)
	}
	m.s.logger.Info("folder deleted", "user_id", m.userID, "folder_id", id, "folders", len(ids), "messages", len(msgs))
	return nil
}

// MoveToFolder files messages into a user folder. Trashed messages are
// restored on the way.
func (m *Mailbox) MoveToFolder(ctx context.Context, folderID string, ids []string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "move_to_folder", attribute.String("folder_id", folderID), attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	f, err := m.folder(ctx, folderID)
	if err != nil {
		return err
	}
	if f.Trashed {
		return ErrFolderTrashed
	}
	return m.file(ctx, ids, folderID)
}

// MoveToRoot takes messages out of their user folder, back into their
// system folder.
func (m *Mailbox) MoveToRoot(ctx context.Context, ids []string) (err error) {
	if err := m.check(); err != nil {
		return err
	}
	ctx, end := m.start(ctx, "move_to_root", attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	return m.file(ctx, ids, "")
}

func (m *Mailbox) file(ctx context.Context, ids []string, folderID string) error {
	msgs, err := m.owned(ctx, ids)
	if err != nil {
		return err
	}
	_, err = m.s.store.UpdateFlags(ctx, m.userID, messageIDs(msgs), store.FlagUpdate{
		Trashed:      store.Bool(false),
		UserFolderID: store.String(folderID),
	})
	if err != nil {
		return fmt.Errorf("mailbox: move messages: %w", err)
	}
	return nil
}

func messageIDs(msgs []*store.Message) []string {
	ids := make([]string, len(msgs))
	for i, msg := range msgs {
		ids[i] = msg.ID
	}
	return ids
}
