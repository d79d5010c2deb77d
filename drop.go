package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rbaliyan/conversation/api"
)

type dragItem struct {
	ID string `json:"id"`
}

// DragPayload returns the drag data of m.
func DragPayload(m *Mail) ([]byte, error) {
	return json.Marshal(dragItem{ID: m.ID})
}

// DropTarget is where a mail is dropped: the trash, named by FolderName,
// or a user folder.
type DropTarget struct {
	FolderName string
	Folder     *UserFolder
}

// Accepts reports whether mails can be dropped on t.
func (t DropTarget) Accepts() bool {
	return t.FolderName == api.FolderTrash || (t.FolderName == "" && t.Folder != nil)
}

// DropTo trashes the dragged mail when dropped on the trash and moves it
// into the target folder otherwise.
func (ctl *Controller) DropTo(ctx context.Context, target DropTarget, payload []byte) error {
	var item dragItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if item.ID == "" {
		return ErrInvalidPayload
	}

	m := &Mail{ID: item.ID}
	if target.FolderName == api.FolderTrash {
		return ctl.c.TrashMails(ctx, m)
	}
	if target.Folder == nil {
		return fmt.Errorf("%w: %s", ErrUnknownFolder, target.FolderName)
	}
	return ctl.c.Move(ctx, target.Folder, m)
}
