package conversation

import (
	"context"
	"io"

	"github.com/rbaliyan/conversation/api"
)

// File is an attachment waiting to be uploaded.
type File struct {
	Name        string
	ContentType string
	// Size is used to report progress. Zero disables progress reporting.
	Size    int64
	Content io.Reader
}

// Backend is the remote mailbox of the signed-in user.
// Implementations must be safe for concurrent use.
type Backend interface {
	// ListMails returns one page of a system folder (inbox, outbox, draft
	// or trash).
	ListMails(ctx context.Context, folder string, page int) ([]api.Mail, error)
	// ListUserFolderMails returns one page of the mails filed directly in
	// a user folder.
	ListUserFolderMails(ctx context.Context, folderID string, page int) ([]api.Mail, error)
	CountUnread(ctx context.Context, folder string) (int64, error)
	// GetMail returns a mail and marks it read.
	GetMail(ctx context.Context, id string) (api.Mail, error)

	CreateDraft(ctx context.Context, req api.DraftRequest, inReplyTo string) (string, error)
	UpdateDraft(ctx context.Context, id string, req api.DraftRequest) error
	// Send sends draftID, or a new message when draftID is empty.
	Send(ctx context.Context, draftID, inReplyTo string, req api.DraftRequest) (api.SendResult, error)

	Trash(ctx context.Context, ids []string) error
	Restore(ctx context.Context, ids []string) error
	Delete(ctx context.Context, ids []string) error

	Visible(ctx context.Context) (api.Visible, error)
	MaxDepth(ctx context.Context) (int, error)
	Quota(ctx context.Context, userID string) (api.Quota, error)
	Person(ctx context.Context, id string) (api.PersonResult, error)

	// ListFolders returns the children of parentID, the root folders when
	// parentID is empty, or the trashed folders when trash is set.
	ListFolders(ctx context.Context, parentID string, trash bool) ([]api.Folder, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	RenameFolder(ctx context.Context, id, name string) error
	TrashFolder(ctx context.Context, id string) error
	RestoreFolder(ctx context.Context, id string) error
	DeleteFolder(ctx context.Context, id string) error
	MoveToFolder(ctx context.Context, folderID string, ids []string) error
	MoveToRoot(ctx context.Context, ids []string) error

	// UploadAttachment adds f to the draft mailID and returns the new
	// attachment id. progress, if not nil, receives percentages from 0
	// to 100.
	UploadAttachment(ctx context.Context, mailID string, f File, progress func(percent int)) (string, error)
	DeleteAttachment(ctx context.Context, mailID, attachmentID string) error
	// Forward copies the attachments of originID into draftID.
	Forward(ctx context.Context, draftID, originID string) (api.Mail, error)
}
