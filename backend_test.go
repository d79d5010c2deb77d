package conversation

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/rbaliyan/conversation/api"
)

// fakeBackend is an in-memory Backend recording every call.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	pages    map[string][][]api.Mail
	mails    map[string]api.Mail
	folders  map[string][]api.Folder
	trashed  []api.Folder
	visible  api.Visible
	persons  map[string]api.Person
	quota    api.Quota
	maxDepth int
	unread   int64
	nextID   int

	sendResult api.SendResult
	sendErr    error
	uploadErr  map[string]error
	forward    api.Mail

	// block, when set, is called by ListMails before answering.
	block func(ctx context.Context, folder string) error
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages:     make(map[string][][]api.Mail),
		mails:     make(map[string]api.Mail),
		folders:   make(map[string][]api.Folder),
		persons:   make(map[string]api.Person),
		uploadErr: make(map[string]error),
		maxDepth:  3,
	}
}

func (b *fakeBackend) record(format string, args ...any) {
	b.mu.Lock()
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
	b.mu.Unlock()
}

func (b *fakeBackend) called(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) page(key string, page int) []api.Mail {
	b.mu.Lock()
	defer b.mu.Unlock()
	pages := b.pages[key]
	if page >= len(pages) {
		return nil
	}
	return slices.Clone(pages[page])
}

func (b *fakeBackend) ListMails(ctx context.Context, folder string, page int) ([]api.Mail, error) {
	b.record("list %s %d", folder, page)
	if b.block != nil {
		if err := b.block(ctx, folder); err != nil {
			return nil, err
		}
	}
	return b.page(folder, page), nil
}

func (b *fakeBackend) ListUserFolderMails(_ context.Context, folderID string, page int) ([]api.Mail, error) {
	b.record("listfolder %s %d", folderID, page)
	return b.page(folderID, page), nil
}

func (b *fakeBackend) CountUnread(_ context.Context, folder string) (int64, error) {
	b.record("count %s", folder)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread, nil
}

func (b *fakeBackend) GetMail(_ context.Context, id string) (api.Mail, error) {
	b.record("get %s", id)
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.mails[id]
	if !ok {
		return api.Mail{}, &api.Error{Status: 404, Message: "not found"}
	}
	return m, nil
}

func (b *fakeBackend) newID(prefix string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

func (b *fakeBackend) CreateDraft(_ context.Context, req api.DraftRequest, inReplyTo string) (string, error) {
	b.record("createdraft %s|%s|%s", req.Subject, strings.Join(req.To, ","), inReplyTo)
	return b.newID("d"), nil
}

func (b *fakeBackend) UpdateDraft(_ context.Context, id string, req api.DraftRequest) error {
	b.record("updatedraft %s %s", id, req.Subject)
	return nil
}

func (b *fakeBackend) Send(_ context.Context, draftID, inReplyTo string, req api.DraftRequest) (api.SendResult, error) {
	b.record("send %s|%s|%s", draftID, inReplyTo, strings.Join(req.To, ","))
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendResult, b.sendErr
}

func (b *fakeBackend) Trash(_ context.Context, ids []string) error {
	b.record("trash %s", strings.Join(ids, ","))
	return nil
}

func (b *fakeBackend) Restore(_ context.Context, ids []string) error {
	b.record("restore %s", strings.Join(ids, ","))
	return nil
}

func (b *fakeBackend) Delete(_ context.Context, ids []string) error {
	b.record("delete %s", strings.Join(ids, ","))
	return nil
}

func (b *fakeBackend) Visible(context.Context) (api.Visible, error) {
	b.record("visible")
	return b.visible, nil
}

func (b *fakeBackend) MaxDepth(context.Context) (int, error) {
	b.record("maxdepth")
	return b.maxDepth, nil
}

func (b *fakeBackend) Quota(_ context.Context, userID string) (api.Quota, error) {
	b.record("quota %s", userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quota, nil
}

func (b *fakeBackend) Person(_ context.Context, id string) (api.PersonResult, error) {
	b.record("person %s", id)
	p, ok := b.persons[id]
	if !ok {
		return api.PersonResult{}, nil
	}
	return api.PersonResult{Result: []api.Person{p}}, nil
}

func (b *fakeBackend) ListFolders(_ context.Context, parentID string, trash bool) ([]api.Folder, error) {
	b.record("folders %s %t", parentID, trash)
	b.mu.Lock()
	defer b.mu.Unlock()
	if trash {
		return slices.Clone(b.trashed), nil
	}
	return slices.Clone(b.folders[parentID]), nil
}

func (b *fakeBackend) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	b.record("createfolder %s %s", name, parentID)
	id := b.newID("f")
	b.mu.Lock()
	b.folders[parentID] = append(b.folders[parentID], api.Folder{ID: id, Name: name, ParentID: parentID})
	b.mu.Unlock()
	return id, nil
}

func (b *fakeBackend) RenameFolder(_ context.Context, id, name string) error {
	b.record("renamefolder %s %s", id, name)
	return nil
}

func (b *fakeBackend) TrashFolder(_ context.Context, id string) error {
	b.record("trashfolder %s", id)
	return nil
}

func (b *fakeBackend) RestoreFolder(_ context.Context, id string) error {
	b.record("restorefolder %s", id)
	return nil
}

func (b *fakeBackend) DeleteFolder(_ context.Context, id string) error {
	b.record("deletefolder %s", id)
	return nil
}

func (b *fakeBackend) MoveToFolder(_ context.Context, folderID string, ids []string) error {
	b.record("move %s %s", folderID, strings.Join(ids, ","))
	return nil
}

func (b *fakeBackend) MoveToRoot(_ context.Context, ids []string) error {
	b.record("moveroot %s", strings.Join(ids, ","))
	return nil
}

func (b *fakeBackend) UploadAttachment(_ context.Context, mailID string, f File, progress func(int)) (string, error) {
	b.record("upload %s %s", mailID, f.Name)
	if err := b.uploadErr[f.Name]; err != nil {
		return "", err
	}
	if _, err := io.Copy(io.Discard, f.Content); err != nil {
		return "", err
	}
	if progress != nil {
		progress(50)
	}
	return b.newID("a"), nil
}

func (b *fakeBackend) DeleteAttachment(_ context.Context, mailID, attachmentID string) error {
	b.record("deleteattachment %s %s", mailID, attachmentID)
	return nil
}

func (b *fakeBackend) Forward(_ context.Context, draftID, originID string) (api.Mail, error) {
	b.record("forward %s %s", draftID, originID)
	return b.forward, nil
}

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	n.infos = append(n.infos, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}
