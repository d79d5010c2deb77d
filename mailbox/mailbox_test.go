package mailbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
	"github.com/rbaliyan/conversation/store/memory"
	"github.com/rbaliyan/event/v3/transport/channel"
	"github.com/redis/go-redis/v9"
)

func testDirectory() *directory.Static {
	return directory.NewStatic(
		[]directory.User{
			{ID: "ada", DisplayName: "Ada Lovelace", Active: true},
			{ID: "bob", DisplayName: "Bob Martin", Active: true},
			{ID: "eve", DisplayName: "Eve Dormant"},
		},
		[]directory.Group{
			{ID: "g1", Name: "Teachers", Members: []string{"ada", "bob"}},
		},
	)
}

type testEnv struct {
	svc   *Service
	store *memory.Store
	files *memory.FileStore
}

func setup(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{store: memory.New(), files: memory.NewFileStore()}
	base := []Option{
		WithStore(env.store),
		WithFileStore(env.files),
		WithDirectory(testDirectory()),
		WithEventTransport(channel.New()),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	env.svc = svc
	return env
}

func send(t *testing.T, mb *Mailbox, to ...string) *SendResult {
	t.Helper()
	res, err := mb.Send(context.Background(), "", "", Draft{Subject: "Hi", Body: "<p>hello</p>", To: to})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return res
}

func list(t *testing.T, mb *Mailbox, folder string) []*store.Message {
	t.Helper()
	msgs, err := mb.List(context.Background(), folder, 0)
	if err != nil {
		t.Fatalf("list %s: %v", folder, err)
	}
	return msgs
}

func TestNewService(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewService(WithDirectory(testDirectory()))
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("requires directory", func(t *testing.T) {
		_, err := NewService(WithStore(memory.New()))
		if !errors.Is(err, ErrDirectoryRequired) {
			t.Errorf("expected ErrDirectoryRequired, got %v", err)
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(WithStore(memory.New()), WithDirectory(testDirectory()))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Mailbox("ada").List(ctx, FolderInbox, 0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before connect, got %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Errorf("second close should not error, got %v", err)
	}
}

func TestInvalidUserID(t *testing.T) {
	env := setup(t)
	for _, id := range []string{"", "a:b", "a b", "x/y"} {
		if _, err := env.svc.Mailbox(id).List(context.Background(), FolderInbox, 0); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("%q: expected ErrInvalidUserID, got %v", id, err)
		}
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("delivery report", func(t *testing.T) {
		env := setup(t)
		ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")

		res := send(t, ada, "bob", "eve", "zed", "g1")
		if res.Sent != 2 {
			t.Errorf("expected 2 delivered copies, got %d", res.Sent)
		}
		if len(res.Inactive) != 1 || res.Inactive[0] != "Eve Dormant" {
			t.Errorf("unexpected inactive %v", res.Inactive)
		}
		if len(res.Undelivered) != 1 || res.Undelivered[0] != "zed" {
			t.Errorf("unexpected undelivered %v", res.Undelivered)
		}
		if res.Message.Folder != store.FolderOutbox || res.Message.State != store.StateSent {
			t.Errorf("sender copy should be a sent OUTBOX copy, got %s/%s", res.Message.Folder, res.Message.State)
		}

		if n := len(list(t, ada, FolderOutbox)); n != 1 {
			t.Errorf("expected 1 outbox message, got %d", n)
		}
		// ada is a member of g1
		if n := len(list(t, ada, FolderInbox)); n != 1 {
			t.Errorf("expected 1 inbox message for the sender, got %d", n)
		}

		inbox := list(t, bob, FolderInbox)
		if len(inbox) != 1 {
			t.Fatalf("expected 1 inbox message, got %d", len(inbox))
		}
		got := inbox[0]
		if !got.Unread || got.From != "ada" || got.ThreadID != res.Message.ThreadID || got.ThreadID == "" {
			t.Errorf("unexpected recipient copy %+v", got)
		}
		if len(got.To) != 4 {
			t.Errorf("recipient copy should keep the addressed ids, got %v", got.To)
		}
		if n, _ := bob.CountUnread(ctx, FolderInbox); n != 1 {
			t.Errorf("expected 1 unread, got %d", n)
		}
	})

	t.Run("display names", func(t *testing.T) {
		env := setup(t)
		res := send(t, env.svc.Mailbox("ada"), "bob", "g1", "zed")
		names := map[string]string{}
		for _, p := range res.Message.DisplayNames {
			names[p.ID] = p.Name
		}
		if names["ada"] != "Ada Lovelace" || names["bob"] != "Bob Martin" || names["g1"] != "Teachers" {
			t.Errorf("unexpected display names %v", names)
		}
		if _, ok := names["zed"]; ok {
			t.Error("unknown ids should not get a display name")
		}
	})

	t.Run("draft becomes the sent copy", func(t *testing.T) {
		env := setup(t)
		ada := env.svc.Mailbox("ada")

		draft, err := ada.SaveDraft(ctx, Draft{Subject: "Draft"}, "")
		if err != nil {
			t.Fatal(err)
		}
		res, err := ada.Send(ctx, draft.ID, "", Draft{Subject: "Final", To: []string{"bob"}})
		if err != nil {
			t.Fatal(err)
		}
		if res.Message.ID != draft.ID || res.Message.Subject != "Final" {
			t.Errorf("expected draft %s to be sent, got %+v", draft.ID, res.Message)
		}
		if n := len(list(t, ada, FolderDraft)); n != 0 {
			t.Errorf("expected no drafts left, got %d", n)
		}
		if _, err := ada.Send(ctx, draft.ID, "", Draft{To: []string{"bob"}}); !errors.Is(err, ErrNotDraft) {
			t.Errorf("expected ErrNotDraft, got %v", err)
		}
	})

	t.Run("reply joins the thread", func(t *testing.T) {
		env := setup(t)
		ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
		res := send(t, ada, "bob")
		received := list(t, bob, FolderInbox)[0]

		reply, err := bob.Send(ctx, "", received.ID, Draft{Subject: "Re: Hi", To: []string{"ada"}})
		if err != nil {
			t.Fatal(err)
		}
		if reply.Message.ThreadID != res.Message.ThreadID || reply.Message.ParentID != received.ID {
			t.Errorf("reply not threaded: %+v", reply.Message)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := setup(t, WithMaxSubjectLength(5))
		ada := env.svc.Mailbox("ada")
		if _, err := ada.Send(ctx, "", "", Draft{Subject: "Hi"}); !errors.Is(err, ErrEmptyRecipients) {
			t.Errorf("expected ErrEmptyRecipients, got %v", err)
		}
		_, err := ada.Send(ctx, "", "", Draft{Subject: "Too long", To: []string{"bob"}})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "subject" || !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("expected subject validation error, got %v", err)
		}
		if !IsClientError(err) {
			t.Error("validation errors are client errors")
		}
	})

	t.Run("body is sanitized", func(t *testing.T) {
		env := setup(t)
		res, err := env.svc.Mailbox("ada").Send(ctx, "", "", Draft{
			Body: `<p onclick="x()">hi</p><script>alert(1)</script>`,
			To:   []string{"bob"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(res.Message.Body, "script") || strings.Contains(res.Message.Body, "onclick") {
			t.Errorf("body not sanitized: %s", res.Message.Body)
		}
	})
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada := env.svc.Mailbox("ada")

	d, err := ada.SaveDraft(ctx, Draft{Subject: "one", To: []string{"bob"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if d.State != store.StateDraft || d.Folder != store.FolderDraft {
		t.Fatalf("unexpected draft %+v", d)
	}

	u, err := ada.UpdateDraft(ctx, d.ID, Draft{Subject: "two", Cc: []string{"g1"}})
	if err != nil {
		t.Fatal(err)
	}
	if u.Subject != "two" || len(u.To) != 0 || len(u.Cc) != 1 {
		t.Errorf("unexpected update %+v", u)
	}

	if _, err := env.svc.Mailbox("bob").UpdateDraft(ctx, d.ID, Draft{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign drafts must not be found, got %v", err)
	}

	sent := send(t, ada, "bob")
	if _, err := ada.UpdateDraft(ctx, sent.Message.ID, Draft{}); !errors.Is(err, ErrNotDraft) {
		t.Errorf("expected ErrNotDraft, got %v", err)
	}
}

func TestGetMarksRead(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := setup(t, WithUnreadCache(client, time.Minute))
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
	send(t, ada, "bob")

	if n, err := bob.CountUnread(ctx, FolderInbox); err != nil || n != 1 {
		t.Fatalf("expected 1 unread, got %d (%v)", n, err)
	}
	if !mr.Exists(unreadKey("bob")) {
		t.Fatal("expected inbox count to be cached")
	}

	id := list(t, bob, FolderInbox)[0].ID
	msg, err := bob.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Unread {
		t.Error("message should be read")
	}
	if mr.Exists(unreadKey("bob")) {
		t.Error("reading should invalidate the cached count")
	}
	if n, _ := bob.CountUnread(ctx, FolderInbox); n != 0 {
		t.Errorf("expected 0 unread, got %d", n)
	}

	if _, err := ada.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign message, got %v", err)
	}
}

func TestListUnknownFolder(t *testing.T) {
	env := setup(t)
	if _, err := env.svc.Mailbox("ada").List(context.Background(), "spam", 0); !errors.Is(err, ErrUnknownFolder) {
		t.Errorf("expected ErrUnknownFolder, got %v", err)
	}
}

func TestPagination(t *testing.T) {
	env := setup(t, WithPageSize(2))
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
	for range 3 {
		send(t, ada, "bob")
	}
	for page, want := range []int{2, 1, 0} {
		msgs, err := bob.List(context.Background(), FolderInbox, page)
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != want {
			t.Errorf("page %d: expected %d, got %d", page, want, len(msgs))
		}
	}
}

func TestTrash(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
	send(t, ada, "bob")
	id := list(t, bob, FolderInbox)[0].ID

	if err := bob.Restore(ctx, []string{id}); !errors.Is(err, ErrNotInTrash) {
		t.Errorf("expected ErrNotInTrash, got %v", err)
	}
	if err := bob.Delete(ctx, []string{id}); !errors.Is(err, ErrNotInTrash) {
		t.Errorf("expected ErrNotInTrash, got %v", err)
	}
	if err := ada.Trash(ctx, []string{id}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign id, got %v", err)
	}

	if err := bob.Trash(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderInbox)); n != 0 {
		t.Errorf("expected empty inbox, got %d", n)
	}
	if n := len(list(t, bob, FolderTrash)); n != 1 {
		t.Errorf("expected 1 trashed, got %d", n)
	}

	if err := bob.Restore(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderInbox)); n != 1 {
		t.Errorf("expected restored message in inbox, got %d", n)
	}

	if err := bob.Trash(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if err := bob.Delete(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderTrash)); n != 0 {
		t.Errorf("expected empty trash, got %d", n)
	}
	if n := len(list(t, ada, FolderOutbox)); n != 1 {
		t.Errorf("deleting a copy must not touch the sender's, got %d", n)
	}
}

func TestCleanupTrash(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada := env.svc.Mailbox("ada")
	old := send(t, ada, "bob").Message
	recent := send(t, ada, "bob").Message
	if err := ada.Trash(ctx, []string{old.ID, recent.ID}); err != nil {
		t.Fatal(err)
	}

	msg, err := env.store.GetMessage(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	msg.TrashedAt = time.Now().Add(-2 * DefaultTrashRetention)
	if err := env.store.UpdateMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.CleanupTrash(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 || res.Interrupted {
		t.Errorf("unexpected result %+v", res)
	}
	if n := len(list(t, ada, FolderTrash)); n != 1 {
		t.Errorf("expected the recent message to stay, got %d", n)
	}
}

func TestCleanupTrashKeepsTrashedFolderContent(t *testing.T) {
	ctx := context.Background()
	env := setup(t, WithTrashRetention(24*time.Hour))
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
	send(t, ada, "bob")
	id := list(t, bob, FolderInbox)[0].ID

	f, err := bob.CreateFolder(ctx, "archive", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := bob.MoveToFolder(ctx, f.ID, []string{id}); err != nil {
		t.Fatal(err)
	}
	if err := bob.TrashFolder(ctx, f.ID); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.CleanupTrash(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 0 {
		t.Errorf("sweep deleted %d messages of a trashed folder", res.Deleted)
	}

	if err := bob.RestoreFolder(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	filed, err := bob.ListUserFolder(ctx, f.ID, 0)
	if err != nil || len(filed) != 1 || filed[0].ID != id {
		t.Fatalf("expected the filed message back, got %d (%v)", len(filed), err)
	}
}

func TestFolders(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")

	a, err := bob.CreateFolder(ctx, "a", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := bob.CreateFolder(ctx, "b", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	c, err := bob.CreateFolder(ctx, " c ", b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.Depth != 1 || b.Depth != 2 || c.Depth != 3 || c.Name != "c" {
		t.Fatalf("unexpected depths %d %d %d", a.Depth, b.Depth, c.Depth)
	}
	if _, err := bob.CreateFolder(ctx, "d", c.ID); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
	if _, err := bob.CreateFolder(ctx, "  ", ""); !errors.Is(err, ErrInvalidFolderName) {
		t.Errorf("expected ErrInvalidFolderName, got %v", err)
	}
	if _, err := ada.CreateFolder(ctx, "x", a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign parent, got %v", err)
	}

	if _, err := bob.RenameFolder(ctx, a.ID, "alpha"); err != nil {
		t.Fatal(err)
	}
	roots, err := bob.ListFolders(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 || roots[0].Name != "alpha" {
		t.Fatalf("unexpected roots %+v", roots)
	}

	send(t, ada, "bob")
	id := list(t, bob, FolderInbox)[0].ID
	if err := bob.MoveToFolder(ctx, c.ID, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderInbox)); n != 0 {
		t.Errorf("filed message should leave the inbox, got %d", n)
	}
	filed, err := bob.ListUserFolder(ctx, c.ID, 0)
	if err != nil || len(filed) != 1 {
		t.Fatalf("expected 1 filed message, got %d (%v)", len(filed), err)
	}

	t.Run("trash cascades", func(t *testing.T) {
		if err := bob.TrashFolder(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
		roots, _ := bob.ListFolders(ctx, "", false)
		if len(roots) != 0 {
			t.Errorf("expected no live roots, got %d", len(roots))
		}
		trashed, _ := bob.ListFolders(ctx, "", true)
		if len(trashed) != 1 || trashed[0].ID != a.ID {
			t.Errorf("only the top trashed folder should be listed, got %+v", trashed)
		}
		if err := bob.MoveToFolder(ctx, b.ID, []string{id}); !errors.Is(err, ErrFolderTrashed) {
			t.Errorf("expected ErrFolderTrashed, got %v", err)
		}
	})

	t.Run("restore under a trashed parent detaches", func(t *testing.T) {
		if err := bob.RestoreFolder(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
		roots, _ := bob.ListFolders(ctx, "", false)
		if len(roots) != 1 || roots[0].ID != b.ID || roots[0].Depth != 1 {
			t.Fatalf("unexpected roots %+v", roots)
		}
		children, _ := bob.ListFolders(ctx, b.ID, false)
		if len(children) != 1 || children[0].Depth != 2 {
			t.Errorf("unexpected children %+v", children)
		}
		if err := bob.RestoreFolder(ctx, b.ID); !errors.Is(err, ErrNotInTrash) {
			t.Errorf("expected ErrNotInTrash, got %v", err)
		}
	})

	t.Run("delete cascades", func(t *testing.T) {
		if err := bob.DeleteFolder(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := bob.ListUserFolder(ctx, c.ID, 0); !errors.Is(err, ErrNotFound) {
			t.Errorf("sub-folder should be gone, got %v", err)
		}
		if _, err := bob.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("filed message should be gone, got %v", err)
		}
		trashed, _ := bob.ListFolders(ctx, "", true)
		if len(trashed) != 1 || trashed[0].ID != a.ID {
			t.Errorf("unrelated trashed folder should stay, got %+v", trashed)
		}
	})
}

func TestMoveToRoot(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
	f, err := bob.CreateFolder(ctx, "f", "")
	if err != nil {
		t.Fatal(err)
	}
	send(t, ada, "bob")
	id := list(t, bob, FolderInbox)[0].ID

	if err := bob.Trash(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if err := bob.MoveToFolder(ctx, f.ID, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderTrash)); n != 0 {
		t.Errorf("moving out of the trash should restore, got %d trashed", n)
	}
	if err := bob.MoveToRoot(ctx, []string{id}); err != nil {
		t.Fatal(err)
	}
	if n := len(list(t, bob, FolderInbox)); n != 1 {
		t.Errorf("expected message back in inbox, got %d", n)
	}
}

func TestAttachments(t *testing.T) {
	ctx := context.Background()

	t.Run("shared until the last copy is deleted", func(t *testing.T) {
		env := setup(t)
		ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")

		d, err := ada.SaveDraft(ctx, Draft{Subject: "file"}, "")
		if err != nil {
			t.Fatal(err)
		}
		att, err := ada.AddAttachment(ctx, d.ID, `C:\docs\notes.txt`, "text/plain", strings.NewReader("hello"))
		if err != nil {
			t.Fatal(err)
		}
		if att.Size != 5 || att.Filename != "notes.txt" || len(att.Checksum) != 64 {
			t.Errorf("unexpected attachment %+v", att)
		}
		usage, _ := ada.Quota(ctx)
		if usage.Storage != 5 || usage.Quota != DefaultQuota {
			t.Errorf("unexpected usage %+v", usage)
		}

		if _, err := ada.Send(ctx, d.ID, "", Draft{Subject: "file", To: []string{"bob"}}); err != nil {
			t.Fatal(err)
		}
		received := list(t, bob, FolderInbox)[0]
		_, rc, err := bob.LoadAttachment(ctx, received.ID, att.ID)
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != "hello" {
			t.Errorf("unexpected content %q", data)
		}
		if _, err := ada.AddAttachment(ctx, d.ID, "x", "", strings.NewReader("x")); !errors.Is(err, ErrNotDraft) {
			t.Errorf("expected ErrNotDraft, got %v", err)
		}

		if err := ada.Trash(ctx, []string{d.ID}); err != nil {
			t.Fatal(err)
		}
		if err := ada.Delete(ctx, []string{d.ID}); err != nil {
			t.Fatal(err)
		}
		if env.files.Len() != 1 {
			t.Fatalf("blob still referenced by bob, got %d blobs", env.files.Len())
		}
		if err := bob.Trash(ctx, []string{received.ID}); err != nil {
			t.Fatal(err)
		}
		if err := bob.Delete(ctx, []string{received.ID}); err != nil {
			t.Fatal(err)
		}
		if env.files.Len() != 0 {
			t.Errorf("expected blob released, got %d blobs", env.files.Len())
		}
	})

	t.Run("limits", func(t *testing.T) {
		env := setup(t, WithMaxAttachmentSize(4), WithMaxAttachmentCount(1))
		ada := env.svc.Mailbox("ada")
		d, err := ada.SaveDraft(ctx, Draft{}, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ada.AddAttachment(ctx, d.ID, "big", "", strings.NewReader("hello")); !errors.Is(err, ErrAttachmentTooLarge) {
			t.Errorf("expected ErrAttachmentTooLarge, got %v", err)
		}
		if _, err := ada.AddAttachment(ctx, d.ID, "ok", "", strings.NewReader("ok")); err != nil {
			t.Fatal(err)
		}
		if _, err := ada.AddAttachment(ctx, d.ID, "two", "", strings.NewReader("x")); !errors.Is(err, ErrTooManyAttachments) {
			t.Errorf("expected ErrTooManyAttachments, got %v", err)
		}
		if env.files.Len() != 1 {
			t.Errorf("rejected uploads must not leave blobs, got %d", env.files.Len())
		}
	})

	t.Run("quota", func(t *testing.T) {
		env := setup(t, WithQuota(3))
		ada := env.svc.Mailbox("ada")
		d, _ := ada.SaveDraft(ctx, Draft{}, "")
		if _, err := ada.AddAttachment(ctx, d.ID, "big", "", strings.NewReader("hello")); !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		env := setup(t)
		ada := env.svc.Mailbox("ada")
		d, _ := ada.SaveDraft(ctx, Draft{}, "")
		att, err := ada.AddAttachment(ctx, d.ID, "a", "", strings.NewReader("abc"))
		if err != nil {
			t.Fatal(err)
		}
		if err := ada.RemoveAttachment(ctx, d.ID, att.ID); err != nil {
			t.Fatal(err)
		}
		if env.files.Len() != 0 {
			t.Errorf("expected blob released, got %d", env.files.Len())
		}
		if err := ada.RemoveAttachment(ctx, d.ID, att.ID); !errors.Is(err, ErrAttachmentNotFound) {
			t.Errorf("expected ErrAttachmentNotFound, got %v", err)
		}
	})

	t.Run("forward copies references", func(t *testing.T) {
		env := setup(t)
		ada, bob := env.svc.Mailbox("ada"), env.svc.Mailbox("bob")
		d, _ := ada.SaveDraft(ctx, Draft{Subject: "report"}, "")
		att, err := ada.AddAttachment(ctx, d.ID, "r.pdf", "application/pdf", strings.NewReader("pdf"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ada.Send(ctx, d.ID, "", Draft{Subject: "report", Body: "see attached", To: []string{"bob"}}); err != nil {
			t.Fatal(err)
		}
		origin := list(t, bob, FolderInbox)[0]

		fwd, err := bob.SaveDraft(ctx, Draft{}, "")
		if err != nil {
			t.Fatal(err)
		}
		got, err := bob.Forward(ctx, fwd.ID, origin.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := got.Attachment(att.ID); !ok {
			t.Error("forward should reference the origin attachment")
		}
		if got.Subject != "Fwd: report" || !strings.Contains(got.Body, "see attached") {
			t.Errorf("unexpected forward content %q / %q", got.Subject, got.Body)
		}
		if got.ParentID != origin.ID || got.ThreadID != origin.ThreadID {
			t.Errorf("forward not threaded: %+v", got)
		}
		if env.files.Len() != 1 {
			t.Errorf("forward must not copy blobs, got %d", env.files.Len())
		}
	})

	t.Run("no file store", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()), WithDirectory(testDirectory()))
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.Connect(ctx); err != nil {
			t.Fatal(err)
		}
		defer svc.Close(ctx)
		ada := svc.Mailbox("ada")
		d, _ := ada.SaveDraft(ctx, Draft{}, "")
		if _, err := ada.AddAttachment(ctx, d.ID, "a", "", strings.NewReader("a")); !errors.Is(err, ErrAttachmentStoreNotConfigured) {
			t.Errorf("expected ErrAttachmentStoreNotConfigured, got %v", err)
		}
	})
}

func TestDirectoryLookups(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada := env.svc.Mailbox("ada")

	users, groups, err := ada.Visible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || len(groups) != 1 {
		t.Errorf("unexpected visible %d users %d groups", len(users), len(groups))
	}
	p, err := ada.Person(ctx, "bob")
	if err != nil || p.DisplayName != "Bob Martin" {
		t.Errorf("unexpected person (%+v, %v)", p, err)
	}
	if _, err := ada.Person(ctx, "zed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	ada := env.svc.Mailbox("ada")
	res := send(t, ada, "bob")

	var buf bytes.Buffer
	if err := ada.Export(ctx, &buf, res.Message.ID); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Subject: Hi") || !strings.Contains(out, "bob@conversation.local") {
		t.Errorf("unexpected export:\n%s", out)
	}
}
