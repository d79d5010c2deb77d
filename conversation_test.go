package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/content"
)

func setup(t *testing.T) (*Conversation, *fakeBackend, *recordingNotifier) {
	t.Helper()
	b := newFakeBackend()
	n := &recordingNotifier{}
	c, err := New(b, WithMe("me"), WithNotifier(n))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, b, n
}

func TestNew(t *testing.T) {
	if _, err := New(nil, WithMe("me")); !errors.Is(err, ErrBackendRequired) {
		t.Fatalf("expected ErrBackendRequired, got %v", err)
	}
	if _, err := New(newFakeBackend()); !errors.Is(err, ErrMeRequired) {
		t.Fatalf("expected ErrMeRequired, got %v", err)
	}
}

func TestLauncher(t *testing.T) {
	t.Run("fires on last launch", func(t *testing.T) {
		fired := 0
		l := NewLauncher(3, func() { fired++ })
		l.Launch()
		l.Launch()
		if fired != 0 || l.Remaining() != 1 {
			t.Fatalf("fired=%d remaining=%d", fired, l.Remaining())
		}
		l.Launch()
		l.Launch()
		if fired != 1 {
			t.Fatalf("expected one firing, got %d", fired)
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		var mu sync.Mutex
		fired := 0
		l := NewLauncher(50, func() {
			mu.Lock()
			fired++
			mu.Unlock()
		})
		var wg sync.WaitGroup
		for range 60 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.Launch()
			}()
		}
		wg.Wait()
		if fired != 1 {
			t.Fatalf("expected one firing, got %d", fired)
		}
	})
}

func TestAppropriateDataUnit(t *testing.T) {
	fr := NewCatalog(language.French)
	tests := []struct {
		bytes float64
		want  DataUnit
	}{
		{0, DataUnit{0, "octets"}},
		{512, DataUnit{512, "octets"}},
		{1024, DataUnit{1, "Ko"}},
		{1536, DataUnit{1.5, "Ko"}},
		{5 * 1024 * 1024 * 1024, DataUnit{5, "Go"}},
		{1024 * 1024 * 1024 * 1024, DataUnit{1, "To"}},
		{2 * 1024 * 1024 * 1024 * 1024 * 1024, DataUnit{2048, "To"}},
	}
	for _, tt := range tests {
		if got := AppropriateDataUnit(tt.bytes, fr); got != tt.want {
			t.Errorf("AppropriateDataUnit(%v) = %+v, want %+v", tt.bytes, got, tt.want)
		}
	}

	if got := FormatSize(1.25*1024*1024, fr); got != "1.3 Mo" {
		t.Errorf("FormatSize = %q", got)
	}
	if got := FormatSize(100, NewCatalog(language.English)); got != "100 bytes" {
		t.Errorf("FormatSize = %q", got)
	}
}

func TestQuotaRefresh(t *testing.T) {
	c, b, _ := setup(t)
	if u := c.Quota.Usage(); u != (Usage{Max: 1, Used: 0, Unit: "Mo"}) {
		t.Fatalf("unexpected default %+v", u)
	}

	b.quota = api.Quota{Quota: 1024 * mebibyte, Storage: 100*mebibyte + 400*1024}
	if err := c.Quota.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if u := c.Quota.Usage(); u != (Usage{Max: 1024, Used: 100, Unit: "Mo"}) {
		t.Fatalf("got %+v", u)
	}

	b.quota = api.Quota{Quota: 5000 * mebibyte, Storage: 1536 * mebibyte}
	if err := c.Quota.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if u := c.Quota.Usage(); u != (Usage{Max: 4.9, Used: 1.5, Unit: "Go"}) {
		t.Fatalf("got %+v", u)
	}
	if got := b.called("quota "); len(got) != 2 || got[0] != "quota me" {
		t.Fatalf("unexpected calls %v", got)
	}
}

func TestFolderTree(t *testing.T) {
	a := &UserFolder{ID: "a"}
	bf := &UserFolder{ID: "b", Parent: a}
	cf := &UserFolder{ID: "c", Parent: bf}

	if a.Depth() != 1 || cf.Depth() != 3 {
		t.Fatalf("depths %d %d", a.Depth(), cf.Depth())
	}
	if !IsParentOf(a, cf) || !IsParentOf(bf, cf) {
		t.Fatal("ancestors not found")
	}
	if IsParentOf(cf, a) || IsParentOf(a, a) || IsParentOf(nil, cf) {
		t.Fatal("unexpected ancestor")
	}
}

func TestSync(t *testing.T) {
	c, b, _ := setup(t)
	b.maxDepth = 4
	b.unread = 2
	b.quota = api.Quota{Quota: 10 * mebibyte}
	b.visible = api.Visible{
		Groups: []api.Group{{ID: "g1", Name: "Class"}},
		Users:  []api.Person{{ID: "bob", DisplayName: "Bob Martin", Profile: "Teacher"}},
	}
	b.folders[""] = []api.Folder{{ID: "f1", Name: "Projects", Depth: 1}}
	b.folders["f1"] = []api.Folder{
		{ID: "f2", Name: "2024", ParentID: "f1", Depth: 2},
		{ID: "f1", Name: "loop", ParentID: "f1"},
	}
	b.pages[api.FolderInbox] = [][]api.Mail{{{ID: "m1", Date: 1000, From: "bob", State: api.StateSent}}}

	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if c.MaxFolderDepth() != 4 || c.Inbox.Unread() != 2 || c.Quota.Usage().Max != 10 {
		t.Fatalf("depth=%d unread=%d quota=%+v", c.MaxFolderDepth(), c.Inbox.Unread(), c.Quota.Usage())
	}
	all := c.Users.All()
	if len(all) != 2 || !all[0].IsGroup || all[1].ID != "bob" {
		t.Fatalf("unexpected users %v", all)
	}
	if got := all[1].Format(c.Translator()); got != "Bob Martin (Enseignant)" {
		t.Fatalf("Format = %q", got)
	}
	if got := all[1].String(); got != "Bob Martin (Teacher)" {
		t.Fatalf("String() = %q", got)
	}

	roots := c.UserFolders.All()
	if len(roots) != 1 {
		t.Fatalf("expected one root, got %d", len(roots))
	}
	children := roots[0].Children.All()
	if len(children) != 1 || children[0].Parent != roots[0] || children[0].Depth() != 2 {
		t.Fatalf("unexpected children %+v", children)
	}
	if c.UserFolders.Find("f2") == nil {
		t.Fatal("Find did not descend")
	}

	if c.CurrentFolder() != Folder(c.Inbox) || c.Inbox.Mails().Len() != 1 {
		t.Fatal("inbox not opened")
	}
	if got := b.called("count "); len(got) != 1 || got[0] != "count INBOX" {
		t.Fatalf("unexpected count calls %v", got)
	}
}

func TestMailsPagination(t *testing.T) {
	c, b, _ := setup(t)
	ctx := context.Background()
	b.pages[api.FolderOutbox] = [][]api.Mail{
		{{ID: "m1", Date: 1000}, {ID: "m2", Date: 3000}},
		{{ID: "m3", Date: 500}},
	}
	ms := c.Outbox.Mails()

	if err := ms.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := mailIDs(ms.All()); strings.Join(got, ",") != "m2,m1" {
		t.Fatalf("expected newest first, got %v", got)
	}

	if err := ms.NextPage(ctx); err != nil {
		t.Fatal(err)
	}
	if ms.Len() != 3 || ms.Page() != 1 || ms.Full() {
		t.Fatalf("len=%d page=%d full=%v", ms.Len(), ms.Page(), ms.Full())
	}

	if err := ms.NextPage(ctx); err != nil {
		t.Fatal(err)
	}
	if !ms.Full() || ms.Len() != 3 {
		t.Fatalf("expected full after empty page, len=%d", ms.Len())
	}
	before := len(b.called("list outbox"))
	if err := ms.NextPage(ctx); err != nil {
		t.Fatal(err)
	}
	if after := len(b.called("list outbox")); after != before {
		t.Fatal("NextPage fetched a full folder")
	}

	if err := ms.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if ms.Full() || ms.Page() != 0 || ms.Len() != 2 {
		t.Fatalf("refresh did not reset: full=%v page=%d len=%d", ms.Full(), ms.Page(), ms.Len())
	}
}

func TestMailsDropsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	ms := newMails(func(ctx context.Context, page int) ([]api.Mail, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
			return []api.Mail{{ID: "stale"}}, nil
		}
		return []api.Mail{{ID: "fresh"}}, nil
	}, nil)

	done := make(chan error)
	go func() { done <- ms.Refresh(context.Background()) }()
	<-started
	if err := ms.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if all := ms.All(); len(all) != 1 || all[0].ID != "fresh" {
		t.Fatalf("stale page applied: %v", mailIDs(all))
	}
}

func TestMailsRefreshWinsOverNextPage(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var pages []int
	reloading := false
	ms := newMails(func(ctx context.Context, page int) ([]api.Mail, error) {
		mu.Lock()
		pages = append(pages, page)
		block := reloading
		mu.Unlock()
		if block {
			close(started)
			<-release
			return []api.Mail{{ID: "new-x"}}, nil
		}
		if page == 0 {
			return []api.Mail{{ID: "old-a"}, {ID: "old-b"}}, nil
		}
		return []api.Mail{{ID: "old-c"}}, nil
	}, nil)

	ctx := context.Background()
	if err := ms.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ms.NextPage(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	reloading = true
	mu.Unlock()
	done := make(chan error)
	go func() { done <- ms.Refresh(ctx) }()
	<-started

	if err := ms.NextPage(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if all := ms.All(); len(all) != 1 || all[0].ID != "new-x" {
		t.Fatalf("reload lost: %v", mailIDs(all))
	}
	if ms.Page() != 0 || ms.Full() {
		t.Fatalf("page=%d full=%v after reload", ms.Page(), ms.Full())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(pages) != 3 {
		t.Fatalf("append fetched during reload: pages %v", pages)
	}
}

func TestMailsDropsAppendOvertakenByRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	ms := newMails(func(ctx context.Context, page int) ([]api.Mail, error) {
		if page == 1 {
			close(started)
			<-release
			return []api.Mail{{ID: "late"}}, nil
		}
		return []api.Mail{{ID: "first"}}, nil
	}, nil)

	ctx := context.Background()
	done := make(chan error)
	go func() { done <- ms.NextPage(ctx) }()
	<-started
	if err := ms.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if all := ms.All(); len(all) != 1 || all[0].ID != "first" || ms.Page() != 0 {
		t.Fatalf("stale append applied: %v page=%d", mailIDs(all), ms.Page())
	}
}

func TestOpenFolderCancelsPrevious(t *testing.T) {
	c, b, _ := setup(t)
	started := make(chan struct{})
	b.block = func(ctx context.Context, folder string) error {
		if folder != api.FolderInbox {
			return nil
		}
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan error)
	go func() { done <- c.OpenFolder(context.Background(), api.FolderInbox) }()
	<-started

	if err := c.OpenFolder(context.Background(), "OUTBOX"); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("superseded open returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("previous open not cancelled")
	}
	if c.CurrentFolder() != Folder(c.Outbox) {
		t.Fatal("outbox not current")
	}

	if err := c.OpenFolder(context.Background(), "spam"); !errors.Is(err, ErrUnknownFolder) {
		t.Fatalf("expected ErrUnknownFolder, got %v", err)
	}
}

func TestSaveAsDraft(t *testing.T) {
	c, b, n := setup(t)
	ctx := context.Background()
	parent := &Mail{ID: "p1"}
	m := &Mail{To: []*User{{ID: "bob"}}, ParentConversation: parent}

	if err := c.Drafts.SaveDraft(ctx, m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "d1" || m.Subject != "(Aucun objet)" || m.State != api.StateDraft {
		t.Fatalf("unexpected draft %+v", m)
	}
	if got := b.called("createdraft"); len(got) != 1 || got[0] != "createdraft (Aucun objet)|bob|p1" {
		t.Fatalf("unexpected create calls %v", got)
	}
	if c.Drafts.Mails().Find("d1") != m {
		t.Fatal("draft not pushed into the folder")
	}

	m.Subject = "Hello"
	if err := c.SaveAsDraft(ctx, m); err != nil {
		t.Fatal(err)
	}
	if got := b.called("updatedraft"); len(got) != 1 || got[0] != "updatedraft d1 Hello" {
		t.Fatalf("unexpected update calls %v", got)
	}
	if len(b.called("createdraft")) != 1 {
		t.Fatal("second save created a new draft")
	}
	if len(n.infos) != 2 || n.infos[0] != "Brouillon enregistré" {
		t.Fatalf("unexpected notifications %v", n.infos)
	}
}

func TestSend(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		c, b, n := setup(t)
		b.sendResult = api.SendResult{ID: "s1", Sent: 2, Inactive: []string{"Eve"}, Undelivered: []string{"ghost"}}
		m := &Mail{ID: "d1", Subject: "Hi", To: []*User{{ID: "me"}, {ID: "bob"}}}

		report, err := c.Send(context.Background(), m)
		if err != nil {
			t.Fatal(err)
		}
		if report.Sent != 2 || m.ID != "s1" || m.State != api.StateSent {
			t.Fatalf("report=%+v mail=%+v", report, m)
		}
		if c.Inbox.Unread() != 1 {
			t.Fatalf("unread not incremented: %d", c.Inbox.Unread())
		}
		if len(n.infos) != 1 || n.infos[0] != "Message envoyé" {
			t.Fatalf("infos %v", n.infos)
		}
		if len(n.errors) != 2 || !strings.HasPrefix(n.errors[0], "Eve") || !strings.HasPrefix(n.errors[1], "ghost") {
			t.Fatalf("errors %v", n.errors)
		}
		if len(b.called("list outbox 0")) != 1 || len(b.called("list draft 0")) != 1 {
			t.Fatal("outbox and drafts not refreshed")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		c, b, n := setup(t)
		b.sendErr = &api.Error{Status: 400, Message: "no recipients"}

		_, err := c.Send(context.Background(), &Mail{Subject: "Hi"})
		var apiErr *api.Error
		if !errors.As(err, &apiErr) || apiErr.Status != 400 {
			t.Fatalf("expected *api.Error, got %v", err)
		}
		if len(n.errors) != 1 || n.errors[0] != "no recipients" {
			t.Fatalf("errors %v", n.errors)
		}
	})
}

func TestOpen(t *testing.T) {
	c, b, _ := setup(t)
	b.users(t, c)
	b.mails["m1"] = api.Mail{
		ID: "m1", From: "bob", To: []string{"me", "carol"}, State: api.StateSent,
		Body:         "<p>full</p>",
		DisplayNames: [][2]string{{"bob", "Bob"}, {"me", "Me"}},
	}
	m := &Mail{ID: "m1", Unread: true}

	if err := c.Open(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if m.Unread || m.Body != "<p>full</p>" {
		t.Fatalf("unexpected mail %+v", m)
	}
	if m.To[0].DisplayName != "Me" || m.To[1].DisplayName != "Carol Smith" {
		t.Fatalf("recipients not resolved: %v", m.To)
	}
	if m.Sender().DisplayName != "Bob" {
		t.Fatalf("sender %v", m.Sender())
	}
	if len(b.called("count INBOX")) != 1 {
		t.Fatal("unread not recounted")
	}
}

// users loads a small directory into c.
func (b *fakeBackend) users(t *testing.T, c *Conversation) {
	t.Helper()
	b.visible = api.Visible{Users: []api.Person{
		{ID: "bob", DisplayName: "Bob Martin"},
		{ID: "carol", DisplayName: "Carol Smith"},
	}}
	if err := c.Users.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestSetMailContent(t *testing.T) {
	fr := NewCatalog(language.French)
	origin := &Mail{ID: "o1", Subject: "Minutes", Body: "<p>body</p>", To: []*User{{ID: "bob"}}}

	reply := NewMail()
	reply.SetMailContent(origin, content.Reply, true, fr)
	if reply.Subject != "Re : Minutes" || len(reply.To) != 1 || reply.ParentConversation != origin {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if !strings.HasSuffix(reply.Body, "<blockquote><p>body</p></blockquote>") {
		t.Fatalf("body %q", reply.Body)
	}

	again := NewMail()
	again.SetMailContent(reply, content.Reply, false, fr)
	if again.Subject != "Re : Minutes" || len(again.To) != 0 {
		t.Fatalf("prefix repeated or receivers copied: %+v", again)
	}

	fwd := NewMail()
	fwd.SetMailContent(origin, content.Forward, false, NewCatalog(language.English))
	if fwd.Subject != "Fwd: Minutes" {
		t.Fatalf("forward subject %q", fwd.Subject)
	}
}

func TestPostAttachments(t *testing.T) {
	c, b, n := setup(t)
	b.quota = api.Quota{Quota: 5 * mebibyte, Storage: mebibyte}
	b.uploadErr["bad.bin"] = errors.New("boom")
	m := &Mail{Subject: "files"}

	err := c.PostAttachments(context.Background(), m, []File{
		{Name: "a.txt", ContentType: "text/plain", Size: 3, Content: strings.NewReader("abc")},
		{Name: "bad.bin", Size: 1, Content: strings.NewReader("x")},
	})
	if err == nil || !strings.Contains(err.Error(), "bad.bin") {
		t.Fatalf("expected upload error, got %v", err)
	}
	if m.ID == "" || len(b.called("createdraft")) != 1 {
		t.Fatal("mail not saved before upload")
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Filename != "a.txt" {
		t.Fatalf("attachments %+v", m.Attachments)
	}
	if len(m.LoadingAttachments) != 0 {
		t.Fatal("uploads still listed as loading")
	}
	if c.Quota.Usage().Used != 1 {
		t.Fatalf("quota not refreshed: %+v", c.Quota.Usage())
	}
	if len(n.errors) != 1 {
		t.Fatalf("errors %v", n.errors)
	}

	if err := c.DeleteAttachment(context.Background(), m, m.Attachments[0].ID); err != nil {
		t.Fatal(err)
	}
	if len(m.Attachments) != 0 {
		t.Fatal("attachment not removed")
	}
}

func TestTransfer(t *testing.T) {
	c, b, _ := setup(t)
	b.forward = api.Mail{ID: "d1", Attachments: []api.Attachment{{ID: "a1", Filename: "x.pdf", Size: 10}}}
	m := NewMail()
	m.SetMailContent(&Mail{ID: "o1", Subject: "Report"}, content.Forward, false, c.Translator())

	if err := c.Drafts.Transfer(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if got := b.called("forward"); len(got) != 1 || got[0] != "forward d1 o1" {
		t.Fatalf("forward calls %v", got)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].ID != "a1" {
		t.Fatalf("attachments %+v", m.Attachments)
	}
}

func TestRemove(t *testing.T) {
	c, b, _ := setup(t)
	ctx := context.Background()
	b.pages[api.FolderInbox] = [][]api.Mail{{{ID: "m1"}, {ID: "m2"}}}
	b.pages[api.FolderTrash] = [][]api.Mail{{{ID: "t1"}}}

	if err := c.OpenFolder(ctx, api.FolderInbox); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(ctx, c.Inbox.Mails().Find("m1")); err != nil {
		t.Fatal(err)
	}
	if len(b.called("trash m1")) != 1 || c.Inbox.Mails().Find("m1") != nil {
		t.Fatal("mail not trashed")
	}

	if err := c.OpenFolder(ctx, api.FolderTrash); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(ctx, c.Trash.Mails().Find("t1")); err != nil {
		t.Fatal(err)
	}
	if len(b.called("delete t1")) != 1 {
		t.Fatal("mail in trash not deleted")
	}
}

func TestUsers(t *testing.T) {
	c, b, _ := setup(t)
	b.visible = api.Visible{
		Groups: []api.Group{{ID: "g1", Name: "Élèves de 6e"}},
		Users: []api.Person{
			{ID: "u1", DisplayName: "Ada Lovelace", Name: "alovelace"},
			{ID: "u2", DisplayName: "Éric Durand"},
		},
	}
	b.persons["u2"] = api.Person{ID: "u2", DisplayName: "Éric Durand"}
	if err := c.Users.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	ids := func(users []*User) string { return strings.Join(toUsers(users), ",") }
	tests := []struct {
		name             string
		search           string
		include, exclude []*User
		want             string
	}{
		{"accents ignored", "eric", nil, nil, "u2"},
		{"reversed name", "lovelace ada", nil, nil, "u1"},
		{"login", "ALOVE", nil, nil, "u1"},
		{"group", "eleves", nil, nil, "g1"},
		{"exclude", "e", nil, []*User{{ID: "u1"}}, "g1,u2"},
		{"include", "zed", []*User{{ID: "x", DisplayName: "Zed"}}, nil, "x"},
		{"empty", "", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(c.Users.FindUser(tt.search, tt.include, tt.exclude)); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}

	if !c.Users.IsGroup("g1") || c.Users.IsGroup("u1") {
		t.Fatal("IsGroup")
	}
	name, err := c.Users.FindData(context.Background(), "u2")
	if err != nil || name != "Éric Durand" {
		t.Fatalf("FindData = %q, %v", name, err)
	}
	if u := MapUser([][2]string{{"u1", "Ada"}}, "u1"); u == nil || u.DisplayName != "Ada" {
		t.Fatalf("MapUser = %v", u)
	}
	if MapUser(nil, "u1") != nil {
		t.Fatal("MapUser resolved an unknown id")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		mail  Mail
		class string
		icon  string
	}{
		{Mail{From: "bob", State: api.StateSent}, ClassInbox, "mail-in"},
		{Mail{From: "me", State: api.StateSent}, ClassOutbox, "mail-out"},
		{Mail{From: "me", State: api.StateDraft}, ClassDraft, "mail-new"},
		{Mail{From: "bob", State: api.StateDraft}, "", ""},
	}
	for _, tt := range tests {
		if got := SystemFolderOf(&tt.mail, "me"); got != tt.class {
			t.Errorf("SystemFolderOf(%+v) = %q", tt.mail, got)
		}
		if got := MatchSystemIcon(&tt.mail, "me"); got != tt.icon {
			t.Errorf("MatchSystemIcon(%+v) = %q", tt.mail, got)
		}
	}
}

func TestCatalog(t *testing.T) {
	if got := NewCatalog(language.English).Translate(KeyNoSubject); got != "(No subject)" {
		t.Fatalf("got %q", got)
	}
	if got := NewCatalog(language.German).Translate(KeyReply); got != "Re : " {
		t.Fatalf("fallback got %q", got)
	}
	if got := NewCatalog(language.French).Translate("unknown.key"); got != "unknown.key" {
		t.Fatalf("got %q", got)
	}
}
