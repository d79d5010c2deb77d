package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/mailbox"
	"github.com/rbaliyan/conversation/server"
	"github.com/rbaliyan/conversation/store/memory"
	"github.com/rbaliyan/event/v3/transport/channel"
)

var secret = []byte("cli-secret")

type harness struct {
	t   *testing.T
	url string
}

func setup(t *testing.T) *harness {
	t.Helper()
	quiet := slog.New(slog.DiscardHandler)
	dir := directory.NewStatic(
		[]directory.User{
			{ID: "ada", DisplayName: "Ada Lovelace", Profile: "Teacher", Active: true},
			{ID: "bob", DisplayName: "Bob Martin", Profile: "Student", Active: true},
		},
		[]directory.Group{{ID: "g1", Name: "Teachers", Members: []string{"ada"}}},
	)
	svc, err := mailbox.NewService(
		mailbox.WithStore(memory.New()),
		mailbox.WithFileStore(memory.NewFileStore()),
		mailbox.WithDirectory(dir),
		mailbox.WithEventTransport(channel.New()),
		mailbox.WithLogger(quiet),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	s, err := server.New(svc, server.WithSecret(secret), server.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, url: srv.URL}
}

// as runs the command as user and returns its standard output.
func (h *harness) as(user string, args ...string) string {
	h.t.Helper()
	out, err := h.try(user, args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (h *harness) try(user string, args ...string) (string, error) {
	h.t.Helper()
	token, err := server.NewToken(secret, user, time.Hour)
	if err != nil {
		h.t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	full := append([]string{"-server", h.url, "-token", token, "-lang", "en"}, args...)
	err = run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

// firstID returns the id column of the first listed mail.
func firstID(t *testing.T, listing string) string {
	t.Helper()
	line, _, _ := strings.Cut(strings.TrimSpace(listing), "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		t.Fatalf("no mail in listing %q", listing)
	}
	if fields[0] == "*" {
		return fields[1]
	}
	return fields[0]
}

func TestMailFlow(t *testing.T) {
	h := setup(t)

	if out := h.as("ada", "users", "bob"); !strings.Contains(out, "Bob Martin (Student)") {
		t.Errorf("users = %q", out)
	}

	attachment := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(attachment, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	out := h.as("ada", "send", "-to", "Bob", "-subject", "Homework", "-body", "<p>Due monday</p>", "-attach", attachment)
	if !strings.Contains(out, "sent to 1") {
		t.Fatalf("send = %q", out)
	}

	listing := h.as("bob", "list")
	if !strings.Contains(listing, "Homework") || !strings.HasPrefix(listing, "*") || !strings.Contains(listing, "[1]") {
		t.Fatalf("bob inbox = %q", listing)
	}
	id := firstID(t, listing)

	read := h.as("bob", "read", id)
	for _, want := range []string{"From:    Ada Lovelace", "Subject: Homework", "notes.txt (5 bytes)", "Due monday"} {
		if !strings.Contains(read, want) {
			t.Errorf("read output misses %q:\n%s", want, read)
		}
	}
	if listing := h.as("bob", "list"); strings.HasPrefix(listing, "*") {
		t.Errorf("mail still unread: %q", listing)
	}

	if out := h.as("bob", "send", "-reply", id, "-body", "Done. "); !strings.Contains(out, "sent to 1") {
		t.Fatalf("reply = %q", out)
	}
	if listing := h.as("ada", "list"); !strings.Contains(listing, "Re: Homework") {
		t.Errorf("ada inbox = %q", listing)
	}
	if outbox := h.as("ada", "list", "outbox"); !strings.Contains(outbox, "to Bob Martin") {
		t.Errorf("ada outbox = %q", outbox)
	}

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mail.eml")
		h.as("bob", "export", "-o", path, id)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "Subject: Homework") {
			t.Errorf("export:\n%s", data)
		}
	})

	t.Run("folders", func(t *testing.T) {
		folderID := strings.TrimSpace(h.as("bob", "mkdir", "School"))
		if folderID == "" {
			t.Fatal("no folder id")
		}
		h.as("bob", "mkdir", "-parent", "School", "Maths")
		tree := h.as("bob", "folders")
		if !strings.Contains(tree, "School  "+folderID) || !strings.Contains(tree, "\n  Maths") {
			t.Errorf("tree = %q", tree)
		}

		h.as("bob", "mv", "school", id)
		if listing := h.as("bob", "list", "School"); !strings.Contains(listing, "Homework") {
			t.Errorf("School = %q", listing)
		}
		if listing := h.as("bob", "list"); strings.Contains(listing, "Homework") {
			t.Errorf("inbox still lists the filed mail: %q", listing)
		}
	})

	t.Run("trash", func(t *testing.T) {
		listing := h.as("ada", "list")
		reply := firstID(t, listing)
		h.as("ada", "trash", reply)
		if trash := h.as("ada", "list", "trash"); !strings.Contains(trash, "Re: Homework") {
			t.Errorf("trash = %q", trash)
		}
		h.as("ada", "restore", reply)
		if inbox := h.as("ada", "list"); !strings.Contains(inbox, "Re: Homework") {
			t.Errorf("restored inbox = %q", inbox)
		}
	})
}

func TestSendErrors(t *testing.T) {
	h := setup(t)

	if _, err := h.try("ada", "send", "-subject", "nobody"); err == nil || !strings.Contains(err.Error(), "no recipient") {
		t.Errorf("err = %v", err)
	}
	if _, err := h.try("ada", "send", "-to", "zed"); err == nil || !strings.Contains(err.Error(), `no user matches "zed"`) {
		t.Errorf("err = %v", err)
	}
	if _, err := h.try("ada", "list", "nowhere"); err == nil {
		t.Error("expected unknown folder")
	}
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), nil, &stdout, &stderr); !errors.Is(err, errUsage) {
		t.Errorf("no command: err = %v", err)
	}
	if !strings.Contains(stderr.String(), "usage: conversation") {
		t.Errorf("stderr = %q", stderr.String())
	}

	stderr.Reset()
	if err := run(context.Background(), []string{"fly"}, &stdout, &stderr); !errors.Is(err, errUsage) {
		t.Errorf("unknown command: err = %v", err)
	}
	if !strings.Contains(stderr.String(), `unknown command "fly"`) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestTokenSubject(t *testing.T) {
	token, err := server.NewToken(secret, "ada", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := tokenSubject(token); err != nil || got != "ada" {
		t.Errorf("subject = %q, %v", got, err)
	}
	if _, err := tokenSubject(""); err == nil {
		t.Error("empty token accepted")
	}
	if _, err := tokenSubject("not-a-token"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" ada, ,bob,")
	if len(got) != 2 || got[0] != "ada" || got[1] != "bob" {
		t.Errorf("splitList = %q", got)
	}
}
