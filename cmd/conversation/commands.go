package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbaliyan/conversation"
	"github.com/rbaliyan/conversation/api"
)

type command struct {
	name string
	help string
	run  func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"list", "list a folder: list [-page n] [inbox|outbox|draft|trash|<folder>]", (*app).list},
	{"read", "show a mail: read <id>", (*app).read},
	{"send", "write a mail: send -to ids [-cc ids] [-subject s] [-body text|-] [-attach files] [-reply id [-all]] [-draft]", (*app).send},
	{"forward", "forward a mail: forward -to ids [-body text] <id>", (*app).forward},
	{"trash", "move mails to the trash: trash <id>...", (*app).trash},
	{"restore", "take mails out of the trash: restore <id>...", (*app).restore},
	{"delete", "delete trashed mails: delete <id>...", (*app).delete},
	{"folders", "show the folder tree", (*app).folders},
	{"mkdir", "create a folder: mkdir [-parent folder] <name>", (*app).mkdir},
	{"mv", "file mails in a folder: mv <folder> <id>...", (*app).move},
	{"export", "save a mail as .eml: export [-o file] <id>", (*app).export},
	{"quota", "show the storage used", (*app).quota},
	{"users", "search the directory: users [text]", (*app).users},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlags("list")
	page := fs.Int("page", 1, "last page to load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name := fs.Arg(0)
	if name == "" {
		name = api.FolderInbox
	}
	if _, err := a.conv.SystemFolder(name); err == nil {
		if err := a.ctl.OpenFolder(ctx, name); err != nil {
			return err
		}
	} else {
		f, err := a.findFolder(name)
		if err != nil {
			return err
		}
		if err := a.ctl.OpenUserFolder(ctx, f); err != nil {
			return err
		}
	}
	for i := 1; i < *page; i++ {
		if err := a.ctl.NextPage(ctx); err != nil {
			return err
		}
	}

	printMails(a.out, a.ctl.SortedMails(), a.conv.Me())
	if a.conv.InTrash() {
		for _, f := range a.conv.Trash.UserFolders().All() {
			fmt.Fprintf(a.out, "[folder] %s\t%s\n", f.ID, f.Name)
		}
	}
	return nil
}

func (a *app) read(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("read needs one mail id")
	}
	m, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	printMail(a.out, m, a.conv.Translator())
	return nil
}

// open loads the mail id and makes it the mail being read.
func (a *app) open(ctx context.Context, id string) (*conversation.Mail, error) {
	m := conversation.NewMail()
	m.ID = id
	if err := a.ctl.ReadMail(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *app) send(ctx context.Context, args []string) error {
	fs := newFlags("send")
	to := fs.String("to", "", "comma separated recipients")
	cc := fs.String("cc", "", "comma separated copy recipients")
	subject := fs.String("subject", "", "subject")
	body := fs.String("body", "", "body, - reads stdin")
	attach := fs.String("attach", "", "comma separated files to attach")
	reply := fs.String("reply", "", "id of the mail answered")
	all := fs.Bool("all", false, "with -reply, answer every recipient")
	draft := fs.Bool("draft", false, "save as a draft instead of sending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *reply != "" {
		if _, err := a.open(ctx, *reply); err != nil {
			return err
		}
		start := a.ctl.Reply
		if *all {
			start = a.ctl.ReplyAll
		}
		if err := start(); err != nil {
			return err
		}
	}
	item := a.ctl.NewItem()
	if *subject != "" {
		item.Subject = *subject
	}
	text, err := readBody(*body)
	if err != nil {
		return err
	}
	if text != "" {
		item.Body = text + item.Body
	}
	if err := a.addRecipients(*to, a.ctl.AddUser); err != nil {
		return err
	}
	if err := a.addRecipients(*cc, a.ctl.AddCCUser); err != nil {
		return err
	}
	if err := a.attach(ctx, *attach); err != nil {
		return err
	}
	return a.finish(ctx, *draft)
}

func (a *app) forward(ctx context.Context, args []string) error {
	fs := newFlags("forward")
	to := fs.String("to", "", "comma separated recipients")
	body := fs.String("body", "", "text above the forwarded mail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("forward needs one mail id")
	}
	if _, err := a.open(ctx, fs.Arg(0)); err != nil {
		return err
	}
	if err := a.ctl.Transfer(ctx); err != nil {
		return err
	}
	item := a.ctl.NewItem()
	item.Body = *body + item.Body
	if err := a.addRecipients(*to, a.ctl.AddUser); err != nil {
		return err
	}
	return a.finish(ctx, false)
}

func (a *app) finish(ctx context.Context, draft bool) error {
	if draft {
		if err := a.ctl.SaveDraft(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, a.ctl.NewItem().ID)
		return nil
	}
	if len(a.ctl.NewItem().To)+len(a.ctl.NewItem().Cc) == 0 {
		return errors.New("no recipient")
	}
	report, err := a.ctl.SendMail(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s sent to %d\n", a.ctl.NewItem().ID, report.Sent)
	return nil
}

func readBody(body string) (string, error) {
	if body != "-" {
		return body, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

func (a *app) addRecipients(list string, add func(*conversation.User)) error {
	for _, s := range splitList(list) {
		u, err := a.resolveUser(s)
		if err != nil {
			return err
		}
		add(u)
	}
	return nil
}

// resolveUser takes an id, or a search matching exactly one entry.
func (a *app) resolveUser(s string) (*conversation.User, error) {
	if u := a.conv.Users.Get(s); u != nil {
		return u, nil
	}
	found := a.conv.Users.FindUser(s, nil, nil)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no user matches %q", s)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, u := range found {
			names[i] = u.ID
		}
		return nil, fmt.Errorf("%q matches %s", s, strings.Join(names, ", "))
	}
}

func (a *app) attach(ctx context.Context, list string) error {
	paths := splitList(list)
	if len(paths) == 0 {
		return nil
	}
	files := make([]conversation.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		files = append(files, conversation.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Size:        info.Size(),
			Content:     f,
		})
	}
	return a.ctl.PostAttachments(ctx, files)
}

func mailsOf(ids []string) []*conversation.Mail {
	mails := make([]*conversation.Mail, len(ids))
	for i, id := range ids {
		mails[i] = conversation.NewMail()
		mails[i].ID = id
	}
	return mails
}

func (a *app) trash(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("trash needs mail ids")
	}
	return a.conv.TrashMails(ctx, mailsOf(args)...)
}

func (a *app) restore(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("restore needs mail ids")
	}
	return a.conv.Trash.RestoreMails(ctx, mailsOf(args))
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("delete needs mail ids")
	}
	return a.conv.Trash.RemoveMails(ctx, mailsOf(args))
}

func (a *app) folders(_ context.Context, _ []string) error {
	printFolders(a.out, a.conv.UserFolders.All(), 0)
	return nil
}

func (a *app) mkdir(ctx context.Context, args []string) error {
	fs := newFlags("mkdir")
	parentName := fs.String("parent", "", "parent folder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("mkdir needs one name")
	}
	var parent *conversation.UserFolder
	if *parentName != "" {
		var err error
		if parent, err = a.findFolder(*parentName); err != nil {
			return err
		}
	}
	f, err := a.ctl.CreateFolder(ctx, fs.Arg(0), parent)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, f.ID)
	return nil
}

func (a *app) move(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("mv needs a folder and mail ids")
	}
	dest, err := a.findFolder(args[0])
	if err != nil {
		return err
	}
	return a.conv.Move(ctx, dest, mailsOf(args[1:])...)
}

// findFolder looks a folder up by id, then by name.
func (a *app) findFolder(s string) (*conversation.UserFolder, error) {
	if f := a.conv.UserFolders.Find(s); f != nil {
		return f, nil
	}
	var match func([]*conversation.UserFolder) *conversation.UserFolder
	match = func(fs []*conversation.UserFolder) *conversation.UserFolder {
		for _, f := range fs {
			if strings.EqualFold(f.Name, s) {
				return f
			}
			if found := match(f.Children.All()); found != nil {
				return found
			}
		}
		return nil
	}
	if f := match(a.conv.UserFolders.All()); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", conversation.ErrUnknownFolder, s)
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlags("export")
	output := fs.String("o", "", "output file, default <id>.eml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("export needs one mail id")
	}
	id := fs.Arg(0)
	path := *output
	if path == "" {
		path = id + ".eml"
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.client.Export(ctx, f, id); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)
	return nil
}

func (a *app) quota(_ context.Context, _ []string) error {
	u := a.conv.Quota.Usage()
	fmt.Fprintf(a.out, "%g / %g %s\n", u.Used, u.Max, u.Unit)
	return nil
}

func (a *app) users(_ context.Context, args []string) error {
	users := a.conv.Users.All()
	if len(args) > 0 {
		users = a.conv.Users.FindUser(strings.Join(args, " "), nil, nil)
	}
	printUsers(a.out, users, a.conv.Translator())
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
