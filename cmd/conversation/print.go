package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rbaliyan/conversation"
	"github.com/rbaliyan/conversation/content"
)

const dateLayout = "2006-01-02 15:04"

var plain = content.NewSanitizer()

func printMails(w io.Writer, mails []*conversation.Mail, me string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, m := range mails {
		mark := " "
		if m.Unread {
			mark = "*"
		}
		who := m.Sender().DisplayName
		if conversation.SystemFolderOf(m, me) != conversation.ClassInbox {
			who = "to " + names(m.To)
		}
		clip := ""
		if len(m.Attachments) > 0 {
			clip = fmt.Sprintf("[%d]", len(m.Attachments))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, m.ID, m.SentDate().Format(dateLayout), who, m.Subject, clip)
	}
}

func printMail(w io.Writer, m *conversation.Mail, t conversation.Translator) {
	fmt.Fprintf(w, "From:    %s\n", m.Sender().Format(t))
	fmt.Fprintf(w, "To:      %s\n", names(m.To))
	if len(m.Cc) > 0 {
		fmt.Fprintf(w, "Cc:      %s\n", names(m.Cc))
	}
	fmt.Fprintf(w, "Date:    %s\n", m.SentDate().Format(dateLayout))
	fmt.Fprintf(w, "Subject: %s\n", m.Subject)
	for _, a := range m.Attachments {
		fmt.Fprintf(w, "Attach:  %s %s (%s)\n", a.ID, a.Filename, conversation.FormatSize(float64(a.Size), t))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, plain.PlainText(m.Body))
}

func printFolders(w io.Writer, folders []*conversation.UserFolder, depth int) {
	for _, f := range folders {
		fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", depth), f.Name, f.ID)
		printFolders(w, f.Children.All(), depth+1)
	}
}

func printUsers(w io.Writer, users []*conversation.User, t conversation.Translator) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, u := range users {
		kind := "user"
		if u.IsGroup {
			kind = "group"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, kind, u.Format(t))
	}
}

func names(users []*conversation.User) string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.DisplayName
		if out[i] == "" {
			out[i] = u.ID
		}
	}
	return strings.Join(out, ", ")
}
