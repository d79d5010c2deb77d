package server

import (
	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/directory"
	"github.com/rbaliyan/conversation/store"
)

func toMail(m *store.Message) api.Mail {
	out := api.Mail{
		ID:           m.ID,
		Date:         m.Date.UnixMilli(),
		Subject:      m.Subject,
		Body:         m.Body,
		From:         m.From,
		To:           nonNil(m.To),
		Cc:           nonNil(m.Cc),
		DisplayNames: make([][2]string, 0, len(m.DisplayNames)),
		Unread:       m.Unread,
		State:        m.State,
		ParentID:     m.ParentID,
		ThreadID:     m.ThreadID,
		Attachments:  make([]api.Attachment, 0, len(m.Attachments)),
	}
	for _, p := range m.DisplayNames {
		out.DisplayNames = append(out.DisplayNames, [2]string{p.ID, p.Name})
		if p.ID == m.From {
			out.FromName = p.Name
		}
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, api.Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return out
}

func toMails(msgs []*store.Message) []api.Mail {
	out := make([]api.Mail, len(msgs))
	for i, m := range msgs {
		out[i] = toMail(m)
	}
	return out
}

func toFolders(fs []*store.Folder) []api.Folder {
	out := make([]api.Folder, len(fs))
	for i, f := range fs {
		out[i] = api.Folder{ID: f.ID, Name: f.Name, ParentID: f.ParentID, Depth: f.Depth, Trashed: f.Trashed}
	}
	return out
}

func toPerson(u directory.User) api.Person {
	return api.Person{ID: u.ID, DisplayName: u.DisplayName, Name: u.Name, Profile: u.Profile}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
