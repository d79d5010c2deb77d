package mongo

import (
	"time"

	"github.com/rbaliyan/conversation/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// messageDoc is the BSON shape of a message copy.
type messageDoc struct {
	ID           bson.ObjectID      `bson:"_id"`
	OwnerID      string             `bson:"owner_id"`
	ThreadID     string             `bson:"thread_id"`
	ParentID     string             `bson:"parent_id"`
	From         string             `bson:"from"`
	To           []string           `bson:"to"`
	Cc           []string           `bson:"cc"`
	DisplayNames []store.Party      `bson:"display_names"`
	Subject      string             `bson:"subject"`
	Body         string             `bson:"body"`
	State        string             `bson:"state"`
	Folder       string             `bson:"folder"`
	UserFolderID string             `bson:"user_folder_id"`
	Unread       bool               `bson:"unread"`
	Trashed      bool               `bson:"trashed"`
	TrashedAt    *time.Time         `bson:"trashed_at,omitempty"`
	Attachments  []store.Attachment `bson:"attachments"`
	Date         time.Time          `bson:"date"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func toDoc(m *store.Message) (*messageDoc, error) {
	oid, err := bson.ObjectIDFromHex(m.ID)
	if err != nil {
		return nil, store.ErrInvalidID
	}
	d := &messageDoc{
		ID:           oid,
		OwnerID:      m.OwnerID,
		ThreadID:     m.ThreadID,
		ParentID:     m.ParentID,
		From:         m.From,
		To:           nonNil(m.To),
		Cc:           nonNil(m.Cc),
		DisplayNames: nonNil(m.DisplayNames),
		Subject:      m.Subject,
		Body:         m.Body,
		State:        m.State,
		Folder:       m.Folder,
		UserFolderID: m.UserFolderID,
		Unread:       m.Unread,
		Trashed:      m.Trashed,
		Attachments:  nonNil(m.Attachments),
		Date:         m.Date,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if !m.TrashedAt.IsZero() {
		t := m.TrashedAt
		d.TrashedAt = &t
	}
	return d, nil
}

func (d *messageDoc) toMessage() *store.Message {
	m := &store.Message{
		ID:           d.ID.Hex(),
		OwnerID:      d.OwnerID,
		ThreadID:     d.ThreadID,
		ParentID:     d.ParentID,
		From:         d.From,
		To:           d.To,
		Cc:           d.Cc,
		DisplayNames: d.DisplayNames,
		Subject:      d.Subject,
		Body:         d.Body,
		State:        d.State,
		Folder:       d.Folder,
		UserFolderID: d.UserFolderID,
		Unread:       d.Unread,
		Trashed:      d.Trashed,
		Attachments:  d.Attachments,
		Date:         d.Date.UTC(),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.TrashedAt != nil {
		m.TrashedAt = d.TrashedAt.UTC()
	}
	return m
}

// folderDoc is the BSON shape of a user folder.
type folderDoc struct {
	ID        bson.ObjectID `bson:"_id"`
	OwnerID   string        `bson:"owner_id"`
	Name      string        `bson:"name"`
	ParentID  string        `bson:"parent_id"`
	Depth     int           `bson:"depth"`
	Trashed   bool          `bson:"trashed"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d *folderDoc) toFolder() *store.Folder {
	return &store.Folder{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		ParentID:  d.ParentID,
		Depth:     d.Depth,
		Trashed:   d.Trashed,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
