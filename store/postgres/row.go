package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rbaliyan/conversation/store"
)

const messageColumns = `id, owner_id, thread_id, parent_id, from_id, to_ids, cc_ids, display_names,
	subject, body, state, folder, user_folder_id, unread, trashed, trashed_at, attachments,
	date, created_at, updated_at`

const folderColumns = `id, owner_id, name, parent_id, depth, trashed, created_at, updated_at`

// messageRow is the sqlx scan target for the message table.
type messageRow struct {
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	ThreadID     string         `db:"thread_id"`
	ParentID     string         `db:"parent_id"`
	FromID       string         `db:"from_id"`
	ToIDs        pq.StringArray `db:"to_ids"`
	CcIDs        pq.StringArray `db:"cc_ids"`
	DisplayNames []byte         `db:"display_names"`
	Subject      string         `db:"subject"`
	Body         string         `db:"body"`
	State        string         `db:"state"`
	Folder       string         `db:"folder"`
	UserFolderID string         `db:"user_folder_id"`
	Unread       bool           `db:"unread"`
	Trashed      bool           `db:"trashed"`
	TrashedAt    sql.NullTime   `db:"trashed_at"`
	Attachments  []byte         `db:"attachments"`
	Date         time.Time      `db:"date"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func toRow(m *store.Message) (*messageRow, error) {
	names, err := json.Marshal(nonNil(m.DisplayNames))
	if err != nil {
		return nil, fmt.Errorf("marshal display names: %w", err)
	}
	atts, err := json.Marshal(nonNil(m.Attachments))
	if err != nil {
		return nil, fmt.Errorf("marshal attachments: %w", err)
	}
	return &messageRow{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		ThreadID:     m.ThreadID,
		ParentID:     m.ParentID,
		FromID:       m.From,
		ToIDs:        pq.StringArray(nonNil(m.To)),
		CcIDs:        pq.StringArray(nonNil(m.Cc)),
		DisplayNames: names,
		Subject:      m.Subject,
		Body:         m.Body,
		State:        m.State,
		Folder:       m.Folder,
		UserFolderID: m.UserFolderID,
		Unread:       m.Unread,
		Trashed:      m.Trashed,
		TrashedAt:    sql.NullTime{Time: m.TrashedAt, Valid: !m.TrashedAt.IsZero()},
		Attachments:  atts,
		Date:         m.Date,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func (r *messageRow) toMessage() (*store.Message, error) {
	m := &store.Message{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		ThreadID:     r.ThreadID,
		ParentID:     r.ParentID,
		From:         r.FromID,
		To:           []string(r.ToIDs),
		Cc:           []string(r.CcIDs),
		Subject:      r.Subject,
		Body:         r.Body,
		State:        r.State,
		Folder:       r.Folder,
		UserFolderID: r.UserFolderID,
		Unread:       r.Unread,
		Trashed:      r.Trashed,
		Date:         r.Date.UTC(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.TrashedAt.Valid {
		m.TrashedAt = r.TrashedAt.Time.UTC()
	}
	if len(r.DisplayNames) > 0 {
		if err := json.Unmarshal(r.DisplayNames, &m.DisplayNames); err != nil {
			return nil, fmt.Errorf("unmarshal display names: %w", err)
		}
	}
	if len(r.Attachments) > 0 {
		if err := json.Unmarshal(r.Attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	return m, nil
}

func toMessages(rows []messageRow) ([]*store.Message, error) {
	out := make([]*store.Message, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toMessage()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// folderRow is the sqlx scan target for the folder table.
type folderRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	ParentID  string    `db:"parent_id"`
	Depth     int       `db:"depth"`
	Trashed   bool      `db:"trashed"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *folderRow) toFolder() *store.Folder {
	return &store.Folder{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		ParentID:  r.ParentID,
		Depth:     r.Depth,
		Trashed:   r.Trashed,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
