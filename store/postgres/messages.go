package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rbaliyan/conversation/store"
)

// CreateMessage inserts a copy.
func (s *Store) CreateMessage(ctx context.Context, m *store.Message) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	c := m.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	} else if _, err := uuid.Parse(c.ID); err != nil {
		return nil, store.ErrInvalidID
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Date.IsZero() {
		c.Date = now
	}

	row, err := toRow(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, thread_id, parent_id, from_id, to_ids, cc_ids, display_names,
			subject, body, state, folder, user_folder_id, unread, trashed, trashed_at, attachments,
			date, created_at, updated_at)
		VALUES (:id, :owner_id, :thread_id, :parent_id, :from_id, :to_ids, :cc_ids, :display_names,
			:subject, :body, :state, :folder, :user_folder_id, :unread, :trashed, :trashed_at, :attachments,
			:date, :created_at, :updated_at)
	`, s.opts.table)

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return c, nil
}

// GetMessage retrieves a copy by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row messageRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.table)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return row.toMessage()
}

// UpdateMessage replaces a stored copy.
func (s *Store) UpdateMessage(ctx context.Context, m *store.Message) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		return store.ErrInvalidID
	}

	c := m.Clone()
	c.UpdatedAt = time.Now().UTC()
	row, err := toRow(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET
			thread_id = :thread_id, parent_id = :parent_id, from_id = :from_id,
			to_ids = :to_ids, cc_ids = :cc_ids, display_names = :display_names,
			subject = :subject, body = :body, state = :state, folder = :folder,
			user_folder_id = :user_folder_id, unread = :unread, trashed = :trashed,
			trashed_at = :trashed_at, attachments = :attachments, date = :date,
			updated_at = :updated_at
		WHERE id = :id
	`, s.opts.table)

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMessages removes copies by ID.
func (s *Store) DeleteMessages(ctx context.Context, ids []string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1::uuid[])`, s.opts.table)
	res, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.RowsAffected()
}

// where translates q into a WHERE clause and its arguments.
func where(q store.Query) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{q.OwnerID}
	switch {
	case q.Trashed:
		conds = append(conds, "trashed", "user_folder_id = ''")
	case q.UserFolderID != "":
		args = append(args, q.UserFolderID)
		conds = append(conds, "NOT trashed", fmt.Sprintf("user_folder_id = $%d", len(args)))
	default:
		args = append(args, q.Folder)
		conds = append(conds, "NOT trashed", "user_folder_id = ''", fmt.Sprintf("folder = $%d", len(args)))
	}
	if q.UnreadOnly {
		conds = append(conds, "unread")
	}
	return strings.Join(conds, " AND "), args
}

// ListMessages returns a page of copies, newest first.
func (s *Store) ListMessages(ctx context.Context, q store.Query) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	cond, args := where(q)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY date DESC, id OFFSET %d`,
		messageColumns, s.opts.table, cond, max(q.Offset, 0))
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return toMessages(rows)
}

// CountMessages counts copies matching q.
func (s *Store) CountMessages(ctx context.Context, q store.Query) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	cond, args := where(q)
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.opts.table, cond)
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// FindMessages returns the copies among ids owned by ownerID.
func (s *Store) FindMessages(ctx context.Context, ownerID string, ids []string) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*store.Message{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []messageRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 AND id = ANY($2::uuid[])`, messageColumns, s.opts.table)
	if err := s.db.SelectContext(ctx, &rows, query, ownerID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return toMessages(rows)
}

// FolderMessages returns the copies filed in any of folderIDs.
func (s *Store) FolderMessages(ctx context.Context, ownerID string, folderIDs []string) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(folderIDs) == 0 {
		return []*store.Message{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []messageRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 AND user_folder_id = ANY($2)`, messageColumns, s.opts.table)
	if err := s.db.SelectContext(ctx, &rows, query, ownerID, pq.Array(folderIDs)); err != nil {
		return nil, fmt.Errorf("folder messages: %w", err)
	}
	return toMessages(rows)
}

// UpdateFlags applies u to the owned copies among ids.
func (s *Store) UpdateFlags(ctx context.Context, ownerID string, ids []string, u store.FlagUpdate) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	args := []any{ownerID, pq.Array(ids)}
	sets := []string{"updated_at = NOW()"}
	if u.Unread != nil {
		args = append(args, *u.Unread)
		sets = append(sets, fmt.Sprintf("unread = $%d", len(args)))
	}
	if u.Trashed != nil {
		args = append(args, *u.Trashed)
		n := len(args)
		sets = append(sets,
			fmt.Sprintf("trashed_at = CASE WHEN $%d::boolean AND NOT trashed THEN NOW() WHEN $%d::boolean THEN trashed_at ELSE NULL END", n, n),
			fmt.Sprintf("trashed = $%d", n))
	}
	if u.UserFolderID != nil {
		args = append(args, *u.UserFolderID)
		sets = append(sets, fmt.Sprintf("user_folder_id = $%d", len(args)))
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE owner_id = $1 AND id = ANY($2::uuid[])`,
		s.opts.table, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update flags: %w", err)
	}
	return res.RowsAffected()
}

// AttachmentRefs counts copies referencing attachmentID.
func (s *Store) AttachmentRefs(ctx context.Context, attachmentID string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	probe, err := json.Marshal([]map[string]string{{"id": attachmentID}})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE attachments @> $1::jsonb`, s.opts.table)
	if err := s.db.GetContext(ctx, &n, query, string(probe)); err != nil {
		return 0, fmt.Errorf("count attachment refs: %w", err)
	}
	return n, nil
}

// StorageUsed sums attachment sizes over ownerID's copies.
func (s *Store) StorageUsed(ctx context.Context, ownerID string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var n int64
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM((a->>'size')::bigint), 0)
		FROM %s m, jsonb_array_elements(m.attachments) a
		WHERE m.owner_id = $1
	`, s.opts.table)
	if err := s.db.GetContext(ctx, &n, query, ownerID); err != nil {
		return 0, fmt.Errorf("storage used: %w", err)
	}
	return n, nil
}

// ExpiredTrash returns trashed copies trashed before cutoff.
func (s *Store) ExpiredTrash(ctx context.Context, cutoff time.Time, limit int) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE trashed AND trashed_at < $1 ORDER BY trashed_at`, messageColumns, s.opts.table)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("expired trash: %w", err)
	}
	return toMessages(rows)
}
