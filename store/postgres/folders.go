package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rbaliyan/conversation/store"
)

// CreateFolder inserts a folder.
func (s *Store) CreateFolder(ctx context.Context, f *store.Folder) (*store.Folder, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	c := f.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, parent_id, depth, trashed, created_at, updated_at)
		VALUES (:id, :owner_id, :name, :parent_id, :depth, :trashed, :created_at, :updated_at)
	`, s.opts.folderTable)
	row := folderRow{
		ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, ParentID: c.ParentID,
		Depth: c.Depth, Trashed: c.Trashed, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert folder: %w", err)
	}
	return c, nil
}

// GetFolder retrieves a folder by ID.
func (s *Store) GetFolder(ctx context.Context, id string) (*store.Folder, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row folderRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, s.opts.folderTable)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return row.toFolder(), nil
}

// ListFolders returns every folder of ownerID ordered by name.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]*store.Folder, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []folderRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY name, id`, folderColumns, s.opts.folderTable)
	if err := s.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	out := make([]*store.Folder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toFolder())
	}
	return out, nil
}

// UpdateFolder replaces a stored folder.
func (s *Store) UpdateFolder(ctx context.Context, f *store.Folder) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(f.ID); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s SET name = $2, parent_id = $3, depth = $4, trashed = $5, updated_at = NOW()
		WHERE id = $1
	`, s.opts.folderTable)
	res, err := s.db.ExecContext(ctx, query, f.ID, f.Name, f.ParentID, f.Depth, f.Trashed)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteFolders removes folders by ID.
func (s *Store) DeleteFolders(ctx context.Context, ids []string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1::uuid[])`, s.opts.folderTable)
	res, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}
	return res.RowsAffected()
}

// SetFoldersTrashed flags the owned folders among ids.
func (s *Store) SetFoldersTrashed(ctx context.Context, ownerID string, ids []string, trashed bool) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`UPDATE %s SET trashed = $3, updated_at = NOW() WHERE owner_id = $1 AND id = ANY($2::uuid[])`, s.opts.folderTable)
	res, err := s.db.ExecContext(ctx, query, ownerID, pq.Array(ids), trashed)
	if err != nil {
		return 0, fmt.Errorf("trash folders: %w", err)
	}
	return res.RowsAffected()
}
