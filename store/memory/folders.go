package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/store"
)

// CreateFolder stores a copy of f.
func (s *Store) CreateFolder(_ context.Context, f *store.Folder) (*store.Folder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	c := f.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.folders[c.ID]; exists {
		return nil, store.ErrDuplicateEntry
	}
	s.folders[c.ID] = c
	return c.Clone(), nil
}

// GetFolder retrieves a folder by ID.
func (s *Store) GetFolder(_ context.Context, id string) (*store.Folder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.Clone(), nil
}

// ListFolders returns every folder of ownerID ordered by name.
func (s *Store) ListFolders(_ context.Context, ownerID string) ([]*store.Folder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*store.Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID {
			out = append(out, f.Clone())
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *store.Folder) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// UpdateFolder replaces a stored folder.
func (s *Store) UpdateFolder(_ context.Context, f *store.Folder) error {
	if err := s.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[f.ID]; !ok {
		return store.ErrNotFound
	}
	c := f.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.folders[c.ID] = c
	return nil
}

// DeleteFolders removes folders by ID.
func (s *Store) DeleteFolders(_ context.Context, ids []string) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.folders[id]; ok {
			delete(s.folders, id)
			n++
		}
	}
	return n, nil
}

// SetFoldersTrashed flags the owned folders among ids.
func (s *Store) SetFoldersTrashed(_ context.Context, ownerID string, ids []string, trashed bool) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range dedupe(ids) {
		f, ok := s.folders[id]
		if !ok || f.OwnerID != ownerID {
			continue
		}
		f.Trashed = trashed
		f.UpdatedAt = now
		n++
	}
	return n, nil
}
