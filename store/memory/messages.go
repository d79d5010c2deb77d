package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/store"
)

// CreateMessage stores a copy of m.
func (s *Store) CreateMessage(_ context.Context, m *store.Message) (*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	c := m.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Date.IsZero() {
		c.Date = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.messages[c.ID]; exists {
		return nil, store.ErrDuplicateEntry
	}
	s.messages[c.ID] = c
	return c.Clone(), nil
}

// GetMessage retrieves a copy by ID.
func (s *Store) GetMessage(_ context.Context, id string) (*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.Clone(), nil
}

// UpdateMessage replaces a stored copy.
func (s *Store) UpdateMessage(_ context.Context, m *store.Message) error {
	if err := s.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		return store.ErrNotFound
	}
	c := m.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.messages[c.ID] = c
	return nil
}

// DeleteMessages removes copies by ID.
func (s *Store) DeleteMessages(_ context.Context, ids []string) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.messages[id]; ok {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

// ListMessages returns a page of copies matching q, newest first.
func (s *Store) ListMessages(_ context.Context, q store.Query) ([]*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*store.Message
	for _, m := range s.messages {
		if q.Matches(m) {
			out = append(out, m.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if q.Offset >= len(out) {
		return []*store.Message{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// CountMessages counts copies matching q.
func (s *Store) CountMessages(_ context.Context, q store.Query) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if q.Matches(m) {
			n++
		}
	}
	return n, nil
}

// FindMessages returns the copies among ids owned by ownerID.
func (s *Store) FindMessages(_ context.Context, ownerID string, ids []string) ([]*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Message, 0, len(ids))
	for _, id := range dedupe(ids) {
		if m, ok := s.messages[id]; ok && m.OwnerID == ownerID {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// FolderMessages returns the copies filed in any of folderIDs.
func (s *Store) FolderMessages(_ context.Context, ownerID string, folderIDs []string) ([]*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Message
	for _, m := range s.messages {
		if m.OwnerID == ownerID && m.UserFolderID != "" && slices.Contains(folderIDs, m.UserFolderID) {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// UpdateFlags applies u to the owned copies among ids.
func (s *Store) UpdateFlags(_ context.Context, ownerID string, ids []string, u store.FlagUpdate) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range dedupe(ids) {
		m, ok := s.messages[id]
		if !ok || m.OwnerID != ownerID {
			continue
		}
		u.Apply(m, now)
		n++
	}
	return n, nil
}

// AttachmentRefs counts copies referencing attachmentID.
func (s *Store) AttachmentRefs(_ context.Context, attachmentID string) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if _, ok := m.Attachment(attachmentID); ok {
			n++
		}
	}
	return n, nil
}

// StorageUsed sums attachment sizes over ownerID's copies.
func (s *Store) StorageUsed(_ context.Context, ownerID string) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if m.OwnerID == ownerID {
			n += m.AttachmentSize()
		}
	}
	return n, nil
}

// ExpiredTrash returns trashed copies trashed before cutoff.
func (s *Store) ExpiredTrash(_ context.Context, cutoff time.Time, limit int) ([]*store.Message, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Message
	for _, m := range s.messages {
		if m.Trashed && m.TrashedAt.Before(cutoff) {
			out = append(out, m.Clone())
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func sortNewestFirst(msgs []*store.Message) {
	slices.SortFunc(msgs, func(a, b *store.Message) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
