package directory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Static is an in-memory Directory for tests and small deployments.
type Static struct {
	mu     sync.RWMutex
	users  map[string]User
	groups map[string]Group
}

var _ Directory = (*Static)(nil)

// NewStatic builds a directory from users and groups. The inputs are copied.
func NewStatic(users []User, groups []Group) *Static {
	s := &Static{
		users:  make(map[string]User, len(users)),
		groups: make(map[string]Group, len(groups)),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	for _, g := range groups {
		g.Members = slices.Clone(g.Members)
		s.groups[g.ID] = g
	}
	return s
}

// Put adds or replaces a user.
func (s *Static) Put(u User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

// User returns the user with the given id.
func (s *Static) User(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
	}
	return u, nil
}

// Visible returns every other user, and every group, sorted by display name.
func (s *Static) Visible(_ context.Context, viewer string) ([]User, []Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[viewer]; !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownUser, viewer)
	}

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != viewer {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b User) int {
		return strings.Compare(a.DisplayName+a.ID, b.DisplayName+b.ID)
	})

	groups := slices.Collect(maps.Values(s.groups))
	slices.SortFunc(groups, func(a, b Group) int {
		return strings.Compare(a.Name+a.ID, b.Name+b.ID)
	})
	for i := range groups {
		groups[i].Members = slices.Clone(groups[i].Members)
	}
	return users, groups, nil
}

// Expand resolves ids. Unknown group members are skipped.
func (s *Static) Expand(_ context.Context, ids []string) (Expansion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exp Expansion
	seen := make(map[string]bool)
	add := func(u User) {
		if !seen[u.ID] {
			seen[u.ID] = true
			exp.Users = append(exp.Users, u)
		}
	}

	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			add(u)
			continue
		}
		if g, ok := s.groups[id]; ok {
			exp.Groups = append(exp.Groups, g)
			for _, m := range g.Members {
				if u, ok := s.users[m]; ok {
					add(u)
				}
			}
			continue
		}
		if !slices.Contains(exp.Unknown, id) {
			exp.Unknown = append(exp.Unknown, id)
		}
	}
	return exp, nil
}
