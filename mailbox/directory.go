package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbaliyan/conversation/directory"
)

// Visible returns the users and groups the user may write to.
func (m *Mailbox) Visible(ctx context.Context) ([]directory.User, []directory.Group, error) {
	if err := m.check(); err != nil {
		return nil, nil, err
	}
	users, groups, err := m.s.opts.directory.Visible(ctx, m.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("mailbox: visible: %w", err)
	}
	return users, groups, nil
}

// Person looks a user up by id.
func (m *Mailbox) Person(ctx context.Context, id string) (directory.User, error) {
	if err := m.check(); err != nil {
		return directory.User{}, err
	}
	u, err := m.s.opts.directory.User(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownUser) {
			return directory.User{}, ErrNotFound
		}
		return directory.User{}, fmt.Errorf("mailbox: person: %w", err)
	}
	return u, nil
}
