// Package directory resolves the users and groups messages are addressed to.
package directory

import (
	"context"
	"errors"
)

// ErrUnknownUser is returned for ids that match no user.
var ErrUnknownUser = errors.New("directory: unknown user")

// User is a person who can send and receive messages.
type User struct {
	ID          string
	DisplayName string
	// Name is an optional secondary name, such as a login.
	Name    string
	Profile string
	// Active is false until the user has activated their account.
	// Inactive users are visible but receive nothing.
	Active bool
}

// Group is a named set of users that can be addressed as one recipient.
type Group struct {
	ID      string
	Name    string
	Members []string
}

// Expansion is the result of resolving a recipient list.
type Expansion struct {
	// Users holds every distinct user reached, directly or through a group,
	// in first-seen order.
	Users []User
	// Groups holds the groups that were addressed.
	Groups []Group
	// Unknown holds the ids that matched neither a user nor a group.
	Unknown []string
}

// Directory is the user and group source of a deployment.
// Implementations must be safe for concurrent use.
type Directory interface {
	// User returns the user with the given id or ErrUnknownUser.
	User(ctx context.Context, id string) (User, error)

	// Visible returns the users and groups viewer may write to.
	Visible(ctx context.Context, viewer string) ([]User, []Group, error)

	// Expand resolves ids, replacing groups by their members.
	Expand(ctx context.Context, ids []string) (Expansion, error)
}
