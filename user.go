package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rbaliyan/conversation/api"
)

// User is a person or a group as seen in the directory or on a mail.
type User struct {
	ID          string
	DisplayName string
	Name        string
	Profile     string
	IsGroup     bool
	Deleted     bool
}

// Format renders u for a recipient list: display name, name, then the
// translated profile in parentheses.
func (u *User) Format(t Translator) string {
	s := u.DisplayName + u.Name
	if u.Profile != "" {
		s += " (" + translate(t, u.Profile) + ")"
	}
	return s
}

func (u *User) String() string {
	return u.Format(nil)
}

// MapUser resolves id through the [id, name] pairs of a mail.
// It returns nil when id is not listed.
func MapUser(displayNames [][2]string, id string) *User {
	for _, p := range displayNames {
		if p[0] == id {
			return &User{ID: id, DisplayName: p[1]}
		}
	}
	return nil
}

// Users is the directory of people and groups the signed-in user may
// write to.
type Users struct {
	backend Backend

	mu  sync.RWMutex
	all []*User
}

func newUsers(b Backend) *Users {
	return &Users{backend: b}
}

// Sync replaces the directory with the visible groups followed by the
// visible users.
func (u *Users) Sync(ctx context.Context) error {
	v, err := u.backend.Visible(ctx)
	if err != nil {
		return fmt.Errorf("conversation: sync users: %w", err)
	}

	all := make([]*User, 0, len(v.Groups)+len(v.Users))
	for _, g := range v.Groups {
		name := g.DisplayName
		if name == "" {
			name = g.Name
		}
		all = append(all, &User{ID: g.ID, DisplayName: name, IsGroup: true})
	}
	for _, p := range v.Users {
		all = append(all, personUser(p))
	}

	u.mu.Lock()
	u.all = all
	u.mu.Unlock()
	return nil
}

// All returns the directory entries.
func (u *Users) All() []*User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return slices.Clone(u.all)
}

// Get returns the entry with the given id, or nil.
func (u *Users) Get(id string) *User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, usr := range u.all {
		if usr.ID == id {
			return usr
		}
	}
	return nil
}

// IsGroup reports whether id is a group of the directory.
func (u *Users) IsGroup(id string) bool {
	usr := u.Get(id)
	return usr != nil && usr.IsGroup
}

// FindUser returns the directory entries and include entries whose display
// name, reversed display name or name contain search, ignoring case and
// accents. Entries whose id is in exclude are left out.
func (u *Users) FindUser(search string, include, exclude []*User) []*User {
	term := strings.ToLower(removeAccents(search))
	if term == "" {
		return nil
	}

	candidates := make([]*User, 0, len(include))
	for _, usr := range u.All() {
		if !containsUser(include, usr.ID) {
			candidates = append(candidates, usr)
		}
	}
	candidates = append(candidates, include...)

	var found []*User
	for _, usr := range candidates {
		if containsUser(exclude, usr.ID) {
			continue
		}
		if matchUser(usr, term) {
			found = append(found, usr)
		}
	}
	return found
}

// FindData returns the display name of the person id.
func (u *Users) FindData(ctx context.Context, id string) (string, error) {
	res, err := u.backend.Person(ctx, id)
	if err != nil {
		return "", fmt.Errorf("conversation: person %s: %w", id, err)
	}
	if len(res.Result) == 0 {
		return "", nil
	}
	return res.Result[0].DisplayName, nil
}

func matchUser(u *User, term string) bool {
	first, second, _ := strings.Cut(u.DisplayName, " ")
	second, _, _ = strings.Cut(second, " ")
	for _, s := range []string{u.DisplayName, second + " " + first, u.Name} {
		if strings.Contains(strings.ToLower(removeAccents(s)), term) {
			return true
		}
	}
	return false
}

func containsUser(users []*User, id string) bool {
	return slices.ContainsFunc(users, func(u *User) bool { return u.ID == id })
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func toUsers(users []*User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func personUser(p api.Person) *User {
	return &User{ID: p.ID, DisplayName: p.DisplayName, Name: p.Name, Profile: p.Profile}
}
