package conversation

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/rbaliyan/conversation/api"
)

// SyncOptions selects the page to fetch and whether it replaces the list
// or extends it.
type SyncOptions struct {
	Page   int
	Append bool
}

type fetchFunc func(ctx context.Context, page int) ([]api.Mail, error)

// Mails is the paginated content of a folder.
type Mails struct {
	fetch fetchFunc
	users *Users

	mu        sync.Mutex
	all       []*Mail
	page      int
	full      bool
	loadGen   uint64 // bumped by every replacing sync
	appendGen uint64
	loading   int // replacing syncs in flight
	selected  map[string]bool
}

func newMails(fetch fetchFunc, users *Users) *Mails {
	return &Mails{fetch: fetch, users: users, selected: make(map[string]bool)}
}

// Sync fetches one page, newest first. A reload is dropped when a later
// reload overtakes it. An append is skipped while a reload is in flight and
// dropped when a reload or another append started after it.
func (ms *Mails) Sync(ctx context.Context, opts SyncOptions) error {
	ms.mu.Lock()
	if opts.Append && ms.loading > 0 {
		ms.mu.Unlock()
		return nil
	}
	if !opts.Append {
		ms.loadGen++
		ms.loading++
	} else {
		ms.appendGen++
	}
	loadGen, appendGen := ms.loadGen, ms.appendGen
	ms.mu.Unlock()

	raw, err := ms.fetch(ctx, opts.Page)

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if !opts.Append {
		ms.loading--
	}
	if err != nil {
		return err
	}
	if loadGen != ms.loadGen || (opts.Append && appendGen != ms.appendGen) {
		return nil
	}

	mails := make([]*Mail, 0, len(raw))
	for _, a := range raw {
		mails = append(mails, mailFromAPI(a, ms.users))
	}
	slices.SortStableFunc(mails, func(a, b *Mail) int {
		return cmp.Compare(b.millis(), a.millis())
	})

	ms.page = opts.Page
	if !opts.Append {
		ms.all = mails
		ms.full = false
		clear(ms.selected)
		return nil
	}
	if len(mails) == 0 {
		ms.full = true
		return nil
	}
	ms.all = append(ms.all, mails...)
	return nil
}

// Refresh reloads the first page.
func (ms *Mails) Refresh(ctx context.Context) error {
	return ms.Sync(ctx, SyncOptions{})
}

// NextPage appends the next page unless the last one came back empty.
func (ms *Mails) NextPage(ctx context.Context) error {
	ms.mu.Lock()
	if ms.full {
		ms.mu.Unlock()
		return nil
	}
	next := ms.page + 1
	ms.mu.Unlock()
	return ms.Sync(ctx, SyncOptions{Page: next, Append: true})
}

// Page returns the number of the last page fetched.
func (ms *Mails) Page() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.page
}

// Full reports whether every page has been fetched.
func (ms *Mails) Full() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.full
}

// All returns the loaded mails.
func (ms *Mails) All() []*Mail {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return slices.Clone(ms.all)
}

// Len returns the number of loaded mails.
func (ms *Mails) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.all)
}

// Find returns the loaded mail with the given id, or nil.
func (ms *Mails) Find(id string) *Mail {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, m := range ms.all {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Push adds m at the top unless a mail with its id is already loaded.
func (ms *Mails) Push(m *Mail) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if slices.ContainsFunc(ms.all, func(x *Mail) bool { return x == m || (m.ID != "" && x.ID == m.ID) }) {
		return
	}
	ms.all = slices.Insert(ms.all, 0, m)
}

// Remove drops the mails with the given ids from the list.
func (ms *Mails) Remove(ids ...string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.all = slices.DeleteFunc(ms.all, func(m *Mail) bool {
		return slices.Contains(ids, m.ID)
	})
	for _, id := range ids {
		delete(ms.selected, id)
	}
}

// Select marks or unmarks the mail id.
func (ms *Mails) Select(id string, selected bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if selected {
		ms.selected[id] = true
	} else {
		delete(ms.selected, id)
	}
}

// SelectAll marks every loaded mail, or none.
func (ms *Mails) SelectAll(selected bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	clear(ms.selected)
	if !selected {
		return
	}
	for _, m := range ms.all {
		ms.selected[m.ID] = true
	}
}

// IsSelected reports whether the mail id is marked.
func (ms *Mails) IsSelected(id string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.selected[id]
}

// Selection returns the marked mails in list order.
func (ms *Mails) Selection() []*Mail {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []*Mail
	for _, m := range ms.all {
		if ms.selected[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// RemoveSelection drops the marked mails from the list and returns them.
func (ms *Mails) RemoveSelection() []*Mail {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var removed []*Mail
	ms.all = slices.DeleteFunc(ms.all, func(m *Mail) bool {
		if ms.selected[m.ID] {
			removed = append(removed, m)
			return true
		}
		return false
	})
	clear(ms.selected)
	return removed
}

func mailIDs(mails []*Mail) []string {
	ids := make([]string, 0, len(mails))
	for _, m := range mails {
		ids = append(ids, m.ID)
	}
	return ids
}
