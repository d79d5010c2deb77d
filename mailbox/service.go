// Package mailbox is the server side of conversation: it keeps one copy of
// every message per owner, files copies into system and user folders,
// delivers sends, and manages attachments within a per-user quota.
//
// Create a Service, Connect it, then act for a user through Mailbox:
//
//	svc, err := mailbox.NewService(
//	    mailbox.WithStore(memory.New()),
//	    mailbox.WithDirectory(dir),
//	)
//	if err := svc.Connect(ctx); err != nil { ... }
//	defer svc.Close(ctx)
//
//	mb := svc.Mailbox("user-1")
//	res, err := mb.Send(ctx, "", "", mailbox.Draft{To: []string{"user-2"}, Subject: "Hi"})
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/conversation/store"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)

// Service manages every user's mailbox over shared storage.
type Service struct {
	store  store.Store
	logger *slog.Logger
	opts   *options

	state   atomic.Int32
	otel    *instrumentation
	sendSem *semaphore.Weighted
	unread  *unreadCache

	bus    *event.Bus
	events *Events
}

// NewService creates a service. Call Connect before use.
func NewService(opts ...Option) (*Service, error) {
	o := newOptions(opts...)
	if o.store == nil {
		return nil, ErrStoreRequired
	}
	if o.directory == nil {
		return nil, ErrDirectoryRequired
	}

	in, err := newInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("mailbox: init otel: %w", err)
	}

	s := &Service{
		store:   o.store,
		logger:  o.logger,
		opts:    o,
		otel:    in,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}
	if o.unreadCache != nil {
		s.unread = &unreadCache{client: o.unreadCache, ttl: o.unreadCacheTTL, logger: o.logger}
	}
	return s, nil
}

// IsConnected reports whether the service is ready.
func (s *Service) IsConnected() bool {
	return s.state.Load() == stateConnected
}

// Events returns the events of this service.
func (s *Service) Events() *Events {
	return s.events
}

// MaxFolderDepth returns how deep user folders may nest.
func (s *Service) MaxFolderDepth() int {
	return s.opts.maxFolderDepth
}

// PageSize returns the number of messages per listing page.
func (s *Service) PageSize() int {
	return s.opts.pageSize
}

// Connect connects the store and sets up the event bus.
func (s *Service) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}
	ok := false
	defer func() {
		if ok {
			s.state.Store(stateConnected)
		} else {
			s.state.Store(stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("mailbox: connect store: %w", err)
	}
	if err := s.initEventBus(ctx); err != nil {
		_ = s.store.Close(ctx)
		return fmt.Errorf("mailbox: init event bus: %w", err)
	}

	ok = true
	s.logger.Info("conversation service connected")
	return nil
}

var busCounter atomic.Int64

func (s *Service) initEventBus(ctx context.Context) error {
	name := fmt.Sprintf("conversation-%d", busCounter.Add(1))

	var (
		bus *event.Bus
		err error
	)
	switch {
	case s.opts.eventTransport != nil:
		bus, err = event.NewBus(name, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		t, terr := eventredis.New(s.opts.redisClient)
		if terr != nil {
			return fmt.Errorf("create redis transport: %w", terr)
		}
		bus, err = event.NewBus(name, event.WithTransport(t))
	default:
		bus, err = event.NewBus(name, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create bus: %w", err)
	}

	events := newEvents(name)
	if err := events.register(ctx, bus); err != nil {
		_ = bus.Close(ctx)
		return err
	}
	s.bus, s.events = bus, events
	return nil
}

// Close waits for in-flight sends, then closes the bus and the store.
func (s *Service) Close(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()
	if err := s.sendSem.Acquire(waitCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timed out waiting for in-flight sends", "error", err)
		errs = append(errs, fmt.Errorf("mailbox: shutdown: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
	}

	if s.bus != nil {
		if err := s.bus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mailbox: close bus: %w", err))
		}
	}
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("mailbox: close store: %w", err))
	}
	return errors.Join(errs...)
}

// Mailbox returns the mailbox of userID. It is cheap; create one per
// request.
func (s *Service) Mailbox(userID string) *Mailbox {
	return &Mailbox{userID: userID, s: s}
}

// CleanupTrashResult reports what CleanupTrash removed.
type CleanupTrashResult struct {
	Deleted     int
	Interrupted bool
}

// CleanupTrash permanently deletes messages trashed longer ago than the
// retention period. Run it periodically from a scheduler. Messages filed in
// a trashed user folder are not trashed themselves; they stay until the
// folder is restored or deleted.
func (s *Service) CleanupTrash(ctx context.Context) (*CleanupTrashResult, error) {
	if !s.IsConnected() {
		return nil, ErrNotConnected
	}

	ctx, end := s.otel.start(ctx, "cleanup_trash")
	res := &CleanupTrashResult{}
	var err error
	defer func() { end(err) }()

	cutoff := time.Now().UTC().Add(-s.opts.trashRetention)
	const batch = 100
	for {
		if ctx.Err() != nil {
			res.Interrupted = true
			err = ctx.Err()
			return res, err
		}

		var expired []*store.Message
		expired, err = s.store.ExpiredTrash(ctx, cutoff, batch)
		if err != nil {
			err = fmt.Errorf("mailbox: find expired trash: %w", err)
			return res, err
		}
		if len(expired) == 0 {
			break
		}

		var n int
		n, err = s.deleteCopies(ctx, expired)
		res.Deleted += n
		if err != nil {
			return res, err
		}
		if len(expired) < batch {
			break
		}
	}

	if res.Deleted > 0 {
		s.logger.Info("trash cleanup", "deleted", res.Deleted, "cutoff", cutoff)
	}
	return res, nil
}

// deleteCopies removes copies permanently, releases attachment blobs no
// longer referenced and publishes one MessageDeleted per copy.
func (s *Service) deleteCopies(ctx context.Context, msgs []*store.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	n, err := s.store.DeleteMessages(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mailbox: delete messages: %w", err)
	}

	s.releaseAttachments(ctx, msgs)

	now := time.Now().UTC()
	owners := make(map[string]bool)
	for _, m := range msgs {
		owners[m.OwnerID] = true
		if err := publish(ctx, s, s.events.MessageDeleted, EventNameMessageDeleted, m.ID, MessageDeletedEvent{
			MessageID: m.ID,
			UserID:    m.OwnerID,
			DeletedAt: now,
		}); err != nil {
			return int(n), err
		}
	}
	for owner := range owners {
		s.unread.invalidate(ctx, owner)
	}
	return int(n), nil
}

// releaseAttachments deletes the blobs of atts that no stored copy
// references anymore. Failures leave orphaned blobs and are only logged.
func (s *Service) releaseAttachments(ctx context.Context, msgs []*store.Message) {
	if s.opts.files == nil {
		return
	}
	seen := make(map[string]bool)
	for _, m := range msgs {
		for _, a := range m.Attachments {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			s.releaseAttachment(ctx, a)
		}
	}
}

func (s *Service) releaseAttachment(ctx context.Context, a store.Attachment) {
	refs, err := s.store.AttachmentRefs(ctx, a.ID)
	if err != nil {
		s.logger.Warn("count attachment refs", "attachment_id", a.ID, "error", err)
		return
	}
	if refs > 0 {
		return
	}
	if err := s.opts.files.Delete(ctx, a.URI); err != nil {
		s.logger.Warn("delete attachment blob", "attachment_id", a.ID, "error", err)
		return
	}
	s.logger.Debug("released attachment", "attachment_id", a.ID)
}

// Mailbox acts on the messages and folders of one user.
type Mailbox struct {
	userID string
	s      *Service
}

// UserID returns the owner of this mailbox.
func (m *Mailbox) UserID() string {
	return m.userID
}

func (m *Mailbox) check() error {
	if !m.s.IsConnected() {
		return ErrNotConnected
	}
	if !validUserID(m.userID) {
		return ErrInvalidUserID
	}
	return nil
}

func (m *Mailbox) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	return m.s.otel.start(ctx, op, append(attrs, attribute.String("user_id", m.userID))...)
}

// validUserID rejects empty ids and ids with separators or control
// characters, which would corrupt cache keys.
func validUserID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		if c <= ' ' || c == 127 || c == '*' || c == ':' || c == '/' || c == '\\' {
			return false
		}
	}
	return true
}

// owned loads the copies among ids owned by the user. Any id missing or
// owned by someone else fails the whole call with ErrNotFound.
func (m *Mailbox) owned(ctx context.Context, ids []string) ([]*store.Message, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrInvalidID
	}
	msgs, err := m.s.store.FindMessages(ctx, m.userID, ids)
	if err != nil {
		return nil, fmt.Errorf("mailbox: find messages: %w", err)
	}
	if len(msgs) != len(ids) {
		return nil, ErrNotFound
	}
	return msgs, nil
}

func (m *Mailbox) ownedOne(ctx context.Context, id string) (*store.Message, error) {
	msgs, err := m.owned(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
