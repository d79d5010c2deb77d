package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/conversation/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateMessage inserts a copy.
func (s *Store) CreateMessage(ctx context.Context, m *store.Message) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	c := m.Clone()
	if c.ID == "" {
		c.ID = bson.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Date.IsZero() {
		c.Date = now
	}

	doc, err := toDoc(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc messageDoc
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return doc.toMessage(), nil
}

// UpdateMessage replaces a stored copy.
func (s *Store) UpdateMessage(ctx context.Context, m *store.Message) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	c := m.Clone()
	c.UpdatedAt = time.Now().UTC()
	doc, err := toDoc(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("replace message: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMessages removes copies by ID.
func (s *Store) DeleteMessages(ctx context.Context, ids []string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.DeletedCount, nil
}

// filter translates q into a BSON filter.
func filter(q store.Query) bson.M {
	f := bson.M{"owner_id": q.OwnerID}
	switch {
	case q.Trashed:
		f["trashed"] = true
		f["user_folder_id"] = ""
	case q.UserFolderID != "":
		f["trashed"] = false
		f["user_folder_id"] = q.UserFolderID
	default:
		f["trashed"] = false
		f["user_folder_id"] = ""
		f["folder"] = q.Folder
	}
	if q.UnreadOnly {
		f["unread"] = true
	}
	return f
}

func (s *Store) findAll(ctx context.Context, f any, opts ...mongoopts.Lister[mongoopts.FindOptions]) ([]*store.Message, error) {
	cursor, err := s.collection.Find(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*store.Message, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toMessage())
	}
	return out, nil
}

// ListMessages returns a page of copies, newest first.
func (s *Store) ListMessages(ctx context.Context, q store.Query) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts := mongoopts.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(max(q.Offset, 0)))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	out, err := s.findAll(ctx, filter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// CountMessages counts copies matching q.
func (s *Store) CountMessages(ctx context.Context, q store.Query) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, filter(q))
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// FindMessages returns the copies among ids owned by ownerID.
func (s *Store) FindMessages(ctx context.Context, ownerID string, ids []string) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*store.Message{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	out, err := s.findAll(ctx, bson.M{"owner_id": ownerID, "_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return out, nil
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

	out, err := s.findAll(ctx, bson.M{"owner_id": ownerID, "user_folder_id": bson.M{"$in": folderIDs}})
	if err != nil {
		return nil, fmt.Errorf("folder messages: %w", err)
	}
	return out, nil
}

// UpdateFlags applies u to the owned copies among ids.
// The update runs as a pipeline so trashed_at can depend on the previous
// trashed flag.
func (s *Store) UpdateFlags(ctx context.Context, ownerID string, ids []string, u store.FlagUpdate) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if u.Unread != nil {
		set["unread"] = *u.Unread
	}
	if u.Trashed != nil {
		set["trashed"] = *u.Trashed
		if *u.Trashed {
			set["trashed_at"] = bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$trashed", true}}, "$trashed_at", now}}
		} else {
			set["trashed_at"] = nil
		}
	}
	if u.UserFolderID != nil {
		set["user_folder_id"] = *u.UserFolderID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.collection.UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "_id": bson.M{"$in": oids}},
		bson.A{bson.M{"$set": set}},
	)
	if err != nil {
		return 0, fmt.Errorf("update flags: %w", err)
	}
	return res.MatchedCount, nil
}

// AttachmentRefs counts copies referencing attachmentID.
func (s *Store) AttachmentRefs(ctx context.Context, attachmentID string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, bson.M{"attachments.id": attachmentID})
	if err != nil {
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

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$unwind", Value: "$attachments"}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$attachments.size"}}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("storage used: %w", err)
	}
	var res []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &res); err != nil {
		return 0, fmt.Errorf("storage used: %w", err)
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0].Total, nil
}

// ExpiredTrash returns trashed copies trashed before cutoff.
func (s *Store) ExpiredTrash(ctx context.Context, cutoff time.Time, limit int) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts := mongoopts.Find().SetSort(bson.D{{Key: "trashed_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	out, err := s.findAll(ctx, bson.M{"trashed": true, "trashed_at": bson.M{"$lt": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("expired trash: %w", err)
	}
	return out, nil
}
