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

// CreateFolder inserts a folder.
func (s *Store) CreateFolder(ctx context.Context, f *store.Folder) (*store.Folder, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	c := f.Clone()
	oid := bson.NewObjectID()
	if c.ID != "" {
		var err error
		if oid, err = bson.ObjectIDFromHex(c.ID); err != nil {
			return nil, store.ErrInvalidID
		}
	}
	c.ID = oid.Hex()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	doc := folderDoc{
		ID: oid, OwnerID: c.OwnerID, Name: c.Name, ParentID: c.ParentID,
		Depth: c.Depth, Trashed: c.Trashed, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := s.folders.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc folderDoc
	if err := s.folders.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return doc.toFolder(), nil
}

// ListFolders returns every folder of ownerID ordered by name.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]*store.Folder, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	opts := mongoopts.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.folders.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	var docs []folderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	out := make([]*store.Folder, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toFolder())
	}
	return out, nil
}

// UpdateFolder replaces a stored folder.
func (s *Store) UpdateFolder(ctx context.Context, f *store.Folder) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(f.ID)
	if err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.folders.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":       f.Name,
		"parent_id":  f.ParentID,
		"depth":      f.Depth,
		"trashed":    f.Trashed,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteFolders removes folders by ID.
func (s *Store) DeleteFolders(ctx context.Context, ids []string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.folders.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}
	return res.DeletedCount, nil
}

// SetFoldersTrashed flags the owned folders among ids.
func (s *Store) SetFoldersTrashed(ctx context.Context, ownerID string, ids []string, trashed bool) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.folders.UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"trashed": trashed, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("trash folders: %w", err)
	}
	return res.MatchedCount, nil
}
