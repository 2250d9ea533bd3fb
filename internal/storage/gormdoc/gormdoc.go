// Package gormdoc implements the storage.DocumentStore contract over a
// relational database through GORM. Documents are stored as JSON bodies in a
// single table keyed by (collection, doc_id); filtering and ordering are
// applied after decode, and the set-union/set-remove operators and the
// single-document transaction primitive run inside database transactions
// guarded by an optimistic version column.
package gormdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"moodboard/internal/storage"
)

// Document is one stored document row.
type Document struct {
	Collection string `gorm:"primaryKey;size:64"`
	DocID      string `gorm:"primaryKey;size:64;column:doc_id"`
	Body       string `gorm:"type:text;not null"`
	Version    int64  `gorm:"not null;default:0"`
}

// TableName specifies the table name for GORM.
func (Document) TableName() string {
	return "documents"
}

// Store is a DocumentStore backed by a GORM database.
type Store struct {
	db   *gorm.DB
	feed storage.ChangeFeed
}

// transaction retry budget: the contract requires at least one internal
// retry before a conflict surfaces.
const txAttempts = 3

// New creates a Store over the given database and runs schema migration.
// feed may be nil, in which case live queries only see local writes.
func New(db *gorm.DB, feed storage.ChangeFeed) (*Store, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	if feed == nil {
		feed = storage.NewLocalChangeFeed()
	}
	return &Store{db: db, feed: feed}, nil
}

// Get performs a point read.
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Doc, error) {
	var row Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeBody(row)
}

// Set writes the full document at the given id, creating it if absent.
func (s *Store) Set(ctx context.Context, collection, id string, doc storage.Doc) error {
	body, err := encodeBody(doc, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Document
		findErr := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&existing).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return tx.Create(&Document{Collection: collection, DocID: id, Body: body}).Error
		}
		if findErr != nil {
			return findErr
		}
		return tx.Model(&Document{}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Updates(map[string]any{"body": body, "version": existing.Version + 1}).Error
	})
	if err != nil {
		return err
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Add creates a document with a generated id.
func (s *Store) Add(ctx context.Context, collection string, doc storage.Doc) (string, error) {
	id := uuid.NewString()
	return id, s.Set(ctx, collection, id, doc)
}

// Update applies field updates inside a version-guarded transaction. The
// operators themselves are commutative, so a conflicting concurrent update
// is resolved by re-reading and re-applying rather than failing.
func (s *Store) Update(ctx context.Context, collection, id string, updates ...storage.Update) error {
	err := s.mutate(ctx, collection, id, func(doc storage.Doc) (storage.Doc, error) {
		for _, u := range updates {
			storage.ApplyUpdate(doc, u)
		}
		return doc, nil
	})
	if err != nil {
		return err
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Delete removes a single document; missing documents are a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&Document{}).Error
	if err != nil {
		return err
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// Query performs a one-shot filtered, ordered read.
func (s *Store) Query(ctx context.Context, collection string, q storage.Query) ([]storage.Doc, error) {
	var rows []Document
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]storage.Doc, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeBody(row)
		if err != nil {
			return nil, err
		}
		if storage.Matches(doc, q.Filters) {
			docs = append(docs, doc)
		}
	}
	storage.SortDocs(docs, q.OrderBy, q.Desc)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Count returns the number of matching documents.
func (s *Store) Count(ctx context.Context, collection string, filters ...storage.Filter) (int, error) {
	docs, err := s.Query(ctx, collection, storage.Query{Filters: filters})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// DeleteWhere removes every matching document in one transaction.
func (s *Store) DeleteWhere(ctx context.Context, collection string, filters ...storage.Filter) error {
	docs, err := s.Query(ctx, collection, storage.Query{Filters: filters})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	err = s.db.WithContext(ctx).
		Where("collection = ? AND doc_id IN ?", collection, ids).
		Delete(&Document{}).Error
	if err != nil {
		return err
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// RunTransaction executes a single-document read-modify-write with the
// version-guard retry loop.
func (s *Store) RunTransaction(ctx context.Context, collection, id string, fn func(storage.Doc) (storage.Doc, error)) error {
	if err := s.mutate(ctx, collection, id, fn); err != nil {
		return err
	}
	s.feed.Changed(ctx, collection)
	return nil
}

// mutate reads the row, applies fn to the decoded body, and writes it back
// guarded by the version column. A lost version race re-runs the whole cycle.
func (s *Store) mutate(ctx context.Context, collection, id string, fn func(storage.Doc) (storage.Doc, error)) error {
	for attempt := 0; attempt < txAttempts; attempt++ {
		var row Document
		err := s.db.WithContext(ctx).
			Where("collection = ? AND doc_id = ?", collection, id).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		doc, err := decodeBody(row)
		if err != nil {
			return err
		}
		next, err := fn(doc)
		if err != nil {
			return err
		}
		body, err := encodeBody(next, id)
		if err != nil {
			return err
		}

		res := s.db.WithContext(ctx).Model(&Document{}).
			Where("collection = ? AND doc_id = ? AND version = ?", collection, id, row.Version).
			Updates(map[string]any{"body": body, "version": row.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// Version moved underneath us; retry from a fresh read.
	}
	return storage.ErrConflict
}

// Subscribe establishes a live query over the collection.
func (s *Store) Subscribe(ctx context.Context, collection string, q storage.Query, fn func([]storage.Doc)) (func(), error) {
	run := func() {
		docs, err := s.Query(ctx, collection, q)
		if err != nil {
			return
		}
		fn(docs)
	}
	cancel, err := s.feed.Watch(ctx, collection, run)
	if err != nil {
		return nil, err
	}
	run()
	return cancel, nil
}

func encodeBody(doc storage.Doc, id string) (string, error) {
	stored := make(storage.Doc, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["id"] = id
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode document body: %w", err)
	}
	return string(b), nil
}

func decodeBody(row Document) (storage.Doc, error) {
	var doc storage.Doc
	if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	doc["id"] = row.DocID
	return doc, nil
}
