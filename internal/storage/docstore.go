// Package storage defines the document-store contract the application core
// depends on, plus an in-memory reference implementation. Durable adapters
// live in the gormdoc and dynamo subpackages.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names used across the application.
const (
	CollectionUsers          = "users"
	CollectionVibes          = "vibes"
	CollectionNotifications  = "notifications"
	CollectionCommunities    = "communities"
	CollectionCommunityPosts = "community_posts"
	CollectionCredentials    = "credentials"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by RunTransaction when a document was modified
	// concurrently and the primitive's internal retry also failed.
	ErrConflict = errors.New("document modified concurrently")
)

// Doc is a decoded document body. Field names follow the entities' JSON tags;
// the "id" field always holds the document id.
type Doc = map[string]any

// Op identifies a field-update operator.
type Op int

const (
	// OpSet replaces the field value.
	OpSet Op = iota
	// OpUnion adds values to an array-valued field, ignoring duplicates.
	OpUnion
	// OpRemove removes values from an array-valued field.
	OpRemove
	// OpIncrement adds a numeric delta to the field.
	OpIncrement
)

// Update is one field mutation applied atomically server-side, without a
// prior read. Union and Remove are commutative and convergent, which is what
// lets two-party set mutations skip transactions.
type Update struct {
	Field string
	Op    Op
	Value any
}

// Set builds a replace-field update.
func Set(field string, value any) Update { return Update{Field: field, Op: OpSet, Value: value} }

// Union builds a set-union update on an array field.
func Union(field string, values ...string) Update {
	return Update{Field: field, Op: OpUnion, Value: values}
}

// Remove builds a set-remove update on an array field.
func Remove(field string, values ...string) Update {
	return Update{Field: field, Op: OpRemove, Value: values}
}

// Increment builds a numeric increment update.
func Increment(field string, delta int64) Update {
	return Update{Field: field, Op: OpIncrement, Value: delta}
}

// Filter is an equality predicate on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter { return Filter{Field: field, Value: value} }

// Query describes a one-shot or live collection read.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// DocumentStore is the storage contract consumed by the core. Implementations
// must treat each method as an independent remote call: no method may depend
// on client-side state carried between calls.
type DocumentStore interface {
	// Get performs a point read. Returns ErrNotFound for missing documents.
	Get(ctx context.Context, collection, id string) (Doc, error)
	// Set writes the full document at the given id, creating it if absent.
	Set(ctx context.Context, collection, id string, doc Doc) error
	// Add creates a document with a generated id and returns that id.
	Add(ctx context.Context, collection string, doc Doc) (string, error)
	// Update applies field updates atomically without reading first.
	Update(ctx context.Context, collection, id string, updates ...Update) error
	// Delete removes a single document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error
	// Query performs a one-shot filtered, ordered read.
	Query(ctx context.Context, collection string, q Query) ([]Doc, error)
	// Count returns the number of documents matching the filters.
	Count(ctx context.Context, collection string, filters ...Filter) (int, error)
	// DeleteWhere removes every document matching the filters, in batches.
	DeleteWhere(ctx context.Context, collection string, filters ...Filter) error
	// RunTransaction executes a single-document read-modify-write. fn receives
	// the current document (nil-safe copy; ErrNotFound if absent) and returns
	// the replacement. The primitive retries at least once on a concurrent
	// modification before returning ErrConflict.
	RunTransaction(ctx context.Context, collection, id string, fn func(Doc) (Doc, error)) error
	// Subscribe establishes a live query: fn is invoked with the full current
	// result set immediately and again after every change to the collection.
	// The returned cancel function tears the subscription down; establishing
	// a new subscription before cancelling an old one is safe.
	Subscribe(ctx context.Context, collection string, q Query, fn func([]Doc)) (cancel func(), err error)
}

// Encode converts an entity into a document body via its JSON tags.
func Encode(v any) (Doc, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode converts a document body into an entity via its JSON tags.
func Decode(doc Doc, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// DecodeAll converts a document slice into a slice of entities.
func DecodeAll[T any](docs []Doc) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Matches reports whether a document satisfies every filter. Numeric values
// are compared after JSON normalization so int and float64 forms agree.
func Matches(doc Doc, filters []Filter) bool {
	for _, f := range filters {
		if !looseEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
