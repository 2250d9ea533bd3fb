package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory DocumentStore with live-query support. It is the
// reference implementation for the contract and backs the core's tests and
// local development.
type Memory struct {
	mu    sync.Mutex
	colls map[string]map[string]Doc
	feed  *LocalChangeFeed
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string]map[string]Doc),
		feed:  NewLocalChangeFeed(),
	}
}

func (m *Memory) coll(collection string) map[string]Doc {
	c, ok := m.colls[collection]
	if !ok {
		c = make(map[string]Doc)
		m.colls[collection] = c
	}
	return c
}

// Get performs a point read.
func (m *Memory) Get(_ context.Context, collection, id string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.coll(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc), nil
}

// Set writes the full document at the given id.
func (m *Memory) Set(ctx context.Context, collection, id string, doc Doc) error {
	m.mu.Lock()
	stored := deepCopy(doc)
	stored["id"] = id
	m.coll(collection)[id] = stored
	m.mu.Unlock()
	m.feed.Changed(ctx, collection)
	return nil
}

// Add creates a document with a generated id.
func (m *Memory) Add(ctx context.Context, collection string, doc Doc) (string, error) {
	id := uuid.NewString()
	return id, m.Set(ctx, collection, id, doc)
}

// Update applies field updates to an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, updates ...Update) error {
	m.mu.Lock()
	doc, ok := m.coll(collection)[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	for _, u := range updates {
		ApplyUpdate(doc, u)
	}
	m.mu.Unlock()
	m.feed.Changed(ctx, collection)
	return nil
}

// Delete removes a document; deleting a missing document is a no-op.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.coll(collection), id)
	m.mu.Unlock()
	m.feed.Changed(ctx, collection)
	return nil
}

// Query performs a one-shot filtered, ordered read.
func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, q), nil
}

func (m *Memory) queryLocked(collection string, q Query) []Doc {
	out := make([]Doc, 0)
	for _, doc := range m.coll(collection) {
		if Matches(doc, q.Filters) {
			out = append(out, deepCopy(doc))
		}
	}
	SortDocs(out, q.OrderBy, q.Desc)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Count returns the number of matching documents.
func (m *Memory) Count(_ context.Context, collection string, filters ...Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, doc := range m.coll(collection) {
		if Matches(doc, filters) {
			n++
		}
	}
	return n, nil
}

// DeleteWhere removes every matching document.
func (m *Memory) DeleteWhere(ctx context.Context, collection string, filters ...Filter) error {
	m.mu.Lock()
	c := m.coll(collection)
	for id, doc := range c {
		if Matches(doc, filters) {
			delete(c, id)
		}
	}
	m.mu.Unlock()
	m.feed.Changed(ctx, collection)
	return nil
}

// RunTransaction executes a single-document read-modify-write under the
// store lock. With the global lock there is no concurrent writer to conflict
// with, so the retry obligation of the contract is trivially met.
func (m *Memory) RunTransaction(ctx context.Context, collection, id string, fn func(Doc) (Doc, error)) error {
	m.mu.Lock()
	doc, ok := m.coll(collection)[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	next, err := fn(deepCopy(doc))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	stored := deepCopy(next)
	stored["id"] = id
	m.coll(collection)[id] = stored
	m.mu.Unlock()
	m.feed.Changed(ctx, collection)
	return nil
}

// Subscribe establishes a live query over the collection.
func (m *Memory) Subscribe(ctx context.Context, collection string, q Query, fn func([]Doc)) (func(), error) {
	run := func() {
		m.mu.Lock()
		docs := m.queryLocked(collection, q)
		m.mu.Unlock()
		fn(docs)
	}
	cancel, err := m.feed.Watch(ctx, collection, run)
	if err != nil {
		return nil, err
	}
	run()
	return cancel, nil
}
