package gateway

import (
	"context"
	"sync"
)

// Memory is a Gateway that keeps documents in memory.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	hub         hub
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

func (m *Memory) Create(ctx context.Context, collection, id string, doc Document) error {
	return m.write(ctx, OpCreate, collection, id, func(Document) Document { return doc.clone() })
}

func (m *Memory) Update(ctx context.Context, collection, id string, doc Document, merge bool) error {
	return m.write(ctx, OpUpdate, collection, id, func(old Document) Document {
		if merge {
			return old.merge(doc)
		}
		return doc.clone()
	})
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.write(ctx, OpDelete, collection, id, func(Document) Document { return nil })
}

// write replaces the document id with next(old). A nil document is deleted.
func (m *Memory) write(ctx context.Context, op Op, collection, id string, next func(Document) Document) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Collection: collection, ID: id, Err: err}
	}

	m.mu.Lock()
	docs := m.collections[collection]
	if docs == nil {
		docs = make(map[string]Document)
		m.collections[collection] = docs
	}
	if doc := next(docs[id]); doc != nil {
		docs[id] = doc
	} else {
		delete(docs, id)
	}
	m.mu.Unlock()

	return m.hub.notify(collection, func() (map[string]Document, error) { return m.load(collection), nil })
}

func (m *Memory) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	match, err := q.matcher()
	if err != nil {
		return nil, &Error{Op: OpSubscribe, Collection: q.Collection, Err: err}
	}
	return m.hub.add(ctx, q.Collection, match, func() (map[string]Document, error) { return m.load(q.Collection), nil })
}

// Get returns a copy of a document, mostly for tests.
func (m *Memory) Get(collection, id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	return doc.clone(), ok
}

// load returns the documents of a collection. Documents are never mutated in
// place, so sharing them is safe.
func (m *Memory) load(collection string) map[string]Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Document, len(m.collections[collection]))
	for id, doc := range m.collections[collection] {
		out[id] = doc
	}
	return out
}
