// Package gateway defines the remote document store the ledger mirrors its
// state to, and provides in-memory and bbolt backed implementations.
//
// Documents live in collections addressed by a slash separated path, and are
// keyed by the entity id. Writes have "set" semantics: they are idempotent and
// can be replayed safely, which is what the outbox relies on.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
)

// Document is a JSON object stored in a collection.
type Document map[string]any

// Gateway is a per-entity document store.
type Gateway interface {
	// Create stores doc under id, replacing any previous version.
	Create(ctx context.Context, collection, id string, doc Document) error
	// Update writes doc under id. With merge, top-level fields of doc are
	// merged into the existing document, otherwise doc replaces it.
	Update(ctx context.Context, collection, id string, doc Document, merge bool) error
	// Delete removes id. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Subscribe streams snapshots of the documents matching q. The first
	// snapshot is sent immediately, the next ones after every change to the
	// collection. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
}

// Scope identifies the book of a user. All collections of a book live under
// its scope.
type Scope struct {
	User string `json:"user" yaml:"user"`
	Book string `json:"book" yaml:"book"`
}

// Collection returns the path of a collection of this book.
func (s Scope) Collection(name string) string {
	return path.Join("users", s.User, "books", s.Book, name)
}

// Record is a document with its id.
type Record struct {
	ID  string
	Doc Document
}

// Snapshot is the content of a collection at some point in time.
type Snapshot struct {
	Collection string
	Records    []Record // sorted by id
}

// Decode decodes every record of the snapshot into a value produced by the
// caller.
func Decode[T any](s Snapshot) ([]T, error) {
	out := make([]T, 0, len(s.Records))
	var errs error
	for _, r := range s.Records {
		var v T
		if err := r.Doc.Decode(&v); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s/%s: %w", s.Collection, r.ID, err))
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

func newSnapshot(collection string, docs map[string]Document, match func(Document) bool) Snapshot {
	s := Snapshot{Collection: collection}
	for id, doc := range docs {
		if match(doc) {
			s.Records = append(s.Records, Record{ID: id, Doc: doc.clone()})
		}
	}
	sort.Slice(s.Records, func(i, j int) bool { return s.Records[i].ID < s.Records[j].ID })
	return s
}

// ToDocument encodes any JSON marshalable value into a Document.
func ToDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%T is not a JSON object: %w", v, err)
	}
	return doc, nil
}

// Decode decodes the document into v.
func (d Document) Decode(v any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// clone returns a deep copy of d, made of plain JSON values only.
func (d Document) clone() Document {
	if d == nil {
		return nil
	}
	c, err := ToDocument(d)
	if err != nil {
		// d was built from JSON values.
		panic(err)
	}
	return c
}

// merge returns a copy of d with the top-level fields of patch set.
func (d Document) merge(patch Document) Document {
	out := d.clone()
	if out == nil {
		out = make(Document, len(patch))
	}
	for k, v := range patch.clone() {
		out[k] = v
	}
	return out
}

// Error reports a failed gateway call.
type Error struct {
	Op         Op
	Collection string
	ID         string
	Err        error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrClosed is returned by a gateway used after Close.
var ErrClosed = errors.New("gateway closed")
