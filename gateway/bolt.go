package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt is a Gateway backed by a bbolt database.
//
// A collection path "users/u1/books/b1/accounts" is stored as nested buckets
// users → u1 → books → b1 → accounts, each document as a JSON value keyed by
// its id.
type Bolt struct {
	db  *bolt.DB
	hub hub
}

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close closes the database and every subscription.
func (b *Bolt) Close() error {
	b.hub.closeAll()
	return b.db.Close()
}

func (b *Bolt) Create(ctx context.Context, collection, id string, doc Document) error {
	return b.write(ctx, OpCreate, collection, id, func(Document) Document { return doc })
}

func (b *Bolt) Update(ctx context.Context, collection, id string, doc Document, merge bool) error {
	return b.write(ctx, OpUpdate, collection, id, func(old Document) Document {
		if merge {
			return old.merge(doc)
		}
		return doc
	})
}

func (b *Bolt) Delete(ctx context.Context, collection, id string) error {
	return b.write(ctx, OpDelete, collection, id, func(Document) Document { return nil })
}

func (b *Bolt) write(ctx context.Context, op Op, collection, id string, next func(Document) Document) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Collection: collection, ID: id, Err: err}
	}
	if id == "" {
		return &Error{Op: op, Collection: collection, Err: errors.New("missing document id")}
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		if op == OpDelete {
			bucket := lookup(tx, collection)
			if bucket == nil {
				return nil
			}
			return bucket.Delete([]byte(id))
		}

		bucket, err := ensure(tx, collection)
		if err != nil {
			return err
		}
		var old Document
		if data := bucket.Get([]byte(id)); data != nil {
			if err := json.Unmarshal(data, &old); err != nil {
				return fmt.Errorf("corrupted document: %w", err)
			}
		}
		data, err := json.Marshal(next(old))
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		return bucket.Put([]byte(id), data)
	})
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseNotOpen) {
			err = ErrClosed
		}
		return &Error{Op: op, Collection: collection, ID: id, Err: err}
	}

	return b.hub.notify(collection, func() (map[string]Document, error) { return b.load(collection) })
}

func (b *Bolt) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	match, err := q.matcher()
	if err != nil {
		return nil, &Error{Op: OpSubscribe, Collection: q.Collection, Err: err}
	}
	ch, err := b.hub.add(ctx, q.Collection, match, func() (map[string]Document, error) { return b.load(q.Collection) })
	if err != nil {
		return nil, &Error{Op: OpSubscribe, Collection: q.Collection, Err: err}
	}
	return ch, nil
}

// load reads every document of a collection.
func (b *Bolt) load(collection string) (map[string]Document, error) {
	docs := make(map[string]Document)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := lookup(tx, collection)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			if v == nil {
				// nested bucket, not a document.
				return nil
			}
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("corrupted document %s/%s: %w", collection, k, err)
			}
			docs[string(k)] = doc
			return nil
		})
	})
	return docs, err
}

func segments(collection string) []string {
	return strings.FieldsFunc(collection, func(r rune) bool { return r == '/' })
}

// lookup returns the bucket of a collection, or nil if it does not exist yet.
func lookup(tx *bolt.Tx, collection string) *bolt.Bucket {
	var bucket *bolt.Bucket
	for i, name := range segments(collection) {
		if i == 0 {
			bucket = tx.Bucket([]byte(name))
		} else {
			bucket = bucket.Bucket([]byte(name))
		}
		if bucket == nil {
			return nil
		}
	}
	return bucket
}

// ensure returns the bucket of a collection, creating it if necessary.
func ensure(tx *bolt.Tx, collection string) (*bolt.Bucket, error) {
	names := segments(collection)
	if len(names) == 0 {
		return nil, errors.New("empty collection path")
	}
	bucket, err := tx.CreateBucketIfNotExists([]byte(names[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", names[0], err)
	}
	for _, name := range names[1:] {
		if bucket, err = bucket.CreateBucketIfNotExists([]byte(name)); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}
	return bucket, nil
}
