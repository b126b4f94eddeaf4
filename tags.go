package finance

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/finance/gateway"
)

// TagIndex holds the tags of one book. Unlike the ledger, tags are written to
// the gateway directly. A failed write is not rolled back: the tag keeps its
// local value and is reported by Unsynced until a later write succeeds.
type TagIndex struct {
	mu       sync.RWMutex
	scope    gateway.Scope
	gw       gateway.Gateway
	now      func() time.Time
	logger   *log.Logger
	tags     map[string]Tag
	unsynced map[string]struct{}
}

// NewTagIndex creates an empty index for the book scope, persisted to gw.
func NewTagIndex(scope gateway.Scope, gw gateway.Gateway) *TagIndex {
	return &TagIndex{
		scope:    scope,
		gw:       gw,
		now:      time.Now,
		logger:   log.New(io.Discard, "", 0),
		tags:     make(map[string]Tag),
		unsynced: make(map[string]struct{}),
	}
}

// SetLogger sets the logger reporting failed writes and undecodable tags.
func (x *TagIndex) SetLogger(l *log.Logger) { x.logger = l }

func (x *TagIndex) collection() string { return x.scope.Collection(CollTags) }

// Load replaces the index content with the tags stored in the gateway.
func (x *TagIndex) Load(ctx context.Context) error {
	tags, err := fetch[Tag](ctx, x.gw, x.collection(), x.logger.Printf)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.tags = make(map[string]Tag, len(tags))
	x.unsynced = make(map[string]struct{})
	for _, t := range tags {
		x.tags[t.ID] = t
	}
	return nil
}

// List returns the tags sorted by name.
func (x *TagIndex) List() []Tag {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := slices.Collect(maps.Values(x.tags))
	slices.SortFunc(out, func(a, b Tag) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return out
}

// Get returns the tag id, if it exists.
func (x *TagIndex) Get(id string) (Tag, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	t, ok := x.tags[id]
	return t, ok
}

// Create adds a tag. Without an explicit id, the id is derived from the
// current time.
func (x *TagIndex) Create(ctx context.Context, draft TagDraft) (Tag, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return Tag{}, invalid("name", "missing tag name")
	}

	x.mu.Lock()
	now := x.now()
	id := draft.ID
	if id == "" {
		id = NewTagID(now)
		for t := now; x.exists(id); {
			t = t.Add(time.Millisecond)
			id = NewTagID(t)
		}
	} else if x.exists(id) {
		x.mu.Unlock()
		return Tag{}, &ConflictError{Kind: "tag", Existing: id, Reason: "id already used"}
	}
	t := Tag{
		ID:        id,
		UserID:    x.scope.User,
		BookID:    x.scope.Book,
		Name:      name,
		Color:     draft.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	x.tags[id] = t
	x.mu.Unlock()

	return t, x.sync(ctx, "create tag "+id, id, func(ctx context.Context) error {
		return x.gw.Create(ctx, x.collection(), id, document(t))
	})
}

// Update changes the fields set in patch.
func (x *TagIndex) Update(ctx context.Context, id string, patch TagPatch) (Tag, error) {
	x.mu.Lock()
	t, ok := x.tags[id]
	if !ok {
		x.mu.Unlock()
		return Tag{}, &NotFoundError{Kind: "tag", ID: id}
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			x.mu.Unlock()
			return Tag{}, invalid("name", "missing tag name")
		}
		t.Name = name
	}
	if patch.Color != nil {
		t.Color = *patch.Color
	}
	t.UpdatedAt = x.now()
	x.tags[id] = t
	x.mu.Unlock()

	return t, x.sync(ctx, "update tag "+id, id, func(ctx context.Context) error {
		return x.gw.Update(ctx, x.collection(), id, document(t), false)
	})
}

// Delete removes a tag.
func (x *TagIndex) Delete(ctx context.Context, id string) error {
	x.mu.Lock()
	if !x.exists(id) {
		x.mu.Unlock()
		return &NotFoundError{Kind: "tag", ID: id}
	}
	delete(x.tags, id)
	x.mu.Unlock()

	return x.sync(ctx, "delete tag "+id, id, func(ctx context.Context) error {
		return x.gw.Delete(ctx, x.collection(), id)
	})
}

// Unsynced returns the ids of the tags whose last write failed, sorted.
func (x *TagIndex) Unsynced() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Sorted(maps.Keys(x.unsynced))
}

// Resync writes the current local value of every unsynced tag.
func (x *TagIndex) Resync(ctx context.Context) error {
	var errs error
	for _, id := range x.Unsynced() {
		t, ok := x.Get(id)
		write := func(ctx context.Context) error {
			if !ok {
				return x.gw.Delete(ctx, x.collection(), id)
			}
			return x.gw.Create(ctx, x.collection(), id, document(t))
		}
		errs = errors.Join(errs, x.sync(ctx, "resync tag "+id, id, write))
	}
	return errs
}

func (x *TagIndex) exists(id string) bool {
	_, ok := x.tags[id]
	return ok
}

// sync runs a gateway write for tag id and records whether the tag is in sync.
func (x *TagIndex) sync(ctx context.Context, op, id string, write func(context.Context) error) error {
	err := write(ctx)
	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil {
		x.unsynced[id] = struct{}{}
		x.logger.Printf("%s: %v", op, err)
		return &PersistenceError{Op: op, Err: err}
	}
	delete(x.unsynced, id)
	return nil
}
