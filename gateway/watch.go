package gateway

import (
	"context"
	"sync"
)

// subscriber is a live subscription. Its channel holds at most the latest
// snapshot: a slow reader skips intermediate versions.
type subscriber struct {
	collection string
	match      func(Document) bool
	ch         chan Snapshot
}

func (s *subscriber) send(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
			// drop the stale snapshot
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// hub dispatches collection changes to subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// add registers a subscriber, sends it the current documents returned by load
// and unregisters it when ctx is done. Registration and the first load happen
// under the hub lock, so a concurrent write is either in the first snapshot or
// notified afterwards.
func (h *hub) add(ctx context.Context, collection string, match func(Document) bool, load func() (map[string]Document, error)) (<-chan Snapshot, error) {
	h.mu.Lock()
	docs, err := load()
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	s := &subscriber{collection: collection, match: match, ch: make(chan Snapshot, 1)}
	s.ch <- newSnapshot(collection, docs, match)
	if h.subs == nil {
		h.subs = make(map[*subscriber]struct{})
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.ch)
		}
	}()
	return s.ch, nil
}

// notify sends a fresh snapshot of collection to its subscribers. load returns
// the current documents of the collection.
func (h *hub) notify(collection string, load func() (map[string]Document, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var docs map[string]Document
	for s := range h.subs {
		if s.collection != collection {
			continue
		}
		if docs == nil {
			var err error
			if docs, err = load(); err != nil {
				return err
			}
		}
		s.send(newSnapshot(collection, docs, s.match))
	}
	return nil
}

// closeAll closes every subscription.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
