package gateway

import (
	"context"
	"fmt"
)

// Op is the kind of a gateway write.
type Op string

const (
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpSubscribe Op = "subscribe"
)

// Write is one pending gateway call.
type Write struct {
	Op         Op       `json:"op"`
	Collection string   `json:"collection"`
	ID         string   `json:"id"`
	Doc        Document `json:"doc,omitempty"`
	Merge      bool     `json:"merge,omitempty"`
}

func (w Write) String() string { return fmt.Sprintf("%s %s/%s", w.Op, w.Collection, w.ID) }

// Change is the list of writes implied by one logical mutation. A change is
// applied as a whole: writes are replayed in order until they all succeed.
type Change struct {
	Label  string  `json:"label"`
	Writes []Write `json:"writes"`
}

// Apply issues w on g.
func Apply(ctx context.Context, g Gateway, w Write) error {
	switch w.Op {
	case OpCreate:
		return g.Create(ctx, w.Collection, w.ID, w.Doc)
	case OpUpdate:
		return g.Update(ctx, w.Collection, w.ID, w.Doc, w.Merge)
	case OpDelete:
		return g.Delete(ctx, w.Collection, w.ID)
	default:
		return &Error{Op: w.Op, Collection: w.Collection, ID: w.ID, Err: fmt.Errorf("unsupported write operation %q", w.Op)}
	}
}

// ApplyChange issues every write of c in order, and stops at the first failure.
func ApplyChange(ctx context.Context, g Gateway, c Change) error {
	for _, w := range c.Writes {
		if err := Apply(ctx, g, w); err != nil {
			return err
		}
	}
	return nil
}
