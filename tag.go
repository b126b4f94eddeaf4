package finance

import (
	"strconv"
	"time"
)

// Tag labels things in a book.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TagDraft is a tag before creation. An empty ID is generated from the clock.
type TagDraft struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// TagPatch lists the fields of a tag to change. Nil fields are kept.
type TagPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// NewTagID returns the time based identity of a tag created at t.
func NewTagID(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }
