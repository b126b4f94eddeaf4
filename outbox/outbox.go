package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/finance/gateway"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Status is the delivery state of an entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("outbox entry not found")

// Entry is a queued change.
type Entry struct {
	ID            int64
	Label         string
	Writes        []gateway.Write
	Status        Status
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Change returns the gateway change carried by the entry.
func (e Entry) Change() gateway.Change { return gateway.Change{Label: e.Label, Writes: e.Writes} }

// Stats counts entries by status.
type Stats struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	Done    int `json:"done"`
}

// Outbox is a durable queue of gateway changes. It implements the Sink of a
// finance.Book.
type Outbox struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	notify chan struct{}
}

// Open opens the outbox database at path, creating it if needed.
func Open(path string) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping outbox: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize outbox schema: %w", err)
	}

	return &Outbox{db: db, path: path, now: time.Now, notify: make(chan struct{}, 1)}, nil
}

// Close closes the database.
func (o *Outbox) Close() error { return o.db.Close() }

// Path returns the database file path.
func (o *Outbox) Path() string { return o.path }

// Notify returns a channel signaled after each Submit or Requeue.
func (o *Outbox) Notify() <-chan struct{} { return o.notify }

func (o *Outbox) signal() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Submit queues a change. An empty change is ignored.
func (o *Outbox) Submit(ctx context.Context, change gateway.Change) error {
	if len(change.Writes) == 0 {
		return nil
	}
	writes, err := json.Marshal(change.Writes)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", change.Label, err)
	}
	now := o.now().UnixMilli()
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO outbox (label, writes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		change.Label, string(writes), StatusPending, now, now)
	if err != nil {
		return fmt.Errorf("failed to queue %q: %w", change.Label, err)
	}
	o.signal()
	return nil
}

const columns = `id, label, writes, status, attempts, last_error, next_attempt_at, created_at, updated_at`

func (o *Outbox) list(ctx context.Context, status Status, limit int) ([]Entry, error) {
	query := `SELECT ` + columns + ` FROM outbox WHERE status = ? ORDER BY id`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", status, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var writes string
		var next, createdAt, updatedAt int64
		if err := rows.Scan(&e.ID, &e.Label, &writes, &e.Status, &e.Attempts, &e.LastError, &next, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(writes), &e.Writes); err != nil {
			return nil, fmt.Errorf("entry %d: failed to decode writes: %w", e.ID, err)
		}
		if next > 0 {
			e.NextAttemptAt = time.UnixMilli(next)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		e.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Pending returns the entries waiting for delivery, oldest first.
func (o *Outbox) Pending(ctx context.Context) ([]Entry, error) {
	return o.list(ctx, StatusPending, 0)
}

// Failed returns the entries given up after too many attempts.
func (o *Outbox) Failed(ctx context.Context) ([]Entry, error) {
	return o.list(ctx, StatusFailed, 0)
}

// head returns the oldest pending entry.
func (o *Outbox) head(ctx context.Context) (Entry, bool, error) {
	entries, err := o.list(ctx, StatusPending, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Status counts the entries by status.
func (o *Outbox) Status(ctx context.Context) (Stats, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count entries: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan count: %w", err)
		}
		switch status {
		case StatusPending:
			s.Pending = n
		case StatusFailed:
			s.Failed = n
		case StatusDone:
			s.Done = n
		}
	}
	return s, rows.Err()
}

func (o *Outbox) update(ctx context.Context, id int64, status Status, attempts int, lastError string, next time.Time) error {
	var nextMs int64
	if !next.IsZero() {
		nextMs = next.UnixMilli()
	}
	_, err := o.db.ExecContext(ctx, `
		UPDATE outbox SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		status, attempts, lastError, nextMs, o.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", id, err)
	}
	return nil
}

// Requeue moves a failed entry back to pending, with its attempts reset.
func (o *Outbox) Requeue(ctx context.Context, id int64) error {
	res, err := o.db.ExecContext(ctx, `
		UPDATE outbox SET status = ?, attempts = 0, next_attempt_at = 0, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusPending, o.now().UnixMilli(), id, StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to requeue entry %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed entry %d: %w", id, ErrNotFound)
	}
	o.signal()
	return nil
}

// Purge deletes delivered entries and returns how many were deleted.
func (o *Outbox) Purge(ctx context.Context) (int64, error) {
	res, err := o.db.ExecContext(ctx, `DELETE FROM outbox WHERE status = ?`, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivered entries: %w", err)
	}
	return res.RowsAffected()
}
