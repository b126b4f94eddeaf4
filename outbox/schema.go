// Package outbox provides a durable queue of gateway changes stored in SQLite,
// and the dispatcher replaying them on a gateway in submission order.
package outbox

// Schema defines the SQL statements to create the outbox table.
const Schema = `
-- One row per committed mutation, replayed in id order.
CREATE TABLE IF NOT EXISTS outbox (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    label TEXT NOT NULL,
    writes TEXT NOT NULL,               -- JSON array of gateway writes
    status TEXT NOT NULL DEFAULT 'pending', -- 'pending', 'done' or 'failed'
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    next_attempt_at INTEGER NOT NULL DEFAULT 0, -- unix milliseconds
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbox_status_id
    ON outbox(status, id);
`
