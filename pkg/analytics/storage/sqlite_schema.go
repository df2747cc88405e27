package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the analytics database schema.
const Schema = `
-- Analytics events table
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,

    -- Timestamps
    server_time TIMESTAMP NOT NULL,
    client_time TIMESTAMP,

    -- Submitter
    client_ip TEXT,
    caller_id TEXT,
    script_url TEXT,

    -- Vendor payload, JSON encoded
    data TEXT
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- Indexes on frequently queried fields
CREATE INDEX IF NOT EXISTS idx_events_server_time ON events(server_time);
CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_caller_id ON events(caller_id);
`

// InsertSchemaVersion inserts the schema version if not already present.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
