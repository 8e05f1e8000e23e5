// internal/adapters/storage/sqlite/schema.go
package sqlite

// schema define las tablas del almacenamiento. Los instantes se guardan
// como época Unix en milisegundos; cero significa "nunca".
const schema = `
-- Scan instances
CREATE TABLE IF NOT EXISTS tbl_scan_instance (
    guid TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    seed_target TEXT NOT NULL,
    target_type TEXT NOT NULL,
    created INTEGER NOT NULL DEFAULT 0,
    started INTEGER NOT NULL DEFAULT 0,
    ended INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL
);

-- Event type vocabulary, seeded at startup
CREATE TABLE IF NOT EXISTS tbl_event_types (
    event TEXT PRIMARY KEY,
    event_descr TEXT NOT NULL,
    event_entity INTEGER NOT NULL DEFAULT 0
);

-- Discovered events, one row per unique hash within a scan
CREATE TABLE IF NOT EXISTS tbl_scan_results (
    scan_instance_id TEXT NOT NULL REFERENCES tbl_scan_instance(guid),
    hash TEXT NOT NULL,
    type TEXT NOT NULL REFERENCES tbl_event_types(event),
    generated INTEGER NOT NULL,
    data TEXT NOT NULL,
    module TEXT NOT NULL,
    source_event_hash TEXT NOT NULL,
    confidence INTEGER NOT NULL DEFAULT 100,
    visibility INTEGER NOT NULL DEFAULT 100,
    risk INTEGER NOT NULL DEFAULT 0,
    false_positive INTEGER NOT NULL DEFAULT 0,
    UNIQUE(scan_instance_id, hash)
);

CREATE INDEX IF NOT EXISTS idx_scan_results_scan ON tbl_scan_results(scan_instance_id);
CREATE INDEX IF NOT EXISTS idx_scan_results_type ON tbl_scan_results(scan_instance_id, type);
CREATE INDEX IF NOT EXISTS idx_scan_results_source ON tbl_scan_results(scan_instance_id, source_event_hash);

-- Correlation findings
CREATE TABLE IF NOT EXISTS tbl_scan_correlation_results (
    id TEXT PRIMARY KEY,
    scan_instance_id TEXT NOT NULL REFERENCES tbl_scan_instance(guid),
    title TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    rule_name TEXT NOT NULL,
    rule_risk TEXT NOT NULL,
    created INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_correlation_scan ON tbl_scan_correlation_results(scan_instance_id);

-- Events contributing to a correlation finding
CREATE TABLE IF NOT EXISTS tbl_scan_correlation_results_events (
    correlation_id TEXT NOT NULL REFERENCES tbl_scan_correlation_results(id),
    event_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_correlation_events ON tbl_scan_correlation_results_events(correlation_id);

-- Persisted scan log
CREATE TABLE IF NOT EXISTS tbl_scan_log (
    scan_instance_id TEXT NOT NULL REFERENCES tbl_scan_instance(guid),
    generated INTEGER NOT NULL,
    component TEXT NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_log_scan ON tbl_scan_log(scan_instance_id);
`
