package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the evidence tables. recorded_at is stored as Unix
// nanoseconds so both drivers sort and compare it the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    evaluation_id TEXT NOT NULL,

    schema_id TEXT NOT NULL,
    contract_version TEXT NOT NULL,
    constraint_id TEXT NOT NULL,
    severity TEXT NOT NULL,
    expression TEXT NOT NULL,

    document_hash TEXT NOT NULL,
    document TEXT,
    previous TEXT,
    evaluation_timestamp TEXT NOT NULL,

    result TEXT NOT NULL,
    error_kind TEXT,
    error_message TEXT,

    trace_context TEXT,
    recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_recorded_at ON evidence(recorded_at);
CREATE INDEX IF NOT EXISTS idx_evidence_constraint ON evidence(schema_id, constraint_id);
CREATE INDEX IF NOT EXISTS idx_evidence_evaluation ON evidence(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_evidence_result ON evidence(result);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, strftime('%s', 'now'))`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`

const selectColumns = `id, evaluation_id, schema_id, contract_version, constraint_id, severity, expression,
    document_hash, document, previous, evaluation_timestamp, result, error_kind, error_message,
    trace_context, recorded_at`
