// Package evidence records constraint decisions so they can be audited and
// reproduced later.
//
// Every constraint evaluated with recording enabled produces a Record: the
// constraint, the SHA-256 of the canonical document (and, unless disabled,
// the document itself), the frozen evaluation timestamp and the outcome.
// Replaying a record re-evaluates the expression against the stored
// document at the stored timestamp; a deterministic evaluator must reach the
// same outcome.
//
// # Packages
//
//   - recorder: builds records from evaluation outcomes and writes them
//     asynchronously
//   - storage: memory and SQLite backends (modernc "sqlite" or mattn
//     "sqlite3" driver)
//   - query: query validation and defaults
//   - replay: re-evaluation of stored records
//   - retention: age and count based pruning on a cron schedule
//   - export: JSON and CSV export
//
// # Privacy
//
// Documents may contain sensitive values. With evidence.store_documents set
// to false only the document hash is kept; such records can be checked
// against a document supplied later but cannot be replayed on their own.
package evidence
