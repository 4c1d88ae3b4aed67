// Package storage provides the evidence backends.
//
//   - SQLite: durable single-node storage, through either the pure Go
//     modernc.org/sqlite driver ("sqlite", the default) or the cgo
//     github.com/mattn/go-sqlite3 driver ("sqlite3")
//   - Memory: map-backed storage for tests and one-shot runs
//
// # Basic Usage
//
//	store, err := storage.New(&cfg.Evidence, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    SchemaID: "payment-saga",
//	    Result:   evidence.ResultViolated,
//	    Limit:    50,
//	})
//
// # SQLite
//
// The busy timeout and journal mode are passed in the DSN so that every
// pooled connection gets them. Timestamps are stored as Unix nanoseconds.
// The schema is created on first open and its version is kept in the
// schema_version table.
//
// All backends are safe for concurrent use.
package storage
