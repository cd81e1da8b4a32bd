// Package sqlite provides the SQLite-based corpus and index stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file backs two port
// interfaces:
//
//   - CorpusStore: documents and passages, the system of record
//   - IndexStore: postings derived from passages, plus index metadata
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Deleting a document cascades to its passages and their postings.
//
// # Data Location
//
// By default, the database is stored at ~/.policycite/data/corpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
