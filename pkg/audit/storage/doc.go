// Package storage provides primary-store backends for audit records.
//
// Two backends implement audit.Store:
//
//   - SQLiteStore persists records in a SQLite database. The driver is
//     selectable: "sqlite3" uses github.com/mattn/go-sqlite3 (CGO), "sqlite"
//     uses the pure-Go modernc.org/sqlite. WAL mode and a busy timeout are
//     enabled by default, and the schema version is tracked in a
//     schema_version table.
//   - MemoryStore keeps records in a map. It is used by tests and by the
//     "memory" driver for throwaway deployments.
//
// Record IDs are assigned on Save with google/uuid when the caller does not
// supply one. Timestamps are stored as Unix nanoseconds so range queries are
// exact and independent of the driver's time formatting.
//
// Use New to construct a backend from a Config.
package storage
