// Package stores provides the backends behind local: URIs. SQLiteStore
// persists values as JSON in a migrated SQLite database with WAL mode;
// MemoryStore keeps them in process.
package stores
