// Package database is the persistent library store: media records,
// scan roots, per-record metadata, and preferences, backed by SQLite.
//
// Writes funnel through a single lock so a running scan cannot corrupt
// concurrent queries; WAL mode keeps readers unblocked meanwhile.
// Storage failures surface as *StorageError so callers can tell a bad
// disk apart from a file that merely failed to probe.
package database
