// Package queue persists transcode jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and the status transitions the sequencer persists. Jobs capture
// source metadata, size labels, preview handle tokens, progress, and failure
// text so the sequencer, IPC layer, and CLI coordinate without additional
// state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
