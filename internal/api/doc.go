// Package api defines wire-format types and converters for the IPC layer.
// It translates internal queue models into transport-friendly DTOs so the
// CLI and other consumers never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
