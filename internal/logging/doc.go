// Package logging builds the slog loggers used across the daemon and CLI.
//
// It provides a colorized console handler for interactive use, a JSON handler
// for machine-readable logs, typed attribute helpers, and the standardized
// field keys (component, job_id, stage, correlation_id) the rest of the
// codebase logs with. NewFromConfig tees output to stdout and the configured
// log directory.
package logging
