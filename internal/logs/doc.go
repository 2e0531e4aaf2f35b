// Package logs reads the squeezed daemon log for the CLI.
//
// Tail returns only complete, newline-terminated lines along with a resume
// offset, so `squeeze logs` can page through the file and `squeeze logs
// --follow` can linger for fresh output without ever splitting a log entry
// that the daemon is mid-write on. A missing log file reads as empty: the
// daemon just has not started yet.
package logs
