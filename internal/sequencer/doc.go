// Package sequencer drains the queue through the shared transcoding backend.
//
// A single processing goroutine owns the occupant slot: it polls for the
// oldest pending job, marks it active, stages the source into the backend,
// runs the transcode, and records the terminal outcome. Because only this
// goroutine mutates job state past submission, at most one job is ever
// active and transitions never interleave.
//
// Work is gated on a one-way readiness flag set when backend initialization
// completes in the background; submissions accepted earlier simply wait.
// Backend storage is purged under both derived blob names before and after
// every run, so a crashed predecessor can never leak stale blobs into a
// later job. Progress lines from the backend flow into a bounded,
// sequence-numbered event stream that IPC consumers read incrementally.
package sequencer
