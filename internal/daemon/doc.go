// Package daemon coordinates the long-running squeeze process.
//
// It wires configuration, queue storage, the preview ledger, intake, and the
// sequencer into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes queue maintenance helpers and owns
// the teardown order: stop the sequencer (failing in-flight work), fail any
// remaining active rows, release every outstanding preview handle, then
// close the store.
//
// Keep orchestration logic here: individual processing steps live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
