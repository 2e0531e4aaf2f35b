// Package backend defines the contract the sequencer holds against the shared
// transcoding engine.
//
// The engine is a black box that accepts named input blobs, command
// arguments, and produces named output blobs. Only the sequencer may invoke
// it, and only while holding the occupant slot; its correctness does not
// depend on how the engine does its work, only on this contract.
package backend

import "context"

// Engine is the opaque transcoding capability. Implementations serialize
// work: callers must never issue overlapping Run invocations.
type Engine interface {
	// Initialize performs the one-time engine setup. It must be called
	// once per session before any other method; the sequencer gates all
	// work on its completion.
	Initialize(ctx context.Context) error

	// WriteInput stores data under name in engine-internal storage.
	WriteInput(name string, data []byte) error

	// Purge removes engine-internal storage under name. Purging an absent
	// name is a no-op; Purge never fails.
	Purge(name string)

	// Run executes one transcode with the given argument vector. Progress
	// messages arrive on onProgress in arrival order, zero or more times.
	Run(ctx context.Context, argv []string, onProgress func(message string)) error

	// ReadOutput retrieves the blob stored under name.
	ReadOutput(name string) ([]byte, error)
}
