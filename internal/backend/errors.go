package backend

import "fmt"

// InitializationError reports that the engine could not complete its one-time
// setup. It blocks all work and is never attributed to a single job.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("backend initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// StorageError reports a failure reading or writing a named blob in
// engine-internal storage.
type StorageError struct {
	Name string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("backend storage %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TranscodeError reports a failed Run invocation with the engine's
// descriptive detail.
type TranscodeError struct {
	Detail string
	Err    error
}

func (e *TranscodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcode failed: %s", e.Detail)
	}
	return fmt.Sprintf("transcode failed: %v", e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }
