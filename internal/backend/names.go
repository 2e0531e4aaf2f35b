package backend

import "strings"

// InputName returns the engine-internal storage name for a job's source.
// The input blob is stored under the original file name.
func InputName(sourceName string) string {
	return sourceName
}

// OutputName derives the engine-internal output blob name for a source name:
// "compressed_" plus the source name truncated at the first ".", with an
// ".mp4" suffix. The rule must match the engine's expectations exactly.
func OutputName(sourceName string) string {
	stem := sourceName
	if idx := strings.Index(sourceName, "."); idx >= 0 {
		stem = sourceName[:idx]
	}
	return "compressed_" + stem + ".mp4"
}
