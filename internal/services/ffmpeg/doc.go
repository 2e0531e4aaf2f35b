// Package ffmpeg implements the backend engine contract on top of the ffmpeg
// command line tool.
//
// Named blobs live as files in a private work directory; Run executes ffmpeg
// inside that directory so argv names resolve without exposing paths to
// callers. Tests swap commandContext to avoid executing the real binary while
// still exercising argument construction and failure handling.
package ffmpeg
