package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// maxLineBytes bounds a single squeezed.log line; slog entries are far
// smaller, but a runaway ffmpeg message must not abort the whole tail.
const maxLineBytes = 1024 * 1024

// pollInterval is how often a waiting Tail re-checks the file for growth.
const pollInterval = 200 * time.Millisecond

// TailOptions select which slice of the daemon log a Tail call returns.
type TailOptions struct {
	// Offset is the byte position to resume reading from, as returned by a
	// previous call. A negative offset means "start at the end and return
	// at most Limit trailing lines".
	Offset int64

	// Limit bounds the number of lines returned when Offset is negative.
	Limit int

	// Follow keeps the call open for up to Wait when no new lines exist
	// yet, so `squeeze logs --follow` does not spin on an idle daemon.
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read plus the offset to resume from. Only
// complete, newline-terminated lines are returned; a partially written line
// stays in the file for the next call.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads the daemon log at path. A missing file is not an error: the
// daemon simply has not logged yet, and the caller resumes from offset zero.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log %s: %w", path, err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %s is a directory", path)
	}

	wait := opts.Wait
	if wait < 0 {
		wait = 0
	}

	if opts.Offset < 0 {
		lines, next, err := lastLines(path, opts.Limit)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = next
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The log shrank underneath us (truncation or rotation);
			// resume from the new end rather than replaying it.
			offset = info.Size()
		}
		lines, next, err := linesFrom(path, offset)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = next
	}

	if opts.Follow && wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Offset, wait)
	}
	return result, nil
}

// lastLines scans the whole file and keeps a sliding window of the final
// limit lines, returning the end-of-file offset to resume from.
func lastLines(path string, limit int) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log %s: %w", path, err)
	}
	size := info.Size()
	if limit <= 0 {
		return nil, size, nil
	}

	var kept []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if len(kept) == limit {
			copy(kept, kept[1:])
			kept = kept[:limit-1]
		}
		kept = append(kept, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan log %s: %w", path, err)
	}
	return kept, size, nil
}

// linesFrom returns the complete lines written after offset and the offset
// just past the last newline it consumed. A trailing partial line is left
// unread so its bytes are picked up once the daemon finishes the write.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log %s: %w", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, fmt.Errorf("read log %s: %w", path, err)
	}

	var lines []string
	next := offset
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(data[:i]))
		data = data[i+1:]
		next += int64(i) + 1
	}
	return lines, next, nil
}

// awaitLines polls the file until a complete line lands after offset, the
// wait elapses, or the context ends.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	result := TailResult{Offset: offset}

	expired := time.NewTimer(wait)
	defer expired.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		lines, next, err := linesFrom(path, offset)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 {
			result.Lines = lines
			result.Offset = next
			return result, nil
		}
		offset = next
		result.Offset = next

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-expired.C:
			return result, nil
		case <-poll.C:
		}
	}
}
