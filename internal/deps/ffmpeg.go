package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary the transcoding backend will execute.
//
// A configured command with a path separator is checked directly on disk;
// a bare name is resolved from PATH, matching how the backend launches it.
func CheckFFmpeg(command string) Status {
	result := Status{
		Name:    "FFmpeg",
		Purpose: "Executes transcode runs",
	}

	binary := strings.TrimSpace(command)
	if binary == "" {
		binary = "ffmpeg"
	}

	if strings.ContainsRune(binary, os.PathSeparator) {
		result.Command = binary
		info, err := os.Stat(binary)
		if err != nil || info.IsDir() || !isExecutable(info) {
			result.Detail = fmt.Sprintf("binary %q not found", binary)
			return result
		}
		result.Available = true
		return result
	}

	if resolved, err := exec.LookPath(binary); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = binary
	result.Detail = fmt.Sprintf("binary %q not found", binary)
	return result
}

func isExecutable(info os.FileInfo) bool {
	if runtime.GOOS == "windows" {
		ext := strings.ToLower(filepath.Ext(info.Name()))
		return ext == ".exe" || ext == ".bat" || ext == ".cmd"
	}
	return info.Mode()&0o111 != 0
}
