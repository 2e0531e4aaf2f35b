package intake

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// ValidationError rejects a whole submission, naming the offending file and
// the constraint it violated.
type ValidationError struct {
	File       string
	Constraint string
	Detail     string
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("submission rejected (%s): %s", e.Constraint, e.Detail)
	}
	return fmt.Sprintf("submission rejected: %s violates %s: %s", e.File, e.Constraint, e.Detail)
}

// extMediaTypes maps common container extensions to media types. The stdlib
// mime table does not carry video types on every platform, so the lookup is
// pinned here and mime.TypeByExtension is only a fallback.
var extMediaTypes = map[string]string{
	".3gp":  "video/3gpp",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
}

func mediaTypeForExt(ext string) string {
	if mediaType, ok := extMediaTypes[ext]; ok {
		return mediaType
	}
	mediaType := mime.TypeByExtension(ext)
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// kindMatches reports whether a file name satisfies one of the accepted kind
// patterns. Patterns are either extensions (".mov") or media-type patterns
// ("video/*", "video/mp4") matched against the extension-derived media type.
func kindMatches(sourceName string, acceptedKinds []string) bool {
	ext := strings.ToLower(filepath.Ext(sourceName))
	mediaType := mediaTypeForExt(ext)

	for _, kind := range acceptedKinds {
		if strings.HasPrefix(kind, ".") {
			if ext == kind {
				return true
			}
			continue
		}
		if mediaType == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(kind, "/*"); ok {
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
			continue
		}
		if mediaType == kind {
			return true
		}
	}
	return false
}
