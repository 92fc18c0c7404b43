// Package audio holds upload format rules and PCM framing for synthesized speech.
package audio

import (
	"path/filepath"
	"strings"
)

// DefaultExtension is used when an upload carries no recognized extension
const DefaultExtension = ".webm"

var allowedContentTypes = map[string]bool{
	"audio/webm":  true,
	"audio/mp4":   true,
	"audio/mpeg":  true,
	"audio/ogg":   true,
	"audio/wav":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
}

var storedExtensions = []string{".webm", ".mp3", ".wav", ".ogg", ".m4a", ".mp4"}

// AllowedContentType reports whether an upload content type is accepted.
// Parameters such as "; codecs=opus" are ignored.
func AllowedContentType(contentType string) bool {
	base := contentType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	return allowedContentTypes[strings.ToLower(strings.TrimSpace(base))]
}

// ValidateAudioFormat checks if the file extension is one we store as-is
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range storedExtensions {
		if ext == format {
			return true
		}
	}
	return false
}

// StoredExtension returns the extension a saved upload should use
func StoredExtension(filename string) string {
	if ValidateAudioFormat(filename) {
		return strings.ToLower(filepath.Ext(filename))
	}
	return DefaultExtension
}
