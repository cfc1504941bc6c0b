package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

const (
	// MaxFilenameLength is the longest display name kept, in bytes
	MaxFilenameLength = 255

	// UnnamedFile replaces names that sanitize to nothing
	UnnamedFile = "unnamed_file"
)

// SanitizeFilename produces a safe display name from a client-supplied filename:
// - characters < > : " / \ | ? * and control characters become underscores
// - leading/trailing dots and spaces are removed
// - names over 255 bytes are truncated, keeping the extension
func SanitizeFilename(filename string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(filename))

	for _, r := range filename {
		switch {
		case r < 0x20 || r == 0x7f:
			sanitized.WriteRune('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			sanitized.WriteRune('_')
		default:
			sanitized.WriteRune(r)
		}
	}

	result := strings.Trim(sanitized.String(), ". ")

	if len(result) > MaxFilenameLength {
		ext := filepath.Ext(result)
		if len(ext) >= MaxFilenameLength {
			ext = ""
		}
		basename := truncateUTF8(result[:len(result)-len(ext)], MaxFilenameLength-len(ext))
		result = basename + ext
	}

	if result == "" {
		return UnnamedFile
	}

	return result
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// ContentDisposition builds a Content-Disposition header value for the given
// disposition ("attachment" or "inline") and display name. Non-ASCII names are
// encoded per RFC 2231.
func ContentDisposition(disposition, filename string) string {
	value := mime.FormatMediaType(disposition, map[string]string{"filename": SanitizeFilename(filename)})
	if value == "" {
		return disposition
	}
	return value
}
