package utils

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMimeType is recorded when the client does not declare a type
const DefaultMimeType = "application/octet-stream"

// SniffLength is how many leading bytes DetectContentType needs
const SniffLength = 3072

// NormalizeMimeType lowercases a declared content type and strips parameters.
// An empty or malformed value becomes DefaultMimeType.
func NormalizeMimeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultMimeType
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.Contains(mediaType, "/") {
		return DefaultMimeType
	}
	return strings.ToLower(mediaType)
}

// DetectContentType sniffs the content type from the first bytes of a file.
func DetectContentType(head []byte) string {
	return NormalizeMimeType(mimetype.Detect(head).String())
}

// IsPreviewable reports whether a file of this type may be rendered inline.
func IsPreviewable(mimeType string) bool {
	mimeType = NormalizeMimeType(mimeType)
	return strings.HasPrefix(mimeType, "image/") ||
		mimeType == "application/pdf" ||
		strings.HasPrefix(mimeType, "text/") ||
		strings.HasPrefix(mimeType, "video/") ||
		strings.HasPrefix(mimeType, "audio/")
}

// IsMimeTypeBlocked reports whether mimeType matches an entry of the denylist.
// Entries are exact types ("application/x-msdownload") or wildcards ("application/x-*").
func IsMimeTypeBlocked(mimeType string, blocked []string) bool {
	mimeType = NormalizeMimeType(mimeType)
	for _, entry := range blocked {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
			continue
		}
		if mimeType == entry {
			return true
		}
	}
	return false
}
