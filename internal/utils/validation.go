package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IsFileAllowed checks if a file is allowed based on its extension
// Returns: (allowed bool, matched extension, error)
func IsFileAllowed(filename string, blockedExtensions []string) (bool, string, error) {
	if filename == "" {
		return false, "", fmt.Errorf("filename cannot be empty")
	}

	if len(blockedExtensions) == 0 {
		return true, "", nil
	}

	ext := GetFileExtension(filename)
	for _, blocked := range blockedExtensions {
		if ext == blocked {
			return false, ext, nil
		}
	}

	// Double extensions like "invoice.exe.pdf" are blocked too, but a blocked
	// extension inside a base name ("executable-file.txt") is not.
	parts := strings.Split(strings.ToLower(filename), ".")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		for _, blocked := range blockedExtensions {
			if "."+part == blocked {
				return false, blocked, nil
			}
		}
	}

	return true, "", nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// StorageExtension returns the extension used in generated storage keys.
// Only characters valid in a storage key are kept.
func StorageExtension(filename string) string {
	ext := GetFileExtension(filename)
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return ""
		}
	}
	return ext
}
