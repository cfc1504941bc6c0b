package utils

import "testing"

func TestNormalizeMimeType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", DefaultMimeType},
		{"text/plain; charset=utf-8", "text/plain"},
		{"IMAGE/PNG", "image/png"},
		{"garbage", DefaultMimeType},
		{"application/pdf", "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeMimeType(tt.input); got != tt.want {
				t.Errorf("NormalizeMimeType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := DetectContentType(png); got != "image/png" {
		t.Errorf("DetectContentType(png) = %q, want image/png", got)
	}

	if got := DetectContentType([]byte("hello, plain text")); got != "text/plain" {
		t.Errorf("DetectContentType(text) = %q, want text/plain", got)
	}

	if got := DetectContentType([]byte("%PDF-1.7\n")); got != "application/pdf" {
		t.Errorf("DetectContentType(pdf) = %q, want application/pdf", got)
	}
}

func TestIsPreviewable(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{"image/png", true},
		{"image/svg+xml", true},
		{"application/pdf", true},
		{"text/plain; charset=utf-8", true},
		{"video/mp4", true},
		{"audio/mpeg", true},
		{"application/zip", false},
		{"application/octet-stream", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := IsPreviewable(tt.mimeType); got != tt.want {
				t.Errorf("IsPreviewable(%q) = %v, want %v", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestIsMimeTypeBlocked(t *testing.T) {
	blocked := []string{"application/x-msdownload", "application/x-*", " Application/Java-Archive "}

	tests := []struct {
		mimeType string
		want     bool
	}{
		{"application/x-msdownload", true},
		{"application/x-elf", true},
		{"application/java-archive", true},
		{"application/pdf", false},
		{"text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := IsMimeTypeBlocked(tt.mimeType, blocked); got != tt.want {
				t.Errorf("IsMimeTypeBlocked(%q) = %v, want %v", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{10 * 1024 * 1024, "10 MiB"},
		{-5, "0 B"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
