package lifecycle

import "testing"

func TestShareableLink(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://share.example.com", "https://share.example.com/download/abc"},
		{"https://share.example.com/", "https://share.example.com/download/abc"},
		{"http://localhost:8080/files", "http://localhost:8080/files/download/abc"},
		{"", "/download/abc"},
	}

	for _, tt := range tests {
		if got := ShareableLink(tt.base, "abc"); got != tt.want {
			t.Errorf("ShareableLink(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
