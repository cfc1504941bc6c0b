package lifecycle

import "strings"

// ShareableLink builds the public link for a file. It is a pure function of the
// base URL and the file ID and never embeds the password.
func ShareableLink(baseURL, id string) string {
	return strings.TrimSuffix(baseURL, "/") + "/download/" + id
}

func (m *Manager) link(baseURL, id string) string {
	if baseURL == "" {
		baseURL = m.opts.BaseURL
	}
	return ShareableLink(baseURL, id)
}
