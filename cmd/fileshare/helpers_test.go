package main

import (
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/lifecycle"
)

func lifecycleUpload(name string, expires time.Time) lifecycle.UploadRequest {
	body := "content of " + name
	return lifecycle.UploadRequest{
		Body:       strings.NewReader(body),
		Filename:   name,
		MimeType:   "text/plain",
		Size:       int64(len(body)),
		ExpiresAt:  &expires,
		UploaderIP: "127.0.0.1",
	}
}
