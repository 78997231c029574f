package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type Uploader interface {
	// Key is a unique identifier for the file.
	Upload(ctx context.Context, key string, body io.Reader) error
	Directory() string
}

// File uploads the file under its base name and removes the local copy once
// the upload succeeded. It returns the remote location.
func File(ctx context.Context, u Uploader, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}

	key := filepath.Base(path)
	err = u.Upload(ctx, key, file)
	file.Close()
	if err != nil {
		return "", err
	}

	// If there are no errors after uploading, delete the file
	return Location(u, key), os.Remove(path)
}

func Location(u Uploader, key string) string {
	if u.Directory() == "" {
		return key
	}
	return u.Directory() + "/" + key
}
