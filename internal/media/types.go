package media

import (
	"context"
	"fmt"
	"io"
	"time"
)

// MediaType classifies the kind of downloaded content.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// Extension returns the file extension used for originals of this type.
func (t MediaType) Extension() (string, error) {
	switch t {
	case MediaTypeImage:
		return ".jpg", nil
	case MediaTypeVideo:
		return ".mp4", nil
	case MediaTypeAudio:
		return ".m4a", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, string(t))
	}
}

// Asset is a file persisted under the public download directory.
type Asset struct {
	// Key is the file name inside the download directory.
	Key string `json:"key"`
	// Path is the host file-system path.
	Path string `json:"path"`
	// URLPath is the server-relative path the file is served under.
	URLPath   string    `json:"url_path"`
	MediaType MediaType `json:"media_type"`
	SizeBytes int64     `json:"size_bytes"`
}

// Object describes a stored file as seen by retention.
type Object struct {
	Key       string
	SizeBytes int64
	ModTime   time.Time
}

// StorageProvider abstracts the download directory.
type StorageProvider interface {
	// Put writes data under key atomically and returns the bytes written.
	Put(ctx context.Context, key string, reader io.Reader) (int64, error)
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// Stat describes the object at key, or returns ErrAssetNotFound.
	Stat(ctx context.Context, key string) (Object, error)
	// List returns every stored object.
	List(ctx context.Context) ([]Object, error)
	// Path returns the host path for key, for tools that need a real file.
	Path(key string) (string, error)
	// AccessPath returns the server-relative URL path for a storage key.
	AccessPath(key string) string
}
