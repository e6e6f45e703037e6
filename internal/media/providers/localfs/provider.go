// Package localfs implements media.StorageProvider on a flat host directory.
// Files written to <root>/<key> are served by the HTTP layer at /downloaded/<key>.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/memohai/kitchensink/internal/media"
)

// URLPrefix is the server-relative path that exposes the root directory.
const URLPrefix = "/downloaded"

const tempPrefix = ".tmp-"

// Provider stores downloaded content as plain files under one directory.
type Provider struct {
	root string
}

// New creates the root directory if needed and returns a provider for it.
func New(root string) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve download root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create download root: %w", err)
	}
	return &Provider{root: abs}, nil
}

// Root returns the absolute directory backing the provider.
func (p *Provider) Root() string { return p.root }

// Put streams reader into a temp file beside the destination and renames it
// into place, so a reader never sees a partial file.
func (p *Provider) Put(_ context.Context, key string, reader io.Reader) (int64, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(p.root, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(f, reader)
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return 0, fmt.Errorf("chmod file: %w", err)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		return 0, fmt.Errorf("rename file: %w", err)
	}
	keep = true
	return written, nil
}

// Open reads a stored file.
func (p *Provider) Open(_ context.Context, key string) (io.ReadCloser, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", media.ErrAssetNotFound, key)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file.
func (p *Provider) Delete(_ context.Context, key string) error {
	dest, err := p.hostPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (p *Provider) Stat(_ context.Context, key string) (media.Object, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return media.Object{}, err
	}
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return media.Object{}, fmt.Errorf("%w: %s", media.ErrAssetNotFound, key)
		}
		return media.Object{}, fmt.Errorf("stat file: %w", err)
	}
	return media.Object{Key: key, SizeBytes: info.Size(), ModTime: info.ModTime()}, nil
}

// List returns stored files sorted by key. In-flight temp files are skipped.
func (p *Provider) List(_ context.Context) ([]media.Object, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("read download root: %w", err)
	}
	out := make([]media.Object, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		out = append(out, media.Object{Key: name, SizeBytes: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Path returns the host path for key.
func (p *Provider) Path(key string) (string, error) {
	return p.hostPath(key)
}

// AccessPath returns the URL path for a storage key: "<id>.jpg" → "/downloaded/<id>.jpg".
func (p *Provider) AccessPath(key string) string {
	return URLPrefix + "/" + key
}

// hostPath converts a storage key into a file path directly under root.
func (p *Provider) hostPath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", media.ErrInvalidKey)
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: absolute key %s", media.ErrInvalidKey, key)
	}
	clean := filepath.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", media.ErrPathTraversal, key)
	}
	if strings.ContainsAny(key, `/\`) || clean != key {
		return "", fmt.Errorf("%w: sub-directories are not allowed: %s", media.ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: hidden name %s", media.ErrInvalidKey, key)
	}
	return filepath.Join(p.root, clean), nil
}

var _ media.StorageProvider = (*Provider)(nil)
