package localfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/memohai/kitchensink/internal/media"
)

func TestProvider_HostPath(t *testing.T) {
	t.Parallel()
	p := &Provider{root: "/srv/public/downloaded"}

	tests := []struct {
		key     string
		want    string
		wantErr error
	}{
		{key: "325708.jpg", want: "/srv/public/downloaded/325708.jpg"},
		{key: "325708-preview.jpg", want: "/srv/public/downloaded/325708-preview.jpg"},
		{key: "/absolute/path", wantErr: media.ErrInvalidKey},
		{key: "../escape", wantErr: media.ErrPathTraversal},
		{key: "a/../../escape", wantErr: media.ErrPathTraversal},
		{key: "sub/file.jpg", wantErr: media.ErrInvalidKey},
		{key: `sub\file.jpg`, wantErr: media.ErrInvalidKey},
		{key: ".hidden", wantErr: media.ErrInvalidKey},
		{key: "", wantErr: media.ErrInvalidKey},
	}
	for _, tt := range tests {
		got, err := p.hostPath(tt.key)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("hostPath(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("hostPath(%q) unexpected error: %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("hostPath(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestProvider_AccessPath(t *testing.T) {
	t.Parallel()
	p := &Provider{root: "/srv/public/downloaded"}

	if got := p.AccessPath("m1.mp4"); got != "/downloaded/m1.mp4" {
		t.Errorf("AccessPath = %q", got)
	}
}

func TestProvider_PutOpenStatDelete(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "downloaded")
	p, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	data := []byte("hello media content")
	n, err := p.Put(ctx, "m1.jpg", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("Put wrote %d bytes, want %d", n, len(data))
	}

	hostFile := filepath.Join(root, "m1.jpg")
	if _, err := os.Stat(hostFile); err != nil {
		t.Fatalf("file not found on host: %v", err)
	}

	reader, err := p.Open(ctx, "m1.jpg")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got, _ := io.ReadAll(reader)
	reader.Close()
	if !bytes.Equal(got, data) {
		t.Errorf("Open returned %q, want %q", got, data)
	}

	obj, err := p.Stat(ctx, "m1.jpg")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if obj.SizeBytes != int64(len(data)) || obj.Key != "m1.jpg" {
		t.Errorf("Stat = %+v", obj)
	}

	if err := p.Delete(ctx, "m1.jpg"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(hostFile); !os.IsNotExist(err) {
		t.Fatalf("file should be deleted: %v", err)
	}
	if err := p.Delete(ctx, "m1.jpg"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, err := p.Open(ctx, "m1.jpg"); !errors.Is(err, media.ErrAssetNotFound) {
		t.Fatalf("Open after delete = %v, want ErrAssetNotFound", err)
	}
	if _, err := p.Stat(ctx, "m1.jpg"); !errors.Is(err, media.ErrAssetNotFound) {
		t.Fatalf("Stat after delete = %v, want ErrAssetNotFound", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream broke") }

func TestProvider_PutFailureLeavesNothing(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	reader := io.MultiReader(strings.NewReader("partial"), failingReader{})
	if _, err := p.Put(context.Background(), "m2.mp4", reader); err == nil {
		t.Fatalf("expected Put to fail")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, found %d entries", len(entries))
	}
}

func TestProvider_List(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"b.jpg", "a.mp4"} {
		if _, err := p.Put(ctx, key, strings.NewReader(key)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, tempPrefix+"inflight"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	objects, err := p.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 || objects[0].Key != "a.mp4" || objects[1].Key != "b.jpg" {
		t.Fatalf("List = %+v", objects)
	}
	if objects[0].ModTime.After(time.Now().Add(time.Minute)) {
		t.Errorf("unexpected mod time %v", objects[0].ModTime)
	}
}
