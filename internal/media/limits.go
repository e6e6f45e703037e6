package media

import (
	"fmt"
	"io"

	"github.com/memohai/kitchensink/internal/prune"
)

const (
	// MaxAssetBytes is the default max accepted content size.
	MaxAssetBytes int64 = 200 * 1024 * 1024

	stderrExcerptBytes = 512
)

// LimitReader wraps reader so that reading past maxBytes fails with
// ErrAssetTooLarge and reaching EOF without any bytes fails with ErrEmptyAsset.
func LimitReader(reader io.Reader, maxBytes int64) io.Reader {
	return &limitedReader{r: reader, max: maxBytes}
}

type limitedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	// One byte past the limit is enough to detect overflow.
	if remaining := l.max + 1 - l.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, l.max)
	}
	if err == io.EOF && l.read == 0 {
		return n, ErrEmptyAsset
	}
	return n, err
}

func excerpt(b []byte) string {
	return prune.Bytes(b, stderrExcerptBytes)
}
