package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/memohai/kitchensink/internal/messaging"
)

// ContentSource is the subset of messaging.Transport the fetcher needs.
type ContentSource interface {
	GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error)
}

// Fetcher downloads platform-hosted message content into the storage provider.
type Fetcher struct {
	source   ContentSource
	provider StorageProvider
	maxBytes int64
	logger   *slog.Logger
}

// NewFetcher creates a fetcher. maxBytes <= 0 uses MaxAssetBytes.
func NewFetcher(log *slog.Logger, source ContentSource, provider StorageProvider, maxBytes int64) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	return &Fetcher{
		source:   source,
		provider: provider,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "media_fetcher")),
	}
}

// Fetch stores the content of messageID as "<messageID><ext>". An existing
// file under the same key is replaced.
func (f *Fetcher) Fetch(ctx context.Context, messageID string, kind MediaType) (Asset, error) {
	if f.provider == nil {
		return Asset{}, ErrProviderUnavailable
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return Asset{}, fmt.Errorf("message id is required")
	}
	ext, err := kind.Extension()
	if err != nil {
		return Asset{}, err
	}
	key := messageID + ext
	path, err := f.provider.Path(key)
	if err != nil {
		return Asset{}, err
	}

	stream, err := f.source.GetMessageContent(ctx, messageID)
	if err != nil {
		return Asset{}, fmt.Errorf("download %s: %w", messageID, err)
	}
	defer stream.Close()

	size, err := f.provider.Put(ctx, key, LimitReader(stream, f.maxBytes))
	if err != nil {
		return Asset{}, fmt.Errorf("store %s: %w", key, err)
	}
	f.logger.Debug("content downloaded",
		slog.String("message_id", messageID),
		slog.String("key", key),
		slog.Int64("size_bytes", size),
	)
	return Asset{
		Key:       key,
		Path:      path,
		URLPath:   f.provider.AccessPath(key),
		MediaType: kind,
		SizeBytes: size,
	}, nil
}

var _ ContentSource = messaging.Transport(nil)
