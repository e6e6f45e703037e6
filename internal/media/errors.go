package media

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound indicates the requested downloaded file does not exist.
	ErrAssetNotFound = errors.New("media asset not found")
	// ErrProviderUnavailable indicates the storage provider is not configured.
	ErrProviderUnavailable = errors.New("storage provider unavailable")
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrEmptyAsset indicates the platform returned no content bytes.
	ErrEmptyAsset = errors.New("media asset payload is empty")
	// ErrPathTraversal indicates a storage key attempted directory traversal.
	ErrPathTraversal = errors.New("path traversal is forbidden")
	// ErrInvalidKey indicates a storage key that is not a plain file name.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrUnsupportedMedia indicates a media type the pipeline has no rule for.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrNoPreview indicates the media type has no preview conversion.
	ErrNoPreview = errors.New("media type has no preview")
	// ErrTranscodeFailed matches every *TranscodeError.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrTranscoderStopped is returned for submissions after Stop.
	ErrTranscoderStopped = errors.New("transcoder stopped")
)

// TranscodeError reports a conversion utility run that did not succeed.
type TranscodeError struct {
	Media  MediaType
	Args   []string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode %s: %v", e.Media, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *TranscodeError) Unwrap() error { return e.Err }

func (e *TranscodeError) Is(target error) bool { return target == ErrTranscodeFailed }
