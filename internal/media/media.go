package media

import (
	"context"
	"errors"
	"io"
)

// ErrUploadFailed wraps any media-store fault. Callers abort the enclosing
// send when they see it; nothing is retried.
var ErrUploadFailed = errors.New("media upload failed")

// Store is the boundary to wherever media actually lives. Upload stores the
// content under the given classification (image or video) and returns a
// publicly fetchable URL.
type Store interface {
	Upload(ctx context.Context, r io.Reader, name, kind string) (string, error)
}
