package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Disk stores media on the local filesystem and serves it from /media.
// It stands in for the external CDN in single-process deployments; the
// directory is mounted statically by the HTTP layer.
type Disk struct {
	Dir     string
	BaseURL string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	for _, kind := range []string{"image", "video"} {
		if err := os.MkdirAll(filepath.Join(dir, kind+"s"), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}
	return &Disk{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *Disk) Upload(ctx context.Context, r io.Reader, name, kind string) (string, error) {
	if kind != "image" && kind != "video" {
		return "", fmt.Errorf("%w: unknown kind %q", ErrUploadFailed, kind)
	}

	object := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	rel := path.Join(kind+"s", object)

	f, err := os.Create(filepath.Join(d.Dir, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return d.BaseURL + "/media/" + rel, nil
}
