package image

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/manash/roomedit/pkg/models"
)

const DefaultMaxUploadBytes int64 = 20 << 20

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image exceeds upload size limit")
	ErrEmpty    = errors.New("image file is empty")
)

// Read consumes an uploaded payload and returns it as an image, rejecting
// anything that does not sniff as image/* or exceeds limit bytes. A
// non-positive limit uses DefaultMaxUploadBytes.
func Read(r io.Reader, limit int64) (*models.Image, error) {
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}

	return &models.Image{MIMEType: mime, Data: data}, nil
}

// Load reads an image file from disk with the same validation as Read.
func Load(path string, limit int64) (*models.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Read(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
