package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/png"

	"github.com/manash/roomedit/pkg/models"
)

// ToPNG returns img unchanged when it is already a PNG, and re-encodes any
// other decodable format as PNG.
func ToPNG(img *models.Image) (*models.Image, error) {
	if img.Empty() {
		return nil, ErrEmpty
	}
	if img.MIMEType == "image/png" {
		return img, nil
	}

	decoded, _, err := stdimage.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}
