package image

import (
	"bytes"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/manash/roomedit/pkg/models"
)

// Dimensions reads the pixel size from the image header. Undecodable or empty
// input yields 0x0 rather than an error; callers treat that as "unknown".
func Dimensions(img *models.Image) (width, height int) {
	if img.Empty() {
		return 0, 0
	}
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
