package models

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// Image is an encoded image held in memory together with its MIME type.
// A nil *Image or one without data is "empty".
type Image struct {
	MIMEType string
	Data     []byte
}

// NewImage wraps encoded bytes, sniffing the MIME type from the content.
func NewImage(data []byte) *Image {
	return &Image{MIMEType: http.DetectContentType(data), Data: data}
}

func (i *Image) Empty() bool {
	return i == nil || len(i.Data) == 0
}

func (i *Image) Equal(o *Image) bool {
	if i.Empty() || o.Empty() {
		return i.Empty() == o.Empty()
	}
	return i.MIMEType == o.MIMEType && bytes.Equal(i.Data, o.Data)
}

func (i *Image) Base64() string {
	if i.Empty() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL renders the image as an embeddable data: URL.
func (i *Image) DataURL() string {
	if i.Empty() {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, i.Base64())
}

// ParseDataURL accepts either a data: URL or bare base64 payload.
func ParseDataURL(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidDataURL
	}

	mime := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidDataURL
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	img := NewImage(decoded)
	if mime != "" {
		img.MIMEType = mime
	}
	return img, nil
}

// Part is one element of a multi-part model request: either an inline image
// or a text instruction.
type Part struct {
	Image *Image
	Text  string
}

func ImagePart(img *Image) Part {
	return Part{Image: img}
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func (p Part) IsImage() bool {
	return p.Image != nil
}

type ImageConfig struct {
	AspectRatio AspectRatio
	ImageSize   string
}

// EditRequest is the fully assembled request for one generation call.
type EditRequest struct {
	Model  string
	Parts  []Part
	Config ImageConfig
	// Source dimensions of the scene image, zero when they could not be read.
	Width  int
	Height int
}

func (r *EditRequest) Validate() error {
	if len(r.Parts) < 2 {
		return ErrInvalidPartOrder
	}
	first, last := r.Parts[0], r.Parts[len(r.Parts)-1]
	if !first.IsImage() {
		return ErrInvalidPartOrder
	}
	if first.Image.Empty() {
		return ErrNoImageData
	}
	if last.IsImage() {
		return ErrInvalidPartOrder
	}
	if strings.TrimSpace(last.Text) == "" {
		return ErrEmptyInstruction
	}
	return nil
}

// Instruction returns the trailing text part.
func (r *EditRequest) Instruction() string {
	if len(r.Parts) == 0 {
		return ""
	}
	return r.Parts[len(r.Parts)-1].Text
}

// Images returns the image parts in request order.
func (r *EditRequest) Images() []*Image {
	var out []*Image
	for _, p := range r.Parts {
		if p.IsImage() {
			out = append(out, p.Image)
		}
	}
	return out
}
