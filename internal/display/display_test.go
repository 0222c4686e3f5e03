package display

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"testing"

	"github.com/manash/roomedit/pkg/models"
)

func encodeJPEG(t *testing.T) *models.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return models.NewImage(buf.Bytes())
}

func TestDisplayer_Display_PNG(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	img := &models.Image{MIMEType: "image/png", Data: []byte("test image data")}

	if err := d.Display(img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "\x1b_G") {
		t.Error("output should contain Kitty escape sequence")
	}
}

func TestDisplayer_Display_TranscodesJPEG(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	if err := d.Display(encodeJPEG(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "a=T,f=100") {
		t.Error("output should carry a PNG transmission")
	}
}

func TestDisplayer_Display_NoData(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	if err := d.Display(&models.Image{}); err == nil {
		t.Error("expected error for image with no data")
	}
	if err := d.Display(nil); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestDisplayer_Display_Undecodable(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	img := &models.Image{MIMEType: "image/jpeg", Data: []byte("not a jpeg")}
	if err := d.Display(img); err == nil {
		t.Error("expected error for undecodable image")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for an undecodable image")
	}
}

func TestDisplayer_DisplayAll(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	err := d.DisplayAll(
		&models.Image{MIMEType: "image/png", Data: []byte("image 1")},
		nil,
		&models.Image{MIMEType: "image/png", Data: []byte("image 2")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	escCount := strings.Count(buf.String(), "\x1b_G")
	if escCount != 2 {
		t.Errorf("expected 2 escape sequences, got %d", escCount)
	}
}

func TestDisplayer_DisplayAll_SharedWidth(t *testing.T) {
	var buf bytes.Buffer
	d := &Displayer{out: &buf, cols: 120}

	scene := &models.Image{MIMEType: "image/png", Data: []byte("scene")}
	result := &models.Image{MIMEType: "image/png", Data: []byte("result")}
	if err := d.DisplayAll(scene, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(buf.String(), "c=60;"); got != 2 {
		t.Errorf("images drawn at half width = %d, want 2", got)
	}

	buf.Reset()
	if err := d.DisplayAll(scene, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "c=") {
		t.Error("a single image should keep its natural size")
	}
}

func TestDisplayer_DisplayAll_Empty(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)

	if err := d.DisplayAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.Len() != 0 {
		t.Error("expected no output for no images")
	}
}

func TestIsTerminalSupported(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected bool
	}{
		{
			name:     "no env vars",
			envVars:  map[string]string{},
			expected: false,
		},
		{
			name:     "kitty terminal program",
			envVars:  map[string]string{"TERM_PROGRAM": "kitty"},
			expected: true,
		},
		{
			name:     "ghostty terminal program",
			envVars:  map[string]string{"TERM_PROGRAM": "ghostty"},
			expected: true,
		},
		{
			name:     "iterm terminal program",
			envVars:  map[string]string{"TERM_PROGRAM": "iTerm.app"},
			expected: true,
		},
		{
			name:     "wezterm terminal program",
			envVars:  map[string]string{"TERM_PROGRAM": "WezTerm"},
			expected: true,
		},
		{
			name:     "kitty window id",
			envVars:  map[string]string{"KITTY_WINDOW_ID": "123"},
			expected: true,
		},
		{
			name:     "iterm session id",
			envVars:  map[string]string{"ITERM_SESSION_ID": "abc"},
			expected: true,
		},
		{
			name:     "term contains kitty",
			envVars:  map[string]string{"TERM": "xterm-kitty"},
			expected: true,
		},
		{
			name:     "term contains ghostty",
			envVars:  map[string]string{"TERM": "ghostty"},
			expected: true,
		},
		{
			name:     "unsupported terminal",
			envVars:  map[string]string{"TERM_PROGRAM": "gnome-terminal"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("TERM_PROGRAM")
			os.Unsetenv("KITTY_WINDOW_ID")
			os.Unsetenv("ITERM_SESSION_ID")
			os.Unsetenv("TERM")

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			result := IsTerminalSupported()
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
