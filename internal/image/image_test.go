package image

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/manash/roomedit/pkg/models"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestNewSaver(t *testing.T) {
	if s := NewSaver(); s == nil {
		t.Fatal("NewSaver() returned nil")
	}
}

func TestSaver_Save(t *testing.T) {
	s := NewSaver()
	path := filepath.Join(t.TempDir(), "nested", "result.png")
	img := models.NewImage(encodePNG(t, 4, 4))

	if err := s.Save(img, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if !bytes.Equal(data, img.Data) {
		t.Error("saved data mismatch")
	}
}

func TestSaver_Save_NoData(t *testing.T) {
	s := NewSaver()
	path := filepath.Join(t.TempDir(), "empty.png")

	if err := s.Save(nil, path); err == nil {
		t.Fatal("Save() error = nil, want error for no data")
	}
	if err := s.Save(&models.Image{}, path); err == nil {
		t.Fatal("Save() error = nil, want error for empty image")
	}
}

func TestSaver_SaveResult_DefaultName(t *testing.T) {
	dir := t.TempDir()
	origWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(origWD)

	s := NewSaver()
	s.now = func() time.Time { return time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC) }

	img := models.NewImage(encodeJPEG(t, 2, 2))
	path, err := s.SaveResult(img, "")
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if path != "roomedit-20240115-103045.jpeg" {
		t.Errorf("SaveResult() path = %q", path)
	}
	if _, err := os.Stat(filepath.Join(dir, path)); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestSaver_SaveResult_ExplicitPath(t *testing.T) {
	s := NewSaver()
	want := filepath.Join(t.TempDir(), "out.png")
	got, err := s.SaveResult(models.NewImage(encodePNG(t, 1, 1)), want)
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if got != want {
		t.Errorf("SaveResult() = %q, want %q", got, want)
	}
}

func TestGenerateFilenameWithTime(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name   string
		index  int
		format models.OutputFormat
		want   string
	}{
		{"first png", 0, models.FormatPNG, "roomedit-20240115-103045.png"},
		{"second png", 1, models.FormatPNG, "roomedit-20240115-103045-2.png"},
		{"webp", 0, models.FormatWebP, "roomedit-20240115-103045.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateFilenameWithTime(tt.index, tt.format, ts); got != tt.want {
				t.Errorf("GenerateFilenameWithTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
