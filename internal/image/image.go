package image

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/roomedit/pkg/models"
)

// Saver exports images to disk.
type Saver struct {
	now func() time.Time
}

func NewSaver() *Saver {
	return &Saver{now: time.Now}
}

func (s *Saver) Save(img *models.Image, path string) error {
	if img.Empty() {
		return fmt.Errorf("no image data available")
	}

	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SaveResult writes img to path, or to a timestamped file in the current
// directory when path is empty. It returns the path written.
func (s *Saver) SaveResult(img *models.Image, path string) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("no image data available")
	}
	if path == "" {
		path = GenerateFilenameWithTime(0, models.FormatForMIME(img.MIMEType), s.now())
	}
	if err := s.Save(img, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func GenerateFilenameWithTime(index int, format models.OutputFormat, t time.Time) string {
	timestamp := t.Format("20060102-150405")
	if index > 0 {
		return fmt.Sprintf("roomedit-%s-%d.%s", timestamp, index+1, format)
	}
	return fmt.Sprintf("roomedit-%s.%s", timestamp, format)
}
