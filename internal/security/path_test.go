package security

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidateSavePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid simple filename", "result.png", nil},
		{"valid filename with subdirectory", "output/room.png", nil},
		{"path traversal with ..", "../room.png", ErrPathTraversal},
		{"path traversal in middle", "foo/../../../etc/passwd", ErrPathTraversal},
		{"absolute path unix", "/etc/passwd", ErrAbsolutePath},
		{"windows reserved name CON", "CON.txt", ErrReservedName},
		{"windows reserved name PRN", "prn.png", ErrReservedName},
		{"windows reserved name NUL", "nul", ErrReservedName},
		{"windows reserved name LPT1", "lpt1.doc", ErrReservedName},
		{"filename starting with hyphen", "-room.png", ErrHyphenName},
		{"empty", "  ", ErrEmptyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSavePath(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSavePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestResolveWithin(t *testing.T) {
	root := filepath.Join("data", "jobs")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr error
	}{
		{"sibling file", "living.jpg", filepath.Join(root, "living.jpg"), nil},
		{"nested", "refs/sofa.png", filepath.Join(root, "refs", "sofa.png"), nil},
		{"inner dotdot stays inside", "refs/../living.jpg", filepath.Join(root, "living.jpg"), nil},
		{"escapes root", "../secret.png", "", ErrPathTraversal},
		{"escapes deep", "refs/../../../x.png", "", ErrPathTraversal},
		{"absolute", "/etc/passwd", "", ErrAbsolutePath},
		{"empty", "", "", ErrEmptyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(root, tt.rel)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveWithin(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveWithin(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "image.png",
			expected: "image.png",
		},
		{
			name:     "filename with slashes",
			input:    "foo/bar.png",
			expected: "foo-bar.png",
		},
		{
			name:     "filename with backslashes",
			input:    "foo\\bar.png",
			expected: "foo-bar.png",
		},
		{
			name:     "leading dots removed",
			input:    "..hidden.png",
			expected: "hidden.png",
		},
		{
			name:     "leading hyphens removed",
			input:    "--flag.png",
			expected: "flag.png",
		},
		{
			name:     "trailing dots removed",
			input:    "file.png...",
			expected: "file.png",
		},
		{
			name:     "special characters removed",
			input:    "file<name>:with*bad?chars.png",
			expected: "filename-withbadchars.png",
		},
		{
			name:     "windows reserved name gets underscore",
			input:    "CON.txt",
			expected: "CON.txt_",
		},
		{
			name:     "empty becomes file",
			input:    "...",
			expected: "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
