package models

import (
	"errors"
	"testing"
)

func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   bool
	}{
		{"valid png", FormatPNG, true},
		{"valid jpeg", FormatJPEG, true},
		{"valid webp", FormatWebP, true},
		{"invalid format", OutputFormat("gif"), false},
		{"empty format", OutputFormat(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.want {
				t.Errorf("OutputFormat.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want OutputFormat
	}{
		{"image/png", FormatPNG},
		{"image/jpeg", FormatJPEG},
		{"IMAGE/JPEG", FormatJPEG},
		{"image/webp", FormatWebP},
		{"application/octet-stream", FormatPNG},
		{"", FormatPNG},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := FormatForMIME(tt.mime); got != tt.want {
				t.Errorf("FormatForMIME(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"FREE", TierFree, false},
		{"pro", TierPro, false},
		{" Pro ", TierPro, false},
		{"", TierUnset, true},
		{"enterprise", TierUnset, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTier(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownTier) {
					t.Errorf("ParseTier(%q) error = %v, want ErrUnknownTier", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTier(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTier(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseEditMode(t *testing.T) {
	for _, mode := range EditModes() {
		got, err := ParseEditMode(string(mode))
		if err != nil {
			t.Fatalf("ParseEditMode(%q) error = %v", mode, err)
		}
		if got != mode {
			t.Errorf("ParseEditMode(%q) = %v", mode, got)
		}
	}

	if got, err := ParseEditMode("erase"); err != nil || got != ModeErase {
		t.Errorf("ParseEditMode(erase) = %v, %v", got, err)
	}

	if _, err := ParseEditMode("paint"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ParseEditMode(paint) error = %v, want ErrUnknownMode", err)
	}
}

func TestEditMode_ReferenceKind(t *testing.T) {
	tests := []struct {
		mode   EditMode
		want   ReferenceKind
		wantOK bool
	}{
		{ModeFinish, RefMaterial, true},
		{ModeFurniture, RefFurniture, true},
		{ModeDesign, RefDesign, true},
		{ModeErase, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, ok := tt.mode.ReferenceKind()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ReferenceKind() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEditMode_Hint(t *testing.T) {
	for _, mode := range EditModes() {
		if mode.Hint() == "" {
			t.Errorf("%s.Hint() is empty", mode)
		}
	}
}

func TestParseReferenceKind(t *testing.T) {
	if got, err := ParseReferenceKind("Material"); err != nil || got != RefMaterial {
		t.Errorf("ParseReferenceKind(Material) = %v, %v", got, err)
	}
	if _, err := ParseReferenceKind("lamp"); !errors.Is(err, ErrUnknownReference) {
		t.Errorf("ParseReferenceKind(lamp) error = %v, want ErrUnknownReference", err)
	}
}

func TestAspectRatio_String(t *testing.T) {
	if got := AspectUnclassified.String(); got != "unclassified" {
		t.Errorf("AspectUnclassified.String() = %q", got)
	}
	if got := Aspect16x9.String(); got != "16:9" {
		t.Errorf("Aspect16x9.String() = %q", got)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	free, err := r.ForTier(TierFree)
	if err != nil {
		t.Fatalf("ForTier(FREE) error = %v", err)
	}
	if free.Name != ModelFlashImage {
		t.Errorf("ForTier(FREE).Name = %v, want %v", free.Name, ModelFlashImage)
	}
	if free.ImageSize != "" {
		t.Errorf("ForTier(FREE).ImageSize = %q, want empty", free.ImageSize)
	}

	pro, err := r.ForTier(TierPro)
	if err != nil {
		t.Fatalf("ForTier(PRO) error = %v", err)
	}
	if pro.Name != ModelProImage {
		t.Errorf("ForTier(PRO).Name = %v, want %v", pro.Name, ModelProImage)
	}
	if pro.ImageSize != "1K" {
		t.Errorf("ForTier(PRO).ImageSize = %q, want 1K", pro.ImageSize)
	}

	if _, err := r.ForTier(TierUnset); !errors.Is(err, ErrModelNotFoundForTier) {
		t.Errorf("ForTier(unset) error = %v, want ErrModelNotFoundForTier", err)
	}

	if got := r.ListByProvider(ProviderGemini); len(got) != 2 {
		t.Errorf("ListByProvider(gemini) = %v, want 2 models", got)
	}
}

func TestModelRegistry_Get(t *testing.T) {
	r := NewModelRegistry()
	r.Register(&ModelCapabilities{Name: "m1", Provider: ProviderGemini, Tier: TierFree})

	if _, ok := r.Get("m1"); !ok {
		t.Error("Get(m1) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) found")
	}
	if list := r.List(); len(list) != 1 || list[0] != "m1" {
		t.Errorf("List() = %v", list)
	}
}
