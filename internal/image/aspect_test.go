package image

import (
	"testing"

	"github.com/manash/roomedit/pkg/models"
)

func TestClassifyAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want models.AspectRatio
	}{
		{"square", 1000, 1000, models.Aspect1x1},
		{"landscape 4:3", 1200, 900, models.Aspect4x3},
		{"portrait 3:4", 900, 1200, models.Aspect3x4},
		{"widescreen", 1920, 1080, models.Aspect16x9},
		{"tall", 1080, 1920, models.Aspect9x16},
		{"zero width", 0, 500, models.AspectUnclassified},
		{"zero height", 500, 0, models.AspectUnclassified},
		{"gap between 3:4 and 1:1", 870, 1000, models.AspectUnclassified},
		{"gap between 1:1 and 4:3", 1200, 1000, models.AspectUnclassified},
		{"ratio 0.775 lies in the 3:4 band", 1000, 1290, models.Aspect3x4},
		{"3:4 and 9:16 bands overlap, 3:4 checked first", 655, 1000, models.Aspect3x4},
		{"very tall", 400, 1000, models.AspectUnclassified},
		{"panorama", 3000, 1000, models.AspectUnclassified},
		{"near square", 1050, 1000, models.Aspect1x1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAspectRatio(tt.w, tt.h); got != tt.want {
				t.Errorf("ClassifyAspectRatio(%d, %d) = %q, want %q", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestClassifyAspectRatio_Deterministic(t *testing.T) {
	for w := 100; w <= 2000; w += 37 {
		for h := 100; h <= 2000; h += 53 {
			if ClassifyAspectRatio(w, h) != ClassifyAspectRatio(w, h) {
				t.Fatalf("ClassifyAspectRatio(%d, %d) not deterministic", w, h)
			}
		}
	}
}
