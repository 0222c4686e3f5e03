package image

import (
	"math"

	"github.com/manash/roomedit/pkg/models"
)

// aspectTolerance is the absolute distance from a target ratio that still
// counts as a match.
const aspectTolerance = 0.1

var aspectTargets = []struct {
	ratio float64
	value models.AspectRatio
}{
	{1.0, models.Aspect1x1},
	{0.75, models.Aspect3x4},
	{1.33, models.Aspect4x3},
	{0.56, models.Aspect9x16},
	{1.77, models.Aspect16x9},
}

// ClassifyAspectRatio maps pixel dimensions onto a supported aspect ratio.
// A zero dimension or a ratio outside every tolerance band is unclassified.
func ClassifyAspectRatio(width, height int) models.AspectRatio {
	if width == 0 || height == 0 {
		return models.AspectUnclassified
	}
	ratio := float64(width) / float64(height)
	for _, t := range aspectTargets {
		if math.Abs(ratio-t.ratio) < aspectTolerance {
			return t.value
		}
	}
	return models.AspectUnclassified
}
