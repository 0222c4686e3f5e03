package canvas

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// capSegments is the number of polygon edges used per half-circle cap.
const capSegments = 16

// strokeSegment adds a round-capped segment of the given radius from a to b
// into cov. Every capsule is wound the same way so overlapping segments of
// one stroke union instead of cancelling.
func strokeSegment(z *vector.Rasterizer, cov *image.Alpha, a, b Point, radius float64) {
	b0 := cov.Bounds()
	z.Reset(b0.Dx(), b0.Dy())

	theta := math.Atan2(b.Y-a.Y, b.X-a.X)
	start := theta + math.Pi/2

	first := true
	arc := func(c Point, from float64) {
		for i := 0; i <= capSegments; i++ {
			ang := from - math.Pi*float64(i)/capSegments
			x := float32(c.X + radius*math.Cos(ang))
			y := float32(c.Y + radius*math.Sin(ang))
			if first {
				z.MoveTo(x, y)
				first = false
				continue
			}
			z.LineTo(x, y)
		}
	}
	arc(b, start)
	arc(a, start-math.Pi)
	z.ClosePath()

	z.Draw(cov, b0, image.Opaque, image.Point{})
}
