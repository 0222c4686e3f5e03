package canvas

// Point is a position in canvas-local pixels.
type Point struct {
	X, Y float64
}

// Pointer is a raw input event position in page (client) coordinates. Mouse
// events fill ClientX/ClientY; touch events fill Touches and may leave the
// client fields zero.
type Pointer struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
	Touches []Point `json:"touches,omitempty"`
}

func Mouse(x, y float64) Pointer {
	return Pointer{ClientX: x, ClientY: y}
}

func Touch(touches ...Point) Pointer {
	return Pointer{Touches: touches}
}

// client resolves the event position, falling back to the first touch for
// each axis the event left at zero.
func (p Pointer) client() Point {
	pt := Point{X: p.ClientX, Y: p.ClientY}
	if len(p.Touches) == 0 {
		return pt
	}
	if pt.X == 0 {
		pt.X = p.Touches[0].X
	}
	if pt.Y == 0 {
		pt.Y = p.Touches[0].Y
	}
	return pt
}
