package canvas

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/roomedit/pkg/models"
)

func decode(t *testing.T, img *models.Image) image.Image {
	t.Helper()
	require.False(t, img.Empty())
	out, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	return out
}

func alphaAt(img image.Image, x, y int) uint32 {
	_, _, _, a := img.At(x, y).RGBA()
	return a
}

func stroke(t *testing.T, c *Canvas, pts ...Pointer) *models.Image {
	t.Helper()
	require.True(t, c.BeginStroke(pts[0]))
	for _, p := range pts[1:] {
		require.True(t, c.ContinueStroke(p))
	}
	snap, err := c.EndStroke()
	require.NoError(t, err)
	return snap
}

func TestStrokeAlignsWithOrigin(t *testing.T) {
	c := New(200, 100)
	c.SetOrigin(50, 20)

	snap := stroke(t, c, Mouse(70, 70), Mouse(150, 70))
	img := decode(t, snap)

	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
	// Canvas-local path runs (20,50)->(100,50).
	assert.NotZero(t, alphaAt(img, 60, 50))
	assert.NotZero(t, alphaAt(img, 20, 50))
	assert.NotZero(t, alphaAt(img, 100, 50))
	assert.Zero(t, alphaAt(img, 60, 20))
	assert.Zero(t, alphaAt(img, 150, 50))
	assert.Zero(t, alphaAt(img, 0, 0))

	r, g, b, _ := img.At(60, 50).RGBA()
	assert.NotZero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestTouchFallback(t *testing.T) {
	c := New(100, 100)
	snap := stroke(t, c, Touch(Point{X: 10, Y: 10}), Touch(Point{X: 90, Y: 10}))
	img := decode(t, snap)

	assert.NotZero(t, alphaAt(img, 50, 10))
	assert.Zero(t, alphaAt(img, 50, 80))
}

func TestOverlappingStrokeKeepsCoverage(t *testing.T) {
	c := New(100, 100)
	// Doubles back over itself; the overlap must stay painted.
	snap := stroke(t, c, Mouse(10, 50), Mouse(90, 50), Mouse(10, 50))
	img := decode(t, snap)

	assert.Equal(t, alphaAt(img, 50, 50), alphaAt(img, 30, 50))
	assert.NotZero(t, alphaAt(img, 50, 50))
}

func TestOpacity(t *testing.T) {
	c := New(10, 10)
	assert.Equal(t, DefaultOpacity, c.Opacity())

	assert.Equal(t, MinOpacity, c.SetOpacity(0))
	assert.Equal(t, MaxOpacity, c.SetOpacity(3))
	assert.Equal(t, 0.5, c.SetOpacity(0.5))

	full := New(60, 60)
	full.SetOpacity(1)
	img := decode(t, stroke(t, full, Mouse(10, 30), Mouse(50, 30)))
	assert.Equal(t, uint32(0xffff), alphaAt(img, 30, 30))

	faint := New(60, 60)
	faint.SetOpacity(0.1)
	img = decode(t, stroke(t, faint, Mouse(10, 30), Mouse(50, 30)))
	assert.Less(t, alphaAt(img, 30, 30), uint32(0x2000))
}

func TestDisabledCanvasIgnoresInput(t *testing.T) {
	c := New(50, 50)
	c.SetEnabled(false)

	assert.False(t, c.BeginStroke(Mouse(10, 10)))
	assert.False(t, c.ContinueStroke(Mouse(40, 40)))
	_, err := c.EndStroke()
	assert.ErrorIs(t, err, ErrNoStroke)
	assert.Nil(t, c.Snapshot())
}

func TestDisableMidStrokeAbandons(t *testing.T) {
	c := New(50, 50)
	require.True(t, c.BeginStroke(Mouse(10, 10)))
	require.True(t, c.ContinueStroke(Mouse(40, 10)))

	c.SetEnabled(false)
	assert.False(t, c.Drawing())
	_, err := c.EndStroke()
	assert.ErrorIs(t, err, ErrNoStroke)

	img, err := c.Encode()
	require.NoError(t, err)
	assert.Zero(t, alphaAt(decode(t, img), 25, 10))
}

func TestMoveWithoutBeginIsIgnored(t *testing.T) {
	c := New(50, 50)
	assert.False(t, c.ContinueStroke(Mouse(10, 10)))
}

func TestZeroSizedCanvas(t *testing.T) {
	c := New(0, 0)
	assert.False(t, c.BeginStroke(Mouse(1, 1)))
	_, err := c.Encode()
	assert.ErrorIs(t, err, ErrNoSurface)
}

func TestSnapshotsAccumulate(t *testing.T) {
	c := New(100, 100)
	first := stroke(t, c, Mouse(10, 10), Mouse(90, 10))
	second := stroke(t, c, Mouse(10, 90), Mouse(90, 90))

	assert.Zero(t, alphaAt(decode(t, first), 50, 90))
	img := decode(t, second)
	assert.NotZero(t, alphaAt(img, 50, 10))
	assert.NotZero(t, alphaAt(img, 50, 90))
	assert.Same(t, second, c.Snapshot())
}

func TestClear(t *testing.T) {
	c := New(50, 50)
	stroke(t, c, Mouse(5, 5), Mouse(45, 5))

	c.Clear()
	assert.Nil(t, c.Snapshot())
	img, err := c.Encode()
	require.NoError(t, err)
	assert.Zero(t, alphaAt(decode(t, img), 25, 5))
}

func TestRestore(t *testing.T) {
	c := New(100, 100)
	first := stroke(t, c, Mouse(10, 10), Mouse(90, 10))
	stroke(t, c, Mouse(10, 90), Mouse(90, 90))

	require.NoError(t, c.Restore(first))
	img, err := c.Encode()
	require.NoError(t, err)
	out := decode(t, img)
	assert.NotZero(t, alphaAt(out, 50, 10))
	assert.Zero(t, alphaAt(out, 50, 90))

	require.NoError(t, c.Restore(nil))
	img, err = c.Encode()
	require.NoError(t, err)
	assert.Zero(t, alphaAt(decode(t, img), 50, 10))
	assert.Nil(t, c.Snapshot())
}

func TestRestoreRejectsGarbage(t *testing.T) {
	c := New(10, 10)
	err := c.Restore(&models.Image{MIMEType: "image/png", Data: []byte("nope")})
	assert.ErrorIs(t, err, ErrBadSnapshot)
}

func TestResizeReplaysSnapshot(t *testing.T) {
	c := New(100, 100)
	stroke(t, c, Mouse(0, 50), Mouse(100, 50))

	require.NoError(t, c.Resize(200, 200))
	w, h := c.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)

	img, err := c.Encode()
	require.NoError(t, err)
	out := decode(t, img)
	assert.NotZero(t, alphaAt(out, 100, 100))
	assert.Zero(t, alphaAt(out, 100, 10))
}

func TestResizeWithoutSnapshotIsBlank(t *testing.T) {
	c := New(100, 100)
	require.NoError(t, c.Resize(40, 40))
	img, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), decode(t, img).Bounds())
}

func TestComposite(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range bg.Pix {
		bg.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, bg))

	c := New(40, 40)
	c.SetOpacity(1)
	stroke(t, c, Mouse(0, 20), Mouse(40, 20))

	out, err := c.Composite(&models.Image{MIMEType: "image/png", Data: buf.Bytes()})
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())

	r, g, _, _ := img.At(20, 20).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	_, g, _, _ = img.At(20, 2).RGBA()
	assert.Greater(t, g, uint32(0xf000))
}
