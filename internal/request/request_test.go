package request

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/roomedit/pkg/models"
)

func pngImage(t *testing.T, w, h int) *models.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}
}

func fixed(w, h int) Measurer {
	return func(*models.Image) (int, int) { return w, h }
}

func blob(name string) *models.Image {
	return &models.Image{MIMEType: "image/png", Data: []byte(name)}
}

const directive1000x750 = " CRITICAL: The output image MUST HAVE the EXACT SAME aspect ratio and dimensions as the input image (1000x750). DO NOT crop, DO NOT stretch, and DO NOT change the perspective or framing."

func TestBuild_PartOrder(t *testing.T) {
	scene, mask, material := blob("scene"), blob("mask"), blob("material")
	a := New(nil, fixed(1000, 750))

	req, err := a.Build(Input{
		Tier:     models.TierFree,
		Mode:     models.ModeFinish,
		Prompt:   "oak",
		Scene:    scene,
		Mask:     mask,
		Material: material,
	})
	require.NoError(t, err)

	require.Len(t, req.Parts, 4)
	assert.Same(t, scene, req.Parts[0].Image)
	assert.Same(t, mask, req.Parts[1].Image)
	assert.Same(t, material, req.Parts[2].Image)
	assert.Equal(t,
		"Apply the material/texture from the third image to the masked area in the first image. oak "+directive1000x750,
		req.Parts[3].Text)

	assert.Equal(t, models.ModelFlashImage, req.Model)
	assert.Equal(t, models.Aspect4x3, req.Config.AspectRatio)
	assert.Empty(t, req.Config.ImageSize)
	assert.Equal(t, 1000, req.Width)
	assert.Equal(t, 750, req.Height)
}

func TestBuild_IgnoresReferencesOfOtherModes(t *testing.T) {
	a := New(nil, fixed(1000, 750))
	req, err := a.Build(Input{
		Tier:      models.TierFree,
		Mode:      models.ModeErase,
		Scene:     blob("scene"),
		Furniture: blob("sofa"),
		Material:  blob("oak"),
		Design:    blob("loft"),
	})
	require.NoError(t, err)

	require.Len(t, req.Parts, 2)
	assert.Equal(t,
		"Erase the areas highlighted in the mask. Instructions: Remove objects naturally. "+directive1000x750,
		req.Instruction())
}

func TestBuild_Instructions(t *testing.T) {
	d := directive1000x750
	tests := []struct {
		name   string
		in     Input
		want   string
		nParts int
	}{
		{
			name:   "erase with prompt",
			in:     Input{Mode: models.ModeErase, Prompt: "the lamp", Mask: blob("m")},
			want:   "Erase the areas highlighted in the mask. Instructions: the lamp " + d,
			nParts: 3,
		},
		{
			name:   "furniture with reference and mask",
			in:     Input{Mode: models.ModeFurniture, Mask: blob("m"), Furniture: blob("f")},
			want:   "Place the furniture from the reference into the masked area.  " + d,
			nParts: 4,
		},
		{
			name:   "furniture with reference no mask",
			in:     Input{Mode: models.ModeFurniture, Prompt: "by the window", Furniture: blob("f")},
			want:   "Place the furniture from the reference into the scene. by the window " + d,
			nParts: 3,
		},
		{
			name:   "furniture without reference",
			in:     Input{Mode: models.ModeFurniture, Mask: blob("m")},
			want:   "Add modern furniture to the masked area.  " + d,
			nParts: 3,
		},
		{
			name:   "furniture without reference or mask",
			in:     Input{Mode: models.ModeFurniture, Prompt: "a desk"},
			want:   "Add modern furniture to the scene. a desk " + d,
			nParts: 2,
		},
		{
			name:   "finish without reference",
			in:     Input{Mode: models.ModeFinish, Mask: blob("m")},
			want:   "Change the material of the masked area. Instructions: Make it look premium. " + d,
			nParts: 3,
		},
		{
			name:   "finish with reference no prompt",
			in:     Input{Mode: models.ModeFinish, Material: blob("mat")},
			want:   "Apply the material/texture from the third image to the masked area in the first image.  " + d,
			nParts: 3,
		},
		{
			name:   "design with reference and mask",
			in:     Input{Mode: models.ModeDesign, Mask: blob("m"), Design: blob("d"), Prompt: "japandi"},
			want:   "Redesign the masked area inspired by the design reference image. japandi " + d,
			nParts: 4,
		},
		{
			name:   "design with reference no mask",
			in:     Input{Mode: models.ModeDesign, Design: blob("d")},
			want:   "Redesign the entire scene inspired by the design reference image.  " + d,
			nParts: 3,
		},
		{
			name:   "design without reference",
			in:     Input{Mode: models.ModeDesign},
			want:   "Redesign the entire scene. Instructions: Make it modern. " + d,
			nParts: 2,
		},
		{
			name:   "design without reference masked",
			in:     Input{Mode: models.ModeDesign, Mask: blob("m"), Prompt: "brighter"},
			want:   "Redesign the masked area. Instructions: brighter " + d,
			nParts: 3,
		},
	}

	a := New(nil, fixed(1000, 750))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Tier = models.TierFree
			tt.in.Scene = blob("scene")

			req, err := a.Build(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Instruction())
			assert.Len(t, req.Parts, tt.nParts)
		})
	}
}

func TestBuild_InstructionAlwaysCarriesDimensions(t *testing.T) {
	a := New(nil, fixed(640, 480))
	for _, mode := range models.EditModes() {
		req, err := a.Build(Input{Tier: models.TierFree, Mode: mode, Scene: blob("s")})
		require.NoError(t, err)
		assert.Contains(t, req.Instruction(), "(640x480)", mode)
	}
}

func TestBuild_UnclassifiedRatioOmitted(t *testing.T) {
	a := New(nil, fixed(3000, 1000))
	req, err := a.Build(Input{Tier: models.TierFree, Mode: models.ModeDesign, Scene: blob("s")})
	require.NoError(t, err)
	assert.Equal(t, models.AspectUnclassified, req.Config.AspectRatio)
	assert.Contains(t, req.Instruction(), "(3000x1000)")
}

func TestBuild_UndecodableScene(t *testing.T) {
	req, err := Build(Input{Tier: models.TierFree, Mode: models.ModeErase, Scene: blob("not an image")})
	require.NoError(t, err)
	assert.Equal(t, models.AspectUnclassified, req.Config.AspectRatio)
	assert.Contains(t, req.Instruction(), "(0x0)")
	assert.Zero(t, req.Width)
}

func TestBuild_MeasuresRealImage(t *testing.T) {
	req, err := Build(Input{Tier: models.TierPro, Mode: models.ModeDesign, Scene: pngImage(t, 160, 90)})
	require.NoError(t, err)

	assert.Equal(t, models.ModelProImage, req.Model)
	assert.Equal(t, models.Aspect16x9, req.Config.AspectRatio)
	assert.Equal(t, "1K", req.Config.ImageSize)
	assert.True(t, strings.Contains(req.Instruction(), "(160x90)"))
}

func TestBuild_Errors(t *testing.T) {
	a := New(nil, fixed(10, 10))

	_, err := a.Build(Input{Tier: models.TierFree, Mode: models.ModeErase})
	assert.ErrorIs(t, err, models.ErrNoImageData)

	_, err = a.Build(Input{Tier: models.TierUnset, Mode: models.ModeErase, Scene: blob("s")})
	assert.ErrorIs(t, err, models.ErrModelNotFoundForTier)

	_, err = a.Build(Input{Tier: models.TierFree, Mode: "PAINT", Scene: blob("s")})
	assert.ErrorIs(t, err, models.ErrUnknownMode)
}

func TestInput_Reference(t *testing.T) {
	f, m, d := blob("f"), blob("m"), blob("d")
	in := Input{Furniture: f, Material: m, Design: d}

	in.Mode = models.ModeFurniture
	assert.Same(t, f, in.Reference())
	in.Mode = models.ModeFinish
	assert.Same(t, m, in.Reference())
	in.Mode = models.ModeDesign
	assert.Same(t, d, in.Reference())
	in.Mode = models.ModeErase
	assert.Nil(t, in.Reference())

	assert.Nil(t, Input{Mode: models.ModeFinish, Material: &models.Image{}}.Reference())
}
