// Package request assembles the multi-part generation request for one edit:
// the scene, the optional mask and reference image, and a mode-specific
// instruction that pins the output to the scene's aspect ratio.
package request

import (
	"fmt"

	imgutil "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/pkg/models"
)

// Measurer reports the pixel dimensions of an encoded image, (0, 0) when it
// cannot be decoded.
type Measurer func(img *models.Image) (width, height int)

// Input is everything the assembler reads from an edit session.
type Input struct {
	Tier   models.Tier
	Mode   models.EditMode
	Prompt string

	Scene     *models.Image
	Mask      *models.Image
	Furniture *models.Image
	Material  *models.Image
	Design    *models.Image
}

// Reference returns the reference image the mode consumes, nil if none.
func (in Input) Reference() *models.Image {
	kind, ok := in.Mode.ReferenceKind()
	if !ok {
		return nil
	}
	var ref *models.Image
	switch kind {
	case models.RefFurniture:
		ref = in.Furniture
	case models.RefMaterial:
		ref = in.Material
	case models.RefDesign:
		ref = in.Design
	}
	if ref.Empty() {
		return nil
	}
	return ref
}

type Assembler struct {
	registry *models.ModelRegistry
	measure  Measurer
}

// New returns an assembler. A nil registry uses models.DefaultRegistry and a
// nil measurer uses image.Dimensions.
func New(registry *models.ModelRegistry, measure Measurer) *Assembler {
	if registry == nil {
		registry = models.DefaultRegistry()
	}
	if measure == nil {
		measure = imgutil.Dimensions
	}
	return &Assembler{registry: registry, measure: measure}
}

// Build measures the scene, picks the instruction for the mode and returns the
// ordered request: scene, mask if present, the mode's reference if supplied,
// then the instruction.
func (a *Assembler) Build(in Input) (*models.EditRequest, error) {
	if in.Scene.Empty() {
		return nil, models.ErrNoImageData
	}

	model, err := a.registry.ForTier(in.Tier)
	if err != nil {
		return nil, err
	}

	tmpl, err := templateFor(in.Mode)
	if err != nil {
		return nil, err
	}

	w, h := a.measure(in.Scene)
	ref := in.Reference()
	instruction := tmpl.render(in.Prompt, !in.Mask.Empty(), ref != nil, ratioDirective(w, h))

	parts := []models.Part{models.ImagePart(in.Scene)}
	if !in.Mask.Empty() {
		parts = append(parts, models.ImagePart(in.Mask))
	}
	if ref != nil {
		parts = append(parts, models.ImagePart(ref))
	}
	parts = append(parts, models.TextPart(instruction))

	req := &models.EditRequest{
		Model: model.Name,
		Parts: parts,
		Config: models.ImageConfig{
			AspectRatio: imgutil.ClassifyAspectRatio(w, h),
			ImageSize:   model.ImageSize,
		},
		Width:  w,
		Height: h,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("assembled request is invalid: %w", err)
	}
	return req, nil
}

// Build assembles a request with the default registry and measurer.
func Build(in Input) (*models.EditRequest, error) {
	return New(nil, nil).Build(in)
}
