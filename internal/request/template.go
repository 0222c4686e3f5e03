package request

import (
	"fmt"

	"github.com/manash/roomedit/pkg/models"
)

// ratioDirective is appended to every instruction. It starts with a space.
func ratioDirective(width, height int) string {
	return fmt.Sprintf(" CRITICAL: The output image MUST HAVE the EXACT SAME aspect ratio and dimensions as the input image (%dx%d). DO NOT crop, DO NOT stretch, and DO NOT change the perspective or framing.", width, height)
}

type template struct {
	// withRef and withoutRef receive the prompt (already defaulted), whether a
	// mask is present and the ratio directive.
	withRef    func(prompt string, masked bool, directive string) string
	withoutRef func(prompt string, masked bool, directive string) string
	// fallback replaces an empty prompt in the no-reference variant.
	fallback string
}

func (t template) render(prompt string, masked, hasRef bool, directive string) string {
	if hasRef && t.withRef != nil {
		return t.withRef(prompt, masked, directive)
	}
	if prompt == "" {
		prompt = t.fallback
	}
	return t.withoutRef(prompt, masked, directive)
}

func area(masked bool, yes, no string) string {
	if masked {
		return yes
	}
	return no
}

var templates = map[models.EditMode]template{
	models.ModeErase: {
		fallback: "Remove objects naturally.",
		withoutRef: func(prompt string, _ bool, directive string) string {
			return fmt.Sprintf("Erase the areas highlighted in the mask. Instructions: %s %s", prompt, directive)
		},
	},
	models.ModeFurniture: {
		withRef: func(prompt string, masked bool, directive string) string {
			return fmt.Sprintf("Place the furniture from the reference into the %s. %s %s", area(masked, "masked area", "scene"), prompt, directive)
		},
		withoutRef: func(prompt string, masked bool, directive string) string {
			return fmt.Sprintf("Add modern furniture to the %s. %s %s", area(masked, "masked area", "scene"), prompt, directive)
		},
	},
	models.ModeFinish: {
		fallback: "Make it look premium.",
		withRef: func(prompt string, _ bool, directive string) string {
			return fmt.Sprintf("Apply the material/texture from the third image to the masked area in the first image. %s %s", prompt, directive)
		},
		withoutRef: func(prompt string, _ bool, directive string) string {
			return fmt.Sprintf("Change the material of the masked area. Instructions: %s %s", prompt, directive)
		},
	},
	models.ModeDesign: {
		fallback: "Make it modern.",
		withRef: func(prompt string, masked bool, directive string) string {
			return fmt.Sprintf("Redesign the %s inspired by the design reference image. %s %s", area(masked, "masked area", "entire scene"), prompt, directive)
		},
		withoutRef: func(prompt string, masked bool, directive string) string {
			return fmt.Sprintf("Redesign the %s. Instructions: %s %s", area(masked, "masked area", "entire scene"), prompt, directive)
		},
	},
}

func templateFor(mode models.EditMode) (template, error) {
	t, ok := templates[mode]
	if !ok {
		return template{}, fmt.Errorf("%w: %q", models.ErrUnknownMode, mode)
	}
	return t, nil
}
