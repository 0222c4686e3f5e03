package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	ErrUnknownTier          = errors.New("unknown tier")
	ErrUnknownMode          = errors.New("unknown edit mode")
	ErrUnknownReference     = errors.New("unknown reference kind")
	ErrNoImageData          = errors.New("image data is required for editing")
	ErrEmptyInstruction     = errors.New("instruction cannot be empty")
	ErrInvalidPartOrder     = errors.New("edit request must start with the scene image and end with the instruction")
	ErrModelNotFoundForTier = errors.New("no model registered for tier")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
)

// Tier selects the backing model. The zero value means no tier has been
// chosen yet.
type Tier string

const (
	TierUnset Tier = ""
	TierFree  Tier = "FREE"
	TierPro   Tier = "PRO"
)

func ValidTiers() []Tier {
	return []Tier{TierFree, TierPro}
}

func (t Tier) IsValid() bool {
	return slices.Contains(ValidTiers(), t)
}

func (t Tier) String() string {
	return string(t)
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return TierUnset, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownTier, s, ValidTiers())
	}
	return t, nil
}

// EditMode is the editing intent that decides the instruction template and
// which reference image is allowed.
type EditMode string

const (
	ModeFinish    EditMode = "FINISH"
	ModeErase     EditMode = "ERASE"
	ModeFurniture EditMode = "FURNITURE"
	ModeDesign    EditMode = "DESIGN"
)

// EditModes lists every mode in display order.
func EditModes() []EditMode {
	return []EditMode{ModeFinish, ModeErase, ModeFurniture, ModeDesign}
}

func (m EditMode) IsValid() bool {
	return slices.Contains(EditModes(), m)
}

func (m EditMode) String() string {
	return string(m)
}

func ParseEditMode(s string) (EditMode, error) {
	m := EditMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownMode, s, EditModes())
	}
	return m, nil
}

// Hint tells the user what to paint in this mode.
func (m EditMode) Hint() string {
	switch m {
	case ModeErase:
		return "Paint over the objects you want to remove."
	case ModeFurniture:
		return "Paint where the furniture should be placed."
	case ModeFinish:
		return "Paint the area whose material should change."
	case ModeDesign:
		return "Paint an area to redesign only that part, or leave empty for the whole scene."
	default:
		return ""
	}
}

// ReferenceKind returns the reference image kind the mode accepts. ERASE
// takes no reference.
func (m EditMode) ReferenceKind() (ReferenceKind, bool) {
	switch m {
	case ModeFurniture:
		return RefFurniture, true
	case ModeFinish:
		return RefMaterial, true
	case ModeDesign:
		return RefDesign, true
	default:
		return "", false
	}
}

type ReferenceKind string

const (
	RefFurniture ReferenceKind = "furniture"
	RefMaterial  ReferenceKind = "material"
	RefDesign    ReferenceKind = "design"
)

func ReferenceKinds() []ReferenceKind {
	return []ReferenceKind{RefFurniture, RefMaterial, RefDesign}
}

func ParseReferenceKind(s string) (ReferenceKind, error) {
	k := ReferenceKind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ReferenceKinds(), k) {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownReference, s, ReferenceKinds())
	}
	return k, nil
}

// AspectRatio is one of the ratios the image model accepts as a hint. The
// empty value means the source did not match any of them.
type AspectRatio string

const (
	AspectUnclassified AspectRatio = ""
	Aspect1x1          AspectRatio = "1:1"
	Aspect3x4          AspectRatio = "3:4"
	Aspect4x3          AspectRatio = "4:3"
	Aspect9x16         AspectRatio = "9:16"
	Aspect16x9         AspectRatio = "16:9"
)

func (a AspectRatio) String() string {
	if a == AspectUnclassified {
		return "unclassified"
	}
	return string(a)
}

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
	FormatWebP OutputFormat = "webp"
)

func ValidFormats() []OutputFormat {
	return []OutputFormat{FormatPNG, FormatJPEG, FormatWebP}
}

func (f OutputFormat) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

func (f OutputFormat) String() string {
	return string(f)
}

// FormatForMIME maps an image MIME type to a file format, defaulting to png.
func FormatForMIME(mime string) OutputFormat {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/webp":
		return FormatWebP
	default:
		return FormatPNG
	}
}

type CostInfo struct {
	PerImage float64
	Total    float64
	Currency string
}

type ModelCapabilities struct {
	Name     string
	Provider ProviderType
	Tier     Tier
	// ImageSize is the output resolution hint sent with every request, if any.
	ImageSize string
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
	tiers  map[Tier]string
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
		tiers:  make(map[Tier]string),
	}
}

// Register adds a model; the last model registered for a tier backs it.
func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
	if cap.Tier.IsValid() {
		r.tiers[cap.Tier] = cap.Name
	}
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) ForTier(tier Tier) (*ModelCapabilities, error) {
	name, ok := r.tiers[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFoundForTier, tier)
	}
	return r.models[name], nil
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const (
	ModelFlashImage = "gemini-2.5-flash-image"
	ModelProImage   = "gemini-3-pro-image-preview"
)

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:     ModelFlashImage,
		Provider: ProviderGemini,
		Tier:     TierFree,
	})

	r.Register(&ModelCapabilities{
		Name:      ModelProImage,
		Provider:  ProviderGemini,
		Tier:      TierPro,
		ImageSize: "1K",
	})

	return r
}
