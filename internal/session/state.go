package session

import "github.com/manash/roomedit/pkg/models"

// State is the aggregate record of one editing session. Images are
// immutable once created, so copying a State never aliases mutable data.
type State struct {
	Tier models.Tier `json:"tier"`

	Scene     *models.Image `json:"-"`
	Furniture *models.Image `json:"-"`
	Material  *models.Image `json:"-"`
	Design    *models.Image `json:"-"`
	Result    *models.Image `json:"-"`
	Mask      *models.Image `json:"-"`

	Mode       models.EditMode `json:"mode"`
	Prompt     string          `json:"prompt"`
	Processing bool            `json:"processing"`
	// Notice is the last user-facing error message, empty when none.
	Notice string `json:"notice,omitempty"`
}

// Initial is the state of a fresh session: no tier, no images, FINISH mode.
func Initial() State {
	return State{Mode: models.ModeFinish}
}

func (s State) Reference(kind models.ReferenceKind) *models.Image {
	switch kind {
	case models.RefFurniture:
		return s.Furniture
	case models.RefMaterial:
		return s.Material
	case models.RefDesign:
		return s.Design
	default:
		return nil
	}
}

func (s State) HasScene() bool {
	return !s.Scene.Empty()
}

func (s State) HasResult() bool {
	return !s.Result.Empty()
}

// Event is a state transition. The set of events is closed.
type Event interface {
	apply(State) State
}

// Reduce returns the state that follows prev after e. prev is not modified.
func Reduce(prev State, e Event) State {
	if e == nil {
		return prev
	}
	return e.apply(prev)
}

type TierSelected struct {
	Tier models.Tier
}

func (e TierSelected) apply(s State) State {
	if !e.Tier.IsValid() {
		return s
	}
	s.Tier = e.Tier
	return s
}

// SceneLoaded starts over on a new scene, keeping only the tier.
type SceneLoaded struct {
	Image *models.Image
}

func (e SceneLoaded) apply(s State) State {
	next := Initial()
	next.Tier = s.Tier
	next.Scene = e.Image
	return next
}

// ReferenceSet stores a reference image; a nil Image removes it.
type ReferenceSet struct {
	Kind  models.ReferenceKind
	Image *models.Image
}

func (e ReferenceSet) apply(s State) State {
	img := e.Image
	if img.Empty() {
		img = nil
	}
	switch e.Kind {
	case models.RefFurniture:
		s.Furniture = img
	case models.RefMaterial:
		s.Material = img
	case models.RefDesign:
		s.Design = img
	}
	return s
}

// ModeChanged switches the edit mode and discards the mask and any result.
type ModeChanged struct {
	Mode models.EditMode
}

func (e ModeChanged) apply(s State) State {
	if !e.Mode.IsValid() {
		return s
	}
	s.Mode = e.Mode
	s.Mask = nil
	s.Result = nil
	return s
}

type PromptChanged struct {
	Prompt string
}

func (e PromptChanged) apply(s State) State {
	s.Prompt = e.Prompt
	return s
}

// MaskChanged replaces the mask; a nil or empty Mask means no mask.
type MaskChanged struct {
	Mask *models.Image
}

func (e MaskChanged) apply(s State) State {
	s.Mask = e.Mask
	if s.Mask.Empty() {
		s.Mask = nil
	}
	return s
}

type GenerationStarted struct{}

func (GenerationStarted) apply(s State) State {
	s.Processing = true
	s.Notice = ""
	return s
}

// GenerationSucceeded stores the result. The mask is left as it was.
type GenerationSucceeded struct {
	Result *models.Image
}

func (e GenerationSucceeded) apply(s State) State {
	s.Result = e.Result
	s.Processing = false
	return s
}

// GenerationFailed clears the busy flag and keeps everything else.
type GenerationFailed struct {
	Notice string
}

func (e GenerationFailed) apply(s State) State {
	s.Processing = false
	s.Notice = e.Notice
	return s
}

type NoticeSet struct {
	Notice string
}

func (e NoticeSet) apply(s State) State {
	s.Notice = e.Notice
	return s
}

type ResultDismissed struct{}

func (ResultDismissed) apply(s State) State {
	s.Result = nil
	return s
}

// EditsCleared drops all edits on the current scene.
type EditsCleared struct{}

func (EditsCleared) apply(s State) State {
	next := Initial()
	next.Tier = s.Tier
	next.Scene = s.Scene
	return next
}

type Reset struct{}

func (Reset) apply(State) State {
	return Initial()
}
