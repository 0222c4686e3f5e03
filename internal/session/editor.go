package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manash/roomedit/internal/canvas"
	"github.com/manash/roomedit/internal/history"
	imgutil "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/request"
	"github.com/manash/roomedit/pkg/models"
)

var (
	ErrBusy               = errors.New("a generation is already in progress")
	ErrNoScene            = errors.New("no scene image loaded")
	ErrNoTier             = errors.New("no tier selected")
	ErrCredentialRequired = errors.New("a credential is required for this tier")
)

// Generator performs one image edit against the generation service.
type Generator interface {
	Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error)
}

// Credentials is the host's credential capability.
type Credentials interface {
	HasCredential(ctx context.Context) (bool, error)
	RequestCredential(ctx context.Context) error
}

// Notices supplies the user-facing messages for known failures.
type Notices interface {
	AuthFailed() string
	NoImage() string
	Generic() string
	CredentialRequired() string
	Hint(mode models.EditMode) string
}

type englishNotices struct{}

func (englishNotices) AuthFailed() string {
	return "API key authentication failed. Please select your key again."
}

func (englishNotices) NoImage() string {
	return "Failed to generate image. Please try again with a different prompt."
}

func (englishNotices) Generic() string {
	return "An error occurred."
}

func (englishNotices) CredentialRequired() string {
	return "The PRO tier needs an API key."
}

func (englishNotices) Hint(mode models.EditMode) string {
	return mode.Hint()
}

// Attempt describes one finished generation for the journal.
type Attempt struct {
	SessionID   string
	Tier        models.Tier
	Model       string
	Mode        models.EditMode
	Prompt      string
	AspectRatio models.AspectRatio
	Width       int
	Height      int
	Masked      bool
	Referenced  bool
	Err         error
	Started     time.Time
	Duration    time.Duration
}

// Journal receives every generation attempt.
type Journal interface {
	Record(ctx context.Context, a Attempt) error
}

type Option func(*Editor)

func WithCredentials(c Credentials) Option {
	return func(e *Editor) { e.creds = c }
}

func WithJournal(j Journal) Option {
	return func(e *Editor) { e.journal = j }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

func WithAssembler(a *request.Assembler) Option {
	return func(e *Editor) { e.assembler = a }
}

func WithNotices(n Notices) Option {
	return func(e *Editor) { e.notices = n }
}

func WithID(id string) Option {
	return func(e *Editor) { e.id = id }
}

// Editor owns one session's state, mask history and canvas. It is the only
// place state changes, always through Reduce, and is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	id        string
	state     State
	history   *history.Log
	canvas    *canvas.Canvas
	comparing bool

	gen       Generator
	creds     Credentials
	assembler *request.Assembler
	journal   Journal
	notices   Notices
	logger    zerolog.Logger
	now       func() time.Time
}

func NewEditor(gen Generator, opts ...Option) *Editor {
	e := &Editor{
		id:      uuid.New().String(),
		state:   Initial(),
		history: history.New(),
		canvas:  canvas.New(0, 0),
		gen:     gen,
		notices: englishNotices{},
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.assembler == nil {
		e.assembler = request.New(nil, nil)
	}
	e.logger = e.logger.With().Str("session", e.id).Logger()
	return e
}

func (e *Editor) ID() string {
	return e.id
}

// State returns a copy of the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// dispatch must be called with e.mu held.
func (e *Editor) dispatch(ev Event) {
	e.state = Reduce(e.state, ev)
	e.canvas.SetEnabled(e.canDraw())
}

func (e *Editor) canDraw() bool {
	return !e.state.HasResult() && !e.state.Processing && !e.comparing
}

// SelectTier picks the backing model. PRO requires a credential: when none is
// present the host is asked for one, and the tier is refused if it still
// has none.
func (e *Editor) SelectTier(ctx context.Context, tier models.Tier) error {
	if !tier.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownTier, tier)
	}

	if tier == models.TierPro && e.creds != nil {
		ok, err := e.ensureCredential(ctx)
		if err != nil {
			return err
		}
		if !ok {
			e.mu.Lock()
			e.dispatch(NoticeSet{Notice: e.notices.CredentialRequired()})
			e.mu.Unlock()
			return ErrCredentialRequired
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch(TierSelected{Tier: tier})
	e.logger.Info().Str("tier", tier.String()).Msg("tier selected")
	return nil
}

func (e *Editor) ensureCredential(ctx context.Context) (bool, error) {
	ok, err := e.creds.HasCredential(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check credential: %w", err)
	}
	if ok {
		return true, nil
	}
	if err := e.creds.RequestCredential(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("credential request failed")
		return false, nil
	}
	ok, err = e.creds.HasCredential(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check credential: %w", err)
	}
	return ok, nil
}

// LoadScene starts a new edit on img. Everything but the tier is reset and
// the canvas is sized to the image.
func (e *Editor) LoadScene(img *models.Image) error {
	if img.Empty() {
		return models.ErrNoImageData
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Processing {
		return ErrBusy
	}

	e.comparing = false
	e.history.Reset()
	e.canvas.Clear()
	w, h := imgutil.Dimensions(img)
	if err := e.canvas.Resize(w, h); err != nil {
		return err
	}
	e.dispatch(SceneLoaded{Image: img})
	e.logger.Info().Int("width", w).Int("height", h).Msg("scene loaded")
	return nil
}

// SetReference stores or, with a nil img, removes a reference image.
func (e *Editor) SetReference(kind models.ReferenceKind, img *models.Image) error {
	if _, err := models.ParseReferenceKind(string(kind)); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch(ReferenceSet{Kind: kind, Image: img})
	return nil
}

// SetMode switches edit mode, discarding the mask, its history and any
// result. Selecting the current mode again discards them too.
func (e *Editor) SetMode(mode models.EditMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownMode, mode)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Processing {
		return ErrBusy
	}
	e.comparing = false
	e.history.Reset()
	e.canvas.Clear()
	e.dispatch(ModeChanged{Mode: mode})
	return nil
}

func (e *Editor) SetPrompt(prompt string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch(PromptChanged{Prompt: prompt})
}

// SetOrigin records where the canvas sits on screen so client coordinates
// map onto it.
func (e *Editor) SetOrigin(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.canvas.SetOrigin(x, y)
}

func (e *Editor) SetOpacity(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.SetOpacity(v)
}

// Resize re-provisions the canvas at the displayed image size.
func (e *Editor) Resize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.Resize(width, height)
}

func (e *Editor) PointerDown(p canvas.Pointer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.BeginStroke(p)
}

func (e *Editor) PointerMove(p canvas.Pointer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.ContinueStroke(p)
}

// PointerUp ends the active stroke. The new snapshot becomes the mask and
// is appended to the history. It reports whether a stroke was recorded.
func (e *Editor) PointerUp() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.canvas.EndStroke()
	if errors.Is(err, canvas.ErrNoStroke) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.history.Record(snap)
	e.dispatch(MaskChanged{Mask: snap})
	return true, nil
}

// Stroke draws a complete stroke through the given points.
func (e *Editor) Stroke(points ...canvas.Pointer) (bool, error) {
	if len(points) == 0 {
		return false, nil
	}
	if !e.PointerDown(points[0]) {
		return false, nil
	}
	for _, p := range points[1:] {
		e.PointerMove(p)
	}
	return e.PointerUp()
}

// LoadMask adopts a prepared mask image as though it had been painted. It is
// recorded in the history and sent as is; the canvas is repainted from it
// so later strokes build on top.
func (e *Editor) LoadMask(img *models.Image) error {
	if img.Empty() {
		return models.ErrNoImageData
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Processing {
		return ErrBusy
	}
	if !e.state.HasScene() {
		return ErrNoScene
	}
	if err := e.canvas.Restore(img); err != nil {
		return err
	}
	e.history.Record(img)
	e.dispatch(MaskChanged{Mask: img})
	return nil
}

// Clear erases the mask. The empty mask is recorded so it can be undone.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.canvas.Clear()
	e.history.Record(nil)
	e.dispatch(MaskChanged{})
}

func (e *Editor) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepLocked(e.history.Undo)
}

func (e *Editor) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepLocked(e.history.Redo)
}

func (e *Editor) stepLocked(step func() (*models.Image, bool)) (bool, error) {
	snap, ok := step()
	if !ok {
		return false, nil
	}
	e.dispatch(MaskChanged{Mask: snap})
	if err := e.canvas.Restore(snap); err != nil {
		return true, err
	}
	return true, nil
}

// HandleKey applies the undo/redo shortcuts. Keys are ignored while drawing
// is disabled. It reports whether the event was consumed.
func (e *Editor) HandleKey(k KeyEvent) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canDraw() {
		return false, nil
	}
	switch k.action() {
	case keyUndo:
		_, err := e.stepLocked(e.history.Undo)
		return true, err
	case keyRedo:
		_, err := e.stepLocked(e.history.Redo)
		return true, err
	default:
		return false, nil
	}
}

// SetComparing shows the original scene in place of the result while held.
func (e *Editor) SetComparing(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comparing = on
	e.canvas.SetEnabled(e.canDraw())
}

// DisplayedImage is the scene while comparing or before a result exists,
// otherwise the result.
func (e *Editor) DisplayedImage() *models.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.comparing || !e.state.HasResult() {
		return e.state.Scene
	}
	return e.state.Result
}

// Preview renders the displayed image with the mask overlay as PNG.
func (e *Editor) Preview() (*models.Image, error) {
	img := e.DisplayedImage()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvas.Composite(img)
}

func (e *Editor) DismissResult() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comparing = false
	e.dispatch(ResultDismissed{})
}

// ClearEdits returns to a clean FINISH edit of the current scene.
func (e *Editor) ClearEdits() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Processing {
		return ErrBusy
	}
	e.comparing = false
	e.history.Reset()
	e.canvas.Clear()
	e.dispatch(EditsCleared{})
	return nil
}

// Reset returns to the initial state, tier included.
func (e *Editor) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Processing {
		return ErrBusy
	}
	e.comparing = false
	e.history.Reset()
	e.canvas.Clear()
	if err := e.canvas.Resize(0, 0); err != nil {
		return err
	}
	e.dispatch(Reset{})
	return nil
}

// Generate submits the current edit. While a generation is in flight it
// returns ErrBusy without calling the service. The lock is released during
// the call; the outcome is written back as GenerationSucceeded or
// GenerationFailed and the service error, if any, is returned.
func (e *Editor) Generate(ctx context.Context) error {
	e.mu.Lock()
	if e.state.Processing {
		e.mu.Unlock()
		return ErrBusy
	}
	if !e.state.HasScene() {
		e.mu.Unlock()
		return ErrNoScene
	}
	if !e.state.Tier.IsValid() {
		e.mu.Unlock()
		return ErrNoTier
	}

	s := e.state
	in := request.Input{
		Tier:      s.Tier,
		Mode:      s.Mode,
		Prompt:    s.Prompt,
		Scene:     s.Scene,
		Mask:      s.Mask,
		Furniture: s.Furniture,
		Material:  s.Material,
		Design:    s.Design,
	}
	req, err := e.assembler.Build(in)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.dispatch(GenerationStarted{})
	e.mu.Unlock()

	started := e.now()
	log := e.logger.With().
		Str("model", req.Model).
		Str("mode", s.Mode.String()).
		Str("aspect_ratio", req.Config.AspectRatio.String()).
		Logger()
	log.Info().Int("parts", len(req.Parts)).Msg("generation started")

	result, genErr := e.gen.Edit(ctx, req)
	if genErr == nil && result.Empty() {
		genErr = provider.ErrNoImage
	}

	if provider.IsAuthError(genErr) && e.creds != nil {
		if err := e.creds.RequestCredential(ctx); err != nil {
			log.Warn().Err(err).Msg("credential request failed")
		}
	}

	e.mu.Lock()
	if genErr != nil {
		e.dispatch(GenerationFailed{Notice: e.noticeFor(genErr)})
	} else {
		e.dispatch(GenerationSucceeded{Result: result})
	}
	e.mu.Unlock()

	elapsed := e.now().Sub(started)
	if genErr != nil {
		log.Error().Err(genErr).Dur("elapsed", elapsed).Msg("generation failed")
	} else {
		log.Info().Dur("elapsed", elapsed).Int("bytes", len(result.Data)).Msg("generation complete")
	}

	if e.journal != nil {
		attempt := Attempt{
			SessionID:   e.id,
			Tier:        s.Tier,
			Model:       req.Model,
			Mode:        s.Mode,
			Prompt:      s.Prompt,
			AspectRatio: req.Config.AspectRatio,
			Width:       req.Width,
			Height:      req.Height,
			Masked:      !s.Mask.Empty(),
			Referenced:  in.Reference() != nil,
			Err:         genErr,
			Started:     started,
			Duration:    elapsed,
		}
		if err := e.journal.Record(context.WithoutCancel(ctx), attempt); err != nil {
			log.Warn().Err(err).Msg("failed to journal generation")
		}
	}

	return genErr
}

// NoticeFor renders err as the message shown to the user.
func (e *Editor) NoticeFor(err error) string {
	return e.noticeFor(err)
}

func (e *Editor) noticeFor(err error) string {
	return Notice(e.notices, err)
}

// Notice renders a generation error in the language of n. Authentication
// failures and empty results get fixed messages; anything else shows as is.
func Notice(n Notices, err error) string {
	switch {
	case err == nil:
		return ""
	case provider.IsAuthError(err):
		return n.AuthFailed()
	case errors.Is(err, provider.ErrNoImage):
		return n.NoImage()
	case err.Error() == "":
		return n.Generic()
	default:
		return err.Error()
	}
}

// View is a read-only summary of the editor for front-ends.
type View struct {
	ID           string   `json:"id"`
	State        State    `json:"state"`
	Hint         string   `json:"hint"`
	HasScene     bool     `json:"hasScene"`
	HasMask      bool     `json:"hasMask"`
	HasResult    bool     `json:"hasResult"`
	References   []string `json:"references"`
	CanDraw      bool     `json:"canDraw"`
	Comparing    bool     `json:"comparing"`
	CanUndo      bool     `json:"canUndo"`
	CanRedo      bool     `json:"canRedo"`
	HistoryLen   int      `json:"historyLen"`
	Cursor       int      `json:"cursor"`
	Opacity      float64  `json:"opacity"`
	CanvasWidth  int      `json:"canvasWidth"`
	CanvasHeight int      `json:"canvasHeight"`
}

func (e *Editor) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	var refs []string
	for _, kind := range models.ReferenceKinds() {
		if !e.state.Reference(kind).Empty() {
			refs = append(refs, string(kind))
		}
	}
	w, h := e.canvas.Size()
	return View{
		ID:           e.id,
		State:        e.state,
		Hint:         e.notices.Hint(e.state.Mode),
		HasScene:     e.state.HasScene(),
		HasMask:      !e.state.Mask.Empty(),
		HasResult:    e.state.HasResult(),
		References:   refs,
		CanDraw:      e.canDraw(),
		Comparing:    e.comparing,
		CanUndo:      e.history.CanUndo(),
		CanRedo:      e.history.CanRedo(),
		HistoryLen:   e.history.Len(),
		Cursor:       e.history.Cursor(),
		Opacity:      e.canvas.Opacity(),
		CanvasWidth:  w,
		CanvasHeight: h,
	}
}
