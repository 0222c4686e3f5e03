package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/manash/roomedit/internal/canvas"
	"github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/journal"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/security"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

var (
	errNoJournal  = errors.New("journal is disabled (set ROOMEDIT_JOURNAL to enable it)")
	errNoDisplay  = errors.New("inline display is not available in this terminal")
	errNoResult   = errors.New("no result to save")
	errBadPoint   = errors.New("points are written x,y")
	errNoImageFor = errors.New("nothing to show")
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	r.order = []Command{
		&LoadCommand{},
		&TierCommand{},
		&ModeCommand{},
		&RefCommand{},
		&PromptCommand{},
		&StrokeCommand{},
		&PointerCommand{},
		&UndoCommand{},
		&RedoCommand{},
		&KeyCommand{},
		&ClearCommand{},
		&OpacityCommand{},
		&ResizeCommand{},
		&OriginCommand{},
		&GenerateCommand{},
		&CompareCommand{},
		&ShowCommand{},
		&SaveCommand{},
		&DismissCommand{},
		&ClearAllCommand{},
		&ResetCommand{},
		&StatusCommand{},
		&HistoryCommand{},
		&CheckCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range r.order {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// LoadCommand opens a scene image from disk
type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Aliases() []string   { return []string{"open", "o"} }
func (c *LoadCommand) Description() string { return "Load the room photo to edit" }
func (c *LoadCommand) Usage() string       { return "load <path>" }

func (c *LoadCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := image.Load(args[0], r.maxUpload)
	if err != nil {
		return err
	}
	if err := r.editor.LoadScene(img); err != nil {
		return err
	}

	w, h := image.Dimensions(img)
	r.success("Loaded %s (%dx%d, %s)", args[0], w, h, image.ClassifyAspectRatio(w, h))
	return nil
}

// TierCommand gets or sets the model tier
type TierCommand struct{}

func (c *TierCommand) Name() string        { return "tier" }
func (c *TierCommand) Aliases() []string   { return []string{"t"} }
func (c *TierCommand) Description() string { return "Get or set the model tier" }
func (c *TierCommand) Usage() string       { return "tier [FREE|PRO]" }

func (c *TierCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		tier := r.editor.State().Tier
		if !tier.IsValid() {
			fmt.Fprintln(r.out, "No tier selected.")
		} else if cap, err := r.registry.ForTier(tier); err == nil {
			fmt.Fprintf(r.out, "Current tier: %s (%s)\n", tier, cap.Name)
		}
		fmt.Fprintf(r.out, "Available: %v\n", models.ValidTiers())
		return nil
	}

	tier, err := models.ParseTier(args[0])
	if err != nil {
		return err
	}
	if err := r.editor.SelectTier(ctx, tier); err != nil {
		if notice := r.editor.State().Notice; notice != "" && errors.Is(err, session.ErrCredentialRequired) {
			r.warn("%s", notice)
		}
		return err
	}

	cap, err := r.registry.ForTier(tier)
	if err != nil {
		return err
	}
	r.success("Tier set to %s (%s)", tier, cap.Name)
	return nil
}

// ModeCommand gets or sets the edit mode
type ModeCommand struct{}

func (c *ModeCommand) Name() string        { return "mode" }
func (c *ModeCommand) Aliases() []string   { return []string{"m"} }
func (c *ModeCommand) Description() string { return "Get or set the edit mode" }
func (c *ModeCommand) Usage() string       { return "mode [FINISH|ERASE|FURNITURE|DESIGN]" }

func (c *ModeCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		v := r.editor.Snapshot()
		fmt.Fprintf(r.out, "Current mode: %s\n", v.State.Mode)
		fmt.Fprintf(r.out, "  %s\n", v.Hint)
		fmt.Fprintf(r.out, "Available: %v\n", models.EditModes())
		return nil
	}

	mode, err := models.ParseEditMode(args[0])
	if err != nil {
		return err
	}
	if err := r.editor.SetMode(mode); err != nil {
		return err
	}

	r.success("Mode set to %s", mode)
	fmt.Fprintf(r.out, "  %s\n", r.editor.Snapshot().Hint)
	return nil
}

// RefCommand attaches or removes a reference image
type RefCommand struct{}

func (c *RefCommand) Name() string        { return "ref" }
func (c *RefCommand) Aliases() []string   { return []string{"reference"} }
func (c *RefCommand) Description() string { return "Attach or remove a reference image" }
func (c *RefCommand) Usage() string       { return "ref <furniture|material|design> <path|none>" }

func (c *RefCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	kind, err := models.ParseReferenceKind(args[0])
	if err != nil {
		return err
	}

	if strings.EqualFold(args[1], "none") {
		if err := r.editor.SetReference(kind, nil); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Removed %s reference.\n", kind)
		return nil
	}

	img, err := image.Load(args[1], r.maxUpload)
	if err != nil {
		return err
	}
	if err := r.editor.SetReference(kind, img); err != nil {
		return err
	}

	r.success("Attached %s reference: %s", kind, args[1])
	if want, ok := r.editor.State().Mode.ReferenceKind(); !ok || want != kind {
		r.warn("The current mode does not use a %s reference.", kind)
	}
	return nil
}

// PromptCommand gets or sets the free-text instruction
type PromptCommand struct{}

func (c *PromptCommand) Name() string        { return "prompt" }
func (c *PromptCommand) Aliases() []string   { return []string{"p"} }
func (c *PromptCommand) Description() string { return "Get, set or clear ('-') the prompt" }
func (c *PromptCommand) Usage() string       { return "prompt [text|-]" }

func (c *PromptCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		prompt := r.editor.State().Prompt
		if prompt == "" {
			fmt.Fprintln(r.out, "No prompt set.")
		} else {
			fmt.Fprintf(r.out, "Prompt: %q\n", prompt)
		}
		return nil
	}

	if len(args) == 1 && args[0] == "-" {
		r.editor.SetPrompt("")
		fmt.Fprintln(r.out, "Prompt cleared.")
		return nil
	}

	r.editor.SetPrompt(strings.Join(args, " "))
	return nil
}

// StrokeCommand paints a whole stroke through the given points
type StrokeCommand struct{}

func (c *StrokeCommand) Name() string        { return "stroke" }
func (c *StrokeCommand) Aliases() []string   { return []string{"paint", "draw"} }
func (c *StrokeCommand) Description() string { return "Paint a stroke through canvas points" }
func (c *StrokeCommand) Usage() string       { return "stroke x,y [x,y ...]" }

func (c *StrokeCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	points := make([]canvas.Pointer, 0, len(args))
	for _, arg := range args {
		p, err := parsePoint(arg)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	recorded, err := r.editor.Stroke(points...)
	if err != nil {
		return err
	}
	if !recorded {
		r.warn("Drawing is disabled right now.")
		return nil
	}
	fmt.Fprintf(r.out, "Stroke recorded (%d point(s)).\n", len(points))
	return nil
}

// PointerCommand feeds raw pointer events to the canvas
type PointerCommand struct{}

func (c *PointerCommand) Name() string        { return "pointer" }
func (c *PointerCommand) Aliases() []string   { return []string{"ptr"} }
func (c *PointerCommand) Description() string { return "Send a single pointer event" }
func (c *PointerCommand) Usage() string       { return "pointer <down x y|move x y|up|leave>" }

func (c *PointerCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch strings.ToLower(args[0]) {
	case "down", "move":
		if len(args) != 3 {
			return fmt.Errorf("usage: %s", c.Usage())
		}
		p, err := parsePoint(args[1] + "," + args[2])
		if err != nil {
			return err
		}
		var ok bool
		if strings.EqualFold(args[0], "down") {
			ok = r.editor.PointerDown(p)
		} else {
			ok = r.editor.PointerMove(p)
		}
		if !ok {
			r.warn("Pointer ignored.")
		}
		return nil
	case "up", "leave":
		recorded, err := r.editor.PointerUp()
		if err != nil {
			return err
		}
		if recorded {
			fmt.Fprintln(r.out, "Stroke recorded.")
		}
		return nil
	default:
		return fmt.Errorf("unknown pointer event: %s\nUsage: %s", args[0], c.Usage())
	}
}

// UndoCommand steps the mask history back
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u"} }
func (c *UndoCommand) Description() string { return "Undo the last mask change" }
func (c *UndoCommand) Usage() string       { return "undo" }

func (c *UndoCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	return r.step("Undo", r.editor.Undo)
}

// RedoCommand steps the mask history forward
type RedoCommand struct{}

func (c *RedoCommand) Name() string        { return "redo" }
func (c *RedoCommand) Aliases() []string   { return nil }
func (c *RedoCommand) Description() string { return "Redo an undone mask change" }
func (c *RedoCommand) Usage() string       { return "redo" }

func (c *RedoCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	return r.step("Redo", r.editor.Redo)
}

func (r *REPL) step(name string, fn func() (bool, error)) error {
	moved, err := fn()
	if err != nil {
		return err
	}
	if !moved {
		fmt.Fprintf(r.out, "Nothing to %s.\n", strings.ToLower(name))
		return nil
	}
	v := r.editor.Snapshot()
	fmt.Fprintf(r.out, "%s: mask step %d of %d\n", name, v.Cursor+1, v.HistoryLen)
	return nil
}

// KeyCommand replays a keyboard shortcut
type KeyCommand struct{}

func (c *KeyCommand) Name() string        { return "key" }
func (c *KeyCommand) Aliases() []string   { return nil }
func (c *KeyCommand) Description() string { return "Send a keyboard shortcut such as ctrl+z" }
func (c *KeyCommand) Usage() string       { return "key <chord>" }

func (c *KeyCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	consumed, err := r.editor.HandleKey(session.ParseKey(args[0]))
	if err != nil {
		return err
	}
	if !consumed {
		fmt.Fprintln(r.out, "Key ignored.")
	}
	return nil
}

// ClearCommand erases the mask
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Aliases() []string   { return []string{"c"} }
func (c *ClearCommand) Description() string { return "Erase the mask (undoable)" }
func (c *ClearCommand) Usage() string       { return "clear" }

func (c *ClearCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.editor.Clear()
	fmt.Fprintln(r.out, "Mask cleared.")
	return nil
}

// OpacityCommand gets or sets the mask overlay opacity
type OpacityCommand struct{}

func (c *OpacityCommand) Name() string        { return "opacity" }
func (c *OpacityCommand) Aliases() []string   { return nil }
func (c *OpacityCommand) Description() string { return "Get or set the mask overlay opacity (0.1-1.0)" }
func (c *OpacityCommand) Usage() string       { return "opacity [value]" }

func (c *OpacityCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Opacity: %.2f\n", r.editor.Snapshot().Opacity)
		return nil
	}

	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid opacity %q: %w", args[0], err)
	}
	fmt.Fprintf(r.out, "Opacity: %.2f\n", r.editor.SetOpacity(v))
	return nil
}

// ResizeCommand re-provisions the canvas
type ResizeCommand struct{}

func (c *ResizeCommand) Name() string        { return "resize" }
func (c *ResizeCommand) Aliases() []string   { return nil }
func (c *ResizeCommand) Description() string { return "Resize the drawing surface, keeping the mask" }
func (c *ResizeCommand) Usage() string       { return "resize <width> <height>" }

func (c *ResizeCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	w, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[0], err)
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[1], err)
	}
	if err := r.editor.Resize(w, h); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Canvas is %dx%d.\n", w, h)
	return nil
}

// OriginCommand sets where the canvas sits in client coordinates
type OriginCommand struct{}

func (c *OriginCommand) Name() string        { return "origin" }
func (c *OriginCommand) Aliases() []string   { return nil }
func (c *OriginCommand) Description() string { return "Set the canvas origin for pointer coordinates" }
func (c *OriginCommand) Usage() string       { return "origin <x> <y>" }

func (c *OriginCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	p, err := parsePoint(args[0] + "," + args[1])
	if err != nil {
		return err
	}
	r.editor.SetOrigin(p.ClientX, p.ClientY)
	return nil
}

// GenerateCommand submits the edit
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate the edit" }
func (c *GenerateCommand) Usage() string       { return "generate [prompt]" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		r.editor.SetPrompt(strings.Join(args, " "))
	}

	s := r.editor.State()
	if cap, err := r.registry.ForTier(s.Tier); err == nil {
		fmt.Fprintf(r.out, "Generating %s edit with %s...\n", s.Mode, cap.Name)
	}

	start := time.Now()
	if err := r.editor.Generate(ctx); err != nil {
		if notice := r.editor.NoticeFor(err); notice != err.Error() {
			fmt.Fprintln(r.err, color.RedString("%s", notice))
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	result := r.editor.State().Result
	w, h := image.Dimensions(result)
	r.success("Result ready: %dx%d %s in %s", w, h, result.MIMEType, time.Since(start).Round(time.Millisecond))

	if r.preview && r.displayer != nil {
		if err := r.displayer.Display(result); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display image: %v\n", err)
		}
	}
	return nil
}

// CompareCommand toggles the before/after view
type CompareCommand struct{}

func (c *CompareCommand) Name() string        { return "compare" }
func (c *CompareCommand) Aliases() []string   { return []string{"cmp"} }
func (c *CompareCommand) Description() string { return "Show the original instead of the result" }
func (c *CompareCommand) Usage() string       { return "compare <on|off>" }

func (c *CompareCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r.editor.SetComparing(true)
		fmt.Fprintln(r.out, "Showing original.")
	case "off":
		r.editor.SetComparing(false)
		fmt.Fprintln(r.out, "Showing result.")
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
	return nil
}

// ShowCommand draws an image inline
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display an image of the session" }
func (c *ShowCommand) Usage() string       { return "show [scene|result|mask|preview|both]" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if r.displayer == nil {
		return errNoDisplay
	}

	what := "displayed"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}

	var img *models.Image
	s := r.editor.State()
	switch what {
	case "displayed":
		img = r.editor.DisplayedImage()
	case "scene":
		img = s.Scene
	case "result":
		img = s.Result
	case "mask":
		img = s.Mask
	case "preview":
		var err error
		if img, err = r.editor.Preview(); err != nil {
			return err
		}
	case "both":
		if s.Scene.Empty() || s.Result.Empty() {
			return fmt.Errorf("%w: both", errNoImageFor)
		}
		return r.displayer.DisplayAll(s.Scene, s.Result)
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if img.Empty() {
		return fmt.Errorf("%w: %s", errNoImageFor, what)
	}
	return r.displayer.Display(img)
}

// SaveCommand exports the result
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save the result to a file" }
func (c *SaveCommand) Usage() string       { return "save [filename]" }

func (c *SaveCommand) Execute(_ context.Context, r *REPL, args []string) error {
	result := r.editor.State().Result
	if result.Empty() {
		return errNoResult
	}

	var path string
	if len(args) > 0 {
		path = args[0]
		if err := security.ValidateSavePath(path); err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	written, err := r.saver.SaveResult(result, path)
	if err != nil {
		return err
	}
	r.success("Saved to: %s", written)
	return nil
}

// DismissCommand drops the result and returns to editing
type DismissCommand struct{}

func (c *DismissCommand) Name() string        { return "dismiss" }
func (c *DismissCommand) Aliases() []string   { return []string{"back"} }
func (c *DismissCommand) Description() string { return "Discard the result and keep editing" }
func (c *DismissCommand) Usage() string       { return "dismiss" }

func (c *DismissCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.editor.DismissResult()
	fmt.Fprintln(r.out, "Result dismissed.")
	return nil
}

// ClearAllCommand resets the edit but keeps the scene
type ClearAllCommand struct{}

func (c *ClearAllCommand) Name() string        { return "clearall" }
func (c *ClearAllCommand) Aliases() []string   { return []string{"restart"} }
func (c *ClearAllCommand) Description() string { return "Clear mask, references, prompt and result" }
func (c *ClearAllCommand) Usage() string       { return "clearall" }

func (c *ClearAllCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if err := r.editor.ClearEdits(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Edits cleared.")
	return nil
}

// ResetCommand starts over from nothing
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return nil }
func (c *ResetCommand) Description() string { return "Start over, tier and scene included" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if err := r.editor.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Session reset.")
	return nil
}

// StatusCommand summarizes the session
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st", "info"} }
func (c *StatusCommand) Description() string { return "Show the session state" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	v := r.editor.Snapshot()
	s := v.State

	tier := "none"
	if s.Tier.IsValid() {
		tier = s.Tier.String()
	}
	scene := "none"
	if v.HasScene {
		w, h := image.Dimensions(s.Scene)
		scene = fmt.Sprintf("%dx%d %s", w, h, image.ClassifyAspectRatio(w, h))
	}
	refs := "none"
	if len(v.References) > 0 {
		refs = strings.Join(v.References, ", ")
	}

	fmt.Fprintf(r.out, "Session:    %s\n", v.ID)
	fmt.Fprintf(r.out, "Tier:       %s\n", tier)
	fmt.Fprintf(r.out, "Mode:       %s\n", s.Mode)
	fmt.Fprintf(r.out, "Scene:      %s\n", scene)
	fmt.Fprintf(r.out, "References: %s\n", refs)
	fmt.Fprintf(r.out, "Prompt:     %q\n", truncate(s.Prompt, 60))
	fmt.Fprintf(r.out, "Mask:       %v (step %d of %d)\n", v.HasMask, v.Cursor+1, v.HistoryLen)
	fmt.Fprintf(r.out, "Canvas:     %dx%d, opacity %.2f\n", v.CanvasWidth, v.CanvasHeight, v.Opacity)
	fmt.Fprintf(r.out, "Result:     %v\n", v.HasResult)
	fmt.Fprintf(r.out, "Hint:       %s\n", v.Hint)
	if s.Notice != "" {
		fmt.Fprintf(r.out, "Notice:     %s\n", color.RedString("%s", s.Notice))
	}
	return nil
}

// HistoryCommand lists this session's journaled generations
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show generations in this session" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.journal == nil {
		return errNoJournal
	}

	gens, err := r.journal.ListGenerations(ctx, r.editor.ID())
	if err != nil {
		return err
	}
	if len(gens) == 0 {
		fmt.Fprintln(r.out, "No generations in this session yet.")
		return nil
	}

	fmt.Fprintln(r.out, "Generations:")
	for i, g := range gens {
		status := color.GreenString("%s", g.Status)
		if g.Status != journal.StatusSucceeded {
			status = color.RedString("%s", g.Status)
		}
		fmt.Fprintf(r.out, "  [%d] %s %s %s %s: %q\n",
			i+1,
			g.Timestamp.Format("15:04:05"),
			g.Tier,
			g.Mode,
			status,
			truncate(g.Prompt, 40),
		)
	}
	return nil
}

// CheckCommand runs the connection test
type CheckCommand struct{}

func (c *CheckCommand) Name() string        { return "check" }
func (c *CheckCommand) Aliases() []string   { return []string{"ping"} }
func (c *CheckCommand) Description() string { return "Verify the API key against the tier's model" }
func (c *CheckCommand) Usage() string       { return "check" }

func (c *CheckCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.checker == nil {
		return provider.ErrCheckNotSupported
	}

	tier := r.editor.State().Tier
	if !tier.IsValid() {
		tier = models.TierFree
	}
	cap, err := r.registry.ForTier(tier)
	if err != nil {
		return err
	}

	if err := r.checker.Check(ctx, cap.Name); err != nil {
		fmt.Fprintln(r.err, color.RedString("%s", r.editor.NoticeFor(err)))
		return fmt.Errorf("connection check failed: %w", err)
	}
	r.success("Connection OK (%s)", cap.Name)
	return nil
}

// CostCommand displays cost information
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "View cost summary" }
func (c *CostCommand) Usage() string       { return "cost <today|week|month|total|model|session>" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.journal == nil {
		return errNoJournal
	}
	if len(args) == 0 {
		return c.showTotal(ctx, r)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := midnight.Add(24 * time.Hour)

	subCmd := strings.ToLower(args[0])
	switch subCmd {
	case "today":
		return c.showRange(ctx, r, midnight, tomorrow, "Today's cost", "No costs recorded today.")
	case "week":
		return c.showRange(ctx, r, midnight.Add(-6*24*time.Hour), tomorrow, "Last 7 days cost", "No costs recorded in the last 7 days.")
	case "month":
		return c.showRange(ctx, r, midnight.Add(-29*24*time.Hour), tomorrow, "Last 30 days cost", "No costs recorded in the last 30 days.")
	case "total":
		return c.showTotal(ctx, r)
	case "model":
		return c.showByModel(ctx, r)
	case "session":
		return c.showSession(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", subCmd, c.Usage())
	}
}

func (c *CostCommand) showRange(ctx context.Context, r *REPL, start, end time.Time, label, empty string) error {
	summary, err := r.journal.GetCostByDateRange(ctx, start, end)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, empty)
		return nil
	}

	fmt.Fprintf(r.out, "%s: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showTotal(ctx context.Context, r *REPL) error {
	summary, err := r.journal.GetTotalCost(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "Total cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showByModel(ctx context.Context, r *REPL) error {
	summaries, err := r.journal.GetCostByModel(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-28s  %-8s  %s\n", "Model", "Images", "Cost")
	fmt.Fprintln(r.out, strings.Repeat("-", 51))

	var totalCost float64
	var totalImages int
	for _, ms := range summaries {
		fmt.Fprintf(r.out, "%-28s  %-8d  $%.4f\n", ms.Model, ms.ImageCount, ms.TotalCost)
		totalCost += ms.TotalCost
		totalImages += ms.ImageCount
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 51))
	fmt.Fprintf(r.out, "%-28s  %-8d  $%.4f\n", "Total", totalImages, totalCost)

	return nil
}

func (c *CostCommand) showSession(ctx context.Context, r *REPL) error {
	summary, err := r.journal.GetSessionCost(ctx, r.editor.ID())
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs in current session.")
		return nil
	}

	fmt.Fprintf(r.out, "Session cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range r.order {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-22s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "  %22sUsage: %s\n", "", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

// parsePoint reads "x,y" as a mouse position in client coordinates.
func parsePoint(s string) (canvas.Pointer, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return canvas.Pointer{}, fmt.Errorf("%w: %q", errBadPoint, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return canvas.Pointer{}, fmt.Errorf("%w: %q", errBadPoint, s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return canvas.Pointer{}, fmt.Errorf("%w: %q", errBadPoint, s)
	}
	return canvas.Mouse(x, y), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
