package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	imgpkg "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/pkg/models"
)

type Displayer struct {
	out  io.Writer
	cols int // terminal width in cells, 0 when out is not a terminal
}

func New(out io.Writer) *Displayer {
	d := &Displayer{out: out}
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			d.cols = w
		}
	}
	return d
}

// Display draws img inline. The graphics protocol only takes PNG, so other
// formats are transcoded first.
func (d *Displayer) Display(img *models.Image) error {
	return d.display(img, 0)
}

func (d *Displayer) display(img *models.Image, cols int) error {
	if img.Empty() {
		return fmt.Errorf("image has no data")
	}

	png, err := imgpkg.ToPNG(img)
	if err != nil {
		return err
	}

	if err := writeKitty(d.out, png.Data, cols); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

// DisplayAll draws each non-empty image in order. With more than one image
// and a known terminal width, every image is drawn at half that width so a
// scene and its result line up at the same scale.
func (d *Displayer) DisplayAll(imgs ...*models.Image) error {
	n := 0
	for _, img := range imgs {
		if !img.Empty() {
			n++
		}
	}
	cols := 0
	if n > 1 && d.cols > 1 {
		cols = d.cols / 2
	}

	for i, img := range imgs {
		if img.Empty() {
			continue
		}
		if err := d.display(img, cols); err != nil {
			return fmt.Errorf("failed to display image %d: %w", i, err)
		}
	}
	return nil
}

func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	supportedPrograms := []string{"kitty", "ghostty", "iterm.app", "wezterm"}

	for _, prog := range supportedPrograms {
		if termProgram == prog {
			return true
		}
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	if os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
