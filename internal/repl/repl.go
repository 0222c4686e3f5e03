package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/manash/roomedit/internal/display"
	"github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/journal"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

type REPL struct {
	in        *bufio.Reader
	out       io.Writer
	err       io.Writer
	editor    *session.Editor
	journal   *journal.Store
	checker   provider.Checker
	registry  *models.ModelRegistry
	displayer *display.Displayer
	saver     *image.Saver
	maxUpload int64
	preview   bool
	commands  map[string]Command
	order     []Command
	running   bool
}

type Config struct {
	// In is read line by line. Pass a *bufio.Reader to share buffered input
	// with anything else that prompts mid-command.
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Editor *session.Editor
	// Journal is optional; history and cost need it.
	Journal   *journal.Store
	Checker   provider.Checker
	Registry  *models.ModelRegistry
	Displayer *display.Displayer
	Saver     *image.Saver
	MaxUpload int64
	// Preview draws the result inline after every successful generation.
	Preview bool
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:        lineReader(cfg.In),
		out:       cfg.Out,
		err:       cfg.Err,
		editor:    cfg.Editor,
		journal:   cfg.Journal,
		checker:   cfg.Checker,
		registry:  cfg.Registry,
		displayer: cfg.Displayer,
		saver:     cfg.Saver,
		maxUpload: cfg.MaxUpload,
		preview:   cfg.Preview,
		commands:  make(map[string]Command),
	}
	if r.registry == nil {
		r.registry = models.DefaultRegistry()
	}
	if r.saver == nil {
		r.saver = image.NewSaver()
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	for r.running {
		r.printPrompt()
		raw, err := r.in.ReadString('\n')
		if err != nil && (err != io.EOF || raw == "") {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line := strings.TrimSpace(raw)
		if line != "" {
			if err := r.execute(ctx, line); err != nil {
				fmt.Fprintf(r.err, "%s %v\n", color.RedString("Error:"), err)
			}
		}
		if err == io.EOF {
			return nil
		}
	}

	return nil
}

func lineReader(in io.Reader) *bufio.Reader {
	if br, ok := in.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(in)
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, color.CyanString("roomedit interactive mode"))
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	s := r.editor.State()
	tier := "no tier"
	if s.Tier.IsValid() {
		tier = s.Tier.String()
	}
	switch {
	case s.Processing:
		fmt.Fprintf(r.out, "roomedit [%s|%s] (working)> ", tier, s.Mode)
	case s.HasResult():
		fmt.Fprintf(r.out, "roomedit [%s|%s] (result)> ", tier, s.Mode)
	default:
		fmt.Fprintf(r.out, "roomedit [%s|%s]> ", tier, s.Mode)
	}
}

func (r *REPL) success(format string, args ...any) {
	fmt.Fprintln(r.out, color.GreenString(format, args...))
}

func (r *REPL) warn(format string, args ...any) {
	fmt.Fprintln(r.out, color.YellowString(format, args...))
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
