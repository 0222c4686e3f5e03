package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/manash/roomedit/internal/batch"
	"github.com/manash/roomedit/internal/config"
	"github.com/manash/roomedit/internal/display"
	"github.com/manash/roomedit/internal/i18n"
	"github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/journal"
	"github.com/manash/roomedit/internal/keys"
	"github.com/manash/roomedit/internal/logging"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/provider/gemini"
	"github.com/manash/roomedit/internal/repl"
	"github.com/manash/roomedit/internal/server"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAPIKey  string
	flagVerbose bool
	flagLocale  string
	flagJournal string
	flagTier    string
	flagScene   string
	flagShow    bool
)

// Generator is the generation service as the commands use it: edits plus
// the credential connection test.
type Generator interface {
	session.Generator
	provider.Checker
}

type App struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Registry *models.ModelRegistry

	LoadConfig   func() (*config.Config, error)
	NewKeyStore  func() (*keys.Store, error)
	NewGenerator func(cfg *provider.Config, registry *models.ModelRegistry, logger zerolog.Logger) (Generator, error)
	NewSaver     func() *image.Saver
	NewDisplayer func(out io.Writer) *display.Displayer
	// Serve runs the HTTP API until ctx ends.
	Serve func(ctx context.Context, srv *server.Server, addr string) error
}

func DefaultApp() *App {
	return &App{
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		Registry:     models.DefaultRegistry(),
		LoadConfig:   config.Load,
		NewKeyStore:  keys.NewStore,
		NewGenerator: newGeminiGenerator,
		NewSaver:     image.NewSaver,
		NewDisplayer: display.New,
		Serve: func(ctx context.Context, srv *server.Server, addr string) error {
			return srv.ListenAndServe(ctx, addr)
		},
	}
}

// newGeminiGenerator routes every registered model through a provider
// factory backed by the Gemini client.
func newGeminiGenerator(cfg *provider.Config, registry *models.ModelRegistry, logger zerolog.Logger) (Generator, error) {
	p, err := gemini.New(cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	factory := provider.NewFactory(registry)
	factory.Register(p)
	return factory, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roomedit",
		Short: "Edit room photos with Gemini image models",
		Long: `roomedit repaints parts of a room photo with a generative image model.

Load a photo, paint a mask over the area to change, pick an edit mode and
generate:

  FINISH     swap the material of the masked area (floor, wall, counter)
  ERASE      remove the masked objects
  FURNITURE  place furniture, optionally from a reference photo
  DESIGN     restyle the masked area or the whole room

Without a subcommand roomedit starts the interactive editor.

Examples:
  roomedit --tier FREE --scene living-room.jpg
  roomedit edit kitchen.jpg "white marble counters" --mask counters.png
  roomedit batch jobs.json -d out/
  roomedit serve --addr :8080`,
		Args:          cobra.NoArgs,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, app)
		},
	}
	cmd.SetIn(app.In)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagAPIKey, "api-key", "", "Gemini API key (defaults to the stored key, then GEMINI_API_KEY)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging, including request bodies")
	pf.StringVar(&flagLocale, "locale", "", "language for notices (en, ko); defaults to ROOMEDIT_LOCALE")
	pf.StringVar(&flagJournal, "journal", "", "journal database path, or 1 for the default; defaults to ROOMEDIT_JOURNAL")

	cmd.Flags().StringVarP(&flagTier, "tier", "t", "", "tier to start with (FREE, PRO)")
	cmd.Flags().StringVarP(&flagScene, "scene", "s", "", "room photo to load on start")
	cmd.Flags().BoolVar(&flagShow, "show", false, "draw each result inline (kitty graphics protocol)")

	cmd.AddCommand(
		newEditCmd(app),
		newBatchCmd(app),
		newServeCmd(app),
		newKeysCmd(app),
		newJournalCmd(app),
	)

	return cmd
}

// env is everything a command needs, built from config and flags.
type env struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *keys.Store
	prompter *keys.Prompter
	gen      Generator
	journal  *journal.Store
	notices  *i18n.Notices
}

// recorder returns the journal as a session.Journal, nil when disabled.
func (e *env) recorder(registry *models.ModelRegistry) session.Journal {
	if e.journal == nil {
		return nil
	}
	return journal.NewRecorder(e.journal, registry)
}

// batchOptions wires a batch processor the way editor wires a session.
func (e *env) batchOptions(registry *models.ModelRegistry) []batch.Option {
	opts := []batch.Option{
		batch.WithLogger(e.logger),
		batch.WithCredentials(e.prompter),
		batch.WithNotices(e.notices),
	}
	if j := e.recorder(registry); j != nil {
		opts = append(opts, batch.WithJournal(j))
	}
	return opts
}

func (e *env) Close() {
	if e.journal != nil {
		e.journal.Close()
	}
}

// setup loads configuration and wires the generator. A nil in makes the
// credential static: nothing is ever prompted for.
func (app *App) setup(in io.Reader, quiet bool) (*env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if flagLocale != "" {
		cfg.Locale = flagLocale
	}
	if flagJournal != "" {
		cfg.Journal = flagJournal
	}

	logger := logging.New(cfg.Env, flagVerbose, app.Err)
	if quiet && !flagVerbose && !cfg.Development() {
		logger = logger.Level(zerolog.WarnLevel)
	}

	store, err := app.NewKeyStore()
	if err != nil {
		logger.Warn().Err(err).Msg("key store unavailable; using flag and environment only")
		store = nil
	}

	explicit := flagAPIKey
	if explicit == "" {
		explicit = cfg.GeminiAPIKey
	}
	prompter := keys.NewPrompter(store, explicit, in, app.Err)
	prompter.Persist = in != nil

	gen, err := app.NewGenerator(&provider.Config{
		Key:     prompter.Key,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.HTTPTimeout,
		Verbose: flagVerbose,
	}, app.Registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	e := &env{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		prompter: prompter,
		gen:      gen,
		notices:  i18n.ForLocale(cfg.Locale),
	}

	if enabled, useDefault := cfg.JournalEnabled(); enabled {
		var js *journal.Store
		if useDefault {
			js, err = journal.NewStore()
		} else {
			js, err = journal.NewStoreWithPath(cfg.Journal)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		e.journal = js
	}

	return e, nil
}

func (e *env) editor(registry *models.ModelRegistry) *session.Editor {
	opts := []session.Option{
		session.WithCredentials(e.prompter),
		session.WithLogger(e.logger),
		session.WithNotices(e.notices),
	}
	if j := e.recorder(registry); j != nil {
		opts = append(opts, session.WithJournal(j))
	}
	return session.NewEditor(e.gen, opts...)
}

func runInteractive(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()

	e, err := app.setup(app.In, true)
	if err != nil {
		return err
	}
	defer e.Close()

	// The REPL and the key prompt read the same input.
	lines := bufio.NewReader(app.In)
	e.prompter.Lines = lines

	editor := e.editor(app.Registry)

	if flagTier != "" {
		tier, err := models.ParseTier(flagTier)
		if err != nil {
			return err
		}
		if err := editor.SelectTier(ctx, tier); err != nil {
			return err
		}
	}
	if flagScene != "" {
		img, err := image.Load(flagScene, e.cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		if err := editor.LoadScene(img); err != nil {
			return err
		}
	}

	var displayer *display.Displayer
	if flagShow || display.IsTerminalSupported() {
		displayer = app.NewDisplayer(app.Out)
	}

	r := repl.New(&repl.Config{
		In:        lines,
		Out:       app.Out,
		Err:       app.Err,
		Editor:    editor,
		Journal:   e.journal,
		Checker:   e.gen,
		Registry:  app.Registry,
		Displayer: displayer,
		Saver:     app.NewSaver(),
		MaxUpload: e.cfg.MaxUploadBytes,
		Preview:   flagShow,
	})
	return r.Run(ctx)
}
