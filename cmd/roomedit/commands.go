package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/roomedit/internal/batch"
	"github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/keys"
	"github.com/manash/roomedit/internal/server"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

var (
	flagJobTier     string
	flagCheckTier   string
	flagMode        string
	flagMask        string
	flagRef         string
	flagOutput      string
	flagOutputDir   string
	flagParallel    int
	flagStopOnError bool
	flagDelay       int
	flagAddr        string
	flagShowResult  bool
)

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <scene> [prompt]",
		Short: "Run one edit and save the result",
		Long: `Run one edit against a room photo and save the result.

The mask is a PNG the size of the scene whose opaque pixels mark the area
to change. The reference photo is used as the furniture, material or design
reference, whichever the mode takes.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args, app)
		},
	}
	cmd.Flags().StringVarP(&flagMode, "mode", "m", "FINISH", "edit mode (FINISH, ERASE, FURNITURE, DESIGN)")
	cmd.Flags().StringVarP(&flagJobTier, "tier", "t", "FREE", "tier (FREE, PRO)")
	cmd.Flags().StringVar(&flagMask, "mask", "", "mask image")
	cmd.Flags().StringVar(&flagRef, "ref", "", "reference image")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().BoolVar(&flagShowResult, "show", false, "draw the result inline (kitty graphics protocol)")
	return cmd
}

func runEdit(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

	mode, err := models.ParseEditMode(flagMode)
	if err != nil {
		return err
	}
	tier, err := models.ParseTier(flagJobTier)
	if err != nil {
		return err
	}

	item := batch.Item{
		Index:     1,
		Scene:     args[0],
		Mode:      mode,
		Tier:      tier,
		Mask:      flagMask,
		Reference: flagRef,
	}
	if len(args) > 1 {
		item.Prompt = args[1]
	}

	outputDir := "."
	if flagOutput != "" {
		outputDir = filepath.Dir(flagOutput)
		item.Output = filepath.Base(flagOutput)
	}

	e, err := app.setup(nil, false)
	if err != nil {
		return err
	}
	defer e.Close()

	processor := batch.NewProcessor(e.gen, app.NewSaver(), app.Registry, app.Out, app.Err, e.batchOptions(app.Registry)...)

	results, err := processor.Process(ctx, []batch.Item{item}, &batch.Options{
		OutputDir:   outputDir,
		DefaultTier: tier,
		DefaultMode: mode,
		MaxUpload:   e.cfg.MaxUploadBytes,
	})
	if err != nil {
		return err
	}
	res := results[0]
	if res.Error != nil {
		return res.Error
	}

	if flagShowResult {
		img, err := image.Load(res.Path, 0)
		if err != nil {
			return err
		}
		if err := app.NewDisplayer(app.Out).Display(img); err != nil {
			return err
		}
	}
	fmt.Fprintln(app.Out, "Done!")
	return nil
}

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <manifest>",
		Short: "Run every edit in a manifest",
		Long: `Run every edit in a manifest file.

Text manifests hold one job per line: the scene path, an optional mode and
the prompt.

  living-room.png FURNITURE add a grey sofa by the window
  kitchen.png ERASE

JSON manifests hold an array of jobs:

  [{"scene": "kitchen.png", "mode": "FINISH", "mask": "counters.png",
    "reference": "marble.jpg", "prompt": "white marble", "tier": "PRO"}]

Paths are relative to the manifest and may not leave its directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, app)
		},
	}
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "d", ".", "directory for results")
	cmd.Flags().StringVarP(&flagJobTier, "tier", "t", "FREE", "tier for jobs that name none")
	cmd.Flags().StringVarP(&flagMode, "mode", "m", "FINISH", "mode for jobs that name none")
	cmd.Flags().IntVarP(&flagParallel, "parallel", "p", 1, "jobs to run at once")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first failed job")
	cmd.Flags().IntVar(&flagDelay, "delay", 0, "milliseconds to wait between jobs")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

	tier, err := models.ParseTier(flagJobTier)
	if err != nil {
		return err
	}
	mode, err := models.ParseEditMode(flagMode)
	if err != nil {
		return err
	}
	if flagParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	items, err := batch.ParseFile(args[0])
	if err != nil {
		return err
	}

	e, err := app.setup(nil, false)
	if err != nil {
		return err
	}
	defer e.Close()

	processor := batch.NewProcessor(e.gen, app.NewSaver(), app.Registry, app.Out, app.Err, e.batchOptions(app.Registry)...)

	fmt.Fprintf(app.Out, "Running %d edit(s)...\n", len(items))
	results, err := processor.Process(ctx, items, &batch.Options{
		OutputDir:   flagOutputDir,
		DefaultTier: tier,
		DefaultMode: mode,
		MaxUpload:   e.cfg.MaxUploadBytes,
		Parallel:    flagParallel,
		StopOnError: flagStopOnError,
		DelayMs:     flagDelay,
	})
	processor.PrintSummary(results)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("%d of %d edit(s) failed", countFailed(results), len(results))
		}
	}
	return nil
}

func countFailed(results []batch.Result) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve editing sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, app)
		},
	}
	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address; defaults to ROOMEDIT_ADDR")
	return cmd
}

func runServe(cmd *cobra.Command, app *App) error {
	e, err := app.setup(nil, false)
	if err != nil {
		return err
	}
	defer e.Close()

	addr := e.cfg.Addr
	if flagAddr != "" {
		addr = flagAddr
	}

	opts := server.Options{
		Generator:   e.gen,
		Credentials: e.prompter,
		Checker:     e.gen,
		Models:      app.Registry,
		Locale:      e.cfg.Locale,
		MaxUpload:   e.cfg.MaxUploadBytes,
		Logger:      e.logger,
	}
	if j := e.recorder(app.Registry); j != nil {
		opts.Journal = j
	}

	return app.Serve(cmd.Context(), server.New(opts), addr)
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored Gemini API key",
	}

	setCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store a key",
		Long:  "Store a key. Without an argument the key is read from standard input.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else if key, err = readKey(cmd.Context(), app.In, app.Err); err != nil {
				return err
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("key cannot be empty")
			}
			if err := store.Set(keys.DefaultProvider, key); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Stored %s in %s\n", keys.MaskKey(key), store.Path())
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the key in use and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			explicit := flagAPIKey
			if explicit == "" {
				explicit = cfg.GeminiAPIKey
			}
			key, source, err := store.Resolve(explicit, keys.DefaultProvider, keys.EnvVar)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%s (from %s)\n", keys.MaskKey(key), source)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Remove the stored key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			if err := store.Delete(keys.DefaultProvider); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Stored key removed.")
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List providers with a stored key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.NewKeyStore()
			if err != nil {
				return err
			}
			providers, err := store.List()
			if err != nil {
				return err
			}
			if len(providers) == 0 {
				fmt.Fprintln(app.Out, "No stored keys.")
				return nil
			}
			for _, p := range providers {
				key, _ := store.Get(p)
				fmt.Fprintf(app.Out, "%-10s %s\n", p, keys.MaskKey(key))
			}
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Test the key against the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tier, err := models.ParseTier(flagCheckTier)
			if err != nil {
				return err
			}
			cap, err := app.Registry.ForTier(tier)
			if err != nil {
				return err
			}
			e, err := app.setup(nil, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.gen.Check(cmd.Context(), cap.Name); err != nil {
				if notice := session.Notice(e.notices, err); notice != err.Error() {
					fmt.Fprintln(app.Err, notice)
				}
				return fmt.Errorf("connection failed: %w", err)
			}
			fmt.Fprintf(app.Out, "Connection OK (%s)\n", cap.Name)
			return nil
		},
	}
	checkCmd.Flags().StringVarP(&flagCheckTier, "tier", "t", "FREE", "tier whose model to test")

	cmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd, checkCmd)
	return cmd
}

// readKey reads one key, without echo when in is a terminal.
func readKey(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	p := keys.NewPrompter(nil, "", in, out)
	p.EnvVar = ""
	if err := p.RequestCredential(ctx); err != nil {
		return "", err
	}
	key, err := p.Key(ctx)
	if err != nil {
		return "", fmt.Errorf("key cannot be empty")
	}
	return key, nil
}
