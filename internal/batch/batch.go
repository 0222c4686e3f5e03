// Package batch runs a manifest of edit jobs against the generation service
// without an interactive session.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/manash/roomedit/internal/cost"
	"github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/request"
	"github.com/manash/roomedit/internal/security"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

type Result struct {
	Index  int
	Scene  string
	Prompt string
	Path   string
	Cost   float64
	Error  error
	// Notice is the user-facing message for Error.
	Notice   string
	Duration time.Duration
}

type Options struct {
	OutputDir   string
	DefaultTier models.Tier
	DefaultMode models.EditMode
	// MaxUpload bounds every image read from disk; zero uses the upload default.
	MaxUpload   int64
	Parallel    int
	StopOnError bool
	DelayMs     int
}

type Option func(*Processor)

// WithJournal records every job as a generation attempt under one batch id.
func WithJournal(j session.Journal) Option {
	return func(p *Processor) { p.journal = j }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithCredentials gates PRO jobs on a usable credential.
func WithCredentials(c session.Credentials) Option {
	return func(p *Processor) { p.creds = c }
}

func WithNotices(n session.Notices) Option {
	return func(p *Processor) { p.notices = n }
}

type Processor struct {
	gen       session.Generator
	saver     *image.Saver
	registry  *models.ModelRegistry
	assembler *request.Assembler
	calc      *cost.Calculator
	journal   session.Journal
	creds     session.Credentials
	notices   session.Notices
	logger    zerolog.Logger
	batchID   string
	out       io.Writer
	err       io.Writer
	outMu     sync.Mutex
}

func NewProcessor(gen session.Generator, saver *image.Saver, registry *models.ModelRegistry, out, errOut io.Writer, opts ...Option) *Processor {
	if registry == nil {
		registry = models.DefaultRegistry()
	}
	p := &Processor{
		gen:       gen,
		saver:     saver,
		registry:  registry,
		assembler: request.New(registry, nil),
		calc:      cost.NewCalculator(),
		logger:    zerolog.Nop(),
		batchID:   uuid.New().String(),
		out:       out,
		err:       errOut,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("batch", p.batchID).Logger()
	return p
}

// ID identifies this run in the journal.
func (p *Processor) ID() string {
	return p.batchID
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	p.logger.Info().Int("items", len(items)).Int("parallel", opts.Parallel).Msg("batch started")
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := min(opts.Parallel, len(items))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
				}
				stop := opts.StopOnError && firstErr != nil
				mu.Unlock()

				if stop {
					return
				}
			}
		}()
	}

	for i, item := range items {
		mu.Lock()
		stop := opts.StopOnError && firstErr != nil
		mu.Unlock()
		if stop {
			break
		}
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return results, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Scene:  item.Scene,
		Prompt: item.Prompt,
	}

	tier := item.Tier
	if !tier.IsValid() {
		tier = opts.DefaultTier
	}
	mode := item.Mode
	if !mode.IsValid() {
		mode = opts.DefaultMode
	}
	if !mode.IsValid() {
		mode = models.ModeFinish
	}

	p.printf("[%d/%d] %s %s: %q...\n", current, total, mode, filepath.Base(item.Scene), truncate(item.Prompt, 50))

	log := p.logger.With().Int("item", item.Index).Logger()
	editor := p.newEditor(log)

	fail := func(err error) Result {
		result.Error = err
		result.Notice = editor.State().Notice
		if result.Notice == "" {
			result.Notice = editor.NoticeFor(err)
		}
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		if result.Notice != err.Error() {
			p.errorf("       %s\n", result.Notice)
		}
		return result
	}

	in, err := p.loadInput(item, tier, mode, opts.MaxUpload)
	if err != nil {
		return fail(err)
	}
	if err := p.prepare(ctx, editor, in); err != nil {
		return fail(err)
	}

	log.Debug().Str("mode", mode.String()).Msg("job started")
	if err := editor.Generate(ctx); err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}
	img := editor.State().Result

	outputPath, err := outputPathFor(item, opts.OutputDir, models.FormatForMIME(img.MIMEType))
	if err != nil {
		return fail(err)
	}
	if err := p.saver.Save(img, outputPath); err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}

	result.Path = outputPath
	result.Duration = time.Since(start)

	if cap, err := p.registry.ForTier(tier); err == nil {
		result.Cost = p.calc.ForModel(cap, 1).Total
	}
	if result.Cost > 0 {
		p.printf("       Saved: %s ($%.4f)\n", result.Path, result.Cost)
	} else {
		p.printf("       Saved: %s\n", result.Path)
	}
	log.Info().Dur("elapsed", result.Duration).Str("path", result.Path).Msg("job complete")

	return result
}

// newEditor gives each job its own session, journaled under the batch id.
func (p *Processor) newEditor(log zerolog.Logger) *session.Editor {
	opts := []session.Option{
		session.WithID(p.batchID),
		session.WithLogger(log),
		session.WithAssembler(p.assembler),
	}
	if p.creds != nil {
		opts = append(opts, session.WithCredentials(p.creds))
	}
	if p.notices != nil {
		opts = append(opts, session.WithNotices(p.notices))
	}
	if p.journal != nil {
		opts = append(opts, session.WithJournal(p.journal))
	}
	return session.NewEditor(p.gen, opts...)
}

// prepare replays the job onto editor the way a user would set it up.
func (p *Processor) prepare(ctx context.Context, editor *session.Editor, in request.Input) error {
	if in.Tier.IsValid() {
		if err := editor.SelectTier(ctx, in.Tier); err != nil {
			return err
		}
	}
	if err := editor.LoadScene(in.Scene); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if err := editor.SetMode(in.Mode); err != nil {
		return err
	}
	editor.SetPrompt(in.Prompt)
	if ref := in.Reference(); ref != nil {
		kind, _ := in.Mode.ReferenceKind()
		if err := editor.SetReference(kind, ref); err != nil {
			return err
		}
	}
	if !in.Mask.Empty() {
		if err := editor.LoadMask(in.Mask); err != nil {
			return fmt.Errorf("mask: %w", err)
		}
	}
	return nil
}

// loadInput reads the job's images. A reference is filed under the kind
// the mode consumes; modes without one ignore it.
func (p *Processor) loadInput(item Item, tier models.Tier, mode models.EditMode, limit int64) (request.Input, error) {
	in := request.Input{Tier: tier, Mode: mode, Prompt: item.Prompt}

	scene, err := image.Load(item.Scene, limit)
	if err != nil {
		return in, fmt.Errorf("scene: %w", err)
	}
	in.Scene = scene

	if item.Mask != "" {
		if in.Mask, err = image.Load(item.Mask, limit); err != nil {
			return in, fmt.Errorf("mask: %w", err)
		}
	}

	if item.Reference != "" {
		kind, ok := mode.ReferenceKind()
		if !ok {
			p.logger.Warn().Int("item", item.Index).Str("mode", mode.String()).Msg("mode takes no reference; ignoring it")
			return in, nil
		}
		ref, err := image.Load(item.Reference, limit)
		if err != nil {
			return in, fmt.Errorf("reference: %w", err)
		}
		switch kind {
		case models.RefFurniture:
			in.Furniture = ref
		case models.RefMaterial:
			in.Material = ref
		case models.RefDesign:
			in.Design = ref
		}
	}
	return in, nil
}

// outputPathFor places the result in dir, under the job's own name when it
// has one.
func outputPathFor(item Item, dir string, format models.OutputFormat) (string, error) {
	if item.Output != "" {
		path, err := security.ResolveWithin(dir, item.Output)
		if err != nil {
			return "", fmt.Errorf("output %s: %w", item.Output, err)
		}
		return path, nil
	}
	return filepath.Join(dir, generateFilename(item.Index, item.Scene, item.Prompt, format)), nil
}

// generateFilename names a result after its scene and prompt, e.g.
// 003-kitchen-white-marble-counters.png.
func generateFilename(index int, scene, prompt string, format models.OutputFormat) string {
	stem := strings.TrimSuffix(filepath.Base(scene), filepath.Ext(scene))
	return fmt.Sprintf("%03d-%s.%s", index, sanitizePrompt(stem+" "+prompt), format)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func sanitizePrompt(prompt string) string {
	sanitized := unsafeChars.ReplaceAllString(prompt, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "edit"
	}

	if errors.Is(security.ValidateSavePath(sanitized), security.ErrReservedName) {
		sanitized = sanitized + "-img"
	}

	return sanitized
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	var totalCost float64
	var errs []Result

	for _, r := range results {
		if r.Error != nil {
			failed++
			errs = append(errs, r)
		} else {
			successful++
			totalCost += r.Cost
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d edits\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	fmt.Fprintf(p.out, "  Estimated cost: $%.4f\n", totalCost)

	if len(errs) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(p.out, "  [%d] %s: %v\n", e.Index, filepath.Base(e.Scene), e.Error)
		}
	}
}
