// Package server exposes editing sessions over a JSON HTTP API. Each session
// is one session.Editor; image payloads travel as raw bytes or multipart
// uploads and come back as image responses.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/manash/roomedit/internal/i18n"
	imgutil "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/request"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

type Options struct {
	Generator   session.Generator
	Credentials session.Credentials
	// Checker backs the credential connection test. Nil disables it.
	Checker   provider.Checker
	Journal   session.Journal
	Models    *models.ModelRegistry
	Locale    string
	MaxUpload int64
	Logger    zerolog.Logger
}

type Server struct {
	opts      Options
	sessions  *Registry
	assembler *request.Assembler
	logger    zerolog.Logger
}

func New(opts Options) *Server {
	if opts.Models == nil {
		opts.Models = models.DefaultRegistry()
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = imgutil.DefaultMaxUploadBytes
	}
	return &Server{
		opts:      opts,
		sessions:  NewRegistry(),
		assembler: request.New(opts.Models, nil),
		logger:    opts.Logger,
	}
}

func (s *Server) Sessions() *Registry {
	return s.sessions
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requestLogger(s.logger))

	r.Get("/healthz", s.health)
	r.Get("/models", s.listModels)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)

			r.Put("/tier", s.selectTier)
			r.Put("/scene", s.loadScene)
			r.Put("/references/{kind}", s.setReference)
			r.Delete("/references/{kind}", s.removeReference)
			r.Put("/mode", s.setMode)
			r.Put("/prompt", s.setPrompt)
			r.Put("/canvas", s.configureCanvas)
			r.Put("/compare", s.setComparing)

			r.Post("/pointer", s.pointer)
			r.Post("/stroke", s.stroke)
			r.Post("/key", s.key)
			r.Post("/undo", s.undo)
			r.Post("/redo", s.redo)
			r.Post("/clear", s.clearMask)

			r.Post("/generate", s.generate)
			r.Post("/dismiss", s.dismiss)
			r.Post("/clear-edits", s.clearEdits)
			r.Post("/reset", s.reset)
			r.Post("/credentials/check", s.checkCredentials)

			r.Get("/scene", s.image("scene", func(e *session.Editor) (*models.Image, error) { return e.State().Scene, nil }))
			r.Get("/result", s.image("result", func(e *session.Editor) (*models.Image, error) { return e.State().Result, nil }))
			r.Get("/mask", s.image("mask", func(e *session.Editor) (*models.Image, error) { return e.State().Mask, nil }))
			r.Get("/display", s.image("display", func(e *session.Editor) (*models.Image, error) { return e.DisplayedImage(), nil }))
			r.Get("/preview", s.image("preview", func(e *session.Editor) (*models.Image, error) { return e.Preview() }))
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(context.WithoutCancel(ctx))
	}
}

func (s *Server) newEditor(r *http.Request) *session.Editor {
	notices := i18n.ForLocale(r.Header.Get("Accept-Language"), s.opts.Locale)
	opts := []session.Option{
		session.WithLogger(s.logger),
		session.WithAssembler(s.assembler),
		session.WithNotices(notices),
	}
	if s.opts.Credentials != nil {
		opts = append(opts, session.WithCredentials(s.opts.Credentials))
	}
	if s.opts.Journal != nil {
		opts = append(opts, session.WithJournal(s.opts.Journal))
	}
	return session.NewEditor(s.opts.Generator, opts...)
}
