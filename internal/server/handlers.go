package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/manash/roomedit/internal/canvas"
	"github.com/manash/roomedit/internal/i18n"
	imgutil "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/security"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

type tierRequest struct {
	Tier string `json:"tier"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type canvasRequest struct {
	Width   *int     `json:"width,omitempty"`
	Height  *int     `json:"height,omitempty"`
	OriginX *float64 `json:"originX,omitempty"`
	OriginY *float64 `json:"originY,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

type compareRequest struct {
	On bool `json:"on"`
}

type pointerRequest struct {
	Phase string `json:"phase"`
	canvas.Pointer
}

type strokeRequest struct {
	Points []canvas.Pointer `json:"points"`
}

type imageRequest struct {
	Image string `json:"image"`
}

type stepResponse struct {
	Changed bool         `json:"changed"`
	View    session.View `json:"view"`
}

type checkResponse struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	Error  string `json:"error,omitempty"`
	Notice string `json:"notice,omitempty"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) editor(w http.ResponseWriter, r *http.Request) (*session.Editor, bool) {
	e, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errSessionNotFound, "")
		return nil, false
	}
	return e, true
}

// readImage accepts a multipart form with an "image" file, a JSON body
// {"image": "<data URL or base64>"}, or the raw image as the request body.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (*models.Image, error) {
	var src io.Reader = r.Body
	switch ct := r.Header.Get("Content-Type"); {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload+(1<<20))
		file, _, err := r.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, imgutil.ErrTooLarge
			}
			return nil, fmt.Errorf("%w: %v", imgutil.ErrEmpty, err)
		}
		defer file.Close()
		src = file
	case strings.HasPrefix(ct, "application/json"):
		// base64 grows the payload by a third
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload/3*4+(1<<20))
		var body imageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, imgutil.ErrTooLarge
			}
			return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
		img, err := models.ParseDataURL(body.Image)
		if err != nil {
			return nil, err
		}
		src = bytes.NewReader(img.Data)
	}
	return imgutil.Read(src, s.opts.MaxUpload)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var langs []string
	for _, tag := range i18n.Supported() {
		langs = append(langs, tag.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(s.sessions.IDs()), "languages": langs})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	type modelInfo struct {
		Tier      models.Tier `json:"tier"`
		Name      string      `json:"name"`
		ImageSize string      `json:"imageSize,omitempty"`
	}
	var out []modelInfo
	for _, tier := range models.ValidTiers() {
		cap, err := s.opts.Models.ForTier(tier)
		if err != nil {
			continue
		}
		out = append(out, modelInfo{Tier: tier, Name: cap.Name, ImageSize: cap.ImageSize})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	e := s.newEditor(r)

	var req tierRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err, "")
			return
		}
	}
	if req.Tier != "" {
		tier, err := models.ParseTier(req.Tier)
		if err != nil {
			writeError(w, err, "")
			return
		}
		if err := e.SelectTier(r.Context(), tier); err != nil {
			writeError(w, err, e.State().Notice)
			return
		}
	}

	s.sessions.Add(e)
	s.logger.Info().Str("session", e.ID()).Msg("session created")
	writeJSON(w, http.StatusCreated, e.Snapshot())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.IDs()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		writeJSON(w, http.StatusOK, e.Snapshot())
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, errSessionNotFound, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes the view on success, or the error with the current notice.
func respond(w http.ResponseWriter, e *session.Editor, err error) {
	if err != nil {
		writeError(w, err, e.State().Notice)
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) selectTier(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req tierRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		respond(w, e, err)
		return
	}
	respond(w, e, e.SelectTier(r.Context(), tier))
}

func (s *Server) loadScene(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	img, err := s.readImage(w, r)
	if err != nil {
		respond(w, e, err)
		return
	}
	respond(w, e, e.LoadScene(img))
}

func (s *Server) setReference(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	kind, err := models.ParseReferenceKind(chi.URLParam(r, "kind"))
	if err != nil {
		respond(w, e, err)
		return
	}
	img, err := s.readImage(w, r)
	if err != nil {
		respond(w, e, err)
		return
	}
	respond(w, e, e.SetReference(kind, img))
}

func (s *Server) removeReference(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	kind, err := models.ParseReferenceKind(chi.URLParam(r, "kind"))
	if err != nil {
		respond(w, e, err)
		return
	}
	respond(w, e, e.SetReference(kind, nil))
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	mode, err := models.ParseEditMode(req.Mode)
	if err != nil {
		respond(w, e, err)
		return
	}
	respond(w, e, e.SetMode(mode))
}

func (s *Server) setPrompt(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	e.SetPrompt(req.Prompt)
	respond(w, e, nil)
}

func (s *Server) configureCanvas(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req canvasRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}

	if req.Width != nil || req.Height != nil {
		v := e.Snapshot()
		width, height := v.CanvasWidth, v.CanvasHeight
		if req.Width != nil {
			width = *req.Width
		}
		if req.Height != nil {
			height = *req.Height
		}
		if width < 0 || height < 0 {
			respond(w, e, fmt.Errorf("%w: canvas size must not be negative", errBadRequest))
			return
		}
		if err := e.Resize(width, height); err != nil {
			respond(w, e, err)
			return
		}
	}
	if req.OriginX != nil || req.OriginY != nil {
		var x, y float64
		if req.OriginX != nil {
			x = *req.OriginX
		}
		if req.OriginY != nil {
			y = *req.OriginY
		}
		e.SetOrigin(x, y)
	}
	if req.Opacity != nil {
		e.SetOpacity(*req.Opacity)
	}
	respond(w, e, nil)
}

func (s *Server) setComparing(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req compareRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	e.SetComparing(req.On)
	respond(w, e, nil)
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req pointerRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}

	var changed bool
	var err error
	switch req.Phase {
	case "down":
		changed = e.PointerDown(req.Pointer)
	case "move":
		changed = e.PointerMove(req.Pointer)
	case "up", "leave":
		changed, err = e.PointerUp()
	default:
		err = errBadPointer
	}
	if err != nil {
		respond(w, e, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Changed: changed, View: e.Snapshot()})
}

func (s *Server) stroke(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req strokeRequest
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	changed, err := e.Stroke(req.Points...)
	if err != nil {
		respond(w, e, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Changed: changed, View: e.Snapshot()})
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req session.KeyEvent
	if err := decode(r, &req); err != nil {
		respond(w, e, err)
		return
	}
	s.step(w, e, func() (bool, error) { return e.HandleKey(req) })
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		s.step(w, e, e.Undo)
	}
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		s.step(w, e, e.Redo)
	}
}

func (s *Server) clearMask(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		s.step(w, e, func() (bool, error) {
			e.Clear()
			return true, nil
		})
	}
}

func (s *Server) step(w http.ResponseWriter, e *session.Editor, fn func() (bool, error)) {
	changed, err := fn()
	if err != nil {
		respond(w, e, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Changed: changed, View: e.Snapshot()})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	// A started generation runs to completion even if the client goes away.
	respond(w, e, e.Generate(context.WithoutCancel(r.Context())))
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		e.DismissResult()
		respond(w, e, nil)
	}
}

func (s *Server) clearEdits(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		respond(w, e, e.ClearEdits())
	}
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.editor(w, r); ok {
		respond(w, e, e.Reset())
	}
}

// checkCredentials is the connection test: a cheap authenticated call
// against the model backing the session's tier, FREE when none is chosen.
func (s *Server) checkCredentials(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editor(w, r)
	if !ok {
		return
	}
	if s.opts.Checker == nil {
		writeError(w, provider.ErrCheckNotSupported, "")
		return
	}

	tier := e.State().Tier
	if !tier.IsValid() {
		tier = models.TierFree
	}
	cap, err := s.opts.Models.ForTier(tier)
	if err != nil {
		writeError(w, err, "")
		return
	}

	resp := checkResponse{OK: true, Model: cap.Name}
	status := http.StatusOK
	if err := s.opts.Checker.Check(r.Context(), cap.Name); err != nil {
		resp.OK = false
		resp.Error = err.Error()
		status = statusFor(err)
		resp.Notice = e.NoticeFor(err)
	}
	writeJSON(w, status, resp)
}

// image serves one of the session's images. With ?format=dataurl the image
// comes back as JSON {"image": "data:..."} for direct use in an <img> tag.
func (s *Server) image(name string, get func(*session.Editor) (*models.Image, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.editor(w, r)
		if !ok {
			return
		}
		img, err := get(e)
		if err != nil {
			writeError(w, err, "")
			return
		}
		if img.Empty() {
			writeError(w, errNoImage, "")
			return
		}
		if r.URL.Query().Get("format") == "dataurl" {
			writeJSON(w, http.StatusOK, imageRequest{Image: img.DataURL()})
			return
		}
		filename := security.SanitizeFilename(fmt.Sprintf("%s-%s.%s", e.ID(), name, models.FormatForMIME(img.MIMEType)))
		w.Header().Set("Content-Type", img.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.Write(img.Data)
	}
}
