package server

import (
	"encoding/json"
	"errors"
	"net/http"

	imgutil "github.com/manash/roomedit/internal/image"
	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

var (
	errSessionNotFound = errors.New("session not found")
	errNoImage         = errors.New("nothing to show")
	errBadPointer      = errors.New("pointer phase must be down, move or up")
	errBadRequest      = errors.New("bad request")
)

type errorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound), errors.Is(err, errNoImage):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, imgutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrCredentialRequired):
		return http.StatusForbidden
	case provider.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNoScene),
		errors.Is(err, session.ErrNoTier),
		errors.Is(err, models.ErrUnknownTier),
		errors.Is(err, models.ErrUnknownMode),
		errors.Is(err, models.ErrUnknownReference),
		errors.Is(err, models.ErrNoImageData),
		errors.Is(err, models.ErrInvalidDataURL),
		errors.Is(err, models.ErrEmptyInstruction),
		errors.Is(err, imgutil.ErrNotImage),
		errors.Is(err, imgutil.ErrEmpty),
		errors.Is(err, errBadPointer),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrCheckNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, provider.ErrNoImage):
		return http.StatusBadGateway
	default:
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error, notice string) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Notice: notice})
}
