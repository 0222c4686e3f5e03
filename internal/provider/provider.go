package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manash/roomedit/pkg/models"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrCheckNotSupported = errors.New("connection check not supported by provider")
	// ErrAuth marks a failure caused by a missing or rejected credential.
	ErrAuth = errors.New("credential rejected by generation service")
	// ErrNoImage means the service answered but returned no image part.
	ErrNoImage = errors.New("no image in response")
)

// authSignature is the message the image service returns for a key that is
// not entitled to the requested model.
const authSignature = "Requested entity was not found"

// Provider edits images through one generation service.
type Provider interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error)
	SupportsModel(model string) bool
	ListModels() []string
}

// Checker is implemented by providers that can verify their credential
// without spending a generation.
type Checker interface {
	Check(ctx context.Context, model string) error
}

// KeyFunc resolves the API key at call time so a key entered after startup
// takes effect on the next request.
type KeyFunc func(ctx context.Context) (string, error)

type Config struct {
	APIKey  string
	Key     KeyFunc
	BaseURL string
	// Timeout bounds one HTTP exchange. Zero means no limit.
	Timeout time.Duration
	Verbose bool
}

// APIError is an error reported by the service. Its message is the
// service's own text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation service returned status %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrAuth && e.isAuth()
}

// isAuth matches the service's rejected-key signature only. Other 401/403
// replies (billing, disabled API) keep their own message.
func (e *APIError) isAuth() bool {
	return IsAuthMessage(e.Message)
}

func IsAuthMessage(msg string) bool {
	return strings.Contains(msg, authSignature)
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

type Factory struct {
	registry  *models.ModelRegistry
	providers map[models.ProviderType]Provider
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:  registry,
		providers: make(map[models.ProviderType]Provider),
	}
}

func (f *Factory) Register(provider Provider) {
	f.providers[provider.Name()] = provider
}

func (f *Factory) Get(providerType models.ProviderType) (Provider, error) {
	provider, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return provider, nil
}

func (f *Factory) GetForModel(model string) (Provider, error) {
	cap, ok := f.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	provider, ok := f.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return provider, nil
}

// Edit routes the request to the provider that serves req.Model.
func (f *Factory) Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error) {
	p, err := f.GetForModel(req.Model)
	if err != nil {
		return nil, err
	}
	return p.Edit(ctx, req)
}

// Check verifies the credential of the provider that serves model.
func (f *Factory) Check(ctx context.Context, model string) error {
	p, err := f.GetForModel(model)
	if err != nil {
		return err
	}
	c, ok := p.(Checker)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCheckNotSupported, p.Name())
	}
	return c.Check(ctx, model)
}
