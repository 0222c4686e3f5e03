// Package gemini edits images through the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/manash/roomedit/internal/provider"
	"github.com/manash/roomedit/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultMIME    = "image/png"
	apiKeyHeader   = "x-goog-api-key"
)

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type generationConfig struct {
	ImageConfig imageConfig `json:"imageConfig"`
}

type apiRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type apiResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type Provider struct {
	key        provider.KeyFunc
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	logger     zerolog.Logger
	verbose    bool
}

// New returns a Gemini provider. Either cfg.APIKey or cfg.Key must be set.
func New(cfg *provider.Config, registry *models.ModelRegistry, logger zerolog.Logger) (*Provider, error) {
	key := cfg.Key
	if key == nil {
		if cfg.APIKey == "" {
			return nil, provider.ErrAPIKeyRequired
		}
		static := cfg.APIKey
		key = func(context.Context) (string, error) { return static, nil }
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		key:     key,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		registry: registry,
		logger:   logger.With().Str("provider", string(models.ProviderGemini)).Logger(),
		verbose:  cfg.Verbose,
	}, nil
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGemini
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderGemini)
}

// Edit sends the request and returns the first inline image of the first
// candidate. A response without one yields provider.ErrNoImage.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Image, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}

	jsonData, err := json.Marshal(buildAPIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(req.Model))
	body, err := p.do(ctx, http.MethodPost, endpoint, jsonData)
	if err != nil {
		return nil, err
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, &provider.APIError{StatusCode: apiResp.Error.Code, Message: apiResp.Error.Message}
	}

	img, err := firstImage(apiResp)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("model", req.Model).
		Str("aspect_ratio", req.Config.AspectRatio.String()).
		Int("bytes", len(img.Data)).
		Msg("gemini: edit complete")
	return img, nil
}

// Check fetches the model's metadata, which fails the same way generation
// does when the key is not entitled to the model.
func (p *Provider) Check(ctx context.Context, model string) error {
	endpoint := fmt.Sprintf("%s/models/%s", p.baseURL, url.PathEscape(model))
	_, err := p.do(ctx, http.MethodGet, endpoint, nil)
	return err
}

func (p *Provider) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	key, err := p.key(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %w", provider.ErrAuth, provider.ErrAPIKeyRequired)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(apiKeyHeader, key)

	p.logRequest(method, endpoint, httpReq.Header, payload)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.logResponse(resp.StatusCode, body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) error {
	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil && apiResp.Error.Message != "" {
		return &provider.APIError{StatusCode: status, Message: apiResp.Error.Message}
	}
	return &provider.APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

func buildAPIRequest(req *models.EditRequest) *apiRequest {
	parts := make([]part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			mime := p.Image.MIMEType
			if mime == "" {
				mime = defaultMIME
			}
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: mime,
				Data:     p.Image.Base64(),
			}})
			continue
		}
		parts = append(parts, part{Text: p.Text})
	}

	return &apiRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ImageConfig: imageConfig{
				AspectRatio: string(req.Config.AspectRatio),
				ImageSize:   req.Config.ImageSize,
			},
		},
	}
}

func firstImage(resp apiResponse) (*models.Image, error) {
	if len(resp.Candidates) == 0 {
		return nil, provider.ErrNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		mime := part.InlineData.MimeType
		if mime == "" {
			mime = defaultMIME
		}
		return &models.Image{MIMEType: mime, Data: data}, nil
	}
	return nil, provider.ErrNoImage
}

func (p *Provider) logRequest(method, endpoint string, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	redacted := make(map[string]string, len(headers))
	for key := range headers {
		value := headers.Get(key)
		if strings.EqualFold(key, apiKeyHeader) {
			value = "[REDACTED]"
		}
		redacted[key] = value
	}

	ev := p.logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Interface("headers", redacted)
	if len(body) > 0 {
		ev = ev.RawJSON("body", truncateBase64InJSON(body))
	}
	ev.Msg("gemini: request")
}

func (p *Provider) logResponse(statusCode int, body []byte) {
	if !p.verbose {
		return
	}

	ev := p.logger.Debug().Int("status", statusCode)
	if json.Valid(body) {
		ev = ev.RawJSON("body", truncateBase64InJSON(body))
	} else if len(body) > 0 {
		ev = ev.Str("body", string(body))
	}
	ev.Msg("gemini: response")
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateBase64Fields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "data" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateBase64Fields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
