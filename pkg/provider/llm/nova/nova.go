// Package nova provides an llm.Responder backed by the Amazon Bedrock
// runtime Converse API, authenticated with a Bedrock API key.
package nova

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
)

const (
	defaultBaseURL     = "https://bedrock-runtime.us-east-1.amazonaws.com"
	defaultModelID     = "us.amazon.nova-lite-v1:0"
	defaultMaxTokens   = 512
	defaultTemperature = 0.7
)

// Compile-time interface assertion.
var _ llm.Responder = (*Provider)(nil)

// Option is a functional option for configuring the nova Provider.
type Option func(*Provider)

// WithBaseURL overrides the Bedrock runtime endpoint (e.g. another region,
// or a test server).
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithModelID sets the Bedrock model identifier.
func WithModelID(modelID string) Option {
	return func(p *Provider) {
		p.modelID = modelID
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(p *Provider) {
		p.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) {
		p.temperature = t
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements llm.Responder against the Bedrock Converse API.
type Provider struct {
	apiKey      string
	baseURL     string
	modelID     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// New creates a new nova Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("nova: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		modelID:     defaultModelID,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- Converse API wire types ----

type contentBlock struct {
	Text string `json:"text"`
}

type converseMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type inferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type converseRequest struct {
	Messages        []converseMessage `json:"messages"`
	System          []contentBlock    `json:"system,omitempty"`
	InferenceConfig inferenceConfig   `json:"inferenceConfig"`
}

type converseResponse struct {
	Output struct {
		Message struct {
			Content []contentBlock `json:"content"`
		} `json:"message"`
	} `json:"output"`
}

// Converse implements llm.Responder.
func (p *Provider) Converse(ctx context.Context, system string, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return "", errors.New("nova: history must not be empty")
	}

	body, err := json.Marshal(buildRequest(system, history, p.maxTokens, p.temperature))
	if err != nil {
		return "", fmt.Errorf("nova: encode request: %w", err)
	}

	endpoint := p.baseURL + "/model/" + url.PathEscape(p.modelID) + "/converse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("nova: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nova: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("nova: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var cr converseResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("nova: decode response: %w", err)
	}
	if len(cr.Output.Message.Content) == 0 {
		return "", errors.New("nova: empty content in response")
	}
	return cr.Output.Message.Content[0].Text, nil
}

// buildRequest converts the generic conversation into the Converse API shape.
func buildRequest(system string, history []llm.Message, maxTokens int, temperature float64) converseRequest {
	req := converseRequest{
		Messages: make([]converseMessage, 0, len(history)),
		InferenceConfig: inferenceConfig{
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
	}
	if system != "" {
		req.System = []contentBlock{{Text: system}}
	}
	for _, m := range history {
		req.Messages = append(req.Messages, converseMessage{
			Role:    m.Role,
			Content: []contentBlock{{Text: m.Content}},
		})
	}
	return req
}
