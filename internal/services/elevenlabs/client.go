package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clapper/internal/services"
)

// Request describes one synthesis call.
type Request struct {
	Text    string
	VoiceID string
	ModelID string
	Speed   float64
}

// Synthesizer defines the speech synthesis operations used by the renderer.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Client calls the ElevenLabs text-to-speech API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Synthesizer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the default HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates an ElevenLabs client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("elevenlabs api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("elevenlabs base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type voiceSettings struct {
	Speed float64 `json:"speed,omitempty"`
}

type synthesizeBody struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id,omitempty"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// Synthesize converts text to speech and returns the MP3 byte stream.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "text must not be empty", nil)
	}
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "voice id must not be empty", nil)
	}

	body := synthesizeBody{Text: text, ModelID: strings.TrimSpace(req.ModelID)}
	if req.Speed > 0 && req.Speed != 1.0 {
		body.VoiceSettings = &voiceSettings{Speed: req.Speed}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "encode request", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "build request", err)
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize",
			fmt.Sprintf("returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(detail))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "read audio stream", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrProviderRequest, "elevenlabs", "synthesize", "provider returned empty audio", nil)
	}
	return audio, nil
}

// HealthCheck verifies the API key by fetching the account endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach elevenlabs: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.New("elevenlabs rejected the api key")
	default:
		return fmt.Errorf("elevenlabs health check returned %d", resp.StatusCode)
	}
}
