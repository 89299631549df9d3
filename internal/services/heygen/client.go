package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"clapper/internal/jobpoll"
	"clapper/internal/services"
)

// VoiceSettings selects how the avatar speaks: raw text rendered by a HeyGen
// voice, or a previously uploaded audio asset the avatar lip-syncs to.
// Exactly one of InputText/VoiceID or AudioAssetID must be set.
type VoiceSettings struct {
	InputText    string
	VoiceID      string
	AudioAssetID string
	Speed        float64
}

// GenerateRequest describes one avatar clip.
type GenerateRequest struct {
	AvatarID    string
	AvatarStyle string
	Voice       VoiceSettings
	Width       int
	Height      int
}

// StatusResponse is the decoded video status payload.
type StatusResponse struct {
	Status   string
	VideoURL string
	Error    string
}

// Service defines the avatar video operations used by the renderer.
type Service interface {
	UploadAudioAsset(ctx context.Context, path string) (string, error)
	GenerateVideo(ctx context.Context, req GenerateRequest) (string, error)
	VideoStatus(ctx context.Context, videoID string) (StatusResponse, error)
	Download(ctx context.Context, url, dest string) error
}

// Client calls the HeyGen API. Uploads go to a separate host from the
// generate/status endpoints, mirroring the provider's split.
type Client struct {
	apiKey     string
	apiBase    string
	uploadBase string
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

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

// WithTimeout sets the default HTTP client timeout. Downloads stream the
// response body, so the timeout covers headers, not the full transfer.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a HeyGen client.
func New(apiKey, apiBase, uploadBase string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("heygen api key required")
	}
	apiBase = strings.TrimSpace(apiBase)
	if apiBase == "" {
		return nil, errors.New("heygen api base url required")
	}
	uploadBase = strings.TrimSpace(uploadBase)
	if uploadBase == "" {
		uploadBase = apiBase
	}
	client := &Client{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		uploadBase: strings.TrimRight(uploadBase, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// UploadAudioAsset uploads a local audio file and returns the provider's
// asset id for use in an audio-voiced generate request.
func (c *Client) UploadAudioAsset(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", "open audio file", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBase+"/v1/asset", file)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", "build request", err)
	}
	c.setHeaders(ctx, req)
	req.Header.Set("Content-Type", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", httpFailureDetail(resp), nil)
	}

	var payload struct {
		Data struct {
			AssetID string `json:"asset_id"`
			URL     string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", "decode response", err)
	}
	if payload.Data.AssetID == "" {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "upload asset", "no asset_id in response", nil)
	}
	return payload.Data.AssetID, nil
}

type generateCharacter struct {
	Type        string `json:"type"`
	AvatarID    string `json:"avatar_id"`
	AvatarStyle string `json:"avatar_style,omitempty"`
}

type generateVoice struct {
	Type         string  `json:"type"`
	InputText    string  `json:"input_text,omitempty"`
	VoiceID      string  `json:"voice_id,omitempty"`
	AudioAssetID string  `json:"audio_asset_id,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
}

type generateInput struct {
	Character generateCharacter `json:"character"`
	Voice     generateVoice     `json:"voice"`
}

type generateBody struct {
	VideoInputs []generateInput `json:"video_inputs"`
	Dimension   struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimension"`
}

// GenerateVideo submits an avatar clip request and returns the video id to
// poll. The call returns before any rendering happens on the provider side.
func (c *Client) GenerateVideo(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.AvatarID) == "" {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "avatar id must not be empty", nil)
	}
	voice, err := buildVoice(req.Voice)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", err.Error(), nil)
	}

	body := generateBody{
		VideoInputs: []generateInput{{
			Character: generateCharacter{
				Type:        "avatar",
				AvatarID:    req.AvatarID,
				AvatarStyle: req.AvatarStyle,
			},
			Voice: voice,
		}},
	}
	body.Dimension.Width = req.Width
	body.Dimension.Height = req.Height
	if body.Dimension.Width <= 0 {
		body.Dimension.Width = 1280
	}
	if body.Dimension.Height <= 0 {
		body.Dimension.Height = 720
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/video/generate", bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "build request", err)
	}
	c.setHeaders(ctx, httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", httpFailureDetail(resp), nil)
	}

	var decoded struct {
		Error json.RawMessage `json:"error"`
		Data  struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "decode response", err)
	}
	if apiErr := decodeAPIError(decoded.Error); apiErr != "" {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", apiErr, nil)
	}
	if decoded.Data.VideoID == "" {
		return "", services.Wrap(services.ErrProviderRequest, "heygen", "generate", "no video_id in response", nil)
	}
	return decoded.Data.VideoID, nil
}

func buildVoice(settings VoiceSettings) (generateVoice, error) {
	speed := settings.Speed
	if speed <= 0 {
		speed = 1.0
	}
	if settings.AudioAssetID != "" {
		return generateVoice{Type: "audio", AudioAssetID: settings.AudioAssetID, Speed: speed}, nil
	}
	if settings.InputText == "" || settings.VoiceID == "" {
		return generateVoice{}, errors.New("voice requires either an audio asset id or input text with a voice id")
	}
	return generateVoice{Type: "text", InputText: settings.InputText, VoiceID: settings.VoiceID, Speed: speed}, nil
}

// VideoStatus fetches the job's current state.
func (c *Client) VideoStatus(ctx context.Context, videoID string) (StatusResponse, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", "video id must not be empty", nil)
	}

	endpoint, err := url.Parse(c.apiBase + "/v1/video_status.get")
	if err != nil {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", "parse url", err)
	}
	params := url.Values{}
	params.Set("video_id", videoID)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", "build request", err)
	}
	c.setHeaders(ctx, req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", httpFailureDetail(resp), nil)
	}

	var decoded struct {
		Data struct {
			Status   string          `json:"status"`
			VideoURL string          `json:"video_url"`
			Error    json.RawMessage `json:"error"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return StatusResponse{}, services.Wrap(services.ErrProviderRequest, "heygen", "status", "decode response", err)
	}
	return StatusResponse{
		Status:   decoded.Data.Status,
		VideoURL: decoded.Data.VideoURL,
		Error:    decodeAPIError(decoded.Data.Error),
	}, nil
}

// Download streams the completed clip to dest. Partial downloads are removed
// so a failed fetch never leaves bytes a later run could mistake for a clip.
func (c *Client) Download(ctx context.Context, sourceURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", httpFailureDetail(resp), nil)
	}

	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", "create destination", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(dest)
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", "stream video", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrProviderRequest, "heygen", "download", "close destination", err)
	}
	return nil
}

// HealthCheck verifies the API key by fetching the remaining quota.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v2/user/remaining_quota", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach heygen: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.New("heygen rejected the api key")
	default:
		return fmt.Errorf("heygen health check returned %d", resp.StatusCode)
	}
}

// PollFunc adapts the status endpoint to the job poller's contract.
func PollFunc(service Service, videoID string) jobpoll.PollFunc {
	return func(ctx context.Context) (jobpoll.Snapshot, error) {
		status, err := service.VideoStatus(ctx, videoID)
		if err != nil {
			return jobpoll.Snapshot{}, err
		}
		switch strings.ToLower(strings.TrimSpace(status.Status)) {
		case "completed":
			if status.VideoURL == "" {
				return jobpoll.Snapshot{}, fmt.Errorf("status completed but no video_url present")
			}
			return jobpoll.Snapshot{State: jobpoll.StateCompleted, ResultLocator: status.VideoURL}, nil
		case "failed":
			reason := status.Error
			if reason == "" {
				reason = "no failure detail reported"
			}
			return jobpoll.Snapshot{State: jobpoll.StateFailed, FailureReason: reason}, nil
		default:
			// pending, waiting, and processing all mean "not done yet"
			return jobpoll.Snapshot{State: jobpoll.StateProcessing}, nil
		}
	}
}

// setHeaders applies the api key and a request correlation id. The id from
// the context wins so one render stage's calls share a correlation id in the
// logs; otherwise each call gets a fresh one.
func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("X-Api-Key", c.apiKey)
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", requestID)
}

func decodeAPIError(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil {
		parts := make([]string, 0, 3)
		for _, part := range []string{structured.Code, structured.Message, structured.Detail} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ": ")
		}
	}
	return trimmed
}

func httpFailureDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Sprintf("returned %d", resp.StatusCode)
	}
	return fmt.Sprintf("returned %d: %s", resp.StatusCode, detail)
}
