// Package remotetask is the client for the external task-based
// generation service: it submits generation tasks, polls them to a
// terminal state, and manages cloned voices.
package remotetask

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fabricworks/fabric/gen"
	"github.com/fabricworks/fabric/retry"
	"github.com/fabricworks/fabric/slogger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 120
	DefaultMaxRetries   = 3
)

// Terminal task states reported by the service.
const (
	taskSucceeded = "SUCCEEDED"
	taskFailed    = "FAILED"
	taskCancelled = "CANCELLED"
)

// Client talks to one task service deployment. Endpoint and token
// supplied on a request take precedence over the client defaults.
type Client struct {
	endpoint     string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	maxRetries   int
	baseWait     time.Duration
	logger       slogger.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithRetryBaseWait(d time.Duration) Option {
	return func(c *Client) { c.baseWait = d }
}

func WithLogger(logger slogger.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a task service client.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		token:        token,
		httpClient:   http.DefaultClient,
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
		maxRetries:   DefaultMaxRetries,
		baseWait:     retry.DefaultBaseWait,
		logger:       slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ gen.TaskRunner = &Client{}
var _ gen.VoiceService = &Client{}

type submitResponse struct {
	ID string `json:"id"`
}

type taskStatusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunTask submits a task and polls it at a fixed interval up to the
// configured attempt bound, returning the result URL.
func (c *Client) RunTask(ctx context.Context, req *gen.TaskRequest) (string, error) {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = c.endpoint
	}
	token := req.Token
	if token == "" {
		token = c.token
	}
	if endpoint == "" {
		return "", fmt.Errorf("task service endpoint is not configured")
	}

	body := map[string]string{
		"task_kind":   req.TaskKind,
		"model_class": req.ModelClass,
		"prompt":      req.Prompt,
		"output_name": req.OutputName,
	}
	if req.InputImage != "" {
		body["input_image"] = req.InputImage
	}
	if req.InputAudio != "" {
		body["input_audio"] = req.InputAudio
	}
	if req.InputVideo != "" {
		body["input_video"] = req.InputVideo
	}
	if req.LastFrameImage != "" {
		body["last_frame_image"] = req.LastFrameImage
	}
	if req.AspectRatio != "" {
		body["aspect_ratio"] = req.AspectRatio
	}

	var submitted submitResponse
	err := retry.Do(ctx, func() error {
		return c.postJSON(ctx, endpoint+"/tasks", token, body, &submitted)
	}, retry.WithMaxRetries(c.maxRetries), retry.WithBaseWait(c.baseWait))
	if err != nil {
		return "", fmt.Errorf("failed to submit task: %w", err)
	}
	if submitted.ID == "" {
		return "", fmt.Errorf("task service returned no task id")
	}
	c.logger.Info("task submitted", "task_id", submitted.ID, "task_kind", req.TaskKind)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for polls := 0; polls < c.maxPolls; polls++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		var status taskStatusResponse
		if err := c.getJSON(ctx, endpoint+"/tasks/"+submitted.ID, token, &status); err != nil {
			// Transient poll failures do not kill the task; the next tick
			// retries.
			c.logger.Warn("task poll failed", "task_id", submitted.ID, "error", err)
			continue
		}
		switch status.Status {
		case taskSucceeded:
			if status.ResultURL == "" {
				return "", fmt.Errorf("task %s succeeded with no result URL", submitted.ID)
			}
			return status.ResultURL, nil
		case taskFailed, taskCancelled:
			message := status.Error
			if message == "" {
				message = status.Status
			}
			return "", fmt.Errorf("task %s did not complete: %s", submitted.ID, message)
		}
	}
	return "", fmt.Errorf("task %s timed out after %d polls", submitted.ID, c.maxPolls)
}

// voiceListing tolerates both the flat and the object-per-voice layouts
// the service has shipped.
type voiceListing struct {
	Voices    []json.RawMessage `json:"voices"`
	Emotions  []string          `json:"emotions"`
	Languages []string          `json:"languages"`
}

// ListVoices returns the service's voice catalog in normalized form.
func (c *Client) ListVoices(ctx context.Context) (*gen.VoiceCatalog, error) {
	var listing voiceListing
	if err := c.getJSON(ctx, c.endpoint+"/voices", c.token, &listing); err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	catalog := &gen.VoiceCatalog{
		Emotions:  listing.Emotions,
		Languages: listing.Languages,
	}
	for _, raw := range listing.Voices {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			catalog.Voices = append(catalog.Voices, name)
			continue
		}
		var entry struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Name != "" {
			catalog.Voices = append(catalog.Voices, entry.Name)
		} else if entry.ID != "" {
			catalog.Voices = append(catalog.Voices, entry.ID)
		}
	}
	return catalog, nil
}

// CloneVoice uploads an audio sample and returns the new speaker id.
func (c *Client) CloneVoice(ctx context.Context, audioSample string) (string, error) {
	if audioSample == "" {
		return "", fmt.Errorf("audio sample is required")
	}
	var response struct {
		SpeakerID string `json:"speaker_id"`
	}
	body := map[string]string{"audio_sample": audioSample}
	if err := c.postJSON(ctx, c.endpoint+"/voices/clone", c.token, body, &response); err != nil {
		return "", fmt.Errorf("failed to clone voice: %w", err)
	}
	if response.SpeakerID == "" {
		return "", fmt.Errorf("voice service returned no speaker id")
	}
	return response.SpeakerID, nil
}

// SynthesizeCloned generates speech from a previously cloned speaker.
func (c *Client) SynthesizeCloned(ctx context.Context, speakerID, text string) (*gen.SpeechResponse, error) {
	if speakerID == "" {
		return nil, fmt.Errorf("speaker id is required")
	}
	var response struct {
		Audio    string `json:"audio"`
		MIMEType string `json:"mime_type"`
	}
	body := map[string]string{"speaker_id": speakerID, "text": text}
	if err := c.postJSON(ctx, c.endpoint+"/speech", c.token, body, &response); err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return &gen.SpeechResponse{Audio: response.Audio, MIMEType: response.MIMEType}, nil
}

func (c *Client) postJSON(ctx context.Context, url, token string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) getJSON(ctx context.Context, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.NewRecoverableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("task service returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
		if retry.ShouldRetryStatus(resp.StatusCode) {
			return retry.NewRecoverableError(err)
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
