package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

const maxAudioBytes = 32 << 20

// Client talks to a speech synthesis service. The service answers with audio
// bytes directly, or with a JSON body carrying a download URL or inline base64
// audio.
type Client struct {
	endpoint string
	model    string
	voice    string
	apiKey   string
	http     *http.Client
}

var _ ports.SpeechSynthesizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.SpeechConfig, client *http.Client) *Client {
	if client == nil {
		timeout := cfg.Timeout.Std()
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		voice:    cfg.Voice,
		apiKey:   cfg.APIKey,
		http:     client,
	}
}

type synthesisRequest struct {
	Model string `json:"model"`
	Input struct {
		Text  string `json:"text"`
		Voice string `json:"voice,omitempty"`
	} `json:"input"`
}

type synthesisResponse struct {
	Output struct {
		Audio struct {
			URL  string `json:"url"`
			Data string `json:"data"`
		} `json:"audio"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Synthesize returns encoded audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: speech client misconfigured", domain.ErrCollaborator)
	}

	var payload synthesisRequest
	payload.Model = c.model
	payload.Input.Text = text
	payload.Input.Voice = c.voice

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: synthesis request: %v", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read synthesis response: %v", domain.ErrCollaborator, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: synthesis returned %s: %s", domain.ErrCollaborator, resp.Status, snippet(raw))
	}

	if isAudio(resp.Header.Get("Content-Type")) {
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: synthesis returned empty audio", domain.ErrCollaborator)
		}
		return raw, nil
	}

	var decoded synthesisResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode synthesis response: %v", domain.ErrCollaborator, err)
	}
	audioURL := strings.TrimSpace(decoded.Output.Audio.URL)
	if audioURL != "" {
		return c.download(ctx, audioURL)
	}
	if data := strings.TrimSpace(decoded.Output.Audio.Data); data != "" {
		audio, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: inline audio is not base64: %v", domain.ErrSchema, err)
		}
		return audio, nil
	}
	return nil, fmt.Errorf("%w: synthesis response has no audio (code=%q message=%q)", domain.ErrCollaborator, decoded.Code, decoded.Message)
}

func (c *Client) download(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build download request: %v", domain.ErrNetwork, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: download audio: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: audio download returned %s", domain.ErrNetwork, resp.Status)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", domain.ErrNetwork, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: downloaded audio is empty", domain.ErrCollaborator)
	}
	return audio, nil
}

func isAudio(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/")
}

func snippet(raw []byte) string {
	text := strings.Join(strings.Fields(string(raw)), " ")
	if len(text) > 160 {
		text = text[:160] + "..."
	}
	return text
}
