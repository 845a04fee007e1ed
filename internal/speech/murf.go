package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MurfConfig controls the Murf speech generation client.
type MurfConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Format  string
	Timeout time.Duration
}

// MurfClient turns text into a hosted audio file via Murf's generate API.
// Murf caps input at roughly 3000 characters; callers truncate before
// handing text over.
type MurfClient struct {
	cfg    MurfConfig
	client *http.Client
}

func NewMurfClient(cfg MurfConfig) *MurfClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.murf.ai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "en-IN-isha"
	}
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = "mp3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &MurfClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type murfGenerateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Format  string `json:"format"`
}

type murfGenerateResponse struct {
	AudioFile string `json:"audioFile"`
}

func (c *MurfClient) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", fmt.Errorf("murf: %w", ErrNotConfigured)
	}

	payload, err := json.Marshal(murfGenerateRequest{
		Text:    text,
		VoiceID: c.cfg.VoiceID,
		Format:  c.cfg.Format,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send generate request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: "murf", Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out murfGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if out.AudioFile == "" {
		return "", fmt.Errorf("murf response missing audioFile")
	}
	return out.AudioFile, nil
}
