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

// AssemblyAIConfig controls the AssemblyAI transcription client.
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// AssemblyAIClient transcribes audio through AssemblyAI's async API:
// upload the bytes, create a transcript job, poll until it settles.
type AssemblyAIClient struct {
	cfg    AssemblyAIConfig
	client *http.Client
}

func NewAssemblyAIClient(cfg AssemblyAIConfig) *AssemblyAIClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Minute
	}
	return &AssemblyAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", fmt.Errorf("assemblyai: %w", ErrNotConfigured)
	}

	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	jobID, err := c.createJob(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	return c.awaitJob(ctx, jobID)
}

func (c *AssemblyAIClient) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out assemblyUploadResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload audio: empty upload_url in response")
	}
	return out.UploadURL, nil
}

func (c *AssemblyAIClient) createJob(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var out assemblyTranscriptResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("create transcript job: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create transcript job: empty id in response")
	}
	return out.ID, nil
}

func (c *AssemblyAIClient) awaitJob(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/transcript/"+jobID, nil)
		if err != nil {
			return "", fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Authorization", c.cfg.APIKey)

		var out assemblyTranscriptResponse
		if err := c.do(req, &out); err != nil {
			return "", fmt.Errorf("poll transcript: %w", err)
		}

		switch out.Status {
		case "completed":
			return out.Text, nil
		case "error":
			return "", fmt.Errorf("assemblyai transcription failed: %s", out.Error)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("await transcript %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *AssemblyAIClient) do(req *http.Request, out any) error {
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{Provider: "assemblyai", Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
