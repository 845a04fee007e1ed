package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	UploadDir      string

	// Gateway credentials. An empty key is not a startup failure: the
	// affected endpoints answer 500 (or degrade in-band) per request.
	AssemblyAIAPIKey string
	MurfAPIKey       string
	GeminiAPIKey     string
	OpenAIAPIKey     string

	AssemblyAIBaseURL string
	MurfBaseURL       string
	MurfVoiceID       string

	LLMProvider string
	LLMHTTPURL  string
	GeminiModel string
	OpenAIModel string

	TTSTimeout      time.Duration
	STTPollInterval time.Duration
	STTPollTimeout  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "voxrelay"),
		UploadDir:         envOrDefault("APP_UPLOAD_DIR", "uploads"),
		AssemblyAIAPIKey:  envTrimmed("ASSEMBLYAI_API_KEY"),
		MurfAPIKey:        envTrimmed("MURF_API_KEY"),
		GeminiAPIKey:      envTrimmed("GEMINI_API_KEY"),
		OpenAIAPIKey:      envTrimmed("OPENAI_API_KEY"),
		AssemblyAIBaseURL: envOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		MurfBaseURL:       envOrDefault("MURF_BASE_URL", "https://api.murf.ai"),
		MurfVoiceID:       envOrDefault("MURF_VOICE_ID", "en-IN-isha"),
		LLMProvider:       envOrDefault("LLM_PROVIDER", "auto"),
		LLMHTTPURL:        envTrimmed("LLM_HTTP_URL"),
		GeminiModel:       envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		ShutdownTimeout:   15 * time.Second,
		// The synthesis gateway carries its own fixed timeout; transcription
		// polling is bounded separately so a stuck job cannot pin a request
		// forever.
		TTSTimeout:      15 * time.Second,
		STTPollInterval: time.Second,
		STTPollTimeout:  2 * time.Minute,
		AllowAnyOrigin:  true,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSTimeout, err = durationFromEnv("TTS_TIMEOUT", cfg.TTSTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.STTPollInterval, err = durationFromEnv("STT_POLL_INTERVAL", cfg.STTPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.STTPollTimeout, err = durationFromEnv("STT_POLL_TIMEOUT", cfg.STTPollTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.TTSTimeout <= 0 {
		return Config{}, fmt.Errorf("TTS_TIMEOUT must be positive")
	}
	if cfg.STTPollInterval <= 0 {
		return Config{}, fmt.Errorf("STT_POLL_INTERVAL must be positive")
	}
	if cfg.STTPollTimeout < cfg.STTPollInterval {
		return Config{}, fmt.Errorf("STT_POLL_TIMEOUT must be at least STT_POLL_INTERVAL")
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return Config{}, fmt.Errorf("APP_UPLOAD_DIR must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
