package app

import (
	"context"
	"fmt"

	"github.com/antoniostano/voxrelay/internal/agent"
	"github.com/antoniostano/voxrelay/internal/config"
	"github.com/antoniostano/voxrelay/internal/httpapi"
	"github.com/antoniostano/voxrelay/internal/llm"
	"github.com/antoniostano/voxrelay/internal/observability"
	"github.com/antoniostano/voxrelay/internal/speech"
	"github.com/antoniostano/voxrelay/internal/transcript"
)

type BuildResult struct {
	Config      config.Config
	API         *httpapi.Server
	Pipeline    *agent.Pipeline
	Transcripts *transcript.Store
	Metrics     *observability.Metrics

	// LLMModel identifies the resolved backend for startup logging.
	LLMModel string
}

// Build assembles the relay from configuration: transcript store, gateway
// clients, the resolved LLM backend, the turn pipeline and the HTTP API.
// Missing gateway credentials are not a build failure; the affected
// endpoints report them per request.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	transcripts := transcript.NewStore()

	stt := speech.NewAssemblyAIClient(speech.AssemblyAIConfig{
		APIKey:       cfg.AssemblyAIAPIKey,
		BaseURL:      cfg.AssemblyAIBaseURL,
		PollInterval: cfg.STTPollInterval,
		PollTimeout:  cfg.STTPollTimeout,
	})
	tts := speech.NewMurfClient(speech.MurfConfig{
		APIKey:  cfg.MurfAPIKey,
		BaseURL: cfg.MurfBaseURL,
		VoiceID: cfg.MurfVoiceID,
		Timeout: cfg.TTSTimeout,
	})

	brain, err := llm.NewGenerator(ctx, llm.Config{
		Provider:     cfg.LLMProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		HTTPURL:      cfg.LLMHTTPURL,
	})
	if err != nil {
		return nil, fmt.Errorf("llm backend init failed: %w", err)
	}

	pipeline := agent.NewPipeline(transcripts, stt, brain, tts, metrics)
	api := httpapi.New(cfg, pipeline, transcripts, stt, tts, metrics)

	return &BuildResult{
		Config:      cfg,
		API:         api,
		Pipeline:    pipeline,
		Transcripts: transcripts,
		Metrics:     metrics,
		LLMModel:    brain.Model(),
	}, nil
}
