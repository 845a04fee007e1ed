package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyTranscript reports audio that produced no usable text.
var ErrEmptyTranscript = errors.New("could not transcribe audio")

// QueryResult is the outcome of a single-shot audio query. Unlike
// ProcessTurn it keeps no history and surfaces failures as errors.
type QueryResult struct {
	UserQuery string `json:"user_query"`
	Response  string `json:"llm_response"`
	AudioURL  string `json:"audio_url"`
	Model     string `json:"model"`
}

// QueryOnce runs audio through transcription, a single contextless
// generation call, and synthesis.
func (p *Pipeline) QueryOnce(ctx context.Context, audio []byte) (QueryResult, error) {
	start := time.Now()
	text, err := p.stt.Transcribe(ctx, audio)
	p.observeStage("stt", time.Since(start))
	if err != nil {
		p.recordGatewayError("stt", err)
		return QueryResult{}, fmt.Errorf("transcribe audio: %w", err)
	}
	userQuery := strings.TrimSpace(text)
	if userQuery == "" {
		return QueryResult{}, ErrEmptyTranscript
	}

	prompt := fmt.Sprintf("Please provide a concise and helpful response (under 200 words) to this question: %s", userQuery)

	start = time.Now()
	reply, err := p.brain.Generate(ctx, prompt)
	p.observeStage("llm", time.Since(start))
	if err != nil {
		p.recordGatewayError("llm", err)
		return QueryResult{}, fmt.Errorf("generate reply: %w", err)
	}
	reply = truncateForSpeech(strings.TrimSpace(reply))

	start = time.Now()
	audioURL, err := p.tts.Synthesize(ctx, reply)
	p.observeStage("tts", time.Since(start))
	if err != nil {
		p.recordGatewayError("tts", err)
		return QueryResult{}, fmt.Errorf("synthesize reply: %w", err)
	}

	return QueryResult{
		UserQuery: userQuery,
		Response:  reply,
		AudioURL:  audioURL,
		Model:     p.brain.Model(),
	}, nil
}
