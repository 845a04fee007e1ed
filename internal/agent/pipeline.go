package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/voxrelay/internal/llm"
	"github.com/antoniostano/voxrelay/internal/observability"
	"github.com/antoniostano/voxrelay/internal/reliability"
	"github.com/antoniostano/voxrelay/internal/speech"
	"github.com/antoniostano/voxrelay/internal/transcript"
)

// FallbackText is substituted whenever a gateway in the pipeline fails.
// Callers can detect a degraded turn by comparing against this literal.
const FallbackText = "I'm having trouble connecting right now."

// maxSpeechChars bounds synthesis input; Murf documents a 3000 character
// ceiling, so replies are cut at 2900 to leave headroom for the marker.
const maxSpeechChars = 2900

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	SessionID          string  `json:"session_id"`
	UserMessage        string  `json:"user_message"`
	AssistantResponse  string  `json:"assistant_response"`
	AudioURL           *string `json:"audio_url"`
	ConversationLength int     `json:"conversation_length"`
	Model              string  `json:"model"`
}

// Pipeline orchestrates one conversational turn: transcription, a
// context-augmented generation call, and synthesis, against the shared
// transcript store. It holds no per-request state of its own.
type Pipeline struct {
	transcripts *transcript.Store
	stt         speech.Transcriber
	brain       llm.Generator
	tts         speech.Synthesizer
	metrics     *observability.Metrics

	// Turns for the same session are serialized so concurrent uploads
	// cannot interleave their store appends.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

func NewPipeline(
	transcripts *transcript.Store,
	stt speech.Transcriber,
	brain llm.Generator,
	tts speech.Synthesizer,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		transcripts:  transcripts,
		stt:          stt,
		brain:        brain,
		tts:          tts,
		metrics:      metrics,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// ProcessTurn runs the full turn for a session. It never fails outward:
// every gateway failure degrades to FallbackText in-band and the result is
// always usable, so the chat endpoint can answer 200 unconditionally.
func (p *Pipeline) ProcessTurn(ctx context.Context, sessionID string, audio []byte) (result TurnResult) {
	lock := p.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	turnStart := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("turn pipeline panic recovered for session %s: %v", sessionID, r)
			p.observeIndicator("turn_recovered")
			audioURL := p.synthesizeWithFallback(ctx, FallbackText)
			result = TurnResult{
				SessionID:          sessionID,
				UserMessage:        FallbackText,
				AssistantResponse:  FallbackText,
				AudioURL:           optionalURL(audioURL),
				ConversationLength: p.transcripts.Len(sessionID),
				Model:              p.brain.Model(),
			}
		}
		p.observeStage("turn_total", time.Since(turnStart))
	}()

	userMessage := p.transcribe(ctx, audio)

	var assistantReply string
	if userMessage == FallbackText {
		// Transcription failed; echo the sentinel without burning an LLM call.
		assistantReply = FallbackText
	} else {
		p.transcripts.Append(sessionID, transcript.Turn{Role: transcript.RoleUser, Content: userMessage})
		assistantReply = p.generate(ctx, sessionID)
	}

	assistantReply = truncateForSpeech(assistantReply)

	ttsStart := time.Now()
	audioURL := p.synthesizeWithFallback(ctx, assistantReply)
	p.observeStage("tts", time.Since(ttsStart))

	// The assistant turn is recorded even when it is the sentinel, so the
	// transcript reflects what the caller was told.
	length := p.transcripts.Append(sessionID, transcript.Turn{Role: transcript.RoleAssistant, Content: assistantReply})

	outcome := "ok"
	if assistantReply == FallbackText || audioURL == "" {
		outcome = "degraded"
	}
	if p.metrics != nil {
		p.metrics.Turns.WithLabelValues(outcome).Inc()
		p.metrics.TrackedSessions.Set(float64(p.transcripts.SessionCount()))
	}

	return TurnResult{
		SessionID:          sessionID,
		UserMessage:        userMessage,
		AssistantResponse:  assistantReply,
		AudioURL:           optionalURL(audioURL),
		ConversationLength: length,
		Model:              p.brain.Model(),
	}
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte) string {
	start := time.Now()
	text, err := p.stt.Transcribe(ctx, audio)
	p.observeStage("stt", time.Since(start))

	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			log.Printf("stt error: %v", err)
			p.recordGatewayError("stt", err)
		}
		p.observeIndicator("stt_fallback")
		return FallbackText
	}
	return text
}

func (p *Pipeline) generate(ctx context.Context, sessionID string) string {
	prompt := BuildPrompt(p.transcripts.History(sessionID))

	start := time.Now()
	reply, err := p.brain.Generate(ctx, prompt)
	p.observeStage("llm", time.Since(start))

	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		if err != nil {
			log.Printf("llm error: %v", err)
			p.recordGatewayError("llm", err)
		}
		p.observeIndicator("llm_fallback")
		return FallbackText
	}
	return reply
}

// synthesizeWithFallback tries the given text and, when that fails, makes
// one more attempt with the sentinel. The bound is structural: the loop
// runs at most twice and the sentinel is never retried against itself.
func (p *Pipeline) synthesizeWithFallback(ctx context.Context, text string) string {
	for attempt := 0; attempt < 2; attempt++ {
		url, err := p.tts.Synthesize(ctx, text)
		if err == nil {
			return url
		}
		log.Printf("tts error: %v", err)
		p.recordGatewayError("tts", err)
		if text == FallbackText {
			return ""
		}
		text = FallbackText
		p.observeIndicator("tts_fallback")
	}
	return ""
}

// BuildPrompt flattens a session transcript into the generation prompt.
func BuildPrompt(history []transcript.Turn) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant. Respond naturally and concisely.\n")
	b.WriteString("Conversation history:\n")
	for _, turn := range history {
		switch turn.Role {
		case transcript.RoleUser:
			fmt.Fprintf(&b, "User: %s\n", turn.Content)
		case transcript.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n", turn.Content)
		}
	}
	b.WriteString("Respond to the latest user message.")
	return b.String()
}

func truncateForSpeech(text string) string {
	r := []rune(text)
	if len(r) <= maxSpeechChars {
		return text
	}
	return string(r[:maxSpeechChars]) + "..."
}

func (p *Pipeline) sessionLock(sessionID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.sessionLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		p.sessionLocks[sessionID] = l
	}
	return l
}

func (p *Pipeline) observeStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, d)
	}
}

func (p *Pipeline) observeIndicator(name string) {
	if p.metrics != nil {
		p.metrics.ObserveIndicator(name)
	}
}

func (p *Pipeline) recordGatewayError(gateway string, err error) {
	if p.metrics == nil {
		return
	}
	class := "transport"
	var statusErr *speech.StatusError
	if errors.As(err, &statusErr) {
		class = reliability.ErrorClass(statusErr.Code)
	}
	p.metrics.GatewayErrors.WithLabelValues(gateway, class).Inc()
}

func optionalURL(url string) *string {
	if url == "" {
		return nil
	}
	return &url
}
