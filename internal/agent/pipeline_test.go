package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/antoniostano/voxrelay/internal/llm"
	"github.com/antoniostano/voxrelay/internal/speech"
	"github.com/antoniostano/voxrelay/internal/transcript"
)

func newTestPipeline(stt *speech.MockTranscriber, brain *llm.MockGenerator, tts *speech.MockSynthesizer) (*Pipeline, *transcript.Store) {
	store := transcript.NewStore()
	return NewPipeline(store, stt, brain, tts, nil), store
}

func TestProcessTurnHappyPath(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "  Hello  "}
	brain := &llm.MockGenerator{Reply: "Hi there"}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/a.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.UserMessage != "Hello" {
		t.Fatalf("UserMessage = %q, want trimmed %q", res.UserMessage, "Hello")
	}
	if res.AssistantResponse != "Hi there" {
		t.Fatalf("AssistantResponse = %q, want %q", res.AssistantResponse, "Hi there")
	}
	if res.AudioURL == nil || *res.AudioURL != "https://cdn.example/a.mp3" {
		t.Fatalf("AudioURL = %v, want synthesized url", res.AudioURL)
	}
	if res.ConversationLength != 2 {
		t.Fatalf("ConversationLength = %d, want 2", res.ConversationLength)
	}
	if res.Model != "mock" {
		t.Fatalf("Model = %q, want %q", res.Model, "mock")
	}
}

func TestProcessTurnSTTFailureSkipsLLM(t *testing.T) {
	stt := &speech.MockTranscriber{Err: errors.New("upstream down")}
	brain := &llm.MockGenerator{Reply: "should not be called"}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/f.mp3"}
	p, store := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.UserMessage != FallbackText || res.AssistantResponse != FallbackText {
		t.Fatalf("degraded turn = (%q, %q), want sentinel for both", res.UserMessage, res.AssistantResponse)
	}
	if len(brain.Prompts) != 0 {
		t.Fatalf("LLM was called %d times after STT failure, want 0", len(brain.Prompts))
	}
	// Only the assistant sentinel turn is recorded; no user turn exists.
	hist := store.History("s1")
	if len(hist) != 1 {
		t.Fatalf("stored turns = %d, want 1", len(hist))
	}
	if hist[0].Role != transcript.RoleAssistant || hist[0].Content != FallbackText {
		t.Fatalf("stored turn = %+v, want assistant sentinel", hist[0])
	}
	if res.ConversationLength != 1 {
		t.Fatalf("ConversationLength = %d, want 1", res.ConversationLength)
	}
}

func TestProcessTurnEmptyTranscriptDegrades(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "   "}
	brain := &llm.MockGenerator{}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/f.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))
	if res.UserMessage != FallbackText {
		t.Fatalf("UserMessage = %q for empty transcript, want sentinel", res.UserMessage)
	}
	if len(brain.Prompts) != 0 {
		t.Fatalf("LLM called on empty transcript, want skipped")
	}
}

func TestProcessTurnLLMFailureDegradesReply(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Err: errors.New("quota exceeded")}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/f.mp3"}
	p, store := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.UserMessage != "Hello" {
		t.Fatalf("UserMessage = %q, want transcript to survive LLM failure", res.UserMessage)
	}
	if res.AssistantResponse != FallbackText {
		t.Fatalf("AssistantResponse = %q, want sentinel", res.AssistantResponse)
	}
	// Both the user turn and the sentinel assistant turn are recorded.
	if got := store.Len("s1"); got != 2 {
		t.Fatalf("stored turns = %d, want 2", got)
	}
	if res.ConversationLength != 2 {
		t.Fatalf("ConversationLength = %d, want 2", res.ConversationLength)
	}
}

func TestProcessTurnTruncatesLongReplies(t *testing.T) {
	long := strings.Repeat("x", 3500)
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Reply: long}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/a.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	want := strings.Repeat("x", 2900) + "..."
	if res.AssistantResponse != want {
		t.Fatalf("AssistantResponse length = %d, want 2900 chars plus ellipsis", len(res.AssistantResponse))
	}
	if len(tts.Texts) != 1 || tts.Texts[0] != want {
		t.Fatalf("synthesized text length = %d, want truncated text", len(tts.Texts[0]))
	}
}

func TestProcessTurnShortRepliesUntouched(t *testing.T) {
	reply := strings.Repeat("y", 2000)
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Reply: reply}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/a.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))
	if res.AssistantResponse != reply {
		t.Fatalf("AssistantResponse modified for short reply, want untouched")
	}
}

func TestSynthesizeWithFallbackRetriesOnceWithSentinel(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Reply: "Hi there"}
	tts := &speech.MockSynthesizer{
		Fn: func(text string) (string, error) {
			if text == FallbackText {
				return "https://cdn.example/fallback.mp3", nil
			}
			return "", errors.New("synthesis rejected")
		},
	}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.AudioURL == nil || *res.AudioURL != "https://cdn.example/fallback.mp3" {
		t.Fatalf("AudioURL = %v, want sentinel-text audio url", res.AudioURL)
	}
	if len(tts.Texts) != 2 {
		t.Fatalf("synthesis attempts = %d, want exactly 2 (original then sentinel)", len(tts.Texts))
	}
	if tts.Texts[1] != FallbackText {
		t.Fatalf("retry text = %q, want sentinel", tts.Texts[1])
	}
}

func TestSynthesizeWithFallbackGivesUpAfterSentinelFails(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Reply: "Hi there"}
	tts := &speech.MockSynthesizer{Err: errors.New("synthesis down")}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.AudioURL != nil {
		t.Fatalf("AudioURL = %q, want nil when even the sentinel fails", *res.AudioURL)
	}
	if len(tts.Texts) != 2 {
		t.Fatalf("synthesis attempts = %d, want exactly 2 then give up", len(tts.Texts))
	}
	if res.AssistantResponse != "Hi there" {
		t.Fatalf("AssistantResponse = %q, textual reply must survive synthesis failure", res.AssistantResponse)
	}
}

func TestSynthesizeWithFallbackSentinelInputFailsImmediately(t *testing.T) {
	tts := &speech.MockSynthesizer{Err: errors.New("synthesis down")}
	p, _ := newTestPipeline(&speech.MockTranscriber{}, &llm.MockGenerator{}, tts)

	if got := p.synthesizeWithFallback(context.Background(), FallbackText); got != "" {
		t.Fatalf("synthesizeWithFallback(sentinel) = %q, want empty", got)
	}
	if len(tts.Texts) != 1 {
		t.Fatalf("synthesis attempts = %d for sentinel input, want 1 (no retry loop)", len(tts.Texts))
	}
}

func TestProcessTurnBuildsPromptFromFullHistory(t *testing.T) {
	replies := []string{"Hi there", "Doing great"}
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{}
	brain.Fn = func(string) (string, error) {
		return replies[len(brain.Prompts)-1], nil
	}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/a.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	first := p.ProcessTurn(context.Background(), "s1", []byte("audio"))
	if first.UserMessage != "Hello" || first.AssistantResponse != "Hi there" {
		t.Fatalf("first turn = (%q, %q), want (Hello, Hi there)", first.UserMessage, first.AssistantResponse)
	}
	if first.ConversationLength != 2 {
		t.Fatalf("first ConversationLength = %d, want 2", first.ConversationLength)
	}

	stt.Text = "How are you"
	second := p.ProcessTurn(context.Background(), "s1", []byte("audio"))
	if second.ConversationLength != 4 {
		t.Fatalf("second ConversationLength = %d, want 4", second.ConversationLength)
	}

	prompt := brain.Prompts[1]
	for _, line := range []string{"User: Hello", "Assistant: Hi there", "User: How are you"} {
		if !strings.Contains(prompt, line) {
			t.Fatalf("second prompt missing %q:\n%s", line, prompt)
		}
	}
	if !strings.Contains(prompt, "Respond to the latest user message.") {
		t.Fatalf("prompt missing closing instruction:\n%s", prompt)
	}
}

func TestProcessTurnRecoverFromPanic(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "Hello"}
	brain := &llm.MockGenerator{Fn: func(string) (string, error) {
		panic("generator blew up")
	}}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/f.mp3"}
	p, _ := newTestPipeline(stt, brain, tts)

	res := p.ProcessTurn(context.Background(), "s1", []byte("audio"))

	if res.UserMessage != FallbackText || res.AssistantResponse != FallbackText {
		t.Fatalf("recovered turn = (%q, %q), want sentinel for both", res.UserMessage, res.AssistantResponse)
	}
	if res.AudioURL == nil || *res.AudioURL != "https://cdn.example/f.mp3" {
		t.Fatalf("recovered AudioURL = %v, want best-effort sentinel synthesis", res.AudioURL)
	}
	if res.SessionID != "s1" {
		t.Fatalf("SessionID = %q, want %q", res.SessionID, "s1")
	}
}

func TestQueryOnceSingleShot(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "What is Go"}
	brain := &llm.MockGenerator{Reply: "A programming language."}
	tts := &speech.MockSynthesizer{URL: "https://cdn.example/q.mp3"}
	p, store := newTestPipeline(stt, brain, tts)

	res, err := p.QueryOnce(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("QueryOnce() error = %v", err)
	}
	if res.UserQuery != "What is Go" || res.Response != "A programming language." {
		t.Fatalf("QueryOnce() = %+v, unexpected transcript or reply", res)
	}
	if res.AudioURL != "https://cdn.example/q.mp3" {
		t.Fatalf("AudioURL = %q, want synthesized url", res.AudioURL)
	}
	if !strings.Contains(brain.Prompts[0], "concise and helpful response") {
		t.Fatalf("single-shot prompt = %q, want the concise-answer instruction", brain.Prompts[0])
	}
	if store.SessionCount() != 0 {
		t.Fatalf("QueryOnce() stored history, want none")
	}
}

func TestQueryOnceEmptyTranscript(t *testing.T) {
	p, _ := newTestPipeline(&speech.MockTranscriber{Text: "  "}, &llm.MockGenerator{}, &speech.MockSynthesizer{})

	_, err := p.QueryOnce(context.Background(), []byte("audio"))
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("QueryOnce() error = %v, want ErrEmptyTranscript", err)
	}
}

func TestQueryOnceSynthesisFailureIsAnError(t *testing.T) {
	stt := &speech.MockTranscriber{Text: "What is Go"}
	brain := &llm.MockGenerator{Reply: "A language."}
	tts := &speech.MockSynthesizer{Err: errors.New("synthesis down")}
	p, _ := newTestPipeline(stt, brain, tts)

	if _, err := p.QueryOnce(context.Background(), []byte("audio")); err == nil {
		t.Fatalf("QueryOnce() expected error on synthesis failure, got nil")
	}
}
