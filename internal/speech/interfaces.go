package speech

import (
	"context"
	"errors"
	"fmt"
)

// Transcriber converts recorded audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text into a hosted audio URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// ErrNotConfigured is returned when a gateway is called without an API key.
// Key absence is a per-request failure, not a startup one.
var ErrNotConfigured = errors.New("speech gateway not configured")

// StatusError reports a non-success response from a speech gateway.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
}
