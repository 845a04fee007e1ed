package speech

import "context"

// MockTranscriber is a deterministic Transcriber for tests and local use.
type MockTranscriber struct {
	Text  string
	Err   error
	Calls int
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// MockSynthesizer is a deterministic Synthesizer for tests and local use.
// When Fn is set it drives the result; otherwise URL/Err are returned.
type MockSynthesizer struct {
	URL   string
	Err   error
	Fn    func(text string) (string, error)
	Texts []string
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) (string, error) {
	m.Texts = append(m.Texts, text)
	if m.Fn != nil {
		return m.Fn(text)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.URL, nil
}
