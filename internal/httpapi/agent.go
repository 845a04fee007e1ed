package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/voxrelay/internal/transcript"
)

// maxAudioUpload caps an uploaded recording at 32 MiB.
const maxAudioUpload = 32 << 20

type historyResponse struct {
	SessionID    string            `json:"session_id"`
	History      []transcript.Turn `json:"history"`
	MessageCount int               `json:"message_count"`
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	audio, _, err := readUploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	// Failures inside the turn degrade in-band to the fallback sentinel;
	// this endpoint always answers 200.
	result := s.pipeline.ProcessTurn(r.Context(), sessionID, audio)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAgentHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	history := s.transcripts.History(sessionID)
	if history == nil {
		history = []transcript.Turn{}
	}
	respondJSON(w, http.StatusOK, historyResponse{
		SessionID:    sessionID,
		History:      history,
		MessageCount: len(history),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	cleared := s.transcripts.Clear(sessionID)
	if s.metrics != nil {
		s.metrics.TrackedSessions.Set(float64(s.transcripts.SessionCount()))
	}

	message := fmt.Sprintf("No chat history found for session %s", sessionID)
	if cleared {
		message = fmt.Sprintf("Chat history cleared for session %s", sessionID)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

func readUploadedFile(r *http.Request) ([]byte, *fileMeta, error) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		return nil, nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("form field %q: %w", "file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioUpload))
	if err != nil {
		return nil, nil, fmt.Errorf("read uploaded file: %w", err)
	}
	return data, &fileMeta{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

type fileMeta struct {
	Filename    string
	ContentType string
}
