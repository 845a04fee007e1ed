package httpapi

import (
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/antoniostano/voxrelay/internal/agent"
	"github.com/antoniostano/voxrelay/internal/llm"
	"github.com/antoniostano/voxrelay/internal/speech"
)

type generateAudioRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req generateAudioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	audioURL, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		respondGatewayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"audio_url": audioURL})
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	data, meta, err := readUploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	storedAs := uuid.NewString() + "_" + filepath.Base(meta.Filename)
	if err := os.WriteFile(filepath.Join(s.cfg.UploadDir, storedAs), data, 0o644); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"filename":     meta.Filename,
		"stored_as":    storedAs,
		"content_type": meta.ContentType,
		"size_kb":      math.Round(float64(len(data))/1024*100) / 100,
	})
}

func (s *Server) handleTranscribeFile(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	text, err := s.stt.Transcribe(r.Context(), data)
	if err != nil {
		respondGatewayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"transcript": text})
}

func (s *Server) handleTTSEcho(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	text, err := s.stt.Transcribe(r.Context(), data)
	if err != nil {
		respondGatewayError(w, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "empty_transcript", "could not transcribe audio")
		return
	}

	audioURL, err := s.tts.Synthesize(r.Context(), text)
	if err != nil {
		respondGatewayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"audio_url":  audioURL,
		"transcript": text,
	})
}

func (s *Server) handleLLMQuery(w http.ResponseWriter, r *http.Request) {
	audio, _, err := readUploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	result, err := s.pipeline.QueryOnce(r.Context(), audio)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyTranscript) {
			respondError(w, http.StatusBadRequest, "empty_transcript", err.Error())
			return
		}
		respondGatewayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondGatewayError maps gateway failures: missing credentials are this
// deployment's fault (500), upstream rejections are a bad gateway (502).
func respondGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, speech.ErrNotConfigured) || errors.Is(err, llm.ErrNotConfigured) {
		respondError(w, http.StatusInternalServerError, "not_configured", "API key not found")
		return
	}
	var statusErr *speech.StatusError
	if errors.As(err, &statusErr) {
		respondError(w, http.StatusBadGateway, "gateway_error", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
