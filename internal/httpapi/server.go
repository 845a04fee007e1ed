package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/voxrelay/internal/agent"
	"github.com/antoniostano/voxrelay/internal/config"
	"github.com/antoniostano/voxrelay/internal/observability"
	"github.com/antoniostano/voxrelay/internal/speech"
	"github.com/antoniostano/voxrelay/internal/transcript"
)

type Server struct {
	cfg         config.Config
	pipeline    *agent.Pipeline
	transcripts *transcript.Store
	stt         speech.Transcriber
	tts         speech.Synthesizer
	metrics     *observability.Metrics
	static      http.Handler
}

func New(
	cfg config.Config,
	pipeline *agent.Pipeline,
	transcripts *transcript.Store,
	stt speech.Transcriber,
	tts speech.Synthesizer,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:         cfg,
		pipeline:    pipeline,
		transcripts: transcripts,
		stt:         stt,
		tts:         tts,
		metrics:     metrics,
		static:      newStaticHandler(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/agent/chat/{session_id}", s.handleAgentChat)
	r.Get("/agent/history/{session_id}", s.handleAgentHistory)
	r.Delete("/agent/history/{session_id}", s.handleClearHistory)

	r.Post("/generate-audio", s.handleGenerateAudio)
	r.Post("/upload-audio", s.handleUploadAudio)
	r.Post("/transcribe/file", s.handleTranscribeFile)
	r.Post("/tts/echo", s.handleTTSEcho)
	r.Post("/llm/query", s.handleLLMQuery)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"llm_provider": s.cfg.LLMProvider,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

// cors mirrors the original deployment: any origin is allowed by default
// so a locally served frontend can talk to the relay. With
// APP_ALLOW_ANY_ORIGIN=false only same-host origins get CORS headers.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		allowed := origin != "" && (s.cfg.AllowAnyOrigin || sameHost(origin, r.Host))

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				http.Error(w, "cors preflight not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
