// Package api exposes the call-generation REST surface.
//
// All endpoints live under /api/v1. Scenario validation happens here, before
// any pipeline stage runs, so a malformed request never spends a paid
// synthesis call. Swagger UI is served at /swagger/.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/calldrill/calldrill/docs"
	"github.com/calldrill/calldrill/internal/artifact"
	"github.com/calldrill/calldrill/internal/audio"
	"github.com/calldrill/calldrill/internal/dialogue"
	"github.com/calldrill/calldrill/internal/pipeline"
	"github.com/calldrill/calldrill/internal/scenario"
	"github.com/calldrill/calldrill/internal/synth"
)

const maxRequestBody = 1 << 20

// CallRunner executes the call pipeline for one validated scenario.
type CallRunner interface {
	Run(ctx context.Context, scn *scenario.CallScenario) (*pipeline.Result, error)
}

// Server hosts the REST API.
type Server struct {
	port     int
	pipeline CallRunner
	store    *artifact.Store
	backend  synth.Backend
	loader   *dialogue.Loader
	ready    atomic.Bool
	server   *http.Server
}

// New assembles the API server around its collaborators.
func New(port int, p CallRunner, store *artifact.Store, backend synth.Backend, loader *dialogue.Loader) *Server {
	return &Server{port: port, pipeline: p, store: store, backend: backend, loader: loader}
}

// SetReady marks the server as ready to accept call requests.
func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// previewRequest is the body for POST /voices/preview.
type previewRequest struct {
	VoiceID string `json:"voice_id"`
	Text    string `json:"text,omitempty"`
}

// routes builds the chi router serving the API.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/calls", s.handleCreateCall)
		r.Get("/calls/{ref}/download", s.handleDownload)
		r.Get("/voices", s.handleVoices)
		r.Post("/voices/preview", s.handlePreview)
		r.Get("/scripts", s.handleScripts)
		r.Get("/health", s.handleHealth)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return r
}

// ListenAndServe starts the server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// Close shuts the server down outside of context cancellation.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleCreateCall runs the full call pipeline for one scenario.
//
// @Summary     Generate a simulated emergency call
// @Description Validates the scenario, composes or loads the dialogue script, synthesizes
// @Description each utterance, assembles the audio with pacing, diarization, quality
// @Description degradation and background noise, and stores the finished artifact.
// @Tags        calls
// @Accept      json
// @Produce     json
// @Param       scenario  body      scenario.CallScenario  true  "Call scenario"
// @Success     200  {object}  pipeline.Result  "Finished call summary with download reference"
// @Failure     400  {object}  api.errorResponse  "Scenario or transcript validation failure"
// @Failure     502  {object}  api.errorResponse  "Dialogue or synthesis backend failure"
// @Failure     500  {object}  api.errorResponse  "Audio processing or storage failure"
// @Router      /calls [post]
func (s *Server) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var scn scenario.CallScenario
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&scn); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if err := scn.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.pipeline.Run(r.Context(), &scn)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			slog.Error("call pipeline failed", "call_type", scn.CallType, "error", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDownload streams a stored call artifact.
//
// @Summary     Download a generated call
// @Tags        calls
// @Produce     audio/mpeg
// @Produce     audio/wav
// @Param       ref  path  string  true  "Download reference returned by POST /calls"
// @Success     200  {file}    file  "Call audio"
// @Failure     404  {object}  api.errorResponse  "Unknown or expired reference"
// @Router      /calls/{ref}/download [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	f, size, err := s.store.Open(ref)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	defer f.Close()

	contentType := "audio/wav"
	if ref[len(ref)-3:] == "mp3" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref))
	_, _ = io.Copy(w, f)
}

// handleVoices lists the synthesis voices available for assignment.
//
// @Summary     List available voices
// @Tags        voices
// @Produce     json
// @Success     200  {array}   synth.Voice
// @Failure     502  {object}  api.errorResponse  "Synthesis backend unavailable"
// @Router      /voices [get]
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.backend.Voices(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

// handlePreview synthesizes a short sample for one voice.
//
// @Summary     Preview a voice
// @Tags        voices
// @Accept      json
// @Produce     audio/mpeg
// @Param       request  body  api.previewRequest  true  "Voice to preview and optional sample text"
// @Success     200  {file}    file  "MP3 sample"
// @Failure     400  {object}  api.errorResponse  "Missing voice id"
// @Failure     502  {object}  api.errorResponse  "Synthesis backend failure"
// @Router      /voices/preview [post]
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if req.VoiceID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("voice_id is required"))
		return
	}

	data, err := s.backend.Preview(r.Context(), req.VoiceID, req.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(data)
}

// handleScripts lists the preloaded transcripts.
//
// @Summary     List preloaded call transcripts
// @Tags        scripts
// @Produce     json
// @Success     200  {array}   dialogue.ScriptInfo
// @Failure     500  {object}  api.errorResponse
// @Router      /scripts [get]
func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := s.loader.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if scripts == nil {
		scripts = []dialogue.ScriptInfo{}
	}
	writeJSON(w, http.StatusOK, scripts)
}

// handleHealth reports liveness and readiness.
//
// @Summary     Health check
// @Tags        health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string
// @Router      /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline errors onto HTTP status codes. Client mistakes are
// 400, upstream provider failures 502, everything else 500.
func statusFor(err error) int {
	var (
		validationErr *scenario.ValidationError
		scriptErr     *scenario.ScriptValidationError
		genErr        *dialogue.GenerationError
		synthErr      *synth.SynthesisError
		procErr       *audio.ProcessingError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &scriptErr):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &genErr), errors.As(err, &synthErr):
		return http.StatusBadGateway
	case errors.As(err, &procErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
