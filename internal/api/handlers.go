// SPDX-License-Identifier: MIT

// Package api exposes the intake HTTP surface: session initialization,
// per-slot completion increments from upload workers, the event-emitter
// ingress and the operator-facing pipeline status view.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/openfoto/intake/internal/config"
	"github.com/openfoto/intake/internal/flow"
	"github.com/openfoto/intake/internal/log"
	"github.com/openfoto/intake/internal/tracker"
)

// Server bundles the handlers' dependencies.
type Server struct {
	repo   *tracker.Repository
	events *flow.EventLog
	cfg    config.AppConfig
	logger zerolog.Logger
}

// NewServer builds the API server.
func NewServer(repo *tracker.Repository, events *flow.EventLog, cfg config.AppConfig, logger zerolog.Logger) *Server {
	return &Server{
		repo:   repo,
		events: events,
		cfg:    cfg,
		logger: logger,
	}
}

type initSessionRequest struct {
	Tenant    string   `json:"tenant"`
	Reference string   `json:"reference"`
	SlotKeys  []string `json:"slot_keys"`
}

type incrementResponse struct {
	Outcome  tracker.Outcome `json:"outcome"`
	Finalize bool            `json:"finalize"`
}

type slotView struct {
	Index         int    `json:"index"`
	SourceKey     string `json:"source_key"`
	Uploaded      bool   `json:"uploaded"`
	ThumbnailKey  string `json:"thumbnail_key,omitempty"`
	ExifProcessed bool   `json:"exif_processed"`
}

type sessionResponse struct {
	Tenant     string     `json:"tenant"`
	Reference  string     `json:"reference"`
	Expected   int        `json:"expected"`
	Processed  int        `json:"processed"`
	Finalized  bool       `json:"finalized"`
	Validated  bool       `json:"validated"`
	ArchiveKey string     `json:"archive_key,omitempty"`
	SheetKey   string     `json:"sheet_key,omitempty"`
	Errors     []string   `json:"errors,omitempty"`
	Slots      []slotView `json:"slots"`
}

type pipelineResponse struct {
	Tenant    string          `json:"tenant"`
	Reference string          `json:"reference"`
	Steps     []flow.FlowStep `json:"steps"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	var req initSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Tenant == "" || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "tenant and reference are required")
		return
	}
	if len(req.SlotKeys) == 0 {
		writeError(w, http.StatusBadRequest, "slot_keys must not be empty")
		return
	}

	ctx := log.ContextWithParticipant(r.Context(), req.Tenant, req.Reference)
	if err := s.repo.InitializeSession(ctx, req.Tenant, req.Reference, req.SlotKeys); err != nil {
		logger := log.WithContext(ctx, s.logger)
		logger.Error().Err(err).Msg("session initialization failed")
		writeError(w, http.StatusInternalServerError, "session initialization failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"expected": len(req.SlotKeys)})
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	reference := chi.URLParam(r, "reference")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "slot index must be an integer")
		return
	}

	ctx := log.ContextWithParticipant(r.Context(), tenant, reference)
	result, err := s.repo.IncrementCompletion(ctx, tenant, reference, index)
	switch {
	case errors.Is(err, tracker.ErrInvalidSlotIndex):
		writeError(w, http.StatusUnprocessableEntity, "slot index outside declared range")
		return
	case errors.Is(err, tracker.ErrSessionMissing):
		writeError(w, http.StatusNotFound, "session not initialized")
		return
	case err != nil:
		logger := log.WithContext(ctx, s.logger)
		logger.Error().Err(err).Msg("completion increment failed")
		writeError(w, http.StatusInternalServerError, "completion increment failed")
		return
	}
	writeJSON(w, http.StatusOK, incrementResponse{
		Outcome:  result.Outcome,
		Finalize: result.Finalize,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	reference := chi.URLParam(r, "reference")

	ctx := log.ContextWithParticipant(r.Context(), tenant, reference)
	session, ok := s.repo.GetSession(ctx, tenant, reference)
	if !ok {
		writeError(w, http.StatusNotFound, "session unknown")
		return
	}

	resp := sessionResponse{
		Tenant:     tenant,
		Reference:  reference,
		Expected:   session.Expected,
		Processed:  session.ProcessedCount(),
		Finalized:  session.Finalized,
		Validated:  session.Validated,
		ArchiveKey: session.ArchiveKey,
		SheetKey:   session.SheetKey,
		Errors:     session.Errors,
		Slots:      []slotView{},
	}
	for _, slot := range s.repo.GetAllSlots(ctx, tenant, reference) {
		resp.Slots = append(resp.Slots, slotView{
			Index:         slot.Index,
			SourceKey:     slot.SourceKey,
			Uploaded:      slot.Uploaded,
			ThumbnailKey:  slot.ThumbnailKey,
			ExifProcessed: slot.ExifProcessed,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	reference := chi.URLParam(r, "reference")
	ctx := log.ContextWithParticipant(r.Context(), tenant, reference)

	// Expected worker count: query override first, else the session.
	expected := 0
	if raw := r.URL.Query().Get("workers"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			expected = n
		}
	} else if session, ok := s.repo.GetSession(ctx, tenant, reference); ok {
		expected = session.Expected
	}

	events, err := s.events.All(ctx, tenant, reference)
	if err != nil {
		// The status view is best effort; reconstruct from nothing
		// rather than failing the display.
		logger := log.WithContext(ctx, s.logger)
		logger.Warn().Err(err).Msg("event log read failed")
		events = nil
	}

	steps := flow.Reconstruct(events, flow.Options{
		WorkerPrefix:    s.cfg.WorkerTaskPrefix,
		ExpectedWorkers: expected,
	})
	writeJSON(w, http.StatusOK, pipelineResponse{
		Tenant:    tenant,
		Reference: reference,
		Steps:     steps,
	})
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	var event flow.TaskEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if event.Tenant == "" || event.Reference == "" {
		writeError(w, http.StatusBadRequest, "tenant and reference are required")
		return
	}
	if err := event.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := log.ContextWithParticipant(r.Context(), event.Tenant, event.Reference)
	if err := s.events.Append(ctx, event.Tenant, event.Reference, event); err != nil {
		logger := log.WithContext(ctx, s.logger)
		logger.Error().Err(err).Msg("event append failed")
		writeError(w, http.StatusInternalServerError, "event append failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
