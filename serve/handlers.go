package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	deepthink "github.com/everydev1618/godeepthink"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// handleThink runs a full pipeline synchronously and returns the
// outcome. The connection stays open for the duration of the run;
// clients follow progress on /api/events.
func (s *Server) handleThink(w http.ResponseWriter, r *http.Request) {
	var req ThinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	var opts []deepthink.RunOption
	if req.NPaths > 0 {
		opts = append(opts, deepthink.WithPathCount(req.NPaths))
	}
	if req.TopK > 0 {
		opts = append(opts, deepthink.WithTopK(req.TopK))
	}
	if req.TimeoutSec > 0 {
		opts = append(opts, deepthink.WithGlobalTimeout(time.Duration(req.TimeoutSec)*time.Second))
	}
	if req.MetaRefine != nil {
		opts = append(opts, deepthink.WithMetaRefine(*req.MetaRefine))
	}

	started := time.Now()
	outcome, runErr := s.pipeline.Run(r.Context(), req.Query, opts...)
	if runErr != nil && outcome == nil {
		// Rejected before the run started: validation failure.
		s.writeError(w, http.StatusBadRequest, runErr.Error())
		return
	}

	rec := &RunRecord{
		ID:         outcome.Metadata.RunID,
		Query:      req.Query,
		State:      outcome.Metadata.State,
		Answer:     outcome.Answer,
		CreatedAt:  started,
		FinishedAt: outcome.Metadata.FinishedAt,
		Outcome:    outcome,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := s.store.SaveRun(r.Context(), rec); err != nil {
		s.logger.Warn("persisting run failed", "run_id", rec.ID, "error", err)
	}

	resp := ThinkResponse{
		RunID:    outcome.Metadata.RunID,
		State:    outcome.Metadata.State,
		Answer:   outcome.Answer,
		Warnings: outcome.Warnings,
		Outcome:  outcome,
	}
	if runErr != nil {
		resp.Error = runErr.Error()
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Summaries only; full outcomes come from /api/runs/{id}.
	for _, rec := range recs {
		rec.Outcome = nil
	}
	if recs == nil {
		recs = []*RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleEvents streams pipeline events over SSE until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.broker.Subscribe()
	defer cancel()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

// handleHealth probes the model backend and the run store and reports
// per-component status. Any failing component degrades the overall
// status to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{"backend": "ok", "store": "ok"}
	status := "ok"
	if err := s.pipeline.Ping(ctx); err != nil {
		components["backend"] = err.Error()
		status = "degraded"
	}
	if err := s.store.Ping(ctx); err != nil {
		components["store"] = err.Error()
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, healthResponse{Status: status, Components: components})
}
