package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seen-ai/talentq"
)

// Handlers serves the queue API over a manager of engines.
type Handlers struct {
	mgr              *talentq.Manager
	shutdownDeadline time.Duration
	log              talentq.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(mgr *talentq.Manager, shutdownDeadline time.Duration, log talentq.Logger) *Handlers {
	if shutdownDeadline <= 0 {
		shutdownDeadline = 30 * time.Second
	}
	if log == nil {
		log = talentq.NewFmtLogger()
	}
	return &Handlers{mgr: mgr, shutdownDeadline: shutdownDeadline, log: log}
}

type jobStatusResponse struct {
	Success     bool            `json:"success"`
	JobID       string          `json:"jobId"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Attempts    int             `json:"attempts"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	StartedAt   int64           `json:"startedAt,omitempty"`
	CompletedAt int64           `json:"completedAt,omitempty"`
}

func jobResponse(j *talentq.Job) jobStatusResponse {
	return jobStatusResponse{
		Success:     true,
		JobID:       j.ID,
		Status:      j.Status.String(),
		Progress:    j.Progress,
		Attempts:    j.Attempts,
		Result:      json.RawMessage(j.Result),
		Error:       j.Error,
		ErrorCode:   j.ErrorCode,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// CreateJob accepts a domain payload and returns 202 with the job id and a
// poll URL. This is the async boundary; AI latency never blocks here.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	queue := chi.URLParam(r, "queue")
	eng, err := h.mgr.Get(queue)
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_QUEUE", "unknown queue: "+queue)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body is required")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be JSON")
		return
	}

	id, err := eng.CreateJob(r.Context(), body, queue)
	if err != nil {
		switch {
		case errors.Is(err, talentq.ErrEmptyPayload):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, talentq.ErrEngineClosed):
			writeError(w, http.StatusServiceUnavailable, "QUEUE_CLOSED", err.Error())
		default:
			h.log.Errorf("create job failed: queue=%s err=%v", queue, err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "job creation failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":     true,
		"jobId":       id,
		"status":      talentq.StatusPending.String(),
		"estimatedMs": eng.EstimateFor(body).Milliseconds(),
		"pollUrl":     fmt.Sprintf("/%s/jobs/%s/status", queue, id),
	})
}

// JobStatus returns the current snapshot of one job.
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	queue := chi.URLParam(r, "queue")
	jobID := chi.URLParam(r, "jobID")
	eng, err := h.mgr.Get(queue)
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_QUEUE", "unknown queue: "+queue)
		return
	}
	job, err := eng.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, talentq.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found: "+jobID)
			return
		}
		h.log.Errorf("job status failed: queue=%s id=%s err=%v", queue, jobID, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "status lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

// ListJobs returns every known job of a queue in insertion order.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	queue := chi.URLParam(r, "queue")
	eng, err := h.mgr.Get(queue)
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_QUEUE", "unknown queue: "+queue)
		return
	}
	jobs, err := eng.GetAllJobs(r.Context())
	if err != nil {
		h.log.Errorf("list jobs failed: queue=%s err=%v", queue, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "job listing failed")
		return
	}
	data := make([]jobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		data = append(data, jobResponse(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// Stats returns the per-bucket counts of one queue.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	queue := chi.URLParam(r, "queue")
	eng, err := h.mgr.Get(queue)
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_QUEUE", "unknown queue: "+queue)
		return
	}
	st, err := eng.Stats(r.Context())
	if err != nil {
		h.log.Errorf("stats failed: queue=%s err=%v", queue, err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Health reports aggregate and per-queue health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	hs := h.mgr.Health(r.Context())
	status := http.StatusOK
	if !hs.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, hs)
}

type cleanupRequest struct {
	MaxAgeHours float64 `json:"maxAgeHours"`
}

// CleanupAll purges terminal jobs older than the requested age on all queues.
func (h *Handlers) CleanupAll(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MaxAgeHours <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "maxAgeHours must be a positive number")
		return
	}
	maxAge := time.Duration(req.MaxAgeHours * float64(time.Hour))
	removed, err := h.mgr.CleanupAll(r.Context(), maxAge)
	if err != nil {
		h.log.Errorf("cleanup failed: err=%v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

// ShutdownAll drains every queue: no new dispatch, in-flight jobs run to
// completion or the drain deadline, whichever comes first.
func (h *Handlers) ShutdownAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.shutdownDeadline)
	defer cancel()
	if err := h.mgr.ShutdownAll(ctx); err != nil {
		h.log.Warnf("shutdown drain incomplete: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "drained": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drained": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"error":   msg,
	})
}
