package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maltedev/maps-review-scraper/internal/batch"
	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/queue"
)

const (
	outboxWarnThreshold = 1000
	queueWarnThreshold  = 500
)

// OutboxCounter reports undelivered stream events. database.OutboxRepository
// implements it.
type OutboxCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

type Handlers struct {
	collector batch.Collector
	runner    *batch.Runner
	outbox    OutboxCounter
	locale    string
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers serves synchronous requests through collector and queued ones
// through runner. collector must be safe for concurrent callers.
func NewHandlers(collector batch.Collector, runner *batch.Runner, locale string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		collector: collector,
		runner:    runner,
		locale:    locale,
		validator: validator.New(),
		logger:    logger.With("component", "api"),
	}
}

// WithOutbox adds the outbox backlog to the health report.
func (h *Handlers) WithOutbox(outbox OutboxCounter) *Handlers {
	h.outbox = outbox
	return h
}

// CollectRequest asks for the reviews of one place.
type CollectRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Location string `json:"location" validate:"max=200"`
	Locale   string `json:"locale" validate:"omitempty,min=2,max=10"`
	Async    bool   `json:"async"`
	Priority int    `json:"priority" validate:"gte=0,lte=10"`
}

type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CollectReviews runs a collection job. Synchronous requests return the
// dataset; async requests are queued and return the job id.
func (h *Handlers) CollectReviews(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	target := models.Target{Name: req.Name, Location: req.Location}

	if req.Async {
		h.enqueue(w, target, req.Priority)
		return
	}

	locale := req.Locale
	if locale == "" {
		locale = h.locale
	}

	result := h.collector.Collect(r.Context(), target, locale)
	if result.Error != nil {
		h.logger.Warn("collection returned no reviews", "target", target.String(), "code", result.Error.Code)
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) enqueue(w http.ResponseWriter, target models.Target, priority int) {
	if h.runner == nil {
		h.respondError(w, http.StatusServiceUnavailable, "job queue is not available")
		return
	}

	job, err := h.runner.Enqueue(target, priority)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, status, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:   job.ID,
		Status:  "pending",
		Message: "Job queued",
	})
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.respondError(w, http.StatusServiceUnavailable, "job queue is not available")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, ok := h.runner.Ledger().Get(jobID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.respondError(w, http.StatusServiceUnavailable, "job queue is not available")
		return
	}

	h.respondJSON(w, http.StatusOK, h.runner.Ledger().List())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.respondJSON(w, http.StatusOK, map[string]int{})
		return
	}

	stats := h.runner.Ledger().GetStats()
	stats["queued"] = h.runner.Pending()
	h.respondJSON(w, http.StatusOK, stats)
}

// Health reports queue and outbox backlogs. A large backlog degrades the
// status to warning.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}

	if h.runner != nil {
		queued := h.runner.Pending()
		health["queued"] = queued
		if queued > queueWarnThreshold {
			health["status"] = "warning"
			health["message"] = "High number of queued jobs"
		}
	}

	status := http.StatusOK
	if h.outbox != nil {
		pending, err := h.outbox.PendingCount(r.Context())
		switch {
		case err != nil:
			h.logger.Error("failed to read outbox backlog", "error", err)
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			status = http.StatusServiceUnavailable
		case pending > outboxWarnThreshold:
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		health["outbox_pending"] = pending
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
