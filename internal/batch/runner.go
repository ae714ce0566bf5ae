package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/maps-review-scraper/internal/events"
	"github.com/maltedev/maps-review-scraper/internal/export"
	"github.com/maltedev/maps-review-scraper/internal/metrics"
	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/queue"
	"github.com/maltedev/maps-review-scraper/internal/ratelimit"
	"github.com/maltedev/maps-review-scraper/internal/storage"
)

// CodeJobPanic marks results of jobs that crashed outside the collector.
const CodeJobPanic = "job_panic"

// Collector runs one complete collection job. reviews.Service implements it.
type Collector interface {
	Collect(ctx context.Context, target models.Target, locale string) *models.ScrapeResult
}

// Exporter turns a finished result into an artifact and returns its path.
type Exporter interface {
	Write(result *models.ScrapeResult) (string, error)
}

// Sink receives every finished result after export.
type Sink interface {
	Save(ctx context.Context, jobID string, result *models.ScrapeResult, output string) error
}

type SinkFunc func(ctx context.Context, jobID string, result *models.ScrapeResult, output string) error

func (f SinkFunc) Save(ctx context.Context, jobID string, result *models.ScrapeResult, output string) error {
	return f(ctx, jobID, result, output)
}

// PublishSink announces each result directly on the event stream.
func PublishSink(p events.Publisher) Sink {
	return SinkFunc(func(ctx context.Context, jobID string, result *models.ScrapeResult, output string) error {
		event, err := events.NewResultEvent(jobID, result, output)
		if err != nil {
			return err
		}
		return p.Publish(ctx, event)
	})
}

// Serial wraps a Collector so that only one job drives the browser at a
// time. The HTTP API and the background runner share one Serial.
type Serial struct {
	mu        sync.Mutex
	collector Collector
}

func NewSerial(c Collector) *Serial {
	return &Serial{collector: c}
}

func (s *Serial) Collect(ctx context.Context, target models.Target, locale string) *models.ScrapeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collector.Collect(ctx, target, locale)
}

type Config struct {
	Collector Collector
	Queue     queue.Queue
	Ledger    *storage.JobLedger
	Exporter  Exporter
	Limiter   ratelimit.RateLimiter
	Sinks     []Sink
	Locale    string
	Logger    *slog.Logger
}

// Runner executes queued jobs one at a time. A failing job is recorded and
// the runner moves on to the next one.
type Runner struct {
	collector Collector
	queue     queue.Queue
	ledger    *storage.JobLedger
	exporter  Exporter
	limiter   ratelimit.RateLimiter
	sinks     []Sink
	locale    string
	logger    *slog.Logger
}

// NewRunner creates a runner. Queue and ledger default to in-memory ones.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Collector == nil {
		return nil, errors.New("collector is required")
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.NewInMemoryQueue(0)
	}
	if cfg.Ledger == nil {
		ledger, err := storage.NewJobLedger("")
		if err != nil {
			return nil, err
		}
		cfg.Ledger = ledger
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		collector: cfg.Collector,
		queue:     cfg.Queue,
		ledger:    cfg.Ledger,
		exporter:  cfg.Exporter,
		limiter:   cfg.Limiter,
		sinks:     cfg.Sinks,
		locale:    cfg.Locale,
		logger:    cfg.Logger.With("component", "batch_runner"),
	}, nil
}

// Enqueue records a target as pending and queues it. The ledger entry exists
// before the job becomes visible to a running Serve loop.
func (r *Runner) Enqueue(target models.Target, priority int) (*queue.Job, error) {
	job := &queue.Job{
		ID:       uuid.NewString(),
		Target:   target,
		Locale:   r.locale,
		Priority: priority,
	}

	record := &storage.JobRecord{
		ID:       job.ID,
		Name:     target.Name,
		Location: target.Location,
	}
	if err := r.ledger.Add(record); err != nil {
		return nil, fmt.Errorf("failed to record job %s: %w", job.ID, err)
	}

	if err := r.queue.Push(job); err != nil {
		if rmErr := r.ledger.Remove(job.ID); rmErr != nil {
			r.logger.Error("failed to drop unqueued job", "job_id", job.ID, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to queue %s: %w", target.String(), err)
	}

	return job, nil
}

// Resume queues the jobs a previous process left pending in the ledger and
// returns how many were queued.
func (r *Runner) Resume() (int, error) {
	resumed := 0
	for _, record := range r.ledger.GetPending() {
		job := &queue.Job{
			ID:        record.ID,
			Target:    models.Target{Name: record.Name, Location: record.Location},
			Locale:    r.locale,
			CreatedAt: record.AddedAt,
		}
		if err := r.queue.Push(job); err != nil {
			return resumed, fmt.Errorf("failed to resume job %s: %w", record.ID, err)
		}
		resumed++
	}

	if resumed > 0 {
		r.logger.Info("resumed pending jobs", "count", resumed)
	}
	return resumed, nil
}

func (r *Runner) Ledger() *storage.JobLedger {
	return r.ledger
}

// Pending reports how many jobs wait in the queue.
func (r *Runner) Pending() int {
	return r.queue.Size()
}

// Drain runs every queued job and returns one summary row per job. It stops
// early when ctx is done; jobs left in the queue stay pending.
func (r *Runner) Drain(ctx context.Context) []export.SummaryRow {
	var rows []export.SummaryRow

	for {
		if ctx.Err() != nil {
			r.logger.Warn("batch interrupted", "remaining", r.queue.Size())
			return rows
		}

		job, err := r.queue.TryPop()
		if err != nil {
			return rows
		}

		if err := r.pace(ctx); err != nil {
			r.logger.Warn("batch interrupted while waiting", "job_id", job.ID)
			return rows
		}

		rows = append(rows, r.RunJob(ctx, job))
	}
}

// Serve runs jobs as they arrive until ctx is done or the queue is closed.
func (r *Runner) Serve(ctx context.Context) error {
	r.logger.Info("job runner started")

	for {
		job, err := r.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) {
				r.logger.Info("job runner stopping, queue closed")
				return nil
			}
			r.logger.Info("job runner stopping")
			return err
		}

		if err := r.pace(ctx); err != nil {
			return err
		}

		r.RunJob(ctx, job)
	}
}

func (r *Runner) pace(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// RunJob executes one job and records its outcome. It never panics.
func (r *Runner) RunJob(ctx context.Context, job *queue.Job) export.SummaryRow {
	logger := r.logger.With("job_id", job.ID, "target", job.Target.String())
	start := time.Now()

	if err := r.ledger.MarkRunning(job.ID); err != nil {
		logger.Warn("job missing from ledger", "error", err)
	}

	result := r.collect(ctx, job)
	row := export.SummaryRow{
		Target:   job.Target.String(),
		Reviews:  len(result.Reviews),
		Expected: result.Expected,
		Cycles:   result.Cycles,
	}

	switch {
	case !result.Success:
		row.Status = storage.StatusFailed
		row.Error = failureMessage(result)
		r.recordFailure(job.ID, row.Error, logger)
	case len(result.Reviews) == 0:
		row.Status = storage.StatusEmpty
		r.recordFinish(job.ID, 0, result.Expected, "", logger)
	default:
		output, err := r.export(result)
		if err != nil {
			row.Status = storage.StatusFailed
			row.Error = err.Error()
			r.recordFailure(job.ID, row.Error, logger)
			break
		}
		row.Status = storage.StatusCompleted
		row.Output = output
		r.recordFinish(job.ID, len(result.Reviews), result.Expected, output, logger)
	}

	for _, sink := range r.sinks {
		if err := sink.Save(ctx, job.ID, result, row.Output); err != nil {
			logger.Error("failed to hand result to sink", "error", err)
		}
	}

	r.feedback(row.Status)
	metrics.ObserveJob(row.Status, time.Since(start).Seconds())

	logger.Info("job finished",
		"status", row.Status,
		"reviews", row.Reviews,
		"expected_total", row.Expected,
		"cycles", row.Cycles,
		"duration", time.Since(start))

	return row
}

func (r *Runner) collect(ctx context.Context, job *queue.Job) (result *models.ScrapeResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job panicked", "job_id", job.ID, "panic", rec)
			result = models.EmptyResult(job.Target, CodeJobPanic, fmt.Sprint(rec), "")
		}
	}()

	locale := job.Locale
	if locale == "" {
		locale = r.locale
	}

	result = r.collector.Collect(ctx, job.Target, locale)
	if result == nil {
		result = models.EmptyResult(job.Target, CodeJobPanic, "collector returned no result", "")
	}
	return result
}

func (r *Runner) export(result *models.ScrapeResult) (string, error) {
	if r.exporter == nil {
		return "", nil
	}
	path, err := r.exporter.Write(result)
	if err != nil {
		return "", fmt.Errorf("failed to export reviews: %w", err)
	}
	return path, nil
}

func (r *Runner) recordFinish(id string, reviews, expected int, output string, logger *slog.Logger) {
	if err := r.ledger.Finish(id, reviews, expected, output); err != nil {
		logger.Error("failed to record job result", "error", err)
	}
}

func (r *Runner) recordFailure(id, message string, logger *slog.Logger) {
	if err := r.ledger.Fail(id, message); err != nil {
		logger.Error("failed to record job failure", "error", err)
	}
}

func (r *Runner) feedback(status string) {
	f, ok := r.limiter.(ratelimit.Feedback)
	if !ok {
		return
	}
	if status == storage.StatusFailed {
		f.RecordError()
		return
	}
	f.RecordSuccess()
}

func failureMessage(result *models.ScrapeResult) string {
	if result.Error == nil {
		return "collection failed"
	}
	return result.Error.Code + ": " + result.Error.Message
}
