// Package schedule implements the crawl orchestration core: a priority
// scheduler with an owned worker pool, a background tick loop for
// time-triggered records, and recurrence planning for repeating crawls.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rankrocket/rankrocket-crawler/internal/metrics"
	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Config controls Scheduler behavior.
type Config struct {
	Concurrency    int
	TickInterval   time.Duration
	Topic          string
	SnapshotPrefix string
}

// Scheduler accepts crawl requests, holds them until due, and dispatches
// them to a bounded pool of fetch workers in priority order. One instance is
// constructed per process and passed by handle; it owns its own lifecycle.
type Scheduler struct {
	schedules   seo.ScheduleStore
	submissions seo.SubmissionStore
	results     seo.ResultStore
	queue       seo.Queue
	fetcher     seo.Fetcher
	publisher   seo.Publisher
	snapshots   seo.SnapshotStore
	clock       seo.Clock
	idGen       seo.IDGenerator
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Scheduler.
func New(
	schedules seo.ScheduleStore,
	submissions seo.SubmissionStore,
	results seo.ResultStore,
	queue seo.Queue,
	fetcher seo.Fetcher,
	publisher seo.Publisher,
	snapshots seo.SnapshotStore,
	clock seo.Clock,
	idGen seo.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		schedules:   schedules,
		submissions: submissions,
		results:     results,
		queue:       queue,
		fetcher:     fetcher,
		publisher:   publisher,
		snapshots:   snapshots,
		clock:       clock,
		idGen:       idGen,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run starts the tick loop and the worker pool, blocking until the context
// finishes. Fetches only ever happen inside workers, so a hanging fetch can
// never delay the tick loop.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tickLoop(ctx)
	}()

	for i := 0; i < s.cfg.Concurrency; i++ {
		w := newWorker(s, s.logger.Named("worker").With(zap.Int("index", i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
}

// Submit validates and persists one crawl request, enqueueing it immediately
// when already due. The URL is stored in normalized form so repeated submits
// of the same page compare equal. Never blocks on network I/O.
func (s *Scheduler) Submit(ctx context.Context, req seo.CrawlRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	url, err := seo.NormalizeURL(req.URL)
	if err != nil {
		return "", &seo.ValidationError{Field: "url", Reason: err.Error()}
	}

	now := s.clock.Now()
	nextRun := now
	if req.ScheduledAt != nil {
		nextRun = *req.ScheduledAt
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("new schedule id: %w", err)
	}

	rec := seo.ScheduleRecord{
		ID:                    id,
		URL:                   url,
		Priority:              req.Priority,
		Frequency:             normalizeFrequency(req.Frequency),
		CustomIntervalMinutes: req.CustomIntervalMinutes,
		NextRunAt:             nextRun,
		Status:                seo.ScheduleStatusScheduled,
		OwnerID:               req.OwnerID,
		CreatedAt:             now,
	}
	if err := s.schedules.Create(ctx, rec); err != nil {
		return "", &seo.PersistenceError{Op: "create schedule", Err: err}
	}
	metrics.ObserveTransition(string(seo.ScheduleStatusScheduled))

	if !nextRun.After(now) {
		if err := s.schedules.MarkQueued(ctx, id); err != nil {
			return "", &seo.PersistenceError{Op: "mark queued", Err: err}
		}
		s.enqueue(rec)
	}

	return id, nil
}

// BulkSubmit applies Submit to each request. One bad request does not abort
// the rest; results are order-preserving.
func (s *Scheduler) BulkSubmit(ctx context.Context, reqs []seo.CrawlRequest) []seo.BulkResult {
	out := make([]seo.BulkResult, len(reqs))
	for i, req := range reqs {
		id, err := s.Submit(ctx, req)
		out[i] = seo.BulkResult{ScheduleID: id, Err: err}
	}
	return out
}

// Cancel marks a record cancelled unless it is already processing or
// terminal. A cancelled record still sitting in the ready queue is skipped by
// the dequeuing worker rather than removed.
func (s *Scheduler) Cancel(ctx context.Context, scheduleID string) error {
	if err := s.schedules.Cancel(ctx, scheduleID); err != nil {
		if errors.Is(err, seo.ErrNotFound) || errors.Is(err, seo.ErrNotCancellable) {
			return err
		}
		return &seo.PersistenceError{Op: "cancel schedule", Err: err}
	}
	metrics.ObserveTransition(string(seo.ScheduleStatusCancelled))
	return nil
}

// GetScheduledCrawls lists schedule records, optionally filtered by status
// and owner. An empty ownerID matches all owners.
func (s *Scheduler) GetScheduledCrawls(ctx context.Context, status seo.ScheduleStatus, ownerID string) ([]seo.ScheduleRecord, error) {
	if status != "" && !status.Valid() {
		return nil, &seo.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	recs, err := s.schedules.List(ctx, status)
	if err != nil {
		return nil, &seo.PersistenceError{Op: "list schedules", Err: err}
	}
	if ownerID == "" {
		return recs, nil
	}
	filtered := recs[:0]
	for _, rec := range recs {
		if rec.OwnerID == ownerID {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// Statistics reports schedule record counts by status plus the current
// ready-queue depth. Read-only.
func (s *Scheduler) Statistics(ctx context.Context) (seo.Statistics, error) {
	counts, err := s.schedules.CountByStatus(ctx)
	if err != nil {
		return seo.Statistics{}, &seo.PersistenceError{Op: "count schedules", Err: err}
	}
	return seo.Statistics{
		CountsByStatus: counts,
		QueueDepth:     s.queue.Len(),
	}, nil
}

// tickLoop periodically claims due scheduled records and pushes them onto the
// ready queue. This is the only path by which a time-triggered record moves
// from scheduled to queued. Errors are logged and retried on the next tick.
func (s *Scheduler) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.schedules.ClaimDue(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("claim due schedules failed", zap.Error(err))
		return
	}
	for _, rec := range due {
		s.enqueue(rec)
	}
	metrics.SetQueueDepth(s.queue.Len())
}

func (s *Scheduler) enqueue(rec seo.ScheduleRecord) {
	s.queue.Enqueue(seo.QueueItem{
		ScheduleID: rec.ID,
		Priority:   rec.Priority,
		EnqueuedAt: s.clock.Now(),
	})
	metrics.ObserveTransition(string(seo.ScheduleStatusQueued))
	s.logger.Debug("schedule queued",
		zap.String("schedule_id", rec.ID),
		zap.String("url", rec.URL),
		zap.String("priority", string(rec.Priority)),
	)
}

func validateRequest(req seo.CrawlRequest) error {
	if err := seo.ValidateURL(req.URL); err != nil {
		return err
	}
	if !req.Priority.Valid() {
		return &seo.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", req.Priority)}
	}
	freq := normalizeFrequency(req.Frequency)
	if !freq.Valid() {
		return &seo.ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", req.Frequency)}
	}
	if freq == seo.FrequencyCustom && req.CustomIntervalMinutes <= 0 {
		return &seo.ValidationError{Field: "custom_interval_minutes", Reason: "must be > 0 for custom frequency"}
	}
	return nil
}

func normalizeFrequency(f seo.Frequency) seo.Frequency {
	if f == "" {
		return seo.FrequencyNone
	}
	return f
}
