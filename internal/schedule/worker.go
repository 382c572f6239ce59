package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rankrocket/rankrocket-crawler/internal/metrics"
	"github.com/rankrocket/rankrocket-crawler/internal/recommend"
	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// worker consumes ready-queue items and executes the fetch pipeline.
// Workers share no mutable state beyond the queue and the stores.
type worker struct {
	s      *Scheduler
	logger *zap.Logger
}

func newWorker(s *Scheduler, logger *zap.Logger) *worker {
	return &worker{s: s, logger: logger}
}

func (w *worker) run(ctx context.Context) {
	for {
		item, err := w.s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		metrics.SetQueueDepth(w.s.queue.Len())
		w.processItem(ctx, item)
	}
}

func (w *worker) processItem(ctx context.Context, item seo.QueueItem) {
	rec, err := w.s.schedules.MarkProcessing(ctx, item.ScheduleID, w.s.clock.Now())
	if err != nil {
		w.logger.Error("mark processing failed", zap.String("schedule_id", item.ScheduleID), zap.Error(err))
		return
	}
	if rec.Status != seo.ScheduleStatusProcessing {
		// Soft cancel: the record was cancelled while waiting in the queue.
		w.logger.Info("skipping non-runnable schedule",
			zap.String("schedule_id", rec.ID),
			zap.String("status", string(rec.Status)),
		)
		return
	}
	metrics.ObserveTransition(string(seo.ScheduleStatusProcessing))
	w.logger.Debug("crawl dispatched",
		zap.String("schedule_id", rec.ID),
		zap.String("url", rec.URL),
		zap.Duration("queue_wait", w.s.clock.Now().Sub(item.EnqueuedAt)),
	)

	sub, err := w.s.submissions.Create(ctx, rec.URL, rec.OwnerID, w.s.clock.Now())
	if err != nil {
		w.logger.Error("create submission failed", zap.String("schedule_id", rec.ID), zap.Error(err))
		w.finishCycle(ctx, rec, seo.ScheduleStatusFailed, fmt.Sprintf("create submission: %v", err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	w.crawl(ctx, rec, sub)
}

// crawl runs one fetch attempt end to end. A panic inside the pipeline is
// contained here: it surfaces as a failed submission and the pool keeps going.
func (w *worker) crawl(ctx context.Context, rec seo.ScheduleRecord, sub seo.Submission) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic recovered",
				zap.String("schedule_id", rec.ID),
				zap.String("submission_id", sub.ID),
				zap.Any("panic", r),
			)
			w.recordFailure(ctx, rec, sub, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := w.s.submissions.MarkCrawling(ctx, sub.ID); err != nil {
		w.logger.Error("mark crawling failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}

	bundle, body, err := w.s.fetcher.Crawl(ctx, rec.URL)
	if err != nil {
		metrics.ObserveCrawl(rec.URL, "failed", 0, 0)
		w.recordFailure(ctx, rec, sub, err.Error())
		return
	}
	metrics.ObserveCrawl(rec.URL, "succeeded", bundle.PageBytes, bundle.FetchDuration)

	if err := w.s.results.SaveMetrics(ctx, sub.ID, bundle); err != nil {
		w.recordFailure(ctx, rec, sub, fmt.Sprintf("save metrics: %v", err))
		return
	}

	recs := recommend.Synthesize(sub.ID, bundle)
	if len(recs) > 0 {
		if err := w.s.results.SaveRecommendations(ctx, recs); err != nil {
			w.recordFailure(ctx, rec, sub, fmt.Sprintf("save recommendations: %v", err))
			return
		}
		for _, r := range recs {
			metrics.ObserveRecommendations(string(r.Category), 1)
		}
	}

	w.snapshot(ctx, sub.ID, body)

	now := w.s.clock.Now()
	if err := w.s.submissions.MarkCompleted(ctx, sub.ID, now); err != nil {
		w.logger.Error("mark completed failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
	w.finishCycle(ctx, rec, seo.ScheduleStatusCompleted, "")
	w.publish(ctx, rec, sub, seo.SubmissionCompleted, len(recs))

	w.logger.Info("crawl completed",
		zap.String("schedule_id", rec.ID),
		zap.String("submission_id", sub.ID),
		zap.String("url", rec.URL),
		zap.Int("recommendations", len(recs)),
		zap.Duration("fetch_duration", bundle.FetchDuration),
	)
}

func (w *worker) recordFailure(ctx context.Context, rec seo.ScheduleRecord, sub seo.Submission, msg string) {
	now := w.s.clock.Now()
	if err := w.s.submissions.MarkFailed(ctx, sub.ID, msg, now); err != nil {
		w.logger.Error("mark failed errored", zap.String("submission_id", sub.ID), zap.Error(err))
	}
	w.finishCycle(ctx, rec, seo.ScheduleStatusFailed, msg)
	w.publish(ctx, rec, sub, seo.SubmissionFailed, 0)

	w.logger.Warn("crawl failed",
		zap.String("schedule_id", rec.ID),
		zap.String("submission_id", sub.ID),
		zap.String("url", rec.URL),
		zap.String("error", msg),
	)
}

// finishCycle writes the completion in one atomic store operation: final
// status, LastRunAt, and, for recurring records, the next cycle's run time
// with a return to scheduled.
func (w *worker) finishCycle(ctx context.Context, rec seo.ScheduleRecord, final seo.ScheduleStatus, errText string) {
	lastRun := w.s.clock.Now()
	var nextRun *time.Time
	if rec.Frequency.Recurring() {
		nr := NextRun(rec.Frequency, rec.CustomIntervalMinutes, lastRun)
		nextRun = &nr
	}
	if err := w.s.schedules.CompleteCycle(ctx, rec.ID, final, errText, lastRun, nextRun); err != nil {
		w.logger.Error("complete cycle failed", zap.String("schedule_id", rec.ID), zap.Error(err))
		return
	}
	if nextRun != nil {
		metrics.ObserveTransition(string(seo.ScheduleStatusScheduled))
	} else {
		metrics.ObserveTransition(string(final))
	}
}

func (w *worker) snapshot(ctx context.Context, submissionID string, body []byte) {
	if w.s.snapshots == nil || len(body) == 0 {
		return
	}
	path := fmt.Sprintf("%s.html", submissionID)
	if prefix := strings.Trim(w.s.cfg.SnapshotPrefix, "/"); prefix != "" {
		path = fmt.Sprintf("%s/%s.html", prefix, submissionID)
	}
	if _, err := w.s.snapshots.Put(ctx, path, body); err != nil {
		// Snapshots are best effort; the crawl result stands without one.
		w.logger.Warn("snapshot write failed", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

func (w *worker) publish(ctx context.Context, rec seo.ScheduleRecord, sub seo.Submission, status seo.SubmissionStatus, recCount int) {
	if w.s.publisher == nil || w.s.cfg.Topic == "" {
		return
	}
	event := seo.CrawlCompleted{
		ScheduleID:      rec.ID,
		SubmissionID:    sub.ID,
		URL:             rec.URL,
		Status:          string(status),
		Recommendations: recCount,
		Timestamp:       w.s.clock.Now(),
	}
	if _, err := w.s.publisher.Publish(ctx, w.s.cfg.Topic, event); err != nil {
		w.logger.Warn("publish crawl event failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}
