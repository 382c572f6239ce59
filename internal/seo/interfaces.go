package seo

import (
	"context"
	"time"
)

// ScheduleStore persists ScheduleRecords and provides the atomic operations
// the scheduler and workers rely on. Implementations synchronize internally.
type ScheduleStore interface {
	Create(ctx context.Context, rec ScheduleRecord) error
	Get(ctx context.Context, id string) (ScheduleRecord, error)
	// List returns records matching the status filter ("" matches all),
	// sorted by NextRunAt ascending.
	List(ctx context.Context, status ScheduleStatus) ([]ScheduleRecord, error)
	// ClaimDue atomically moves scheduled records with NextRunAt <= now to
	// queued and returns them. The tick loop is the only caller.
	ClaimDue(ctx context.Context, now time.Time) ([]ScheduleRecord, error)
	// MarkQueued moves a freshly created, already-due record to queued.
	MarkQueued(ctx context.Context, id string) error
	// MarkProcessing transitions queued -> processing and returns the updated
	// record. If the record is no longer queued (cancelled while waiting) it
	// is returned unchanged; callers skip it (soft cancel).
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (ScheduleRecord, error)
	// CompleteCycle atomically writes LastRunAt, final status, and, for
	// recurring records, the planner-computed NextRunAt with a return to
	// scheduled. No tick may observe a half-updated record.
	CompleteCycle(ctx context.Context, id string, final ScheduleStatus, errText string, lastRunAt time.Time, nextRunAt *time.Time) error
	Cancel(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[ScheduleStatus]int, error)
}

// SubmissionStore tracks per-fetch lifecycle records. Mark operations are
// idempotent no-ops once the submission is terminal.
type SubmissionStore interface {
	Create(ctx context.Context, url, ownerID string, submittedAt time.Time) (Submission, error)
	Get(ctx context.Context, id, ownerID string) (Submission, error)
	ListByURL(ctx context.Context, url, ownerID string) ([]Submission, error)
	MarkCrawling(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string, completedAt time.Time) error
}

// ResultStore persists the metrics bundle and recommendations produced by a
// completed fetch.
type ResultStore interface {
	SaveMetrics(ctx context.Context, submissionID string, bundle MetricsBundle) error
	SaveRecommendations(ctx context.Context, recs []Recommendation) error
	GetMetrics(ctx context.Context, submissionID string) (MetricsBundle, error)
	GetRecommendations(ctx context.Context, submissionID string) ([]Recommendation, error)
}

// Queue provides priority-ordered enqueue/dequeue for ready crawl items.
type Queue interface {
	Enqueue(item QueueItem)
	// Dequeue blocks until an item is available or the context finishes.
	Dequeue(ctx context.Context) (QueueItem, error)
	Len() int
}

// Fetcher performs one bounded fetch-and-extract of a URL. The second return
// value is the raw response body for snapshotting.
type Fetcher interface {
	Crawl(ctx context.Context, url string) (MetricsBundle, []byte, error)
}

// Publisher pushes crawl-completed events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, event CrawlCompleted) (string, error)
}

// SnapshotStore keeps the raw HTML of completed fetches and returns a URI.
type SnapshotStore interface {
	Put(ctx context.Context, path string, body []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces schedule and submission IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
