// Package seo defines core types shared across subsystems.
package seo

import (
	"time"
)

// Priority orders crawl requests in the ready queue. Lower rank dequeues first.
type Priority string

// Priority levels accepted by Submit.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its dequeue rank (urgent=1 .. low=4).
// Unknown values map past the low rank so a corrupt record never jumps the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// Valid reports whether the priority is one of the four accepted levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Frequency controls recurring crawl schedules.
type Frequency string

// Frequency values accepted by Submit. FrequencyNone marks a one-shot job.
const (
	FrequencyNone    Frequency = "none"
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Valid reports whether the frequency is a known value.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNone, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	default:
		return false
	}
}

// Recurring reports whether completed cycles should be replanned.
func (f Frequency) Recurring() bool {
	return f != FrequencyNone && f != ""
}

// ScheduleStatus is the lifecycle state of a ScheduleRecord.
type ScheduleStatus string

// Schedule status values persisted in the schedule store.
const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusQueued     ScheduleStatus = "queued"
	ScheduleStatusProcessing ScheduleStatus = "processing"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusFailed     ScheduleStatus = "failed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusQueued, ScheduleStatusProcessing,
		ScheduleStatusCompleted, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed,
// other than the recurrence planner opening the next cycle.
func (s ScheduleStatus) Terminal() bool {
	switch s {
	case ScheduleStatusCompleted, ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	default:
		return false
	}
}

// CrawlRequest is the immutable input to Submit. Frequency triggers creation
// of a new cycle on completion, never mutation of the original request.
type CrawlRequest struct {
	URL                   string     `json:"url"`
	Priority              Priority   `json:"priority"`
	RequestedAt           time.Time  `json:"requested_at"`
	ScheduledAt           *time.Time `json:"scheduled_at,omitempty"`
	Frequency             Frequency  `json:"frequency"`
	CustomIntervalMinutes int        `json:"custom_interval_minutes,omitempty"`
	OwnerID               string     `json:"owner_id"`
}

// ScheduleRecord is the persisted bookkeeping for one logical crawl job.
// One-shot jobs carry FrequencyNone and end in a terminal status; recurring
// jobs are returned to scheduled by the planner with a fresh NextRunAt.
type ScheduleRecord struct {
	ID                    string         `json:"id"`
	URL                   string         `json:"url"`
	Priority              Priority       `json:"priority"`
	Frequency             Frequency      `json:"frequency"`
	CustomIntervalMinutes int            `json:"custom_interval_minutes,omitempty"`
	NextRunAt             time.Time      `json:"next_run_at"`
	LastRunAt             *time.Time     `json:"last_run_at,omitempty"`
	Status                ScheduleStatus `json:"status"`
	OwnerID               string         `json:"owner_id"`
	ErrorText             string         `json:"error_text,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

// SubmissionStatus is the lifecycle state of a single fetch attempt.
type SubmissionStatus string

// Submission status values. Completed and failed are final.
const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionCrawling  SubmissionStatus = "crawling"
	SubmissionCompleted SubmissionStatus = "completed"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Terminal reports whether the submission reached a final state.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionCompleted || s == SubmissionFailed
}

// Submission tracks one fetch attempt, independent of schedule bookkeeping.
type Submission struct {
	ID           string           `json:"id"`
	URL          string           `json:"url"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	OwnerID      string           `json:"owner_id"`
}

// ImageInfo describes one image found on a fetched page.
type ImageInfo struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title,omitempty"`
}

// MetricsBundle holds the SEO facts extracted from one fetch.
// Produced once per completed fetch and owned by the Submission that made it.
type MetricsBundle struct {
	Title           string        `json:"title,omitempty"`
	MetaDescription string        `json:"meta_description,omitempty"`
	MetaKeywords    string        `json:"meta_keywords,omitempty"`
	CanonicalURL    string        `json:"canonical_url,omitempty"`
	H1Tags          []string      `json:"h1_tags"`
	H2Tags          []string      `json:"h2_tags"`
	H3Tags          []string      `json:"h3_tags"`
	InternalLinks   []string      `json:"internal_links"`
	ExternalLinks   []string      `json:"external_links"`
	Images          []ImageInfo   `json:"images"`
	PageBytes       int           `json:"page_bytes"`
	FetchDuration   time.Duration `json:"fetch_duration_ns"`
	StatusCode      int           `json:"status_code"`
}

// Category tags a recommendation with the signal that produced it.
type Category string

// Recommendation categories.
const (
	CategoryTitle           Category = "title"
	CategoryMetaDescription Category = "meta_description"
	CategoryHeadings        Category = "headings"
	CategoryLinks           Category = "links"
	CategoryImages          Category = "images"
	CategoryPerformance     Category = "performance"
)

// RecPriority grades how urgent a recommendation is.
type RecPriority string

// Recommendation priority grades.
const (
	RecHigh   RecPriority = "high"
	RecMedium RecPriority = "medium"
	RecLow    RecPriority = "low"
)

// Recommendation is a single prioritized improvement finding, derived
// deterministically from a MetricsBundle. Sets of recommendations are
// append-only per submission.
type Recommendation struct {
	SubmissionID   string      `json:"submission_id"`
	Category       Category    `json:"category"`
	Priority       RecPriority `json:"priority"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	CurrentValue   string      `json:"current_value,omitempty"`
	SuggestedValue string      `json:"suggested_value,omitempty"`
	ImpactScore    float64     `json:"impact_score"`
}

// CrawlReport is the completed bundle returned by the report endpoint.
type CrawlReport struct {
	Submission      Submission       `json:"submission"`
	Metrics         *MetricsBundle   `json:"metrics,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// CrawlCompleted is the event published after a fetch attempt finishes.
type CrawlCompleted struct {
	ScheduleID      string    `json:"schedule_id"`
	SubmissionID    string    `json:"submission_id"`
	URL             string    `json:"url"`
	Status          string    `json:"status"`
	Recommendations int       `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}

// QueueItem is the unit held by the ready queue. Seq is a monotonic
// enqueue counter that breaks ties FIFO within a priority tier.
type QueueItem struct {
	ScheduleID string
	Priority   Priority
	Seq        uint64
	EnqueuedAt time.Time
}

// Statistics summarizes scheduler state for the statistics endpoint.
type Statistics struct {
	CountsByStatus map[ScheduleStatus]int `json:"counts_by_status"`
	QueueDepth     int                    `json:"queue_depth"`
}

// BulkResult pairs one BulkSubmit input with its outcome, order-preserving.
type BulkResult struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	Err        error  `json:"-"`
}
