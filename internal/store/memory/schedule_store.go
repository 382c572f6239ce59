// Package memory provides in-memory store implementations for development
// and testing. All operations synchronize on a single mutex per store, which
// gives the single-record atomicity the scheduler relies on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// ScheduleStore is an in-memory seo.ScheduleStore.
type ScheduleStore struct {
	mu   sync.RWMutex
	recs map[string]seo.ScheduleRecord
}

// NewScheduleStore constructs a ScheduleStore.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{
		recs: make(map[string]seo.ScheduleRecord),
	}
}

// Create stores a new schedule record.
func (s *ScheduleStore) Create(_ context.Context, rec seo.ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[rec.ID]; exists {
		return &seo.PersistenceError{Op: "create", Err: errDuplicateID}
	}
	s.recs[rec.ID] = rec
	return nil
}

// Get fetches a record by ID.
func (s *ScheduleStore) Get(_ context.Context, id string) (seo.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return seo.ScheduleRecord{}, seo.ErrNotFound
	}
	return rec, nil
}

// List returns records matching status (all when empty), sorted by NextRunAt.
func (s *ScheduleStore) List(_ context.Context, status seo.ScheduleStatus) ([]seo.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []seo.ScheduleRecord
	for _, rec := range s.recs {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRunAt.Before(out[j].NextRunAt)
	})
	return out, nil
}

// ClaimDue moves every due scheduled record to queued and returns the claimed
// set. The transition and the read happen under one lock so no record can be
// claimed twice.
func (s *ScheduleStore) ClaimDue(_ context.Context, now time.Time) ([]seo.ScheduleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []seo.ScheduleRecord
	for id, rec := range s.recs {
		if rec.Status == seo.ScheduleStatusScheduled && !rec.NextRunAt.After(now) {
			rec.Status = seo.ScheduleStatusQueued
			s.recs[id] = rec
			claimed = append(claimed, rec)
		}
	}
	sort.Slice(claimed, func(i, j int) bool {
		return claimed[i].NextRunAt.Before(claimed[j].NextRunAt)
	})
	return claimed, nil
}

// MarkQueued moves a scheduled record to queued.
func (s *ScheduleStore) MarkQueued(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return seo.ErrNotFound
	}
	if rec.Status == seo.ScheduleStatusScheduled {
		rec.Status = seo.ScheduleStatusQueued
		s.recs[id] = rec
	}
	return nil
}

// MarkProcessing transitions queued -> processing. Records in any other
// status are returned unchanged so the caller can skip them.
func (s *ScheduleStore) MarkProcessing(_ context.Context, id string, _ time.Time) (seo.ScheduleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return seo.ScheduleRecord{}, seo.ErrNotFound
	}
	if rec.Status == seo.ScheduleStatusQueued {
		rec.Status = seo.ScheduleStatusProcessing
		s.recs[id] = rec
	}
	return rec, nil
}

// CompleteCycle writes LastRunAt, status, and NextRunAt together. With a
// non-nil nextRunAt the record returns to scheduled for its next cycle.
func (s *ScheduleStore) CompleteCycle(
	_ context.Context,
	id string,
	final seo.ScheduleStatus,
	errText string,
	lastRunAt time.Time,
	nextRunAt *time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return seo.ErrNotFound
	}
	last := lastRunAt
	rec.LastRunAt = &last
	rec.ErrorText = errText
	if nextRunAt != nil {
		rec.Status = seo.ScheduleStatusScheduled
		rec.NextRunAt = *nextRunAt
	} else {
		rec.Status = final
	}
	s.recs[id] = rec
	return nil
}

// Cancel marks a record cancelled unless it is processing or terminal.
func (s *ScheduleStore) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return seo.ErrNotFound
	}
	if rec.Status == seo.ScheduleStatusProcessing || rec.Status.Terminal() {
		return seo.ErrNotCancellable
	}
	rec.Status = seo.ScheduleStatusCancelled
	s.recs[id] = rec
	return nil
}

// CountByStatus tallies records per status.
func (s *ScheduleStore) CountByStatus(_ context.Context) (map[seo.ScheduleStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[seo.ScheduleStatus]int)
	for _, rec := range s.recs {
		counts[rec.Status]++
	}
	return counts, nil
}
