package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

var errDuplicateID = errors.New("duplicate id")

// IDGen abstracts submission ID creation so tests can pin IDs.
type IDGen interface {
	NewID() (string, error)
}

// SubmissionStore is an in-memory seo.SubmissionStore.
type SubmissionStore struct {
	mu    sync.RWMutex
	subs  map[string]seo.Submission
	idGen IDGen
}

// NewSubmissionStore constructs a SubmissionStore.
func NewSubmissionStore(idGen IDGen) *SubmissionStore {
	return &SubmissionStore{
		subs:  make(map[string]seo.Submission),
		idGen: idGen,
	}
}

// Create stores a new pending submission for one fetch attempt.
func (s *SubmissionStore) Create(_ context.Context, url, ownerID string, submittedAt time.Time) (seo.Submission, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return seo.Submission{}, &seo.PersistenceError{Op: "new submission id", Err: err}
	}
	sub := seo.Submission{
		ID:          id,
		URL:         url,
		Status:      seo.SubmissionPending,
		SubmittedAt: submittedAt,
		OwnerID:     ownerID,
	}
	s.mu.Lock()
	s.subs[id] = sub
	s.mu.Unlock()
	return sub, nil
}

// Get returns a submission, enforcing ownership at this layer so the
// scheduler and engine stay ownership-agnostic. A mismatched owner reads the
// same as an unknown ID.
func (s *SubmissionStore) Get(_ context.Context, id, ownerID string) (seo.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok || sub.OwnerID != ownerID {
		return seo.Submission{}, seo.ErrNotFound
	}
	return sub, nil
}

// ListByURL returns the owner's submissions for one URL, newest first.
func (s *SubmissionStore) ListByURL(_ context.Context, url, ownerID string) ([]seo.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []seo.Submission
	for _, sub := range s.subs {
		if sub.URL == url && sub.OwnerID == ownerID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// MarkCrawling moves pending -> crawling. No-op when already terminal.
func (s *SubmissionStore) MarkCrawling(_ context.Context, id string) error {
	return s.update(id, func(sub *seo.Submission) {
		sub.Status = seo.SubmissionCrawling
	})
}

// MarkCompleted finalizes a submission. No-op when already terminal, which
// guards against duplicate completion signals from a retried worker.
func (s *SubmissionStore) MarkCompleted(_ context.Context, id string, completedAt time.Time) error {
	return s.update(id, func(sub *seo.Submission) {
		sub.Status = seo.SubmissionCompleted
		t := completedAt
		sub.CompletedAt = &t
	})
}

// MarkFailed finalizes a submission with an error message. No-op when
// already terminal.
func (s *SubmissionStore) MarkFailed(_ context.Context, id, errMsg string, completedAt time.Time) error {
	return s.update(id, func(sub *seo.Submission) {
		sub.Status = seo.SubmissionFailed
		sub.ErrorMessage = errMsg
		t := completedAt
		sub.CompletedAt = &t
	})
}

func (s *SubmissionStore) update(id string, mutate func(*seo.Submission)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return seo.ErrNotFound
	}
	if sub.Status.Terminal() {
		return nil
	}
	mutate(&sub)
	s.subs[id] = sub
	return nil
}
