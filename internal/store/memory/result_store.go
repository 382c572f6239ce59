package memory

import (
	"context"
	"sync"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// ResultStore is an in-memory seo.ResultStore. Bundles are written once per
// submission; recommendation sets are append-only.
type ResultStore struct {
	mu      sync.RWMutex
	metrics map[string]seo.MetricsBundle
	recs    map[string][]seo.Recommendation
}

// NewResultStore constructs a ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{
		metrics: make(map[string]seo.MetricsBundle),
		recs:    make(map[string][]seo.Recommendation),
	}
}

// SaveMetrics stores the bundle for a submission.
func (s *ResultStore) SaveMetrics(_ context.Context, submissionID string, bundle seo.MetricsBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[submissionID] = bundle
	return nil
}

// SaveRecommendations appends recommendations under their submission IDs.
func (s *ResultStore) SaveRecommendations(_ context.Context, recs []seo.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.recs[rec.SubmissionID] = append(s.recs[rec.SubmissionID], rec)
	}
	return nil
}

// GetMetrics fetches the bundle for a submission.
func (s *ResultStore) GetMetrics(_ context.Context, submissionID string) (seo.MetricsBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.metrics[submissionID]
	if !ok {
		return seo.MetricsBundle{}, seo.ErrNotFound
	}
	return bundle, nil
}

// GetRecommendations returns a copy of the submission's recommendations.
func (s *ResultStore) GetRecommendations(_ context.Context, submissionID string) ([]seo.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.recs[submissionID]
	out := make([]seo.Recommendation, len(recs))
	copy(out, recs)
	return out, nil
}
