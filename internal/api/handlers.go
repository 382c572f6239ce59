package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

const ownerHeader = "X-Owner-ID"

type submitURLRequest struct {
	URL      string       `json:"url"`
	Priority seo.Priority `json:"priority"`
}

type scheduleRequest struct {
	URL                   string        `json:"url"`
	Priority              seo.Priority  `json:"priority"`
	Frequency             seo.Frequency `json:"frequency"`
	CustomIntervalMinutes int           `json:"custom_interval_minutes"`
	ScheduledAt           *time.Time    `json:"scheduled_at"`
}

type bulkScheduleRequest struct {
	Requests []scheduleRequest `json:"requests"`
}

type bulkScheduleResult struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) submitURL(w http.ResponseWriter, r *http.Request) {
	var req submitURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Priority == "" {
		req.Priority = seo.PriorityHigh
	}
	id, err := s.scheduler.Submit(r.Context(), seo.CrawlRequest{
		URL:         req.URL,
		Priority:    req.Priority,
		RequestedAt: s.clock.Now(),
		Frequency:   seo.FrequencyNone,
		OwnerID:     r.Header.Get(ownerHeader),
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"schedule_id": id,
		"status":      string(seo.ScheduleStatusQueued),
	})
}

func (s *Server) submissionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submission_id")
	sub, err := s.submissions.Get(r.Context(), id, r.Header.Get(ownerHeader))
	if err != nil {
		if errors.Is(err, seo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submission_id")
	sub, err := s.submissions.Get(r.Context(), id, r.Header.Get(ownerHeader))
	if err != nil {
		if errors.Is(err, seo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report := seo.CrawlReport{Submission: sub}
	bundle, err := s.results.GetMetrics(r.Context(), id)
	switch {
	case err == nil:
		report.Metrics = &bundle
	case errors.Is(err, seo.ErrNotFound):
		// Not crawled yet, or the fetch failed; report carries status only.
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recs, err := s.results.GetRecommendations(r.Context(), id)
	if err != nil && !errors.Is(err, seo.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []seo.Recommendation{}
	}
	report.Recommendations = recs
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) submitSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, err := s.scheduler.Submit(r.Context(), toCrawlRequest(req, s.clock.Now(), r.Header.Get(ownerHeader)))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"schedule_id": id})
}

func (s *Server) bulkSubmit(w http.ResponseWriter, r *http.Request) {
	var req bulkScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	now := s.clock.Now()
	owner := r.Header.Get(ownerHeader)
	reqs := make([]seo.CrawlRequest, 0, len(req.Requests))
	for _, sr := range req.Requests {
		reqs = append(reqs, toCrawlRequest(sr, now, owner))
	}
	results := s.scheduler.BulkSubmit(r.Context(), reqs)
	out := make([]bulkScheduleResult, 0, len(results))
	for _, res := range results {
		br := bulkScheduleResult{ScheduleID: res.ScheduleID}
		if res.Err != nil {
			br.Error = res.Err.Error()
		}
		out = append(out, br)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"results": out})
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	status := seo.ScheduleStatus(r.URL.Query().Get("status"))
	recs, err := s.scheduler.GetScheduledCrawls(r.Context(), status, r.Header.Get(ownerHeader))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if recs == nil {
		recs = []seo.ScheduleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": recs})
}

func (s *Server) cancelSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "schedule_id")
	err := s.scheduler.Cancel(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"schedule_id": id,
			"status":      string(seo.ScheduleStatusCancelled),
		})
	case errors.Is(err, seo.ErrNotFound):
		writeError(w, http.StatusNotFound, "schedule not found")
	case errors.Is(err, seo.ErrNotCancellable):
		writeError(w, http.StatusConflict, "schedule is processing or finished")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scheduler.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func toCrawlRequest(req scheduleRequest, now time.Time, owner string) seo.CrawlRequest {
	return seo.CrawlRequest{
		URL:                   req.URL,
		Priority:              req.Priority,
		RequestedAt:           now,
		ScheduledAt:           req.ScheduledAt,
		Frequency:             req.Frequency,
		CustomIntervalMinutes: req.CustomIntervalMinutes,
		OwnerID:               owner,
	}
}

func errorStatus(err error) int {
	var verr *seo.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
