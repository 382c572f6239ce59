package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rankrocket/rankrocket-crawler/internal/clock/system"
	"github.com/rankrocket/rankrocket-crawler/internal/config"
	"github.com/rankrocket/rankrocket-crawler/internal/id/uuid"
	memorypublisher "github.com/rankrocket/rankrocket-crawler/internal/publisher/memory"
	"github.com/rankrocket/rankrocket-crawler/internal/schedule"
	"github.com/rankrocket/rankrocket-crawler/internal/seo"
	memorysnapshot "github.com/rankrocket/rankrocket-crawler/internal/snapshot/memory"
	memorystore "github.com/rankrocket/rankrocket-crawler/internal/store/memory"
)

type testEnv struct {
	srv         *httptest.Server
	submissions *memorystore.SubmissionStore
	results     *memorystore.ResultStore
	schedules   *memorystore.ScheduleStore
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	idGen := uuid.New()
	clock := system.New()
	schedules := memorystore.NewScheduleStore()
	submissions := memorystore.NewSubmissionStore(idGen)
	results := memorystore.NewResultStore()

	scheduler := schedule.New(
		schedules,
		submissions,
		results,
		schedule.NewReadyQueue(),
		nil,
		memorypublisher.New(),
		memorysnapshot.New(),
		clock,
		idGen,
		schedule.Config{Concurrency: 1, TickInterval: time.Hour},
		zap.NewNop(),
	)

	server := NewServer(scheduler, submissions, results, clock, cfg, zap.NewNop())
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{
		srv:         srv,
		submissions: submissions,
		results:     results,
		schedules:   schedules,
	}
}

func doJSON(t *testing.T, method, url string, headers map[string]string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	resp, body = doJSON(t, http.MethodGet, env.srv.URL+"/readyz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", body["status"])
}

func TestSubmitURLAcceptsAndQueues(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/crawl/submit-url",
		map[string]string{"X-Owner-ID": "owner-1"},
		map[string]any{"url": "https://example.com/pricing"},
	)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, body["schedule_id"])
	require.Equal(t, "queued", body["status"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, listBody := doJSON(t, http.MethodGet, env.srv.URL+"/v1/schedule?status=queued", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	schedules := listBody["schedules"].([]any)
	require.Len(t, schedules, 1)
	first := schedules[0].(map[string]any)
	require.Equal(t, "https://example.com/pricing", first["url"])
	require.Equal(t, "owner-1", first["owner_id"])
	require.Equal(t, "high", first["priority"])
}

func TestSubmitURLRejectsBadInput(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/crawl/submit-url", nil,
		map[string]any{"url": "not-a-url"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "invalid url")
}

func TestScheduleEndpointValidatesFrequency(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule", nil, map[string]any{
		"url":       "https://example.com",
		"priority":  "medium",
		"frequency": "fortnightly",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "frequency")
}

func TestScheduleAndCancelFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule", nil, map[string]any{
		"url":          "https://example.com/daily",
		"priority":     "medium",
		"frequency":    "daily",
		"scheduled_at": future,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := body["schedule_id"].(string)
	require.NotEmpty(t, id)

	resp, body = doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule/"+id+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cancelled", body["status"])

	// Already cancelled: conflict.
	resp, _ = doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule/"+id+"/cancel", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule/nope/cancel", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkScheduleReportsPerItemErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/schedule/bulk", nil, map[string]any{
		"requests": []map[string]any{
			{"url": "https://example.com/a", "priority": "high"},
			{"url": "bogus", "priority": "high"},
		},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	require.NotEmpty(t, first["schedule_id"])
	second := results[1].(map[string]any)
	require.NotEmpty(t, second["error"])
}

func TestSubmissionStatusEnforcesOwnership(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	sub, err := env.submissions.Create(context.Background(), "https://example.com/x", "owner-1", time.Now().UTC())
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/v1/crawl/status/"+sub.ID,
		map[string]string{"X-Owner-ID": "owner-1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, sub.ID, body["id"])
	require.Equal(t, "pending", body["status"])

	resp, _ = doJSON(t, http.MethodGet, env.srv.URL+"/v1/crawl/status/"+sub.ID,
		map[string]string{"X-Owner-ID": "owner-2"}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportBundlesMetricsAndRecommendations(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	ctx := context.Background()

	sub, err := env.submissions.Create(ctx, "https://example.com/x", "owner-1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, env.submissions.MarkCompleted(ctx, sub.ID, time.Now().UTC()))
	require.NoError(t, env.results.SaveMetrics(ctx, sub.ID, seo.MetricsBundle{Title: "Hello", StatusCode: 200}))
	require.NoError(t, env.results.SaveRecommendations(ctx, []seo.Recommendation{
		{SubmissionID: sub.ID, Category: seo.CategoryTitle, Title: "Title Too Short", ImpactScore: 0.6},
	}))

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/v1/reports/"+sub.ID,
		map[string]string{"X-Owner-ID": "owner-1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metrics := body["metrics"].(map[string]any)
	require.Equal(t, "Hello", metrics["title"])
	recs := body["recommendations"].([]any)
	require.Len(t, recs, 1)
	require.Equal(t, "Title Too Short", recs[0].(map[string]any)["title"])
}

func TestReportForPendingSubmissionHasNoMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	sub, err := env.submissions.Create(context.Background(), "https://example.com/x", "", time.Now().UTC())
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/v1/reports/"+sub.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, body, "metrics")
	require.Empty(t, body["recommendations"])
}

func TestStatisticsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})

	_, body := doJSON(t, http.MethodPost, env.srv.URL+"/v1/crawl/submit-url", nil,
		map[string]any{"url": "https://example.com/x"})
	require.NotEmpty(t, body["schedule_id"])

	resp, stats := doJSON(t, http.MethodGet, env.srv.URL+"/v1/schedule/statistics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := stats["counts_by_status"].(map[string]any)
	require.EqualValues(t, 1, counts["queued"])
	require.EqualValues(t, 1, stats["queue_depth"])
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKey: "sesame"},
	})

	resp, _ := doJSON(t, http.MethodGet, env.srv.URL+"/healthz", nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/healthz",
		map[string]string{"X-API-Key": "sesame"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/healthz?api_key=%s", env.srv.URL, "sesame"), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
