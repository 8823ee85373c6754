package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckwame-jpg/portfolio/contributions"
	"github.com/ckwame-jpg/portfolio/playground"
)

const calendarResponse = `{"data":{"user":{"contributionsCollection":{"contributionCalendar":{
  "totalContributions": 12,
  "weeks": [
    {"contributionDays": [{"date": "2026-02-22", "contributionCount": 0}, {"date": "2026-02-23", "contributionCount": 9}]},
    {"contributionDays": [{"date": "2026-03-01", "contributionCount": 3}]}
  ]
}}}}}`

func fakeGitHub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withGitHub(srv *httptest.Server) func(*config, *deps) {
	return func(_ *config, d *deps) {
		d.github = contributions.NewClient(contributions.Config{
			Token:    "gh-token",
			Username: "ckwame-jpg",
			Endpoint: srv.URL,
			MaxTries: 1,
		}, srv.Client(), d.clock)
	}
}

func TestContributionsJSON(t *testing.T) {
	ts := newTestSite(t, withGitHub(fakeGitHub(t, http.StatusOK, calendarResponse)))

	w := ts.get("/api/github/contributions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	var cal contributions.Calendar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cal))
	assert.Equal(t, 12, cal.TotalContributions)
	require.Len(t, cal.Weeks, 2)
	assert.Equal(t, contributions.Day{Date: "2026-02-23", Count: 9}, cal.Weeks[0].Days[1])
}

func TestContributionsErrors(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		ts := newTestSite(t)
		w := ts.get("/api/github/contributions")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"No GitHub token configured"}`, w.Body.String())
	})

	t.Run("upstream failure", func(t *testing.T) {
		ts := newTestSite(t, withGitHub(fakeGitHub(t, http.StatusBadGateway, `oops`)))
		w := ts.get("/api/github/contributions")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch contributions"}`, w.Body.String())
	})
}

func TestHeatmapFragment(t *testing.T) {
	ts := newTestSite(t, withGitHub(fakeGitHub(t, http.StatusOK, calendarResponse)))

	w := ts.get("/heatmap")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "12 contributions in the last year")
	assert.Contains(t, body, "level-0")
	assert.Contains(t, body, "level-4")
	assert.Contains(t, body, "level-2")

	ts = newTestSite(t)
	w = ts.get("/heatmap")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://github.com/ckwame-jpg")
}

func TestPlaygroundEndpoints(t *testing.T) {
	ts := newTestSite(t)

	w := ts.get("/api/playground/endpoints")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Service   string                `json:"service"`
		Mode      string                `json:"mode"`
		Endpoints []playground.Endpoint `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "habit-tracker-api", res.Service)
	assert.Equal(t, "mock", res.Mode)
	require.Len(t, res.Endpoints, 9)
	assert.Equal(t, "/habits/1/streak", res.Endpoints[8].Path)
	assert.NotContains(t, w.Body.String(), "mock_response", "canned responses stay server side")
}

func TestPlaygroundRun(t *testing.T) {
	ts := newTestSite(t)

	w := ts.postJSON("/api/playground/run", `{"index": 8}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeJSON(t, w)
	assert.EqualValues(t, 200, res["status"])
	assert.Equal(t, "mock", res["mode"])
	assert.Equal(t, "GET", res["method"])
	assert.Equal(t, map[string]any{"streak": float64(12)}, res["body"])

	// Index zero is a valid request.
	w = ts.postJSON("/api/playground/run", `{"index": 0}`)
	assert.Equal(t, http.StatusOK, w.Code)

	ts.srv.visits.wait()
	stats, err := ts.srv.visits.stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.PlaygroundRuns)
}

func TestPlaygroundRunErrors(t *testing.T) {
	ts := newTestSite(t)

	tests := []struct {
		body string
		code int
	}{
		{`{}`, http.StatusBadRequest},
		{`{"index": "one"}`, http.StatusBadRequest},
		{`{"index": 9}`, http.StatusNotFound},
		{`{"index": -1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		w := ts.postJSON("/api/playground/run", tt.body)
		assert.Equal(t, tt.code, w.Code, tt.body)
	}
}

type brokenRunner struct{}

func (brokenRunner) Run(context.Context, playground.Endpoint) (playground.Result, error) {
	return playground.Result{}, errors.New("connection refused")
}

func TestPlaygroundRunnerFailure(t *testing.T) {
	ts := newTestSite(t, func(_ *config, d *deps) { d.runner = brokenRunner{} })

	w := ts.postJSON("/api/playground/run", `{"index": 3}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Playground request failed"}`, w.Body.String())
}
