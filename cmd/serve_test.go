package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iluma/rivalviews-cli/internal/config"
	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/matching"
	"github.com/iluma/rivalviews-cli/internal/model"
	"github.com/iluma/rivalviews-cli/internal/store"
)

func intp(v int) *int { return &v }

func newTestServer(t *testing.T, srvCfg config.ServerConfig) (*httptest.Server, store.Store) {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	matchCfg := config.DefaultMatchingConfig()
	api := newAPIServer(s, matching.New(matchCfg), matchCfg)

	ts := httptest.NewServer(api.router(srvCfg))
	t.Cleanup(ts.Close)
	return ts, s
}

func seedBusinesses(t *testing.T, s store.Store) {
	t.Helper()
	now := time.Now().UTC()
	records := []model.BusinessRecord{
		{
			ID: "resto-1", Name: "Chez Mimi", Sector: "Restaurant", City: "Montréal",
			Website: "https://chezmimi.example", Phone: "514-555-0100",
			GoogleRating: 4.4, ReviewCount: 130, SerpRank: intp(14),
			ILAScore: 72, Status: model.StatusProspect, Potential: model.PotentialHigh,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "resto-2", Name: "Bistro Lune", Sector: "Restaurant", City: "Montréal",
			GoogleRating: 3.8, ReviewCount: 20,
			ILAScore: 45, Status: model.StatusContacted, Potential: model.PotentialMedium,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "clinique-1", Name: "Clinique Nord", Sector: "Santé", City: "Laval",
			Website: "https://cliniquenord.example",
			GoogleRating: 4.8, ReviewCount: 210,
			ILAScore: 81, Status: model.StatusClient, Potential: model.PotentialLow,
			CreatedAt: now, UpdatedAt: now,
		},
	}
	_, err := s.UpsertBusinesses(context.Background(), records)
	require.NoError(t, err)
}

func TestServeHealth(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeScoreEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	req := `{"subscores":{"seo":70,"content":60,"presence":50,"reputation":40,"position":30},
	         "bonus":{"domain_rating":42,"total_keywords":120}}`
	resp, err := http.Post(ts.URL+"/api/score", "application/json", strings.NewReader(req))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var breakdown ilascore.Breakdown
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&breakdown))

	want := ilascore.ComputeBreakdown(
		ilascore.Subscores{SEO: 70, Content: 60, Presence: 50, Reputation: 40, Position: 30},
		&ilascore.BonusMetrics{DomainRating: 42, TotalKeywords: 120},
	)
	assert.Equal(t, want, breakdown)
}

func TestServeScoreEndpoint_Invalid(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	resp, err := http.Post(ts.URL+"/api/score", "application/json",
		strings.NewReader(`{"subscores":{"seo":150}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeMatchesEndpoint(t *testing.T) {
	ts, s := newTestServer(t, config.ServerConfig{})
	seedBusinesses(t, s)

	req := `{"criteria":{"sectors":["Restaurant"],"locations":["Montréal"]},"insights":true}`
	resp, err := http.Post(ts.URL+"/api/matches", "application/json", strings.NewReader(req))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body matchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Matches)
	assert.Equal(t, "Chez Mimi", body.Matches[0].Business.Name)
	require.NotNil(t, body.Insights)
	assert.Equal(t, len(body.Matches), body.Insights.TotalMatches)
}

func TestServeGetBusiness(t *testing.T) {
	ts, s := newTestServer(t, config.ServerConfig{})
	seedBusinesses(t, s)

	resp, err := http.Get(ts.URL + "/api/businesses/resto-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var b model.BusinessRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	assert.Equal(t, "Chez Mimi", b.Name)

	missing, err := http.Get(ts.URL + "/api/businesses/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServeListBusinesses_Filters(t *testing.T) {
	ts, s := newTestServer(t, config.ServerConfig{})
	seedBusinesses(t, s)

	resp, err := http.Get(ts.URL + "/api/businesses?sector=Restaurant&min_ila=50")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var businesses []model.BusinessRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&businesses))
	require.Len(t, businesses, 1)
	assert.Equal(t, "resto-1", businesses[0].ID)

	bad, err := http.Get(ts.URL + "/api/businesses?min_ila=abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestServeServicesEndpoint(t *testing.T) {
	ts, s := newTestServer(t, config.ServerConfig{})
	seedBusinesses(t, s)

	// resto-2 has no website and a weak rating.
	resp, err := http.Get(ts.URL + "/api/businesses/resto-2/services")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var services []model.ServiceMatch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&services))
	require.NotEmpty(t, services)

	types := make(map[model.ServiceType]bool)
	for _, svc := range services {
		types[svc.ServiceType] = true
	}
	assert.True(t, types[model.ServiceADLUMA])
	assert.False(t, types[model.ServiceSEO])
}

func TestServeSimilarEndpoint(t *testing.T) {
	ts, s := newTestServer(t, config.ServerConfig{})
	seedBusinesses(t, s)

	resp, err := http.Get(ts.URL + "/api/businesses/resto-1/similar?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var similar []model.BusinessRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&similar))
	require.NotEmpty(t, similar)
	assert.Equal(t, "resto-2", similar[0].ID)
	for _, b := range similar {
		assert.NotEqual(t, "resto-1", b.ID)
	}
}

func TestServeRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{RatePerSecond: 0.01, RateBurst: 1})

	first, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
