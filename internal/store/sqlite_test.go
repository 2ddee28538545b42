package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func sampleBusiness(id string) model.BusinessRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.BusinessRecord{
		ID:           id,
		Name:         "Boulangerie " + id,
		Sector:       "Restaurant",
		City:         "Québec",
		Website:      "https://" + id + ".example",
		Phone:        "418-555-0199",
		GoogleRating: 4.2,
		ReviewCount:  64,
		DomainRating: intPtr(35),
		RefDomains:   intPtr(20),
		ILAScore:     55,
		Status:       model.StatusProspect,
		Potential:    model.PotentialMedium,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSQLiteUpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.UpsertBusinesses(ctx, []model.BusinessRecord{sampleBusiness("b1")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Boulangerie b1", got.Name)
	assert.Equal(t, "Québec", got.City)
	assert.Equal(t, model.StatusProspect, got.Status)
	require.NotNil(t, got.DomainRating)
	assert.Equal(t, 35, *got.DomainRating)
	assert.Nil(t, got.OrganicTraffic)
	assert.Equal(t, 55, got.ILAScore)
}

func TestSQLiteGet_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetBusiness(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteUpsert_UpdatesExisting(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	b := sampleBusiness("b1")
	_, err := s.UpsertBusinesses(ctx, []model.BusinessRecord{b})
	require.NoError(t, err)

	b.Name = "Renamed"
	b.Status = model.StatusContacted
	b.OrganicTraffic = int64Ptr(900)
	_, err = s.UpsertBusinesses(ctx, []model.BusinessRecord{b})
	require.NoError(t, err)

	got, err := s.GetBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, model.StatusContacted, got.Status)
	require.NotNil(t, got.OrganicTraffic)
	assert.Equal(t, int64(900), *got.OrganicTraffic)

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids)
}

func TestSQLiteList_Filters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	records := []model.BusinessRecord{sampleBusiness("a"), sampleBusiness("b"), sampleBusiness("c")}
	records[1].Sector = "Santé"
	records[1].City = "Montréal"
	records[1].ILAScore = 80
	records[2].Status = model.StatusClient
	records[2].ILAScore = 30
	_, err := s.UpsertBusinesses(ctx, records)
	require.NoError(t, err)

	t.Run("by sector", func(t *testing.T) {
		got, err := s.ListBusinesses(ctx, BusinessFilter{Sectors: []string{"Santé"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		got, err := s.ListBusinesses(ctx, BusinessFilter{Status: model.StatusClient})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].ID)
	})

	t.Run("min score ordering", func(t *testing.T) {
		got, err := s.ListBusinesses(ctx, BusinessFilter{MinILAScore: 50})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "a", got[1].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.ListBusinesses(ctx, BusinessFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.ListBusinesses(ctx, BusinessFilter{Cities: []string{"Gatineau"}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteUpdateSubscores(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	b := sampleBusiness("b1")
	b.DomainRating = intPtr(42)
	b.OrganicTraffic = int64Ptr(1500)
	b.TotalKeywords = intPtr(120)
	b.RefDomains = intPtr(15)
	_, err := s.UpsertBusinesses(ctx, []model.BusinessRecord{b})
	require.NoError(t, err)

	sub := ilascore.Subscores{SEO: 80, Content: 70, Presence: 60, Reputation: 50, Position: 40}
	want := ilascore.Compute(sub, &ilascore.BonusMetrics{
		DomainRating: 42, OrganicTraffic: 1500, TotalKeywords: 120, RefDomains: 15,
	})

	got, err := s.UpdateSubscores(ctx, "b1", sub)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Composite is persisted.
	stored, err := s.GetBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, want, stored.ILAScore)

	// Inputs round-trip for the next recompute.
	in, err := s.GetScoreInputs(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, sub, in.Sub)
	assert.Equal(t, 42, in.Bonus.DomainRating)
}

func TestSQLiteUpdateSubscores_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.UpdateSubscores(context.Background(), "ghost", ilascore.Subscores{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteRefreshScore(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	b := sampleBusiness("b1")
	_, err := s.UpsertBusinesses(ctx, []model.BusinessRecord{b})
	require.NoError(t, err)

	sub := ilascore.Subscores{SEO: 60, Content: 60, Presence: 60, Reputation: 60, Position: 60}
	first, err := s.UpdateSubscores(ctx, "b1", sub)
	require.NoError(t, err)

	// A fresh import bumped the authority metrics but left ila_score alone.
	b.DomainRating = intPtr(60)
	b.RefDomains = intPtr(200)
	b.ILAScore = first
	_, err = s.UpsertBusinesses(ctx, []model.BusinessRecord{b})
	require.NoError(t, err)

	refreshed, err := s.RefreshScore(ctx, "b1")
	require.NoError(t, err)
	assert.Greater(t, refreshed, first)

	stored, err := s.GetBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, refreshed, stored.ILAScore)
}
