package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iluma/rivalviews-cli/internal/model"
)

func serviceTypes(matches []model.ServiceMatch) []model.ServiceType {
	out := make([]model.ServiceType, len(matches))
	for i, m := range matches {
		out[i] = m.ServiceType
	}
	return out
}

func TestRecommendService_NoWebsite(t *testing.T) {
	// Mid-score business without a website: the visibility and landing
	// rules both fire, nothing else does.
	b := model.BusinessRecord{
		ID: "b1", Sector: "Commerce", City: "Laval",
		ILAScore: 50, GoogleRating: 4.5, ReviewCount: 120,
		Status: model.StatusContacted, Potential: model.PotentialLow,
	}

	matches := testEngine().RecommendService(b)
	types := serviceTypes(matches)
	assert.Contains(t, types, model.ServiceADLUMA)
	assert.Contains(t, types, model.ServiceLanding)
	assert.NotContains(t, types, model.ServiceSEO)
	assert.NotContains(t, types, model.ServiceCRM)
	assert.NotContains(t, types, model.ServiceFull)
}

func TestRecommendService_SortedBySuitability(t *testing.T) {
	// High-potential contacted business with a healthy site: Full (100)
	// and SEO (95) both fire, Full first.
	b := model.BusinessRecord{
		ID: "b2", Website: "https://example.com",
		ILAScore: 72, GoogleRating: 4.6, ReviewCount: 200,
		Status: model.StatusContacted, Potential: model.PotentialHigh,
	}

	matches := testEngine().RecommendService(b)
	require.Len(t, matches, 2)
	assert.Equal(t, model.ServiceFull, matches[0].ServiceType)
	assert.Equal(t, 100, matches[0].Suitability)
	assert.Equal(t, model.ServiceSEO, matches[1].ServiceType)
	assert.Equal(t, 95, matches[1].Suitability)
}

func TestRecommendService_CRMRequiresProspectStatus(t *testing.T) {
	b := model.BusinessRecord{
		ID: "b3", Website: "https://example.com",
		ILAScore: 85, GoogleRating: 4.8, ReviewCount: 300,
		Status: model.StatusProspect, Potential: model.PotentialHigh,
	}

	types := serviceTypes(testEngine().RecommendService(b))
	assert.Contains(t, types, model.ServiceCRM)

	b.Status = model.StatusClient
	types = serviceTypes(testEngine().RecommendService(b))
	assert.NotContains(t, types, model.ServiceCRM)
}

func TestRecommendService_SerpRankTriggersLanding(t *testing.T) {
	rank := 14
	b := model.BusinessRecord{
		ID: "b4", Website: "https://example.com", SerpRank: &rank,
		ILAScore: 75, GoogleRating: 4.5, ReviewCount: 80,
	}

	types := serviceTypes(testEngine().RecommendService(b))
	assert.Contains(t, types, model.ServiceLanding)

	rank = 3
	types = serviceTypes(testEngine().RecommendService(b))
	assert.NotContains(t, types, model.ServiceLanding)
}

func TestRecommendService_HealthyClientGetsOnlySEO(t *testing.T) {
	// Healthy, saturated business: high score, good reputation, already a
	// client, low remaining potential. Only the organic-growth rule fires.
	b := model.BusinessRecord{
		ID: "b5", Website: "https://example.com",
		ILAScore: 90, GoogleRating: 4.9, ReviewCount: 500,
		Status: model.StatusClient, Potential: model.PotentialLow,
	}

	matches := testEngine().RecommendService(b)
	types := serviceTypes(matches)
	assert.Equal(t, []model.ServiceType{model.ServiceSEO}, types)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
services:
  adluma:
    price: 2900
    estimated_roi_pct: 320
sector_multipliers:
  Santé: 2.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)

	e := testEngine()
	e.ApplyOverrides(o)

	b := model.BusinessRecord{ID: "b6", ILAScore: 40}
	matches := e.RecommendService(b)
	var found bool
	for _, m := range matches {
		if m.ServiceType == model.ServiceADLUMA {
			found = true
			assert.Equal(t, int64(2900), m.Price)
			assert.Equal(t, 320, m.EstimatedROI)
			assert.Equal(t, "2-4 weeks", m.Timeline, "unset fields keep defaults")
		}
	}
	assert.True(t, found)

	assert.InDelta(t, 2.2, e.sectorMultiplier("sante"), 0.001)
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	_, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
