// Package matching ranks scored businesses against selection criteria,
// recommends service bundles, finds comparable businesses, and summarizes
// match quality. All operations are pure reads over their arguments.
package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/iluma/rivalviews-cli/internal/config"
	"github.com/iluma/rivalviews-cli/internal/model"
)

// Match dimension weights. Only dimensions present in the criteria enter
// the denominator; status and potential always apply.
const (
	weightSector    = 25.0
	weightLocation  = 20.0
	weightILARange  = 30.0
	weightStatus    = 15.0
	weightPotential = 10.0
)

// Fixed reason copy. Kept constant per dimension so insight aggregation can
// count occurrences across a result set.
const (
	reasonSectorMatch   = "sector matches a target segment"
	reasonLocationMatch = "located in a target market"
	reasonILAInRange    = "ILA score within the requested range"
	reasonOpenProspect  = "open prospect, no outreach yet"
	reasonInContact     = "contact already established"
	reasonHighPotential = "high growth potential"
	reasonMedPotential  = "moderate growth potential"
)

// Engine evaluates businesses against criteria. It carries no mutable
// state beyond its configuration and rule tables, so a single instance is
// safe for concurrent use.
type Engine struct {
	cfg         config.MatchingConfig
	rules       []ServiceRule
	multipliers map[string]float64
}

// New creates an Engine with the default service rules and sector
// multiplier table.
func New(cfg config.MatchingConfig) *Engine {
	return &Engine{
		cfg:         cfg,
		rules:       defaultServiceRules(),
		multipliers: defaultSectorMultipliers(),
	}
}

// FindMatches scores every business against the criteria, drops results
// below the viability cutoff, and returns the top `limit` sorted by score
// descending. A non-positive limit falls back to the configured default.
func (e *Engine) FindMatches(businesses []model.BusinessRecord, criteria model.MatchCriteria, limit int) []model.MatchResult {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	var results []model.MatchResult
	for i := range businesses {
		r := e.scoreMatch(businesses[i], criteria)
		if r.Score < e.cfg.MinMatchScore {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// scoreMatch computes the dynamically normalized match score for one
// business: accumulated points divided by the weights actually applied.
func (e *Engine) scoreMatch(b model.BusinessRecord, c model.MatchCriteria) model.MatchResult {
	var acc, totalWeight float64
	var reasons, recommendations []string

	if len(c.Sectors) > 0 {
		totalWeight += weightSector
		if containsFold(c.Sectors, b.Sector) {
			acc += weightSector
			reasons = append(reasons, reasonSectorMatch)
		}
	}

	if len(c.Locations) > 0 {
		totalWeight += weightLocation
		if containsFold(c.Locations, b.City) {
			acc += weightLocation
			reasons = append(reasons, reasonLocationMatch)
		}
	}

	if c.ILAScoreRange != nil {
		totalWeight += weightILARange
		switch {
		case b.ILAScore >= c.ILAScoreRange.Min && b.ILAScore <= c.ILAScoreRange.Max:
			acc += weightILARange
			reasons = append(reasons, reasonILAInRange)
		case b.ILAScore < c.ILAScoreRange.Min:
			gap := c.ILAScoreRange.Min - b.ILAScore
			acc += math.Max(0, weightILARange-float64(gap))
			recommendations = append(recommendations,
				fmt.Sprintf("ILA score is %d points below the requested minimum; an optimization push closes the gap", gap))
		}
	}

	// Status and potential always contribute, criteria or not.
	totalWeight += weightStatus
	switch b.Status {
	case model.StatusProspect:
		acc += weightStatus
		reasons = append(reasons, reasonOpenProspect)
	case model.StatusContacted:
		acc += 10
		reasons = append(reasons, reasonInContact)
	}

	totalWeight += weightPotential
	switch b.Potential {
	case model.PotentialHigh:
		acc += weightPotential
		reasons = append(reasons, reasonHighPotential)
	case model.PotentialMedium:
		acc += 5
		reasons = append(reasons, reasonMedPotential)
	}

	score := 0
	if totalWeight > 0 {
		score = int(math.Round(acc / totalWeight * 100))
	}

	return model.MatchResult{
		Business:        b,
		Score:           score,
		Reasons:         reasons,
		Recommendations: recommendations,
		EstimatedValue:  e.estimatedValue(&b),
		ConfidenceLevel: confidence(&b),
	}
}

// FindSimilar returns the businesses most comparable to the target,
// excluding the target itself. Similarity blends sector, city, ILA
// proximity, and rating proximity.
func (e *Engine) FindSimilar(target model.BusinessRecord, businesses []model.BusinessRecord, limit int) []model.BusinessRecord {
	if limit <= 0 {
		limit = e.cfg.SimilarLimit
	}

	type candidate struct {
		business   model.BusinessRecord
		similarity float64
	}

	var candidates []candidate
	for i := range businesses {
		b := businesses[i]
		if b.ID == target.ID {
			continue
		}

		var s float64
		if equalFold(b.Sector, target.Sector) {
			s += 40
		}
		if equalFold(b.City, target.City) {
			s += 30
		}
		s += math.Max(0, 20-math.Abs(float64(target.ILAScore-b.ILAScore))/5)
		s += math.Max(0, 10-math.Abs(target.GoogleRating-b.GoogleRating)*2)

		candidates = append(candidates, candidate{business: b, similarity: s})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]model.BusinessRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.business
	}
	return out
}

// Insights aggregates match quality across a result set and emits
// criteria-tuning suggestions.
func (e *Engine) Insights(matches []model.MatchResult, criteria model.MatchCriteria) model.InsightSummary {
	summary := model.InsightSummary{
		TotalMatches:    len(matches),
		TopReasons:      []string{},
		Recommendations: []string{},
	}

	if len(matches) > 0 {
		var sum int
		for _, m := range matches {
			sum += m.Score
		}
		summary.AverageScore = math.Round(float64(sum)/float64(len(matches))*10) / 10
	}

	summary.TopReasons = topReasons(matches, 3)

	if summary.TotalMatches < 5 {
		summary.Recommendations = append(summary.Recommendations,
			"few viable matches; broaden sectors or locations to widen the pool")
	}
	if summary.AverageScore < 75 {
		summary.Recommendations = append(summary.Recommendations,
			"average match quality is low; tighten the criteria to focus on stronger fits")
	}
	for _, m := range matches {
		if m.Business.Status == model.StatusClient {
			summary.Recommendations = append(summary.Recommendations,
				"result set includes existing clients; exclude them for prospecting")
			break
		}
	}

	return summary
}

// topReasons returns the n most frequent reason strings across matches.
// Ties keep first-seen order.
func topReasons(matches []model.MatchResult, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range matches {
		for _, r := range m.Reasons {
			if counts[r] == 0 {
				order = append(order, r)
			}
			counts[r]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		order = []string{}
	}
	return order
}
