// Package ilascore computes the ILA composite quality score: five weighted
// sub-scores plus capped bonuses from third-party SEO authority metrics.
package ilascore

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Sub-score weights. These sum to 1.00 exactly and are a fixed contract;
// changing them silently re-ranks every stored score.
const (
	weightSEO        = 0.25
	weightContent    = 0.20
	weightPresence   = 0.20
	weightReputation = 0.20
	weightPosition   = 0.15
)

// Bonus thresholds and caps. Each bonus is independently capped; the sum of
// all caps is 28.
const (
	domainRatingFloor = 20
	domainRatingCap   = 10
	trafficFloor      = 100
	trafficCap        = 5
	keywordsFloor     = 50
	keywordsCap       = 5
	refDomainsFloor   = 10
	refDomainsCap     = 8
)

// MaxBonus is the highest total bonus the metrics can contribute.
const MaxBonus = domainRatingCap + trafficCap + keywordsCap + refDomainsCap

// Subscores holds the five 0-100 scoring dimensions.
type Subscores struct {
	SEO        int `json:"seo"`
	Content    int `json:"content"`
	Presence   int `json:"presence"`
	Reputation int `json:"reputation"`
	Position   int `json:"position"`
}

// BonusMetrics holds the optional authority metrics. Zero values fall below
// every bonus threshold and contribute nothing.
type BonusMetrics struct {
	DomainRating   int   `json:"domain_rating"`
	OrganicTraffic int64 `json:"organic_traffic"`
	TotalKeywords  int   `json:"total_keywords"`
	RefDomains     int   `json:"ref_domains"`
}

// Compute returns the composite ILA score. A nil bonus contributes zero.
//
// Sub-scores are not clamped to [0,100] before weighting; only the final
// composite is capped at 100. Callers that need input validation should use
// ComputeStrict.
func Compute(sub Subscores, bonus *BonusMetrics) int {
	base := math.Round(
		float64(sub.SEO)*weightSEO +
			float64(sub.Content)*weightContent +
			float64(sub.Presence)*weightPresence +
			float64(sub.Reputation)*weightReputation +
			float64(sub.Position)*weightPosition,
	)

	total := int(base) + bonusPoints(bonus)
	if total > 100 {
		return 100
	}
	return total
}

// ComputeStrict validates all inputs before scoring: sub-scores must be in
// [0,100] and bonus metrics non-negative.
func ComputeStrict(sub Subscores, bonus *BonusMetrics) (int, error) {
	var errs []string

	dims := []struct {
		name string
		v    int
	}{
		{"seo", sub.SEO},
		{"content", sub.Content},
		{"presence", sub.Presence},
		{"reputation", sub.Reputation},
		{"position", sub.Position},
	}
	for _, d := range dims {
		if d.v < 0 || d.v > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100 (got %d)", d.name, d.v))
		}
	}

	if bonus != nil {
		if bonus.DomainRating < 0 {
			errs = append(errs, "domain_rating must be >= 0")
		}
		if bonus.OrganicTraffic < 0 {
			errs = append(errs, "organic_traffic must be >= 0")
		}
		if bonus.TotalKeywords < 0 {
			errs = append(errs, "total_keywords must be >= 0")
		}
		if bonus.RefDomains < 0 {
			errs = append(errs, "ref_domains must be >= 0")
		}
	}

	if len(errs) > 0 {
		return 0, eris.Errorf("ilascore: invalid inputs: %s", strings.Join(errs, "; "))
	}

	return Compute(sub, bonus), nil
}

// Breakdown exposes the parts of a composite score for display.
type Breakdown struct {
	Base    int            `json:"base"`
	Bonuses map[string]int `json:"bonuses,omitempty"`
	Total   int            `json:"total"`
}

// ComputeBreakdown returns the composite score split into base and
// per-metric bonus contributions.
func ComputeBreakdown(sub Subscores, bonus *BonusMetrics) Breakdown {
	base := int(math.Round(
		float64(sub.SEO)*weightSEO +
			float64(sub.Content)*weightContent +
			float64(sub.Presence)*weightPresence +
			float64(sub.Reputation)*weightReputation +
			float64(sub.Position)*weightPosition,
	))

	b := Breakdown{Base: base}
	if bonus != nil {
		bonuses := make(map[string]int)
		if v := domainRatingBonus(bonus.DomainRating); v > 0 {
			bonuses["domain_rating"] = v
		}
		if v := trafficBonus(bonus.OrganicTraffic); v > 0 {
			bonuses["organic_traffic"] = v
		}
		if v := keywordsBonus(bonus.TotalKeywords); v > 0 {
			bonuses["total_keywords"] = v
		}
		if v := refDomainsBonus(bonus.RefDomains); v > 0 {
			bonuses["ref_domains"] = v
		}
		if len(bonuses) > 0 {
			b.Bonuses = bonuses
		}
	}

	b.Total = Compute(sub, bonus)
	return b
}

func bonusPoints(bonus *BonusMetrics) int {
	if bonus == nil {
		return 0
	}
	return domainRatingBonus(bonus.DomainRating) +
		trafficBonus(bonus.OrganicTraffic) +
		keywordsBonus(bonus.TotalKeywords) +
		refDomainsBonus(bonus.RefDomains)
}

func domainRatingBonus(dr int) int {
	if dr <= domainRatingFloor {
		return 0
	}
	return minInt(dr/10, domainRatingCap)
}

func trafficBonus(traffic int64) int {
	if traffic <= trafficFloor {
		return 0
	}
	return minInt(int(traffic/1000), trafficCap)
}

func keywordsBonus(keywords int) int {
	if keywords <= keywordsFloor {
		return 0
	}
	return minInt(keywords/100, keywordsCap)
}

func refDomainsBonus(refDomains int) int {
	if refDomains <= refDomainsFloor {
		return 0
	}
	return minInt(refDomains/50, refDomainsCap)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
