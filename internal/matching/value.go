package matching

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/iluma/rivalviews-cli/internal/model"
)

// baseDealValue is the starting point for estimated deal value before
// sector, potential, and score-headroom factors apply.
const baseDealValue = 1000.0

// defaultSectorMultipliers returns the sector value table. Keys are stored
// folded (lowercase, diacritics stripped); unknown sectors fall back to 1.0.
func defaultSectorMultipliers() map[string]float64 {
	return map[string]float64{
		"sante":      2.0, // Santé
		"immobilier": 2.5,
		"restaurant": 1.5,
		"commerce":   1.3,
		"beaute":     1.4, // Beauté
		"services":   1.2,
	}
}

const defaultSectorMultiplier = 1.0

// estimatedValue models expected deal size: sector economics, growth
// potential, and score headroom. A low current ILA score means more paid
// improvement to sell, so it raises the estimate.
func (e *Engine) estimatedValue(b *model.BusinessRecord) int64 {
	value := baseDealValue * e.sectorMultiplier(b.Sector)

	switch b.Potential {
	case model.PotentialHigh:
		value *= 1.5
	case model.PotentialMedium:
		value *= 1.2
	}

	headroom := float64(100-b.ILAScore)/100*0.5 + 1
	value *= headroom

	return int64(math.Round(value))
}

// sectorMultiplier looks up the value multiplier for a sector with an
// explicit fallback for unknown sectors.
func (e *Engine) sectorMultiplier(sector string) float64 {
	if m, ok := e.multipliers[foldKey(sector)]; ok {
		return m
	}
	return defaultSectorMultiplier
}

// confidence estimates how much the record's data supports a match
// decision: contactability and reputation depth each add points.
func confidence(b *model.BusinessRecord) int {
	c := 50
	if b.Phone != "" {
		c += 10
	}
	if b.HasWebsite() {
		c += 10
	}
	if b.Email != "" {
		c += 5
	}
	if b.ReviewCount > 50 {
		c += 15
	}
	if b.GoogleRating > 4.0 {
		c += 10
	}
	if c > 100 {
		c = 100
	}
	return c
}

// foldKey normalizes a label for comparison: trimmed, lowercased, and with
// diacritics stripped so "Santé" and "sante" compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// equalFold compares two labels under foldKey normalization.
func equalFold(a, b string) bool {
	return foldKey(a) == foldKey(b)
}

// containsFold reports whether any entry folds equal to the value.
func containsFold(values []string, v string) bool {
	key := foldKey(v)
	for _, entry := range values {
		if foldKey(entry) == key {
			return true
		}
	}
	return false
}
