// Package model defines the data structures shared across the scoring and
// matching engines.
package model

import "time"

// BusinessStatus represents the commercial lifecycle state of a business.
type BusinessStatus string

const (
	StatusProspect  BusinessStatus = "prospect"
	StatusContacted BusinessStatus = "contacted"
	StatusClient    BusinessStatus = "client"
	StatusLost      BusinessStatus = "lost"
)

// Potential is the heuristic growth-opportunity classification.
type Potential string

const (
	PotentialLow    Potential = "low"
	PotentialMedium Potential = "medium"
	PotentialHigh   Potential = "high"
)

// BusinessRecord represents a scored local business or prospect.
// SEO authority metrics are optional; a nil pointer means the metric was
// never sourced and contributes nothing to scoring.
type BusinessRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Sector  string `json:"sector"`
	City    string `json:"city"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`

	// Reputation.
	GoogleRating float64 `json:"google_rating"`
	ReviewCount  int     `json:"review_count"`

	// SEO authority metrics (Ahrefs-style), sourced externally.
	DomainRating    *int   `json:"domain_rating,omitempty"`
	OrganicTraffic  *int64 `json:"organic_traffic,omitempty"`
	IndexedKeywords *int   `json:"indexed_keywords,omitempty"`
	TotalKeywords   *int   `json:"total_keywords,omitempty"`
	Backlinks       *int64 `json:"backlinks,omitempty"`
	RefDomains      *int   `json:"ref_domains,omitempty"`
	SerpRank        *int   `json:"serp_rank,omitempty"`

	// ILAScore is the derived 0-100 composite. It is recomputed whenever
	// scoring inputs change and is never hand-edited.
	ILAScore int `json:"ila_score"`

	Status    BusinessStatus `json:"status"`
	Potential Potential      `json:"potential"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasWebsite reports whether the business has a known website.
func (b *BusinessRecord) HasWebsite() bool {
	return b.Website != ""
}
