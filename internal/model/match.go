package model

// ServiceType identifies one of the offerable service bundles.
type ServiceType string

const (
	ServiceADLUMA  ServiceType = "adluma"
	ServiceILA     ServiceType = "ila"
	ServiceLanding ServiceType = "landing"
	ServiceCRM     ServiceType = "crm"
	ServiceSEO     ServiceType = "seo"
	ServiceFull    ServiceType = "full"
)

// MatchResult is one ranked business from a criteria match. The engine
// never mutates the input record; Business is a copy owned by the result.
type MatchResult struct {
	Business        BusinessRecord `json:"business"`
	Score           int            `json:"score"`
	Reasons         []string       `json:"reasons,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	EstimatedValue  int64          `json:"estimated_value"`
	ConfidenceLevel int            `json:"confidence_level"`
}

// ServiceMatch is one recommended service bundle for a business.
type ServiceMatch struct {
	ServiceType  ServiceType `json:"service_type"`
	Suitability  int         `json:"suitability"`
	Reasoning    []string    `json:"reasoning,omitempty"`
	EstimatedROI int         `json:"estimated_roi_pct"`
	Timeline     string      `json:"timeline"`
	Price        int64       `json:"price"`
}

// InsightSummary aggregates match-quality signals across a result set.
type InsightSummary struct {
	TotalMatches    int      `json:"total_matches"`
	AverageScore    float64  `json:"average_score"`
	TopReasons      []string `json:"top_reasons"`
	Recommendations []string `json:"recommendations"`
}
