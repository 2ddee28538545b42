package model

// ScoreRange bounds an ILA score filter, inclusive on both ends.
type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// BudgetRange bounds the monthly budget a prospect is expected to carry.
type BudgetRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// MatchCriteria is a caller-constructed query object. Every field is
// optional; an absent filter neither constrains candidates nor contributes
// to match scoring.
type MatchCriteria struct {
	Sectors       []string    `json:"sectors,omitempty"`
	Locations     []string    `json:"locations,omitempty"`
	ILAScoreRange *ScoreRange `json:"ila_score_range,omitempty"`
	BudgetRange   *BudgetRange `json:"budget_range,omitempty"`
	BusinessSize  string      `json:"business_size,omitempty"`
	Priorities    []string    `json:"priorities,omitempty"`
	Timeframe     string      `json:"timeframe,omitempty"`
}

// IsEmpty reports whether no scoring dimension beyond the always-applied
// status and potential bonuses is present.
func (c MatchCriteria) IsEmpty() bool {
	return len(c.Sectors) == 0 && len(c.Locations) == 0 && c.ILAScoreRange == nil
}
