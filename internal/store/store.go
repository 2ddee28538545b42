// Package store persists business records and their scoring inputs.
package store

import (
	"context"

	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/model"
)

// BusinessFilter specifies criteria for listing businesses.
type BusinessFilter struct {
	Sectors     []string             `json:"sectors,omitempty"`
	Cities      []string             `json:"cities,omitempty"`
	Status      model.BusinessStatus `json:"status,omitempty"`
	MinILAScore int                  `json:"min_ila_score,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
	Offset      int                  `json:"offset,omitempty"`
}

// ScoreInputs bundles everything needed to recompute a stored composite
// score: the five sub-scores plus the authority bonus metrics.
type ScoreInputs struct {
	Sub   ilascore.Subscores    `json:"sub"`
	Bonus ilascore.BonusMetrics `json:"bonus"`
}

// Store defines the persistence interface for business records.
//
// The stored ila_score column is derived: it is only ever written by
// UpdateSubscores and RefreshScore, which recompute it from the stored
// inputs. Hand-editing the composite is not part of the interface.
type Store interface {
	// Businesses
	UpsertBusinesses(ctx context.Context, businesses []model.BusinessRecord) (int64, error)
	GetBusiness(ctx context.Context, id string) (*model.BusinessRecord, error)
	ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.BusinessRecord, error)
	ListIDs(ctx context.Context) ([]string, error)

	// Scoring
	GetScoreInputs(ctx context.Context, id string) (*ScoreInputs, error)
	UpdateSubscores(ctx context.Context, id string, sub ilascore.Subscores) (int, error)
	RefreshScore(ctx context.Context, id string) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// businessColumns is the column order shared by both drivers for reads and
// bulk writes.
var businessColumns = []string{
	"id", "name", "sector", "city", "address", "website", "phone", "email",
	"google_rating", "review_count",
	"domain_rating", "organic_traffic", "indexed_keywords", "total_keywords",
	"backlinks", "ref_domains", "serp_rank",
	"ila_score", "status", "potential",
	"created_at", "updated_at",
}

// businessRow flattens a record into the businessColumns order.
func businessRow(b *model.BusinessRecord) []any {
	return []any{
		b.ID, b.Name, b.Sector, b.City, b.Address, b.Website, b.Phone, b.Email,
		b.GoogleRating, b.ReviewCount,
		b.DomainRating, b.OrganicTraffic, b.IndexedKeywords, b.TotalKeywords,
		b.Backlinks, b.RefDomains, b.SerpRank,
		b.ILAScore, string(b.Status), string(b.Potential),
		b.CreatedAt, b.UpdatedAt,
	}
}
