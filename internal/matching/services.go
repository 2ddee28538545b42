package matching

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/iluma/rivalviews-cli/internal/model"
)

// ServiceRule pairs a trigger predicate with the static metadata of the
// service bundle it recommends. Keeping the metadata data-driven lets the
// rule set grow without touching control flow.
type ServiceRule struct {
	Service      model.ServiceType
	Suitability  int
	EstimatedROI int
	Timeline     string
	Price        int64
	Reasoning    []string

	applies func(b *model.BusinessRecord) bool
}

// defaultServiceRules returns the built-in rule table. Each rule is
// evaluated independently; a business may match zero or many.
func defaultServiceRules() []ServiceRule {
	return []ServiceRule{
		{
			Service:      model.ServiceADLUMA,
			Suitability:  85,
			EstimatedROI: 300,
			Timeline:     "2-4 weeks",
			Price:        2500,
			Reasoning: []string{
				"weak or unmeasured online visibility leaves ad inventory uncontested",
				"ad simulation projects reach and spend before committing budget",
			},
			applies: func(b *model.BusinessRecord) bool {
				return b.ILAScore < 70 || !b.HasWebsite()
			},
		},
		{
			Service:      model.ServiceILA,
			Suitability:  90,
			EstimatedROI: 250,
			Timeline:     "4-8 weeks",
			Price:        3500,
			Reasoning: []string{
				"local reputation trails competitors on rating or review volume",
				"local optimization lifts map-pack placement and review velocity",
			},
			applies: func(b *model.BusinessRecord) bool {
				return b.GoogleRating < 4.0 || b.ReviewCount < 50
			},
		},
		{
			Service:      model.ServiceLanding,
			Suitability:  80,
			EstimatedROI: 400,
			Timeline:     "1-2 weeks",
			Price:        1500,
			Reasoning: []string{
				"no conversion-ready page exists for inbound traffic",
				"a dedicated landing page converts search interest that the current presence loses",
			},
			applies: func(b *model.BusinessRecord) bool {
				return !b.HasWebsite() || (b.SerpRank != nil && *b.SerpRank > 10)
			},
		},
		{
			Service:      model.ServiceCRM,
			Suitability:  75,
			EstimatedROI: 200,
			Timeline:     "2-3 weeks",
			Price:        2000,
			Reasoning: []string{
				"high-potential prospect with no structured follow-up in place",
				"pipeline tooling keeps a promising relationship from going cold",
			},
			applies: func(b *model.BusinessRecord) bool {
				return b.Potential == model.PotentialHigh && b.Status == model.StatusProspect
			},
		},
		{
			Service:      model.ServiceSEO,
			Suitability:  95,
			EstimatedROI: 500,
			Timeline:     "8-12 weeks",
			Price:        4500,
			Reasoning: []string{
				"solid base score and an existing site make organic growth the best lever",
				"content and authority work compounds on an already healthy presence",
			},
			applies: func(b *model.BusinessRecord) bool {
				return b.ILAScore >= 70 && b.HasWebsite()
			},
		},
		{
			Service:      model.ServiceFull,
			Suitability:  100,
			EstimatedROI: 800,
			Timeline:     "12-16 weeks",
			Price:        8500,
			Reasoning: []string{
				"high potential with meaningful score headroom justifies the full bundle",
				"combined visibility, reputation, and conversion work moves every dimension at once",
			},
			applies: func(b *model.BusinessRecord) bool {
				return b.Potential == model.PotentialHigh && b.ILAScore < 80
			},
		},
	}
}

// RecommendService evaluates every rule against the business and returns
// the matching service bundles sorted by suitability descending.
func (e *Engine) RecommendService(b model.BusinessRecord) []model.ServiceMatch {
	var out []model.ServiceMatch
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.applies(&b) {
			continue
		}
		out = append(out, model.ServiceMatch{
			ServiceType:  rule.Service,
			Suitability:  rule.Suitability,
			Reasoning:    append([]string(nil), rule.Reasoning...),
			EstimatedROI: rule.EstimatedROI,
			Timeline:     rule.Timeline,
			Price:        rule.Price,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Suitability > out[j].Suitability
	})
	return out
}

// RuleOverride adjusts the metadata of one service rule. Zero values leave
// the corresponding field untouched; trigger predicates cannot be
// overridden.
type RuleOverride struct {
	Suitability  int      `yaml:"suitability"`
	EstimatedROI int      `yaml:"estimated_roi_pct"`
	Timeline     string   `yaml:"timeline"`
	Price        int64    `yaml:"price"`
	Reasoning    []string `yaml:"reasoning"`
}

// Overrides holds operator-supplied adjustments to the rule and sector
// multiplier tables.
type Overrides struct {
	Services          map[string]RuleOverride `yaml:"services"`
	SectorMultipliers map[string]float64      `yaml:"sector_multipliers"`
}

// LoadOverrides reads an overrides YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "matching: read overrides %s", path)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrapf(err, "matching: parse overrides %s", path)
	}
	return &o, nil
}

// ApplyOverrides merges operator overrides into the engine's tables.
func (e *Engine) ApplyOverrides(o *Overrides) {
	if o == nil {
		return
	}

	for i := range e.rules {
		ov, ok := o.Services[string(e.rules[i].Service)]
		if !ok {
			continue
		}
		if ov.Suitability > 0 {
			e.rules[i].Suitability = ov.Suitability
		}
		if ov.EstimatedROI > 0 {
			e.rules[i].EstimatedROI = ov.EstimatedROI
		}
		if ov.Timeline != "" {
			e.rules[i].Timeline = ov.Timeline
		}
		if ov.Price > 0 {
			e.rules[i].Price = ov.Price
		}
		if len(ov.Reasoning) > 0 {
			e.rules[i].Reasoning = append([]string(nil), ov.Reasoning...)
		}
	}

	for sector, m := range o.SectorMultipliers {
		if m > 0 {
			e.multipliers[foldKey(sector)] = m
		}
	}
}
