package graph

import (
	"math"
	"time"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Reachability float64 `json:"reachability"`
	Uniqueness   float64 `json:"uniqueness"`
	Freshness    float64 `json:"freshness"`
	Redundancy   float64 `json:"redundancy"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64           `json:"health_score"`
	HealthBreakdown HealthBreakdown   `json:"health_breakdown"`
	Topology        *TopologyReport   `json:"topology"`
	Duplicates      []DuplicateGroup  `json:"duplicates"`
	ChokePoints     *ChokePointReport `json:"choke_points"`
	Expiry          *ExpiryReport     `json:"expiry"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	Accounts      account.Registry
	Caveats       caveat.Lookup
	Now           time.Time
	HubThreshold  int
	TopN          int
	ExpiryWarning time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold:  3,
		TopN:          50,
		ExpiryWarning: 24 * time.Hour,
	}
}

// Analyze runs all analyses and computes a composite health score
func Analyze(records []delegation.Delegation, config *AnalyzerConfig) *AnalysisReport {
	if config == nil {
		config = DefaultConfig()
	}
	now := config.Now
	if now.IsZero() {
		now = time.Now()
	}
	names := func(addr string) string {
		a, _ := account.Resolve(config.Accounts, addr)
		return a.Name
	}

	snap := NewSnapshot(records)
	topology := ComputeTopology(snap, names, config.HubThreshold, config.TopN)
	duplicates := ComputeDuplicates(snap)
	choke := ComputeChokePoints(snap, names)
	expiry := ComputeExpiry(snap, config.Caveats, now, config.ExpiryWarning)

	accounts := float64(topology.TotalAccounts)
	total := float64(topology.TotalDelegations)

	var reachability, uniqueness, freshness, redundancy float64
	if accounts > 0 {
		reachability = clamp(1.0-float64(topology.UnreachableCount)/accounts, 0, 1)
		redundancy = clamp(1.0-math.Min(float64(choke.APCount)/accounts, 0.5)*2.0, 0, 1)
	}
	if total > 0 {
		dup := 0
		for _, g := range duplicates {
			dup += len(g.Positions) - 1
		}
		uniqueness = clamp(1.0-float64(dup)/total, 0, 1)
		freshness = clamp(1.0-float64(expiry.ExpiredCount)/total, 0, 1)
	}

	healthScore := 0.35*reachability + 0.25*uniqueness + 0.25*freshness + 0.15*redundancy

	return &AnalysisReport{
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Reachability: reachability,
			Uniqueness:   uniqueness,
			Freshness:    freshness,
			Redundancy:   redundancy,
		},
		Topology:    topology,
		Duplicates:  duplicates,
		ChokePoints: choke,
		Expiry:      expiry,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
