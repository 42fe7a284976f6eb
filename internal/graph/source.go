package graph

import (
	"fmt"

	"caveatlab/delegraph/internal/delegation"
)

// Source supplies the session's delegations in insertion order.
type Source interface {
	All() ([]delegation.Delegation, error)
}

// BuildFrom loads the source's delegations and builds them with b.
func BuildFrom(b *Builder, src Source) (*Graph, error) {
	records, err := src.All()
	if err != nil {
		return nil, fmt.Errorf("loading delegations: %w", err)
	}
	return b.Build(records), nil
}

// AnalyzeFrom loads the source's delegations and analyzes them.
func AnalyzeFrom(src Source, config *AnalyzerConfig) (*AnalysisReport, error) {
	records, err := src.All()
	if err != nil {
		return nil, fmt.Errorf("loading delegations: %w", err)
	}
	return Analyze(records, config), nil
}
