package graph

import "caveatlab/delegraph/internal/delegation"

// DuplicateGroup is a set of records sharing one identity
// (delegator, delegate, salt). The builder keeps all of them as separate
// edges with the same id.
type DuplicateGroup struct {
	DelegationID string `json:"delegation_id"`
	Positions    []int  `json:"positions"`
	Identical    bool   `json:"identical"`
}

// ComputeDuplicates groups records by identity, in order of first appearance.
func ComputeDuplicates(snap *Snapshot) []DuplicateGroup {
	seen := make(map[string]int)
	var groups []DuplicateGroup
	var first [][]int
	for i, d := range snap.Records {
		id := d.ID()
		g, ok := seen[id]
		if !ok {
			seen[id] = len(first)
			first = append(first, []int{i})
			continue
		}
		first[g] = append(first[g], i)
	}
	for _, positions := range first {
		if len(positions) < 2 {
			continue
		}
		base := snap.Records[positions[0]]
		want := Fingerprint([]delegation.Delegation{base})
		identical := true
		for _, p := range positions[1:] {
			if Fingerprint(snap.Records[p:p+1]) != want {
				identical = false
				break
			}
		}
		groups = append(groups, DuplicateGroup{
			DelegationID: base.ID(),
			Positions:    positions,
			Identical:    identical,
		})
	}
	if groups == nil {
		groups = []DuplicateGroup{}
	}
	return groups
}
