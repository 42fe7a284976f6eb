package graph

import "sort"

// HubAccount is a delegator granting more delegations than the hub threshold.
type HubAccount struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	OutDegree int    `json:"out_degree"`
	InDegree  int    `json:"in_degree"`
}

// DepthBucket counts accounts at one level.
type DepthBucket struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// Tree is one weakly connected group of accounts.
type Tree struct {
	Roots       []string `json:"roots"`
	Accounts    int      `json:"accounts"`
	Delegations int      `json:"delegations"`
}

// TopologyReport describes the shape of the delegation graph.
type TopologyReport struct {
	TotalAccounts    int           `json:"total_accounts"`
	TotalDelegations int           `json:"total_delegations"`
	RootCount        int           `json:"root_count"`
	RootGrants       int           `json:"root_grants"`
	NumTrees         int           `json:"num_trees"`
	Trees            []Tree        `json:"trees"`
	MaxDepth         int           `json:"max_depth"`
	DepthHistogram   []DepthBucket `json:"depth_histogram"`
	SelfLoops        []string      `json:"self_loops"`
	UnreachableCount int           `json:"unreachable_count"`
	Unreachable      []string      `json:"unreachable"`
	Hubs             []HubAccount  `json:"hubs"`
}

// ComputeTopology counts roots, depths and independent trees, and lists
// self-delegations, accounts no root reaches, and fan-out hubs.
func ComputeTopology(snap *Snapshot, names func(string) string, hubThreshold, topN int) *TopologyReport {
	r := &TopologyReport{
		TotalAccounts:    len(snap.Accounts),
		TotalDelegations: len(snap.Records),
		DepthHistogram:   []DepthBucket{},
		Trees:            []Tree{},
		SelfLoops:        []string{},
		Unreachable:      []string{},
		Hubs:             []HubAccount{},
	}
	if len(snap.Accounts) == 0 {
		return r
	}

	levels, reachable, _ := snap.Levels()
	for i := range snap.Accounts {
		if snap.Roots[i] {
			r.RootCount++
		}
		if !reachable[i] {
			r.Unreachable = append(r.Unreachable, snap.Accounts[i])
			continue
		}
		if levels[i] > r.MaxDepth {
			r.MaxDepth = levels[i]
		}
	}
	counts := make([]int, r.MaxDepth+1)
	for i := range snap.Accounts {
		if reachable[i] {
			counts[levels[i]]++
		}
	}
	for l, c := range counts {
		r.DepthHistogram = append(r.DepthHistogram, DepthBucket{Level: l, Count: c})
	}

	uf := NewUnionFind(len(snap.Accounts))
	for i, d := range snap.Records {
		uf.Union(snap.From[i], snap.To[i])
		if snap.From[i] == snap.To[i] {
			r.SelfLoops = append(r.SelfLoops, d.ID())
		}
		if d.IsRoot() {
			r.RootGrants++
		}
	}
	edgesPerSet := make(map[int]int)
	for i := range snap.Records {
		edgesPerSet[uf.Find(snap.From[i])]++
	}
	for _, members := range uf.Components() {
		t := Tree{Roots: []string{}, Accounts: len(members), Delegations: edgesPerSet[uf.Find(members[0])]}
		for _, m := range members {
			if snap.Roots[m] {
				t.Roots = append(t.Roots, snap.Accounts[m])
			}
		}
		r.Trees = append(r.Trees, t)
	}
	r.NumTrees = uf.Sets()

	for i, addr := range snap.Accounts {
		if len(snap.Out[i]) > hubThreshold {
			r.Hubs = append(r.Hubs, HubAccount{
				Address:   addr,
				Name:      names(addr),
				OutDegree: len(snap.Out[i]),
				InDegree:  len(snap.In[i]),
			})
		}
	}
	sort.SliceStable(r.Hubs, func(i, j int) bool { return r.Hubs[i].OutDegree > r.Hubs[j].OutDegree })
	if len(r.Hubs) > topN {
		r.Hubs = r.Hubs[:topN]
	}
	r.UnreachableCount = len(r.Unreachable)
	if len(r.Unreachable) > topN {
		r.Unreachable = r.Unreachable[:topN]
	}
	return r
}
