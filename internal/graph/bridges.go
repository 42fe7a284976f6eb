package graph

// ArticulationAccount is an account whose removal splits its delegation tree.
type ArticulationAccount struct {
	Address             string `json:"address"`
	Name                string `json:"name"`
	ComponentsIfRemoved int    `json:"components_if_removed"`
}

// BridgeDelegation is a delegation whose removal splits its tree.
type BridgeDelegation struct {
	DelegationID string `json:"delegation_id"`
	Delegator    string `json:"delegator"`
	Delegate     string `json:"delegate"`
}

// ChokePointReport lists single points of failure in the delegation graph.
type ChokePointReport struct {
	ArticulationAccounts []ArticulationAccount `json:"articulation_accounts"`
	BridgeDelegations    []BridgeDelegation    `json:"bridge_delegations"`
	APCount              int                   `json:"ap_count"`
	BridgeCount          int                   `json:"bridge_count"`
}

type halfEdge struct {
	to, record int
}

// ComputeChokePoints runs Tarjan's algorithm over the undirected delegation
// graph. Parallel delegations between the same pair are redundant, so
// neither is a bridge. Self-loops are ignored.
func ComputeChokePoints(snap *Snapshot, names func(string) string) *ChokePointReport {
	r := &ChokePointReport{
		ArticulationAccounts: []ArticulationAccount{},
		BridgeDelegations:    []BridgeDelegation{},
	}
	n := len(snap.Accounts)
	if n == 0 {
		return r
	}

	adj := make([][]halfEdge, n)
	for i := range snap.Records {
		u, v := snap.From[i], snap.To[i]
		if u == v {
			continue
		}
		adj[u] = append(adj[u], halfEdge{v, i})
		adj[v] = append(adj[v], halfEdge{u, i})
	}

	disc := make([]int, n)
	low := make([]int, n)
	pieces := make([]int, n)
	var bridges []int
	counter := 1

	// Iterative DFS; parentRecord skips only the tree edge, not its parallels.
	type frame struct {
		node, parentRecord, next int
	}

	for start := 0; start < n; start++ {
		if disc[start] != 0 {
			continue
		}
		disc[start], low[start] = counter, counter
		counter++
		rootChildren := 0
		stack := []frame{{start, -1, 0}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			u := top.node

			if top.next < len(adj[u]) {
				e := adj[u][top.next]
				top.next++
				if e.record == top.parentRecord {
					continue
				}
				if disc[e.to] != 0 {
					if disc[e.to] < low[u] {
						low[u] = disc[e.to]
					}
					continue
				}
				disc[e.to], low[e.to] = counter, counter
				counter++
				if u == start {
					rootChildren++
				}
				stack = append(stack, frame{e.to, e.record, 0})
				continue
			}

			via := top.parentRecord
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			p := stack[len(stack)-1].node
			if low[u] < low[p] {
				low[p] = low[u]
			}
			if low[u] > disc[p] {
				bridges = append(bridges, via)
			}
			if p != start && low[u] >= disc[p] {
				pieces[p]++
			}
		}

		if rootChildren >= 2 {
			// Removing the root leaves one piece per DFS child.
			pieces[start] = rootChildren - 1
		}
	}

	for i, addr := range snap.Accounts {
		if pieces[i] == 0 {
			continue
		}
		r.ArticulationAccounts = append(r.ArticulationAccounts, ArticulationAccount{
			Address:             addr,
			Name:                names(addr),
			ComponentsIfRemoved: pieces[i] + 1,
		})
	}
	for _, rec := range bridges {
		d := snap.Records[rec]
		r.BridgeDelegations = append(r.BridgeDelegations, BridgeDelegation{
			DelegationID: d.ID(),
			Delegator:    snap.Accounts[snap.From[rec]],
			Delegate:     snap.Accounts[snap.To[rec]],
		})
	}
	r.APCount = len(r.ArticulationAccounts)
	r.BridgeCount = len(r.BridgeDelegations)
	return r
}
