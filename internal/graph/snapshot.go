package graph

import (
	"strings"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/delegation"
)

// Snapshot indexes a delegation list by folded account address, with
// precomputed adjacency. Accounts are numbered in order of first appearance
// (delegator before delegate within a record).
type Snapshot struct {
	Records  []delegation.Delegation
	Accounts []string       // folded addresses, first-appearance order
	Index    map[string]int // folded address -> position in Accounts
	Out      [][]int        // delegator -> delegates, record order
	In       [][]int        // delegate -> delegators, record order
	Adj      [][]int        // undirected, self-loops dropped
	From     []int          // per record: delegator index
	To       []int          // per record: delegate index
	Roots    []bool         // per account: root by either rule
	Delegate []bool         // per account: appears as a delegate
}

// NewSnapshot indexes records. The slice is not retained for mutation.
func NewSnapshot(records []delegation.Delegation) *Snapshot {
	s := &Snapshot{
		Records: records,
		Index:   make(map[string]int),
		From:    make([]int, len(records)),
		To:      make([]int, len(records)),
	}

	for i, d := range records {
		s.From[i] = s.intern(d.Delegator)
		s.To[i] = s.intern(d.Delegate)
	}

	n := len(s.Accounts)
	s.Out = make([][]int, n)
	s.In = make([][]int, n)
	s.Adj = make([][]int, n)
	s.Roots = make([]bool, n)
	s.Delegate = make([]bool, n)
	grantsRoot := make([]bool, n)

	for i, d := range records {
		u, v := s.From[i], s.To[i]
		s.Out[u] = append(s.Out[u], v)
		s.In[v] = append(s.In[v], u)
		if u != v {
			s.Adj[u] = append(s.Adj[u], v)
			s.Adj[v] = append(s.Adj[v], u)
		}
		s.Delegate[v] = true
		if strings.EqualFold(strings.TrimSpace(d.Authority), delegation.RootAuthority) {
			grantsRoot[u] = true
		}
	}

	for i := range s.Accounts {
		s.Roots[i] = !s.Delegate[i] || grantsRoot[i]
	}
	return s
}

func (s *Snapshot) intern(address string) int {
	key := account.Fold(address)
	if idx, ok := s.Index[key]; ok {
		return idx
	}
	s.Accounts = append(s.Accounts, key)
	s.Index[key] = len(s.Accounts) - 1
	return len(s.Accounts) - 1
}

// Levels assigns each account its shortest hop count from any root, walking
// delegator -> delegate edges breadth first. Unreachable accounts get level
// 0 and reachable reports false for them. Order lists accounts in discovery
// order: roots, then BFS order, then unreachable accounts.
func (s *Snapshot) Levels() (levels []int, reachable []bool, order []int) {
	n := len(s.Accounts)
	levels = make([]int, n)
	reachable = make([]bool, n)
	order = make([]int, 0, n)

	var queue []int
	for i := 0; i < n; i++ {
		if s.Roots[i] {
			reachable[i] = true
			queue = append(queue, i)
			order = append(order, i)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		next := levels[u] + 1
		for _, v := range s.Out[u] {
			// Relax only on a strictly smaller level; revisits are skipped.
			if reachable[v] && next >= levels[v] {
				continue
			}
			if !reachable[v] {
				order = append(order, v)
			}
			reachable[v] = true
			levels[v] = next
			queue = append(queue, v)
		}
	}

	for i := 0; i < n; i++ {
		if !reachable[i] {
			order = append(order, i)
		}
	}
	return levels, reachable, order
}
