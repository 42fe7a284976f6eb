package graph

// UnionFind is a disjoint-set forest over account indices, with path
// halving and union by size.
type UnionFind struct {
	parent []int
	size   []int
	sets   int
}

// NewUnionFind creates n singleton sets.
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		sets:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Find returns the representative of i's set.
func (uf *UnionFind) Find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// Union merges the sets of a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	uf.sets--
	return true
}

// Sets returns the number of disjoint sets.
func (uf *UnionFind) Sets() int { return uf.sets }

// Components returns the sets as index lists. Components are ordered by
// their smallest member and members are ascending, so output follows
// first-appearance order.
func (uf *UnionFind) Components() [][]int {
	pos := make(map[int]int)
	var out [][]int
	for i := range uf.parent {
		r := uf.Find(i)
		p, ok := pos[r]
		if !ok {
			p = len(out)
			pos[r] = p
			out = append(out, nil)
		}
		out[p] = append(out[p], i)
	}
	return out
}
