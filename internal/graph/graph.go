// Package graph turns an ordered list of delegations into a leveled
// node/edge layout for a renderer, and analyzes the shape of delegation
// chains (topology, choke points, expiry).
package graph

import (
	"strconv"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

// Node and edge type tags understood by the renderer.
const (
	NodeTypeAccount    = "account"
	EdgeTypeDelegation = "delegation"
)

// Position is a node's top-left corner in renderer coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the display payload of a node.
type NodeData struct {
	account.Account
	Level  int  `json:"level"`
	IsRoot bool `json:"isRoot"`
}

// Node is one distinct account. ID is the folded address.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// EdgeData is the display payload of an edge.
type EdgeData struct {
	DelegationID string                `json:"delegationId"`
	Label        string                `json:"label"`
	Caveats      []caveat.Decoded      `json:"caveats"`
	Delegation   delegation.Delegation `json:"delegation"`
}

// Edge is one delegation, from delegator to delegate.
type Edge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     string   `json:"type"`
	Animated bool     `json:"animated"`
	Data     EdgeData `json:"data"`
}

// Graph is the builder's output. Nodes follow layout order (level, then
// discovery order); edges follow input order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node for address, if present.
func (g *Graph) Node(address string) (Node, bool) {
	id := account.Fold(address)
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Roots returns the root nodes in layout order.
func (g *Graph) Roots() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Data.IsRoot {
			out = append(out, n)
		}
	}
	return out
}

// MaxLevel returns the deepest level in the graph, or -1 when empty.
func (g *Graph) MaxLevel() int {
	deepest := -1
	for _, n := range g.Nodes {
		if n.Data.Level > deepest {
			deepest = n.Data.Level
		}
	}
	return deepest
}

// LayoutConfig holds the layout constants.
type LayoutConfig struct {
	NodeWidth float64
	RowHeight float64
	BaseY     float64
	CenterX   float64
}

// DefaultLayout returns the standard layout constants.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		NodeWidth: 180,
		RowHeight: 160,
		BaseY:     50,
		CenterX:   250,
	}
}

func (l LayoutConfig) orDefault() LayoutConfig {
	if l == (LayoutConfig{}) {
		return DefaultLayout()
	}
	return l
}

// position returns the slot for index i of n nodes on a level.
func (l LayoutConfig) position(level, i, n int) Position {
	startX := l.CenterX - float64(n)*l.NodeWidth/2 + l.NodeWidth/2
	return Position{
		X: startX + float64(i)*l.NodeWidth,
		Y: l.BaseY + float64(level)*l.RowHeight,
	}
}

// CaveatLabel renders the edge label for n caveats.
func CaveatLabel(n int) string {
	if n == 1 {
		return "1 caveat"
	}
	return strconv.Itoa(n) + " caveats"
}
