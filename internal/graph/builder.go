package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sync"

	"go.uber.org/zap"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

// Build lays out records with the default layout and no logging.
func Build(records []delegation.Delegation, accounts account.Registry, caveats caveat.Lookup) *Graph {
	return build(records, accounts, caveats, DefaultLayout(), zap.NewNop())
}

func build(records []delegation.Delegation, accounts account.Registry, caveats caveat.Lookup, layout LayoutConfig, log *zap.Logger) *Graph {
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	if len(records) == 0 {
		return g
	}
	layout = layout.orDefault()

	snap := NewSnapshot(records)
	levels, _, order := snap.Levels()

	// Group by level, keeping discovery order inside each level.
	byLevel := make(map[int][]int)
	maxLevel := 0
	for _, idx := range order {
		l := levels[idx]
		byLevel[l] = append(byLevel[l], idx)
		if l > maxLevel {
			maxLevel = l
		}
	}

	for level := 0; level <= maxLevel; level++ {
		row := byLevel[level]
		for i, idx := range row {
			addr := snap.Accounts[idx]
			acct, known := account.Resolve(accounts, addr)
			if !known {
				log.Debug("account not in registry, using fallback", zap.String("address", addr))
			}
			g.Nodes = append(g.Nodes, Node{
				ID:       addr,
				Type:     NodeTypeAccount,
				Position: layout.position(level, i, len(row)),
				Data: NodeData{
					Account: acct,
					Level:   level,
					IsRoot:  snap.Roots[idx],
				},
			})
		}
	}

	for i, d := range records {
		var decoded []caveat.Decoded
		if caveats != nil {
			decoded = caveats.DecodedCaveatsFor(d)
		}
		count := len(decoded)
		if count == 0 && len(d.Caveats) > 0 {
			log.Debug("no decoded caveats, labelling from wire caveats",
				zap.String("delegation_id", d.ID()),
				zap.Int("wire_caveats", len(d.Caveats)),
			)
			count = len(d.Caveats)
		}
		if decoded == nil {
			decoded = []caveat.Decoded{}
		}
		id := d.ID()
		g.Edges = append(g.Edges, Edge{
			ID:       id,
			Source:   snap.Accounts[snap.From[i]],
			Target:   snap.Accounts[snap.To[i]],
			Type:     EdgeTypeDelegation,
			Animated: true,
			Data: EdgeData{
				DelegationID: id,
				Label:        CaveatLabel(count),
				Caveats:      decoded,
				Delegation:   d.Clone(),
			},
		})
	}
	return g
}

// Builder memoizes the last build, keyed by a fingerprint of the input
// records. A repeated call with equal records returns the same *Graph, which
// callers must treat as read-only.
type Builder struct {
	accounts account.Registry
	caveats  caveat.Lookup
	layout   LayoutConfig
	log      *zap.Logger

	mu      sync.Mutex
	lastKey [sha256.Size]byte
	last    *Graph
}

// BuilderConfig configures a Builder. Zero Layout means DefaultLayout.
type BuilderConfig struct {
	Accounts account.Registry
	Caveats  caveat.Lookup
	Layout   LayoutConfig
	Logger   *zap.Logger
}

// NewBuilder returns a memoizing builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		accounts: cfg.Accounts,
		caveats:  cfg.Caveats,
		layout:   cfg.Layout.orDefault(),
		log:      log.Named("graph"),
	}
}

// Build returns the graph for records, reusing the previous result when the
// records are unchanged.
func (b *Builder) Build(records []delegation.Delegation) *Graph {
	key := Fingerprint(records)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil && key == b.lastKey {
		return b.last
	}
	g := build(records, b.accounts, b.caveats, b.layout, b.log)
	b.lastKey, b.last = key, g
	b.log.Debug("graph built",
		zap.Int("records", len(records)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	return g
}

// Invalidate drops the memoized graph, e.g. after the account registry or
// caveat lookup changed.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.last = nil
	b.mu.Unlock()
}

// Fingerprint hashes every field of every record, in order.
func Fingerprint(records []delegation.Delegation) [sha256.Size]byte {
	h := sha256.New()
	writeInt(h, len(records))
	for _, d := range records {
		writeField(h, d.Delegator)
		writeField(h, d.Delegate)
		writeField(h, d.Authority)
		writeField(h, d.Salt)
		writeField(h, d.Signature)
		writeInt(h, len(d.Caveats))
		for _, c := range d.Caveats {
			writeField(h, c.Enforcer)
			writeField(h, c.Terms)
			writeField(h, c.Args)
		}
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeField(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
