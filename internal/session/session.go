// Package session wires one playground session: accounts, enforcers, the
// delegation store, caveat lookup and the memoizing graph builder. The CLI
// and the HTTP server both work against a Session.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/config"
	"caveatlab/delegraph/internal/delegation"
	"caveatlab/delegraph/internal/fixtures"
	"caveatlab/delegraph/internal/graph"
	"caveatlab/delegraph/internal/scenario"
	"caveatlab/delegraph/internal/store"
)

// Options configures Open.
type Options struct {
	// Chain selects the enforcer addresses used for new caveats.
	Chain config.Chain
	// Scenario is a scenario file to load instead of the built-in samples.
	Scenario string
	// Now anchors sample and scenario time windows. Zero means time.Now.
	Now    time.Time
	Logger *zap.Logger
}

// Session is the state of one playground session.
type Session struct {
	Accounts  *account.MemoryRegistry
	Enforcers *caveat.Registry
	Store     *store.Store
	Chain     config.Chain
	Source    string // scenario path, or "samples"

	builder *graph.Builder
	decoder caveat.Decoder
	log     *zap.Logger

	mu    sync.RWMutex
	table caveat.Table
}

// Open builds a session seeded from the scenario file, or from the sample
// delegations when none is given.
func Open(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Chain.ID == 0 {
		opts.Chain = config.ForChain(config.BaseSepoliaChainID)
	}

	enforcers := caveat.NewRegistry()
	if err := fixtures.RegisterEnforcers(enforcers); err != nil {
		return nil, fmt.Errorf("registering sample enforcers: %w", err)
	}
	// Registered last so new caveats are encoded with the chain's addresses.
	if err := opts.Chain.RegisterEnforcers(enforcers); err != nil {
		return nil, fmt.Errorf("registering %s enforcers: %w", opts.Chain.Name, err)
	}

	st, err := store.Open()
	if err != nil {
		return nil, err
	}

	s := &Session{
		Accounts:  fixtures.Registry(),
		Enforcers: enforcers,
		Store:     st,
		Chain:     opts.Chain,
		decoder:   caveat.Decoder{Registry: enforcers, Logger: log.Named("caveat")},
		log:       log.Named("session"),
		table:     caveat.Table{},
	}
	s.builder = graph.NewBuilder(graph.BuilderConfig{
		Accounts: s.Accounts,
		Caveats:  s,
		Logger:   log,
	})

	if err := s.seed(opts); err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) seed(opts Options) error {
	var (
		records []delegation.Delegation
		table   caveat.Table
	)
	if opts.Scenario != "" {
		sc, err := scenario.LoadFile(opts.Scenario, scenario.Options{
			Accounts:  s.Accounts,
			Enforcers: s.Enforcers,
			Now:       opts.Now,
		})
		if err != nil {
			return err
		}
		records, table, s.Source = sc.Delegations, sc.Caveats, sc.Path
	} else {
		var err error
		records, table, err = fixtures.Samples(s.Enforcers, opts.Now)
		if err != nil {
			return err
		}
		s.Source = "samples"
	}

	if err := s.Store.AddAll(records); err != nil {
		return fmt.Errorf("seeding store: %w", err)
	}
	for id, decoded := range table {
		s.table[id] = decoded
	}
	s.log.Info("session ready",
		zap.String("source", s.Source),
		zap.Int("delegations", len(records)),
		zap.Int64("chain_id", s.Chain.ID),
	)
	return nil
}

// Close releases the store.
func (s *Session) Close() error {
	return s.Store.Close()
}

// DecodedCaveatsFor implements caveat.Lookup. Caveats recorded when a
// delegation was created win; otherwise the wire caveats are decoded.
func (s *Session) DecodedCaveatsFor(d delegation.Delegation) []caveat.Decoded {
	s.mu.RLock()
	got := s.table[d.ID()]
	s.mu.RUnlock()
	if len(got) > 0 {
		return got
	}
	return s.decoder.DecodedCaveatsFor(d)
}

// Delegations returns the session's delegations in insertion order.
func (s *Session) Delegations() ([]delegation.Delegation, error) {
	return s.Store.All()
}

// Graph builds the current delegation graph.
func (s *Session) Graph() (*graph.Graph, error) {
	return graph.BuildFrom(s.builder, s.Store)
}

// Analyze runs chain analysis over the session. cfg may be nil.
func (s *Session) Analyze(cfg *graph.AnalyzerConfig) (*graph.AnalysisReport, error) {
	if cfg == nil {
		cfg = graph.DefaultConfig()
	}
	c := *cfg
	if c.Accounts == nil {
		c.Accounts = s.Accounts
	}
	if c.Caveats == nil {
		c.Caveats = s
	}
	return graph.AnalyzeFrom(s.Store, &c)
}

// Request describes a delegation to create.
type Request struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Parent  string        `json:"parent,omitempty"`
	Caveats []caveat.Spec `json:"caveats"`
}

// Draft is a fabricated, validated delegation with its decoded caveats.
type Draft struct {
	Delegation delegation.Delegation `json:"delegation"`
	Caveats    []caveat.Decoded      `json:"caveats"`
	Chain      []string              `json:"chain,omitempty"`
}

// ErrInvalidRequest wraps every problem with a Request.
var ErrInvalidRequest = errors.New("invalid delegation request")

// Preview builds and validates a delegation without storing it.
func (s *Session) Preview(req Request) (Draft, error) {
	from, err := s.resolve(req.From)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: from: %v", ErrInvalidRequest, err)
	}
	to, err := s.resolve(req.To)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: to: %v", ErrInvalidRequest, err)
	}

	var parent *delegation.Delegation
	if ref := strings.TrimSpace(req.Parent); ref != "" {
		p, err := s.parent(ref)
		if err != nil {
			return Draft{}, err
		}
		parent = &p
	}

	decoded := make([]caveat.Decoded, 0, len(req.Caveats))
	wire := make([]delegation.Caveat, 0, len(req.Caveats))
	for i, spec := range req.Caveats {
		dc, err := spec.Build()
		if err != nil {
			return Draft{}, fmt.Errorf("%w: caveat %d: %v", ErrInvalidRequest, i, err)
		}
		c, err := s.Enforcers.Encode(dc)
		if err != nil {
			return Draft{}, fmt.Errorf("caveat %d: %w", i, err)
		}
		decoded = append(decoded, dc)
		wire = append(wire, c)
	}

	d, err := delegation.New(from, to, parent, wire)
	if err != nil {
		return Draft{}, err
	}
	if err := d.Validate(); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	draft := Draft{Delegation: d, Caveats: decoded}
	chain, err := s.Store.Chain(d)
	if err != nil {
		return Draft{}, err
	}
	for _, link := range chain {
		draft.Chain = append(draft.Chain, link.ID())
	}
	return draft, nil
}

// Create previews req and adds the result to the session.
func (s *Session) Create(req Request) (Draft, error) {
	draft, err := s.Preview(req)
	if err != nil {
		return Draft{}, err
	}
	if err := s.Store.Add(draft.Delegation); err != nil {
		return Draft{}, err
	}
	s.mu.Lock()
	s.table[draft.Delegation.ID()] = draft.Caveats
	s.mu.Unlock()

	s.log.Info("delegation created",
		zap.String("delegation_id", draft.Delegation.ID()),
		zap.Bool("root", draft.Delegation.IsRoot()),
		zap.Int("caveats", len(draft.Caveats)),
	)
	return draft, nil
}

// Reset clears every delegation and reseeds the session.
func (s *Session) Reset(opts Options) error {
	if err := s.Store.Clear(); err != nil {
		return err
	}
	s.mu.Lock()
	s.table = caveat.Table{}
	s.mu.Unlock()
	s.builder.Invalidate()
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Scenario == "" && s.Source != "samples" {
		opts.Scenario = s.Source
	}
	return s.seed(opts)
}

// resolve accepts anything MemoryRegistry.Find does, or a well-formed
// address the registry does not know.
func (s *Session) resolve(ref string) (string, error) {
	a, err := s.Accounts.Find(ref)
	if err == nil {
		return a.Address, nil
	}
	if ref = strings.TrimSpace(ref); common.IsHexAddress(ref) {
		return ref, nil
	}
	return "", err
}

// parent finds a stored delegation by hash, then by identity.
func (s *Session) parent(ref string) (delegation.Delegation, error) {
	p, err := s.Store.ByHash(ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return delegation.Delegation{}, err
	}
	ds, err := s.Store.ByID(ref)
	if err != nil {
		return delegation.Delegation{}, err
	}
	if len(ds) == 0 {
		return delegation.Delegation{}, fmt.Errorf("%w: unknown parent %q", ErrInvalidRequest, ref)
	}
	return ds[0], nil
}
