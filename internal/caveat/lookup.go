package caveat

import (
	"go.uber.org/zap"

	"caveatlab/delegraph/internal/delegation"
)

// Lookup returns the decoded caveats attached to a delegation.
type Lookup interface {
	DecodedCaveatsFor(d delegation.Delegation) []Decoded
}

// Table is a hand-written mapping from delegation identity to decoded
// caveats. It ignores the wire caveats entirely.
type Table map[string][]Decoded

// DecodedCaveatsFor implements Lookup.
func (t Table) DecodedCaveatsFor(d delegation.Delegation) []Decoded {
	return t[d.ID()]
}

// Decoder decodes the wire caveats of each delegation through a Registry.
// Caveats that fail to decode are logged and left out.
type Decoder struct {
	Registry *Registry
	Logger   *zap.Logger
}

// DecodedCaveatsFor implements Lookup.
func (l Decoder) DecodedCaveatsFor(d delegation.Delegation) []Decoded {
	out := make([]Decoded, 0, len(d.Caveats))
	for i, c := range d.Caveats {
		dec, err := l.Registry.Decode(c)
		if err != nil {
			if l.Logger != nil {
				l.Logger.Debug("skipping undecodable caveat",
					zap.String("delegation_id", d.ID()),
					zap.Int("index", i),
					zap.String("enforcer", c.Enforcer),
					zap.Error(err),
				)
			}
			continue
		}
		out = append(out, dec)
	}
	return out
}

// Chain tries each lookup in order and returns the first non-empty result.
type Chain []Lookup

// DecodedCaveatsFor implements Lookup.
func (c Chain) DecodedCaveatsFor(d delegation.Delegation) []Decoded {
	for _, l := range c {
		if got := l.DecodedCaveatsFor(d); len(got) > 0 {
			return got
		}
	}
	return nil
}
