package caveat

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Spec is the form-level description of a caveat, as typed by a user or
// written in a scenario file. Amount is in human units (ETH or whole
// tokens); MaxAmount is in base units and wins when both are set.
type Spec struct {
	Type      Kind     `json:"type"`
	Targets   []string `json:"targets,omitempty"`
	Amount    string   `json:"amount,omitempty"`
	MaxAmount string   `json:"maxAmount,omitempty"`
	Token     string   `json:"token,omitempty"`
	After     *uint64  `json:"after,omitempty"`
	Before    *uint64  `json:"before,omitempty"`
}

// Build validates the spec and returns the decoded caveat it describes.
func (s Spec) Build() (Decoded, error) {
	switch s.Type {
	case KindAllowedTargets:
		if len(s.Targets) == 0 {
			return nil, fmt.Errorf("%s: at least one target is required", s.Type)
		}
		targets := make([]common.Address, 0, len(s.Targets))
		for _, t := range s.Targets {
			if !common.IsHexAddress(t) {
				return nil, fmt.Errorf("%s: %q is not an address", s.Type, t)
			}
			targets = append(targets, common.HexToAddress(t))
		}
		return NewAllowedTargets(targets), nil

	case KindNativeTokenLimit:
		wei, err := s.amount(EtherDecimals)
		if err != nil {
			return nil, err
		}
		return NewNativeTokenLimit(wei), nil

	case KindERC20Limit:
		token, ok := ResolveToken(s.Token)
		if !ok {
			return nil, fmt.Errorf("%s: unknown token %q", s.Type, s.Token)
		}
		amount, err := s.amount(token.Decimals)
		if err != nil {
			return nil, err
		}
		return NewERC20Limit(token, amount), nil

	case KindTimeWindow:
		if s.After == nil && s.Before == nil {
			return nil, fmt.Errorf("%s: set after, before, or both", s.Type)
		}
		if s.After != nil && s.Before != nil && *s.Before <= *s.After {
			return nil, fmt.Errorf("%s: before (%d) must be later than after (%d)", s.Type, *s.Before, *s.After)
		}
		return NewTimeWindow(s.After, s.Before), nil
	}
	return nil, fmt.Errorf("unsupported caveat type %q", s.Type)
}

func (s Spec) amount(decimals uint8) (*uint256.Int, error) {
	var (
		v   *uint256.Int
		err error
	)
	switch {
	case s.MaxAmount != "":
		v, err = ParseBaseUnits(s.MaxAmount)
	case s.Amount != "":
		v, err = ParseUnits(s.Amount, decimals)
	default:
		return nil, fmt.Errorf("%s: amount is required", s.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Type, err)
	}
	if v.IsZero() {
		return nil, fmt.Errorf("%s: amount must be greater than zero", s.Type)
	}
	return v, nil
}
