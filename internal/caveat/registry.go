package caveat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"caveatlab/delegraph/internal/delegation"
)

var (
	// ErrUnknownEnforcer is returned for a caveat whose enforcer is not registered.
	ErrUnknownEnforcer = errors.New("unknown enforcer")
	// ErrMalformedTerms is returned when terms do not match the enforcer's layout.
	ErrMalformedTerms = errors.New("malformed terms")
	// ErrNoEnforcer is returned when encoding a kind with no registered enforcer.
	ErrNoEnforcer = errors.New("no enforcer registered for kind")
)

const (
	addressLen = common.AddressLength
	wordLen    = 32
)

// Registry maps enforcer contracts to caveat kinds. Several addresses may
// decode to the same kind; encoding uses the most recently registered one.
type Registry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]Kind
	byKind    map[Kind]common.Address
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[common.Address]Kind),
		byKind:    make(map[Kind]common.Address),
	}
}

// Register binds an enforcer address to a kind.
func (r *Registry) Register(enforcer string, k Kind) error {
	if !common.IsHexAddress(enforcer) {
		return fmt.Errorf("registering %s enforcer: %q is not an address", k, enforcer)
	}
	if _, ok := MetaFor(k); !ok {
		return fmt.Errorf("registering enforcer %s: unsupported kind %q", enforcer, k)
	}
	addr := common.HexToAddress(enforcer)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAddress[addr] = k
	r.byKind[k] = addr
	return nil
}

// KindOf returns the kind bound to enforcer.
func (r *Registry) KindOf(enforcer string) (Kind, bool) {
	if !common.IsHexAddress(enforcer) {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byAddress[common.HexToAddress(enforcer)]
	return k, ok
}

// EnforcerFor returns the address used when encoding k.
func (r *Registry) EnforcerFor(k Kind) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byKind[k]
	return a, ok
}

// Encode packs a decoded caveat into wire form.
func (r *Registry) Encode(d Decoded) (delegation.Caveat, error) {
	enforcer, ok := r.EnforcerFor(d.Kind())
	if !ok {
		return delegation.Caveat{}, fmt.Errorf("%w: %s", ErrNoEnforcer, d.Kind())
	}

	var terms []byte
	switch c := d.(type) {
	case AllowedTargets:
		for _, t := range c.Targets {
			terms = append(terms, t.Bytes()...)
		}
	case NativeTokenLimit:
		terms = word(c.MaxAmount)
	case ERC20Limit:
		terms = append(c.TokenAddress.Bytes(), word(c.MaxAmount)...)
	case TimeWindow:
		terms = make([]byte, wordLen)
		if c.AfterThreshold != nil {
			putUint128(terms[:16], *c.AfterThreshold)
		}
		if c.BeforeThreshold != nil {
			putUint128(terms[16:], *c.BeforeThreshold)
		}
	default:
		return delegation.Caveat{}, fmt.Errorf("encoding caveat: unsupported type %T", d)
	}

	return delegation.Caveat{
		Enforcer: enforcer.Hex(),
		Terms:    hexutil.Encode(terms),
		Args:     "0x",
	}, nil
}

// Decode dispatches on the enforcer address and parses the terms.
func (r *Registry) Decode(c delegation.Caveat) (Decoded, error) {
	k, ok := r.KindOf(c.Enforcer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnforcer, c.Enforcer)
	}
	terms, err := hexutil.Decode(c.Terms)
	if err != nil {
		return nil, fmt.Errorf("%w: %s terms: %v", ErrMalformedTerms, k, err)
	}

	switch k {
	case KindAllowedTargets:
		return decodeAllowedTargets(terms)
	case KindNativeTokenLimit:
		if len(terms) != wordLen {
			return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrMalformedTerms, k, wordLen, len(terms))
		}
		return NewNativeTokenLimit(new(uint256.Int).SetBytes(terms)), nil
	case KindERC20Limit:
		return decodeERC20Limit(terms)
	case KindTimeWindow:
		return decodeTimeWindow(terms)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEnforcer, c.Enforcer)
}

// Packed 20-byte addresses take precedence over 32-byte padded words when a
// length fits both.
func decodeAllowedTargets(terms []byte) (Decoded, error) {
	var targets []common.Address
	switch {
	case len(terms) > 0 && len(terms)%addressLen == 0:
		for i := 0; i < len(terms); i += addressLen {
			targets = append(targets, common.BytesToAddress(terms[i:i+addressLen]))
		}
	case len(terms) > 0 && len(terms)%wordLen == 0:
		for i := 0; i < len(terms); i += wordLen {
			w := terms[i : i+wordLen]
			if !allZero(w[:wordLen-addressLen]) {
				return nil, fmt.Errorf("%w: %s word %d is not a padded address", ErrMalformedTerms, KindAllowedTargets, i/wordLen)
			}
			targets = append(targets, common.BytesToAddress(w[wordLen-addressLen:]))
		}
	default:
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrMalformedTerms, KindAllowedTargets, len(terms))
	}
	return NewAllowedTargets(targets), nil
}

func decodeERC20Limit(terms []byte) (Decoded, error) {
	var tokenBytes, amountBytes []byte
	switch len(terms) {
	case addressLen + wordLen:
		tokenBytes, amountBytes = terms[:addressLen], terms[addressLen:]
	case 2 * wordLen:
		if !allZero(terms[:wordLen-addressLen]) {
			return nil, fmt.Errorf("%w: %s token word is not a padded address", ErrMalformedTerms, KindERC20Limit)
		}
		tokenBytes, amountBytes = terms[wordLen-addressLen:wordLen], terms[wordLen:]
	default:
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrMalformedTerms, KindERC20Limit, len(terms))
	}
	addr := common.BytesToAddress(tokenBytes)
	token, ok := TokenByAddress(addr)
	if !ok {
		token = unknownToken(addr)
	}
	return NewERC20Limit(token, new(uint256.Int).SetBytes(amountBytes)), nil
}

// Empty terms are accepted as an unbounded window. Zero thresholds mean unset.
func decodeTimeWindow(terms []byte) (Decoded, error) {
	if len(terms) == 0 {
		return NewTimeWindow(nil, nil), nil
	}
	if len(terms) != wordLen {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrMalformedTerms, KindTimeWindow, wordLen, len(terms))
	}
	after, err := getUint128(terms[:16])
	if err != nil {
		return nil, err
	}
	before, err := getUint128(terms[16:])
	if err != nil {
		return nil, err
	}
	var afterPtr, beforePtr *uint64
	if after != 0 {
		afterPtr = &after
	}
	if before != 0 {
		beforePtr = &before
	}
	return NewTimeWindow(afterPtr, beforePtr), nil
}

func word(v *uint256.Int) []byte {
	if v == nil {
		return make([]byte, wordLen)
	}
	b := v.Bytes32()
	return b[:]
}

func putUint128(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[15-i] = byte(v >> (8 * i))
	}
}

func getUint128(src []byte) (uint64, error) {
	if !allZero(src[:8]) {
		return 0, fmt.Errorf("%w: %s threshold exceeds 64 bits", ErrMalformedTerms, KindTimeWindow)
	}
	var v uint64
	for _, b := range src[8:16] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func allZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
