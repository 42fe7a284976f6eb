// Package delegation holds the wire form of a permission grant: who grants,
// who receives, which parent it derives from, and the caveats that restrict it.
package delegation

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RootAuthority marks a delegation that does not derive from a parent.
const RootAuthority = "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

// ZeroSalt and EmptySignature fill an unsigned preview record.
const (
	ZeroSalt       = "0x0000000000000000000000000000000000000000000000000000000000000000"
	EmptySignature = "0x"
)

const (
	saltBytes      = 32
	signatureBytes = 65
)

// Caveat is the wire form of a restriction: the enforcer contract plus opaque
// terms and runtime args.
type Caveat struct {
	Enforcer string `json:"enforcer"`
	Terms    string `json:"terms"`
	Args     string `json:"args"`
}

// Delegation is a signed statement granting Delegate permission to act for
// Delegator. Authority is RootAuthority or the hash of the parent delegation.
type Delegation struct {
	Delegate  string   `json:"delegate"`
	Delegator string   `json:"delegator"`
	Authority string   `json:"authority"`
	Caveats   []Caveat `json:"caveats"`
	Salt      string   `json:"salt"`
	Signature string   `json:"signature"`
}

// ID is the identity of a delegation in a graph: folded delegator, delegate
// and salt joined by dashes.
func (d Delegation) ID() string {
	return fold(d.Delegator) + "-" + fold(d.Delegate) + "-" + fold(d.Salt)
}

// IsRoot reports whether d was granted under the root authority.
func (d Delegation) IsRoot() bool {
	return fold(d.Authority) == RootAuthority
}

// Hash is a keccak256 digest over the record's fields, excluding the
// signature. Child delegations use it as their Authority. It is a stand-in
// for the typed-data hash; no signer ever checks it.
func (d Delegation) Hash() common.Hash {
	caveatWords := make([][]byte, 0, len(d.Caveats))
	for _, c := range d.Caveats {
		caveatWords = append(caveatWords, crypto.Keccak256(
			common.HexToAddress(c.Enforcer).Bytes(),
			crypto.Keccak256(common.FromHex(c.Terms)),
		))
	}
	return crypto.Keccak256Hash(
		common.HexToAddress(d.Delegate).Bytes(),
		common.HexToAddress(d.Delegator).Bytes(),
		common.HexToHash(d.Authority).Bytes(),
		crypto.Keccak256(caveatWords...),
		common.LeftPadBytes(common.FromHex(d.Salt), 32),
	)
}

// Clone returns a deep copy of d.
func (d Delegation) Clone() Delegation {
	out := d
	if d.Caveats != nil {
		out.Caveats = make([]Caveat, len(d.Caveats))
		copy(out.Caveats, d.Caveats)
	}
	return out
}

// Display returns a copy with long hex fields cut to 20 characters, the way
// a preview pane shows them.
func (d Delegation) Display() Delegation {
	out := d.Clone()
	out.Salt = abbreviate(out.Salt)
	out.Signature = abbreviate(out.Signature)
	for i := range out.Caveats {
		out.Caveats[i].Terms = abbreviate(out.Caveats[i].Terms)
	}
	return out
}

// New fabricates a signed delegation. A nil parent makes it a root grant;
// otherwise the authority is the parent's hash. Salt and signature are random
// bytes, not a real signature.
func New(delegator, delegate string, parent *Delegation, caveats []Caveat) (Delegation, error) {
	salt, err := NewSalt()
	if err != nil {
		return Delegation{}, err
	}
	sig, err := MockSignature()
	if err != nil {
		return Delegation{}, err
	}
	d := Unsigned(delegator, delegate, parent, caveats)
	d.Salt = salt
	d.Signature = sig
	return d, nil
}

// Unsigned builds the preview form of a delegation: zero salt, empty signature.
func Unsigned(delegator, delegate string, parent *Delegation, caveats []Caveat) Delegation {
	authority := RootAuthority
	if parent != nil {
		authority = parent.Hash().Hex()
	}
	if caveats == nil {
		caveats = []Caveat{}
	}
	return Delegation{
		Delegate:  delegate,
		Delegator: delegator,
		Authority: authority,
		Caveats:   caveats,
		Salt:      ZeroSalt,
		Signature: EmptySignature,
	}
}

// NewSalt returns 32 random bytes as 0x-prefixed hex.
func NewSalt() (string, error) {
	return randomHex(saltBytes)
}

// MockSignature returns 65 random bytes as 0x-prefixed hex.
func MockSignature() (string, error) {
	return randomHex(signatureBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hexutil.Encode(buf), nil
}

func abbreviate(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
