// Package fixtures holds the playground's mock data: five accounts, the
// example enforcer contracts, and two sample delegations forming a chain
// Alice -> Bob -> Carol.
package fixtures

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

// Accounts returns the mock accounts.
func Accounts() []account.Account {
	return []account.Account{
		{ID: "alice", Address: "0x1234567890123456789012345678901234567890", Name: "Alice", AvatarColor: "bg-pink-500", Balance: "10.5 ETH"},
		{ID: "bob", Address: "0x2345678901234567890123456789012345678901", Name: "Bob", AvatarColor: "bg-blue-500", Balance: "5.2 ETH"},
		{ID: "carol", Address: "0x3456789012345678901234567890123456789012", Name: "Carol", AvatarColor: "bg-green-500", Balance: "3.8 ETH"},
		{ID: "dave", Address: "0x4567890123456789012345678901234567890123", Name: "Dave", AvatarColor: "bg-orange-500", Balance: "7.1 ETH"},
		{ID: "eve", Address: "0x5678901234567890123456789012345678901234", Name: "Eve", AvatarColor: "bg-purple-500", Balance: "2.9 ETH"},
	}
}

// Registry returns a registry seeded with the mock accounts.
func Registry() *account.MemoryRegistry {
	return account.NewMemoryRegistry(Accounts()...)
}

// Enforcers are the example enforcer addresses used by the sample data.
var Enforcers = map[caveat.Kind]string{
	caveat.KindAllowedTargets:   "0x1111111111111111111111111111111111111111",
	caveat.KindNativeTokenLimit: "0x2222222222222222222222222222222222222222",
	caveat.KindERC20Limit:       "0x3333333333333333333333333333333333333333",
	caveat.KindTimeWindow:       "0x4444444444444444444444444444444444444444",
}

// RegisterEnforcers binds the example enforcers into reg.
func RegisterEnforcers(reg *caveat.Registry) error {
	for _, k := range []caveat.Kind{
		caveat.KindAllowedTargets,
		caveat.KindNativeTokenLimit,
		caveat.KindERC20Limit,
		caveat.KindTimeWindow,
	} {
		if err := reg.Register(Enforcers[k], k); err != nil {
			return err
		}
	}
	return nil
}

// UniswapRouter is the target allowed by the first sample delegation.
const UniswapRouter = "0x6789012345678901234567890123456789012345"

// Samples returns the two sample delegations together with the table of
// their decoded caveats. The time window of the second delegation starts at
// now and lasts seven days. Wire caveats are encoded through reg, so reg
// must hold the example enforcers.
func Samples(reg *caveat.Registry, now time.Time) ([]delegation.Delegation, caveat.Table, error) {
	accts := Accounts()

	oneEth := caveat.NewNativeTokenLimit(uint256.NewInt(1_000_000_000_000_000_000))
	router := caveat.NewAllowedTargets([]common.Address{common.HexToAddress(UniswapRouter)})
	router.Text = "Only Uniswap Router"

	usdc, _ := caveat.TokenBySymbol("USDC")
	start := uint64(now.Unix())
	end := start + 7*24*60*60
	first := []caveat.Decoded{oneEth, router}
	second := []caveat.Decoded{
		caveat.NewERC20Limit(usdc, uint256.NewInt(500_000_000)),
		caveat.NewTimeWindow(&start, &end),
	}

	rootWire, err := encodeAll(reg, first)
	if err != nil {
		return nil, nil, err
	}
	childWire, err := encodeAll(reg, second)
	if err != nil {
		return nil, nil, err
	}

	root := delegation.Delegation{
		Delegate:  accts[1].Address,
		Delegator: accts[0].Address,
		Authority: delegation.RootAuthority,
		Caveats:   rootWire,
		Salt:      "0x0000000000000000000000000000000000000000000000000000000000000001",
		Signature: "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890ab",
	}
	child := delegation.Delegation{
		Delegate:  accts[2].Address,
		Delegator: accts[1].Address,
		Authority: root.Hash().Hex(),
		Caveats:   childWire,
		Salt:      "0x0000000000000000000000000000000000000000000000000000000000000002",
		Signature: "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef12",
	}

	table := caveat.Table{
		root.ID():  first,
		child.ID(): second,
	}
	return []delegation.Delegation{root, child}, table, nil
}

func encodeAll(reg *caveat.Registry, decoded []caveat.Decoded) ([]delegation.Caveat, error) {
	out := make([]delegation.Caveat, 0, len(decoded))
	for _, d := range decoded {
		c, err := reg.Encode(d)
		if err != nil {
			return nil, fmt.Errorf("encoding sample %s caveat: %w", d.Kind(), err)
		}
		out = append(out, c)
	}
	return out, nil
}
