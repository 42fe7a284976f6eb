package config

import (
	"github.com/ethereum/go-ethereum/common"

	"caveatlab/delegraph/internal/caveat"
)

// Supported chain ids.
const (
	BaseChainID        int64 = 8453
	BaseSepoliaChainID int64 = 84532
)

// Chain is a static chain environment. The playground never talks to the
// RPC endpoint; the addresses label enforcers and contracts.
type Chain struct {
	ID                int64                          `json:"chainId"`
	Name              string                         `json:"name"`
	RPCURL            string                         `json:"rpcUrl"`
	DelegationManager common.Address                 `json:"delegationManager"`
	EntryPoint        common.Address                 `json:"entryPoint"`
	Enforcers         map[caveat.Kind]common.Address `json:"enforcers"`
}

var (
	delegationManager = common.HexToAddress("0xdb9B1e94B5b69Df7e401DDbedE43491141047dB3")
	entryPoint        = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
)

func enforcers() map[caveat.Kind]common.Address {
	return map[caveat.Kind]common.Address{
		caveat.KindAllowedTargets:   common.HexToAddress("0x815c3fF9e5C4f6b9A8C3e1F2b3a4c5d6e7f8a9b0"),
		caveat.KindNativeTokenLimit: common.HexToAddress("0x1234567890123456789012345678901234567890"),
		caveat.KindERC20Limit:       common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"),
		caveat.KindTimeWindow:       common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
	}
}

// ForChain returns the environment for id. Unknown ids get Base Sepolia.
func ForChain(id int64) Chain {
	c := Chain{
		ID:                BaseSepoliaChainID,
		Name:              "Base Sepolia",
		RPCURL:            "https://sepolia.base.org",
		DelegationManager: delegationManager,
		EntryPoint:        entryPoint,
		Enforcers:         enforcers(),
	}
	if id == BaseChainID {
		c.ID = BaseChainID
		c.Name = "Base"
		c.RPCURL = "https://mainnet.base.org"
	}
	return c
}

// Known reports whether id is a supported chain.
func Known(id int64) bool {
	return id == BaseChainID || id == BaseSepoliaChainID
}

// RegisterEnforcers binds this chain's enforcer addresses in reg.
func (c Chain) RegisterEnforcers(reg *caveat.Registry) error {
	for _, m := range caveat.Catalog() {
		addr, ok := c.Enforcers[m.Kind]
		if !ok {
			continue
		}
		if err := reg.Register(addr.Hex(), m.Kind); err != nil {
			return err
		}
	}
	return nil
}
