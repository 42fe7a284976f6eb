// Package caveat turns wire caveats into human-readable restrictions and back.
//
// A wire caveat names an enforcer contract and carries opaque terms. The
// Registry maps enforcer addresses to a Kind and knows how each kind packs
// its terms, so a caveat can be encoded from a Decoded value and decoded
// again for display. Table keeps the older shape of the playground, where
// decoded caveats were looked up by delegation identity instead of decoded.
package caveat

// Kind identifies which restriction logic an enforcer applies.
type Kind string

const (
	KindAllowedTargets   Kind = "allowedTargets"
	KindNativeTokenLimit Kind = "nativeTokenTransferAmount"
	KindERC20Limit       Kind = "erc20TransferAmount"
	KindTimeWindow       Kind = "timestamp"
)

func (k Kind) String() string { return string(k) }

// Meta is catalog data for presenting a caveat kind.
type Meta struct {
	Kind        Kind   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

var catalog = []Meta{
	{
		Kind:        KindAllowedTargets,
		Name:        "Allowed Targets",
		Description: "Restrict which contract addresses can be called",
		Icon:        "Target",
		Color:       "text-blue-500",
	},
	{
		Kind:        KindNativeTokenLimit,
		Name:        "Native Token Limit",
		Description: "Cap the maximum ETH that can be spent",
		Icon:        "Coins",
		Color:       "text-yellow-500",
	},
	{
		Kind:        KindERC20Limit,
		Name:        "ERC-20 Allowance",
		Description: "Limit the amount of specific tokens that can be transferred",
		Icon:        "CircleDollarSign",
		Color:       "text-green-500",
	},
	{
		Kind:        KindTimeWindow,
		Name:        "Time Window",
		Description: "Set a validity period for when the delegation can be used",
		Icon:        "Clock",
		Color:       "text-purple-500",
	},
}

// Catalog returns metadata for every supported kind, in display order.
func Catalog() []Meta {
	out := make([]Meta, len(catalog))
	copy(out, catalog)
	return out
}

// MetaFor returns catalog data for k.
func MetaFor(k Kind) (Meta, bool) {
	for _, m := range catalog {
		if m.Kind == k {
			return m, true
		}
	}
	return Meta{}, false
}

// ParseKind accepts a kind name as written in the catalog.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := MetaFor(k)
	return k, ok
}
