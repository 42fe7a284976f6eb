package caveat

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an ERC-20 the playground knows how to label.
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

var tokens = []Token{
	{Symbol: "USDC", Address: common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"), Decimals: 6},
	{Symbol: "USDT", Address: common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"), Decimals: 6},
	{Symbol: "DAI", Address: common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"), Decimals: 18},
}

// Tokens lists the known tokens.
func Tokens() []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out
}

// TokenBySymbol finds a token case-insensitively.
func TokenBySymbol(symbol string) (Token, bool) {
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// TokenByAddress finds a token by contract address.
func TokenByAddress(addr common.Address) (Token, bool) {
	for _, t := range tokens {
		if t.Address == addr {
			return t, true
		}
	}
	return Token{}, false
}

// ResolveToken accepts a symbol or a contract address. Unknown addresses
// resolve to a token with 18 decimals labelled by its short address.
func ResolveToken(ref string) (Token, bool) {
	if t, ok := TokenBySymbol(ref); ok {
		return t, true
	}
	if !common.IsHexAddress(ref) {
		return Token{}, false
	}
	addr := common.HexToAddress(ref)
	if t, ok := TokenByAddress(addr); ok {
		return t, true
	}
	return unknownToken(addr), true
}

func unknownToken(addr common.Address) Token {
	hex := strings.ToLower(addr.Hex())
	return Token{Symbol: hex[:6] + "..." + hex[len(hex)-4:], Address: addr, Decimals: 18}
}
