package caveat

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/holiman/uint256"
)

// EtherDecimals is the number of decimals of the native token.
const EtherDecimals = 18

// FormatUnits renders v as a decimal number with the given decimals,
// dropping trailing zeros: 1500000 with 6 decimals is "1.5".
func FormatUnits(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	s := v.Dec()
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole := s[:len(s)-d]
	frac := strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseUnits converts a human decimal amount into base units. Digits beyond
// the token's precision are dropped.
func ParseUnits(amount string, decimals uint8) (*uint256.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	d := int(decimals)
	if len(frac) > d {
		frac = frac[:d]
	}
	frac += strings.Repeat("0", d-len(frac))

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", amount)
	}
	return v, nil
}

// ParseBaseUnits parses an integer amount already expressed in base units.
func ParseBaseUnits(amount string) (*uint256.Int, error) {
	return ParseUnits(amount, 0)
}

// FormatEth is the short label form of a wei amount: two decimals, in ETH
// from 1 ETH upwards and in mETH below.
func FormatEth(wei *uint256.Int) string {
	if wei == nil {
		return "0.00 mETH"
	}
	eth, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei.ToBig()),
		big.NewFloat(1e18),
	).Float64()
	if eth >= 1 {
		return fmt.Sprintf("%.2f ETH", eth)
	}
	return fmt.Sprintf("%.2f mETH", eth*1000)
}

// FormatToken renders a token amount with thousands separators.
func FormatToken(v *uint256.Int, decimals uint8, symbol string) string {
	return groupThousands(FormatUnits(v, decimals)) + " " + symbol
}

func groupThousands(amount string) string {
	whole, frac, _ := strings.Cut(amount, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return amount
	}
	out := humanize.BigComma(n)
	if frac != "" {
		out += "." + frac
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
