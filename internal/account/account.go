package account

import (
	"strings"
)

// DefaultAvatarColor is used for addresses the registry does not know.
const DefaultAvatarColor = "bg-gray-500"

// Account is a display-only identity in the playground.
type Account struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
	Balance     string `json:"balance,omitempty"`
}

// Registry resolves an address to its account, if known.
type Registry interface {
	Lookup(address string) (Account, bool)
}

// Fold returns the case-folded form of an address. Every address comparison
// in the playground goes through Fold.
func Fold(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// FormatAddress shortens an address to 0x1234...abcd.
// Strings shorter than 10 characters are returned unchanged.
func FormatAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// Fallback synthesizes display data for an address missing from a registry.
func Fallback(address string) Account {
	folded := Fold(address)
	id := folded
	if len(id) > 8 {
		id = id[:8]
	}
	return Account{
		ID:          id,
		Address:     folded,
		Name:        FormatAddress(folded),
		AvatarColor: DefaultAvatarColor,
	}
}

// Resolve looks address up in reg and falls back to synthesized display data.
func Resolve(reg Registry, address string) (Account, bool) {
	if reg != nil {
		if a, ok := reg.Lookup(address); ok {
			return a, true
		}
	}
	return Fallback(address), false
}
