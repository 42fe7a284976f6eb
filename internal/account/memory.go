package account

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryRegistry is an in-memory account registry indexed by folded address
// and by id. It keeps insertion order for listing.
type MemoryRegistry struct {
	mu        sync.RWMutex
	accounts  []Account
	byAddress map[string]int
	byID      map[string]int
}

// NewMemoryRegistry returns a registry seeded with accounts.
// Later duplicates of an address or id replace earlier entries.
func NewMemoryRegistry(accounts ...Account) *MemoryRegistry {
	r := &MemoryRegistry{
		byAddress: make(map[string]int),
		byID:      make(map[string]int),
	}
	for _, a := range accounts {
		r.Add(a)
	}
	return r
}

// Add registers an account, replacing any account with the same address or id.
func (r *MemoryRegistry) Add(a Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Fold(a.Address)
	if idx, ok := r.byAddress[key]; ok {
		delete(r.byID, r.accounts[idx].ID)
		r.accounts[idx] = a
		r.byID[a.ID] = idx
		return
	}
	if idx, ok := r.byID[a.ID]; ok {
		delete(r.byAddress, Fold(r.accounts[idx].Address))
		r.accounts[idx] = a
		r.byAddress[key] = idx
		return
	}
	r.accounts = append(r.accounts, a)
	r.byAddress[key] = len(r.accounts) - 1
	r.byID[a.ID] = len(r.accounts) - 1
}

// Lookup implements Registry.
func (r *MemoryRegistry) Lookup(address string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byAddress[Fold(address)]
	if !ok {
		return Account{}, false
	}
	return r.accounts[idx], true
}

// ByID returns the account registered under id.
func (r *MemoryRegistry) ByID(id string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return Account{}, false
	}
	return r.accounts[idx], true
}

// All returns the registered accounts in insertion order.
func (r *MemoryRegistry) All() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// Find resolves a user-supplied reference: exact id, case-insensitive name,
// full address, then address prefix (at least 6 characters).
func (r *MemoryRegistry) Find(reference string) (Account, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return Account{}, fmt.Errorf("empty account reference")
	}

	if a, ok := r.ByID(ref); ok {
		return a, nil
	}
	if a, ok := r.Lookup(ref); ok {
		return a, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}

	if len(ref) >= 6 {
		prefix := Fold(ref)
		var matches []Account
		for _, a := range r.accounts {
			if strings.HasPrefix(Fold(a.Address), prefix) {
				matches = append(matches, a)
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
		default:
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = fmt.Sprintf("  %s %s", m.ID, FormatAddress(m.Address))
			}
			sort.Strings(names)
			return Account{}, fmt.Errorf("ambiguous account reference '%s'. %d matches:\n%s",
				reference, len(matches), strings.Join(names, "\n"))
		}
	}

	return Account{}, fmt.Errorf("account not found: %s", reference)
}
