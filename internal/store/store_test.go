package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"caveatlab/delegraph/internal/delegation"
)

const (
	alice = "0x1234567890123456789012345678901234567890"
	bob   = "0x2345678901234567890123456789012345678901"
	carol = "0x3456789012345678901234567890123456789012"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleChain() (root, child delegation.Delegation) {
	root = delegation.Unsigned(alice, bob, nil, []delegation.Caveat{
		{Enforcer: "0x2222222222222222222222222222222222222222", Terms: "0x01", Args: "0x"},
		{Enforcer: "0x1111111111111111111111111111111111111111", Terms: "0x02", Args: "0x"},
	})
	root.Salt = "0x01"
	child = delegation.Unsigned(bob, carol, &root, nil)
	child.Salt = "0x02"
	return root, child
}

func TestAddAndAll(t *testing.T) {
	s := openTest(t)
	root, child := sampleChain()

	if err := s.AddAll([]delegation.Delegation{root, child}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 delegations, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], root) {
		t.Errorf("round trip changed root:\n got %+v\nwant %+v", got[0], root)
	}
	if !reflect.DeepEqual(got[1], child) {
		t.Errorf("round trip changed child:\n got %+v\nwant %+v", got[1], child)
	}
	if got[0].Caveats[0].Enforcer != root.Caveats[0].Enforcer {
		t.Error("caveat order should be preserved")
	}
}

func TestEmptyStore(t *testing.T) {
	s := openTest(t)
	got, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestLookups(t *testing.T) {
	s := openTest(t)
	root, child := sampleChain()
	if err := s.AddAll([]delegation.Delegation{root, child}); err != nil {
		t.Fatal(err)
	}

	byDelegator, err := s.ByDelegator(strings.ToUpper(bob[2:]))
	if err != nil {
		t.Fatal(err)
	}
	if len(byDelegator) != 0 {
		t.Errorf("address without 0x prefix should not match, got %d", len(byDelegator))
	}

	byDelegator, _ = s.ByDelegator("0x" + strings.ToUpper(bob[2:]))
	if len(byDelegator) != 1 || byDelegator[0].Delegate != carol {
		t.Errorf("expected bob->carol, got %+v", byDelegator)
	}
	byDelegate, _ := s.ByDelegate(bob)
	if len(byDelegate) != 1 || byDelegate[0].Delegator != alice {
		t.Errorf("expected alice->bob, got %+v", byDelegate)
	}

	got, err := s.ByHash(strings.ToUpper(root.Hash().Hex()))
	if err != nil {
		t.Fatalf("by hash: %v", err)
	}
	if got.ID() != root.ID() {
		t.Errorf("expected %s, got %s", root.ID(), got.ID())
	}
	if _, err := s.ByHash("0xdead"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicatesKept(t *testing.T) {
	s := openTest(t)
	root, _ := sampleChain()
	for i := 0; i < 2; i++ {
		if err := s.Add(root); err != nil {
			t.Fatal(err)
		}
	}
	dups, err := s.ByID(strings.ToUpper(root.ID()))
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 2 {
		t.Errorf("expected both duplicates, got %d", len(dups))
	}
	if n, _ := s.Len(); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestChain(t *testing.T) {
	s := openTest(t)
	root, child := sampleChain()
	grandchild := delegation.Unsigned(carol, alice, &child, nil)
	if err := s.AddAll([]delegation.Delegation{root, child}); err != nil {
		t.Fatal(err)
	}

	chain, err := s.Chain(grandchild)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(chain))
	}
	if chain[1].ID() != child.ID() || chain[2].ID() != root.ID() {
		t.Errorf("unexpected chain order: %s, %s", chain[1].ID(), chain[2].ID())
	}

	orphan := delegation.Unsigned(carol, alice, nil, nil)
	orphan.Authority = "0x" + strings.Repeat("ab", 32)
	chain, err = s.Chain(orphan)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 1 {
		t.Errorf("missing parent should end the chain, got %d", len(chain))
	}
}

func TestClear(t *testing.T) {
	s := openTest(t)
	root, child := sampleChain()
	if err := s.AddAll([]delegation.Delegation{root, child}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("expected 0 after clear, got %d", n)
	}
	var caveats int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM caveats").Scan(&caveats); err != nil {
		t.Fatal(err)
	}
	if caveats != 0 {
		t.Errorf("caveats should cascade, got %d", caveats)
	}
}
