package fixtures

import (
	"testing"
	"time"

	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

func TestSamples(t *testing.T) {
	reg := caveat.NewRegistry()
	if err := RegisterEnforcers(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)

	records, table, err := Samples(reg, now)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(records))
	}
	root, child := records[0], records[1]

	if !root.IsRoot() {
		t.Error("expected first sample to carry root authority")
	}
	if child.Authority != root.Hash().Hex() {
		t.Errorf("expected child authority %s, got %s", root.Hash().Hex(), child.Authority)
	}
	for _, d := range records {
		if err := d.Validate(); err != nil {
			t.Errorf("sample %s invalid: %v", d.ID(), err)
		}
	}

	got := table.DecodedCaveatsFor(root)
	if len(got) != 2 || got[1].Description() != "Only Uniswap Router" {
		t.Errorf("unexpected root caveats: %v", got)
	}
	got = table.DecodedCaveatsFor(child)
	if len(got) != 2 || got[1].Description() != "Valid for 7 days" {
		t.Errorf("unexpected child caveats: %v", got)
	}

	// Wire caveats decode back to the same kinds.
	dec := caveat.Decoder{Registry: reg}
	for _, d := range records {
		decoded := dec.DecodedCaveatsFor(d)
		want := table.DecodedCaveatsFor(d)
		if len(decoded) != len(want) {
			t.Fatalf("%s: expected %d decoded caveats, got %d", d.ID(), len(want), len(decoded))
		}
		for i := range want {
			if decoded[i].Kind() != want[i].Kind() {
				t.Errorf("%s caveat %d: expected %s, got %s", d.ID(), i, want[i].Kind(), decoded[i].Kind())
			}
		}
	}
}

func TestSamplesWithoutEnforcers(t *testing.T) {
	_, _, err := Samples(caveat.NewRegistry(), time.Now())
	if err == nil {
		t.Fatal("expected error encoding without enforcers")
	}
}

func TestRegistryAccounts(t *testing.T) {
	reg := Registry()
	a, ok := reg.Lookup("0X1234567890123456789012345678901234567890")
	if !ok || a.Name != "Alice" {
		t.Errorf("expected Alice, got %+v (ok=%v)", a, ok)
	}
	if len(reg.All()) != 5 {
		t.Errorf("expected 5 accounts, got %d", len(reg.All()))
	}
	if delegation.RootAuthority[:4] != "0xff" {
		t.Errorf("unexpected root authority %s", delegation.RootAuthority)
	}
}
