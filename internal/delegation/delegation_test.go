package delegation

import (
	"errors"
	"strings"
	"testing"
)

const (
	alice = "0x1234567890123456789012345678901234567890"
	bob   = "0x2345678901234567890123456789012345678901"
	carol = "0x3456789012345678901234567890123456789012"
)

func TestID_FoldsCase(t *testing.T) {
	a := Delegation{Delegator: "0xABCD", Delegate: "0xEF01", Salt: "0x0A"}
	b := Delegation{Delegator: "0xabcd", Delegate: "0xef01", Salt: "0x0a"}
	if a.ID() != b.ID() {
		t.Errorf("IDs should match after folding: %q vs %q", a.ID(), b.ID())
	}
	if a.ID() != "0xabcd-0xef01-0x0a" {
		t.Errorf("unexpected id %q", a.ID())
	}
}

func TestIsRoot(t *testing.T) {
	d := Delegation{Authority: strings.ToUpper(RootAuthority[2:])}
	if d.IsRoot() {
		t.Error("authority without 0x prefix should not be treated as root")
	}
	d.Authority = "0x" + strings.ToUpper(RootAuthority[2:])
	if !d.IsRoot() {
		t.Error("upper-case root authority should be root")
	}
}

func TestUnsigned_ParentChaining(t *testing.T) {
	root := Unsigned(alice, bob, nil, nil)
	if !root.IsRoot() {
		t.Fatal("nil parent should produce a root delegation")
	}
	if root.Caveats == nil {
		t.Error("caveats should be an empty slice, not nil")
	}

	child := Unsigned(bob, carol, &root, nil)
	if child.IsRoot() {
		t.Fatal("child should not be root")
	}
	if child.Authority != root.Hash().Hex() {
		t.Errorf("child authority %s, want parent hash %s", child.Authority, root.Hash().Hex())
	}
}

func TestHash_IgnoresSignature(t *testing.T) {
	d := Unsigned(alice, bob, nil, []Caveat{{Enforcer: "0x1111111111111111111111111111111111111111", Terms: "0x01", Args: "0x"}})
	h1 := d.Hash()
	d.Signature = "0xdeadbeef"
	if d.Hash() != h1 {
		t.Error("hash must not depend on signature")
	}
	d.Salt = "0x02"
	if d.Hash() == h1 {
		t.Error("hash must depend on salt")
	}
}

func TestNew_FabricatesSaltAndSignature(t *testing.T) {
	d, err := New(alice, bob, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Salt) != 2+64 {
		t.Errorf("salt should be 32 bytes, got %q", d.Salt)
	}
	if len(d.Signature) != 2+130 {
		t.Errorf("signature should be 65 bytes, got %q", d.Signature)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("fabricated delegation should validate: %v", err)
	}

	other, _ := New(alice, bob, nil, nil)
	if other.ID() == d.ID() {
		t.Error("two fabricated delegations should not share an identity")
	}
}

func TestValidate_Malformed(t *testing.T) {
	d := Delegation{
		Delegator: "alice",
		Delegate:  bob,
		Authority: "0x1234",
		Caveats:   []Caveat{{Enforcer: "0x11", Terms: "zz", Args: "0x"}},
		Salt:      "0x1",
		Signature: "0x",
	}
	err := d.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T %v", err, err)
	}
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"delegator", "authority", "caveats[0].enforcer", "caveats[0].terms", "salt"} {
		if !fields[want] {
			t.Errorf("expected field %s to be reported, got %+v", want, ve.Fields)
		}
	}
	if fields["signature"] {
		t.Error("empty 0x signature is valid hex")
	}
}

func TestValidate_SelfDelegation(t *testing.T) {
	d := Unsigned(alice, strings.ToUpper("0x")+alice[2:], nil, nil)
	err := d.Validate()
	if err == nil || !strings.Contains(err.Error(), "must be different") {
		t.Errorf("expected self-delegation error, got %v", err)
	}
}

func TestDisplay_Abbreviates(t *testing.T) {
	d, _ := New(alice, bob, nil, []Caveat{{Enforcer: alice, Terms: "0x" + strings.Repeat("ab", 40), Args: "0x"}})
	shown := d.Display()
	if !strings.HasSuffix(shown.Salt, "...") || len(shown.Salt) != 23 {
		t.Errorf("salt not abbreviated: %q", shown.Salt)
	}
	if !strings.HasSuffix(shown.Caveats[0].Terms, "...") {
		t.Errorf("terms not abbreviated: %q", shown.Caveats[0].Terms)
	}
	if strings.HasSuffix(d.Caveats[0].Terms, "...") {
		t.Error("Display must not mutate the original caveats")
	}
}
