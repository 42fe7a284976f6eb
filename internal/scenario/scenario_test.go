package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
	"caveatlab/delegraph/internal/fixtures"
)

const sample = `
account "frank" {
  address      = "0x9999999999999999999999999999999999999999"
  name         = "Frank"
  avatar_color = "bg-teal-500"
  balance      = "1 ETH"
}

delegation "root" {
  from = "alice"
  to   = "Frank"
  salt = "0x01"

  caveat "nativeTokenTransferAmount" {
    amount = "0.5"
  }
  caveat "allowedTargets" {
    targets     = ["0x6789012345678901234567890123456789012345"]
    description = "Only Uniswap Router"
  }
}

delegation "child" {
  from   = "frank"
  to     = "0x3456789012345678901234567890123456789012"
  parent = "root"

  caveat "timestamp" {
    days = 7
  }
  caveat "erc20TransferAmount" {
    token      = "USDC"
    max_amount = "500000000"
  }
}
`

func testOptions(t *testing.T) Options {
	t.Helper()
	reg := caveat.NewRegistry()
	require.NoError(t, fixtures.RegisterEnforcers(reg))
	return Options{
		Accounts:  fixtures.Registry(),
		Enforcers: reg,
		Now:       time.Unix(1_700_000_000, 0),
	}
}

func TestParse(t *testing.T) {
	opts := testOptions(t)
	sc, err := Parse([]byte(sample), "scenario.hcl", opts)
	require.NoError(t, err)

	require.Len(t, sc.Accounts, 1)
	assert.Equal(t, "Frank", sc.Accounts[0].Name)
	frank, ok := opts.Accounts.Lookup("0x9999999999999999999999999999999999999999")
	require.True(t, ok, "scenario accounts are added to the registry")
	assert.Equal(t, "bg-teal-500", frank.AvatarColor)

	require.Len(t, sc.Delegations, 2)
	assert.Equal(t, []string{"root", "child"}, sc.Names)

	root, child := sc.Delegations[0], sc.Delegations[1]
	assert.True(t, root.IsRoot())
	assert.Equal(t, "0x01", root.Salt)
	assert.Equal(t, root.Hash().Hex(), child.Authority)
	assert.Len(t, child.Salt, 66, "missing salt is fabricated")
	assert.Len(t, child.Signature, 132, "missing signature is fabricated")
	assert.Equal(t, "0x3456789012345678901234567890123456789012", child.Delegate)

	decoded := sc.Caveats.DecodedCaveatsFor(root)
	require.Len(t, decoded, 2)
	assert.Equal(t, "Max 0.5 ETH", decoded[0].Description())
	assert.Equal(t, "Only Uniswap Router", decoded[1].Description())

	decoded = sc.Caveats.DecodedCaveatsFor(child)
	require.Len(t, decoded, 2)
	assert.Equal(t, "Valid for 7 days", decoded[0].Description())
	assert.Equal(t, "Max 500 USDC", decoded[1].Description())

	// Wire caveats decode to the same kinds.
	fromWire := caveat.Decoder{Registry: opts.Enforcers}.DecodedCaveatsFor(child)
	require.Len(t, fromWire, 2)
	assert.Equal(t, caveat.KindTimeWindow, fromWire[0].Kind())
	assert.Equal(t, caveat.KindERC20Limit, fromWire[1].Kind())
}

func TestParseJSON(t *testing.T) {
	src := `{
  "delegation": {
    "only": {
      "from": "alice",
      "to": "bob",
      "caveat": {
        "timestamp": { "after": 1700000000, "before": 1700604800 }
      }
    }
  }
}`
	sc, err := Parse([]byte(src), "scenario.json", testOptions(t))
	require.NoError(t, err)
	require.Len(t, sc.Delegations, 1)
	assert.Equal(t, delegation.RootAuthority, sc.Delegations[0].Authority)
	assert.Equal(t, "Valid for 7 days", sc.Caveats.DecodedCaveatsFor(sc.Delegations[0])[0].Description())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	sc, err := LoadFile(path, testOptions(t))
	require.NoError(t, err)
	assert.Equal(t, path, sc.Path)
	assert.Len(t, sc.Delegations, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.hcl"), testOptions(t))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":          `delegation "x" {`,
		"unknown account": `
delegation "x" {
  from = "nobody"
  to   = "bob"
}`,
		"unknown parent": `
delegation "x" {
  from   = "alice"
  to     = "bob"
  parent = "y"
}`,
		"later parent": `
delegation "x" {
  from   = "alice"
  to     = "bob"
  parent = "y"
}
delegation "y" {
  from = "alice"
  to   = "bob"
}`,
		"duplicate name": `
delegation "x" {
  from = "alice"
  to   = "bob"
}
delegation "x" {
  from = "alice"
  to   = "carol"
}`,
		"unknown caveat": `
delegation "x" {
  from = "alice"
  to   = "bob"
  caveat "bogus" {}
}`,
		"bad amount": `
delegation "x" {
  from = "alice"
  to   = "bob"
  caveat "nativeTokenTransferAmount" { amount = "lots" }
}`,
		"days with after": `
delegation "x" {
  from = "alice"
  to   = "bob"
  caveat "timestamp" {
    days  = 1
    after = 5
  }
}`,
		"self delegation": `
delegation "x" {
  from = "alice"
  to   = "alice"
}`,
		"bad account address": `account "z" { address = "nope" }`,
		"unknown attribute": `
delegation "x" {
  from   = "alice"
  to     = "bob"
  colour = "red"
}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "bad.hcl", testOptions(t))
			assert.Error(t, err)
		})
	}
}

func TestParseNeedsEnforcers(t *testing.T) {
	src := `
delegation "x" {
  from = "alice"
  to   = "bob"
}`
	_, err := Parse([]byte(src), "x.hcl", Options{Accounts: account.NewMemoryRegistry()})
	assert.Error(t, err)
}
