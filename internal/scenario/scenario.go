// Package scenario loads playground scenarios: extra accounts and a list of
// delegations declared in HCL (or its JSON form).
//
//	account "frank" {
//	  address = "0x..."
//	  name    = "Frank"
//	}
//
//	delegation "root" {
//	  from = "alice"
//	  to   = "frank"
//	  caveat "nativeTokenTransferAmount" { amount = "0.5" }
//	}
//
//	delegation "child" {
//	  from   = "frank"
//	  to     = "carol"
//	  parent = "root"
//	  caveat "timestamp" { days = 7 }
//	}
package scenario

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"caveatlab/delegraph/internal/account"
	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/delegation"
)

// DefaultFile is the scenario file name looked up by the CLI.
const DefaultFile = "delegraph.hcl"

// Scenario is a loaded scenario file.
type Scenario struct {
	Path        string
	Accounts    []account.Account
	Delegations []delegation.Delegation
	Names       []string // block label of each delegation
	Caveats     caveat.Table
}

// Options carries the collaborators a scenario is resolved against.
type Options struct {
	// Accounts receives the scenario's accounts and resolves from/to.
	Accounts *account.MemoryRegistry
	// Enforcers encodes caveats into wire form.
	Enforcers *caveat.Registry
	// Now anchors relative time windows (days = N).
	Now time.Time
}

type hclFile struct {
	Accounts    []*hclAccount    `hcl:"account,block"`
	Delegations []*hclDelegation `hcl:"delegation,block"`
}

type hclAccount struct {
	ID          string `hcl:"id,label"`
	Address     string `hcl:"address"`
	Name        string `hcl:"name,optional"`
	AvatarColor string `hcl:"avatar_color,optional"`
	Balance     string `hcl:"balance,optional"`
}

type hclDelegation struct {
	Name      string       `hcl:"name,label"`
	From      string       `hcl:"from"`
	To        string       `hcl:"to"`
	Parent    string       `hcl:"parent,optional"`
	Salt      string       `hcl:"salt,optional"`
	Signature string       `hcl:"signature,optional"`
	Caveats   []*hclCaveat `hcl:"caveat,block"`
}

type hclCaveat struct {
	Type        string   `hcl:"type,label"`
	Description string   `hcl:"description,optional"`
	Targets     []string `hcl:"targets,optional"`
	Amount      string   `hcl:"amount,optional"`
	MaxAmount   string   `hcl:"max_amount,optional"`
	Token       string   `hcl:"token,optional"`
	After       *int64   `hcl:"after,optional"`
	Before      *int64   `hcl:"before,optional"`
	Days        *int64   `hcl:"days,optional"`
}

// LoadFile parses path as HCL, or as JSON when it ends in .json.
func LoadFile(path string, opts Options) (*Scenario, error) {
	parser := hclparse.NewParser()
	var (
		f     *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		f, diags = parser.ParseJSONFile(path)
	} else {
		f, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, diags)
	}
	return decode(f, path, opts)
}

// Parse decodes an in-memory scenario. The filename selects the syntax the
// same way LoadFile does and is used in diagnostics.
func Parse(src []byte, filename string, opts Options) (*Scenario, error) {
	parser := hclparse.NewParser()
	var (
		f     *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		f, diags = parser.ParseJSON(src, filename)
	} else {
		f, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", filename, diags)
	}
	return decode(f, filename, opts)
}

func decode(f *hcl.File, path string, opts Options) (*Scenario, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode scenario %s: %w", path, diags)
	}
	if opts.Accounts == nil {
		opts.Accounts = account.NewMemoryRegistry()
	}
	if opts.Enforcers == nil {
		return nil, fmt.Errorf("scenario %s: no enforcer registry", path)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	sc := &Scenario{Path: path, Caveats: caveat.Table{}}

	seenAccounts := make(map[string]bool)
	for _, a := range parsed.Accounts {
		if seenAccounts[a.ID] {
			return nil, fmt.Errorf("scenario %s: account %q declared twice", path, a.ID)
		}
		seenAccounts[a.ID] = true
		acct, err := a.toAccount()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", path, err)
		}
		opts.Accounts.Add(acct)
		sc.Accounts = append(sc.Accounts, acct)
	}

	byName := make(map[string]delegation.Delegation)
	for _, hd := range parsed.Delegations {
		if _, dup := byName[hd.Name]; dup {
			return nil, fmt.Errorf("scenario %s: delegation %q declared twice", path, hd.Name)
		}
		d, decoded, err := hd.build(byName, opts)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: delegation %q: %w", path, hd.Name, err)
		}
		byName[hd.Name] = d
		sc.Delegations = append(sc.Delegations, d)
		sc.Names = append(sc.Names, hd.Name)
		sc.Caveats[d.ID()] = decoded
	}
	return sc, nil
}

func (a *hclAccount) toAccount() (account.Account, error) {
	if !common.IsHexAddress(a.Address) {
		return account.Account{}, fmt.Errorf("account %q: %q is not an address", a.ID, a.Address)
	}
	acct := account.Account{
		ID:          a.ID,
		Address:     a.Address,
		Name:        a.Name,
		AvatarColor: a.AvatarColor,
		Balance:     a.Balance,
	}
	if acct.Name == "" {
		acct.Name = a.ID
	}
	if acct.AvatarColor == "" {
		acct.AvatarColor = account.DefaultAvatarColor
	}
	return acct, nil
}

func (hd *hclDelegation) build(byName map[string]delegation.Delegation, opts Options) (delegation.Delegation, []caveat.Decoded, error) {
	from, err := resolveAccount(opts.Accounts, hd.From)
	if err != nil {
		return delegation.Delegation{}, nil, fmt.Errorf("from: %w", err)
	}
	to, err := resolveAccount(opts.Accounts, hd.To)
	if err != nil {
		return delegation.Delegation{}, nil, fmt.Errorf("to: %w", err)
	}

	var parent *delegation.Delegation
	if hd.Parent != "" {
		p, ok := byName[hd.Parent]
		if !ok {
			return delegation.Delegation{}, nil, fmt.Errorf("parent %q is not declared before it", hd.Parent)
		}
		parent = &p
	}

	decoded := make([]caveat.Decoded, 0, len(hd.Caveats))
	wire := make([]delegation.Caveat, 0, len(hd.Caveats))
	for i, hc := range hd.Caveats {
		dc, err := hc.build(opts.Now)
		if err != nil {
			return delegation.Delegation{}, nil, fmt.Errorf("caveat %d: %w", i, err)
		}
		c, err := opts.Enforcers.Encode(dc)
		if err != nil {
			return delegation.Delegation{}, nil, fmt.Errorf("caveat %d: %w", i, err)
		}
		decoded = append(decoded, dc)
		wire = append(wire, c)
	}

	d := delegation.Unsigned(from, to, parent, wire)
	if hd.Salt != "" {
		d.Salt = hd.Salt
	} else if d.Salt, err = delegation.NewSalt(); err != nil {
		return delegation.Delegation{}, nil, err
	}
	if hd.Signature != "" {
		d.Signature = hd.Signature
	} else if d.Signature, err = delegation.MockSignature(); err != nil {
		return delegation.Delegation{}, nil, err
	}
	if err := d.Validate(); err != nil {
		return delegation.Delegation{}, nil, err
	}
	return d, decoded, nil
}

func (hc *hclCaveat) build(now time.Time) (caveat.Decoded, error) {
	kind, ok := caveat.ParseKind(hc.Type)
	if !ok {
		return nil, fmt.Errorf("unknown caveat type %q", hc.Type)
	}
	spec := caveat.Spec{
		Type:      kind,
		Targets:   hc.Targets,
		Amount:    hc.Amount,
		MaxAmount: hc.MaxAmount,
		Token:     hc.Token,
	}
	if hc.After != nil {
		if *hc.After < 0 {
			return nil, fmt.Errorf("after must not be negative")
		}
		v := uint64(*hc.After)
		spec.After = &v
	}
	if hc.Before != nil {
		if *hc.Before < 0 {
			return nil, fmt.Errorf("before must not be negative")
		}
		v := uint64(*hc.Before)
		spec.Before = &v
	}
	if hc.Days != nil {
		if spec.After != nil || spec.Before != nil {
			return nil, fmt.Errorf("days cannot be combined with after or before")
		}
		if *hc.Days <= 0 {
			return nil, fmt.Errorf("days must be positive")
		}
		start := uint64(now.Unix())
		end := start + uint64(*hc.Days)*24*60*60
		spec.After, spec.Before = &start, &end
	}

	dc, err := spec.Build()
	if err != nil {
		return nil, err
	}
	return caveat.WithDescription(dc, hc.Description), nil
}

// resolveAccount accepts an account id, name, address or address prefix,
// or any well-formed address the registry does not know.
func resolveAccount(reg *account.MemoryRegistry, ref string) (string, error) {
	a, err := reg.Find(ref)
	if err == nil {
		return a.Address, nil
	}
	if common.IsHexAddress(ref) {
		return ref, nil
	}
	return "", err
}
