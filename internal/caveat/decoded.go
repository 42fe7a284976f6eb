package caveat

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Decoded is the display form of a caveat. Each variant carries its
// parameters in human units plus a precomputed description.
type Decoded interface {
	Kind() Kind
	Description() string
	Label() string
}

// AllowedTargets restricts which contracts the delegate may call.
type AllowedTargets struct {
	Targets []common.Address
	Text    string
}

// NewAllowedTargets builds the variant with its default description.
func NewAllowedTargets(targets []common.Address) AllowedTargets {
	return AllowedTargets{Targets: targets, Text: plural(len(targets), "allowed target")}
}

func (c AllowedTargets) Kind() Kind          { return KindAllowedTargets }
func (c AllowedTargets) Description() string { return c.Text }
func (c AllowedTargets) Label() string       { return plural(len(c.Targets), "allowed target") }

func (c AllowedTargets) MarshalJSON() ([]byte, error) {
	targets := make([]string, len(c.Targets))
	for i, t := range c.Targets {
		targets[i] = t.Hex()
	}
	return json.Marshal(struct {
		Type        Kind     `json:"type"`
		Targets     []string `json:"targets"`
		Description string   `json:"description"`
	}{c.Kind(), targets, c.Text})
}

// NativeTokenLimit caps the ETH the delegate may spend, in wei.
type NativeTokenLimit struct {
	MaxAmount *uint256.Int
	Text      string
}

// NewNativeTokenLimit builds the variant with its default description.
func NewNativeTokenLimit(wei *uint256.Int) NativeTokenLimit {
	return NativeTokenLimit{
		MaxAmount: wei,
		Text:      "Max " + FormatUnits(wei, EtherDecimals) + " ETH",
	}
}

func (c NativeTokenLimit) Kind() Kind          { return KindNativeTokenLimit }
func (c NativeTokenLimit) Description() string { return c.Text }
func (c NativeTokenLimit) Label() string       { return FormatEth(c.MaxAmount) }

func (c NativeTokenLimit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        Kind   `json:"type"`
		MaxAmount   string `json:"maxAmount"`
		Description string `json:"description"`
	}{c.Kind(), decString(c.MaxAmount), c.Text})
}

// ERC20Limit caps how much of one token the delegate may transfer, in the
// token's base units.
type ERC20Limit struct {
	TokenAddress common.Address
	TokenSymbol  string
	Decimals     uint8
	MaxAmount    *uint256.Int
	Text         string
}

// NewERC20Limit builds the variant with its default description.
func NewERC20Limit(token Token, amount *uint256.Int) ERC20Limit {
	return ERC20Limit{
		TokenAddress: token.Address,
		TokenSymbol:  token.Symbol,
		Decimals:     token.Decimals,
		MaxAmount:    amount,
		Text:         "Max " + FormatToken(amount, token.Decimals, token.Symbol),
	}
}

func (c ERC20Limit) Kind() Kind          { return KindERC20Limit }
func (c ERC20Limit) Description() string { return c.Text }
func (c ERC20Limit) Label() string       { return FormatToken(c.MaxAmount, c.Decimals, c.TokenSymbol) }

func (c ERC20Limit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         Kind   `json:"type"`
		TokenAddress string `json:"tokenAddress"`
		TokenSymbol  string `json:"tokenSymbol"`
		Decimals     uint8  `json:"decimals"`
		MaxAmount    string `json:"maxAmount"`
		Description  string `json:"description"`
	}{c.Kind(), c.TokenAddress.Hex(), c.TokenSymbol, c.Decimals, decString(c.MaxAmount), c.Text})
}

// TimeWindow bounds when the delegation may be redeemed. Thresholds are Unix
// seconds; nil means unbounded on that side.
type TimeWindow struct {
	AfterThreshold  *uint64
	BeforeThreshold *uint64
	Text            string
}

// NewTimeWindow builds the variant with its default description.
func NewTimeWindow(after, before *uint64) TimeWindow {
	w := TimeWindow{AfterThreshold: after, BeforeThreshold: before}
	switch {
	case after != nil && before != nil:
		w.Text = "Valid for " + plural(w.days(), "day")
	case after != nil:
		w.Text = "Valid after " + unixDate(*after)
	case before != nil:
		w.Text = "Valid until " + unixDate(*before)
	default:
		w.Text = "Time restricted"
	}
	return w
}

func (c TimeWindow) Kind() Kind          { return KindTimeWindow }
func (c TimeWindow) Description() string { return c.Text }

func (c TimeWindow) Label() string {
	if c.AfterThreshold != nil && c.BeforeThreshold != nil {
		return "Valid for " + plural(c.days(), "day")
	}
	return "Time restricted"
}

// Expired reports whether now is past the before threshold.
func (c TimeWindow) Expired(now time.Time) bool {
	return c.BeforeThreshold != nil && uint64(now.Unix()) >= *c.BeforeThreshold
}

// Pending reports whether now is still before the after threshold.
func (c TimeWindow) Pending(now time.Time) bool {
	return c.AfterThreshold != nil && uint64(now.Unix()) <= *c.AfterThreshold
}

func (c TimeWindow) days() int {
	if c.AfterThreshold == nil || c.BeforeThreshold == nil {
		return 0
	}
	diff := float64(int64(*c.BeforeThreshold) - int64(*c.AfterThreshold))
	return int(math.Round(diff / 86400))
}

func (c TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            Kind    `json:"type"`
		AfterThreshold  *uint64 `json:"afterThreshold,omitempty"`
		BeforeThreshold *uint64 `json:"beforeThreshold,omitempty"`
		Description     string  `json:"description"`
	}{c.Kind(), c.AfterThreshold, c.BeforeThreshold, c.Text})
}

// Describe is a one-line rendering used by CLI printers.
func Describe(d Decoded) string {
	name := string(d.Kind())
	if m, ok := MetaFor(d.Kind()); ok {
		name = m.Name
	}
	return fmt.Sprintf("%s: %s", name, d.Description())
}

func decString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func unixDate(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
}

// WithDescription returns d with its description replaced. An empty text
// leaves d unchanged.
func WithDescription(d Decoded, text string) Decoded {
	if text == "" {
		return d
	}
	switch c := d.(type) {
	case AllowedTargets:
		c.Text = text
		return c
	case NativeTokenLimit:
		c.Text = text
		return c
	case ERC20Limit:
		c.Text = text
		return c
	case TimeWindow:
		c.Text = text
		return c
	}
	return d
}
