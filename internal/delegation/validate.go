package delegation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FieldError describes one malformed field.
type FieldError struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ValidationError collects every malformed field of a delegation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return "invalid delegation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, value, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Value: value, Reason: reason})
}

// Validate checks address and hex shapes. The graph builder never calls it;
// record creation does.
func (d Delegation) Validate() error {
	ve := &ValidationError{}

	if !common.IsHexAddress(d.Delegator) {
		ve.add("delegator", d.Delegator, "not a 20-byte hex address")
	}
	if !common.IsHexAddress(d.Delegate) {
		ve.add("delegate", d.Delegate, "not a 20-byte hex address")
	}
	if len(ve.Fields) == 0 && fold(d.Delegator) == fold(d.Delegate) {
		ve.add("delegate", d.Delegate, "delegator and delegate must be different accounts")
	}

	if !d.IsRoot() {
		if b, err := hexutil.Decode(d.Authority); err != nil || len(b) != common.HashLength {
			ve.add("authority", d.Authority, "must be the root authority or a 32-byte hash")
		}
	}

	for i, c := range d.Caveats {
		prefix := fmt.Sprintf("caveats[%d]", i)
		if !common.IsHexAddress(c.Enforcer) {
			ve.add(prefix+".enforcer", c.Enforcer, "not a 20-byte hex address")
		}
		if _, err := hexutil.Decode(c.Terms); err != nil {
			ve.add(prefix+".terms", c.Terms, err.Error())
		}
		if _, err := hexutil.Decode(c.Args); err != nil {
			ve.add(prefix+".args", c.Args, err.Error())
		}
	}

	if _, err := hexutil.Decode(d.Salt); err != nil {
		ve.add("salt", d.Salt, err.Error())
	}
	if _, err := hexutil.Decode(d.Signature); err != nil {
		ve.add("signature", d.Signature, err.Error())
	}

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
