package simulator

// Status is the display state of one redemption step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	// StatusFailed is part of the renderer's vocabulary. No step sets it.
	StatusFailed Status = "failed"
)

// Step is a catalog entry of the redemption flow.
type Step struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

var catalog = []Step{
	{
		ID:          "validate",
		Name:        "Validate Input",
		Description: "Check delegations, modes, and executions match",
		Details: []string{
			"Checking 2 delegations, 1 execution batch...",
			"Delegation array length matches modes array",
			"Execution batch has valid calldata",
		},
	},
	{
		ID:          "verify",
		Name:        "Verify Signatures",
		Description: "Validate delegation signatures (ECDSA/ERC-1271)",
		Details: []string{
			"Verifying ECDSA signature from 0x1234...5678",
			"Signature hash: 0xabcd...ef01",
			"Recovery successful, signer verified",
		},
	},
	{
		ID:          "authority",
		Name:        "Validate Authority",
		Description: "Verify delegation chain authority",
		Details: []string{
			"Chain depth: 2, Root authority verified",
			"Delegator: 0xABCD...1234 (root)",
			"Delegate: 0x5678...EFGH (authorized)",
		},
	},
	{
		ID:          "before-hook",
		Name:        "Execute beforeHook",
		Description: "Run caveat enforcers before execution",
		Details: []string{
			"Running NativeTokenLimitEnforcer...",
			"Current spent: 0.3 ETH / 1.0 ETH limit",
			"Result: Within limit",
		},
	},
	{
		ID:          "execute",
		Name:        "Execute Action",
		Description: "Call executeFromExecutor on delegator",
		Details: []string{
			"Calling executeFromExecutor on delegator",
			"Target: 0x7a25...F2488D (Uniswap)",
			"Value: 0.5 ETH transfer",
		},
	},
	{
		ID:          "after-hook",
		Name:        "Execute afterHook",
		Description: "Run caveat enforcers after execution",
		Details: []string{
			"Running NativeTokenLimitEnforcer...",
			"Updating spent: 0.8 ETH / 1.0 ETH",
			"State updated successfully",
		},
	},
}

// Steps returns a copy of the fixed step catalog, in run order.
func Steps() []Step {
	out := make([]Step, len(catalog))
	for i, s := range catalog {
		out[i] = s
		out[i].Details = append([]string(nil), s.Details...)
	}
	return out
}
