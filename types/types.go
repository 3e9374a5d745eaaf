// Package types holds the shared data model of the paylazor checkout:
// configuration, the closed error taxonomy, and the enumerations used
// across the orchestration core.
package types

// Cluster selects the network-simulation mode passed through to the
// wallet provider when submitting transactions.
type Cluster string

const (
	ClusterDevnet  Cluster = "devnet"
	ClusterMainnet Cluster = "mainnet"
)

// Valid reports whether c is one of the two supported clusters.
func (c Cluster) Valid() bool {
	return c == ClusterDevnet || c == ClusterMainnet
}

// AutoCreateMode controls which missing associated token accounts the
// checkout is allowed to create automatically via the paymaster.
type AutoCreateMode string

const (
	AutoCreateNone      AutoCreateMode = "none"
	AutoCreateRecipient AutoCreateMode = "recipient"
	AutoCreateBoth      AutoCreateMode = "both"
)

// CheckoutRequest is the caller-supplied invocation contract for a
// single payment.
type CheckoutRequest struct {
	// Amount is a human decimal string, e.g. "1.50".
	Amount string `json:"amount"`

	// Recipient overrides the configured merchant address when set.
	Recipient string `json:"recipient,omitempty"`

	// Memo is opaque and display-only in this core.
	Memo string `json:"memo,omitempty"`

	// AutoCreate defaults to AutoCreateBoth when empty.
	AutoCreate AutoCreateMode `json:"autoCreateAtas,omitempty"`
}

// CheckoutResult is delivered on successful payment submission.
type CheckoutResult struct {
	Signature string `json:"signature"`
}
