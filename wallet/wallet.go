// Package wallet defines the contract of the passkey smart-wallet
// provider the checkout orchestrates. The provider is an opaque remote
// capability: the checkout only ever consumes this interface and
// classifies its failures.
package wallet

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/paylazor/paylazor-go/types"
)

// FeeMode selects who pays transaction fees for the session.
type FeeMode string

// FeeModePaymaster requests fee sponsorship from the paymaster.
const FeeModePaymaster FeeMode = "paymaster"

// ConnectOptions parametrize a connect attempt.
type ConnectOptions struct {
	FeeMode FeeMode
}

// ConnectResult is what the provider returns on successful connect.
// SmartWallet is the raw address string; the checkout validates it.
type ConnectResult struct {
	SmartWallet string
}

// SignRequest carries the instructions the wallet should sign and
// submit, plus the network-simulation mode to submit them under.
type SignRequest struct {
	Instructions      []solana.Instruction
	ClusterSimulation types.Cluster
}

// Session is the ambient wallet session exposed by the provider. It
// crosses a trust boundary with no compile-time guarantee, so the
// checkout re-validates its shape before every payment attempt.
type Session struct {
	CredentialID  string `json:"credentialId"`
	SmartWallet   string `json:"smartWallet"`
	PasskeyPubkey []byte `json:"passkeyPubkey"`
}

// Valid reports whether the session carries everything a payment
// needs: a credential id, a smart-wallet address, and passkey public
// key material. Sessions can silently rot between connect and pay.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	if strings.TrimSpace(s.CredentialID) == "" {
		return false
	}
	if strings.TrimSpace(s.SmartWallet) == "" {
		return false
	}
	return len(s.PasskeyPubkey) > 0
}

// Provider is the wallet/authentication collaborator contract.
type Provider interface {
	Connect(ctx context.Context, opts ConnectOptions) (*ConnectResult, error)
	Disconnect(ctx context.Context) error
	SignAndSendTransaction(ctx context.Context, req SignRequest) (solana.Signature, error)

	// Ambient reactive state.
	Connected() bool
	SmartWallet() (solana.PublicKey, bool)
	Session() *Session
}
