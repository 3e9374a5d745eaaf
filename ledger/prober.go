package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// TokenAccountStatus classifies a (owner, mint) token account after a
// probe. It is derived fresh per probe and never cached.
type TokenAccountStatus string

const (
	StatusUnknown TokenAccountStatus = "unknown"
	StatusMissing TokenAccountStatus = "missing"
	StatusPresent TokenAccountStatus = "present"
)

// TokenBalance is the result of a balance probe. BaseUnits is nil when
// Status is unknown; callers must not assume zero in that case.
type TokenBalance struct {
	// Display is the human-readable balance, "" when unknown.
	Display string

	BaseUnits *big.Int
	Status    TokenAccountStatus
}

// Prober queries token account existence and balance.
type Prober struct {
	reader AccountReader
}

// NewProber builds a Prober over the given reader.
func NewProber(reader AccountReader) *Prober {
	return &Prober{reader: reader}
}

// Refresh probes the associated token account for (owner, mint). It
// tries a direct balance query first; on failure it falls back to a
// plain existence check, because a missing token account is a normal
// recoverable precondition distinct from a transient RPC failure:
//
//   - balance query succeeds: present, values verbatim from the query
//   - account provably absent: missing, balance zero
//   - anything else: unknown, balance nil
func (p *Prober) Refresh(ctx context.Context, owner, mint solana.PublicKey) *TokenBalance {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return &TokenBalance{Status: StatusUnknown}
	}

	res, err := p.reader.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err == nil && res != nil && res.Value != nil {
		base, ok := new(big.Int).SetString(res.Value.Amount, 10)
		if ok {
			display := res.Value.UiAmountString
			if display == "" {
				display = displayFromBaseUnits(base, int(res.Value.Decimals))
			}
			return &TokenBalance{Display: display, BaseUnits: base, Status: StatusPresent}
		}
	}

	info, infoErr := p.reader.GetAccountInfo(ctx, ata)
	if infoErr != nil {
		if errors.Is(infoErr, rpc.ErrNotFound) {
			return &TokenBalance{Display: "0", BaseUnits: big.NewInt(0), Status: StatusMissing}
		}
		return &TokenBalance{Status: StatusUnknown}
	}
	if info == nil || info.Value == nil {
		return &TokenBalance{Display: "0", BaseUnits: big.NewInt(0), Status: StatusMissing}
	}

	// Account exists but the balance is unreadable.
	return &TokenBalance{Status: StatusUnknown}
}

func displayFromBaseUnits(base *big.Int, decimals int) string {
	return decimal.NewFromBigInt(base, -int32(decimals)).String()
}
