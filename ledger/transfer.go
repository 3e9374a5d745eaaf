package ledger

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/paylazor/paylazor-go/types"
)

// TransferParams describes a checked token transfer from owner to
// recipient, optionally preceded by idempotent ATA creation.
type TransferParams struct {
	// Payer funds ATA creation. Required for any auto-create mode
	// other than none.
	Payer *solana.PublicKey

	Owner     solana.PublicKey
	Recipient solana.PublicKey
	Mint      solana.PublicKey

	AmountBaseUnits *big.Int
	Decimals        int

	AutoCreate types.AutoCreateMode
}

// TokenTransfer is the ordered instruction list for a transfer, plus
// the derived token accounts on both sides.
type TokenTransfer struct {
	FromATA      solana.PublicKey
	ToATA        solana.PublicKey
	Instructions []solana.Instruction
}

// BuildTokenTransfer derives the associated token accounts for
// (mint, owner) and (mint, recipient) and produces the instruction
// sequence: creations first (payer side, then recipient side, as
// permitted by AutoCreate), then exactly one checked transfer. Smart
// wallets are program-derived, so the derivation accepts off-curve
// owners.
func BuildTokenTransfer(p TransferParams) (*TokenTransfer, error) {
	fromATA, _, err := solana.FindAssociatedTokenAddress(p.Owner, p.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive owner token account: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(p.Recipient, p.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive recipient token account: %w", err)
	}

	amount, err := amountToUint64(p.AmountBaseUnits)
	if err != nil {
		return nil, err
	}
	if p.Decimals < 0 || p.Decimals > math.MaxUint8 {
		return nil, fmt.Errorf("decimals out of range: %d", p.Decimals)
	}

	var instructions []solana.Instruction
	switch p.AutoCreate {
	case types.AutoCreateBoth:
		if p.Payer == nil {
			return nil, errors.New(`payer is required when autoCreateAtas="both"`)
		}
		instructions = append(instructions,
			NewCreateATAIdempotentInstruction(*p.Payer, fromATA, p.Owner, p.Mint),
			NewCreateATAIdempotentInstruction(*p.Payer, toATA, p.Recipient, p.Mint),
		)
	case types.AutoCreateRecipient:
		if p.Payer == nil {
			return nil, errors.New(`payer is required when autoCreateAtas="recipient"`)
		}
		instructions = append(instructions,
			NewCreateATAIdempotentInstruction(*p.Payer, toATA, p.Recipient, p.Mint),
		)
	case types.AutoCreateNone, "":
	default:
		return nil, fmt.Errorf("unknown auto-create mode: %q", p.AutoCreate)
	}

	transfer, err := token.NewTransferCheckedInstruction(
		amount,
		uint8(p.Decimals),
		fromATA,
		p.Mint,
		toATA,
		p.Owner,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer instruction: %w", err)
	}
	instructions = append(instructions, transfer)

	return &TokenTransfer{
		FromATA:      fromATA,
		ToATA:        toATA,
		Instructions: instructions,
	}, nil
}

// NewCreateATAIdempotentInstruction builds the associated-token
// program's CreateIdempotent instruction: a no-op when the account
// already exists, which makes paymaster retries safe.
func NewCreateATAIdempotentInstruction(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
		},
		[]byte{1},
	)
}

// BuildLamportsTransfer builds a native SOL system transfer.
func BuildLamportsTransfer(from, to solana.PublicKey, lamports *big.Int) (solana.Instruction, error) {
	amount, err := amountToUint64(lamports)
	if err != nil {
		return nil, err
	}
	return system.NewTransferInstruction(amount, from, to).Build(), nil
}

func amountToUint64(amount *big.Int) (uint64, error) {
	if amount == nil {
		return 0, errors.New("amount is required")
	}
	if amount.Sign() < 0 {
		return 0, errors.New("amount must be >= 0")
	}
	if !amount.IsUint64() {
		return 0, fmt.Errorf("amount %s is too large", amount)
	}
	return amount.Uint64(), nil
}
