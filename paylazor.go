// Package paylazor implements the payment orchestration core of a
// drop-in USDC checkout for Solana-compatible networks: a state
// machine driving passkey wallet connection, token account discovery,
// fee-sponsored account creation, transfer construction, and
// submission with bounded retry.
package paylazor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/paylazor/paylazor-go/ledger"
	"github.com/paylazor/paylazor-go/logger"
	"github.com/paylazor/paylazor-go/metrics"
	"github.com/paylazor/paylazor-go/paymaster"
	"github.com/paylazor/paylazor-go/portal"
	"github.com/paylazor/paylazor-go/types"
	"github.com/paylazor/paylazor-go/units"
	"github.com/paylazor/paylazor-go/wallet"
)

// Step is the checkout state machine's current state.
type Step string

const (
	StepIdle       Step = "idle"
	StepConnecting Step = "connecting"
	StepConfirm    Step = "confirm"
	StepPaying     Step = "paying"
	StepSuccess    Step = "success"
	StepError      Step = "error"
)

const (
	defaultRetries    = 2
	defaultRetryDelay = 800 * time.Millisecond
)

// Checkout orchestrates a single widget instance's payment flow. All
// collaborator failures are classified into the CheckoutError taxonomy
// at this boundary; raw wallet/paymaster/RPC errors never reach the
// caller.
type Checkout struct {
	cfg    *types.Config
	wallet wallet.Provider
	pm     paymaster.Paymaster
	chain  *ledger.Client
	prober *ledger.Prober
	portal *portal.Listener

	log     logger.Logger
	metrics metrics.Recorder

	onStep    func(Step)
	onSuccess func(types.CheckoutResult)
	onError   func(*types.CheckoutError)

	retries    int
	retryDelay time.Duration

	mu                  sync.Mutex
	closed              bool
	inFlight            bool
	step                Step
	signature           string
	lastErr             *types.CheckoutError
	balance             *ledger.TokenBalance
	recipientATAMissing bool
}

// New resolves the configuration and builds a Checkout. A
// configuration failure is reported once through the error callback
// (when set) and returned; no wallet interaction is attempted in that
// case.
func New(walletProvider wallet.Provider, pm paymaster.Paymaster, overrides *types.Overrides, opts ...Option) (*Checkout, error) {
	c := &Checkout{
		wallet:     walletProvider,
		pm:         pm,
		log:        logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		step:       StepIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg, cfgErr := types.ResolveConfig(overrides)
	if cfgErr != nil {
		if c.onError != nil {
			c.onError(cfgErr)
		}
		return nil, cfgErr
	}
	c.cfg = cfg

	if c.chain == nil {
		c.chain = ledger.NewClient(cfg.RPCURL)
	}
	c.prober = ledger.NewProber(c.chain.Reader())
	c.portal = portal.NewListener(cfg.PortalURL, c.log)

	// Already-connected wallets skip straight to confirmation.
	if c.wallet.Connected() {
		c.step = StepConfirm
	}

	return c, nil
}

// Config returns the resolved configuration.
func (c *Checkout) Config() *types.Config {
	return c.cfg
}

// Portal returns the portal error listener; the host feeds it the
// cross-origin message stream (Handle or Run).
func (c *Checkout) Portal() *portal.Listener {
	return c.portal
}

// Step returns the current state.
func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Signature returns the submitted payment signature, "" before
// success.
func (c *Checkout) Signature() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signature
}

// Err returns the active error, nil when none. At most one error is
// active at a time.
func (c *Checkout) Err() *types.CheckoutError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Balance returns the last probed owner balance, nil before the first
// refresh.
func (c *Checkout) Balance() *ledger.TokenBalance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// RecipientAccountMissing reports whether the last payment attempt
// failed because the recipient token account does not exist.
func (c *Checkout) RecipientAccountMissing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recipientATAMissing
}

// Close marks the instance torn down. Asynchronous results completing
// afterwards are dropped instead of mutating destroyed state.
func (c *Checkout) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Connect runs idle -> connecting -> confirm: it asks the wallet
// provider for a fee-sponsored passkey session, then waits (best
// effort, bounded) for the smart wallet to become visible on the
// ledger before declaring readiness.
func (c *Checkout) Connect(ctx context.Context) error {
	c.portal.Clear()
	c.clearError()
	c.setStep(StepConnecting)

	start := time.Now()
	res, err := c.wallet.Connect(ctx, wallet.ConnectOptions{FeeMode: wallet.FeeModePaymaster})
	if err != nil {
		return c.fail(types.ErrPaymentFailed, "Failed to connect with passkey portal", err, StepError)
	}

	if pk, perr := solana.PublicKeyFromBase58(res.SmartWallet); perr == nil {
		// Absorbs ledger propagation latency after wallet
		// provisioning; the poll outcome does not gate readiness.
		c.chain.WaitForAccount(ctx, pk)
	} else {
		c.log.Warn("wallet returned malformed smart wallet address", map[string]any{
			"address": res.SmartWallet,
		})
	}

	c.metrics.ObserveLatency("connect", time.Since(start), map[string]string{"outcome": "ok"})
	c.setStep(StepConfirm)
	return nil
}

// Disconnect tears the wallet session down and returns to idle.
func (c *Checkout) Disconnect(ctx context.Context) error {
	c.clearError()
	if err := c.wallet.Disconnect(ctx); err != nil {
		return c.fail(types.ErrPaymentFailed, "Failed to disconnect", err, StepError)
	}
	c.mu.Lock()
	c.signature = ""
	c.mu.Unlock()
	c.enterIdle()
	return nil
}

// RefreshBalance re-probes the owner's token account. It may race an
// in-flight payment; last-completed-wins, and staleness is cosmetic
// because the chain re-validates at submission.
func (c *Checkout) RefreshBalance(ctx context.Context) *ledger.TokenBalance {
	pk, ok := c.wallet.SmartWallet()
	if !ok {
		return nil
	}
	mint, err := solana.PublicKeyFromBase58(c.cfg.USDCMint)
	if err != nil {
		return nil
	}

	bal := c.prober.Refresh(ctx, pk, mint)

	c.mu.Lock()
	if !c.closed {
		c.balance = bal
	}
	c.mu.Unlock()
	return bal
}

// Pay runs confirm -> paying -> success/error for one payment attempt.
// Only one attempt may be in flight per instance.
func (c *Checkout) Pay(ctx context.Context, req types.CheckoutRequest) error {
	// The flag is claimed and checked under one lock hold, so two
	// concurrent Pay calls cannot both pass the guard.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.NewError(types.ErrPaymentFailed, "Checkout is closed", nil)
	}
	if c.inFlight {
		c.mu.Unlock()
		return types.NewError(types.ErrPaymentFailed, "A payment is already in progress", nil)
	}
	c.inFlight = true
	c.recipientATAMissing = false
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	c.portal.Clear()
	c.clearError()
	c.setStep(StepPaying)

	attemptID := uuid.NewString()
	start := time.Now()
	autoCreate := req.AutoCreate
	if autoCreate == "" {
		autoCreate = types.AutoCreateBoth
	}

	fields := map[string]any{
		"attempt":    attemptID,
		"amount":     req.Amount,
		"autoCreate": string(autoCreate),
	}
	if req.Memo != "" {
		fields["memo"] = req.Memo
	}
	c.log.Info("payment attempt started", fields)

	owner, ok := c.wallet.SmartWallet()
	if !c.wallet.Connected() || !ok {
		return c.fail(types.ErrWalletNotConnected, "Wallet is not connected", nil, StepError)
	}

	// Sessions can silently rot between connect and pay; a broken
	// session is remedied by re-authentication, not retry, so this
	// path lands back in idle.
	if !c.wallet.Session().Valid() {
		_ = c.wallet.Disconnect(ctx)
		return c.fail(types.ErrPaymentFailed,
			"Wallet session is missing required metadata. Please reconnect with passkey.", nil, StepIdle)
	}

	amount, amountErr := units.ParseFixedDecimal(req.Amount, c.cfg.USDCDecimals)
	if amountErr != nil {
		return c.failWith(amountErr, StepError)
	}
	if amount.Sign() <= 0 {
		return c.fail(types.ErrAmountInvalid, "Amount must be greater than 0", nil, StepError)
	}

	c.mu.Lock()
	known := c.balance
	c.mu.Unlock()
	if known != nil && known.BaseUnits != nil && known.BaseUnits.Cmp(amount) < 0 {
		have := known.Display
		if have == "" {
			have = "0"
		}
		return c.fail(types.ErrInsufficientFunds,
			fmt.Sprintf("Insufficient USDC balance (have %s, need %s). Fund the USDC ATA and retry.", have, req.Amount),
			nil, StepError)
	}

	mint, err := solana.PublicKeyFromBase58(c.cfg.USDCMint)
	if err != nil {
		return c.fail(types.ErrConfigInvalid, "Invalid USDC mint", err, StepError)
	}
	recipientAddress := req.Recipient
	if recipientAddress == "" {
		recipientAddress = c.cfg.MerchantAddress
	}
	recipient, err := solana.PublicKeyFromBase58(recipientAddress)
	if err != nil {
		return c.fail(types.ErrConfigInvalid, "Invalid merchant address", err, StepError)
	}

	if perr := c.prepareTokenAccounts(ctx, owner, recipient, mint, autoCreate); perr != nil {
		return c.failWith(perr, StepError)
	}

	// Creation, if any, already happened above.
	transfer, err := ledger.BuildTokenTransfer(ledger.TransferParams{
		Owner:           owner,
		Recipient:       recipient,
		Mint:            mint,
		AmountBaseUnits: amount,
		Decimals:        c.cfg.USDCDecimals,
		AutoCreate:      types.AutoCreateNone,
	})
	if err != nil {
		return c.fail(types.ErrTransferBuildFailed, "Failed to build USDC transfer", err, StepError)
	}

	sig, err := c.submitWithRetry(ctx, attemptID, transfer.Instructions)
	if err != nil {
		return c.classifySubmitFailure(ctx, err)
	}

	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.signature = sig.String()
	}
	cb := c.onSuccess
	c.mu.Unlock()
	if closed {
		return nil
	}
	if cb != nil {
		cb(types.CheckoutResult{Signature: sig.String()})
	}
	c.setStep(StepSuccess)

	c.metrics.IncCounter("payment", map[string]string{"outcome": "success"})
	c.metrics.ObserveLatency("pay", time.Since(start), map[string]string{"outcome": "success"})
	c.log.Info("payment submitted", map[string]any{
		"attempt":   attemptID,
		"signature": sig.String(),
	})
	return nil
}

// prepareTokenAccounts probes both derived token accounts and, where
// the auto-create policy permits, creates missing ones through the
// paymaster. Missing accounts whose creation the policy forbids are a
// guided failure, not a creation trigger.
func (c *Checkout) prepareTokenAccounts(ctx context.Context, owner, recipient, mint solana.PublicKey, autoCreate types.AutoCreateMode) *types.CheckoutError {
	prepareFailed := func(cause error) *types.CheckoutError {
		return types.NewError(types.ErrPaymentFailed, "Failed to prepare token accounts via paymaster", cause)
	}

	fromATA, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return prepareFailed(err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return prepareFailed(err)
	}

	res, err := c.chain.Reader().GetMultipleAccounts(ctx, fromATA, toATA)
	if err != nil {
		return prepareFailed(err)
	}
	if res == nil || len(res.Value) != 2 {
		return prepareFailed(fmt.Errorf("unexpected account probe response"))
	}
	fromMissing := res.Value[0] == nil
	toMissing := res.Value[1] == nil

	if fromMissing && autoCreate != types.AutoCreateBoth {
		return types.NewError(types.ErrPaymentFailed,
			`USDC token account for this wallet is missing. Set autoCreateAtas="both" (or create/fund the ATA) and retry.`, nil)
	}
	if toMissing && autoCreate == types.AutoCreateNone {
		c.mu.Lock()
		c.recipientATAMissing = true
		c.mu.Unlock()
		return types.NewError(types.ErrPaymentFailed,
			`Recipient USDC token account is missing. Set autoCreateAtas="recipient" (or "both") and retry.`, nil)
	}

	createFrom := fromMissing && autoCreate == types.AutoCreateBoth
	createTo := toMissing && (autoCreate == types.AutoCreateBoth || autoCreate == types.AutoCreateRecipient)
	if !createFrom && !createTo {
		return nil
	}

	payer, err := c.pm.GetPayer(ctx)
	if err != nil {
		return prepareFailed(err)
	}
	blockhash, err := c.pm.GetBlockhash(ctx)
	if err != nil {
		return prepareFailed(err)
	}

	var instructions []solana.Instruction
	if createFrom {
		instructions = append(instructions, ledger.NewCreateATAIdempotentInstruction(payer, fromATA, owner, mint))
	}
	if createTo {
		instructions = append(instructions, ledger.NewCreateATAIdempotentInstruction(payer, toATA, recipient, mint))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return prepareFailed(err)
	}
	if _, err := c.pm.SignAndSend(ctx, tx); err != nil {
		return prepareFailed(err)
	}

	// The two accounts are independent; wait for both concurrently.
	var created []solana.PublicKey
	if createFrom {
		created = append(created, fromATA)
	}
	if createTo {
		created = append(created, toATA)
	}
	var wg sync.WaitGroup
	for _, account := range created {
		wg.Add(1)
		go func(pk solana.PublicKey) {
			defer wg.Done()
			c.chain.WaitForAccount(ctx, pk)
		}(account)
	}
	wg.Wait()

	c.RefreshBalance(ctx)
	return nil
}

func (c *Checkout) submitWithRetry(ctx context.Context, attemptID string, instructions []solana.Instruction) (solana.Signature, error) {
	attempt := 0
	for {
		sig, err := c.wallet.SignAndSendTransaction(ctx, wallet.SignRequest{
			Instructions:      instructions,
			ClusterSimulation: c.cfg.ClusterSimulation,
		})
		if err == nil {
			return sig, nil
		}
		if attempt >= c.retries || !wallet.IsLikelyUninitializedWallet(err) {
			return solana.Signature{}, err
		}
		attempt++
		c.log.Warn("submit hit uninitialized-wallet symptom, retrying", map[string]any{
			"attempt": attemptID,
			"try":     attempt,
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return solana.Signature{}, err
		case <-time.After(c.retryDelay):
		}
	}
}

// classifySubmitFailure maps a post-retry submit failure onto the
// error taxonomy: invalid sessions route back to idle for
// re-authentication, everything else becomes PAYMENT_FAILED with the
// portal's last reported error merged in as advisory context.
func (c *Checkout) classifySubmitFailure(ctx context.Context, cause error) error {
	if wallet.IsInvalidSession(cause) {
		_ = c.wallet.Disconnect(ctx)
		return c.fail(types.ErrPaymentFailed,
			"Wallet session is invalid. Please reconnect with passkey and try again.", cause, StepIdle)
	}

	var portalHint string
	if snap := c.portal.Last(); snap != nil {
		portalHint = "Portal error: " + snap.Error
		if snap.Details != "" {
			portalHint += " (" + snap.Details + ")"
		}
	}
	underlying := types.FormatCauseChain(cause)

	var message string
	switch {
	case portalHint != "" && strings.Contains(strings.ToLower(cause.Error()), "sign"):
		message = "Signing failed. " + portalHint
	case portalHint != "":
		message = "Payment failed. " + portalHint
	default:
		message = "Payment failed"
	}
	if underlying != "" {
		message += " (" + underlying + ")"
	}

	return c.fail(types.ErrPaymentFailed, message, cause, StepError)
}

func (c *Checkout) enterIdle() {
	if c.wallet.Connected() {
		c.setStep(StepConfirm)
		return
	}
	c.setStep(StepIdle)
}

func (c *Checkout) setStep(s Step) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.step = s
	cb := c.onStep
	c.mu.Unlock()
	c.metrics.IncCounter("step", map[string]string{"outcome": string(s)})
	if cb != nil {
		cb(s)
	}
}

func (c *Checkout) clearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

// fail records a new active error (superseding any prior one), emits
// it, and transitions to next.
func (c *Checkout) fail(code types.ErrorCode, message string, cause error, next Step) *types.CheckoutError {
	return c.failWith(types.NewError(code, message, cause), next)
}

func (c *Checkout) failWith(cerr *types.CheckoutError, next Step) *types.CheckoutError {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return cerr
	}
	c.lastErr = cerr
	cb := c.onError
	c.mu.Unlock()

	c.metrics.IncCounter("checkout_error", map[string]string{"outcome": string(cerr.Code)})
	c.log.Error("checkout failed", map[string]any{
		"code":    string(cerr.Code),
		"message": cerr.Message,
	})

	if cb != nil {
		cb(cerr)
	}
	c.setStep(next)
	return cerr
}
