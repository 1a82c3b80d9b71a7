// Package market implements the state-transition engine of the lending
// marketplace: one handler per command plus the housekeeping sweep. Handlers
// load referenced records, enforce preconditions and accumulate the
// transaction's mutation set, which is committed in one step on success.
package market

import (
	"log/slog"
	"math/big"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
	"loanledger/observability/metrics"
	"loanledger/settings"
)

// Process-wide consensus constants. Every node must run identical values.
const (
	// ConfirmationCount is the depth at which a block is considered
	// finalized for reward purposes.
	ConfirmationCount = 30
	// BlockRewardProcessingCount is the number of blocks rewarded per
	// housekeeping pass.
	BlockRewardProcessingCount = 10
)

var (
	// TxFee is the flat fee burned from the caller's wallet on every
	// state-mutating command except CollectCoins and Housekeeping.
	TxFee = mustBig("10000000000000000")
	// RewardAmount is the amount minted per finalized block to its
	// signer's wallet.
	RewardAmount = mustBig("2000000000000000000")
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Verifier asks the settlement gateway to validate an external payment
// reference.
type Verifier interface {
	Verify(command string) error
}

// Context carries the per-transaction inputs: the borrowed state handle, the
// chain tip and the caller identity derived from the envelope.
type Context struct {
	Store          *state.Store
	Tip            uint64
	Sighash        string
	Guid           string
	BlockSignature string
}

// Engine executes decoded commands against the current state.
type Engine struct {
	gateway  Verifier
	settings settings.Reader
	log      *slog.Logger
}

// NewEngine builds an executor wired to the settlement gateway and the
// settings cache.
func NewEngine(gateway Verifier, reader settings.Reader, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{gateway: gateway, settings: reader, log: log}
}

// Execute runs one command and commits its mutation set. On error nothing is
// written.
func (e *Engine) Execute(ctx *Context, cmd Command) error {
	b := state.NewBatch()
	var err error
	switch c := cmd.(type) {
	case *SendFunds:
		err = e.sendFunds(ctx, b, c)
	case *RegisterAddress:
		err = e.registerAddress(ctx, b, c)
	case *RegisterTransfer:
		err = e.registerTransfer(ctx, b, c)
	case *AddAskOrder:
		err = e.addAskOrder(ctx, b, c)
	case *AddBidOrder:
		err = e.addBidOrder(ctx, b, c)
	case *AddOffer:
		err = e.addOffer(ctx, b, c)
	case *AddDealOrder:
		err = e.addDealOrder(ctx, b, c)
	case *CompleteDealOrder:
		err = e.completeDealOrder(ctx, b, c)
	case *LockDealOrder:
		err = e.lockDealOrder(ctx, b, c)
	case *CloseDealOrder:
		err = e.closeDealOrder(ctx, b, c)
	case *Exempt:
		err = e.exempt(ctx, b, c)
	case *AddRepaymentOrder:
		err = e.addRepaymentOrder(ctx, b, c)
	case *CompleteRepaymentOrder:
		err = e.completeRepaymentOrder(ctx, b, c)
	case *CloseRepaymentOrder:
		err = e.closeRepaymentOrder(ctx, b, c)
	case *CollectCoins:
		err = e.collectCoins(ctx, b, c)
	case *Housekeeping:
		err = e.housekeeping(ctx, b, c)
	case *RegisterDealOrder:
		err = e.registerDealOrder(ctx, b, c)
	default:
		err = txerr.Invalidf("Invalid command %v", cmd.Verb())
	}
	if err != nil {
		return err
	}
	if err := b.Commit(ctx.Store); err != nil {
		return err
	}
	metrics.CommandsExecuted.WithLabelValues(cmd.Verb()).Inc()
	return nil
}

func walletAddress(sighash string) string {
	return address.ForKind(address.KindWallet, sighash)
}

// walletMinusFee loads the caller's wallet with the transaction fee already
// debited. The returned wallet has not been written yet: handlers may apply
// further debits or credits before calling writeFee.
func (e *Engine) walletMinusFee(ctx *Context) (*types.Wallet, error) {
	wallet, err := ctx.Store.GetWallet(ctx.Sighash)
	if err != nil {
		return nil, err
	}
	if wallet.Balance().Cmp(TxFee) < 0 {
		return nil, txerr.Invalid("Insufficient funds")
	}
	wallet.Amount = new(big.Int).Sub(wallet.Balance(), TxFee)
	return wallet, nil
}

// writeFee persists the caller's adjusted wallet and the audit fee record at
// the command nonce.
func (e *Engine) writeFee(ctx *Context, b *state.Batch, wallet *types.Wallet) error {
	if err := b.Set(walletAddress(ctx.Sighash), wallet); err != nil {
		return err
	}
	fee := &types.Fee{Sighash: ctx.Sighash, Block: ctx.Tip - 1}
	return b.Set(address.ForKind(address.KindFee, ctx.Guid), fee)
}
