package market

import (
	"log/slog"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
	"loanledger/crypto"
	"loanledger/observability/metrics"
	"loanledger/settings"
)

// housekeeping mints block rewards for a finalized window and garbage
// collects expired marketplace records. It charges no fee. The reward pass
// always precedes GC; the checkpoint only advances when rewards were minted.
func (e *Engine) housekeeping(ctx *Context, b *state.Batch, c *Housekeeping) error {
	if err := e.rewardPass(ctx, b, c.BlockIdx); err != nil {
		return err
	}
	if err := e.gcPass(ctx, b, c.BlockIdx); err != nil {
		return err
	}
	metrics.HousekeepingSweeps.Inc()
	return nil
}

// readCheckpoint returns the last block height for which rewards were
// minted, or 0 when none were.
func readCheckpoint(ctx *Context) (uint64, error) {
	data, ok, err := ctx.Store.GetRaw(address.ProcessedBlock)
	if err != nil || !ok {
		return 0, err
	}
	height, perr := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if perr != nil {
		return 0, txerr.Internalf("corrupt processed-block checkpoint: %v", perr)
	}
	return height, nil
}

func (e *Engine) rewardPass(ctx *Context, b *state.Batch, blockIdx uint64) error {
	last, err := readCheckpoint(ctx)
	if err != nil {
		return err
	}
	// Rewards wait for enough confirmations on top of the window.
	if ctx.Tip < ConfirmationCount*2+BlockRewardProcessingCount+last {
		return nil
	}
	windowEnd := last + BlockRewardProcessingCount
	if blockIdx > 0 {
		windowEnd = blockIdx
	}
	if windowEnd <= last {
		return nil
	}

	signers, err := e.windowSigners(ctx, last+1, windowEnd)
	if err != nil {
		return err
	}
	// One wallet write per signer, in sorted order for determinism.
	blocksSigned := make(map[string]uint64)
	for _, pubKey := range signers {
		sighash, err := crypto.Sighash(pubKey)
		if err != nil {
			return txerr.Internalf("invalid block signer key: %v", err)
		}
		blocksSigned[sighash]++
	}
	sighashes := make([]string, 0, len(blocksSigned))
	for sighash := range blocksSigned {
		sighashes = append(sighashes, sighash)
	}
	sort.Strings(sighashes)
	for _, sighash := range sighashes {
		wallet, err := ctx.Store.GetWallet(sighash)
		if err != nil {
			return err
		}
		reward := mul(RewardAmount, new(big.Int).SetUint64(blocksSigned[sighash]))
		wallet.Amount = add(wallet.Balance(), reward)
		if err := b.Set(walletAddress(sighash), wallet); err != nil {
			return err
		}
	}

	e.log.Debug("minted block rewards",
		slog.Uint64("first", last+1), slog.Uint64("last", windowEnd),
		slog.Int("signers", len(sighashes)))

	// Checkpoint advancement is the last mutation of the reward pass.
	b.SetRaw(address.ProcessedBlock, []byte(strconv.FormatUint(windowEnd, 10)))
	return nil
}

// windowSigners queries the validator for the block signers of the closed
// window [first, last]. The fork-aware path is gated by an on-chain feature
// flag.
func (e *Engine) windowSigners(ctx *Context, first, last uint64) ([]string, error) {
	if e.update1Enabled() {
		sigs, err := ctx.Store.KV().RewardBlockSignatures(ctx.BlockSignature, first, last)
		if err != nil {
			return nil, txerr.Internalf("reward block signatures: %v", err)
		}
		return sigs, nil
	}
	signers := make([]string, 0, last-first+1)
	for height := first; height <= last; height++ {
		pubKey, err := ctx.Store.KV().SigByNum(height)
		if err != nil {
			return nil, txerr.Internalf("block signature at %d: %v", height, err)
		}
		signers = append(signers, pubKey)
	}
	return signers, nil
}

func (e *Engine) update1Enabled() bool {
	v, ok := e.settings.Get(settings.KeyUpdate1)
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	return v != "" && v != "0"
}

// expirable describes how to sweep one record kind: how to extract its
// creation block and expiration, and whether expired records may actually be
// removed.
type expirable struct {
	kind      address.Kind
	deletable bool
	decode    func(data []byte) (block, expiration uint64, err error)
}

var expirableKinds = []expirable{
	{address.KindAskOrder, true, func(data []byte) (uint64, uint64, error) {
		var rec types.AskOrder
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, rec.Expiration, err
	}},
	{address.KindBidOrder, true, func(data []byte) (uint64, uint64, error) {
		var rec types.BidOrder
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, rec.Expiration, err
	}},
	{address.KindOffer, true, func(data []byte) (uint64, uint64, error) {
		var rec types.Offer
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, rec.Expiration, err
	}},
	{address.KindDealOrder, true, func(data []byte) (uint64, uint64, error) {
		var rec types.DealOrder
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, rec.Expiration, err
	}},
	{address.KindRepaymentOrder, true, func(data []byte) (uint64, uint64, error) {
		var rec types.RepaymentOrder
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, rec.Expiration, err
	}},
	// Fee records are enumerated for audit parity with the other kinds but
	// are retained forever.
	{address.KindFee, false, func(data []byte) (uint64, uint64, error) {
		var rec types.Fee
		err := rlp.DecodeBytes(data, &rec)
		return rec.Block, 0, err
	}},
}

// gcPass deletes expired marketplace records. It only runs for the sighash
// authorized by the gateway setting, and only when a concrete target height
// was supplied.
func (e *Engine) gcPass(ctx *Context, b *state.Batch, blockIdx uint64) error {
	authorized, ok := e.settings.Get(settings.KeyGatewaySighash)
	if !ok || authorized != ctx.Sighash || blockIdx == 0 {
		return nil
	}
	swept := 0
	for _, kind := range expirableKinds {
		entries, err := ctx.Store.GetByPrefix(address.Prefix(kind.kind))
		if err != nil {
			return err
		}
		for _, entry := range entries {
			block, expiration, err := kind.decode(entry.Data)
			if err != nil {
				return txerr.Internalf("corrupt record at %s: %v", entry.Address, err)
			}
			if kind.deletable && block+expiration < blockIdx {
				b.Delete(entry.Address)
				swept++
			}
		}
	}
	if swept > 0 {
		e.log.Debug("swept expired records",
			slog.Uint64("height", blockIdx), slog.Int("deleted", swept))
	}
	return nil
}
