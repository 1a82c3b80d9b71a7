package market

import (
	"math/big"
	"strings"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
)

func (e *Engine) sendFunds(ctx *Context, b *state.Batch, c *SendFunds) error {
	if c.Sighash == ctx.Sighash {
		return txerr.Invalid("Invalid destination")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	wallet.Amount.Sub(wallet.Amount, c.Amount)
	if wallet.Amount.Sign() < 0 {
		return txerr.Invalid("Insufficient funds")
	}
	dest, err := ctx.Store.GetWallet(c.Sighash)
	if err != nil {
		return err
	}
	dest.Amount = new(big.Int).Add(dest.Balance(), c.Amount)
	if err := b.Set(walletAddress(c.Sighash), dest); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) registerAddress(ctx *Context, b *state.Batch, c *RegisterAddress) error {
	id := address.ForKind(address.KindAddress, c.Blockchain+c.Address+c.Network)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("The address has been already registered")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	rec := &types.Address{
		Blockchain: c.Blockchain,
		Value:      c.Address,
		Network:    c.Network,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, rec); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

// collectCoins credits the caller's wallet from a gateway-verified external
// deposit. It deliberately charges no fee: the caller may not hold any
// balance yet.
func (e *Engine) collectCoins(ctx *Context, b *state.Batch, c *CollectCoins) error {
	id := address.ForKind(address.KindTransfer, c.EthAddress+c.BlockchainTxID)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Already collected")
	}
	cmd := strings.Join([]string{"CollectCoins", c.EthAddress, c.Amount.String(), c.BlockchainTxID}, " ")
	if err := e.gateway.Verify(cmd); err != nil {
		return err
	}
	wallet, err := ctx.Store.GetWallet(ctx.Sighash)
	if err != nil {
		return err
	}
	wallet.Amount = new(big.Int).Add(wallet.Balance(), c.Amount)
	if err := b.Set(walletAddress(ctx.Sighash), wallet); err != nil {
		return err
	}
	// The marker record pins the external tx id so a deposit cannot be
	// collected twice.
	marker := &types.Transfer{
		Blockchain: "ethereum",
		Amount:     c.Amount,
		Tx:         c.BlockchainTxID,
		Block:      ctx.Tip - 1,
		Processed:  true,
		Sighash:    ctx.Sighash,
	}
	return b.Set(id, marker)
}
