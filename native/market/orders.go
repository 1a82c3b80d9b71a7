package market

import (
	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
)

func (e *Engine) addAskOrder(ctx *Context, b *state.Batch, c *AddAskOrder) error {
	id := address.ForKind(address.KindAskOrder, ctx.Guid)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
	}
	if err := address.Validate(c.AddressID, address.KindAddress); err != nil {
		return err
	}
	addr, ok, err := ctx.Store.GetAddress(c.AddressID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if addr.Sighash != ctx.Sighash {
		return txerr.Invalid("The address doesn't belong to the party")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	order := &types.AskOrder{
		Blockchain: addr.Blockchain,
		Address:    c.AddressID,
		Amount:     c.Amount,
		Interest:   c.Interest,
		Maturity:   c.Maturity,
		Fee:        c.Fee,
		Expiration: c.Expiration,
		Block:      ctx.Tip - 1,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, order); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) addBidOrder(ctx *Context, b *state.Batch, c *AddBidOrder) error {
	id := address.ForKind(address.KindBidOrder, ctx.Guid)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
	}
	if err := address.Validate(c.AddressID, address.KindAddress); err != nil {
		return err
	}
	addr, ok, err := ctx.Store.GetAddress(c.AddressID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if addr.Sighash != ctx.Sighash {
		return txerr.Invalid("The address doesn't belong to the party")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	order := &types.BidOrder{
		Blockchain: addr.Blockchain,
		Address:    c.AddressID,
		Amount:     c.Amount,
		Interest:   c.Interest,
		Maturity:   c.Maturity,
		Fee:        c.Fee,
		Expiration: c.Expiration,
		Block:      ctx.Tip - 1,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, order); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

// compatible reports whether the bid terms satisfy or exceed the ask terms:
// same principal, at least the asked yield per maturity period, at least the
// asked completion fee.
func compatible(ask *types.AskOrder, bid *types.BidOrder) bool {
	if ask.Amount.Cmp(bid.Amount) != 0 {
		return false
	}
	// Cross-multiplied comparison of interest per maturity period, exact in
	// integers: ask.Interest/ask.Maturity <= bid.Interest/bid.Maturity.
	askWeighted := mul(ask.Interest, bid.Maturity)
	bidWeighted := mul(bid.Interest, ask.Maturity)
	if askWeighted.Cmp(bidWeighted) > 0 {
		return false
	}
	return ask.Fee.Cmp(bid.Fee) <= 0
}

func (e *Engine) addOffer(ctx *Context, b *state.Batch, c *AddOffer) error {
	id := address.ForKind(address.KindOffer, c.AskOrderID+c.BidOrderID)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
	}
	if err := address.Validate(c.AskOrderID, address.KindAskOrder); err != nil {
		return err
	}
	if err := address.Validate(c.BidOrderID, address.KindBidOrder); err != nil {
		return err
	}
	ask, ok, err := ctx.Store.GetAskOrder(c.AskOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Ask order not found")
	}
	if ask.Sighash != ctx.Sighash {
		return txerr.Invalid("Only an investor can add an offer")
	}
	bid, ok, err := ctx.Store.GetBidOrder(c.BidOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Bid order not found")
	}
	if bid.Sighash == ctx.Sighash {
		return txerr.Invalid("The ask and bid orders must have different owners")
	}
	if !compatible(ask, bid) {
		return txerr.Invalid("The orders are not compatible")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	offer := &types.Offer{
		AskOrder:   c.AskOrderID,
		BidOrder:   c.BidOrderID,
		Expiration: c.Expiration,
		Block:      ctx.Tip - 1,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, offer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}
