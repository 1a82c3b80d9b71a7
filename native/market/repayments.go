package market

import (
	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
)

func (e *Engine) addRepaymentOrder(ctx *Context, b *state.Batch, c *AddRepaymentOrder) error {
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	if err := address.Validate(c.AddressID, address.KindAddress); err != nil {
		return err
	}
	deal, ok, err := ctx.Store.GetDealOrder(c.DealOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	if deal.Sighash == ctx.Sighash {
		return txerr.Invalid("A fundraiser cannot register a repayment order")
	}
	if deal.LoanTransfer == "" {
		return txerr.Invalid("The deal has not been completed yet")
	}
	if deal.Lock != "" {
		return txerr.Invalid("The deal has been already locked")
	}
	if deal.RepaymentTransfer != "" {
		return txerr.Invalid("The deal has been already closed")
	}
	id := address.ForKind(address.KindRepaymentOrder, ctx.Guid)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
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
	if addr.Blockchain != deal.Blockchain {
		return txerr.Invalid("The addresses are on different blockchains")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	rep := &types.RepaymentOrder{
		Blockchain: deal.Blockchain,
		SrcAddress: c.AddressID,
		DstAddress: deal.SrcAddress,
		Amount:     c.Amount,
		Expiration: c.Expiration,
		Block:      ctx.Tip - 1,
		Deal:       c.DealOrderID,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, rep); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

// completeRepaymentOrder is the investor's acceptance: the repayment order
// records its previous owner and the deal locks under the investor while the
// collector settles.
func (e *Engine) completeRepaymentOrder(ctx *Context, b *state.Batch, c *CompleteRepaymentOrder) error {
	if err := address.Validate(c.RepaymentOrderID, address.KindRepaymentOrder); err != nil {
		return err
	}
	rep, ok, err := ctx.Store.GetRepaymentOrder(c.RepaymentOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Repayment order not found")
	}
	if rep.PreviousOwner != "" {
		return txerr.Invalid("The repayment order has been already completed")
	}
	if rep.Transfer != "" {
		return txerr.Invalid("The repayment order has been already closed")
	}
	deal, ok, err := ctx.Store.GetDealOrder(rep.Deal)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	// A repayment order outlives the unlocked state it was created in; it
	// must not displace a lock taken since.
	if deal.Lock != "" {
		return txerr.Invalid("The deal has been already locked")
	}
	srcAddr, ok, err := ctx.Store.GetAddress(deal.SrcAddress)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if srcAddr.Sighash != ctx.Sighash {
		return txerr.Invalid("Only an investor can complete a repayment order")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	rep.PreviousOwner = ctx.Sighash
	deal.Lock = ctx.Sighash
	if err := b.Set(c.RepaymentOrderID, rep); err != nil {
		return err
	}
	if err := b.Set(rep.Deal, deal); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) closeRepaymentOrder(ctx *Context, b *state.Batch, c *CloseRepaymentOrder) error {
	if err := address.Validate(c.RepaymentOrderID, address.KindRepaymentOrder); err != nil {
		return err
	}
	if err := address.Validate(c.TransferID, address.KindTransfer); err != nil {
		return err
	}
	rep, ok, err := ctx.Store.GetRepaymentOrder(c.RepaymentOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Repayment order not found")
	}
	if rep.Sighash != ctx.Sighash {
		return txerr.Invalid("Only a collector can close a repayment order")
	}
	if rep.Transfer != "" {
		return txerr.Invalid("The repayment order has been already closed")
	}
	transfer, ok, err := ctx.Store.GetTransfer(c.TransferID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Transfer not found")
	}
	if transfer.Order != c.RepaymentOrderID || transfer.Amount.Cmp(rep.Amount) != 0 {
		return txerr.Invalid("The transfer doesn't match the repayment order")
	}
	if transfer.Processed {
		return txerr.Invalid("The transfer has been already processed")
	}
	deal, ok, err := ctx.Store.GetDealOrder(rep.Deal)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	// Ownership of the deal's investor side moves to the collector.
	rep.Transfer = c.TransferID
	deal.SrcAddress = rep.SrcAddress
	deal.Lock = ""
	transfer.Processed = true
	if err := b.Set(c.RepaymentOrderID, rep); err != nil {
		return err
	}
	if err := b.Set(rep.Deal, deal); err != nil {
		return err
	}
	if err := b.Set(c.TransferID, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}
