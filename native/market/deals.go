package market

import (
	"math/big"
	"strconv"
	"strings"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
	"loanledger/crypto"
)

func (e *Engine) addDealOrder(ctx *Context, b *state.Batch, c *AddDealOrder) error {
	if err := address.Validate(c.OfferID, address.KindOffer); err != nil {
		return err
	}
	id := address.ForKind(address.KindDealOrder, c.OfferID)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
	}
	offer, ok, err := ctx.Store.GetOffer(c.OfferID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Offer not found")
	}
	bid, ok, err := ctx.Store.GetBidOrder(offer.BidOrder)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Bid order not found")
	}
	if bid.Sighash != ctx.Sighash {
		return txerr.Invalid("Only a fundraiser can add a deal order")
	}
	ask, ok, err := ctx.Store.GetAskOrder(offer.AskOrder)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Ask order not found")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	deal := &types.DealOrder{
		Blockchain: ask.Blockchain,
		SrcAddress: ask.Address,
		DstAddress: bid.Address,
		Amount:     bid.Amount,
		Interest:   bid.Interest,
		Maturity:   bid.Maturity,
		Fee:        bid.Fee,
		Expiration: c.Expiration,
		Block:      ctx.Tip - 1,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, deal); err != nil {
		return err
	}
	// The orders and the offer are consumed atomically with the deal
	// creation.
	b.Delete(offer.AskOrder)
	b.Delete(offer.BidOrder)
	b.Delete(c.OfferID)
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) completeDealOrder(ctx *Context, b *state.Batch, c *CompleteDealOrder) error {
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	if err := address.Validate(c.TransferID, address.KindTransfer); err != nil {
		return err
	}
	deal, ok, err := ctx.Store.GetDealOrder(c.DealOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	if deal.LoanTransfer != "" {
		return txerr.Invalid("The deal has been already completed")
	}
	srcAddr, ok, err := ctx.Store.GetAddress(deal.SrcAddress)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if srcAddr.Sighash != ctx.Sighash {
		return txerr.Invalid("Only an investor can complete a deal")
	}
	transfer, ok, err := ctx.Store.GetTransfer(c.TransferID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Transfer not found")
	}
	if transfer.Order != c.DealOrderID || transfer.Amount.Cmp(deal.Amount) != 0 {
		return txerr.Invalid("The transfer doesn't match the deal order")
	}
	if transfer.Processed {
		return txerr.Invalid("The transfer has been already processed")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	// The fundraiser's completion fee accrues to the investor.
	wallet.Amount.Add(wallet.Amount, deal.Fee)

	deal.LoanTransfer = c.TransferID
	deal.Block = ctx.Tip - 1
	transfer.Processed = true
	if err := b.Set(c.DealOrderID, deal); err != nil {
		return err
	}
	if err := b.Set(c.TransferID, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) lockDealOrder(ctx *Context, b *state.Batch, c *LockDealOrder) error {
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	deal, ok, err := ctx.Store.GetDealOrder(c.DealOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	if deal.Sighash != ctx.Sighash {
		return txerr.Invalid("Only a fundraiser can lock a deal")
	}
	if deal.LoanTransfer == "" {
		return txerr.Invalid("The deal has not been completed yet")
	}
	if deal.Lock != "" {
		return txerr.Invalid("The deal has been already locked")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	deal.Lock = ctx.Sighash
	if err := b.Set(c.DealOrderID, deal); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

func (e *Engine) closeDealOrder(ctx *Context, b *state.Batch, c *CloseDealOrder) error {
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	if err := address.Validate(c.TransferID, address.KindTransfer); err != nil {
		return err
	}
	deal, ok, err := ctx.Store.GetDealOrder(c.DealOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	if deal.Sighash != ctx.Sighash {
		return txerr.Invalid("Only a fundraiser can close a deal")
	}
	if deal.Lock != ctx.Sighash {
		return txerr.Invalid("The deal must be locked first")
	}
	if deal.RepaymentTransfer != "" {
		return txerr.Invalid("The deal has been already closed")
	}
	transfer, ok, err := ctx.Store.GetTransfer(c.TransferID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Transfer not found")
	}
	if transfer.Order != c.DealOrderID {
		return txerr.Invalid("The transfer doesn't match the deal order")
	}
	if transfer.Processed {
		return txerr.Invalid("The transfer has been already processed")
	}
	ticks := repaymentTicks(ctx.Tip, deal.Block, deal.Maturity)
	expected := add(deal.Amount, types.CalcInterest(deal.Amount, deal.Interest, ticks))
	if transfer.Amount.Cmp(expected) != 0 {
		return txerr.Invalid("The transfer doesn't match the deal order")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	deal.RepaymentTransfer = c.TransferID
	transfer.Processed = true
	if err := b.Set(c.DealOrderID, deal); err != nil {
		return err
	}
	if err := b.Set(c.TransferID, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

// exempt retires a deal without an actual repayment, at the investor's sole
// discretion.
func (e *Engine) exempt(ctx *Context, b *state.Batch, c *Exempt) error {
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	if err := address.Validate(c.TransferID, address.KindTransfer); err != nil {
		return err
	}
	deal, ok, err := ctx.Store.GetDealOrder(c.DealOrderID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Deal order not found")
	}
	if deal.RepaymentTransfer != "" {
		return txerr.Invalid("The deal has been already closed")
	}
	transfer, ok, err := ctx.Store.GetTransfer(c.TransferID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Transfer not found")
	}
	if transfer.Order != c.DealOrderID {
		return txerr.Invalid("The transfer doesn't match the deal order")
	}
	if transfer.Processed {
		return txerr.Invalid("The transfer has been already processed")
	}
	srcAddr, ok, err := ctx.Store.GetAddress(deal.SrcAddress)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if srcAddr.Sighash != ctx.Sighash {
		return txerr.Invalid("Only an investor can exempt a deal")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	deal.RepaymentTransfer = c.TransferID
	transfer.Processed = true
	if err := b.Set(c.DealOrderID, deal); err != nil {
		return err
	}
	if err := b.Set(c.TransferID, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}

// registerDealOrderMessage is the exact byte sequence the fundraiser signs to
// pre-authorize a deal. It is part of the wire contract.
func registerDealOrderMessage(c *RegisterDealOrder) string {
	var sb strings.Builder
	sb.WriteString(c.AskAddressID)
	sb.WriteString(c.BidAddressID)
	sb.WriteString(c.Amount.String())
	sb.WriteString(", ")
	sb.WriteString(c.Interest.String())
	sb.WriteString(", ")
	sb.WriteString(c.Maturity.String())
	sb.WriteString(", ")
	sb.WriteString(c.Fee.String())
	sb.WriteString(", ")
	sb.WriteString(strconv.FormatUint(c.Expiration, 10))
	return sb.String()
}

func (e *Engine) registerDealOrder(ctx *Context, b *state.Batch, c *RegisterDealOrder) error {
	if err := address.Validate(c.AskAddressID, address.KindAddress); err != nil {
		return err
	}
	if err := address.Validate(c.BidAddressID, address.KindAddress); err != nil {
		return err
	}
	if err := address.Validate(c.DealOrderID, address.KindDealOrder); err != nil {
		return err
	}
	askAddr, ok, err := ctx.Store.GetAddress(c.AskAddressID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if askAddr.Sighash != ctx.Sighash {
		return txerr.Invalid("The address doesn't belong to the party")
	}
	bidAddr, ok, err := ctx.Store.GetAddress(c.BidAddressID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if askAddr.Blockchain != bidAddr.Blockchain || askAddr.Network != bidAddr.Network {
		return txerr.Invalid("The addresses are on different blockchains")
	}
	fundraiser, err := crypto.Sighash(c.FundraiserPublicKey)
	if err != nil {
		return err
	}
	if bidAddr.Sighash != fundraiser {
		return txerr.Invalid("The address doesn't belong to the party")
	}
	if err := crypto.VerifySignature(c.FundraiserPublicKey, registerDealOrderMessage(c), c.FundraiserSignature); err != nil {
		return err
	}
	exists, err := ctx.Store.Has(c.DealOrderID)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("Duplicate id")
	}
	transferID := address.ForKind(address.KindTransfer, askAddr.Blockchain+c.BlockchainTxID+askAddr.Network)
	exists, err = ctx.Store.Has(transferID)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("The transfer has been already registered")
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	deal := &types.DealOrder{
		Blockchain:   askAddr.Blockchain,
		SrcAddress:   c.AskAddressID,
		DstAddress:   c.BidAddressID,
		Amount:       c.Amount,
		Interest:     c.Interest,
		Maturity:     c.Maturity,
		Fee:          c.Fee,
		Expiration:   c.Expiration,
		Block:        ctx.Tip - 1,
		LoanTransfer: transferID,
		Sighash:      fundraiser,
	}
	transfer := &types.Transfer{
		Blockchain: askAddr.Blockchain,
		SrcAddress: c.AskAddressID,
		DstAddress: c.BidAddressID,
		Order:      c.DealOrderID,
		Amount:     new(big.Int).Set(c.Amount),
		Tx:         c.BlockchainTxID,
		Block:      ctx.Tip - 1,
		Processed:  true,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(c.DealOrderID, deal); err != nil {
		return err
	}
	if err := b.Set(transferID, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}
