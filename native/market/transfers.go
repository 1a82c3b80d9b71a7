package market

import (
	"log/slog"
	"math/big"
	"strings"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/core/types"
)

// resolveOrder loads the order a transfer settles and determines the payment
// direction. For a deal the first transfer funds the loan (investor to
// fundraiser); once funded, a further transfer is the repayment flowing the
// opposite way.
func resolveOrder(ctx *Context, orderID string) (blockchain, src, dst string, amount *big.Int, err error) {
	kind, ok := address.KindOf(orderID)
	if !ok {
		return "", "", "", nil, txerr.Invalidf("Invalid id %v", orderID)
	}
	switch kind {
	case address.KindDealOrder:
		deal, found, err := ctx.Store.GetDealOrder(orderID)
		if err != nil {
			return "", "", "", nil, err
		}
		if !found {
			return "", "", "", nil, txerr.Invalid("Deal order not found")
		}
		if deal.LoanTransfer == "" {
			return deal.Blockchain, deal.SrcAddress, deal.DstAddress, deal.Amount, nil
		}
		return deal.Blockchain, deal.DstAddress, deal.SrcAddress, deal.Amount, nil
	case address.KindRepaymentOrder:
		order, found, err := ctx.Store.GetRepaymentOrder(orderID)
		if err != nil {
			return "", "", "", nil, err
		}
		if !found {
			return "", "", "", nil, txerr.Invalid("Repayment order not found")
		}
		return order.Blockchain, order.SrcAddress, order.DstAddress, order.Amount, nil
	default:
		return "", "", "", nil, txerr.Invalidf("Invalid id %v", orderID)
	}
}

func (e *Engine) registerTransfer(ctx *Context, b *state.Batch, c *RegisterTransfer) error {
	blockchain, srcID, dstID, orderAmount, err := resolveOrder(ctx, c.OrderID)
	if err != nil {
		return err
	}
	srcAddr, ok, err := ctx.Store.GetAddress(srcID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	dstAddr, ok, err := ctx.Store.GetAddress(dstID)
	if err != nil {
		return err
	}
	if !ok {
		return txerr.Invalid("Address not found")
	}
	if srcAddr.Sighash != ctx.Sighash {
		return txerr.Invalid("Only the owner can register a transfer")
	}
	// Both endpoints must live on the blockchain the order was struck on;
	// the transfer key is derived from the order's blockchain.
	if srcAddr.Blockchain != blockchain || dstAddr.Blockchain != blockchain ||
		srcAddr.Network != dstAddr.Network {
		return txerr.Invalid("The addresses are on different blockchains")
	}
	amount := add(orderAmount, c.Gain)
	if amount.Sign() < 0 {
		return txerr.Invalid(types.NegativeNumberErr)
	}
	id := address.ForKind(address.KindTransfer, blockchain+c.BlockchainTxID+srcAddr.Network)
	exists, err := ctx.Store.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return txerr.Invalid("The transfer has been already registered")
	}
	cmd := strings.Join([]string{
		blockchain, "verify", srcAddr.Value, dstAddr.Value, c.OrderID,
		amount.String(), c.BlockchainTxID, srcAddr.Network,
	}, " ")
	e.log.Debug("verifying external transfer",
		slog.String("order", c.OrderID), slog.String("tx", c.BlockchainTxID))
	if err := e.gateway.Verify(cmd); err != nil {
		return err
	}
	wallet, err := e.walletMinusFee(ctx)
	if err != nil {
		return err
	}
	transfer := &types.Transfer{
		Blockchain: blockchain,
		SrcAddress: srcID,
		DstAddress: dstID,
		Order:      c.OrderID,
		Amount:     amount,
		Tx:         c.BlockchainTxID,
		Block:      ctx.Tip - 1,
		Processed:  false,
		Sighash:    ctx.Sighash,
	}
	if err := b.Set(id, transfer); err != nil {
		return err
	}
	return e.writeFee(ctx, b, wallet)
}
