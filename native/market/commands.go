package market

import (
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"loanledger/core/txerr"
	"loanledger/core/types"
)

// Command is one decoded marketplace operation.
type Command interface {
	// Verb returns the canonical lowercase command name.
	Verb() string
}

// SendFunds moves balance between two wallets.
type SendFunds struct {
	Amount  *big.Int
	Sighash string
}

// RegisterAddress registers a settlement address on an external blockchain.
type RegisterAddress struct {
	Blockchain string
	Address    string
	Network    string
}

// RegisterTransfer records an off-ledger payment settling a deal or
// repayment order. Gain is the only numeric command argument permitted to be
// negative.
type RegisterTransfer struct {
	Gain           *big.Int
	OrderID        string
	BlockchainTxID string
}

// AddAskOrder advertises an investor's offer to lend.
type AddAskOrder struct {
	AddressID  string
	Amount     *big.Int
	Interest   *big.Int
	Maturity   *big.Int
	Fee        *big.Int
	Expiration uint64
}

// AddBidOrder advertises a fundraiser's request to borrow.
type AddBidOrder struct {
	AddressID  string
	Amount     *big.Int
	Interest   *big.Int
	Maturity   *big.Int
	Fee        *big.Int
	Expiration uint64
}

// AddOffer matches an ask order with a bid order.
type AddOffer struct {
	AskOrderID string
	BidOrderID string
	Expiration uint64
}

// AddDealOrder turns an accepted offer into a deal order.
type AddDealOrder struct {
	OfferID    string
	Expiration uint64
}

// CompleteDealOrder attaches the loan transfer to a deal.
type CompleteDealOrder struct {
	DealOrderID string
	TransferID  string
}

// LockDealOrder locks a funded deal for repayment.
type LockDealOrder struct {
	DealOrderID string
}

// CloseDealOrder attaches the repayment transfer to a locked deal.
type CloseDealOrder struct {
	DealOrderID string
	TransferID  string
}

// Exempt retires a deal without an actual repayment.
type Exempt struct {
	DealOrderID string
	TransferID  string
}

// AddRepaymentOrder lets a collector offer to repay a deal on the
// fundraiser's behalf.
type AddRepaymentOrder struct {
	DealOrderID string
	AddressID   string
	Amount      *big.Int
	Expiration  uint64
}

// CompleteRepaymentOrder is the investor's acceptance of a repayment order.
type CompleteRepaymentOrder struct {
	RepaymentOrderID string
}

// CloseRepaymentOrder attaches the settling transfer to a repayment order.
type CloseRepaymentOrder struct {
	RepaymentOrderID string
	TransferID       string
}

// CollectCoins credits a wallet from a verified external deposit.
type CollectCoins struct {
	EthAddress     string
	Amount         *big.Int
	BlockchainTxID string
}

// Housekeeping triggers the block-reward and garbage-collection sweep.
type Housekeeping struct {
	BlockIdx uint64
}

// RegisterDealOrder creates a deal order and its settling transfer in one
// step, bypassing the ask/bid/offer flow. The fundraiser pre-authorizes the
// terms with a signature.
type RegisterDealOrder struct {
	AskAddressID        string
	BidAddressID        string
	Amount              *big.Int
	Interest            *big.Int
	Maturity            *big.Int
	Fee                 *big.Int
	Expiration          uint64
	FundraiserSignature string
	FundraiserPublicKey string
	DealOrderID         string
	BlockchainTxID      string
}

func (*SendFunds) Verb() string              { return "sendfunds" }
func (*RegisterAddress) Verb() string        { return "registeraddress" }
func (*RegisterTransfer) Verb() string       { return "registertransfer" }
func (*AddAskOrder) Verb() string            { return "addaskorder" }
func (*AddBidOrder) Verb() string            { return "addbidorder" }
func (*AddOffer) Verb() string               { return "addoffer" }
func (*AddDealOrder) Verb() string           { return "adddealorder" }
func (*CompleteDealOrder) Verb() string      { return "completedealorder" }
func (*LockDealOrder) Verb() string          { return "lockdealorder" }
func (*CloseDealOrder) Verb() string         { return "closedealorder" }
func (*Exempt) Verb() string                 { return "exempt" }
func (*AddRepaymentOrder) Verb() string      { return "addrepaymentorder" }
func (*CompleteRepaymentOrder) Verb() string { return "completerepaymentorder" }
func (*CloseRepaymentOrder) Verb() string    { return "closerepaymentorder" }
func (*CollectCoins) Verb() string           { return "collectcoins" }
func (*Housekeeping) Verb() string           { return "housekeeping" }
func (*RegisterDealOrder) Verb() string      { return "registerdealorder" }

// DecodeCommand parses the self-describing CBOR payload: an array whose
// first element is the command name and whose remaining elements are the
// positional arguments.
func DecodeCommand(payload []byte) (Command, error) {
	var raw []interface{}
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return nil, txerr.Invalid("Invalid payload")
	}
	if len(raw) == 0 {
		return nil, txerr.Invalid("Expecting command name")
	}
	name, ok := raw[0].(string)
	if !ok {
		return nil, txerr.Invalid("Expecting command name")
	}
	r := &argReader{args: raw[1:]}

	switch strings.ToLower(name) {
	case "sendfunds":
		cmd := &SendFunds{}
		return cmd, firstErr(
			r.amount("amount", &cmd.Amount),
			r.id("sighash", &cmd.Sighash),
		)
	case "registeraddress":
		cmd := &RegisterAddress{}
		return cmd, firstErr(
			r.id("blockchain", &cmd.Blockchain),
			r.id("address", &cmd.Address),
			r.id("network", &cmd.Network),
		)
	case "registertransfer":
		cmd := &RegisterTransfer{}
		return cmd, firstErr(
			r.signed("gain", &cmd.Gain),
			r.id("orderID", &cmd.OrderID),
			r.id("blockchainTxId", &cmd.BlockchainTxID),
		)
	case "addaskorder":
		cmd := &AddAskOrder{}
		return cmd, firstErr(
			r.id("addressId", &cmd.AddressID),
			r.amount("amount", &cmd.Amount),
			r.amount("interest", &cmd.Interest),
			r.amount("maturity", &cmd.Maturity),
			r.amount("fee", &cmd.Fee),
			r.height("expiration", &cmd.Expiration),
		)
	case "addbidorder":
		cmd := &AddBidOrder{}
		return cmd, firstErr(
			r.id("addressId", &cmd.AddressID),
			r.amount("amount", &cmd.Amount),
			r.amount("interest", &cmd.Interest),
			r.amount("maturity", &cmd.Maturity),
			r.amount("fee", &cmd.Fee),
			r.height("expiration", &cmd.Expiration),
		)
	case "addoffer":
		cmd := &AddOffer{}
		return cmd, firstErr(
			r.id("askOrderId", &cmd.AskOrderID),
			r.id("bidOrderId", &cmd.BidOrderID),
			r.height("expiration", &cmd.Expiration),
		)
	case "adddealorder":
		cmd := &AddDealOrder{}
		return cmd, firstErr(
			r.id("offerId", &cmd.OfferID),
			r.height("expiration", &cmd.Expiration),
		)
	case "completedealorder":
		cmd := &CompleteDealOrder{}
		return cmd, firstErr(
			r.id("dealOrderId", &cmd.DealOrderID),
			r.id("transferId", &cmd.TransferID),
		)
	case "lockdealorder":
		cmd := &LockDealOrder{}
		return cmd, firstErr(
			r.id("dealOrderId", &cmd.DealOrderID),
		)
	case "closedealorder":
		cmd := &CloseDealOrder{}
		return cmd, firstErr(
			r.id("dealOrderId", &cmd.DealOrderID),
			r.id("transferId", &cmd.TransferID),
		)
	case "exempt":
		cmd := &Exempt{}
		return cmd, firstErr(
			r.id("dealOrderId", &cmd.DealOrderID),
			r.id("transferId", &cmd.TransferID),
		)
	case "addrepaymentorder":
		cmd := &AddRepaymentOrder{}
		return cmd, firstErr(
			r.id("dealOrderId", &cmd.DealOrderID),
			r.id("addressId", &cmd.AddressID),
			r.amount("amount", &cmd.Amount),
			r.height("expiration", &cmd.Expiration),
		)
	case "completerepaymentorder":
		cmd := &CompleteRepaymentOrder{}
		return cmd, firstErr(
			r.id("repaymentOrderId", &cmd.RepaymentOrderID),
		)
	case "closerepaymentorder":
		cmd := &CloseRepaymentOrder{}
		return cmd, firstErr(
			r.id("repaymentOrderId", &cmd.RepaymentOrderID),
			r.id("transferId", &cmd.TransferID),
		)
	case "collectcoins":
		cmd := &CollectCoins{}
		return cmd, firstErr(
			r.id("ethAddress", &cmd.EthAddress),
			r.amount("amount", &cmd.Amount),
			r.id("blockchainTxId", &cmd.BlockchainTxID),
		)
	case "housekeeping":
		cmd := &Housekeeping{}
		return cmd, firstErr(
			r.height("blockIdx", &cmd.BlockIdx),
		)
	case "registerdealorder":
		cmd := &RegisterDealOrder{}
		return cmd, firstErr(
			r.id("askAddressId", &cmd.AskAddressID),
			r.id("bidAddressId", &cmd.BidAddressID),
			r.amount("amount", &cmd.Amount),
			r.amount("interest", &cmd.Interest),
			r.amount("maturity", &cmd.Maturity),
			r.amount("fee", &cmd.Fee),
			r.height("expiration", &cmd.Expiration),
			r.str("fundraiserSignature", &cmd.FundraiserSignature),
			r.str("fundraiserPublicKey", &cmd.FundraiserPublicKey),
			r.id("dealOrderId", &cmd.DealOrderID),
			r.id("txId", &cmd.BlockchainTxID),
		)
	default:
		return nil, txerr.Invalidf("Invalid command %v", name)
	}
}

// argReader walks the positional arguments of a payload, producing the
// "Expecting <fieldName>" error for the first missing argument in
// declaration order.
type argReader struct {
	args []interface{}
	pos  int
}

func (r *argReader) next(field string) (interface{}, error) {
	if r.pos >= len(r.args) {
		return nil, txerr.Invalidf("Expecting %v", field)
	}
	v := r.args[r.pos]
	r.pos++
	return v, nil
}

// str reads a string argument verbatim.
func (r *argReader) str(field string, out *string) error {
	v, err := r.next(field)
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		return txerr.Invalidf("Expecting %v", field)
	}
	*out = s
	return nil
}

// id reads an identifier argument, folding it to lowercase.
func (r *argReader) id(field string, out *string) error {
	if err := r.str(field, out); err != nil {
		return err
	}
	*out = strings.ToLower(*out)
	return nil
}

// amount reads a non-negative numeric argument given as a decimal string or
// an integer.
func (r *argReader) amount(field string, out **big.Int) error {
	s, err := r.numeric(field)
	if err != nil {
		return err
	}
	v, err := types.ParseCurrency(s)
	if err != nil {
		return err
	}
	*out = v.Int()
	return nil
}

// signed reads a numeric argument that may be negative.
func (r *argReader) signed(field string, out **big.Int) error {
	s, err := r.numeric(field)
	if err != nil {
		return err
	}
	v, err := types.ParseSigned(s)
	if err != nil {
		return err
	}
	*out = v
	return nil
}

// height reads a non-negative block height into a uint64.
func (r *argReader) height(field string, out *uint64) error {
	var v *big.Int
	if err := r.amount(field, &v); err != nil {
		return err
	}
	if !v.IsUint64() {
		return txerr.Invalid(types.InvalidNumberFormatErr)
	}
	*out = v.Uint64()
	return nil
}

func (r *argReader) numeric(field string) (string, error) {
	v, err := r.next(field)
	if err != nil {
		return "", err
	}
	switch n := v.(type) {
	case string:
		return n, nil
	case uint64:
		return new(big.Int).SetUint64(n).String(), nil
	case int64:
		return big.NewInt(n).String(), nil
	case big.Int:
		return n.String(), nil
	case *big.Int:
		return n.String(), nil
	default:
		return "", txerr.Invalid(types.InvalidNumberFormatErr)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
