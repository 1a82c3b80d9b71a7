// Package types holds the value types persisted by the marketplace processor
// and the monetary arithmetic they rely on. Records are serialized with RLP;
// cross-references between records are address strings, never pointers.
package types

import "math/big"

// Wallet tracks a participant's internal balance, keyed by sighash. Wallets
// are created lazily on first credit and never deleted.
type Wallet struct {
	Amount *big.Int
}

// Balance returns the wallet balance, treating a missing amount as zero.
func (w *Wallet) Balance() *big.Int {
	if w == nil || w.Amount == nil {
		return new(big.Int)
	}
	return w.Amount
}

// Fee is the audit record written for every state-mutating command, keyed by
// the command nonce. Fees are burned, not redistributed.
type Fee struct {
	Sighash string
	Block   uint64
}

// Address is a registered settlement address on an external blockchain,
// keyed by (blockchain, value, network). Registration is globally unique.
type Address struct {
	Blockchain string
	Value      string
	Network    string
	Sighash    string
}

// AskOrder is an investor's offer to lend, keyed by the command nonce.
type AskOrder struct {
	Blockchain string
	Address    string
	Amount     *big.Int
	Interest   *big.Int
	Maturity   *big.Int
	Fee        *big.Int
	Expiration uint64
	Block      uint64
	Sighash    string
}

// BidOrder is a fundraiser's request to borrow, keyed by the command nonce.
type BidOrder struct {
	Blockchain string
	Address    string
	Amount     *big.Int
	Interest   *big.Int
	Maturity   *big.Int
	Fee        *big.Int
	Expiration uint64
	Block      uint64
	Sighash    string
}

// Offer matches an ask order with a compatible bid order, keyed by the pair
// of order ids. The sighash is the ask owner (investor) who made the offer.
type Offer struct {
	AskOrder   string
	BidOrder   string
	Expiration uint64
	Block      uint64
	Sighash    string
}

// DealOrder is the canonical record of an agreed loan, keyed by the offer id.
// SrcAddress is the investor side, DstAddress the fundraiser side. The
// mutable fields LoanTransfer, RepaymentTransfer and Lock track settlement
// progress.
type DealOrder struct {
	Blockchain        string
	SrcAddress        string
	DstAddress        string
	Amount            *big.Int
	Interest          *big.Int
	Maturity          *big.Int
	Fee               *big.Int
	Expiration        uint64
	Block             uint64
	LoanTransfer      string
	RepaymentTransfer string
	Lock              string
	Sighash           string
}

// RepaymentOrder lets a third-party collector repay a locked deal on the
// fundraiser's behalf, keyed by the command nonce.
type RepaymentOrder struct {
	Blockchain    string
	SrcAddress    string
	DstAddress    string
	Amount        *big.Int
	Expiration    uint64
	Block         uint64
	Deal          string
	PreviousOwner string
	Transfer      string
	Sighash       string
}

// Transfer records an off-ledger settlement payment, keyed by
// (blockchain, external tx id, network). The key guarantees uniqueness across
// transactions.
type Transfer struct {
	Blockchain string
	SrcAddress string
	DstAddress string
	Order      string
	Amount     *big.Int
	Tx         string
	Block      uint64
	Processed  bool
	Sighash    string
}

// Setting is an on-chain configuration record under the settings namespace.
// A record may carry several key/value entries.
type Setting struct {
	Entries []SettingEntry
}

// SettingEntry is a single key/value pair within a Setting record.
type SettingEntry struct {
	Key   string
	Value string
}
