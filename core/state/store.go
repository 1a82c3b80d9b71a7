package state

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"loanledger/core/address"
	"loanledger/core/txerr"
	"loanledger/core/types"
)

// Store wraps the validator KV handle borrowed for the lifetime of one
// dispatch. An authorization failure on Get is mapped to "absent"; every
// other failure is surfaced as an internal error.
type Store struct {
	kv KV
}

// New wraps a validator KV handle.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// KV exposes the underlying handle for the consensus signature queries used
// by housekeeping.
func (s *Store) KV() KV {
	return s.kv
}

// GetRaw loads the bytes at addr. Missing and undeclared addresses both
// report absent.
func (s *Store) GetRaw(addr string) ([]byte, bool, error) {
	data, err := s.kv.Get(addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotAuthorized) {
			return nil, false, nil
		}
		return nil, false, txerr.Internalf("state get %s: %v", addr, err)
	}
	return data, true, nil
}

func (s *Store) getRecord(addr string, out interface{}) (bool, error) {
	data, ok, err := s.GetRaw(addr)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, txerr.Internalf("corrupt record at %s: %v", addr, err)
	}
	return true, nil
}

// GetByPrefix enumerates every record under prefix, sorted by address so the
// housekeeping sweeps stay deterministic across nodes.
func (s *Store) GetByPrefix(prefix string) ([]Entry, error) {
	entries, err := s.kv.GetByPrefix(prefix)
	if err != nil {
		return nil, txerr.Internalf("state scan %s: %v", prefix, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	return entries, nil
}

// GetWallet loads the wallet of a participant, treating a missing record as
// an empty wallet.
func (s *Store) GetWallet(sighash string) (*types.Wallet, error) {
	wallet := &types.Wallet{}
	ok, err := s.getRecord(address.ForKind(address.KindWallet, sighash), wallet)
	if err != nil {
		return nil, err
	}
	if !ok || wallet.Amount == nil {
		wallet.Amount = new(big.Int)
	}
	return wallet, nil
}

// GetAddress loads a registered settlement address record.
func (s *Store) GetAddress(id string) (*types.Address, bool, error) {
	rec := &types.Address{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetAskOrder loads an ask order record.
func (s *Store) GetAskOrder(id string) (*types.AskOrder, bool, error) {
	rec := &types.AskOrder{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetBidOrder loads a bid order record.
func (s *Store) GetBidOrder(id string) (*types.BidOrder, bool, error) {
	rec := &types.BidOrder{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetOffer loads an offer record.
func (s *Store) GetOffer(id string) (*types.Offer, bool, error) {
	rec := &types.Offer{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetDealOrder loads a deal order record.
func (s *Store) GetDealOrder(id string) (*types.DealOrder, bool, error) {
	rec := &types.DealOrder{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetRepaymentOrder loads a repayment order record.
func (s *Store) GetRepaymentOrder(id string) (*types.RepaymentOrder, bool, error) {
	rec := &types.RepaymentOrder{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// GetTransfer loads a transfer record.
func (s *Store) GetTransfer(id string) (*types.Transfer, bool, error) {
	rec := &types.Transfer{}
	ok, err := s.getRecord(id, rec)
	return rec, ok, err
}

// Has reports whether any record exists at addr.
func (s *Store) Has(addr string) (bool, error) {
	_, ok, err := s.GetRaw(addr)
	return ok, err
}
