// Package state adapts the validator's key/value interface into typed loads
// and a per-transaction mutation accumulator. All record (de)serialization
// happens here.
package state

import "errors"

// Entry is a single address/value pair in the validator's store.
type Entry struct {
	Address string
	Data    []byte
}

// Sentinel errors a KV implementation may return from Get. Anything else is
// treated as an environmental failure.
var (
	// ErrNotFound reports that no record exists at the address.
	ErrNotFound = errors.New("state: not found")
	// ErrNotAuthorized reports that the address was not declared as an
	// input of the executing transaction.
	ErrNotAuthorized = errors.New("state: not authorized")
)

// KV is the validator-provided state interface consumed by the processor.
// The two signature queries are used only by the housekeeping reward pass.
type KV interface {
	Get(addr string) ([]byte, error)
	Set(addr string, data []byte) error
	Delete(addr string) error
	GetByPrefix(prefix string) ([]Entry, error)
	SetMany(entries []Entry) error
	DeleteMany(addrs []string) error

	// SigByNum returns the hex public key of the signer of the block at
	// the given height on the main chain.
	SigByNum(height uint64) (string, error)
	// RewardBlockSignatures returns the signer public keys for the blocks
	// in [first, last] on the fork identified by the head block signature.
	RewardBlockSignatures(headSig string, first, last uint64) ([]string, error)
}
