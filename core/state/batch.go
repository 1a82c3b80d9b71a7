package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"loanledger/core/txerr"
)

// Batch accumulates the state mutations of one transaction. Nothing is
// observable until Commit, which is the commit point of the transaction:
// one SetMany and, when needed, one DeleteMany.
type Batch struct {
	sets    []Entry
	deletes []string
}

// NewBatch returns an empty mutation accumulator.
func NewBatch() *Batch {
	return &Batch{}
}

// Set serializes value with RLP and schedules a write at addr. A later Set of
// the same address within the batch supersedes the earlier one.
func (b *Batch) Set(addr string, value interface{}) error {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return txerr.Internalf("encode record at %s: %v", addr, err)
	}
	for i := range b.sets {
		if b.sets[i].Address == addr {
			b.sets[i].Data = data
			return nil
		}
	}
	b.sets = append(b.sets, Entry{Address: addr, Data: data})
	return nil
}

// SetRaw schedules a write of pre-encoded bytes at addr.
func (b *Batch) SetRaw(addr string, data []byte) {
	for i := range b.sets {
		if b.sets[i].Address == addr {
			b.sets[i].Data = data
			return
		}
	}
	b.sets = append(b.sets, Entry{Address: addr, Data: data})
}

// Delete schedules the removal of the record at addr.
func (b *Batch) Delete(addr string) {
	b.deletes = append(b.deletes, addr)
}

// Len reports the number of scheduled mutations.
func (b *Batch) Len() int {
	return len(b.sets) + len(b.deletes)
}

// Commit applies the accumulated mutations through the KV handle.
func (b *Batch) Commit(s *Store) error {
	if len(b.sets) > 0 {
		if err := s.kv.SetMany(b.sets); err != nil {
			return txerr.Internalf("state set_many: %v", err)
		}
	}
	if len(b.deletes) > 0 {
		if err := s.kv.DeleteMany(b.deletes); err != nil {
			return txerr.Internalf("state delete_many: %v", err)
		}
	}
	return nil
}
