// Package storage provides the key-value backends the daemon can run
// against: an in-memory store for tests and a persistent LevelDB store for
// standalone (validator-less) operation.
package storage

import (
	"errors"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"loanledger/core/state"
)

// ErrNoConsensus is returned by the signature queries of backends that have
// no consensus engine to ask.
var ErrNoConsensus = errors.New("storage: no consensus source attached")

// MemKV is an in-memory implementation of the validator KV interface. Beyond
// plain storage it can simulate the validator's authorization model and
// answer the housekeeping signature queries from fixtures.
type MemKV struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Declared, when non-nil, restricts Get to the declared input set the
	// way the validator does.
	declared map[string]struct{}

	signers  map[uint64]string
	forkSigs map[string][]string
}

// NewMemKV returns an empty in-memory store with no authorization
// restrictions.
func NewMemKV() *MemKV {
	return &MemKV{
		data:     make(map[string][]byte),
		signers:  make(map[uint64]string),
		forkSigs: make(map[string][]string),
	}
}

// Declare restricts subsequent Get calls to the given addresses, mimicking
// the validator's declared-inputs check. Passing nothing lifts the
// restriction.
func (m *MemKV) Declare(addrs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(addrs) == 0 {
		m.declared = nil
		return
	}
	m.declared = make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		m.declared[a] = struct{}{}
	}
}

// SetBlockSigner installs the fixture answer for SigByNum at height.
func (m *MemKV) SetBlockSigner(height uint64, pubKeyHex string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signers[height] = pubKeyHex
}

// SetRewardSignatures installs the fixture answer for RewardBlockSignatures
// keyed by the head block signature.
func (m *MemKV) SetRewardSignatures(headSig string, pubKeys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forkSigs[headSig] = append([]string(nil), pubKeys...)
}

func (m *MemKV) Get(addr string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.declared != nil {
		if _, ok := m.declared[addr]; !ok {
			return nil, state.ErrNotAuthorized
		}
	}
	data, ok := m.data[addr]
	if !ok {
		return nil, state.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemKV) Set(addr string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[addr] = append([]byte(nil), data...)
	return nil
}

func (m *MemKV) Delete(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, addr)
	return nil
}

func (m *MemKV) GetByPrefix(prefix string) ([]state.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []state.Entry
	for addr, data := range m.data {
		if strings.HasPrefix(addr, prefix) {
			entries = append(entries, state.Entry{Address: addr, Data: append([]byte(nil), data...)})
		}
	}
	return entries, nil
}

func (m *MemKV) SetMany(entries []state.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.data[e.Address] = append([]byte(nil), e.Data...)
	}
	return nil
}

func (m *MemKV) DeleteMany(addrs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range addrs {
		delete(m.data, a)
	}
	return nil
}

func (m *MemKV) SigByNum(height uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.signers[height]
	if !ok {
		return "", ErrNoConsensus
	}
	return sig, nil
}

func (m *MemKV) RewardBlockSignatures(headSig string, first, last uint64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sigs, ok := m.forkSigs[headSig]
	if !ok {
		return nil, ErrNoConsensus
	}
	return append([]string(nil), sigs...), nil
}

// Len reports the number of stored records.
func (m *MemKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// LevelDB is a persistent implementation of the validator KV interface used
// when the daemon runs standalone. The consensus signature queries are not
// answerable without a validator and report ErrNoConsensus.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying database handle.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

func (l *LevelDB) Get(addr string) ([]byte, error) {
	data, err := l.db.Get([]byte(addr), nil)
	if errors.Is(err, lderrors.ErrNotFound) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *LevelDB) Set(addr string, data []byte) error {
	return l.db.Put([]byte(addr), data, nil)
}

func (l *LevelDB) Delete(addr string) error {
	return l.db.Delete([]byte(addr), nil)
}

func (l *LevelDB) GetByPrefix(prefix string) ([]state.Entry, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var entries []state.Entry
	for iter.Next() {
		entries = append(entries, state.Entry{
			Address: string(iter.Key()),
			Data:    append([]byte(nil), iter.Value()...),
		})
	}
	return entries, iter.Error()
}

func (l *LevelDB) SetMany(entries []state.Entry) error {
	batch := new(leveldb.Batch)
	for _, e := range entries {
		batch.Put([]byte(e.Address), e.Data)
	}
	return l.db.Write(batch, nil)
}

func (l *LevelDB) DeleteMany(addrs []string) error {
	batch := new(leveldb.Batch)
	for _, a := range addrs {
		batch.Delete([]byte(a))
	}
	return l.db.Write(batch, nil)
}

func (l *LevelDB) SigByNum(uint64) (string, error) {
	return "", ErrNoConsensus
}

func (l *LevelDB) RewardBlockSignatures(string, uint64, uint64) ([]string, error) {
	return nil, ErrNoConsensus
}
