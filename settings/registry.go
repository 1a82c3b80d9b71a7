// Package settings caches the on-chain configuration records the processor
// consults. A single background refresher re-reads the settings namespace on
// a fixed cadence; readers never block the refresher.
package settings

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"loanledger/core/address"
	"loanledger/core/state"
	"loanledger/core/types"
)

// Setting keys recognized by the processor. The names are part of the wire
// contract with the network's settings transaction family.
const (
	// KeyGatewaySighash authorizes a sighash to run the housekeeping GC
	// pass.
	KeyGatewaySighash = "sawtooth.gateway.sighash"
	// KeyExternalGateway is the optional fallback endpoint for transfer
	// verification.
	KeyExternalGateway = "sawtooth.validator.gateway"
	// KeyUpdate1 gates the fork-aware housekeeping reward path.
	KeyUpdate1 = "sawtooth.validator.update1"
)

// RefreshInterval is the cadence of the background refresher.
const RefreshInterval = 6 * time.Second

// Reader is the query side of the registry. The executor depends only on
// this so tests can substitute a fixed map.
type Reader interface {
	Get(key string) (string, bool)
}

// Registry is a process-wide mapping from setting key to value, refreshed
// from the KV store under the settings namespace.
type Registry struct {
	mu     sync.RWMutex
	values map[string]string

	kv  state.KV
	log *slog.Logger

	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

// NewRegistry builds an empty registry backed by the given KV handle.
func NewRegistry(kv state.KV, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		values: make(map[string]string),
		kv:     kv,
		log:    log,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Get returns the cached value for key.
func (r *Registry) Get(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Put upserts a value directly. Used by tests and by the refresher.
func (r *Registry) Put(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Refresh enumerates the settings namespace once and upserts every observed
// entry. Unparseable records are skipped, not fatal: a single corrupt
// setting must not take the cache down.
func (r *Registry) Refresh() error {
	entries, err := r.kv.GetByPrefix(address.SettingsNamespace)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		var setting types.Setting
		if err := rlp.DecodeBytes(entry.Data, &setting); err != nil {
			r.log.Warn("skipping unparseable setting record",
				slog.String("address", entry.Address), slog.Any("error", err))
			continue
		}
		for _, kv := range setting.Entries {
			r.Put(kv.Key, kv.Value)
		}
	}
	return nil
}

// Start launches the background refresher. It performs an immediate refresh
// and then wakes every RefreshInterval until Stop is called. Calling Start
// twice is a no-op.
func (r *Registry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()
	go func() {
		defer close(r.done)
		if err := r.Refresh(); err != nil {
			r.log.Warn("settings refresh failed", slog.Any("error", err))
		}
		ticker := time.NewTicker(RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(); err != nil {
					r.log.Warn("settings refresh failed", slog.Any("error", err))
				}
			case <-r.quit:
				return
			}
		}
	}()
}

// Stop signals the refresher and waits for it to exit. Stopping a registry
// that was never started returns immediately.
func (r *Registry) Stop() {
	r.once.Do(func() { close(r.quit) })
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()
	if !started {
		return
	}
	<-r.done
}

// Static is a fixed Reader for tests and for running without a settings
// namespace.
type Static map[string]string

// Get returns the mapped value for key.
func (s Static) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}
