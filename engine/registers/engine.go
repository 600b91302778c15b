// Package registers implements the register storage engine: it validates
// signed commands, reconstructs register state from per-address op-logs,
// serves policy-checked read queries, and exchanges op-logs with peer
// replicas.
package registers

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/module"
	"github.com/sectionnet/register-store/storage"
)

// Config holds the tunables of the engine.
type Config struct {
	// CacheSize bounds the number of cached register projections.
	CacheSize uint
}

// OptionFunc adjusts the engine configuration.
type OptionFunc func(*Config)

// WithCacheSize overrides the projection cache capacity.
func WithCacheSize(size uint) OptionFunc {
	return func(cfg *Config) {
		cfg.CacheSize = size
	}
}

// Engine orchestrates the op-log store and the register state type. All
// mutations of one address are serialized through a per-address lock;
// reads of the same address proceed concurrently.
type Engine struct {
	log     zerolog.Logger
	metrics module.RegisterStoreMetrics
	logs    storage.OpLogs
	locks   *addressLocks
	cache   *projectionCache
}

// New creates a register storage engine on top of the given op-log store.
func New(log zerolog.Logger, metrics module.RegisterStoreMetrics, logs storage.OpLogs, options ...OptionFunc) *Engine {

	cfg := Config{
		CacheSize: 1000,
	}
	for _, option := range options {
		option(&cfg)
	}

	e := &Engine{
		log:     log.With().Str("engine", "registers").Logger(),
		metrics: metrics,
		logs:    logs,
		locks:   newAddressLocks(),
		cache:   newProjectionCache(metrics, cfg.CacheSize),
	}

	return e
}

// Addresses enumerates every register address holding a log on this
// node. Used when offering data to peers during anti-entropy.
func (e *Engine) Addresses() ([]register.Address, error) {
	addrs, err := e.logs.Addresses()
	if err != nil {
		return nil, fmt.Errorf("could not list addresses: %w", err)
	}
	return addrs, nil
}
