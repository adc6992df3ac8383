package nitro

import (
	"fmt"
	"sync"

	"github.com/constellation-labs/bridgeclient/config"
)

// registry is the process-wide record of nitro network descriptors, keyed by
// chain-id pair. Registering the same pair twice is an error, so adapters
// check membership before registering. A session registers at most one pair;
// the mutex only covers the unlikely concurrent-construction case.
type registry struct {
	mu    sync.Mutex
	pairs map[networkKey]*network
}

type networkKey struct {
	l1 uint64
	l2 uint64
}

// network is the typed L1/L2 descriptor built from the tenant's contract
// addresses.
type network struct {
	cfg *config.NitroConfig
}

var networks = &registry{pairs: make(map[networkKey]*network)}

// register stores the descriptor for the pair unless one is already present,
// in which case the existing descriptor is reused.
func (r *registry) register(cfg *config.NitroConfig) *network {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := networkKey{l1: cfg.L1ChainID, l2: cfg.L2ChainID}
	if n, ok := r.pairs[key]; ok {
		return n
	}
	n := &network{cfg: cfg}
	r.pairs[key] = n
	return n
}

// registerStrict is the raw registration primitive: it fails on a duplicate
// pair instead of reusing it.
func (r *registry) registerStrict(cfg *config.NitroConfig) (*network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := networkKey{l1: cfg.L1ChainID, l2: cfg.L2ChainID}
	if _, ok := r.pairs[key]; ok {
		return nil, fmt.Errorf("network pair %d/%d already registered", key.l1, key.l2)
	}
	n := &network{cfg: cfg}
	r.pairs[key] = n
	return n, nil
}
