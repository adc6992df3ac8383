// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

// Package chains selects the backend adapter matching the tenant's bridge
// configuration. Exactly one adapter is created per session.
package chains

import (
	"fmt"

	"github.com/ChainSafe/log15"

	"github.com/constellation-labs/bridgeclient/chains/nitro"
	"github.com/constellation-labs/bridgeclient/chains/optimistic"
	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
)

// Create builds the adapter for the configured bridge type.
func Create(cfg *config.BridgeConfig, logger log15.Logger, sink notify.Sink) (core.Adapter, error) {
	switch cfg.Type {
	case config.Optimistic:
		return optimistic.New(cfg.Optimistic, logger.New("chain", "optimistic"), sink)
	case config.Nitro:
		return nitro.New(cfg.Nitro, logger.New("chain", "nitro"), sink)
	}
	return nil, fmt.Errorf("unknown bridge type %q", cfg.Type)
}
