// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is supplied by the wallet-connection layer. It reports the account
// address and currently-connected chain, and signs transactions. Adapters
// build and broadcast transactions themselves; the signer only signs.
type Signer interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}
