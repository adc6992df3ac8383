// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package keystore

import (
	"context"
	"math/big"

	"github.com/ChainSafe/chainbridge-utils/crypto/secp256k1"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/constellation-labs/bridgeclient/core"
)

// Signer binds a decrypted keypair to the chain the CLI session is talking
// to. A local key has no wallet-style "connected network", so the chain id
// is fixed at construction to the chain of the selected direction.
type Signer struct {
	kp      *secp256k1.Keypair
	chainID *big.Int
}

var _ core.Signer = &Signer{}

func NewSigner(kp *secp256k1.Keypair, chainID *big.Int) *Signer {
	return &Signer{kp: kp, chainID: chainID}
}

func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.kp.Address())
}

func (s *Signer) ChainID(ctx context.Context) (*big.Int, error) {
	return s.chainID, nil
}

func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.kp.PrivateKey())
}
