// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/constellation-labs/bridgeclient/config"
)

// Step names returned by Message.NextStepName.
const (
	StepProve    = "prove"
	StepFinalize = "finalize"
)

// BlockInfo is the originating block of a bridge message.
type BlockInfo struct {
	Number *big.Int
	Hash   common.Hash
	Time   uint64
}

// Message is one historical or in-flight bridge transfer. Values are owned
// by the adapter that produced them and are reconstructed fresh on every
// query; status is derived from chain state, never cached.
type Message interface {
	// Hash is the transaction id of the initiating transaction.
	Hash() common.Hash
	// Amount is the fixed-point integer transfer amount.
	Amount() *big.Int
	// L1Token is the source-chain token address (zero for the native asset).
	L1Token() common.Address
	// Block is the originating block.
	Block() BlockInfo
	// Status is the backend's canonical status label.
	Status() string

	// NextStepName names the next user-triggerable action ("prove" or
	// "finalize"), or reports false when the current status requires none.
	NextStepName(isDeposit bool) (string, bool)

	// TakeNextStep executes the next phase transition and returns once its
	// transaction has been broadcast; it does not wait for confirmation.
	// Fails with ErrNotActionable when no step is due and ErrWrongNetwork
	// when the signer's chain does not match the step's chain.
	TakeNextStep(ctx context.Context, signer Signer, token *config.Token, isDeposit bool) error
}
