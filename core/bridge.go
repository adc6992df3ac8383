// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

// Package core defines the contracts shared by the two bridge backends and
// consumed by the orchestration layer: the adapter, the message model and
// the signer abstraction. Backends live under chains/ and are selected once
// per session from the bridge configuration.
package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/constellation-labs/bridgeclient/config"
)

// TransferDirection distinguishes L1→L2 deposits from L2→L1 withdrawals.
type TransferDirection int

const (
	Deposit TransferDirection = iota
	Withdraw
)

func (d TransferDirection) String() string {
	if d == Deposit {
		return "deposit"
	}
	return "withdraw"
}

// IsDeposit is a convenience for the widespread isDeposit bool plumbing.
func (d TransferDirection) IsDeposit() bool { return d == Deposit }

// Adapter is the capability surface of one bridge backend. Implementations
// are stateless with respect to transfers: every query recomputes message
// state from chain truth.
type Adapter interface {
	// Transfer broadcasts a deposit or withdrawal-initiation transaction.
	// It never returns an error: progress and failure are reported through
	// the notification sink only, so a rejected signature or a reverted
	// transaction cannot crash the calling context.
	Transfer(ctx context.Context, amount *big.Int, signer Signer, token *config.Token, direction TransferDirection)

	// DepositsForAddress returns one page of the user's deposits, newest
	// first. Offset/pageSize slice the full newest-first event stream.
	DepositsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]Message, error)

	// WithdrawalsForAddress is the withdrawal counterpart of
	// DepositsForAddress.
	WithdrawalsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]Message, error)

	// L1BridgeAddress is the contract a token approval must target before a
	// non-native transfer.
	L1BridgeAddress(token *config.Token) common.Address

	// IsReadyForFinalization reports whether the message's current status
	// permits the L1 finalization step.
	IsReadyForFinalization(m Message) bool

	// FinalizeWithdrawal broadcasts the L1-side finalization transaction.
	// Returns ErrNotReadyForRelay when the message is not at the
	// finalization-eligible status.
	FinalizeWithdrawal(ctx context.Context, signer Signer, m Message, token *config.Token) error

	// Canonical status labels used by the UI layer for guard checks.
	WithdrawConfirmedStatus() string
	DepositCreationFailedStatus() string
	DepositRedeemedStatus() string
	DepositDepositedStatus() string
}
