package optimistic

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/constant"
)

// message is one entry of the transfer history. Status is resolved at query
// time for display; TakeNextStep re-derives it from chain state before
// broadcasting anything.
type message struct {
	adapter *Adapter

	txHash  common.Hash
	amount  *big.Int
	l1Token common.Address
	block   core.BlockInfo
	status  Status

	wd *withdrawal // nil for deposits
}

var _ core.Message = &message{}

func (m *message) Hash() common.Hash       { return m.txHash }
func (m *message) Amount() *big.Int        { return m.amount }
func (m *message) L1Token() common.Address { return m.l1Token }
func (m *message) Block() core.BlockInfo   { return m.block }
func (m *message) Status() string          { return m.status.String() }

func (m *message) NextStepName(isDeposit bool) (string, bool) {
	return m.status.NextAction(isDeposit)
}

// TakeNextStep broadcasts the prove or finalize transaction on L1. Both
// phases are L1-side, so the signer must be bound to the L1 chain.
func (m *message) TakeNextStep(ctx context.Context, signer core.Signer, token *config.Token, isDeposit bool) error {
	step, ok := m.status.NextAction(isDeposit)
	if !ok {
		return constant.ErrNotActionable
	}
	if signer == nil {
		return constant.ErrMissingSigner
	}
	chainID, err := signer.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "signer chain id")
	}
	if chainID.Uint64() != m.adapter.cfg.L1ChainID {
		return constant.ErrWrongNetwork
	}
	if m.wd == nil {
		return constant.ErrNotActionable
	}
	if !m.adapter.cfg.Bedrock() {
		// Pre-bedrock relays need an external relayer; nothing to broadcast.
		return constant.ErrPhaseNotReady
	}

	// The frozen status may be stale by the time the user acts on it; only
	// the current on-chain phase decides whether the step can succeed.
	current, err := m.adapter.withdrawalStatus(ctx, m.wd)
	if err != nil {
		return errors.Wrap(err, "current status")
	}
	required := ReadyToProve
	if step == core.StepFinalize {
		required = ReadyForRelay
	}
	if current != required {
		return constant.ErrPhaseNotReady
	}

	var input []byte
	switch step {
	case core.StepProve:
		input, err = m.adapter.messenger.proveInput(ctx, m.wd)
	case core.StepFinalize:
		input, err = m.adapter.messenger.finalizeInput(m.wd)
	}
	if err != nil {
		return errors.Wrapf(err, "%s input", step)
	}
	to := m.adapter.cfg.OptimismPortal
	tx, err := m.adapter.l1Sender.Send(ctx, signer, &to, nil, input, 0)
	if err != nil {
		return errors.Wrapf(err, "%s withdrawal %s", step, m.txHash.Hex())
	}
	m.adapter.log.Info("Withdrawal step broadcast", "step", step, "withdrawal", m.txHash, "tx", tx.Hash())
	return nil
}
