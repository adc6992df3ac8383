package nitro

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/constant"
)

// message is one history entry. Deposits carry no withdrawal record and are
// never actionable; withdrawals hold the L2ToL1Tx fields the outbox
// execution replays.
type message struct {
	adapter *Adapter

	txHash  common.Hash
	amount  *big.Int
	l1Token common.Address
	block   core.BlockInfo
	label   string

	wdStatus WithdrawalStatus
	wd       *withdrawal
}

var _ core.Message = &message{}

func (m *message) Hash() common.Hash       { return m.txHash }
func (m *message) Amount() *big.Int        { return m.amount }
func (m *message) L1Token() common.Address { return m.l1Token }
func (m *message) Block() core.BlockInfo   { return m.block }
func (m *message) Status() string          { return m.label }

func (m *message) NextStepName(isDeposit bool) (string, bool) {
	if m.wd == nil {
		return "", false
	}
	return m.wdStatus.NextAction(isDeposit)
}

// TakeNextStep executes the withdrawal against the outbox on L1.
func (m *message) TakeNextStep(ctx context.Context, signer core.Signer, token *config.Token, isDeposit bool) error {
	step, ok := m.NextStepName(isDeposit)
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

	// The frozen status may be stale; execution is only valid while the
	// withdrawal's block is confirmed and the output unspent.
	current, err := m.adapter.withdrawalStatus(ctx, m.wd)
	if err != nil {
		return errors.Wrap(err, "current status")
	}
	if current != ConfirmedWithdrawal {
		return constant.ErrPhaseNotReady
	}

	input, err := m.adapter.gateway.executeInput(ctx, m.wd)
	if err != nil {
		return errors.Wrapf(err, "%s input", step)
	}
	to := m.adapter.cfg.Outbox
	tx, err := m.adapter.l1Sender.Send(ctx, signer, &to, nil, input, 0)
	if err != nil {
		return errors.Wrapf(err, "execute withdrawal %s", m.txHash.Hex())
	}
	m.adapter.log.Info("Withdrawal execution broadcast", "withdrawal", m.txHash, "tx", tx.Hash())
	return nil
}
