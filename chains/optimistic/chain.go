// Package optimistic implements the bridge backend for optimistic-rollup
// deployments. Deposits relay automatically; withdrawals move through an
// explicit prove / challenge-period / finalize lifecycle driven from L1.
package optimistic

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	ichain "github.com/constellation-labs/bridgeclient/internal/chain"
	"github.com/constellation-labs/bridgeclient/internal/constant"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
)

type Adapter struct {
	cfg *config.OptimisticConfig
	l1  *ethclient.Client
	l2  *ethclient.Client

	l1Sender  ichain.Sender
	l2Sender  ichain.Sender
	messenger *messenger

	// withdrawalStatus re-derives a withdrawal's phase from chain state.
	// Normally the messenger's lookup; a seam for tests.
	withdrawalStatus func(ctx context.Context, wd *withdrawal) (Status, error)

	sink notify.Sink
	log  log15.Logger
}

var _ core.Adapter = &Adapter{}

func New(cfg *config.OptimisticConfig, logger log15.Logger, sink notify.Sink) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l1, err := ethclient.Dial(cfg.L1RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial l1")
	}
	l2, err := ethclient.Dial(cfg.L2RPCURL)
	if err != nil {
		l1.Close()
		return nil, errors.Wrap(err, "dial l2")
	}
	a := &Adapter{
		cfg:       cfg,
		l1:        l1,
		l2:        l2,
		l1Sender:  ichain.NewTxSender(l1, logger.New("layer", "l1")),
		l2Sender:  ichain.NewTxSender(l2, logger.New("layer", "l2")),
		messenger: newMessenger(cfg, l1, l2, logger),
		sink:      sink,
		log:       logger,
	}
	a.withdrawalStatus = a.messenger.withdrawalStatus
	return a, nil
}

// Transfer broadcasts a deposit or withdrawal initiation. All failures are
// routed to the notification sink; the call itself never fails.
func (a *Adapter) Transfer(ctx context.Context, amount *big.Int, signer core.Signer, token *config.Token, direction core.TransferDirection) {
	if amount == nil || amount.Sign() <= 0 {
		a.sink.Notify(notify.Notification{Severity: notify.Warn, Message: notify.MsgNonZero})
		return
	}
	if signer == nil {
		a.sink.Notify(notify.Notification{Severity: notify.Warn, Message: notify.MsgSig})
		return
	}
	if err := a.checkNetwork(ctx, signer, direction.IsDeposit()); err != nil {
		a.log.Warn("Transfer rejected", "direction", direction, "err", err)
		a.sink.Notify(notify.Notification{Severity: notify.Warn, Message: err.Error()})
		return
	}

	var (
		tx       *types.Transaction
		explorer string
		sender   ichain.Sender
		err      error
	)
	if direction.IsDeposit() {
		tx, err = a.sendDeposit(ctx, amount, signer, token)
		explorer, sender = a.cfg.L1ExplorerURL, a.l1Sender
	} else {
		tx, err = a.sendWithdrawal(ctx, amount, signer, token)
		explorer, sender = a.cfg.L2ExplorerURL, a.l2Sender
	}
	if err != nil {
		a.log.Error("Transfer broadcast failed", "direction", direction, "err", err)
		a.sink.Notify(notify.Failed())
		return
	}
	a.sink.Notify(notify.Submitted(tx.Hash(), explorer))

	receipt, err := sender.WaitMined(ctx, tx.Hash())
	if err != nil {
		a.log.Error("Transfer confirmation timed out", "tx", tx.Hash(), "err", err)
		a.sink.Notify(notify.Failed())
		return
	}
	if receipt.Status == constant.ReceiptStatusSuccessful {
		a.sink.Notify(notify.Confirmed())
	} else {
		a.sink.Notify(notify.Failed())
	}
}

func (a *Adapter) sendDeposit(ctx context.Context, amount *big.Int, signer core.Signer, token *config.Token) (*types.Transaction, error) {
	to := a.cfg.L1StandardBridge
	if token.IsNative {
		input, err := l1BridgeContract.Pack("depositETH", uint32(receiveDefaultGasLimit), []byte{})
		if err != nil {
			return nil, err
		}
		return a.l1Sender.Send(ctx, signer, &to, amount, input, 0)
	}
	if token.L1.Address == constant.ZeroAddress {
		return nil, errors.New(notify.MsgNoL1Addr)
	}
	input, err := l1BridgeContract.Pack("depositERC20", token.L1.Address, token.L2.Address, amount, uint32(receiveDefaultGasLimit), []byte{})
	if err != nil {
		return nil, err
	}
	return a.l1Sender.Send(ctx, signer, &to, nil, input, 0)
}

func (a *Adapter) sendWithdrawal(ctx context.Context, amount *big.Int, signer core.Signer, token *config.Token) (*types.Transaction, error) {
	to := L2StandardBridge
	l2Token := token.L2.Address
	var value *big.Int
	if token.IsNative {
		l2Token = LegacyERC20ETH
		value = amount
	} else if l2Token == constant.ZeroAddress {
		return nil, errors.New(notify.MsgNoL2Addr)
	}
	input, err := l2BridgeContract.Pack("withdraw", l2Token, amount, uint32(receiveDefaultGasLimit), []byte{})
	if err != nil {
		return nil, err
	}
	return a.l2Sender.Send(ctx, signer, &to, value, input, 0)
}

func (a *Adapter) checkNetwork(ctx context.Context, signer core.Signer, isDeposit bool) error {
	chainID, err := signer.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "signer chain id")
	}
	want := a.cfg.L2ChainID
	if isDeposit {
		want = a.cfg.L1ChainID
	}
	if chainID.Uint64() != want {
		return constant.ErrWrongNetwork
	}
	return nil
}

// DepositsForAddress returns one page of the address's deposits, newest
// first. A message whose lookup fails is kept with an unknown status rather
// than failing the page.
func (a *Adapter) DepositsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]core.Message, error) {
	logs, err := a.messenger.depositLogs(ctx, address, token)
	if err != nil {
		return nil, err
	}
	lo, hi := ichain.PageBounds(len(logs), pageSize, offset)
	out := make([]core.Message, 0, hi-lo)
	for _, lg := range logs[lo:hi] {
		dep, err := a.messenger.depositFromLog(ctx, lg, token)
		if err != nil {
			a.log.Warn("Deposit lookup failed", "tx", lg.TxHash, "err", err)
			out = append(out, a.unknownMessage(lg))
			continue
		}
		status, err := a.messenger.depositStatus(ctx, dep.msgHash)
		if err != nil {
			a.log.Warn("Deposit status failed", "tx", lg.TxHash, "err", err)
			status = StatusUnknown
		}
		out = append(out, &message{
			adapter: a,
			txHash:  dep.txHash,
			amount:  dep.amount,
			l1Token: dep.l1Token,
			block:   dep.block,
			status:  status,
		})
	}
	return out, nil
}

// WithdrawalsForAddress is the withdrawal counterpart of
// DepositsForAddress.
func (a *Adapter) WithdrawalsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]core.Message, error) {
	logs, err := a.messenger.withdrawalLogs(ctx, address, token)
	if err != nil {
		return nil, err
	}
	lo, hi := ichain.PageBounds(len(logs), pageSize, offset)
	out := make([]core.Message, 0, hi-lo)
	for _, lg := range logs[lo:hi] {
		wd, err := a.messenger.withdrawalFromLog(ctx, lg, token)
		if err != nil {
			a.log.Warn("Withdrawal lookup failed", "tx", lg.TxHash, "err", err)
			out = append(out, a.unknownMessage(lg))
			continue
		}
		status, err := a.withdrawalStatus(ctx, wd)
		if err != nil {
			a.log.Warn("Withdrawal status failed", "tx", lg.TxHash, "err", err)
			status = StatusUnknown
		}
		out = append(out, &message{
			adapter: a,
			txHash:  wd.txHash,
			amount:  wd.amount,
			l1Token: wd.l1Token,
			block:   wd.block,
			status:  status,
			wd:      wd,
		})
	}
	return out, nil
}

func (a *Adapter) unknownMessage(lg types.Log) *message {
	return &message{
		adapter: a,
		txHash:  lg.TxHash,
		block:   core.BlockInfo{Number: new(big.Int).SetUint64(lg.BlockNumber), Hash: lg.BlockHash},
		status:  StatusUnknown,
	}
}

func (a *Adapter) L1BridgeAddress(token *config.Token) common.Address {
	return a.cfg.L1StandardBridge
}

func (a *Adapter) IsReadyForFinalization(m core.Message) bool {
	return m.Status() == ReadyForRelay.String()
}

func (a *Adapter) FinalizeWithdrawal(ctx context.Context, signer core.Signer, m core.Message, token *config.Token) error {
	if !a.IsReadyForFinalization(m) {
		return constant.ErrNotReadyForRelay
	}
	msg, ok := m.(*message)
	if !ok {
		return constant.ErrNotReadyForRelay
	}
	return msg.TakeNextStep(ctx, signer, token, false)
}

func (a *Adapter) WithdrawConfirmedStatus() string     { return ReadyForRelay.String() }
func (a *Adapter) DepositCreationFailedStatus() string { return FailedDeposit.String() }
func (a *Adapter) DepositRedeemedStatus() string       { return Finalized.String() }
func (a *Adapter) DepositDepositedStatus() string      { return Finalized.String() }
