// Package nitro implements the bridge backend for Arbitrum-Nitro-style
// deployments. Deposits ride the inbox (retryable tickets for tokens);
// withdrawals need a single user-signed execution once the rollup confirms
// their block.
package nitro

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
	cfg *config.NitroConfig
	net *network
	l1  *ethclient.Client
	l2  *ethclient.Client

	l1Sender ichain.Sender
	l2Sender ichain.Sender
	gateway  *gateway

	// withdrawalStatus re-derives a withdrawal's phase from chain state.
	// Normally the gateway's lookup; a seam for tests.
	withdrawalStatus func(ctx context.Context, wd *withdrawal) (WithdrawalStatus, error)

	sink notify.Sink
	log  log15.Logger
}

var _ core.Adapter = &Adapter{}

func New(cfg *config.NitroConfig, logger log15.Logger, sink notify.Sink) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Membership is checked inside register: a second adapter for the same
	// chain pair reuses the existing descriptor instead of failing.
	net := networks.register(cfg)

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
		cfg:      cfg,
		net:      net,
		l1:       l1,
		l2:       l2,
		l1Sender: ichain.NewTxSender(l1, logger.New("layer", "l1")),
		l2Sender: ichain.NewTxSender(l2, logger.New("layer", "l2")),
		gateway:  newGateway(cfg, l1, l2, logger),
		sink:     sink,
		log:      logger,
	}
	a.withdrawalStatus = a.gateway.withdrawalStatus
	return a, nil
}

// Transfer broadcasts a deposit or withdrawal initiation; failures go to
// the notification sink only.
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
	if token.IsNative {
		input, err := inboxContract.Pack("depositEth")
		if err != nil {
			return nil, err
		}
		to := a.cfg.Inbox
		return a.l1Sender.Send(ctx, signer, &to, amount, input, 0)
	}
	if token.L1.Address == constant.ZeroAddress {
		return nil, errors.New(notify.MsgNoL1Addr)
	}

	from := signer.Address()
	maxGas, err := a.gateway.estimateDepositGas(ctx, from, token, amount)
	if err != nil {
		return nil, err
	}
	gasPriceBid, err := a.l2.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "l2 gas price")
	}
	fee, err := a.gateway.submissionFee(ctx, retryablePayloadLength)
	if err != nil {
		return nil, err
	}
	routerData, err := packRouterData(fee)
	if err != nil {
		return nil, err
	}
	input, err := l1RouterContract.Pack("outboundTransfer",
		token.L1.Address, from, amount, new(big.Int).SetUint64(maxGas), gasPriceBid, routerData)
	if err != nil {
		return nil, err
	}
	// ETH sent with the deposit covers the submission fee plus the ticket's
	// L2 gas allowance.
	value := new(big.Int).Add(fee, new(big.Int).Mul(gasPriceBid, new(big.Int).SetUint64(maxGas)))
	to := a.cfg.L1GatewayRouter
	return a.l1Sender.Send(ctx, signer, &to, value, input, maxGas)
}

// retryablePayloadLength bounds the gateway's finalize calldata when
// pricing the retryable submission.
const retryablePayloadLength = 512

func (a *Adapter) sendWithdrawal(ctx context.Context, amount *big.Int, signer core.Signer, token *config.Token) (*types.Transaction, error) {
	if token.IsNative {
		input, err := arbSysContract.Pack("withdrawEth", signer.Address())
		if err != nil {
			return nil, err
		}
		to := ArbSys
		return a.l2Sender.Send(ctx, signer, &to, amount, input, 0)
	}
	if token.L2.Address == constant.ZeroAddress {
		return nil, errors.New(notify.MsgNoL2Addr)
	}
	input, err := l2RouterContract.Pack("outboundTransfer",
		token.L1.Address, signer.Address(), amount, []byte{})
	if err != nil {
		return nil, err
	}
	to := a.cfg.L2GatewayRouter
	return a.l2Sender.Send(ctx, signer, &to, nil, input, 0)
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

// DepositsForAddress merges the two deposit sources native-first: the page
// fills with native entries, then token entries. Within each source entries
// are newest first. Statuses are only resolved for the entries that made the
// page; each one costs RPC round-trips.
func (a *Adapter) DepositsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]core.Message, error) {
	native, err := a.gateway.ethDeposits(ctx, address)
	if err != nil {
		return nil, err
	}
	var tokens []*deposit
	if !token.IsNative && token.L1.Address != constant.ZeroAddress {
		tokens, err = a.gateway.erc20Deposits(ctx, address, token)
		if err != nil {
			return nil, err
		}
	}

	nlo, nhi, tlo, thi := pageSlices(len(native), len(tokens), pageSize, offset)
	out := make([]core.Message, 0, pageSize)
	for _, dep := range native[nlo:nhi] {
		status, err := a.gateway.ethDepositStatus(ctx, dep)
		label := status.String()
		if err != nil {
			a.log.Warn("Deposit status failed", "tx", dep.txHash, "err", err)
			label = "Unknown"
		}
		out = append(out, a.depositMessage(dep, label))
	}
	for _, dep := range tokens[tlo:thi] {
		status, err := a.gateway.erc20DepositStatus(ctx, address, dep)
		label := status.String()
		if err != nil {
			a.log.Warn("Deposit status failed", "tx", dep.txHash, "err", err)
			label = "Unknown"
		}
		out = append(out, a.depositMessage(dep, label))
	}
	return out, nil
}

// WithdrawalsForAddress is the withdrawal counterpart of
// DepositsForAddress, with the same native-first merge.
func (a *Adapter) WithdrawalsForAddress(ctx context.Context, address common.Address, token *config.Token, pageSize, offset int) ([]core.Message, error) {
	native, err := a.gateway.nativeWithdrawals(ctx, address)
	if err != nil {
		return nil, err
	}
	var tokens []*withdrawal
	if !token.IsNative && token.L1.Address != constant.ZeroAddress {
		tokens, err = a.gateway.erc20Withdrawals(ctx, address, token)
		if err != nil {
			return nil, err
		}
	}

	nlo, nhi, tlo, thi := pageSlices(len(native), len(tokens), pageSize, offset)
	out := make([]core.Message, 0, pageSize)
	out = a.appendWithdrawalMessages(ctx, out, native[nlo:nhi])
	out = a.appendWithdrawalMessages(ctx, out, tokens[tlo:thi])
	return out, nil
}

func (a *Adapter) appendWithdrawalMessages(ctx context.Context, out []core.Message, wds []*withdrawal) []core.Message {
	for _, wd := range wds {
		status, err := a.withdrawalStatus(ctx, wd)
		label := status.String()
		if err != nil {
			a.log.Warn("Withdrawal status failed", "tx", wd.txHash, "err", err)
			label = "Unknown"
		}
		out = append(out, &message{
			adapter:  a,
			txHash:   wd.txHash,
			amount:   wd.amount,
			l1Token:  wd.l1Token,
			block:    wd.block,
			label:    label,
			wdStatus: status,
			wd:       wd,
		})
	}
	return out
}

func (a *Adapter) depositMessage(dep *deposit, label string) *message {
	return &message{
		adapter: a,
		txHash:  dep.txHash,
		amount:  dep.amount,
		l1Token: dep.l1Token,
		block:   dep.block,
		label:   label,
	}
}

// pageSlices windows the two history sources native-first: the page fills
// from the native list, then tops up from the token list at the same offset.
// This is not a chronological interleave; the two sources are sliced
// independently.
func pageSlices(nativeLen, tokenLen, pageSize, offset int) (nlo, nhi, tlo, thi int) {
	nlo, nhi = ichain.PageBounds(nativeLen, pageSize, offset)
	if remaining := pageSize - (nhi - nlo); remaining > 0 {
		tlo, thi = ichain.PageBounds(tokenLen, remaining, offset)
	}
	return nlo, nhi, tlo, thi
}

func (a *Adapter) L1BridgeAddress(token *config.Token) common.Address {
	if token.IsNative {
		return a.cfg.Inbox
	}
	return a.cfg.L1ERC20Gateway
}

func (a *Adapter) IsReadyForFinalization(m core.Message) bool {
	return m.Status() == ConfirmedWithdrawal.String()
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

func (a *Adapter) WithdrawConfirmedStatus() string     { return ConfirmedWithdrawal.String() }
func (a *Adapter) DepositCreationFailedStatus() string { return DepositFailed.String() }
func (a *Adapter) DepositRedeemedStatus() string       { return Deposited.String() }
func (a *Adapter) DepositDepositedStatus() string      { return EthDeposited.String() }
