// Package transfer drives a bridge transfer from user intent to broadcast:
// wallet connection, network switching, token approval and finally the
// adapter dispatch. It owns no chain protocol knowledge; everything
// protocol-shaped lives behind the adapter.
package transfer

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/constant"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
	"github.com/constellation-labs/bridgeclient/pkg/poll"
)

// WalletState is derived fresh on every evaluation from the signer and its
// reported chain.
type WalletState int

const (
	Disconnected WalletState = iota
	IncorrectNetwork
	Connected
)

func (s WalletState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case IncorrectNetwork:
		return "incorrect network"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Button labels, in evaluation priority order.
const (
	LabelConnectWallet       = "Connect Wallet"
	LabelSwitchNetwork       = "Switch Network"
	LabelFetchingBalance     = "Fetching Balance..."
	LabelInsufficientBalance = "Insufficient Balance"
	LabelApprove             = "Approve"
	LabelDeposit             = "Deposit"
	LabelWithdraw            = "Withdraw"
)

// Connector establishes a signer scoped to a chain. Supplied by the
// embedding wallet layer.
type Connector interface {
	Connect(ctx context.Context, chainID uint64) (core.Signer, error)
}

// NetworkSwitcher asks the wallet layer to move the signer to a chain.
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, chainID uint64) error
}

// Session is the mutable per-user transfer state: the connected signer and
// whether the selected token has a confirmed approval.
type Session struct {
	Signer   core.Signer
	Approved bool
}

type Orchestrator struct {
	adapter   core.Adapter
	connector Connector
	switcher  NetworkSwitcher
	approver  approver
	sink      notify.Sink
	log       log15.Logger
}

func New(adapter core.Adapter, connector Connector, switcher NetworkSwitcher, sink notify.Sink, logger log15.Logger) *Orchestrator {
	return &Orchestrator{
		adapter:   adapter,
		connector: connector,
		switcher:  switcher,
		approver:  &rpcApprover{log: logger},
		sink:      sink,
		log:       logger,
	}
}

// RequiredChainID is the chain the signer must be on for the direction:
// deposits sign on L1, withdrawals on L2.
func RequiredChainID(token *config.Token, direction core.TransferDirection) uint64 {
	return token.Side(direction.IsDeposit()).ChainID
}

// DeriveWalletState classifies the signer against the required chain. An
// unreadable chain id counts as disconnected; the connect flow resolves it.
func DeriveWalletState(ctx context.Context, signer core.Signer, requiredChainID uint64) WalletState {
	if signer == nil {
		return Disconnected
	}
	chainID, err := signer.ChainID(ctx)
	if err != nil {
		return Disconnected
	}
	if chainID.Uint64() != requiredChainID {
		return IncorrectNetwork
	}
	return Connected
}

// ButtonLabel is a pure function of the evaluated state, in fixed priority
// order. A nil balance means the balance query has not resolved yet.
func ButtonLabel(state WalletState, amount, balance *big.Int, approved bool, needsApproval bool, direction core.TransferDirection) string {
	switch state {
	case Disconnected:
		return LabelConnectWallet
	case IncorrectNetwork:
		return LabelSwitchNetwork
	}
	if balance == nil {
		return LabelFetchingBalance
	}
	if amount != nil && amount.Cmp(balance) > 0 {
		return LabelInsufficientBalance
	}
	if needsApproval && !approved {
		return LabelApprove
	}
	if direction.IsDeposit() {
		return LabelDeposit
	}
	return LabelWithdraw
}

// Advance performs the next step the session needs and returns. Each call
// maps to one user button press: connect, switch, approve, or transfer.
func (o *Orchestrator) Advance(ctx context.Context, s *Session, token *config.Token, amount *big.Int, direction core.TransferDirection) error {
	if amount == nil || amount.Sign() <= 0 {
		return constant.ErrInvalidAmount
	}
	required := RequiredChainID(token, direction)
	switch DeriveWalletState(ctx, s.Signer, required) {
	case Disconnected:
		signer, err := o.connector.Connect(ctx, required)
		if err != nil {
			return errors.Wrap(err, "connect wallet")
		}
		s.Signer = signer
		return nil
	case IncorrectNetwork:
		return o.switcher.SwitchNetwork(ctx, required)
	}

	if direction.IsDeposit() && !token.IsNative && !s.Approved {
		approved, err := o.ensureApproved(ctx, s, token, amount)
		if err != nil {
			return err
		}
		if !approved {
			// Approval broadcast this press; transfer on the next one.
			return nil
		}
	}

	o.adapter.Transfer(ctx, amount, s.Signer, token, direction)
	return nil
}

// ensureApproved reports whether the allowance already covers the amount.
// When it does not, it submits an approval and marks the session approved
// only once the approval has at least one confirmation.
func (o *Orchestrator) ensureApproved(ctx context.Context, s *Session, token *config.Token, amount *big.Int) (bool, error) {
	spender := o.adapter.L1BridgeAddress(token)
	owner := s.Signer.Address()

	allowance, err := o.approver.Allowance(ctx, token, owner, spender)
	if err != nil {
		return false, errors.Wrap(err, "allowance")
	}
	if allowance.Cmp(amount) >= 0 {
		s.Approved = true
		return true, nil
	}

	receipt, err := o.approver.Approve(ctx, s.Signer, token, spender)
	if err != nil {
		o.sink.Notify(notify.Failed())
		return false, errors.Wrap(err, "approve")
	}
	if receipt.Status != constant.ReceiptStatusSuccessful {
		o.sink.Notify(notify.Failed())
		return false, errors.New("approval reverted")
	}
	s.Approved = true
	o.sink.Notify(notify.Confirmed())
	o.log.Info("Token approved", "token", token.TokenName, "spender", spender)
	return false, nil
}

// TrackStatus re-polls fn on the standard status interval until it reports
// a terminal result, returning a cancellable handle.
func TrackStatus(ctx context.Context, fn poll.Func) *poll.Task {
	return poll.Start(ctx, constant.StatusPollInterval, fn)
}
