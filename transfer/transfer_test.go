package transfer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	log "github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
)

type fakeSigner struct {
	addr    common.Address
	chainID *big.Int
	err     error
}

func (s *fakeSigner) Address() common.Address { return s.addr }
func (s *fakeSigner) ChainID(ctx context.Context) (*big.Int, error) {
	return s.chainID, s.err
}
func (s *fakeSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type fakeAdapter struct {
	core.Adapter
	transfers int
	bridge    common.Address
}

func (a *fakeAdapter) Transfer(ctx context.Context, amount *big.Int, signer core.Signer, token *config.Token, direction core.TransferDirection) {
	a.transfers++
}

func (a *fakeAdapter) L1BridgeAddress(token *config.Token) common.Address { return a.bridge }

type fakeConnector struct {
	signer core.Signer
	calls  int
}

func (c *fakeConnector) Connect(ctx context.Context, chainID uint64) (core.Signer, error) {
	c.calls++
	return c.signer, nil
}

type fakeSwitcher struct {
	calls   int
	chainID uint64
}

func (s *fakeSwitcher) SwitchNetwork(ctx context.Context, chainID uint64) error {
	s.calls++
	s.chainID = chainID
	return nil
}

type fakeApprover struct {
	allowance  *big.Int
	receipt    *types.Receipt
	approveErr error
	approvals  int
}

func (a *fakeApprover) Allowance(ctx context.Context, token *config.Token, owner, spender common.Address) (*big.Int, error) {
	return a.allowance, nil
}

func (a *fakeApprover) Approve(ctx context.Context, signer core.Signer, token *config.Token, spender common.Address) (*types.Receipt, error) {
	a.approvals++
	return a.receipt, a.approveErr
}

type fakeSink struct {
	notes []notify.Notification
}

func (s *fakeSink) Notify(n notify.Notification) { s.notes = append(s.notes, n) }

func testToken(native bool) *config.Token {
	return &config.Token{
		TokenName: "TEST",
		L1:        config.TokenInfo{ChainID: 1, Address: common.HexToAddress("0x01")},
		L2:        config.TokenInfo{ChainID: 42, Address: common.HexToAddress("0x02")},
		Decimals:  18,
		IsNative:  native,
	}
}

func newTestOrchestrator(adapter core.Adapter, connector Connector, switcher NetworkSwitcher, apr approver, sink notify.Sink) *Orchestrator {
	o := New(adapter, connector, switcher, sink, log.Root().New("test", true))
	o.approver = apr
	return o
}

func TestButtonLabel(t *testing.T) {
	one := big.NewInt(1)
	ten := big.NewInt(10)
	tests := []struct {
		name          string
		state         WalletState
		amount        *big.Int
		balance       *big.Int
		approved      bool
		needsApproval bool
		direction     core.TransferDirection
		want          string
	}{
		{name: "disconnected wins", state: Disconnected, want: LabelConnectWallet},
		{name: "wrong network", state: IncorrectNetwork, balance: ten, want: LabelSwitchNetwork},
		{name: "balance pending", state: Connected, want: LabelFetchingBalance},
		{name: "insufficient", state: Connected, amount: ten, balance: one, want: LabelInsufficientBalance},
		{name: "needs approval", state: Connected, amount: one, balance: ten, needsApproval: true, want: LabelApprove},
		{name: "deposit ready", state: Connected, amount: one, balance: ten, direction: core.Deposit, want: LabelDeposit},
		{name: "withdraw ready", state: Connected, amount: one, balance: ten, direction: core.Withdraw, want: LabelWithdraw},
		{name: "approved token deposits", state: Connected, amount: one, balance: ten, needsApproval: true, approved: true, direction: core.Deposit, want: LabelDeposit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ButtonLabel(tt.state, tt.amount, tt.balance, tt.approved, tt.needsApproval, tt.direction)
			if got != tt.want {
				t.Errorf("ButtonLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveWalletState(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		signer core.Signer
		want   WalletState
	}{
		{name: "no signer", signer: nil, want: Disconnected},
		{name: "chain id unreadable", signer: &fakeSigner{err: errors.New("rpc down")}, want: Disconnected},
		{name: "wrong chain", signer: &fakeSigner{chainID: big.NewInt(42)}, want: IncorrectNetwork},
		{name: "right chain", signer: &fakeSigner{chainID: big.NewInt(1)}, want: Connected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveWalletState(ctx, tt.signer, 1); got != tt.want {
				t.Errorf("DeriveWalletState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdvanceWrongNetworkSwitchesWithoutTransfer(t *testing.T) {
	adapter := &fakeAdapter{}
	switcher := &fakeSwitcher{}
	o := newTestOrchestrator(adapter, &fakeConnector{}, switcher, &fakeApprover{}, &fakeSink{})
	s := &Session{Signer: &fakeSigner{chainID: big.NewInt(42)}} // on L2, deposit needs L1

	err := o.Advance(context.Background(), s, testToken(true), big.NewInt(1), core.Deposit)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if switcher.calls != 1 || switcher.chainID != 1 {
		t.Errorf("switch calls = %d (chain %d), want one switch to chain 1", switcher.calls, switcher.chainID)
	}
	if adapter.transfers != 0 {
		t.Error("transfer dispatched on wrong network")
	}
}

func TestAdvanceDisconnectedConnects(t *testing.T) {
	adapter := &fakeAdapter{}
	connector := &fakeConnector{signer: &fakeSigner{chainID: big.NewInt(1)}}
	o := newTestOrchestrator(adapter, connector, &fakeSwitcher{}, &fakeApprover{}, &fakeSink{})
	s := &Session{}

	if err := o.Advance(context.Background(), s, testToken(true), big.NewInt(1), core.Deposit); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if connector.calls != 1 {
		t.Errorf("connect calls = %d, want 1", connector.calls)
	}
	if s.Signer == nil {
		t.Error("session signer not set after connect")
	}
	if adapter.transfers != 0 {
		t.Error("transfer dispatched while connecting")
	}
}

func TestAdvanceNativeTransfers(t *testing.T) {
	adapter := &fakeAdapter{}
	o := newTestOrchestrator(adapter, &fakeConnector{}, &fakeSwitcher{}, &fakeApprover{}, &fakeSink{})
	s := &Session{Signer: &fakeSigner{chainID: big.NewInt(1)}}

	if err := o.Advance(context.Background(), s, testToken(true), big.NewInt(1), core.Deposit); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if adapter.transfers != 1 {
		t.Errorf("transfers = %d, want 1", adapter.transfers)
	}
}

func TestAdvanceApprovalFlow(t *testing.T) {
	adapter := &fakeAdapter{bridge: common.HexToAddress("0x0b")}
	apr := &fakeApprover{
		allowance: big.NewInt(0),
		receipt:   &types.Receipt{Status: types.ReceiptStatusSuccessful},
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(adapter, &fakeConnector{}, &fakeSwitcher{}, apr, sink)
	s := &Session{Signer: &fakeSigner{chainID: big.NewInt(1)}}
	token := testToken(false)

	// First press: allowance insufficient, approval broadcast, no transfer.
	if err := o.Advance(context.Background(), s, token, big.NewInt(10), core.Deposit); err != nil {
		t.Fatalf("first Advance() error = %v", err)
	}
	if apr.approvals != 1 {
		t.Errorf("approvals = %d, want 1", apr.approvals)
	}
	if !s.Approved {
		t.Error("session not marked approved after confirmed approval")
	}
	if adapter.transfers != 0 {
		t.Error("transfer dispatched in the approval press")
	}

	// Second press: already approved, transfer dispatches.
	if err := o.Advance(context.Background(), s, token, big.NewInt(10), core.Deposit); err != nil {
		t.Fatalf("second Advance() error = %v", err)
	}
	if adapter.transfers != 1 {
		t.Errorf("transfers = %d, want 1", adapter.transfers)
	}
}

func TestAdvanceSufficientAllowanceSkipsApproval(t *testing.T) {
	adapter := &fakeAdapter{}
	apr := &fakeApprover{allowance: big.NewInt(1000)}
	o := newTestOrchestrator(adapter, &fakeConnector{}, &fakeSwitcher{}, apr, &fakeSink{})
	s := &Session{Signer: &fakeSigner{chainID: big.NewInt(1)}}

	if err := o.Advance(context.Background(), s, testToken(false), big.NewInt(10), core.Deposit); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if apr.approvals != 0 {
		t.Error("approval submitted despite sufficient allowance")
	}
	if adapter.transfers != 1 {
		t.Errorf("transfers = %d, want 1", adapter.transfers)
	}
}

func TestNativeDepositFee(t *testing.T) {
	got := NativeDepositFee(big.NewInt(2))
	want := new(big.Int).Mul(big.NewInt(2), big.NewInt(config.GasPerNativeDeposit))
	if got.Cmp(want) != 0 {
		t.Errorf("NativeDepositFee() = %s, want %s", got, want)
	}
}

func TestAdvanceRejectsZeroAmount(t *testing.T) {
	o := newTestOrchestrator(&fakeAdapter{}, &fakeConnector{}, &fakeSwitcher{}, &fakeApprover{}, &fakeSink{})
	s := &Session{Signer: &fakeSigner{chainID: big.NewInt(1)}}
	if err := o.Advance(context.Background(), s, testToken(true), big.NewInt(0), core.Deposit); err == nil {
		t.Error("zero amount accepted")
	}
}
