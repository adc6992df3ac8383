package nitro

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	ichain "github.com/constellation-labs/bridgeclient/internal/chain"
	"github.com/constellation-labs/bridgeclient/internal/constant"
	"github.com/constellation-labs/bridgeclient/pkg/notify"
)

type stubSigner struct {
	addr    common.Address
	chainID *big.Int
}

func (s *stubSigner) Address() common.Address { return s.addr }
func (s *stubSigner) ChainID(ctx context.Context) (*big.Int, error) {
	return s.chainID, nil
}
func (s *stubSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type recordSink struct {
	notes []notify.Notification
}

func (s *recordSink) Notify(n notify.Notification) { s.notes = append(s.notes, n) }

type fakeSender struct {
	sendErr error
	receipt *types.Receipt
	waitErr error
	sends   int
}

var _ ichain.Sender = &fakeSender{}

func (f *fakeSender) Send(ctx context.Context, signer core.Signer, to *common.Address, value *big.Int, input []byte, gasLimit uint64) (*types.Transaction, error) {
	f.sends++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return types.NewTx(&types.LegacyTx{}), nil
}

func (f *fakeSender) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return f.receipt, f.waitErr
}

func newTestAdapter(sender *fakeSender, sink *recordSink) *Adapter {
	return &Adapter{
		cfg: &config.NitroConfig{
			L1ChainID: 1,
			L2ChainID: 42161,
			Inbox:     common.HexToAddress("0x02"),
			Outbox:    common.HexToAddress("0x03"),
		},
		l1Sender: sender,
		l2Sender: sender,
		sink:     sink,
		log:      log15.Root(),
	}
}

func nativeToken() *config.Token {
	return &config.Token{
		TokenName: "ETH",
		L1:        config.TokenInfo{ChainID: 1},
		L2:        config.TokenInfo{ChainID: 42161},
		Decimals:  18,
		IsNative:  true,
	}
}

func TestWithdrawalStatusString(t *testing.T) {
	tests := []struct {
		status WithdrawalStatus
		want   string
	}{
		{UnconfirmedWithdrawal, "Unconfirmed Withdrawal"},
		{ConfirmedWithdrawal, "Confirmed Withdrawal"},
		{ExecutedWithdrawal, "Executed Withdrawal"},
		{WithdrawalStatus(99), "Unknown"},
		{WithdrawalStatus(StatusUnknown), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("WithdrawalStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestDepositStatusStrings(t *testing.T) {
	if got := EthDepositPending.String(); got != "Pending" {
		t.Errorf("EthDepositPending = %q", got)
	}
	if got := EthDeposited.String(); got != "Deposited" {
		t.Errorf("EthDeposited = %q", got)
	}
	for status, want := range map[DepositStatus]string{
		DepositPending:     "Pending",
		DepositFailed:      "Failed",
		FundsDepositedOnL2: "Funds Deposited on L2",
		Deposited:          "Deposited",
		DepositExpired:     "Expired",
		DepositStatus(99):  "Unknown",
	} {
		if got := status.String(); got != want {
			t.Errorf("DepositStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestWithdrawalNextAction(t *testing.T) {
	tests := []struct {
		name      string
		status    WithdrawalStatus
		isDeposit bool
		wantStep  string
		wantOK    bool
	}{
		{name: "confirmed is executable", status: ConfirmedWithdrawal, wantStep: core.StepFinalize, wantOK: true},
		{name: "unconfirmed waits", status: UnconfirmedWithdrawal},
		{name: "executed is terminal", status: ExecutedWithdrawal},
		{name: "deposits never actionable", status: ConfirmedWithdrawal, isDeposit: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, ok := tt.status.NextAction(tt.isDeposit)
			if step != tt.wantStep || ok != tt.wantOK {
				t.Errorf("NextAction() = (%q, %v), want (%q, %v)", step, ok, tt.wantStep, tt.wantOK)
			}
		})
	}
}

func TestPageSlices(t *testing.T) {
	tests := []struct {
		name                string
		nativeLen, tokenLen int
		pageSize, offset    int
		nlo, nhi, tlo, thi  int
	}{
		{name: "native first", nativeLen: 3, tokenLen: 2, pageSize: 4, nlo: 0, nhi: 3, tlo: 0, thi: 1},
		{name: "no native", nativeLen: 0, tokenLen: 2, pageSize: 5, nlo: 0, nhi: 0, tlo: 0, thi: 2},
		{name: "page full of native", nativeLen: 5, tokenLen: 5, pageSize: 3, nlo: 0, nhi: 3, tlo: 0, thi: 0},
		{name: "offset into native", nativeLen: 3, tokenLen: 0, pageSize: 2, offset: 2, nlo: 2, nhi: 3, tlo: 0, thi: 0},
		{name: "offset past native", nativeLen: 1, tokenLen: 4, pageSize: 2, offset: 1, nlo: 1, nhi: 1, tlo: 1, thi: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nlo, nhi, tlo, thi := pageSlices(tt.nativeLen, tt.tokenLen, tt.pageSize, tt.offset)
			if nlo != tt.nlo || nhi != tt.nhi || tlo != tt.tlo || thi != tt.thi {
				t.Errorf("pageSlices() = (%d,%d,%d,%d), want (%d,%d,%d,%d)",
					nlo, nhi, tlo, thi, tt.nlo, tt.nhi, tt.tlo, tt.thi)
			}
		})
	}
}

func TestRegistryIdempotent(t *testing.T) {
	cfg := &config.NitroConfig{L1ChainID: 101, L2ChainID: 42101}
	first := networks.register(cfg)
	second := networks.register(cfg)
	if first != second {
		t.Error("re-registering the same pair created a new descriptor")
	}
}

func TestRegistryStrictDuplicate(t *testing.T) {
	cfg := &config.NitroConfig{L1ChainID: 102, L2ChainID: 42102}
	if _, err := networks.registerStrict(cfg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := networks.registerStrict(cfg); err == nil {
		t.Error("duplicate strict registration succeeded")
	}
}

func TestAddressAliasRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	aliased := l1ToL2Alias(addr)
	if aliased == addr {
		t.Error("alias is identity")
	}
	if got := l2ToL1Alias(aliased); got != addr {
		t.Errorf("alias round trip = %s, want %s", got.Hex(), addr.Hex())
	}
}

func TestEthDepositTxHashDeterministic(t *testing.T) {
	chainID := big.NewInt(42161)
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := from
	a := ethDepositTxHash(chainID, big.NewInt(7), from, to, big.NewInt(1000))
	b := ethDepositTxHash(chainID, big.NewInt(7), from, to, big.NewInt(1000))
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == ethDepositTxHash(chainID, big.NewInt(8), from, to, big.NewInt(1000)) {
		t.Error("hash ignores message number")
	}
}

func TestRecentWithdrawalSkipsLiveStatus(t *testing.T) {
	// A just-initiated withdrawal must report unconfirmed without touching
	// the chain: the gateway here has no clients, so any RPC would panic.
	g := &gateway{cfg: &config.NitroConfig{}}
	wd := &withdrawal{block: core.BlockInfo{Time: uint64(time.Now().Unix())}}
	status, err := g.withdrawalStatus(context.Background(), wd)
	if err != nil {
		t.Fatalf("withdrawalStatus() error = %v", err)
	}
	if status != UnconfirmedWithdrawal {
		t.Errorf("status = %v, want UnconfirmedWithdrawal", status)
	}
}

func TestTakeNextStepGuards(t *testing.T) {
	m := &message{label: ExecutedWithdrawal.String(), wdStatus: ExecutedWithdrawal, wd: &withdrawal{}}
	if err := m.TakeNextStep(context.Background(), nil, nil, false); err != constant.ErrNotActionable {
		t.Errorf("terminal withdrawal: err = %v, want ErrNotActionable", err)
	}

	m = &message{label: ConfirmedWithdrawal.String(), wdStatus: ConfirmedWithdrawal, wd: &withdrawal{}}
	if err := m.TakeNextStep(context.Background(), nil, nil, false); err != constant.ErrMissingSigner {
		t.Errorf("no signer: err = %v, want ErrMissingSigner", err)
	}

	dep := &message{label: EthDeposited.String()}
	if _, ok := dep.NextStepName(true); ok {
		t.Error("deposit reported an actionable step")
	}
}

func TestTransferGuardsNotifyWithoutBroadcast(t *testing.T) {
	tests := []struct {
		name    string
		amount  *big.Int
		signer  core.Signer
		wantMsg string
	}{
		{name: "nil amount", signer: &stubSigner{chainID: big.NewInt(1)}, wantMsg: notify.MsgNonZero},
		{name: "no signer", amount: big.NewInt(1), wantMsg: notify.MsgSig},
		{name: "wrong network", amount: big.NewInt(1), signer: &stubSigner{chainID: big.NewInt(999)}, wantMsg: constant.ErrWrongNetwork.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			sink := &recordSink{}
			a := newTestAdapter(sender, sink)

			a.Transfer(context.Background(), tt.amount, tt.signer, nativeToken(), core.Deposit)

			if sender.sends != 0 {
				t.Errorf("sends = %d, want 0", sender.sends)
			}
			if len(sink.notes) != 1 || sink.notes[0].Message != tt.wantMsg {
				t.Errorf("notifications = %+v, want one %q warning", sink.notes, tt.wantMsg)
			}
		})
	}
}

func TestTransferBroadcastFailureNotifies(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("insufficient funds")}
	sink := &recordSink{}
	a := newTestAdapter(sender, sink)

	// The call must return normally; the failure only reaches the sink.
	a.Transfer(context.Background(), big.NewInt(1), &stubSigner{chainID: big.NewInt(1)}, nativeToken(), core.Deposit)

	if sender.sends != 1 {
		t.Fatalf("sends = %d, want 1", sender.sends)
	}
	if len(sink.notes) != 1 || sink.notes[0].Message != notify.MsgFailed {
		t.Errorf("notifications = %+v, want one failure", sink.notes)
	}
}

func TestTakeNextStepRequiresLiveStatus(t *testing.T) {
	sender := &fakeSender{}
	a := newTestAdapter(sender, &recordSink{})
	a.withdrawalStatus = func(ctx context.Context, wd *withdrawal) (WithdrawalStatus, error) {
		return ExecutedWithdrawal, nil
	}

	// The page said confirmed, but the output has been spent since; nothing
	// may be broadcast. The adapter's gateway is nil, so reaching the proof
	// construction would panic.
	m := &message{adapter: a, label: ConfirmedWithdrawal.String(), wdStatus: ConfirmedWithdrawal, wd: &withdrawal{}}
	err := m.TakeNextStep(context.Background(), &stubSigner{chainID: big.NewInt(1)}, nil, false)
	if err != constant.ErrPhaseNotReady {
		t.Errorf("TakeNextStep() = %v, want ErrPhaseNotReady", err)
	}
	if sender.sends != 0 {
		t.Errorf("sends = %d, want 0", sender.sends)
	}
}

func TestL1BridgeAddress(t *testing.T) {
	a := newTestAdapter(&fakeSender{}, &recordSink{})
	a.cfg.L1ERC20Gateway = common.HexToAddress("0x07")

	if got := a.L1BridgeAddress(nativeToken()); got != a.cfg.Inbox {
		t.Errorf("native bridge address = %s, want inbox", got.Hex())
	}
	erc20 := nativeToken()
	erc20.IsNative = false
	if got := a.L1BridgeAddress(erc20); got != a.cfg.L1ERC20Gateway {
		t.Errorf("token bridge address = %s, want erc20 gateway", got.Hex())
	}
}

func TestFinalizeWithdrawalNotReady(t *testing.T) {
	a := &Adapter{cfg: &config.NitroConfig{}}
	m := &message{adapter: a, label: UnconfirmedWithdrawal.String(), wd: &withdrawal{}}
	if err := a.FinalizeWithdrawal(context.Background(), nil, m, nil); err != constant.ErrNotReadyForRelay {
		t.Errorf("FinalizeWithdrawal() = %v, want ErrNotReadyForRelay", err)
	}
}
