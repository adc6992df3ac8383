package optimistic

import (
	"context"
	"errors"
	"math/big"
	"testing"

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
		cfg: &config.OptimisticConfig{
			L1ChainID:        1,
			L2ChainID:        10,
			L1StandardBridge: common.HexToAddress("0x05"),
			OptimismPortal:   common.HexToAddress("0x06"),
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
		L2:        config.TokenInfo{ChainID: 10},
		Decimals:  18,
		IsNative:  true,
	}
}

func provenWithdrawal() *withdrawal {
	return &withdrawal{
		txHash:   common.HexToHash("0xaa"),
		wdHash:   common.HexToHash("0xbb"),
		nonce:    big.NewInt(1),
		sender:   common.HexToAddress("0x07"),
		target:   common.HexToAddress("0x08"),
		value:    big.NewInt(0),
		gasLimit: big.NewInt(200000),
		data:     []byte{},
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{UnconfirmedDeposit, "Unconfirmed Deposit"},
		{FailedDeposit, "Failed Deposit"},
		{AwaitingStateRoot, "Awaiting state root"},
		{ReadyToProve, "Ready to prove"},
		{InChallengePeriod, "In challenge period"},
		{ReadyForRelay, "Ready for relay"},
		{Finalized, "Finalized"},
		{StatusUnknown, "Unknown"},
		{Status(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusNextAction(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		isDeposit bool
		wantStep  string
		wantOK    bool
	}{
		{name: "ready to prove", status: ReadyToProve, wantStep: core.StepProve, wantOK: true},
		{name: "ready for relay", status: ReadyForRelay, wantStep: core.StepFinalize, wantOK: true},
		{name: "awaiting state root", status: AwaitingStateRoot},
		{name: "in challenge period", status: InChallengePeriod},
		{name: "finalized", status: Finalized},
		{name: "unknown", status: StatusUnknown},
		{name: "deposits never actionable", status: ReadyToProve, isDeposit: true},
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

func TestTakeNextStepNotActionable(t *testing.T) {
	// Messages at a terminal or waiting status fail fast, before touching
	// signer or network.
	m := &message{status: Finalized}
	err := m.TakeNextStep(context.Background(), nil, nil, false)
	if err != constant.ErrNotActionable {
		t.Errorf("TakeNextStep() = %v, want ErrNotActionable", err)
	}
}

func TestTakeNextStepMissingSigner(t *testing.T) {
	m := &message{status: ReadyForRelay}
	err := m.TakeNextStep(context.Background(), nil, nil, false)
	if err != constant.ErrMissingSigner {
		t.Errorf("TakeNextStep() = %v, want ErrMissingSigner", err)
	}
}

func TestFinalizeWithdrawalNotReady(t *testing.T) {
	a := &Adapter{cfg: &config.OptimisticConfig{}}
	m := &message{adapter: a, status: InChallengePeriod}
	if a.IsReadyForFinalization(m) {
		t.Fatal("message in challenge period reported ready")
	}
	err := a.FinalizeWithdrawal(context.Background(), nil, m, nil)
	if err != constant.ErrNotReadyForRelay {
		t.Errorf("FinalizeWithdrawal() = %v, want ErrNotReadyForRelay", err)
	}
}

func TestStatusLabels(t *testing.T) {
	a := &Adapter{}
	if got := a.WithdrawConfirmedStatus(); got != "Ready for relay" {
		t.Errorf("WithdrawConfirmedStatus() = %q", got)
	}
	if got := a.DepositCreationFailedStatus(); got != "Failed Deposit" {
		t.Errorf("DepositCreationFailedStatus() = %q", got)
	}
	if got := a.DepositRedeemedStatus(); got != "Finalized" {
		t.Errorf("DepositRedeemedStatus() = %q", got)
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
		{name: "zero amount", amount: big.NewInt(0), signer: &stubSigner{chainID: big.NewInt(1)}, wantMsg: notify.MsgNonZero},
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
			if sink.notes[0].Severity != notify.Warn {
				t.Errorf("severity = %v, want Warn", sink.notes[0].Severity)
			}
		})
	}
}

func TestTransferBroadcastFailureNotifies(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("nonce too low")}
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

func TestTransferConfirmedNotifies(t *testing.T) {
	sender := &fakeSender{receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}}
	sink := &recordSink{}
	a := newTestAdapter(sender, sink)

	a.Transfer(context.Background(), big.NewInt(1), &stubSigner{chainID: big.NewInt(1)}, nativeToken(), core.Deposit)

	if len(sink.notes) != 2 {
		t.Fatalf("notifications = %+v, want submitted then confirmed", sink.notes)
	}
	if sink.notes[0].Severity != notify.Info || sink.notes[1].Message != notify.MsgConfirmed {
		t.Errorf("notifications = %+v", sink.notes)
	}
}

func TestTakeNextStepRequiresLiveStatus(t *testing.T) {
	sender := &fakeSender{}
	a := newTestAdapter(sender, &recordSink{})
	a.withdrawalStatus = func(ctx context.Context, wd *withdrawal) (Status, error) {
		return InChallengePeriod, nil
	}

	// The page said ready, but the chain has not finished the challenge
	// period yet; nothing may be broadcast.
	m := &message{adapter: a, status: ReadyForRelay, wd: provenWithdrawal()}
	err := m.TakeNextStep(context.Background(), &stubSigner{chainID: big.NewInt(1)}, nil, false)
	if err != constant.ErrPhaseNotReady {
		t.Errorf("TakeNextStep() = %v, want ErrPhaseNotReady", err)
	}
	if sender.sends != 0 {
		t.Errorf("sends = %d, want 0", sender.sends)
	}
}

func TestTakeNextStepFinalizeBroadcasts(t *testing.T) {
	sender := &fakeSender{}
	a := newTestAdapter(sender, &recordSink{})
	a.withdrawalStatus = func(ctx context.Context, wd *withdrawal) (Status, error) {
		return ReadyForRelay, nil
	}

	m := &message{adapter: a, status: ReadyForRelay, wd: provenWithdrawal()}
	err := m.TakeNextStep(context.Background(), &stubSigner{chainID: big.NewInt(1)}, nil, false)
	if err != nil {
		t.Fatalf("TakeNextStep() error = %v", err)
	}
	if sender.sends != 1 {
		t.Errorf("sends = %d, want 1", sender.sends)
	}
}

func TestCrossDomainMessageHashes(t *testing.T) {
	nonce := big.NewInt(77)
	sender := common.HexToAddress("0x4200000000000000000000000000000000000010")
	target := common.HexToAddress("0x1111111111111111111111111111111111111111")
	msg := []byte{0xde, 0xad}

	v1 := hashCrossDomainMessageV1(nonce, sender, target, big.NewInt(0), big.NewInt(200000), msg)
	if v1 != hashCrossDomainMessageV1(nonce, sender, target, big.NewInt(0), big.NewInt(200000), msg) {
		t.Error("v1 hash not deterministic")
	}
	if v1 == hashCrossDomainMessageV1(big.NewInt(78), sender, target, big.NewInt(0), big.NewInt(200000), msg) {
		t.Error("v1 hash ignores nonce")
	}

	v0 := hashCrossDomainMessageV0(target, sender, msg, nonce)
	if v0 == v1 {
		t.Error("v0 and v1 encodings collide")
	}
}

func TestWithdrawalSlot(t *testing.T) {
	a := withdrawalSlot(common.HexToHash("0x01"))
	b := withdrawalSlot(common.HexToHash("0x02"))
	if a == b {
		t.Error("distinct withdrawal hashes map to one slot")
	}
	if a != withdrawalSlot(common.HexToHash("0x01")) {
		t.Error("slot derivation not deterministic")
	}
}
