package optimistic

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

// messenger computes cross-domain message state from chain truth. It holds
// no per-message state: every status is recomputed on demand so a restarted
// client sees exactly what the contracts see.
type messenger struct {
	cfg *config.OptimisticConfig
	l1  *ethclient.Client
	l2  *ethclient.Client
	log log15.Logger
}

func newMessenger(cfg *config.OptimisticConfig, l1, l2 *ethclient.Client, logger log15.Logger) *messenger {
	return &messenger{cfg: cfg, l1: l1, l2: l2, log: logger}
}

// withdrawal is one L2→L1 transfer reconstructed from its initiating
// transaction. The bedrock fields come from the MessagePassed event and feed
// the prove and finalize calldata unchanged.
type withdrawal struct {
	txHash  common.Hash
	block   core.BlockInfo
	amount  *big.Int
	l1Token common.Address

	wdHash   common.Hash // bedrock withdrawal hash
	nonce    *big.Int
	sender   common.Address
	target   common.Address
	value    *big.Int
	gasLimit *big.Int
	data     []byte

	msgHash common.Hash // legacy cross-domain message hash
}

// deposit is one L1→L2 transfer. msgHash keys the relay events on the L2
// messenger that decide its status.
type deposit struct {
	txHash  common.Hash
	block   core.BlockInfo
	amount  *big.Int
	l1Token common.Address
	msgHash common.Hash
}

type withdrawalInitiatedEvent struct {
	L1Token   common.Address
	L2Token   common.Address
	From      common.Address
	To        common.Address
	Amount    *big.Int
	ExtraData []byte
}

type messagePassedEvent struct {
	Nonce          *big.Int
	Sender         common.Address
	Target         common.Address
	Value          *big.Int
	GasLimit       *big.Int
	Data           []byte
	WithdrawalHash [32]byte
}

type sentMessageEvent struct {
	Target       common.Address
	Sender       common.Address
	Message      []byte
	MessageNonce *big.Int
	GasLimit     *big.Int
}

type sentMessageExtensionEvent struct {
	Sender common.Address
	Value  *big.Int
}

type ethDepositInitiatedEvent struct {
	From      common.Address
	To        common.Address
	Amount    *big.Int
	ExtraData []byte
}

type erc20DepositInitiatedEvent struct {
	L1Token   common.Address
	L2Token   common.Address
	From      common.Address
	To        common.Address
	Amount    *big.Int
	ExtraData []byte
}

// withdrawalLogs returns the address's withdrawal-initiation logs for the
// token, newest first.
func (m *messenger) withdrawalLogs(ctx context.Context, address common.Address, token *config.Token) ([]types.Log, error) {
	l2Token := token.L2.Address
	if token.IsNative {
		l2Token = LegacyERC20ETH
	}
	logs, err := m.l2.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{L2StandardBridge},
		Topics: [][]common.Hash{
			{l2BridgeContract.EventID("WithdrawalInitiated")},
			{addressTopic(token.L1.Address)},
			{addressTopic(l2Token)},
			{addressTopic(address)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter withdrawals")
	}
	reverse(logs)
	return logs, nil
}

// depositLogs returns the address's deposit-initiation logs for the token,
// newest first. Native and ERC-20 deposits emit different events.
func (m *messenger) depositLogs(ctx context.Context, address common.Address, token *config.Token) ([]types.Log, error) {
	q := ethereum.FilterQuery{Addresses: []common.Address{m.cfg.L1StandardBridge}}
	if token.IsNative {
		q.Topics = [][]common.Hash{
			{l1BridgeContract.EventID("ETHDepositInitiated")},
			{addressTopic(address)},
		}
	} else {
		q.Topics = [][]common.Hash{
			{l1BridgeContract.EventID("ERC20DepositInitiated")},
			{addressTopic(token.L1.Address)},
			{addressTopic(token.L2.Address)},
			{addressTopic(address)},
		}
	}
	logs, err := m.l1.FilterLogs(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "filter deposits")
	}
	reverse(logs)
	return logs, nil
}

// withdrawalFromLog reconstructs the full withdrawal from its initiation
// log: the same receipt carries the MessagePassed (bedrock) and SentMessage
// (legacy) events that identify the message on L1.
func (m *messenger) withdrawalFromLog(ctx context.Context, lg types.Log, token *config.Token) (*withdrawal, error) {
	var ev withdrawalInitiatedEvent
	if err := l2BridgeContract.UnpackLog(&ev, "WithdrawalInitiated", lg); err != nil {
		return nil, err
	}
	wd := &withdrawal{
		txHash:  lg.TxHash,
		amount:  ev.Amount,
		l1Token: token.L1.Address,
		block:   core.BlockInfo{Number: new(big.Int).SetUint64(lg.BlockNumber), Hash: lg.BlockHash},
	}
	header, err := m.l2.HeaderByHash(ctx, lg.BlockHash)
	if err != nil {
		return nil, errors.Wrap(err, "withdrawal block header")
	}
	wd.block.Time = header.Time

	receipt, err := m.l2.TransactionReceipt(ctx, lg.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "withdrawal receipt")
	}
	for _, rl := range receipt.Logs {
		switch {
		case rl.Address == L2ToL1MessagePasser && len(rl.Topics) > 0 && rl.Topics[0] == passerContract.EventID("MessagePassed"):
			var mp messagePassedEvent
			if err := passerContract.UnpackLog(&mp, "MessagePassed", *rl); err != nil {
				return nil, err
			}
			wd.wdHash = common.Hash(mp.WithdrawalHash)
			wd.nonce = mp.Nonce
			wd.sender = mp.Sender
			wd.target = mp.Target
			wd.value = mp.Value
			wd.gasLimit = mp.GasLimit
			wd.data = mp.Data
		case rl.Address == L2CrossDomainMessenger && len(rl.Topics) > 0 && rl.Topics[0] == messengerContract.EventID("SentMessage"):
			var sm sentMessageEvent
			if err := messengerContract.UnpackLog(&sm, "SentMessage", *rl); err != nil {
				return nil, err
			}
			wd.msgHash = hashCrossDomainMessageV0(sm.Target, sm.Sender, sm.Message, sm.MessageNonce)
		}
	}
	if !m.cfg.Bedrock() && wd.msgHash == (common.Hash{}) {
		return nil, errors.Errorf("no cross-domain message in withdrawal %s", lg.TxHash.Hex())
	}
	if m.cfg.Bedrock() && wd.wdHash == (common.Hash{}) {
		return nil, errors.Errorf("no message passer event in withdrawal %s", lg.TxHash.Hex())
	}
	return wd, nil
}

// depositFromLog reconstructs a deposit and the cross-domain message hash
// its L2 relay will be keyed by.
func (m *messenger) depositFromLog(ctx context.Context, lg types.Log, token *config.Token) (*deposit, error) {
	dep := &deposit{
		txHash:  lg.TxHash,
		l1Token: token.L1.Address,
		block:   core.BlockInfo{Number: new(big.Int).SetUint64(lg.BlockNumber), Hash: lg.BlockHash},
	}
	if token.IsNative {
		var ev ethDepositInitiatedEvent
		if err := l1BridgeContract.UnpackLog(&ev, "ETHDepositInitiated", lg); err != nil {
			return nil, err
		}
		dep.amount = ev.Amount
	} else {
		var ev erc20DepositInitiatedEvent
		if err := l1BridgeContract.UnpackLog(&ev, "ERC20DepositInitiated", lg); err != nil {
			return nil, err
		}
		dep.amount = ev.Amount
	}
	header, err := m.l1.HeaderByHash(ctx, lg.BlockHash)
	if err != nil {
		return nil, errors.Wrap(err, "deposit block header")
	}
	dep.block.Time = header.Time

	receipt, err := m.l1.TransactionReceipt(ctx, lg.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "deposit receipt")
	}
	var sent *sentMessageEvent
	var ext *sentMessageExtensionEvent
	for _, rl := range receipt.Logs {
		if rl.Address != m.cfg.L1CrossDomainMessenger || len(rl.Topics) == 0 {
			continue
		}
		switch rl.Topics[0] {
		case messengerContract.EventID("SentMessage"):
			var sm sentMessageEvent
			if err := messengerContract.UnpackLog(&sm, "SentMessage", *rl); err != nil {
				return nil, err
			}
			sent = &sm
		case messengerContract.EventID("SentMessageExtension1"):
			var se sentMessageExtensionEvent
			if err := messengerContract.UnpackLog(&se, "SentMessageExtension1", *rl); err != nil {
				return nil, err
			}
			ext = &se
		}
	}
	if sent == nil {
		return nil, errors.Errorf("no cross-domain message in deposit %s", lg.TxHash.Hex())
	}
	if m.cfg.Bedrock() {
		value := big.NewInt(0)
		if ext != nil {
			value = ext.Value
		}
		dep.msgHash = hashCrossDomainMessageV1(sent.MessageNonce, sent.Sender, sent.Target, value, sent.GasLimit, sent.Message)
	} else {
		dep.msgHash = hashCrossDomainMessageV0(sent.Target, sent.Sender, sent.Message, sent.MessageNonce)
	}
	return dep, nil
}

// depositStatus resolves a deposit by looking for its relay on the L2
// messenger. No relay event yet means the deposit is still in flight.
func (m *messenger) depositStatus(ctx context.Context, msgHash common.Hash) (Status, error) {
	relayed, err := m.relayLogExists(ctx, "RelayedMessage", msgHash)
	if err != nil {
		return StatusUnknown, err
	}
	if relayed {
		return Finalized, nil
	}
	failed, err := m.relayLogExists(ctx, "FailedRelayedMessage", msgHash)
	if err != nil {
		return StatusUnknown, err
	}
	if failed {
		return FailedDeposit, nil
	}
	return UnconfirmedDeposit, nil
}

func (m *messenger) relayLogExists(ctx context.Context, event string, msgHash common.Hash) (bool, error) {
	logs, err := m.l2.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{L2CrossDomainMessenger},
		Topics: [][]common.Hash{
			{messengerContract.EventID(event)},
			{msgHash},
		},
	})
	if err != nil {
		return false, errors.Wrapf(err, "filter %s", event)
	}
	return len(logs) > 0, nil
}

// withdrawalStatus walks the withdrawal lifecycle against the L1 contracts.
func (m *messenger) withdrawalStatus(ctx context.Context, wd *withdrawal) (Status, error) {
	if m.cfg.Bedrock() {
		return m.bedrockWithdrawalStatus(ctx, wd)
	}
	return m.legacyWithdrawalStatus(ctx, wd)
}

func (m *messenger) bedrockWithdrawalStatus(ctx context.Context, wd *withdrawal) (Status, error) {
	var finalized bool
	if err := portalContract.Call(ctx, m.l1, m.cfg.OptimismPortal, &finalized, "finalizedWithdrawals", wd.wdHash); err != nil {
		return StatusUnknown, errors.Wrap(err, "finalizedWithdrawals")
	}
	if finalized {
		return Finalized, nil
	}

	proven, err := portalContract.CallRaw(ctx, m.l1, m.cfg.OptimismPortal, "provenWithdrawals", wd.wdHash)
	if err != nil {
		return StatusUnknown, errors.Wrap(err, "provenWithdrawals")
	}
	provenAt := proven[1].(*big.Int)
	if provenAt.Sign() > 0 {
		var window *big.Int
		if err := oracleContract.Call(ctx, m.l1, m.cfg.L2OutputOracle, &window, "FINALIZATION_PERIOD_SECONDS"); err != nil {
			return StatusUnknown, errors.Wrap(err, "finalization period")
		}
		now, err := m.l1ChainTime(ctx)
		if err != nil {
			return StatusUnknown, err
		}
		if now.Cmp(new(big.Int).Add(provenAt, window)) >= 0 {
			return ReadyForRelay, nil
		}
		return InChallengePeriod, nil
	}

	var published *big.Int
	if err := oracleContract.Call(ctx, m.l1, m.cfg.L2OutputOracle, &published, "latestBlockNumber"); err != nil {
		return StatusUnknown, errors.Wrap(err, "latestBlockNumber")
	}
	if published.Cmp(wd.block.Number) >= 0 {
		return ReadyToProve, nil
	}
	return AwaitingStateRoot, nil
}

// legacyWithdrawalStatus covers pre-bedrock deployments, where proving is
// implicit: the state root posting starts the challenge window directly.
func (m *messenger) legacyWithdrawalStatus(ctx context.Context, wd *withdrawal) (Status, error) {
	relayed, err := m.l1.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{m.cfg.L1CrossDomainMessenger},
		Topics: [][]common.Hash{
			{messengerContract.EventID("RelayedMessage")},
			{wd.msgHash},
		},
	})
	if err != nil {
		return StatusUnknown, errors.Wrap(err, "filter relayed")
	}
	if len(relayed) > 0 {
		return Finalized, nil
	}

	var total *big.Int
	if err := sccContract.Call(ctx, m.l1, m.cfg.StateCommitmentChain, &total, "getTotalElements"); err != nil {
		return StatusUnknown, errors.Wrap(err, "getTotalElements")
	}
	if total.Cmp(wd.block.Number) < 0 {
		return AwaitingStateRoot, nil
	}

	var window *big.Int
	if err := sccContract.Call(ctx, m.l1, m.cfg.StateCommitmentChain, &window, "FRAUD_PROOF_WINDOW"); err != nil {
		return StatusUnknown, errors.Wrap(err, "fraud proof window")
	}
	now, err := m.l1ChainTime(ctx)
	if err != nil {
		return StatusUnknown, err
	}
	elapsed := new(big.Int).Sub(now, new(big.Int).SetUint64(wd.block.Time))
	if elapsed.Cmp(window) >= 0 {
		return ReadyForRelay, nil
	}
	return InChallengePeriod, nil
}

func (m *messenger) l1ChainTime(ctx context.Context) (*big.Int, error) {
	head, err := m.l1.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "l1 head")
	}
	return new(big.Int).SetUint64(head.Time), nil
}

// Argument shapes for the portal's prove/finalize calldata.
type withdrawalTx struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte
}

type outputRootProof struct {
	Version                  [32]byte
	StateRoot                [32]byte
	MessagePasserStorageRoot [32]byte
	LatestBlockhash          [32]byte
}

type l2Output struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2BlockNumber *big.Int
}

func (wd *withdrawal) tx() withdrawalTx {
	return withdrawalTx{
		Nonce:    wd.nonce,
		Sender:   wd.sender,
		Target:   wd.target,
		Value:    wd.value,
		GasLimit: wd.gasLimit,
		Data:     wd.data,
	}
}

// proveInput assembles the calldata for proveWithdrawalTransaction: the
// output the oracle published for the withdrawal's block, an output-root
// preimage built from that block's header, and a storage proof that the
// withdrawal hash is recorded in the message passer.
func (m *messenger) proveInput(ctx context.Context, wd *withdrawal) ([]byte, error) {
	var index *big.Int
	if err := oracleContract.Call(ctx, m.l1, m.cfg.L2OutputOracle, &index, "getL2OutputIndexAfter", wd.block.Number); err != nil {
		return nil, errors.Wrap(err, "getL2OutputIndexAfter")
	}
	var output l2Output
	if err := oracleContract.Call(ctx, m.l1, m.cfg.L2OutputOracle, &output, "getL2Output", index); err != nil {
		return nil, errors.Wrap(err, "getL2Output")
	}

	header, err := m.l2.HeaderByNumber(ctx, output.L2BlockNumber)
	if err != nil {
		return nil, errors.Wrap(err, "output block header")
	}

	slot := withdrawalSlot(wd.wdHash)
	proof, err := m.l2.GetProof(ctx, L2ToL1MessagePasser, []string{slot.Hex()}, output.L2BlockNumber)
	if err != nil {
		return nil, errors.Wrap(err, "storage proof")
	}
	if len(proof.StorageProof) == 0 {
		return nil, errors.New("empty storage proof")
	}
	wdProof := make([][]byte, 0, len(proof.StorageProof[0].Proof))
	for _, node := range proof.StorageProof[0].Proof {
		b, err := hexutil.Decode(node)
		if err != nil {
			return nil, errors.Wrap(err, "decode proof node")
		}
		wdProof = append(wdProof, b)
	}

	rootProof := outputRootProof{
		StateRoot:                header.Root,
		MessagePasserStorageRoot: proof.StorageHash,
		LatestBlockhash:          header.Hash(),
	}
	return portalContract.Pack("proveWithdrawalTransaction", wd.tx(), index, rootProof, wdProof)
}

func (m *messenger) finalizeInput(wd *withdrawal) ([]byte, error) {
	return portalContract.Pack("finalizeWithdrawalTransaction", wd.tx())
}

// withdrawalSlot is the message passer storage slot proving the withdrawal:
// keccak256(withdrawalHash ++ uint256(0)), the sentWithdrawals mapping key.
func withdrawalSlot(wdHash common.Hash) common.Hash {
	buf := make([]byte, 64)
	copy(buf, wdHash.Bytes())
	return crypto.Keccak256Hash(buf)
}

// hashCrossDomainMessageV1 is the bedrock message hash: the keccak of the
// relayMessage calldata the L2 messenger will execute.
func hashCrossDomainMessageV1(nonce *big.Int, sender, target common.Address, value, gasLimit *big.Int, message []byte) common.Hash {
	input, err := messengerContract.Pack("relayMessage", nonce, sender, target, value, gasLimit, message)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(input)
}

// hashCrossDomainMessageV0 is the pre-bedrock equivalent with the v0
// argument order and no value.
func hashCrossDomainMessageV0(target, sender common.Address, message []byte, nonce *big.Int) common.Hash {
	input, err := legacyMessenger.Pack("relayMessage", target, sender, message, nonce)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(input)
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func reverse(logs []types.Log) {
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
}
