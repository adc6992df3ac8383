package nitro

import (
	"context"
	"math/big"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

const (
	// RecentWithdrawalWindow suppresses live status computation for very
	// young withdrawals: before the batch poster has run, a live read would
	// produce a spurious unconfirmed result anyway.
	RecentWithdrawalWindow = time.Hour

	// retryableLifetime is how long an unredeemed retryable ticket survives
	// before it expires on chain.
	retryableLifetime = 7 * 24 * time.Hour
)

// gateway runs the protocol-level queries for the nitro backend. Like its
// optimistic counterpart it is stateless: every status derives from chain
// reads at call time.
type gateway struct {
	cfg *config.NitroConfig
	l1  *ethclient.Client
	l2  *ethclient.Client
	log log15.Logger
}

func newGateway(cfg *config.NitroConfig, l1, l2 *ethclient.Client, logger log15.Logger) *gateway {
	return &gateway{cfg: cfg, l1: l1, l2: l2, log: logger}
}

// withdrawal carries everything the outbox execution needs, all of it from
// the L2ToL1Tx event the withdrawal emitted.
type withdrawal struct {
	txHash  common.Hash
	block   core.BlockInfo
	amount  *big.Int
	l1Token common.Address

	position    *big.Int
	caller      common.Address
	destination common.Address
	arbBlockNum *big.Int
	ethBlockNum *big.Int
	timestamp   *big.Int
	callvalue   *big.Int
	data        []byte
}

// deposit is one L1→L2 transfer. For the native asset l2TxHash is the
// derived hash of the L2 deposit transaction; for ERC-20 rank is the
// deposit's 1-based ordinal among the user's deposits of the token, oldest
// first, used to pair it with the L2 finalization events.
type deposit struct {
	txHash  common.Hash
	block   core.BlockInfo
	amount  *big.Int
	l1Token common.Address

	l2TxHash common.Hash
	rank     int
}

type l2ToL1TxEvent struct {
	Caller      common.Address
	Destination common.Address
	Hash        *big.Int
	Position    *big.Int
	ArbBlockNum *big.Int
	EthBlockNum *big.Int
	Timestamp   *big.Int
	Callvalue   *big.Int
	Data        []byte
}

type withdrawalInitiatedEvent struct {
	L1Token  common.Address
	From     common.Address
	To       common.Address
	L2ToL1Id *big.Int
	ExitNum  *big.Int
	Amount   *big.Int
}

type depositInitiatedEvent struct {
	L1Token        common.Address
	From           common.Address
	To             common.Address
	SequenceNumber *big.Int
	Amount         *big.Int
}

type messageDeliveredEvent struct {
	MessageIndex    *big.Int
	BeforeInboxAcc  [32]byte
	Inbox           common.Address
	Kind            uint8
	Sender          common.Address
	MessageDataHash [32]byte
	BaseFeeL1       *big.Int
	Timestamp       uint64
}

type inboxMessageDeliveredEvent struct {
	MessageNum *big.Int
	Data       []byte
}

type depositFinalizedEvent struct {
	L1Token common.Address
	From    common.Address
	To      common.Address
	Amount  *big.Int
}

// nativeWithdrawals returns the address's ETH withdrawals, newest first.
func (g *gateway) nativeWithdrawals(ctx context.Context, address common.Address) ([]*withdrawal, error) {
	logs, err := g.l2.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{ArbSys},
		Topics: [][]common.Hash{
			{arbSysContract.EventID("L2ToL1Tx")},
			{addressTopic(address)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter L2ToL1Tx")
	}
	out := make([]*withdrawal, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		wd, err := g.withdrawalFromL2ToL1Log(ctx, logs[i])
		if err != nil {
			return nil, err
		}
		wd.amount = wd.callvalue
		out = append(out, wd)
	}
	return out, nil
}

// erc20Withdrawals returns the address's token withdrawals, newest first.
// The execute parameters come from the ArbSys event in the same receipt.
func (g *gateway) erc20Withdrawals(ctx context.Context, address common.Address, token *config.Token) ([]*withdrawal, error) {
	logs, err := g.l2.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.L2ERC20Gateway},
		Topics: [][]common.Hash{
			{l2GatewayContract.EventID("WithdrawalInitiated")},
			{addressTopic(address)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter WithdrawalInitiated")
	}
	out := make([]*withdrawal, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		var ev withdrawalInitiatedEvent
		if err := l2GatewayContract.UnpackLog(&ev, "WithdrawalInitiated", logs[i]); err != nil {
			return nil, err
		}
		if ev.L1Token != token.L1.Address {
			continue
		}
		receipt, err := g.l2.TransactionReceipt(ctx, logs[i].TxHash)
		if err != nil {
			return nil, errors.Wrap(err, "withdrawal receipt")
		}
		var wd *withdrawal
		for _, rl := range receipt.Logs {
			if rl.Address == ArbSys && len(rl.Topics) > 0 && rl.Topics[0] == arbSysContract.EventID("L2ToL1Tx") {
				wd, err = g.withdrawalFromL2ToL1Log(ctx, *rl)
				if err != nil {
					return nil, err
				}
				break
			}
		}
		if wd == nil {
			return nil, errors.Errorf("no L2ToL1Tx in withdrawal %s", logs[i].TxHash.Hex())
		}
		wd.amount = ev.Amount
		wd.l1Token = ev.L1Token
		out = append(out, wd)
	}
	return out, nil
}

func (g *gateway) withdrawalFromL2ToL1Log(ctx context.Context, lg types.Log) (*withdrawal, error) {
	var ev l2ToL1TxEvent
	if err := arbSysContract.UnpackLog(&ev, "L2ToL1Tx", lg); err != nil {
		return nil, err
	}
	return &withdrawal{
		txHash: lg.TxHash,
		block: core.BlockInfo{
			Number: ev.ArbBlockNum,
			Hash:   lg.BlockHash,
			Time:   ev.Timestamp.Uint64(),
		},
		position:    ev.Position,
		caller:      ev.Caller,
		destination: ev.Destination,
		arbBlockNum: ev.ArbBlockNum,
		ethBlockNum: ev.EthBlockNum,
		timestamp:   ev.Timestamp,
		callvalue:   ev.Callvalue,
		data:        ev.Data,
	}, nil
}

// ethDeposits returns the address's native deposits, newest first. The
// bridge's delivery log does not index the sender, so kind and sender are
// filtered after the fetch.
func (g *gateway) ethDeposits(ctx context.Context, address common.Address) ([]*deposit, error) {
	logs, err := g.l1.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.Bridge},
		Topics:    [][]common.Hash{{bridgeContract.EventID("MessageDelivered")}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter MessageDelivered")
	}
	alias := l1ToL2Alias(address)
	out := make([]*deposit, 0)
	for i := len(logs) - 1; i >= 0; i-- {
		var ev messageDeliveredEvent
		if err := bridgeContract.UnpackLog(&ev, "MessageDelivered", logs[i]); err != nil {
			return nil, err
		}
		if ev.Kind != ethDepositMessageKind {
			continue
		}
		if ev.Sender != address && ev.Sender != alias {
			continue
		}
		dep, err := g.ethDepositFromDelivery(ctx, logs[i], &ev, address)
		if err != nil {
			g.log.Warn("Deposit payload lookup failed", "tx", logs[i].TxHash, "err", err)
			continue
		}
		if dep != nil {
			out = append(out, dep)
		}
	}
	return out, nil
}

// ethDepositFromDelivery resolves the message payload (destination, value)
// from the inbox log sharing the message number and derives the L2
// transaction hash the deposit will appear under.
func (g *gateway) ethDepositFromDelivery(ctx context.Context, lg types.Log, ev *messageDeliveredEvent, address common.Address) (*deposit, error) {
	inboxLogs, err := g.l1.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.Inbox},
		Topics: [][]common.Hash{
			{inboxContract.EventID("InboxMessageDelivered")},
			{common.BigToHash(ev.MessageIndex)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter InboxMessageDelivered")
	}
	if len(inboxLogs) == 0 {
		return nil, errors.Errorf("no inbox payload for message %s", ev.MessageIndex)
	}
	var payload inboxMessageDeliveredEvent
	if err := inboxContract.UnpackLog(&payload, "InboxMessageDelivered", inboxLogs[0]); err != nil {
		return nil, err
	}
	// depositEth payload is the packed destination followed by the value.
	if len(payload.Data) < common.AddressLength {
		return nil, errors.New("short deposit payload")
	}
	dest := common.BytesToAddress(payload.Data[:common.AddressLength])
	value := new(big.Int).SetBytes(payload.Data[common.AddressLength:])
	if dest != address {
		return nil, nil
	}

	header, err := g.l1.HeaderByHash(ctx, lg.BlockHash)
	if err != nil {
		return nil, errors.Wrap(err, "deposit block header")
	}
	return &deposit{
		txHash: lg.TxHash,
		block: core.BlockInfo{
			Number: new(big.Int).SetUint64(lg.BlockNumber),
			Hash:   lg.BlockHash,
			Time:   header.Time,
		},
		amount:   value,
		l2TxHash: ethDepositTxHash(new(big.Int).SetUint64(g.cfg.L2ChainID), ev.MessageIndex, address, dest, value),
	}, nil
}

// erc20Deposits returns the address's token deposits, newest first, each
// carrying its ordinal rank for pairing against L2 finalization events.
func (g *gateway) erc20Deposits(ctx context.Context, address common.Address, token *config.Token) ([]*deposit, error) {
	logs, err := g.l1.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.L1ERC20Gateway},
		Topics: [][]common.Hash{
			{l1GatewayContract.EventID("DepositInitiated")},
			{addressTopic(address)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter DepositInitiated")
	}
	out := make([]*deposit, 0, len(logs))
	rank := 0
	for _, lg := range logs { // ascending: rank counts oldest first
		var ev depositInitiatedEvent
		if err := l1GatewayContract.UnpackLog(&ev, "DepositInitiated", lg); err != nil {
			return nil, err
		}
		if ev.L1Token != token.L1.Address {
			continue
		}
		rank++
		header, err := g.l1.HeaderByHash(ctx, lg.BlockHash)
		if err != nil {
			return nil, errors.Wrap(err, "deposit block header")
		}
		out = append(out, &deposit{
			txHash: lg.TxHash,
			block: core.BlockInfo{
				Number: new(big.Int).SetUint64(lg.BlockNumber),
				Hash:   lg.BlockHash,
				Time:   header.Time,
			},
			amount:  ev.Amount,
			l1Token: ev.L1Token,
			rank:    rank,
		})
	}
	reverseDeposits(out)
	return out, nil
}

// withdrawalStatus derives the withdrawal lifecycle position. Withdrawals
// younger than the recent window report unconfirmed without a live call.
func (g *gateway) withdrawalStatus(ctx context.Context, wd *withdrawal) (WithdrawalStatus, error) {
	if time.Since(time.Unix(int64(wd.block.Time), 0)) < RecentWithdrawalWindow {
		return UnconfirmedWithdrawal, nil
	}
	var spent bool
	if err := outboxContract.Call(ctx, g.l1, g.cfg.Outbox, &spent, "isSpent", wd.position); err != nil {
		return WithdrawalStatus(StatusUnknown), errors.Wrap(err, "isSpent")
	}
	if spent {
		return ExecutedWithdrawal, nil
	}
	confirmed, err := g.latestConfirmedBlock(ctx)
	if err != nil {
		return WithdrawalStatus(StatusUnknown), err
	}
	if confirmed != nil && confirmed.NumberBig() != nil && confirmed.NumberBig().Cmp(wd.arbBlockNum) >= 0 {
		return ConfirmedWithdrawal, nil
	}
	return UnconfirmedWithdrawal, nil
}

// latestConfirmedBlock resolves the L2 block behind the rollup's most recent
// confirmed node, or nil when nothing has been confirmed yet.
func (g *gateway) latestConfirmedBlock(ctx context.Context) (*ethclient.Block, error) {
	logs, err := g.l1.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.Rollup},
		Topics:    [][]common.Hash{{rollupContract.EventID("NodeConfirmed")}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "filter NodeConfirmed")
	}
	if len(logs) == 0 {
		return nil, nil
	}
	var ev struct {
		NodeNum   uint64
		BlockHash [32]byte
		SendRoot  [32]byte
	}
	if err := rollupContract.UnpackLog(&ev, "NodeConfirmed", logs[len(logs)-1]); err != nil {
		return nil, err
	}
	blk, err := g.l2.RawBlockByHash(ctx, common.Hash(ev.BlockHash))
	if err != nil {
		return nil, errors.Wrap(err, "confirmed block")
	}
	return blk, nil
}

// ethDepositStatus checks whether the derived L2 deposit transaction has
// landed.
func (g *gateway) ethDepositStatus(ctx context.Context, dep *deposit) (EthDepositStatus, error) {
	_, err := g.l2.TransactionReceipt(ctx, dep.l2TxHash)
	if err == ethereum.NotFound {
		return EthDepositPending, nil
	}
	if err != nil {
		return EthDepositStatus(StatusUnknown), errors.Wrap(err, "deposit receipt")
	}
	return EthDeposited, nil
}

// erc20DepositStatus pairs the deposit against the L2 gateway's
// finalization events: the nth deposit of a token is redeemed once n
// finalizations for the recipient exist. Unredeemed deposits expire with
// their retryable ticket.
func (g *gateway) erc20DepositStatus(ctx context.Context, address common.Address, dep *deposit) (DepositStatus, error) {
	logs, err := g.l2.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{g.cfg.L2ERC20Gateway},
		Topics: [][]common.Hash{
			{l2GatewayContract.EventID("DepositFinalized")},
			{addressTopic(dep.l1Token)},
			nil,
			{addressTopic(address)},
		},
	})
	if err != nil {
		return DepositStatus(StatusUnknown), errors.Wrap(err, "filter DepositFinalized")
	}
	if len(logs) >= dep.rank {
		return Deposited, nil
	}
	if time.Since(time.Unix(int64(dep.block.Time), 0)) > retryableLifetime {
		return DepositExpired, nil
	}
	return DepositPending, nil
}

// executeInput assembles the outbox execution calldata: an inclusion proof
// for the withdrawal's send against the latest confirmed node's send tree,
// plus the original L2ToL1Tx fields.
func (g *gateway) executeInput(ctx context.Context, wd *withdrawal) ([]byte, error) {
	confirmed, err := g.latestConfirmedBlock(ctx)
	if err != nil {
		return nil, err
	}
	if confirmed == nil {
		return nil, errors.New("no confirmed node")
	}
	size := confirmed.SendCountBig()
	if size == nil {
		return nil, errors.New("confirmed block missing send count")
	}
	out, err := nodeIfaceContract.CallRaw(ctx, g.l2, NodeInterface, "constructOutboxProof", size.Uint64(), wd.position.Uint64())
	if err != nil {
		return nil, errors.Wrap(err, "constructOutboxProof")
	}
	proof := out[2].([][32]byte)
	return outboxContract.Pack("executeTransaction",
		proof,
		wd.position,
		wd.caller,
		wd.destination,
		wd.arbBlockNum,
		wd.ethBlockNum,
		wd.timestamp,
		wd.callvalue,
		wd.data,
	)
}

// estimateDepositGas prices the retryable ticket for an ERC-20 deposit and
// applies the configured safety padding. Live estimation under-prices
// retryable execution, so the padding is required for the ticket to redeem.
func (g *gateway) estimateDepositGas(ctx context.Context, from common.Address, token *config.Token, amount *big.Int) (uint64, error) {
	input, err := nodeIfaceContract.Pack("estimateRetryableTicket",
		from, amount, token.L2.Address, big.NewInt(0), from, from, []byte{})
	if err != nil {
		return 0, err
	}
	gas, err := g.l2.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &NodeInterface,
		Data: input,
	})
	if err != nil {
		return 0, errors.Wrap(err, "estimate retryable")
	}
	return gas + g.cfg.Padding(), nil
}

// submissionFee asks the inbox what the retryable submission costs for a
// payload of the given size at the current base fee.
func (g *gateway) submissionFee(ctx context.Context, dataLength int) (*big.Int, error) {
	var fee *big.Int
	err := inboxContract.Call(ctx, g.l1, g.cfg.Inbox, &fee, "calculateRetryableSubmissionFee",
		big.NewInt(int64(dataLength)), big.NewInt(0))
	if err != nil {
		return nil, errors.Wrap(err, "submission fee")
	}
	return fee, nil
}

// ethDepositTxHash derives the hash of the L2 transaction a native deposit
// materializes as: the keccak of the type-prefixed RLP of the deposit
// fields.
func ethDepositTxHash(chainID, messageNum *big.Int, from, to common.Address, value *big.Int) common.Hash {
	fields := []interface{}{
		chainID,
		common.BigToHash(messageNum),
		from,
		to,
		value,
	}
	encoded, err := rlp.EncodeToBytes(fields)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(append([]byte{ethDepositTxType}, encoded...))
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func reverseDeposits(deps []*deposit) {
	for i, j := 0, len(deps)-1; i < j; i, j = i+1, j-1 {
		deps[i], deps[j] = deps[j], deps[i]
	}
}
