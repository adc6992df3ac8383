package nitro

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/constellation-labs/bridgeclient/internal/chain"
)

// L2 predeploys fixed across nitro deployments.
var (
	ArbSys        = common.HexToAddress("0x0000000000000000000000000000000000000064")
	NodeInterface = common.HexToAddress("0x00000000000000000000000000000000000000C8")
)

// ethDepositTxType is the nitro transaction type wrapping an L1 ETH deposit
// on L2; it prefixes the RLP payload that derives the L2 transaction hash.
const ethDepositTxType = 0x64

// l1ToL2AliasOffset is added to an L1 contract address when it appears as a
// sender on L2.
var l1ToL2AliasOffset, _ = new(big.Int).SetString("1111000000000000000000000000000000001111", 16)

const arbSysABI = `[
{"inputs":[{"name":"destination","type":"address"}],"name":"withdrawEth","outputs":[{"name":"","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"anonymous":false,"inputs":[{"indexed":false,"name":"caller","type":"address"},{"indexed":true,"name":"destination","type":"address"},{"indexed":true,"name":"hash","type":"uint256"},{"indexed":true,"name":"position","type":"uint256"},{"indexed":false,"name":"arbBlockNum","type":"uint256"},{"indexed":false,"name":"ethBlockNum","type":"uint256"},{"indexed":false,"name":"timestamp","type":"uint256"},{"indexed":false,"name":"callvalue","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"L2ToL1Tx","type":"event"}
]`

const inboxABI = `[
{"inputs":[],"name":"depositEth","outputs":[{"name":"","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"dataLength","type":"uint256"},{"name":"baseFee","type":"uint256"}],"name":"calculateRetryableSubmissionFee","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"messageNum","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"InboxMessageDelivered","type":"event"}
]`

const bridgeABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"messageIndex","type":"uint256"},{"indexed":true,"name":"beforeInboxAcc","type":"bytes32"},{"indexed":false,"name":"inbox","type":"address"},{"indexed":false,"name":"kind","type":"uint8"},{"indexed":false,"name":"sender","type":"address"},{"indexed":false,"name":"messageDataHash","type":"bytes32"},{"indexed":false,"name":"baseFeeL1","type":"uint256"},{"indexed":false,"name":"timestamp","type":"uint64"}],"name":"MessageDelivered","type":"event"}
]`

// Message kind tag for plain ETH deposits in MessageDelivered.
const ethDepositMessageKind = 12

const l1GatewayRouterABI = `[
{"inputs":[{"name":"_token","type":"address"},{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_maxGas","type":"uint256"},{"name":"_gasPriceBid","type":"uint256"},{"name":"_data","type":"bytes"}],"name":"outboundTransfer","outputs":[{"name":"","type":"bytes"}],"stateMutability":"payable","type":"function"}
]`

const l2GatewayRouterABI = `[
{"inputs":[{"name":"_l1Token","type":"address"},{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_data","type":"bytes"}],"name":"outboundTransfer","outputs":[{"name":"","type":"bytes"}],"stateMutability":"payable","type":"function"}
]`

const l1ERC20GatewayABI = `[
{"anonymous":false,"inputs":[{"indexed":false,"name":"l1Token","type":"address"},{"indexed":true,"name":"_from","type":"address"},{"indexed":true,"name":"_to","type":"address"},{"indexed":true,"name":"_sequenceNumber","type":"uint256"},{"indexed":false,"name":"_amount","type":"uint256"}],"name":"DepositInitiated","type":"event"}
]`

const l2ERC20GatewayABI = `[
{"anonymous":false,"inputs":[{"indexed":false,"name":"l1Token","type":"address"},{"indexed":true,"name":"_from","type":"address"},{"indexed":true,"name":"_to","type":"address"},{"indexed":true,"name":"_l2ToL1Id","type":"uint256"},{"indexed":false,"name":"_exitNum","type":"uint256"},{"indexed":false,"name":"_amount","type":"uint256"}],"name":"WithdrawalInitiated","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"l1Token","type":"address"},{"indexed":true,"name":"_from","type":"address"},{"indexed":true,"name":"_to","type":"address"},{"indexed":false,"name":"_amount","type":"uint256"}],"name":"DepositFinalized","type":"event"}
]`

const outboxABI = `[
{"inputs":[{"name":"index","type":"uint256"}],"name":"isSpent","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"proof","type":"bytes32[]"},{"name":"index","type":"uint256"},{"name":"l2Sender","type":"address"},{"name":"to","type":"address"},{"name":"l2Block","type":"uint256"},{"name":"l1Block","type":"uint256"},{"name":"l2Timestamp","type":"uint256"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"name":"executeTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const rollupABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"nodeNum","type":"uint64"},{"indexed":false,"name":"blockHash","type":"bytes32"},{"indexed":false,"name":"sendRoot","type":"bytes32"}],"name":"NodeConfirmed","type":"event"}
]`

const nodeInterfaceABI = `[
{"inputs":[{"name":"sender","type":"address"},{"name":"deposit","type":"uint256"},{"name":"to","type":"address"},{"name":"l2CallValue","type":"uint256"},{"name":"excessFeeRefundAddress","type":"address"},{"name":"callValueRefundAddress","type":"address"},{"name":"data","type":"bytes"}],"name":"estimateRetryableTicket","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"size","type":"uint64"},{"name":"leaf","type":"uint64"}],"name":"constructOutboxProof","outputs":[{"name":"send","type":"bytes32"},{"name":"root","type":"bytes32"},{"name":"proof","type":"bytes32[]"}],"stateMutability":"view","type":"function"}
]`

var (
	arbSysContract    = chain.NewContract(chain.MustABI(arbSysABI))
	inboxContract     = chain.NewContract(chain.MustABI(inboxABI))
	bridgeContract    = chain.NewContract(chain.MustABI(bridgeABI))
	l1RouterContract  = chain.NewContract(chain.MustABI(l1GatewayRouterABI))
	l2RouterContract  = chain.NewContract(chain.MustABI(l2GatewayRouterABI))
	l1GatewayContract = chain.NewContract(chain.MustABI(l1ERC20GatewayABI))
	l2GatewayContract = chain.NewContract(chain.MustABI(l2ERC20GatewayABI))
	outboxContract    = chain.NewContract(chain.MustABI(outboxABI))
	rollupContract    = chain.NewContract(chain.MustABI(rollupABI))
	nodeIfaceContract = chain.NewContract(chain.MustABI(nodeInterfaceABI))
)

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)

	// routerDataArgs is the (maxSubmissionCost, extraData) pair the L1
	// gateway router expects in its data parameter.
	routerDataArgs = abi.Arguments{{Type: uint256Type}, {Type: bytesType}}
)

// packRouterData encodes the router's data parameter.
func packRouterData(maxSubmissionCost *big.Int) ([]byte, error) {
	return routerDataArgs.Pack(maxSubmissionCost, []byte{})
}

// l1ToL2Alias maps an L1 sender to the address it appears as on L2.
func l1ToL2Alias(addr common.Address) common.Address {
	sum := new(big.Int).Add(new(big.Int).SetBytes(addr.Bytes()), l1ToL2AliasOffset)
	return common.BigToAddress(sum)
}

// l2ToL1Alias inverts l1ToL2Alias.
func l2ToL1Alias(addr common.Address) common.Address {
	diff := new(big.Int).Sub(new(big.Int).SetBytes(addr.Bytes()), l1ToL2AliasOffset)
	if diff.Sign() < 0 {
		diff.Add(diff, new(big.Int).Lsh(big.NewInt(1), 160))
	}
	return common.BigToAddress(diff)
}
