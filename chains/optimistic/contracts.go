package optimistic

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/constellation-labs/bridgeclient/internal/chain"
)

// L2 predeploys shared by every optimistic-rollup deployment.
var (
	L2CrossDomainMessenger = common.HexToAddress("0x4200000000000000000000000000000000000007")
	L2StandardBridge       = common.HexToAddress("0x4200000000000000000000000000000000000010")
	L2ToL1MessagePasser    = common.HexToAddress("0x4200000000000000000000000000000000000016")
	// LegacyERC20ETH is the token address the L2 bridge uses for the
	// native asset on the withdrawal entry point.
	LegacyERC20ETH = common.HexToAddress("0xDeadDeaD00000000000000000000000000000000")
)

const (
	// minGasLimit forwarded with bridge messages; matches the default the
	// bridge frontends pass.
	receiveDefaultGasLimit = 200000
)

const l1StandardBridgeABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"extraData","type":"bytes"}],"name":"ETHDepositInitiated","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"l1Token","type":"address"},{"indexed":true,"name":"l2Token","type":"address"},{"indexed":true,"name":"from","type":"address"},{"indexed":false,"name":"to","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"extraData","type":"bytes"}],"name":"ERC20DepositInitiated","type":"event"},
{"inputs":[{"name":"_minGasLimit","type":"uint32"},{"name":"_extraData","type":"bytes"}],"name":"depositETH","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"_l1Token","type":"address"},{"name":"_l2Token","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_minGasLimit","type":"uint32"},{"name":"_extraData","type":"bytes"}],"name":"depositERC20","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const l2StandardBridgeABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"l1Token","type":"address"},{"indexed":true,"name":"l2Token","type":"address"},{"indexed":true,"name":"from","type":"address"},{"indexed":false,"name":"to","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"extraData","type":"bytes"}],"name":"WithdrawalInitiated","type":"event"},
{"inputs":[{"name":"_l2Token","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_minGasLimit","type":"uint32"},{"name":"_extraData","type":"bytes"}],"name":"withdraw","outputs":[],"stateMutability":"payable","type":"function"}
]`

const crossDomainMessengerABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"target","type":"address"},{"indexed":false,"name":"sender","type":"address"},{"indexed":false,"name":"message","type":"bytes"},{"indexed":false,"name":"messageNonce","type":"uint256"},{"indexed":false,"name":"gasLimit","type":"uint256"}],"name":"SentMessage","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"SentMessageExtension1","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"msgHash","type":"bytes32"}],"name":"RelayedMessage","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"msgHash","type":"bytes32"}],"name":"FailedRelayedMessage","type":"event"},
{"inputs":[{"name":"_nonce","type":"uint256"},{"name":"_sender","type":"address"},{"name":"_target","type":"address"},{"name":"_value","type":"uint256"},{"name":"_minGasLimit","type":"uint256"},{"name":"_message","type":"bytes"}],"name":"relayMessage","outputs":[],"stateMutability":"payable","type":"function"}
]`

// Pre-bedrock messenger; relayMessage has the v0 argument order and there is
// no value extension event.
const legacyMessengerABI = `[
{"inputs":[{"name":"_target","type":"address"},{"name":"_sender","type":"address"},{"name":"_message","type":"bytes"},{"name":"_messageNonce","type":"uint256"}],"name":"relayMessage","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const messagePasserABI = `[
{"anonymous":false,"inputs":[{"indexed":true,"name":"nonce","type":"uint256"},{"indexed":true,"name":"sender","type":"address"},{"indexed":true,"name":"target","type":"address"},{"indexed":false,"name":"value","type":"uint256"},{"indexed":false,"name":"gasLimit","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"},{"indexed":false,"name":"withdrawalHash","type":"bytes32"}],"name":"MessagePassed","type":"event"}
]`

const portalABI = `[
{"inputs":[{"name":"","type":"bytes32"}],"name":"provenWithdrawals","outputs":[{"name":"outputRoot","type":"bytes32"},{"name":"timestamp","type":"uint128"},{"name":"l2OutputIndex","type":"uint128"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"","type":"bytes32"}],"name":"finalizedWithdrawals","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"components":[{"name":"nonce","type":"uint256"},{"name":"sender","type":"address"},{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"gasLimit","type":"uint256"},{"name":"data","type":"bytes"}],"name":"_tx","type":"tuple"},{"name":"_l2OutputIndex","type":"uint256"},{"components":[{"name":"version","type":"bytes32"},{"name":"stateRoot","type":"bytes32"},{"name":"messagePasserStorageRoot","type":"bytes32"},{"name":"latestBlockhash","type":"bytes32"}],"name":"_outputRootProof","type":"tuple"},{"name":"_withdrawalProof","type":"bytes[]"}],"name":"proveWithdrawalTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"components":[{"name":"nonce","type":"uint256"},{"name":"sender","type":"address"},{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"gasLimit","type":"uint256"},{"name":"data","type":"bytes"}],"name":"_tx","type":"tuple"}],"name":"finalizeWithdrawalTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const outputOracleABI = `[
{"inputs":[],"name":"latestBlockNumber","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_l2BlockNumber","type":"uint256"}],"name":"getL2OutputIndexAfter","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"_l2OutputIndex","type":"uint256"}],"name":"getL2Output","outputs":[{"components":[{"name":"outputRoot","type":"bytes32"},{"name":"timestamp","type":"uint128"},{"name":"l2BlockNumber","type":"uint128"}],"name":"","type":"tuple"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"FINALIZATION_PERIOD_SECONDS","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const stateCommitmentChainABI = `[
{"inputs":[],"name":"getTotalElements","outputs":[{"name":"_totalElements","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"FRAUD_PROOF_WINDOW","outputs":[{"name":"_fraudProofWindow","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	l1BridgeContract  = chain.NewContract(chain.MustABI(l1StandardBridgeABI))
	l2BridgeContract  = chain.NewContract(chain.MustABI(l2StandardBridgeABI))
	messengerContract = chain.NewContract(chain.MustABI(crossDomainMessengerABI))
	legacyMessenger   = chain.NewContract(chain.MustABI(legacyMessengerABI))
	passerContract    = chain.NewContract(chain.MustABI(messagePasserABI))
	portalContract    = chain.NewContract(chain.MustABI(portalABI))
	oracleContract    = chain.NewContract(chain.MustABI(outputOracleABI))
	sccContract       = chain.NewContract(chain.MustABI(stateCommitmentChainABI))
)
