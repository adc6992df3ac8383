package constant

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TxRetryInterval    = time.Second * 5   // TxRetryInterval Time between retrying a receipt lookup
	TxRetryLimit       = 10                // TxRetryLimit Maximum number of receipt lookups before giving up
	StatusPollInterval = time.Second * 10  // StatusPollInterval Time between history status refreshes
	HttpTimeOut        = 10 * time.Second  // HttpTimeOut Bound on dialing an rpc endpoint
	Agent              = "bridgeclient-go" // Agent User agent sent with rpc requests
)

// User-input and orchestration errors. These are reported to the caller,
// never retried.
var (
	ErrInvalidAmount   = errors.New("amount is zero or unparseable")
	ErrMissingSigner   = errors.New("no signer connected")
	ErrWrongNetwork    = errors.New("signer connected to wrong network")
	ErrNotActionable   = errors.New("message has no next step")
	ErrPhaseNotReady   = errors.New("withdrawal phase precondition not met")
	ErrNotReadyForRelay = errors.New("message not ready for relay")
)

var (
	// ZeroAddress marks the native asset on either side of a token pair.
	ZeroAddress = common.Address{}

	// DefaultDecimals applies when a token carries no decimal information.
	DefaultDecimals int32 = 18
)

const ReceiptStatusSuccessful = uint64(1)
