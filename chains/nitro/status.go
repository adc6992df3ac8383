package nitro

import "github.com/constellation-labs/bridgeclient/core"

// The three nitro status vocabularies. Withdrawals share one lifecycle;
// deposits split by asset kind because native deposits skip the retryable
// ticket machinery entirely.

type WithdrawalStatus int

const (
	UnconfirmedWithdrawal WithdrawalStatus = iota
	ConfirmedWithdrawal
	ExecutedWithdrawal
)

type EthDepositStatus int

const (
	EthDepositPending EthDepositStatus = iota + 1
	EthDeposited
)

type DepositStatus int

const (
	DepositPending DepositStatus = iota + 1
	DepositFailed
	FundsDepositedOnL2
	Deposited
	DepositExpired
)

// StatusUnknown marks a message whose status lookup failed.
const StatusUnknown = -1

var withdrawalStrings = map[WithdrawalStatus]string{
	UnconfirmedWithdrawal: "Unconfirmed Withdrawal",
	ConfirmedWithdrawal:   "Confirmed Withdrawal",
	ExecutedWithdrawal:    "Executed Withdrawal",
}

var ethDepositStrings = map[EthDepositStatus]string{
	EthDepositPending: "Pending",
	EthDeposited:      "Deposited",
}

var depositStrings = map[DepositStatus]string{
	DepositPending:     "Pending",
	DepositFailed:      "Failed",
	FundsDepositedOnL2: "Funds Deposited on L2",
	Deposited:          "Deposited",
	DepositExpired:     "Expired",
}

func (s WithdrawalStatus) String() string {
	if v, ok := withdrawalStrings[s]; ok {
		return v
	}
	return "Unknown"
}

func (s EthDepositStatus) String() string {
	if v, ok := ethDepositStrings[s]; ok {
		return v
	}
	return "Unknown"
}

func (s DepositStatus) String() string {
	if v, ok := depositStrings[s]; ok {
		return v
	}
	return "Unknown"
}

// NextAction reports the single user-triggerable withdrawal step: execution
// once the rollup has confirmed the withdrawal's block.
func (s WithdrawalStatus) NextAction(isDeposit bool) (string, bool) {
	if isDeposit {
		return "", false
	}
	if s == ConfirmedWithdrawal {
		return core.StepFinalize, true
	}
	return "", false
}
