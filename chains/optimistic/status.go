package optimistic

import "github.com/constellation-labs/bridgeclient/core"

// Status is the cross-domain message status enumeration shared by deposits
// and withdrawals on optimistic-rollup bridges. The numeric codes are the
// canonical on-chain progression; they are strictly ordered from initiation
// to finality and never regress.
type Status int

const (
	UnconfirmedDeposit Status = iota
	FailedDeposit
	AwaitingStateRoot
	ReadyToProve
	InChallengePeriod
	ReadyForRelay
	Finalized
)

// StatusUnknown marks a message whose status lookup failed, e.g. because
// the log provider has pruned the originating logs. One bad lookup must not
// abort a whole history page.
const StatusUnknown Status = -1

var statusStrings = map[Status]string{
	UnconfirmedDeposit: "Unconfirmed Deposit",
	FailedDeposit:      "Failed Deposit",
	AwaitingStateRoot:  "Awaiting state root",
	ReadyToProve:       "Ready to prove",
	InChallengePeriod:  "In challenge period",
	ReadyForRelay:      "Ready for relay",
	Finalized:          "Finalized",
}

func (s Status) String() string {
	if v, ok := statusStrings[s]; ok {
		return v
	}
	return "Unknown"
}

// NextAction names the user-triggerable step for the given status, if any.
// Deposits advance without user action; only withdrawals have phases.
func (s Status) NextAction(isDeposit bool) (string, bool) {
	if isDeposit {
		return "", false
	}
	switch s {
	case ReadyToProve:
		return core.StepProve, true
	case ReadyForRelay:
		return core.StepFinalize, true
	}
	return "", false
}
