// Package notify is the fire-and-forget notification side channel between
// the bridge core and whatever surface is embedding it. Write-path failures
// are reported here instead of being returned, so a failed broadcast can
// never crash the caller.
package notify

import (
	"fmt"

	log "github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
)

type Severity int

const (
	Info Severity = iota
	Success
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "unknown"
}

type Notification struct {
	Severity Severity
	Message  string
	Link     string // optional block-explorer style link
}

// Sink consumes notifications. Implementations must not block.
type Sink interface {
	Notify(n Notification)
}

// Message catalogue shared by the adapters and the orchestrator.
const (
	MsgNonZero   = "Please enter a non-zero value"
	MsgSig       = "There was an error signing the transaction"
	MsgNoL1Addr  = "No L1 token address found"
	MsgNoL2Addr  = "No L2 token address found"
	MsgFailed    = "Transaction failed"
	MsgConfirmed = "Transaction confirmed"
)

// Submitted builds the "transaction submitted" notification with a
// shortened hash and an explorer-style link.
func Submitted(hash common.Hash, baseURL string) Notification {
	return Notification{
		Severity: Info,
		Message:  fmt.Sprintf("Transaction submitted: %s", ShortHash(hash)),
		Link:     TxURL(hash, baseURL),
	}
}

func Confirmed() Notification {
	return Notification{Severity: Success, Message: MsgConfirmed}
}

func Failed() Notification {
	return Notification{Severity: Warn, Message: MsgFailed}
}

// TxURL builds a transaction link off the given base URL.
func TxURL(hash common.Hash, baseURL string) string {
	return fmt.Sprintf("%s/tx/%s", baseURL, hash.Hex())
}

// ShortHash renders 0x1234…abcd style hashes for display.
func ShortHash(hash common.Hash) string {
	h := hash.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// LogSink routes notifications to a log15 logger. The CLI uses it in place
// of the web UI's toast system.
type LogSink struct {
	log log.Logger
}

func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{log: logger}
}

func (s *LogSink) Notify(n Notification) {
	ctx := []interface{}{}
	if n.Link != "" {
		ctx = append(ctx, "link", n.Link)
	}
	switch n.Severity {
	case Success:
		s.log.Info(n.Message, ctx...)
	case Warn:
		s.log.Warn(n.Message, ctx...)
	case Error:
		s.log.Error(n.Message, ctx...)
	default:
		s.log.Info(n.Message, ctx...)
	}
}
