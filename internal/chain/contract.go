// Package chain holds the EVM plumbing shared by both bridge backends:
// ABI-driven contract reads, log unpacking and transaction broadcast.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

// MustABI parses an embedded ABI JSON string at package init time.
func MustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

type Contract struct {
	abi abi.ABI
}

func NewContract(abi abi.ABI) *Contract {
	return &Contract{abi: abi}
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

// EventID returns the topic hash of the named event.
func (c *Contract) EventID(event string) common.Hash {
	return c.abi.Events[event].ID
}

// Pack encodes a method call.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	return c.abi.Pack(method, args...)
}

// Call performs a read-only contract call and unpacks the result into ret.
func (c *Contract) Call(ctx context.Context, client *ethclient.Client, to common.Address, ret interface{}, method string, args ...interface{}) error {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return err
	}
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return err
	}
	return c.abi.UnpackIntoInterface(ret, method, output)
}

// CallRaw is Call for methods with multiple return values.
func (c *Contract) CallRaw(ctx context.Context, client *ethclient.Client, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	return c.abi.Unpack(method, output)
}

// UnpackLog decodes both the data and indexed topics of a log into ret.
func (c *Contract) UnpackLog(ret interface{}, event string, log types.Log) error {
	if len(log.Topics) == 0 || log.Topics[0] != c.abi.Events[event].ID {
		return fmt.Errorf("event signature mismatch")
	}
	if len(log.Data) > 0 {
		if err := c.abi.UnpackIntoInterface(ret, event, log.Data); err != nil {
			return err
		}
	}
	var indexed abi.Arguments
	for _, arg := range c.abi.Events[event].Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(ret, indexed, log.Topics[1:])
}
