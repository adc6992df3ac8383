// Package erc20 wraps the handful of token calls the bridge needs:
// allowance checks before transfers, balances for display, and approvals
// targeting a bridge or gateway contract.
package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/chain"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

const abiJSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var contract = chain.NewContract(chain.MustABI(abiJSON))

// MaxApproval is the unlimited-allowance sentinel (2^256 - 1).
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func Allowance(ctx context.Context, client *ethclient.Client, token, owner, spender common.Address) (*big.Int, error) {
	out := new(big.Int)
	err := contract.Call(ctx, client, token, &out, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func BalanceOf(ctx context.Context, client *ethclient.Client, token, account common.Address) (*big.Int, error) {
	out := new(big.Int)
	err := contract.Call(ctx, client, token, &out, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve broadcasts an approval for spender. A nil amount grants the
// unlimited allowance.
func Approve(ctx context.Context, sender *chain.TxSender, signer core.Signer, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if amount == nil {
		amount = MaxApproval
	}
	input, err := contract.Pack("approve", spender, amount)
	if err != nil {
		return nil, err
	}
	return sender.Send(ctx, signer, &token, nil, input, 0)
}
