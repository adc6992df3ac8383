package transfer

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/chain"
	"github.com/constellation-labs/bridgeclient/internal/erc20"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

// approver isolates the allowance/approval chain calls so the orchestration
// flow can be exercised without an RPC endpoint.
type approver interface {
	Allowance(ctx context.Context, token *config.Token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, signer core.Signer, token *config.Token, spender common.Address) (*types.Receipt, error)
}

// rpcApprover runs approvals against the token's L1 endpoint, constructing
// a fresh client per call. Approvals grant the unlimited allowance.
type rpcApprover struct {
	log log15.Logger
}

func (r *rpcApprover) Allowance(ctx context.Context, token *config.Token, owner, spender common.Address) (*big.Int, error) {
	client, err := ethclient.DialContext(ctx, token.L1.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial l1")
	}
	defer client.Close()
	return erc20.Allowance(ctx, client, token.L1.Address, owner, spender)
}

func (r *rpcApprover) Approve(ctx context.Context, signer core.Signer, token *config.Token, spender common.Address) (*types.Receipt, error) {
	client, err := ethclient.DialContext(ctx, token.L1.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial l1")
	}
	defer client.Close()

	sender := chain.NewTxSender(client, r.log.New("op", "approve"))
	tx, err := erc20.Approve(ctx, sender, signer, token.L1.Address, spender, nil)
	if err != nil {
		return nil, err
	}
	return sender.WaitMined(ctx, tx.Hash())
}
