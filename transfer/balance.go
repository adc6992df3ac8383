package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/config"
	"github.com/constellation-labs/bridgeclient/internal/erc20"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

// NativeDepositFee estimates the L1 fee of a plain native-asset deposit at
// the given gas price, for display before submission.
func NativeDepositFee(gasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(gasPrice, big.NewInt(config.GasPerNativeDeposit))
}

// TokenBalances returns the address's [L1, L2] balances for the token,
// native or ERC-20 per side. Each side uses its own endpoint from the token
// descriptor.
func TokenBalances(ctx context.Context, address common.Address, token *config.Token) ([2]*big.Int, error) {
	var out [2]*big.Int
	for i, isL1 := range []bool{true, false} {
		side := token.Side(isL1)
		client, err := ethclient.DialContext(ctx, side.RPCURL)
		if err != nil {
			return out, errors.Wrapf(err, "dial %s", side.Name)
		}
		var bal *big.Int
		if token.IsNative {
			bal, err = client.BalanceAt(ctx, address, nil)
		} else {
			bal, err = erc20.BalanceOf(ctx, client, side.Address, address)
		}
		client.Close()
		if err != nil {
			return out, errors.Wrapf(err, "balance on %s", side.Name)
		}
		out[i] = bal
	}
	return out, nil
}
