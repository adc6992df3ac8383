// Package ethclient wraps the go-ethereum RPC client with the calls the
// bridge adapters need, plus raw block access for rollup-specific header
// fields that the standard client does not surface.
package ethclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	gethclient "github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/constellation-labs/bridgeclient/internal/constant"
)

type Client struct {
	c   *rpc.Client
	eth *gethclient.Client
}

func NewClient(c *rpc.Client) *Client {
	return &Client{c: c, eth: gethclient.NewClient(c)}
}

func Dial(rawurl string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constant.HttpTimeOut)
	defer cancel()
	return DialContext(ctx, rawurl)
}

func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialOptions(ctx, rawurl, rpc.WithHeader("User-Agent", constant.Agent))
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

func (ec *Client) Close() {
	ec.c.Close()
}

func (ec *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return ec.eth.ChainID(ctx)
}

func (ec *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return ec.eth.BlockNumber(ctx)
}

func (ec *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return ec.eth.HeaderByNumber(ctx, number)
}

func (ec *Client) HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	return ec.eth.HeaderByHash(ctx, hash)
}

func (ec *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return ec.eth.TransactionByHash(ctx, hash)
}

func (ec *Client) TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error) {
	return ec.eth.TransactionSender(ctx, tx, block, index)
}

func (ec *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return ec.eth.TransactionReceipt(ctx, txHash)
}

func (ec *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return ec.eth.BalanceAt(ctx, account, blockNumber)
}

func (ec *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return ec.eth.CodeAt(ctx, account, blockNumber)
}

func (ec *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return ec.eth.CallContract(ctx, msg, blockNumber)
}

func (ec *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return ec.eth.FilterLogs(ctx, q)
}

func (ec *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return ec.eth.PendingNonceAt(ctx, account)
}

func (ec *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return ec.eth.SuggestGasPrice(ctx)
}

func (ec *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return ec.eth.SuggestGasTipCap(ctx)
}

func (ec *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return ec.eth.EstimateGas(ctx, msg)
}

func (ec *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return ec.eth.SendTransaction(ctx, tx)
}

// GetProof fetches a Merkle-Patricia account/storage proof (eth_getProof).
// The standard client omits it and withdrawal proving needs it.
func (ec *Client) GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*AccountProof, error) {
	var res AccountProof
	err := ec.c.CallContext(ctx, &res, "eth_getProof", account, keys, toBlockNumArg(blockNumber))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RawBlockByHash returns a block with the rollup-specific header fields
// (sendCount, sendRoot, l1BlockNumber) that nitro nodes attach.
func (ec *Client) RawBlockByHash(ctx context.Context, hash common.Hash) (*Block, error) {
	var blk Block
	err := ec.c.CallContext(ctx, &blk, "eth_getBlockByHash", hash, false)
	if err != nil {
		return nil, err
	}
	if blk.Hash == "" {
		return nil, ethereum.NotFound
	}
	return &blk, nil
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return rpc.BlockNumber(number.Int64()).String()
}
