package chain

import (
	"context"
	"math/big"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/constellation-labs/bridgeclient/core"
	"github.com/constellation-labs/bridgeclient/internal/constant"
	"github.com/constellation-labs/bridgeclient/pkg/ethclient"
)

// Sender is the broadcast surface the adapters depend on. TxSender is the
// live implementation.
type Sender interface {
	Send(ctx context.Context, signer core.Signer, to *common.Address, value *big.Int, input []byte, gasLimit uint64) (*types.Transaction, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// TxSender builds, signs and broadcasts transactions against one chain.
type TxSender struct {
	client *ethclient.Client
	log    log15.Logger
}

var _ Sender = &TxSender{}

func NewTxSender(client *ethclient.Client, logger log15.Logger) *TxSender {
	return &TxSender{client: client, log: logger}
}

// Send broadcasts a transaction signed by the given signer. A zero gasLimit
// triggers estimation; callers with protocol-specific padding pass their own
// limit.
func (s *TxSender) Send(ctx context.Context, signer core.Signer, to *common.Address, value *big.Int, input []byte, gasLimit uint64) (*types.Transaction, error) {
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	from := signer.Address()
	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errors.Wrap(err, "nonce")
	}

	if gasLimit == 0 {
		gasLimit, err = s.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    to,
			Value: value,
			Data:  input,
		})
		if err != nil {
			s.log.Error("EstimateGas failed", "to", to, "err", err)
			return nil, err
		}
	}

	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "head")
	}

	var td types.TxData
	if head.BaseFee != nil {
		gasTipCap, err := s.client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "tip cap")
		}
		gasFeeCap := new(big.Int).Add(gasTipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		td = &types.DynamicFeeTx{
			Nonce:     nonce,
			Value:     value,
			To:        to,
			Gas:       gasLimit,
			GasTipCap: gasTipCap,
			GasFeeCap: gasFeeCap,
			Data:      input,
		}
	} else {
		gasPrice, err := s.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "gas price")
		}
		td = &types.LegacyTx{
			Nonce:    nonce,
			Value:    value,
			To:       to,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     input,
		}
	}

	signedTx, err := signer.SignTx(types.NewTx(td), chainID)
	if err != nil {
		return nil, errors.Wrap(err, "sign tx")
	}
	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		s.log.Error("SendTransaction failed", "hash", signedTx.Hash(), "err", err)
		return nil, err
	}
	s.log.Debug("Transaction broadcast", "hash", signedTx.Hash(), "nonce", nonce, "gasLimit", gasLimit)
	return signedTx, nil
}

// WaitMined polls for the receipt of a broadcast transaction with constant
// backoff, bounded by the retry limit.
func (s *TxSender) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	backoff := retry.WithMaxRetries(constant.TxRetryLimit, retry.NewConstant(constant.TxRetryInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := s.client.TransactionReceipt(ctx, hash)
		if err != nil {
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "receipt for %s", hash.Hex())
	}
	return receipt, nil
}
