package ethclient

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block mirrors eth_getBlockByHash output, keeping the nitro-only header
// fields that go-ethereum's typed header drops.
type Block struct {
	Hash          string `json:"hash"`
	Number        string `json:"number"`
	ParentHash    string `json:"parentHash"`
	Timestamp     string `json:"timestamp"`
	L1BlockNumber string `json:"l1BlockNumber"`
	SendCount     string `json:"sendCount"`
	SendRoot      string `json:"sendRoot"`
	StateRoot     string `json:"stateRoot"`
}

func (b *Block) NumberBig() *big.Int {
	v, _ := hexutil.DecodeBig(b.Number)
	return v
}

func (b *Block) Time() uint64 {
	v, err := hexutil.DecodeUint64(b.Timestamp)
	if err != nil {
		return 0
	}
	return v
}

func (b *Block) SendCountBig() *big.Int {
	if b.SendCount == "" {
		return nil
	}
	v, _ := hexutil.DecodeBig(b.SendCount)
	return v
}

func (b *Block) BlockHash() common.Hash {
	return common.HexToHash(b.Hash)
}

// AccountProof is the eth_getProof response shape.
type AccountProof struct {
	Address      common.Address `json:"address"`
	AccountProof []string       `json:"accountProof"`
	Balance      *hexutil.Big   `json:"balance"`
	CodeHash     common.Hash    `json:"codeHash"`
	Nonce        hexutil.Uint64 `json:"nonce"`
	StorageHash  common.Hash    `json:"storageHash"`
	StorageProof []StorageProof `json:"storageProof"`
}

type StorageProof struct {
	Key   string       `json:"key"`
	Value *hexutil.Big `json:"value"`
	Proof []string     `json:"proof"`
}
