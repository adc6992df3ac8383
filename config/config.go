// Package config owns the per-tenant session configuration: the token list
// and the bridge contract deployment the adapters talk to. Loaded once at
// startup and immutable afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/constellation-labs/bridgeclient/internal/constant"
)

// GasPerNativeDeposit is the observed gas cost of a plain native-asset
// deposit, used by fee display helpers.
const GasPerNativeDeposit = 142589

// DefaultDepositGasPadding compensates for the live retryable-ticket gas
// estimate under-pricing ERC-20 deposits on nitro rollups. Empirical.
const DefaultDepositGasPadding = 200000

type BridgeType string

const (
	Optimistic BridgeType = "optimistic"
	Nitro      BridgeType = "nitro"
)

// TokenInfo describes one side of a bridged asset pair.
type TokenInfo struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	LogoURI  string         `json:"logoURI"`
	RPCURL   string         `json:"rpcURL"`
	Decimals *int32         `json:"decimals,omitempty"` // overrides Token.Decimals for this side
}

// Token is a logical asset pair selectable by the user. Immutable after load.
type Token struct {
	TokenName string    `json:"tokenName"`
	L1        TokenInfo `json:"l1"`
	L2        TokenInfo `json:"l2"`
	Decimals  int32     `json:"decimals"`
	IsNative  bool      `json:"isNative"`
}

// Side returns the L1 or L2 descriptor.
func (t *Token) Side(isL1 bool) *TokenInfo {
	if isL1 {
		return &t.L1
	}
	return &t.L2
}

// DecimalsFor resolves the decimal count for one side of the pair: the
// side-specific override wins, then the token default. A nil token resolves
// to 18 so display code never has to branch.
func (t *Token) DecimalsFor(isL1 bool) int32 {
	if t == nil {
		return constant.DefaultDecimals
	}
	if d := t.Side(isL1).Decimals; d != nil {
		return *d
	}
	return t.Decimals
}

func (t *Token) Validate() error {
	if t.TokenName == "" {
		return errors.New("token missing tokenName")
	}
	if t.L1.RPCURL == "" || t.L2.RPCURL == "" {
		return fmt.Errorf("token %s missing rpc endpoint", t.TokenName)
	}
	if t.IsNative && (t.L1.Address != constant.ZeroAddress || t.L2.Address != constant.ZeroAddress) {
		return fmt.Errorf("native token %s must use the zero address on both sides", t.TokenName)
	}
	return nil
}

// OptimisticConfig is the contract set of an optimistic-rollup bridge
// deployment. Portal and output oracle are only present on the newer
// contract generation; their presence selects that code path.
type OptimisticConfig struct {
	AddressManager         common.Address `json:"addressManager"`
	L1CrossDomainMessenger common.Address `json:"l1CrossDomainMessenger"`
	L1StandardBridge       common.Address `json:"l1StandardBridge"`

	OptimismPortal common.Address `json:"optimismPortal,omitempty"`
	L2OutputOracle common.Address `json:"l2OutputOracle,omitempty"`

	StateCommitmentChain      common.Address `json:"stateCommitmentChain,omitempty"`
	CanonicalTransactionChain common.Address `json:"canonicalTransactionChain,omitempty"`
	BondManager               common.Address `json:"bondManager,omitempty"`

	L1ChainID uint64 `json:"l1ChainId"`
	L2ChainID uint64 `json:"l2ChainId"`
	L1RPCURL  string `json:"l1RPCUrl"`
	L2RPCURL  string `json:"l2RPCUrl"`

	L1ExplorerURL string `json:"l1ExplorerUrl,omitempty"`
	L2ExplorerURL string `json:"l2ExplorerUrl,omitempty"`
}

// Bedrock reports whether the deployment carries the newer contract
// generation.
func (c *OptimisticConfig) Bedrock() bool {
	return c.OptimismPortal != constant.ZeroAddress
}

func (c *OptimisticConfig) Validate() error {
	if c.L1StandardBridge == constant.ZeroAddress {
		return errors.New("optimistic config missing l1StandardBridge")
	}
	if c.L1CrossDomainMessenger == constant.ZeroAddress {
		return errors.New("optimistic config missing l1CrossDomainMessenger")
	}
	if !c.Bedrock() && c.StateCommitmentChain == constant.ZeroAddress {
		return errors.New("optimistic config needs either optimismPortal or stateCommitmentChain")
	}
	return nil
}

// NitroConfig is the contract set of an Arbitrum-Nitro-style bridge
// deployment.
type NitroConfig struct {
	L1ChainID uint64 `json:"l1ChainId"`
	L2ChainID uint64 `json:"l2ChainId"`
	L1RPCURL  string `json:"l1RPCUrl"`
	L2RPCURL  string `json:"l2RPCUrl"`

	L1ExplorerURL string `json:"l1ExplorerUrl,omitempty"`
	L2ExplorerURL string `json:"l2ExplorerUrl,omitempty"`

	Bridge         common.Address `json:"bridge"`
	Inbox          common.Address `json:"inbox"`
	Outbox         common.Address `json:"outbox"`
	Rollup         common.Address `json:"rollup"`
	SequencerInbox common.Address `json:"sequencerInbox"`

	L1CustomGateway common.Address `json:"l1CustomGateway"`
	L1ERC20Gateway  common.Address `json:"l1ERC20Gateway"`
	L1GatewayRouter common.Address `json:"l1GatewayRouter"`
	L1Weth          common.Address `json:"l1Weth"`
	L1WethGateway   common.Address `json:"l1WethGateway"`
	L2CustomGateway common.Address `json:"l2CustomGateway"`
	L2ERC20Gateway  common.Address `json:"l2ERC20Gateway"`
	L2GatewayRouter common.Address `json:"l2GatewayRouter"`
	L2Weth          common.Address `json:"l2Weth"`
	L2WethGateway   common.Address `json:"l2WethGateway"`

	// DepositGasPadding overrides DefaultDepositGasPadding when non-zero.
	DepositGasPadding uint64 `json:"depositGasPadding,omitempty"`
}

func (c *NitroConfig) Padding() uint64 {
	if c.DepositGasPadding != 0 {
		return c.DepositGasPadding
	}
	return DefaultDepositGasPadding
}

func (c *NitroConfig) Validate() error {
	if c.L1ChainID == 0 || c.L2ChainID == 0 {
		return errors.New("nitro config missing chain ids")
	}
	for _, f := range []struct {
		name string
		addr common.Address
	}{
		{"bridge", c.Bridge},
		{"inbox", c.Inbox},
		{"outbox", c.Outbox},
		{"rollup", c.Rollup},
		{"l1ERC20Gateway", c.L1ERC20Gateway},
		{"l2ERC20Gateway", c.L2ERC20Gateway},
	} {
		if f.addr == constant.ZeroAddress {
			return fmt.Errorf("nitro config missing %s", f.name)
		}
	}
	return nil
}

// BridgeConfig is a tagged union over the two supported deployments.
// Exactly one variant is populated per session.
type BridgeConfig struct {
	Type       BridgeType
	Optimistic *OptimisticConfig
	Nitro      *NitroConfig
}

func (b *BridgeConfig) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type BridgeType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	b.Type = tag.Type
	switch tag.Type {
	case Optimistic:
		b.Optimistic = new(OptimisticConfig)
		return json.Unmarshal(data, b.Optimistic)
	case Nitro:
		b.Nitro = new(NitroConfig)
		return json.Unmarshal(data, b.Nitro)
	default:
		return fmt.Errorf("unknown bridge type %q", tag.Type)
	}
}

// ChainIDs returns the (L1, L2) chain ids of the active variant.
func (b *BridgeConfig) ChainIDs() (uint64, uint64) {
	switch b.Type {
	case Optimistic:
		if b.Optimistic != nil {
			return b.Optimistic.L1ChainID, b.Optimistic.L2ChainID
		}
	case Nitro:
		if b.Nitro != nil {
			return b.Nitro.L1ChainID, b.Nitro.L2ChainID
		}
	}
	return 0, 0
}

func (b *BridgeConfig) Validate() error {
	switch b.Type {
	case Optimistic:
		if b.Optimistic == nil {
			return errors.New("optimistic config missing")
		}
		return b.Optimistic.Validate()
	case Nitro:
		if b.Nitro == nil {
			return errors.New("nitro config missing")
		}
		return b.Nitro.Validate()
	}
	return fmt.Errorf("unknown bridge type %q", b.Type)
}

// Config is the full tenant session configuration.
type Config struct {
	Tokens []*Token     `json:"tokens"`
	Bridge BridgeConfig `json:"bridgeConfig"`
}

// Token looks a token up by name.
func (c *Config) Token(name string) (*Token, bool) {
	for _, t := range c.Tokens {
		if t.TokenName == name {
			return t, true
		}
	}
	return nil, false
}

// Load reads and validates a JSON configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := new(Config)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if len(cfg.Tokens) == 0 {
		return nil, errors.New("config has no tokens")
	}
	for _, t := range cfg.Tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Bridge.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
