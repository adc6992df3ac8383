package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const optimisticJSON = `{
  "tokens": [
    {
      "tokenName": "ETH",
      "l1": {"chainId": 1, "address": "0x0000000000000000000000000000000000000000", "name": "Ether", "symbol": "ETH", "rpcURL": "http://l1:8545"},
      "l2": {"chainId": 10, "address": "0x0000000000000000000000000000000000000000", "name": "Ether", "symbol": "ETH", "rpcURL": "http://l2:8545"},
      "decimals": 18,
      "isNative": true
    },
    {
      "tokenName": "USDC",
      "l1": {"chainId": 1, "address": "0x1000000000000000000000000000000000000001", "name": "USD Coin", "symbol": "USDC", "rpcURL": "http://l1:8545", "decimals": 6},
      "l2": {"chainId": 10, "address": "0x2000000000000000000000000000000000000002", "name": "USD Coin", "symbol": "USDC", "rpcURL": "http://l2:8545"},
      "decimals": 18,
      "isNative": false
    }
  ],
  "bridgeConfig": {
    "type": "optimistic",
    "addressManager": "0x3000000000000000000000000000000000000003",
    "l1CrossDomainMessenger": "0x4000000000000000000000000000000000000004",
    "l1StandardBridge": "0x5000000000000000000000000000000000000005",
    "optimismPortal": "0x6000000000000000000000000000000000000006",
    "l2OutputOracle": "0x7000000000000000000000000000000000000007",
    "l1ChainId": 1,
    "l2ChainId": 10,
    "l1RPCUrl": "http://l1:8545",
    "l2RPCUrl": "http://l2:8545"
  }
}`

const nitroBridgeJSON = `{
  "type": "nitro",
  "l1ChainId": 1,
  "l2ChainId": 42161,
  "l1RPCUrl": "http://l1:8545",
  "l2RPCUrl": "http://l2:8545",
  "bridge": "0x1000000000000000000000000000000000000001",
  "inbox": "0x2000000000000000000000000000000000000002",
  "outbox": "0x3000000000000000000000000000000000000003",
  "rollup": "0x4000000000000000000000000000000000000004",
  "sequencerInbox": "0x5000000000000000000000000000000000000005",
  "l1CustomGateway": "0x6000000000000000000000000000000000000006",
  "l1ERC20Gateway": "0x7000000000000000000000000000000000000007",
  "l1GatewayRouter": "0x8000000000000000000000000000000000000008",
  "l2CustomGateway": "0x9000000000000000000000000000000000000009",
  "l2ERC20Gateway": "0xa00000000000000000000000000000000000000a",
  "l2GatewayRouter": "0xb00000000000000000000000000000000000000b"
}`

func TestConfigUnmarshal(t *testing.T) {
	cfg := new(Config)
	require.NoError(t, json.Unmarshal([]byte(optimisticJSON), cfg))
	require.Len(t, cfg.Tokens, 2)
	require.Equal(t, Optimistic, cfg.Bridge.Type)
	require.NotNil(t, cfg.Bridge.Optimistic)
	require.Nil(t, cfg.Bridge.Nitro)
	require.True(t, cfg.Bridge.Optimistic.Bedrock())
	require.NoError(t, cfg.Bridge.Validate())

	for _, tok := range cfg.Tokens {
		require.NoError(t, tok.Validate())
	}
}

func TestNitroUnmarshal(t *testing.T) {
	var b BridgeConfig
	require.NoError(t, json.Unmarshal([]byte(nitroBridgeJSON), &b))
	require.Equal(t, Nitro, b.Type)
	require.NotNil(t, b.Nitro)
	require.NoError(t, b.Validate())
	require.Equal(t, uint64(DefaultDepositGasPadding), b.Nitro.Padding())
}

func TestBridgeConfigUnknownType(t *testing.T) {
	var b BridgeConfig
	err := json.Unmarshal([]byte(`{"type": "zk"}`), &b)
	require.Error(t, err)
}

func TestDecimalsFor(t *testing.T) {
	six := int32(6)
	tok := &Token{
		TokenName: "USDC",
		L1:        TokenInfo{Decimals: &six},
		Decimals:  18,
	}
	tests := []struct {
		name  string
		token *Token
		isL1  bool
		want  int32
	}{
		{name: "l1 override", token: tok, isL1: true, want: 6},
		{name: "l2 default", token: tok, isL1: false, want: 18},
		{name: "nil token", token: nil, isL1: true, want: 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.DecimalsFor(tt.isL1); got != tt.want {
				t.Errorf("DecimalsFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNativeTokenValidation(t *testing.T) {
	cfg := new(Config)
	require.NoError(t, json.Unmarshal([]byte(optimisticJSON), cfg))
	tok := cfg.Tokens[1]
	tok.IsNative = true
	require.Error(t, tok.Validate())
}
