package registry

import (
	"fmt"
	"strings"
)

// Canonical default EVM RPC endpoints by chain ID.
// These values are used whenever neither a per-chain nor a shared RPC URL is configured.
var defaultRPCByChainID = map[int64]string{
	1:        "https://eth.llamarpc.com",
	10:       "https://mainnet.optimism.io",
	8453:     "https://mainnet.base.org",
	42161:    "https://arb1.arbitrum.io/rpc",
	48900:    "https://mainnet.zircuit.com",
	84532:    "https://sepolia.base.org",
	421614:   "https://sepolia-rollup.arbitrum.io/rpc",
	11155111: "https://ethereum-sepolia-rpc.publicnode.com",
	11155420: "https://sepolia.optimism.io",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	value, ok := defaultRPCByChainID[chainID]
	return value, ok
}

// ResolveRPCURL picks the per-chain override, then the shared URL, then the default.
func ResolveRPCURL(overrides map[int64]string, shared string, chainID int64) (string, error) {
	if v := strings.TrimSpace(overrides[chainID]); v != "" {
		return v, nil
	}
	if strings.TrimSpace(shared) != "" {
		return strings.TrimSpace(shared), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	return "", fmt.Errorf("no rpc configured for chain id %d; set rpc_url or rpc_urls.%d", chainID, chainID)
}
