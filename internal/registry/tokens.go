package registry

// TableVersion identifies the revision of the built-in token table.
const TableVersion = "2024.10.1"

var defaultChains = []Chain{
	{ID: 1, Slug: "ethereum", Label: "Ethereum", Network: NetworkMainnet},
	{ID: 8453, Slug: "base", Label: "Base", Network: NetworkMainnet},
	{ID: 10, Slug: "optimism", Label: "Optimism", Network: NetworkMainnet},
	{ID: 42161, Slug: "arbitrum", Label: "Arbitrum", Network: NetworkMainnet},
	{ID: 48900, Slug: "zircuit", Label: "Zircuit", Network: NetworkMainnet},
	{ID: 11155111, Slug: "sepolia", Label: "Sepolia", Network: NetworkTestnet},
	{ID: 84532, Slug: "base-sepolia", Label: "Base Sepolia", Network: NetworkTestnet},
	{ID: 11155420, Slug: "optimism-sepolia", Label: "Optimism Sepolia", Network: NetworkTestnet},
	{ID: 421614, Slug: "arbitrum-sepolia", Label: "Arbitrum Sepolia", Network: NetworkTestnet},
}

var defaultTokens = []TokenEntry{
	{Symbol: "ETH", ChainID: 1, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet},
	{Symbol: "WETH", ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Network: NetworkMainnet},
	{Symbol: "USDC", ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606EB48", Decimals: 6, Network: NetworkMainnet},
	{Symbol: "USDT", ChainID: 1, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6, Network: NetworkMainnet},

	{Symbol: "ETH", ChainID: 8453, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet},
	{Symbol: "WETH", ChainID: 8453, Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Network: NetworkMainnet},
	{Symbol: "USDC", ChainID: 8453, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6, Network: NetworkMainnet},

	{Symbol: "ETH", ChainID: 10, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet},
	{Symbol: "USDC", ChainID: 10, Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6, Network: NetworkMainnet},

	{Symbol: "ETH", ChainID: 42161, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet},
	{Symbol: "USDC", ChainID: 42161, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6, Network: NetworkMainnet},

	{Symbol: "ETH", ChainID: 48900, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet},

	{Symbol: "ETH", ChainID: 11155111, Address: NativeAssetAddress, Decimals: 18, Network: NetworkTestnet},
	{Symbol: "USDC", ChainID: 11155111, Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Decimals: 6, Network: NetworkTestnet},

	{Symbol: "ETH", ChainID: 84532, Address: NativeAssetAddress, Decimals: 18, Network: NetworkTestnet},
	{Symbol: "USDC", ChainID: 84532, Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Decimals: 6, Network: NetworkTestnet},

	{Symbol: "ETH", ChainID: 11155420, Address: NativeAssetAddress, Decimals: 18, Network: NetworkTestnet},
	{Symbol: "USDC", ChainID: 11155420, Address: "0x5fd84259d66Cd46123540766Be93DFE6D43130D7", Decimals: 6, Network: NetworkTestnet},

	{Symbol: "ETH", ChainID: 421614, Address: NativeAssetAddress, Decimals: 18, Network: NetworkTestnet},
	{Symbol: "USDC", ChainID: 421614, Address: "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d", Decimals: 6, Network: NetworkTestnet},
}

// Menu order is declaration order.
var defaultPairs = []PairSpec{
	{Src: "ETH@ethereum", Dst: "USDC@ethereum"},
	{Src: "USDC@ethereum", Dst: "ETH@ethereum"},
	{Src: "ETH@base", Dst: "USDC@base"},
	{Src: "ETH@ethereum", Dst: "USDC@base"},
	{Src: "USDC@arbitrum", Dst: "USDC@optimism"},
	{Src: "ETH@ethereum", Dst: "ETH@zircuit"},

	{Src: "ETH@sepolia", Dst: "USDC@sepolia"},
	{Src: "USDC@sepolia", Dst: "ETH@sepolia"},
	{Src: "ETH@base-sepolia", Dst: "USDC@base-sepolia"},
	{Src: "ETH@sepolia", Dst: "ETH@base-sepolia"},
	{Src: "USDC@arbitrum-sepolia", Dst: "USDC@optimism-sepolia"},
}

// DefaultTable returns a copy of the built-in table.
func DefaultTable() Table {
	t := Table{
		Version: TableVersion,
		Chains:  make([]Chain, len(defaultChains)),
		Tokens:  make([]TokenEntry, len(defaultTokens)),
		Pairs:   make([]PairSpec, len(defaultPairs)),
	}
	copy(t.Chains, defaultChains)
	copy(t.Tokens, defaultTokens)
	copy(t.Pairs, defaultPairs)
	return t
}

// Default builds the registry from the built-in table.
func Default() (*Registry, error) {
	return New(DefaultTable())
}
