package registry

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/ggonzalez94/gud-quote/internal/id"
)

// Network groups chains into the menus shown to users.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

func (n Network) Valid() bool {
	return n == NetworkMainnet || n == NetworkTestnet
}

// NativeAssetAddress denotes a chain's native asset in token entries and pricing requests.
const NativeAssetAddress = "0x0000000000000000000000000000000000000000"

type Chain struct {
	ID      int64   `validate:"gt=0"`
	Slug    string  `validate:"required,lowercase,max=32"`
	Label   string  `validate:"required"`
	Network Network `validate:"oneof=mainnet testnet"`
}

// TokenEntry is immutable once the registry is built.
type TokenEntry struct {
	Symbol   string  `validate:"required,uppercase,max=16"`
	ChainID  int64   `validate:"gt=0"`
	Address  string  `validate:"required,eth_addr"`
	Decimals int     `validate:"gte=0,lte=36"`
	Network  Network `validate:"oneof=mainnet testnet"`

	key id.TokenKey
}

func (t TokenEntry) Key() id.TokenKey { return t.key }

func (t TokenEntry) IsNative() bool { return t.Address == NativeAssetAddress }

// CandidatePair is a curated menu entry. Key is the value carried by pair selection events.
type CandidatePair struct {
	Key     string
	Src     id.TokenKey
	Dst     id.TokenKey
	Label   string
	Network Network
}

type PairSpec struct {
	Src string
	Dst string
}

// Table is the declarative input a Registry is built from.
type Table struct {
	Version string
	Chains  []Chain
	Tokens  []TokenEntry
	Pairs   []PairSpec
}

type Registry struct {
	version   string
	chains    map[int64]Chain
	chainList []Chain
	tokens    map[id.TokenKey]TokenEntry
	pairs     map[Network][]CandidatePair
	pairByKey map[string]CandidatePair
}

var validate = validator.New()

// New validates table and builds the registry. Any integrity failure is a fatal
// configuration error.
func New(table Table) (*Registry, error) {
	r := &Registry{
		version:   table.Version,
		chains:    make(map[int64]Chain, len(table.Chains)),
		tokens:    make(map[id.TokenKey]TokenEntry, len(table.Tokens)),
		pairs:     make(map[Network][]CandidatePair),
		pairByKey: make(map[string]CandidatePair, len(table.Pairs)),
	}
	slugs := make(map[string]int64, len(table.Chains))
	for _, chain := range table.Chains {
		if err := validate.Struct(chain); err != nil {
			return nil, fmt.Errorf("chain %d: %w", chain.ID, err)
		}
		if _, dup := r.chains[chain.ID]; dup {
			return nil, fmt.Errorf("duplicate chain id %d", chain.ID)
		}
		if other, dup := slugs[chain.Slug]; dup {
			return nil, fmt.Errorf("chain slug %q used by %d and %d", chain.Slug, other, chain.ID)
		}
		slugs[chain.Slug] = chain.ID
		r.chains[chain.ID] = chain
		r.chainList = append(r.chainList, chain)
	}

	for _, token := range table.Tokens {
		if err := validate.Struct(token); err != nil {
			return nil, fmt.Errorf("token %s on chain %d: %w", token.Symbol, token.ChainID, err)
		}
		chain, ok := r.chains[token.ChainID]
		if !ok {
			return nil, fmt.Errorf("token %s references unknown chain %d", token.Symbol, token.ChainID)
		}
		if chain.Network != token.Network {
			return nil, fmt.Errorf("token %s network %s does not match chain %s (%s)", token.Symbol, token.Network, chain.Slug, chain.Network)
		}
		token.key = id.NewTokenKey(token.Symbol, chain.Slug)
		if _, dup := r.tokens[token.key]; dup {
			return nil, fmt.Errorf("duplicate token entry %s", token.key)
		}
		r.tokens[token.key] = token
	}

	for _, spec := range table.Pairs {
		pair, err := r.buildPair(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := r.pairByKey[pair.Key]; dup {
			return nil, fmt.Errorf("duplicate candidate pair %s", pair.Key)
		}
		r.pairs[pair.Network] = append(r.pairs[pair.Network], pair)
		r.pairByKey[pair.Key] = pair
	}
	return r, nil
}

func (r *Registry) buildPair(spec PairSpec) (CandidatePair, error) {
	srcKey, err := id.ParseTokenKey(spec.Src)
	if err != nil {
		return CandidatePair{}, fmt.Errorf("candidate pair source: %w", err)
	}
	dstKey, err := id.ParseTokenKey(spec.Dst)
	if err != nil {
		return CandidatePair{}, fmt.Errorf("candidate pair destination: %w", err)
	}
	src, ok := r.tokens[srcKey]
	if !ok {
		return CandidatePair{}, fmt.Errorf("candidate pair references unknown token %s", srcKey)
	}
	dst, ok := r.tokens[dstKey]
	if !ok {
		return CandidatePair{}, fmt.Errorf("candidate pair references unknown token %s", dstKey)
	}
	if src.Network != dst.Network {
		return CandidatePair{}, fmt.Errorf("candidate pair %s -> %s mixes mainnet and testnet", srcKey, dstKey)
	}
	return CandidatePair{
		Key:     id.PairKey(srcKey, dstKey),
		Src:     srcKey,
		Dst:     dstKey,
		Label:   r.pairLabel(src, dst),
		Network: src.Network,
	}, nil
}

func (r *Registry) pairLabel(src, dst TokenEntry) string {
	srcChain := r.chains[src.ChainID]
	if src.ChainID == dst.ChainID {
		return fmt.Sprintf("%s → %s (%s)", src.Symbol, dst.Symbol, srcChain.Label)
	}
	dstChain := r.chains[dst.ChainID]
	return fmt.Sprintf("%s (%s) → %s (%s)", src.Symbol, srcChain.Label, dst.Symbol, dstChain.Label)
}

func (r *Registry) Version() string { return r.version }

func (r *Registry) Lookup(key id.TokenKey) (TokenEntry, bool) {
	entry, ok := r.tokens[key]
	return entry, ok
}

// ListPairsFor returns the curated pairs of a network in declaration order.
func (r *Registry) ListPairsFor(network Network) []CandidatePair {
	pairs := r.pairs[network]
	out := make([]CandidatePair, len(pairs))
	copy(out, pairs)
	return out
}

func (r *Registry) Pair(key string) (CandidatePair, bool) {
	pair, ok := r.pairByKey[key]
	return pair, ok
}

func (r *Registry) Chain(chainID int64) (Chain, bool) {
	chain, ok := r.chains[chainID]
	return chain, ok
}

func (r *Registry) Chains() []Chain {
	out := make([]Chain, len(r.chainList))
	copy(out, r.chainList)
	return out
}

func (r *Registry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for chainID := range r.chains {
		ids = append(ids, chainID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Networks lists the networks that have at least one candidate pair.
func (r *Registry) Networks() []Network {
	out := []Network{}
	for _, n := range []Network{NetworkMainnet, NetworkTestnet} {
		if len(r.pairs[n]) > 0 {
			out = append(out, n)
		}
	}
	return out
}
