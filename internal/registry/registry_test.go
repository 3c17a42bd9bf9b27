package registry

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ggonzalez94/gud-quote/internal/id"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	r, err := Default()
	if err != nil {
		t.Fatalf("Default registry failed: %v", err)
	}
	return r
}

func TestDefaultRegistryBuilds(t *testing.T) {
	r := mustDefault(t)
	if r.Version() != TableVersion {
		t.Fatalf("unexpected version %s", r.Version())
	}
	if len(r.ChainIDs()) != len(defaultChains) {
		t.Fatalf("expected %d chains, got %d", len(defaultChains), len(r.ChainIDs()))
	}
	if got := r.Networks(); len(got) != 2 {
		t.Fatalf("expected mainnet and testnet menus, got %v", got)
	}
}

func TestLookupIsDeterministic(t *testing.T) {
	r := mustDefault(t)
	key := id.NewTokenKey("usdc", "ethereum")
	a, ok := r.Lookup(key)
	if !ok {
		t.Fatal("expected USDC@ethereum to resolve")
	}
	b, _ := r.Lookup(key)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected equal entries, got %+v and %+v", a, b)
	}
	if a.Decimals != 6 || a.ChainID != 1 || a.Network != NetworkMainnet {
		t.Fatalf("unexpected entry %+v", a)
	}
	if _, ok := r.Lookup(id.NewTokenKey("DOGE", "ethereum")); ok {
		t.Fatal("did not expect DOGE to resolve")
	}
}

func TestNativeSentinel(t *testing.T) {
	r := mustDefault(t)
	eth, ok := r.Lookup(id.NewTokenKey("ETH", "sepolia"))
	if !ok || !eth.IsNative() {
		t.Fatalf("expected native ETH on sepolia, got %+v", eth)
	}
}

func TestListPairsForIsStableAndFiltered(t *testing.T) {
	r := mustDefault(t)
	first := r.ListPairsFor(NetworkTestnet)
	second := r.ListPairsFor(NetworkTestnet)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected stable pair ordering")
	}
	if len(first) == 0 {
		t.Fatal("expected testnet pairs")
	}
	if first[0].Key != "ETH@sepolia>USDC@sepolia" {
		t.Fatalf("unexpected first testnet pair %s", first[0].Key)
	}
	for _, p := range first {
		if p.Network != NetworkTestnet {
			t.Fatalf("unexpected network on %s", p.Key)
		}
	}
	first[0].Label = "mutated"
	if r.ListPairsFor(NetworkTestnet)[0].Label == "mutated" {
		t.Fatal("expected ListPairsFor to return a copy")
	}
}

func TestCrossChainPairLabel(t *testing.T) {
	r := mustDefault(t)
	pair, ok := r.Pair("ETH@ethereum>USDC@base")
	if !ok {
		t.Fatal("expected cross-chain pair")
	}
	if pair.Label != "ETH (Ethereum) → USDC (Base)" {
		t.Fatalf("unexpected label %q", pair.Label)
	}
}

func TestNewRejectsUnresolvedPair(t *testing.T) {
	table := DefaultTable()
	table.Pairs = append(table.Pairs, PairSpec{Src: "ETH@ethereum", Dst: "PEPE@ethereum"})
	_, err := New(table)
	if err == nil || !strings.Contains(err.Error(), "PEPE@ethereum") {
		t.Fatalf("expected unresolved pair error, got %v", err)
	}
}

func TestNewRejectsInvalidEntries(t *testing.T) {
	cases := map[string]func(*Table){
		"bad address": func(tb *Table) {
			tb.Tokens = append(tb.Tokens, TokenEntry{Symbol: "BAD", ChainID: 1, Address: "0x1234", Decimals: 6, Network: NetworkMainnet})
		},
		"decimals": func(tb *Table) {
			tb.Tokens = append(tb.Tokens, TokenEntry{Symbol: "BIG", ChainID: 1, Address: NativeAssetAddress, Decimals: 37, Network: NetworkMainnet})
		},
		"duplicate": func(tb *Table) {
			tb.Tokens = append(tb.Tokens, tb.Tokens[0])
		},
		"network mismatch": func(tb *Table) {
			tb.Tokens = append(tb.Tokens, TokenEntry{Symbol: "DAI", ChainID: 1, Address: NativeAssetAddress, Decimals: 18, Network: NetworkTestnet})
		},
		"unknown chain": func(tb *Table) {
			tb.Tokens = append(tb.Tokens, TokenEntry{Symbol: "ETH", ChainID: 999, Address: NativeAssetAddress, Decimals: 18, Network: NetworkMainnet})
		},
		"mixed pair": func(tb *Table) {
			tb.Pairs = append(tb.Pairs, PairSpec{Src: "ETH@ethereum", Dst: "ETH@sepolia"})
		},
	}
	for name, mutate := range cases {
		table := DefaultTable()
		mutate(&table)
		if _, err := New(table); err == nil {
			t.Fatalf("%s: expected construction to fail", name)
		}
	}
}

func TestDefaultRPCURL(t *testing.T) {
	for _, chainID := range []int64{1, 8453, 10, 42161, 48900, 11155111, 84532, 11155420, 421614} {
		if rpc, ok := DefaultRPCURL(chainID); !ok || rpc == "" {
			t.Fatalf("expected default rpc for chain %d", chainID)
		}
	}
}

func TestResolveRPCURLPrecedence(t *testing.T) {
	overrides := map[int64]string{8453: "https://base.example"}
	if got, _ := ResolveRPCURL(overrides, "https://shared.example", 8453); got != "https://base.example" {
		t.Fatalf("expected per-chain override, got %s", got)
	}
	if got, _ := ResolveRPCURL(overrides, "https://shared.example", 1); got != "https://shared.example" {
		t.Fatalf("expected shared url, got %s", got)
	}
	if got, _ := ResolveRPCURL(nil, "", 1); got != "https://eth.llamarpc.com" {
		t.Fatalf("expected default url, got %s", got)
	}
	if _, err := ResolveRPCURL(nil, "", 999); err == nil {
		t.Fatal("expected error for chain without rpc")
	}
}

func TestIsAllowedPricingURL(t *testing.T) {
	allowed := []string{PricingBaseURL, "http://127.0.0.1:8080/api", "http://localhost:3000"}
	for _, u := range allowed {
		if !IsAllowedPricingURL(u) {
			t.Fatalf("expected %s to be allowed", u)
		}
	}
	for _, u := range []string{"http://trading.example.com", "ftp://localhost", "not a url", ""} {
		if IsAllowedPricingURL(u) {
			t.Fatalf("expected %s to be rejected", u)
		}
	}
	if got := JoinURL("https://x.example/v1/", "/order/estimate"); got != "https://x.example/v1/order/estimate" {
		t.Fatalf("unexpected join %s", got)
	}
}
