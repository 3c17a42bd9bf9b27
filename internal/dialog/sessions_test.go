package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ggonzalez94/gud-quote/internal/pricing"
	"github.com/ggonzalez94/gud-quote/internal/registry"
)

func TestParseEventRoundTrip(t *testing.T) {
	events := []Event{
		EstimateRequested(),
		Back(),
		NetworkSelected(registry.NetworkMainnet),
		PairSelected("ETH@base>USDC@base"),
	}
	for _, ev := range events {
		got := ParseEvent(ev.Data())
		if got.Kind != ev.Kind || got.Network != ev.Network || got.PairKey != ev.PairKey {
			t.Fatalf("ParseEvent(%q) = %+v, want %+v", ev.Data(), got, ev)
		}
	}
	if ParseEvent("NETWORK:TESTNET").Kind != EventUnknown {
		t.Fatal("expected prefix match to be case sensitive")
	}
	if ParseEvent("network:Testnet").Network != registry.NetworkTestnet {
		t.Fatal("expected network class to be normalized")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	q := &fakeQuoter{result: pricing.QuoteResult{DestAmountBaseUnits: "1"}}
	sessions := NewSessions(func() *Machine { return NewMachine(reg, q, QuoteDefaults{}, nil) })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("chat-%d", n)
			network := "network:mainnet"
			if n%2 == 1 {
				network = "network:testnet"
			}
			sessions.Handle(ctx, id, ParseEvent("swap"))
			sessions.Handle(ctx, id, ParseEvent(network))
		}(i)
	}
	wg.Wait()

	if sessions.Len() != 20 {
		t.Fatalf("expected 20 sessions, got %d", sessions.Len())
	}
	for i := 0; i < 20; i++ {
		want := registry.NetworkMainnet
		if i%2 == 1 {
			want = registry.NetworkTestnet
		}
		st := sessions.Get(fmt.Sprintf("chat-%d", i)).State()
		if st.Kind != StateNetworkChosen || st.Network != want {
			t.Fatalf("session %d has state %+v", i, st)
		}
	}
	sessions.Drop("chat-0")
	if sessions.Get("chat-0").State().Kind != StateIdle {
		t.Fatal("expected dropped session to restart idle")
	}
}

func TestSessionsEvictIdleInteractions(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	q := &fakeQuoter{result: pricing.QuoteResult{DestAmountBaseUnits: "1"}}
	sessions := NewSessions(func() *Machine { return NewMachine(reg, q, QuoteDefaults{}, nil) })
	ctx := context.Background()

	if reply := sessions.Handle(ctx, "chat", ParseEvent("swap")); len(reply.Options) == 0 {
		t.Fatalf("expected network menu, got %+v", reply)
	}
	if sessions.Len() != 0 {
		t.Fatalf("expected idle session to be evicted, got %d", sessions.Len())
	}
	sessions.Handle(ctx, "chat", ParseEvent("network:mainnet"))
	if reply := sessions.Handle(ctx, "chat", ParseEvent("pair:ETH@ethereum>USDC@ethereum")); reply.Quote == nil {
		t.Fatalf("expected quote, got %+v", reply)
	}
	if sessions.Len() != 1 {
		t.Fatalf("expected active session to be kept, got %d", sessions.Len())
	}
	sessions.Handle(ctx, "chat", ParseEvent("back"))
	if sessions.Get("chat").State().Kind != StateNetworkChosen {
		t.Fatal("expected back from a quote to keep the network")
	}
	sessions.Handle(ctx, "chat", ParseEvent("back"))
	if sessions.Len() != 0 {
		t.Fatalf("expected session to be discarded after backing out, got %d", sessions.Len())
	}
}
