package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
	"github.com/ggonzalez94/gud-quote/internal/httpx"
	"github.com/ggonzalez94/gud-quote/internal/id"
	"github.com/ggonzalez94/gud-quote/internal/registry"
)

const (
	ethAddress  = "0x0000000000000000000000000000000000000000"
	usdcAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606EB48"
)

func testRequest() QuoteRequest {
	return QuoteRequest{
		SrcChainID:         1,
		SrcToken:           ethAddress,
		SrcAmountBaseUnits: "10000000000000000",
		DestToken:          usdcAddress,
		SlippageBps:        100,
	}
}

func TestGetEstimateNestedShape(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	src, _ := reg.Lookup(id.NewTokenKey("ETH", "ethereum"))
	dst, _ := reg.Lookup(id.NewTokenKey("USDC", "ethereum"))

	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order/estimate" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("X-Request-Id") == "" {
			t.Fatal("expected request id header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"trade":{"destTokenAmount":"1000000","destTokenMinAmount":"990000","tradeId":"abc"}}}`))
	}))
	defer srv.Close()

	amount, err := id.ToBaseUnits("0.01", src.Decimals)
	if err != nil {
		t.Fatalf("ToBaseUnits: %v", err)
	}
	client := New(httpx.New(2*time.Second, 0), srv.URL, "secret")
	res, err := client.GetEstimate(context.Background(), QuoteRequest{
		SrcChainID:         src.ChainID,
		SrcToken:           src.Address,
		SrcAmountBaseUnits: amount,
		DestToken:          dst.Address,
		SlippageBps:        100,
	})
	if err != nil {
		t.Fatalf("GetEstimate failed: %v", err)
	}
	if got := id.FromBaseUnits(res.DestAmountBaseUnits, dst.Decimals); got != "1.0" {
		t.Fatalf("expected 1.0 USDC, got %s", got)
	}
	if got := id.FromBaseUnits(res.DestAmountMinBaseUnits, dst.Decimals); got != "0.99" {
		t.Fatalf("expected 0.99 USDC minimum, got %s", got)
	}
	if res.TradeID != "abc" {
		t.Fatalf("unexpected trade id %q", res.TradeID)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotBody["srcAmountWei"] != "10000000000000000" || gotBody["destChainId"] != float64(1) {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if _, ok := gotBody["userAccount"]; ok {
		t.Fatal("expected empty userAccount to be omitted")
	}
}

func TestGetEstimateRateLimitedDistinctFromInternalError(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	client := New(httpx.New(2*time.Second, 0), srv.URL, "k")
	_, rateErr := client.GetEstimate(context.Background(), testRequest())
	if clierr.HTTPCauseOf(rateErr) != clierr.CauseRateLimited {
		t.Fatalf("expected rate limited cause, got %v", rateErr)
	}

	status.Store(http.StatusInternalServerError)
	_, internalErr := client.GetEstimate(context.Background(), testRequest())
	if clierr.HTTPCauseOf(internalErr) != clierr.CauseServiceInternalError {
		t.Fatalf("expected internal error cause, got %v", internalErr)
	}
	if rateErr.Error() == internalErr.Error() {
		t.Fatalf("expected distinct messages, both were %q", rateErr.Error())
	}
}

func TestGetEstimatePrefersBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unsupported token pair"}`))
	}))
	defer srv.Close()

	_, err := New(httpx.New(2*time.Second, 0), srv.URL, "k").GetEstimate(context.Background(), testRequest())
	if clierr.HTTPCauseOf(err) != clierr.CauseBadRequest || !strings.Contains(err.Error(), "unsupported token pair") {
		t.Fatalf("expected body message, got %v", err)
	}
}

func TestGetEstimateNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(httpx.New(time.Second, 0), url, "k").GetEstimate(context.Background(), testRequest())
	if clierr.CodeOf(err) != clierr.CodeNetworkUnavailable {
		t.Fatalf("expected network unavailable, got %v", err)
	}
}

func TestGetEstimateValidatesRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	client := New(httpx.New(time.Second, 0), srv.URL, "k")

	req := testRequest()
	req.SrcAmountBaseUnits = "0.5"
	if _, err := client.GetEstimate(context.Background(), req); clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	req = testRequest()
	req.SlippageBps = 10_001
	if _, err := client.GetEstimate(context.Background(), req); clierr.CodeOf(err) != clierr.CodeUsage {
		t.Fatalf("expected usage error for slippage, got %v", err)
	}
	req = testRequest()
	req.DestReceiver = "not-an-address"
	if _, err := client.GetEstimate(context.Background(), req); clierr.CodeOf(err) != clierr.CodeUsage {
		t.Fatalf("expected usage error for receiver, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected invalid requests to never reach the service")
	}
}

func TestGetEstimateMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"quoteId":"x"}}`))
	}))
	defer srv.Close()

	_, err := New(httpx.New(time.Second, 0), srv.URL, "k").GetEstimate(context.Background(), testRequest())
	if clierr.CodeOf(err) != clierr.CodeMalformedResponse {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order/status" || r.URL.Query().Get("txHash") != "0xabc" {
			t.Fatalf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"status":"REFUNDED"}`))
	}))
	defer srv.Close()

	st, err := New(httpx.New(time.Second, 0), srv.URL, "k").GetStatus(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if st.Status != StatusRefunded || !st.Status.Terminal() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestAwaitCompletionTimesOutWhilePending(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		_, _ = w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer srv.Close()

	start := time.Now()
	_, err := New(httpx.New(time.Second, 0), srv.URL, "k").AwaitCompletion(context.Background(), "0xabc", 2500*time.Millisecond)
	if clierr.CodeOf(err) != clierr.CodePollTimeout {
		t.Fatalf("expected poll timeout, got %v", err)
	}
	if n := atomic.LoadInt32(&polls); n < 2 {
		t.Fatalf("expected at least two polls, got %d", n)
	}
	if elapsed := time.Since(start); elapsed < 2500*time.Millisecond {
		t.Fatalf("returned before max wait: %s", elapsed)
	}
}

func TestAwaitCompletionRetriesAfterErrors(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&polls, 1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			_, _ = w.Write([]byte(`{"status":"processing"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
		}
	}))
	defer srv.Close()

	client := New(httpx.New(time.Second, 0), srv.URL, "k", WithPollIntervals(10*time.Millisecond, 20*time.Millisecond))
	st, err := client.AwaitCompletion(context.Background(), "0xabc", 2*time.Second)
	if err != nil {
		t.Fatalf("AwaitCompletion failed: %v", err)
	}
	if st.Status != StatusSuccess || atomic.LoadInt32(&polls) != 3 {
		t.Fatalf("unexpected status %+v after %d polls", st, polls)
	}
}

func TestAwaitCompletionStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := New(httpx.New(time.Second, 0), srv.URL, "k").AwaitCompletion(ctx, "0xabc", time.Minute)
	if clierr.CodeOf(err) != clierr.CodePollTimeout {
		t.Fatalf("expected poll timeout on cancel, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Fatal("expected cancellation to stop waiting promptly")
	}
}

func TestAwaitCompletionBoundsSlowPolls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		_, _ = w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer srv.Close()

	start := time.Now()
	_, err := New(httpx.New(10*time.Second, 1), srv.URL, "k").AwaitCompletion(context.Background(), "0xabc", 500*time.Millisecond)
	if clierr.CodeOf(err) != clierr.CodePollTimeout {
		t.Fatalf("expected poll timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("wait overran max wait: %s", elapsed)
	}
}

func TestAwaitCompletionSkipsTransportRetries(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		n := len(times)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
	}))
	defer srv.Close()

	client := New(httpx.New(time.Second, 1), srv.URL, "k", WithPollIntervals(10*time.Millisecond, 400*time.Millisecond))
	if _, err := client.AwaitCompletion(context.Background(), "0xabc", 5*time.Second); err != nil {
		t.Fatalf("AwaitCompletion failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("expected two requests, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < 350*time.Millisecond {
		t.Fatalf("expected error backoff before the next poll, got %s", gap)
	}
}

func TestGetStatusKeepsTransportRetries(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
	}))
	defer srv.Close()

	st, err := New(httpx.New(time.Second, 1), srv.URL, "k").GetStatus(context.Background(), "0xabc")
	if err != nil || st.Status != StatusSuccess {
		t.Fatalf("unexpected status %+v err=%v", st, err)
	}
}

type memoryStatusCache struct {
	mu    sync.Mutex
	items map[string]TradeStatus
}

func (m *memoryStatusCache) GetTradeStatus(txHash string) (TradeStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.items[txHash]
	return st, ok, nil
}

func (m *memoryStatusCache) PutTradeStatus(st TradeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[st.TxHash] = st
	return nil
}

func TestGetStatusUsesCacheForSettledTrades(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		_, _ = w.Write([]byte(`{"status":"FAILED"}`))
	}))
	defer srv.Close()

	cache := &memoryStatusCache{items: map[string]TradeStatus{}}
	client := New(httpx.New(time.Second, 0), srv.URL, "k", WithStatusCache(cache))
	for i := 0; i < 3; i++ {
		st, err := client.GetStatus(context.Background(), "0xdef")
		if err != nil || st.Status != StatusFailed {
			t.Fatalf("unexpected status %+v err=%v", st, err)
		}
	}
	if atomic.LoadInt32(&polls) != 1 {
		t.Fatalf("expected one network call, got %d", polls)
	}
}
