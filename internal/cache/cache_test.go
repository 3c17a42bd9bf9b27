package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ggonzalez94/gud-quote/internal/pricing"
)

func openTestStore(t *testing.T, retention time.Duration) *Store {
	t.Helper()
	tmp := t.TempDir()
	store, err := Open(filepath.Join(tmp, "status.db"), filepath.Join(tmp, "status.lock"), retention)
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStatusStoreRoundTrip(t *testing.T) {
	store := openTestStore(t, time.Hour)

	if _, ok, err := store.GetTradeStatus("0xabc"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	want := pricing.TradeStatus{
		TxHash:    "0xabc",
		Status:    pricing.StatusSuccess,
		RawStatus: "SUCCESS",
		Details:   []byte(`{"status":"SUCCESS"}`),
		CheckedAt: time.Now().UTC(),
	}
	if err := store.PutTradeStatus(want); err != nil {
		t.Fatalf("PutTradeStatus failed: %v", err)
	}
	got, ok, err := store.GetTradeStatus("0xabc")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Status != pricing.StatusSuccess || string(got.Details) != `{"status":"SUCCESS"}` {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestStatusStoreRejectsPending(t *testing.T) {
	store := openTestStore(t, time.Hour)
	if err := store.PutTradeStatus(pricing.TradeStatus{TxHash: "0xabc", Status: pricing.StatusPending}); err == nil {
		t.Fatal("expected pending status to be rejected")
	}
}

func TestStatusStoreExpiresOldEntries(t *testing.T) {
	store := openTestStore(t, time.Hour)
	old := pricing.TradeStatus{TxHash: "0xold", Status: pricing.StatusFailed, CheckedAt: time.Now().Add(-2 * time.Hour)}
	if err := store.PutTradeStatus(old); err != nil {
		t.Fatalf("PutTradeStatus failed: %v", err)
	}
	if _, ok, _ := store.GetTradeStatus("0xold"); ok {
		t.Fatal("expected entry beyond retention to miss")
	}
	if err := store.Prune(); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	var n int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM trade_statuses").Scan(&n); err != nil || n != 0 {
		t.Fatalf("expected pruned table, got %d rows err=%v", n, err)
	}
}

func TestStatusStoreConcurrentOpenAndPut(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "status.db")
	lockPath := filepath.Join(tmp, "status.lock")

	const workers = 16
	const iterations = 40

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			store, err := Open(dbPath, lockPath, time.Hour)
			if err != nil {
				errCh <- fmt.Errorf("worker %d open: %w", workerID, err)
				return
			}
			defer store.Close()

			for i := 0; i < iterations; i++ {
				hash := fmt.Sprintf("0xworker%dtx%d", workerID, i)
				st := pricing.TradeStatus{TxHash: hash, Status: pricing.StatusRefunded, RawStatus: "REFUNDED", CheckedAt: time.Now()}
				if err := store.PutTradeStatus(st); err != nil {
					errCh <- fmt.Errorf("worker %d put iter %d: %w", workerID, i, err)
					return
				}
				got, ok, err := store.GetTradeStatus(hash)
				if err != nil {
					errCh <- fmt.Errorf("worker %d get iter %d: %w", workerID, i, err)
					return
				}
				if !ok || got.Status != pricing.StatusRefunded {
					errCh <- fmt.Errorf("worker %d get iter %d: expected hit", workerID, i)
					return
				}
			}
		}(worker)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}
