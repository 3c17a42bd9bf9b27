package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/ggonzalez94/gud-quote/internal/pricing"
)

const DefaultRetention = 30 * 24 * time.Hour

// Store keeps settled trade statuses. Pending statuses are never written.
type Store struct {
	db        *sql.DB
	lock      *flock.Flock
	retention time.Duration
}

func Open(path, lockPath string, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS trade_statuses (
			tx_hash TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			raw_status TEXT NOT NULL,
			details BLOB,
			checked_at INTEGER NOT NULL
		);`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	store := &Store{db: db, lock: flock.New(lockPath), retention: retention}
	_ = store.Prune()
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune deletes statuses older than the retention window.
func (s *Store) Prune() error {
	if s == nil || s.db == nil {
		return nil
	}
	cutoff := time.Now().UTC().Add(-s.retention).Unix()
	if _, err := s.db.Exec("DELETE FROM trade_statuses WHERE checked_at < ?", cutoff); err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	return nil
}

func (s *Store) GetTradeStatus(txHash string) (pricing.TradeStatus, bool, error) {
	var (
		status    string
		rawStatus string
		details   []byte
		checked   int64
	)
	err := s.db.QueryRow(
		"SELECT status, raw_status, details, checked_at FROM trade_statuses WHERE tx_hash = ?", txHash,
	).Scan(&status, &rawStatus, &details, &checked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pricing.TradeStatus{}, false, nil
		}
		return pricing.TradeStatus{}, false, fmt.Errorf("cache read: %w", err)
	}
	checkedAt := time.Unix(checked, 0).UTC()
	if time.Since(checkedAt) > s.retention {
		return pricing.TradeStatus{}, false, nil
	}
	return pricing.TradeStatus{
		TxHash:    txHash,
		Status:    pricing.ParseStatus(status),
		RawStatus: rawStatus,
		Details:   details,
		CheckedAt: checkedAt,
	}, true, nil
}

func (s *Store) PutTradeStatus(st pricing.TradeStatus) error {
	if !st.Status.Terminal() {
		return fmt.Errorf("cache write: status %s for %s is not settled", st.Status, st.TxHash)
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	checked := st.CheckedAt
	if checked.IsZero() {
		checked = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT INTO trade_statuses (tx_hash, status, raw_status, details, checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO UPDATE SET
			status=excluded.status,
			raw_status=excluded.raw_status,
			details=excluded.details,
			checked_at=excluded.checked_at
	`, st.TxHash, string(st.Status), st.RawStatus, []byte(st.Details), checked.UTC().Unix())
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}
