package execution

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
	"github.com/ggonzalez94/gud-quote/internal/execution/signer"
)

// Backend is the read/query handle for one chain. *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

func DialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type ChainEndpoint struct {
	ChainID int64
	Label   string
	RPCURL  string
}

type ManagerConfig struct {
	Chains     []ChainEndpoint
	RelayerKey string
}

// ChainHandle pairs a chain's query client with its optional signing client.
// Query is nil when the RPC could not be dialed; DialErr holds the reason.
type ChainHandle struct {
	ChainID int64
	Label   string
	RPCURL  string
	Query   Backend
	Signer  signer.Signer
	DialErr error
}

func (h *ChainHandle) ReadOnly() bool { return h.Signer == nil }

type ChainReport struct {
	ChainID  int64  `json:"chain_id"`
	Label    string `json:"label"`
	RPCURL   string `json:"rpc_url"`
	ReadOnly bool   `json:"read_only"`
	Error    string `json:"error,omitempty"`
}

// Report describes the outcome of manager initialization.
type Report struct {
	SignerAddress string        `json:"signer_address,omitempty"`
	Chains        []ChainReport `json:"chains"`
	Warnings      []string      `json:"warnings,omitempty"`
}

func (r Report) SigningChains() int {
	n := 0
	for _, c := range r.Chains {
		if !c.ReadOnly && c.Error == "" {
			n++
		}
	}
	return n
}

type Option func(*Manager)

func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

func WithSignerFactory(f signer.Factory) Option {
	return func(m *Manager) { m.newSigner = f }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager owns the per-chain handles. It is write-once: after NewManager returns,
// handles are only read and the manager is safe for concurrent use.
type Manager struct {
	handles      map[int64]*ChainHandle
	dial         Dialer
	newSigner    signer.Factory
	log          *zap.Logger
	gasBufferPct uint64
}

// NewManager creates a query client for every chain and, when the relayer key is
// well-formed, a signing client per chain. Signing and dial failures degrade the
// chain to read-only; it stays supported.
func NewManager(ctx context.Context, cfg ManagerConfig, opts ...Option) (*Manager, Report) {
	m := &Manager{
		handles:      make(map[int64]*ChainHandle, len(cfg.Chains)),
		dial:         DialEthclient,
		newSigner:    signer.LocalFactory,
		log:          zap.NewNop(),
		gasBufferPct: 120,
	}
	for _, opt := range opts {
		opt(m)
	}

	report := Report{}
	key := m.relayerKey(cfg.RelayerKey, &report)

	for _, chain := range cfg.Chains {
		entry := ChainReport{ChainID: chain.ChainID, Label: chain.Label, RPCURL: chain.RPCURL, ReadOnly: true}
		handle := &ChainHandle{ChainID: chain.ChainID, Label: chain.Label, RPCURL: chain.RPCURL}
		backend, err := m.dial(ctx, chain.RPCURL)
		if err != nil {
			entry.Error = fmt.Sprintf("connect rpc: %v", err)
			m.log.Error("chain query client unavailable", zap.Int64("chain_id", chain.ChainID), zap.Error(err))
			handle.DialErr = err
			m.handles[chain.ChainID] = handle
			report.Chains = append(report.Chains, entry)
			continue
		}
		handle.Query = backend
		if key != nil {
			s, err := m.newSigner(big.NewInt(chain.ChainID), key)
			if err != nil {
				entry.Error = fmt.Sprintf("signing client: %v", err)
				m.log.Warn("signing client unavailable; chain is read-only", zap.Int64("chain_id", chain.ChainID), zap.Error(err))
			} else {
				handle.Signer = s
				entry.ReadOnly = false
				if report.SignerAddress == "" {
					report.SignerAddress = s.Address().Hex()
				}
			}
		}
		m.handles[chain.ChainID] = handle
		report.Chains = append(report.Chains, entry)
	}
	sort.Slice(report.Chains, func(i, j int) bool { return report.Chains[i].ChainID < report.Chains[j].ChainID })

	m.log.Info("chain manager initialized",
		zap.Int("chains", len(m.handles)),
		zap.Int("signing", report.SigningChains()),
		zap.String("relayer", report.SignerAddress),
	)
	return m, report
}

func (m *Manager) relayerKey(raw string, report *Report) *ecdsa.PrivateKey {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		m.log.Info("no relayer key provided; running in read-only mode")
		return nil
	}
	if !signer.ValidRelayerKey(raw) {
		msg := fmt.Sprintf("relayer key provided but invalid; expected 0x + 64 hex chars (%d total), running in read-only mode", signer.RelayerKeyLength)
		report.Warnings = append(report.Warnings, msg)
		m.log.Warn(msg)
		return nil
	}
	key, err := signer.ParseRelayerKey(raw)
	if err != nil {
		msg := fmt.Sprintf("relayer key rejected: %v; running in read-only mode", err)
		report.Warnings = append(report.Warnings, msg)
		m.log.Warn(msg)
		return nil
	}
	return key
}

func (m *Manager) IsSupported(chainID int64) bool {
	_, ok := m.handles[chainID]
	return ok
}

// Handle returns the chain's handles, or false for unsupported chains.
func (m *Manager) Handle(chainID int64) (*ChainHandle, bool) {
	h, ok := m.handles[chainID]
	return h, ok
}

// Query returns the chain's query client; false for unsupported chains or when the
// RPC dial failed.
func (m *Manager) Query(chainID int64) (Backend, bool) {
	h, ok := m.handles[chainID]
	if !ok || h.Query == nil {
		return nil, false
	}
	return h.Query, true
}

// Signer returns the chain's signing client; false for unsupported or read-only chains.
func (m *Manager) Signer(chainID int64) (signer.Signer, bool) {
	h, ok := m.handles[chainID]
	if !ok || h.Signer == nil {
		return nil, false
	}
	return h.Signer, true
}

func (m *Manager) ChainIDs() []int64 {
	ids := make([]int64, 0, len(m.handles))
	for chainID := range m.handles {
		ids = append(ids, chainID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Balance is a read-only query that works regardless of signer availability.
func (m *Manager) Balance(ctx context.Context, chainID int64, account common.Address) (*big.Int, error) {
	h, ok := m.handles[chainID]
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("chain %d is not supported", chainID))
	}
	if h.Query == nil {
		return nil, clierr.Wrap(clierr.CodeNetworkUnavailable, fmt.Sprintf("chain %d rpc unavailable", chainID), h.DialErr)
	}
	bal, err := h.Query.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNetworkUnavailable, "read balance", err)
	}
	return bal, nil
}

func (m *Manager) Close() {
	for _, h := range m.handles {
		if h.Query != nil {
			h.Query.Close()
		}
	}
}
