package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ggonzalez94/gud-quote/internal/id"
	"github.com/ggonzalez94/gud-quote/internal/pricing"
	"github.com/ggonzalez94/gud-quote/internal/registry"
)

type StateKind int

const (
	StateIdle StateKind = iota
	StateNetworkChosen
	StatePairChosen
)

func (k StateKind) String() string {
	switch k {
	case StateNetworkChosen:
		return "network-chosen"
	case StatePairChosen:
		return "pair-chosen"
	default:
		return "idle"
	}
}

// State is the selection progress of one interaction. Network is set in
// NetworkChosen and PairChosen, Src and Dst only in PairChosen.
type State struct {
	Kind    StateKind
	Network registry.Network
	Src     registry.TokenEntry
	Dst     registry.TokenEntry
}

type Option struct {
	Label string `json:"label"`
	Event Event  `json:"event"`
}

// Reply is a render instruction. Notice marks a transient acknowledgement that
// transports may show as a toast instead of a message.
type Reply struct {
	Text    string        `json:"text"`
	Options []Option      `json:"options,omitempty"`
	Notice  bool          `json:"notice,omitempty"`
	Quote   *QuoteSummary `json:"quote,omitempty"`
}

// QuoteSummary is the display-unit view of an estimate.
type QuoteSummary struct {
	Pair          string             `json:"pair"`
	SrcSymbol     string             `json:"src_symbol"`
	SrcChainID    int64              `json:"src_chain_id"`
	SrcAmount     string             `json:"src_amount"`
	DestSymbol    string             `json:"dest_symbol"`
	DestChainID   int64              `json:"dest_chain_id"`
	DestAmount    string             `json:"dest_amount"`
	DestAmountMin string             `json:"dest_amount_min,omitempty"`
	TradeID       string             `json:"trade_id,omitempty"`
	Deadline      string             `json:"deadline,omitempty"`
	Tx            *pricing.TxPayload `json:"tx,omitempty"`
}

type Quoter interface {
	GetEstimate(ctx context.Context, req pricing.QuoteRequest) (pricing.QuoteResult, error)
}

type QuoteDefaults struct {
	SlippageBps  int
	UserAccount  string
	DestReceiver string
}

var defaultAmounts = map[string]decimal.Decimal{
	"ETH":  decimal.RequireFromString("0.01"),
	"USDC": decimal.RequireFromString("10"),
}

// DefaultAmount is the notional source amount quoted for a symbol.
func DefaultAmount(symbol string) decimal.Decimal {
	if v, ok := defaultAmounts[strings.ToUpper(symbol)]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

// Machine drives one interaction. Its methods are safe to call from multiple
// goroutines; events for one machine are applied one at a time.
type Machine struct {
	mu       sync.Mutex
	reg      *registry.Registry
	quoter   Quoter
	defaults QuoteDefaults
	log      *zap.Logger
	state    State
}

func NewMachine(reg *registry.Registry, quoter Quoter, defaults QuoteDefaults, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{reg: reg, quoter: quoter, defaults: defaults, log: log}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Handle(ctx context.Context, ev Event) Reply {
	switch ev.Kind {
	case EventEstimateRequested:
		return m.OnEstimateRequested(ctx)
	case EventNetworkSelected:
		return m.OnNetworkSelected(ctx, ev.Network)
	case EventPairSelected:
		return m.OnPairSelected(ctx, ev.PairKey)
	case EventBack:
		return m.OnBack(ctx)
	default:
		return m.OnUnknown(ctx)
	}
}

// OnEstimateRequested restarts the selection at the network menu.
func (m *Machine) OnEstimateRequested(context.Context) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{Kind: StateIdle}
	return m.networkMenu()
}

func (m *Machine) OnNetworkSelected(_ context.Context, network registry.Network) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !network.Valid() {
		return unknownAction()
	}
	m.state = State{Kind: StateNetworkChosen, Network: network}
	return m.pairMenu(network)
}

// OnPairSelected resolves the pair against the chosen network and runs the quote.
// An unresolvable pair leaves the state untouched.
func (m *Machine) OnPairSelected(ctx context.Context, pairKey string) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Kind == StateIdle {
		return unknownAction()
	}
	network := m.state.Network
	src, dst, ok := m.resolvePair(network, pairKey)
	if !ok {
		m.log.Debug("invalid pair selected", zap.String("pair", pairKey), zap.String("network", string(network)))
		return Reply{Text: textInvalidPair, Notice: true}
	}
	m.state = State{Kind: StatePairChosen, Network: network, Src: src, Dst: dst}
	return m.quote(ctx, src, dst)
}

// OnBack moves to the parent menu: pair menu from a quote, network menu otherwise.
func (m *Machine) OnBack(context.Context) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state.Kind {
	case StatePairChosen:
		network := m.state.Network
		m.state = State{Kind: StateNetworkChosen, Network: network}
		return m.pairMenu(network)
	default:
		m.state = State{Kind: StateIdle}
		return m.networkMenu()
	}
}

func (m *Machine) OnUnknown(context.Context) Reply {
	return unknownAction()
}

func (m *Machine) resolvePair(network registry.Network, pairKey string) (registry.TokenEntry, registry.TokenEntry, bool) {
	srcKey, dstKey, err := id.ParsePairKey(pairKey)
	if err != nil {
		return registry.TokenEntry{}, registry.TokenEntry{}, false
	}
	src, ok := m.reg.Lookup(srcKey)
	if !ok || src.Network != network {
		return registry.TokenEntry{}, registry.TokenEntry{}, false
	}
	dst, ok := m.reg.Lookup(dstKey)
	if !ok || dst.Network != network {
		return registry.TokenEntry{}, registry.TokenEntry{}, false
	}
	return src, dst, true
}

func (m *Machine) networkMenu() Reply {
	networks := m.reg.Networks()
	options := make([]Option, 0, len(networks))
	for _, n := range networks {
		options = append(options, Option{Label: NetworkLabel(n), Event: NetworkSelected(n)})
	}
	return Reply{Text: textChooseNetwork, Options: options}
}

func (m *Machine) pairMenu(network registry.Network) Reply {
	pairs := m.reg.ListPairsFor(network)
	if len(pairs) == 0 {
		return Reply{Text: textNoPairs, Options: []Option{backOption()}}
	}
	options := make([]Option, 0, len(pairs)+1)
	for _, p := range pairs {
		options = append(options, Option{Label: p.Label, Event: PairSelected(p.Key)})
	}
	options = append(options, backOption())
	return Reply{Text: fmt.Sprintf("Choose a pair (%s):", NetworkLabel(network)), Options: options}
}

func (m *Machine) quote(ctx context.Context, src, dst registry.TokenEntry) Reply {
	back := []Option{backOption()}
	summary, err := Estimate(ctx, m.quoter, m.defaults, src, dst, DefaultAmount(src.Symbol))
	if err != nil {
		m.log.Warn("estimate failed", zap.String("pair", id.PairKey(src.Key(), dst.Key())), zap.Error(err))
		return Reply{Text: "Error: " + UserMessage(err), Options: back}
	}
	return Reply{Text: m.formatQuote(src, dst, summary), Options: back, Quote: summary}
}

// Estimate quotes amount of src into dst and converts the result to display units.
func Estimate(ctx context.Context, quoter Quoter, defaults QuoteDefaults, src, dst registry.TokenEntry, amount decimal.Decimal) (*QuoteSummary, error) {
	baseUnits, err := id.ToBaseUnitsDecimal(amount, src.Decimals)
	if err != nil {
		return nil, err
	}
	res, err := quoter.GetEstimate(ctx, pricing.QuoteRequest{
		SrcChainID:         src.ChainID,
		SrcToken:           src.Address,
		SrcAmountBaseUnits: baseUnits,
		DestToken:          dst.Address,
		DestChainID:        dst.ChainID,
		SlippageBps:        defaults.SlippageBps,
		UserAccount:        defaults.UserAccount,
		DestReceiver:       defaults.DestReceiver,
	})
	if err != nil {
		return nil, err
	}

	summary := &QuoteSummary{
		Pair:        id.PairKey(src.Key(), dst.Key()),
		SrcSymbol:   src.Symbol,
		SrcChainID:  src.ChainID,
		SrcAmount:   amount.String(),
		DestSymbol:  dst.Symbol,
		DestChainID: dst.ChainID,
		DestAmount:  id.FromBaseUnits(res.DestAmountBaseUnits, dst.Decimals),
		TradeID:     res.TradeID,
		Deadline:    res.Deadline,
		Tx:          res.Tx,
	}
	if res.DestAmountMinBaseUnits != "" {
		summary.DestAmountMin = id.FromBaseUnits(res.DestAmountMinBaseUnits, dst.Decimals)
	}
	return summary, nil
}

func (m *Machine) formatQuote(src, dst registry.TokenEntry, q *QuoteSummary) string {
	lines := []string{
		fmt.Sprintf("Estimated swap %s %s (%s) → %s (%s)", q.SrcAmount, src.Symbol, m.chainLabel(src.ChainID), dst.Symbol, m.chainLabel(dst.ChainID)),
		fmt.Sprintf("- Estimated receive: %s %s", q.DestAmount, dst.Symbol),
	}
	if q.DestAmountMin != "" {
		lines = append(lines, fmt.Sprintf("- Minimum receive: %s %s", q.DestAmountMin, dst.Symbol))
	}
	if q.TradeID != "" {
		lines = append(lines, "- Trade ID: "+q.TradeID)
	}
	if q.Deadline != "" {
		lines = append(lines, "- Deadline: "+q.Deadline)
	}
	return strings.Join(lines, "\n")
}

func (m *Machine) chainLabel(chainID int64) string {
	if chain, ok := m.reg.Chain(chainID); ok {
		return chain.Label
	}
	return fmt.Sprintf("chain %d", chainID)
}

func NetworkLabel(n registry.Network) string {
	switch n {
	case registry.NetworkMainnet:
		return "Mainnet"
	case registry.NetworkTestnet:
		return "Testnet"
	default:
		return string(n)
	}
}

func backOption() Option { return Option{Label: labelBack, Event: Back()} }

func unknownAction() Reply { return Reply{Text: textUnknownAction, Notice: true} }

// PlainText renders the reply without markup, one option label per line.
func (r Reply) PlainText() string {
	if len(r.Options) == 0 {
		return r.Text
	}
	lines := make([]string, 0, len(r.Options)+1)
	lines = append(lines, r.Text)
	for _, opt := range r.Options {
		lines = append(lines, "  - "+opt.Label+" ("+opt.Event.Data()+")")
	}
	return strings.Join(lines, "\n")
}
