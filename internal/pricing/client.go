package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
	"github.com/ggonzalez94/gud-quote/internal/httpx"
	"github.com/ggonzalez94/gud-quote/internal/id"
	"github.com/ggonzalez94/gud-quote/internal/registry"
)

const (
	DefaultPollInterval = time.Second
	DefaultErrorBackoff = 2 * time.Second
	DefaultMaxWait      = 60 * time.Second
)

var validate = validator.New()

type Client struct {
	http         *httpx.Client
	pollHTTP     *httpx.Client
	baseURL      string
	apiKey       string
	log          *zap.Logger
	cache        StatusCache
	pollInterval time.Duration
	errorBackoff time.Duration
	now          func() time.Time
	requestID    func() string
}

type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStatusCache stores settled statuses so later lookups skip the network.
func WithStatusCache(cache StatusCache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithPollIntervals(poll, errorBackoff time.Duration) Option {
	return func(c *Client) {
		if poll > 0 {
			c.pollInterval = poll
		}
		if errorBackoff > 0 {
			c.errorBackoff = errorBackoff
		}
	}
}

func New(httpClient *httpx.Client, baseURL, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = registry.PricingBaseURL
	}
	c := &Client{
		http:         httpClient,
		pollHTTP:     httpClient.WithRetries(0),
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       strings.TrimSpace(apiKey),
		log:          zap.NewNop(),
		pollInterval: DefaultPollInterval,
		errorBackoff: DefaultErrorBackoff,
		now:          time.Now,
		requestID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetEstimate requests a non-binding quote. A zero DestChainID means same-chain.
func (c *Client) GetEstimate(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	if req.DestChainID == 0 {
		req.DestChainID = req.SrcChainID
	}
	if !id.IsBaseUnits(req.SrcAmountBaseUnits) {
		return QuoteResult{}, clierr.New(clierr.CodeInvalidAmount, fmt.Sprintf("source amount %q is not a base-unit integer", req.SrcAmountBaseUnits))
	}
	if err := validate.Struct(req); err != nil {
		return QuoteResult{}, clierr.Wrap(clierr.CodeUsage, "invalid quote request", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return QuoteResult{}, clierr.Wrap(clierr.CodeInternal, "encode quote request", err)
	}

	requestID := c.requestID()
	c.log.Debug("pricing estimate request",
		zap.String("request_id", requestID),
		zap.Int64("src_chain_id", req.SrcChainID),
		zap.Int64("dest_chain_id", req.DestChainID),
		zap.String("src_token", req.SrcToken),
		zap.String("dest_token", req.DestToken),
		zap.String("src_amount", req.SrcAmountBaseUnits),
		zap.Int("slippage_bps", req.SlippageBps),
	)

	var raw json.RawMessage
	endpoint := registry.JoinURL(c.baseURL, registry.PricingEstimatePath)
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, endpoint, body, c.headers(requestID), &raw); err != nil {
		c.log.Warn("pricing estimate failed", zap.String("request_id", requestID), zap.Error(err))
		return QuoteResult{}, err
	}
	res, err := normalizeEstimate(raw)
	if err != nil {
		c.log.Warn("pricing estimate malformed", zap.String("request_id", requestID), zap.ByteString("body", raw))
		return QuoteResult{}, err
	}
	c.log.Debug("pricing estimate response",
		zap.String("request_id", requestID),
		zap.String("trade_id", res.TradeID),
		zap.String("dest_amount", res.DestAmountBaseUnits),
	)
	return res, nil
}

type statusResponse struct {
	Status flexString `json:"status"`
	Data   *struct {
		Status flexString `json:"status"`
	} `json:"data"`
}

// GetStatus fetches the current settlement status of a submitted trade.
func (c *Client) GetStatus(ctx context.Context, txHash string) (TradeStatus, error) {
	return c.getStatus(ctx, c.http, txHash)
}

func (c *Client) getStatus(ctx context.Context, httpClient *httpx.Client, txHash string) (TradeStatus, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return TradeStatus{}, clierr.New(clierr.CodeUsage, "transaction hash is required")
	}
	if c.cache != nil {
		cached, ok, err := c.cache.GetTradeStatus(txHash)
		if err != nil {
			c.log.Warn("status cache read failed", zap.String("tx_hash", txHash), zap.Error(err))
		} else if ok && cached.Status.Terminal() {
			return cached, nil
		}
	}

	vals := url.Values{}
	vals.Set("txHash", txHash)
	endpoint := registry.JoinURL(c.baseURL, registry.PricingStatusPath) + "?" + vals.Encode()
	requestID := c.requestID()
	var raw json.RawMessage
	if _, err := httpx.DoBodyJSON(ctx, httpClient, http.MethodGet, endpoint, nil, c.headers(requestID), &raw); err != nil {
		return TradeStatus{}, err
	}
	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return TradeStatus{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode status response", err)
	}
	rawStatus := string(resp.Status)
	if rawStatus == "" && resp.Data != nil {
		rawStatus = string(resp.Data.Status)
	}
	status := TradeStatus{
		TxHash:    txHash,
		Status:    ParseStatus(rawStatus),
		RawStatus: rawStatus,
		Details:   raw,
		CheckedAt: c.now().UTC(),
	}
	if status.Status.Terminal() && c.cache != nil {
		if err := c.cache.PutTradeStatus(status); err != nil {
			c.log.Warn("status cache write failed", zap.String("tx_hash", txHash), zap.Error(err))
		}
	}
	return status, nil
}

// AwaitCompletion polls GetStatus until the trade settles or maxWait elapses.
// Each poll is a single request bounded by the remaining wait; failures are logged
// and retried after a longer pause. Cancelling ctx stops the wait.
func (c *Client) AwaitCompletion(ctx context.Context, txHash string, maxWait time.Duration) (TradeStatus, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	deadline := c.now().Add(maxWait)
	pollCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	var lastErr error
	attempts := 0
	for {
		attempts++
		wait := c.pollInterval
		status, err := c.getStatus(pollCtx, c.pollHTTP, txHash)
		switch {
		case err != nil && ctx.Err() != nil:
			return TradeStatus{}, clierr.Wrap(clierr.CodePollTimeout, "trade status polling cancelled", ctx.Err())
		case err != nil && pollCtx.Err() != nil:
			return TradeStatus{}, c.timeout(txHash, maxWait, attempts, lastErr)
		case err != nil:
			if clierr.CodeOf(err) == clierr.CodeUsage {
				return TradeStatus{}, err
			}
			lastErr = err
			wait = c.errorBackoff
			c.log.Warn("trade status check failed", zap.String("tx_hash", txHash), zap.Int("attempt", attempts), zap.Error(err))
		case status.Status.Terminal():
			return status, nil
		default:
			lastErr = nil
		}

		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			return TradeStatus{}, c.timeout(txHash, maxWait, attempts, lastErr)
		}
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return TradeStatus{}, clierr.Wrap(clierr.CodePollTimeout, "trade status polling cancelled", ctx.Err())
		case <-pollCtx.Done():
			timer.Stop()
			return TradeStatus{}, c.timeout(txHash, maxWait, attempts, lastErr)
		case <-timer.C:
		}
		if !c.now().Before(deadline) {
			return TradeStatus{}, c.timeout(txHash, maxWait, attempts, lastErr)
		}
	}
}

func (c *Client) timeout(txHash string, maxWait time.Duration, attempts int, lastErr error) error {
	c.log.Info("trade status check timed out", zap.String("tx_hash", txHash), zap.Int("attempts", attempts), zap.Duration("max_wait", maxWait))
	return clierr.Wrap(clierr.CodePollTimeout, fmt.Sprintf("trade status check timed out after %s (%d attempts)", maxWait, attempts), lastErr)
}

func (c *Client) headers(requestID string) map[string]string {
	headers := map[string]string{"X-Request-Id": requestID}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	return headers
}
