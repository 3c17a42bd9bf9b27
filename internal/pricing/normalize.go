package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

// flexString accepts a JSON string or number and keeps the literal text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

type tradeFields struct {
	DestTokenAmount    flexString      `json:"destTokenAmount"`
	DestAmount         flexString      `json:"destAmount"`
	ToAmount           flexString      `json:"toAmount"`
	AmountOut          flexString      `json:"amountOut"`
	DestTokenMinAmount flexString      `json:"destTokenMinAmount"`
	DestAmountMin      flexString      `json:"destAmountMin"`
	ToAmountMin        flexString      `json:"toAmountMin"`
	MinAmountOut       flexString      `json:"minAmountOut"`
	TradeID            flexString      `json:"tradeId"`
	ID                 flexString      `json:"id"`
	Deadline           flexString      `json:"deadline"`
	Expiry             flexString      `json:"expiry"`
	ExpiresAt          flexString      `json:"expiresAt"`
	Fees               json.RawMessage `json:"fees"`
}

func (t tradeFields) destAmount() string {
	return firstNonEmpty(t.DestTokenAmount, t.DestAmount, t.ToAmount, t.AmountOut)
}

func (t tradeFields) result() QuoteResult {
	res := QuoteResult{
		DestAmountBaseUnits:    t.destAmount(),
		DestAmountMinBaseUnits: firstNonEmpty(t.DestTokenMinAmount, t.DestAmountMin, t.ToAmountMin, t.MinAmountOut),
		TradeID:                firstNonEmpty(t.TradeID, t.ID),
		Deadline:               firstNonEmpty(t.Deadline, t.Expiry, t.ExpiresAt),
	}
	if fees := bytes.TrimSpace(t.Fees); len(fees) > 0 && !bytes.Equal(fees, []byte("null")) {
		res.Fees = append(json.RawMessage(nil), fees...)
	}
	return res
}

type txFields struct {
	To      string     `json:"to"`
	Data    string     `json:"data"`
	Value   flexString `json:"value"`
	ChainID flexString `json:"chainId"`
}

// normalizeEstimate reduces both known estimate response shapes to a QuoteResult.
// A nested data.trade object is authoritative; legacy flat fields on data or on the
// root object are used only when it is absent.
func normalizeEstimate(raw []byte) (QuoteResult, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return QuoteResult{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode estimate response", err)
	}
	var data map[string]json.RawMessage
	if isObject(root["data"]) {
		if err := json.Unmarshal(root["data"], &data); err != nil {
			return QuoteResult{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode estimate data", err)
		}
	}

	var (
		res   QuoteResult
		found bool
	)
	if trade := data["trade"]; isObject(trade) {
		var fields tradeFields
		if err := json.Unmarshal(trade, &fields); err != nil {
			return QuoteResult{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode estimate trade", err)
		}
		if fields.destAmount() == "" {
			return QuoteResult{}, clierr.New(clierr.CodeMalformedResponse, "estimate trade has no destination amount")
		}
		res, found = fields.result(), true
	} else {
		for _, candidate := range []json.RawMessage{root["data"], raw} {
			if !isObject(candidate) {
				continue
			}
			var fields tradeFields
			if err := json.Unmarshal(candidate, &fields); err != nil {
				return QuoteResult{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode estimate fields", err)
			}
			if fields.destAmount() != "" {
				res, found = fields.result(), true
				break
			}
		}
	}
	if !found {
		return QuoteResult{}, clierr.New(clierr.CodeMalformedResponse, "estimate response contains no trade")
	}

	txRaw := data["tx"]
	if !isObject(txRaw) {
		txRaw = root["tx"]
	}
	if isObject(txRaw) {
		var tx txFields
		if err := json.Unmarshal(txRaw, &tx); err != nil {
			return QuoteResult{}, clierr.Wrap(clierr.CodeMalformedResponse, "decode estimate transaction", err)
		}
		if strings.TrimSpace(tx.To) != "" {
			payload := &TxPayload{To: strings.TrimSpace(tx.To), Data: strings.TrimSpace(tx.Data), Value: string(tx.Value)}
			if id, err := strconv.ParseInt(string(tx.ChainID), 0, 64); err == nil {
				payload.ChainID = id
			}
			res.Tx = payload
		}
	}
	return res, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
