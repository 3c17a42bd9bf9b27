package pricing

import (
	"testing"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

func TestNormalizeEstimateShapes(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		amount   string
		min      string
		tradeID  string
		deadline string
	}{
		{
			name:    "nested trade",
			body:    `{"data":{"trade":{"destTokenAmount":"1000000","destTokenMinAmount":"990000","tradeId":"abc"}}}`,
			amount:  "1000000",
			min:     "990000",
			tradeID: "abc",
		},
		{
			name:    "nested trade wins over flat fields",
			body:    `{"destAmount":"5","data":{"destAmount":"6","trade":{"destTokenAmount":"7","tradeId":"nested"}},"tradeId":"flat"}`,
			amount:  "7",
			tradeID: "nested",
		},
		{
			name:     "legacy flat root",
			body:     `{"toAmount":"2500","toAmountMin":"2400","id":"legacy","expiresAt":"2024-10-01T00:00:00Z"}`,
			amount:   "2500",
			min:      "2400",
			tradeID:  "legacy",
			deadline: "2024-10-01T00:00:00Z",
		},
		{
			name:     "legacy flat under data with numeric fields",
			body:     `{"data":{"amountOut":123456,"deadline":1727740800,"tradeId":42}}`,
			amount:   "123456",
			tradeID:  "42",
			deadline: "1727740800",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := normalizeEstimate([]byte(tc.body))
			if err != nil {
				t.Fatalf("normalizeEstimate failed: %v", err)
			}
			if res.DestAmountBaseUnits != tc.amount || res.DestAmountMinBaseUnits != tc.min {
				t.Fatalf("unexpected amounts %+v", res)
			}
			if res.TradeID != tc.tradeID || res.Deadline != tc.deadline {
				t.Fatalf("unexpected metadata %+v", res)
			}
		})
	}
}

func TestNormalizeEstimateCarriesTransaction(t *testing.T) {
	body := `{"data":{"trade":{"destTokenAmount":"1","fees":{"protocol":"0.1"}},"tx":{"to":"0x0000000000000000000000000000000000000DDD","data":"0x1234","value":"1000","chainId":8453}}}`
	res, err := normalizeEstimate([]byte(body))
	if err != nil {
		t.Fatalf("normalizeEstimate failed: %v", err)
	}
	if res.Tx == nil || res.Tx.To != "0x0000000000000000000000000000000000000DDD" || res.Tx.Value != "1000" || res.Tx.ChainID != 8453 {
		t.Fatalf("unexpected tx payload %+v", res.Tx)
	}
	if string(res.Fees) != `{"protocol":"0.1"}` {
		t.Fatalf("unexpected fees %s", res.Fees)
	}
}

func TestNormalizeEstimateMalformed(t *testing.T) {
	for _, body := range []string{
		`[]`,
		`not json`,
		`{}`,
		`{"data":{"trade":{"tradeId":"no-amount"}}}`,
		`{"data":{"trade":{"destTokenAmount":{"v":1}}}}`,
	} {
		if _, err := normalizeEstimate([]byte(body)); clierr.CodeOf(err) != clierr.CodeMalformedResponse {
			t.Fatalf("expected malformed response for %s, got %v", body, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"SUCCESS":    StatusSuccess,
		"success":    StatusSuccess,
		"FAILED":     StatusFailed,
		"REFUNDED":   StatusRefunded,
		"UNKNOWN":    StatusUnknown,
		"PENDING":    StatusPending,
		"processing": StatusPending,
		"":           StatusPending,
	}
	for raw, want := range cases {
		if got := ParseStatus(raw); got != want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", raw, got, want)
		}
	}
	if StatusPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
}
