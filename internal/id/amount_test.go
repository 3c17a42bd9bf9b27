package id

import (
	"testing"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"0.01", 18, "10000000000000000"},
		{"1.25", 6, "1250000"},
		{"10", 6, "10000000"},
		{"0", 6, "0"},
		{"1.1234560", 6, "1123456"},
		{"007", 0, "7"},
	}
	for _, tc := range cases {
		got, err := ToBaseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %d) failed: %v", tc.in, tc.decimals, err)
		}
		if got != tc.want {
			t.Fatalf("ToBaseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestToBaseUnitsRejectsExcessPrecision(t *testing.T) {
	_, err := ToBaseUnits("1.1234567", 6)
	if clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestToBaseUnitsRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "-1", "1e18", "abc", "1.", ".5", "1,5"} {
		if _, err := ToBaseUnits(in, 6); clierr.CodeOf(err) != clierr.CodeInvalidAmount {
			t.Fatalf("expected invalid amount for %q, got %v", in, err)
		}
	}
	if _, err := ToBaseUnits("1", 37); clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("expected decimals bound error, got %v", err)
	}
}

func TestToBaseUnitsDecimal(t *testing.T) {
	got, err := ToBaseUnitsDecimal(decimal.RequireFromString("0.01"), 18)
	if err != nil {
		t.Fatalf("ToBaseUnitsDecimal failed: %v", err)
	}
	if got != "10000000000000000" {
		t.Fatalf("unexpected base units %s", got)
	}
	if _, err := ToBaseUnitsDecimal(decimal.NewFromInt(-1), 6); err == nil {
		t.Fatal("expected negative amount to fail")
	}
}

func TestFromBaseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1000000", 6, "1.0"},
		{"990000", 6, "0.99"},
		{"1", 18, "0.000000000000000001"},
		{"0", 6, "0.0"},
		{"42", 0, "42.0"},
		{"-1500000", 6, "-1.5"},
	}
	for _, tc := range cases {
		if got := FromBaseUnits(tc.in, tc.decimals); got != tc.want {
			t.Fatalf("FromBaseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestFromBaseUnitsFallsBackToInput(t *testing.T) {
	for _, in := range []string{"N/A", "1.5", "0x10", ""} {
		if got := FromBaseUnits(in, 6); got != in {
			t.Fatalf("expected %q unchanged, got %q", in, got)
		}
	}
}

func TestAmountRoundTrip(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int
	}{
		{"0.01", 18},
		{"1.0", 6},
		{"123.456", 6},
		{"0.000001", 6},
		{"99999999999999999999.5", 18},
		{"7.0", 0},
	}
	for _, tc := range cases {
		base, err := ToBaseUnits(tc.amount, tc.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q) failed: %v", tc.amount, err)
		}
		if got := FromBaseUnits(base, tc.decimals); got != tc.amount {
			t.Fatalf("round trip %q/%d produced %q", tc.amount, tc.decimals, got)
		}
	}
}
