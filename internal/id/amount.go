package id

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

// MaxDecimals bounds token precision.
const MaxDecimals = 36

var (
	decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	integerPattern = regexp.MustCompile(`^-?[0-9]+$`)
)

// ToBaseUnits converts a human-readable decimal amount into an integer base-unit string.
// The conversion is exact; inputs carrying more precision than decimals are rejected.
func ToBaseUnits(amount string, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", clierr.New(clierr.CodeInvalidAmount, fmt.Sprintf("decimals must be within [0, %d]", MaxDecimals))
	}
	raw := strings.TrimSpace(amount)
	if !decimalPattern.MatchString(raw) {
		return "", clierr.New(clierr.CodeInvalidAmount, fmt.Sprintf("amount %q must be a non-negative decimal like 1.23", amount))
	}
	return decimalToBaseUnits(raw, decimals)
}

// ToBaseUnitsDecimal is ToBaseUnits for numeric inputs.
func ToBaseUnitsDecimal(amount decimal.Decimal, decimals int) (string, error) {
	if amount.Sign() < 0 {
		return "", clierr.New(clierr.CodeInvalidAmount, "amount must be non-negative")
	}
	return ToBaseUnits(amount.String(), decimals)
}

// FromBaseUnits renders a base-unit integer string in display units with at least one
// fractional digit. Inputs that are not integer numerals are returned unchanged.
func FromBaseUnits(baseUnits string, decimals int) string {
	raw := strings.TrimSpace(baseUnits)
	if !integerPattern.MatchString(raw) || decimals < 0 || decimals > MaxDecimals {
		return baseUnits
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return baseUnits
	}
	negative := n.Sign() < 0
	s := new(big.Int).Abs(n).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		fracPart = "0"
	}
	out := intPart + "." + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

func decimalToBaseUnits(value string, decimals int) (string, error) {
	parts := strings.SplitN(value, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = strings.TrimRight(parts[1], "0")
	}
	if len(fracPart) > decimals {
		return "", clierr.New(clierr.CodeInvalidAmount, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", clierr.New(clierr.CodeInvalidAmount, "invalid decimal amount")
	}
	return combined, nil
}

// IsBaseUnits reports whether v is a non-negative base-10 integer string.
func IsBaseUnits(v string) bool {
	if v == "" || strings.HasPrefix(v, "-") {
		return false
	}
	return integerPattern.MatchString(v)
}
