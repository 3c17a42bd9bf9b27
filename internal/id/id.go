package id

import (
	"fmt"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

var (
	symbolPattern    = regexp.MustCompile(`^[A-Z0-9.]{1,16}$`)
	chainSlugPattern = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
)

const pairSeparator = ">"

// TokenKey is the chain-scoped symbol key, rendered SYMBOL@chain-slug.
type TokenKey struct {
	Symbol string
	Chain  string
}

func (k TokenKey) String() string {
	return k.Symbol + "@" + k.Chain
}

func NewTokenKey(symbol, chainSlug string) TokenKey {
	return TokenKey{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), Chain: strings.ToLower(strings.TrimSpace(chainSlug))}
}

func ParseTokenKey(input string) (TokenKey, error) {
	raw := strings.TrimSpace(input)
	symbol, chain, ok := strings.Cut(raw, "@")
	if !ok {
		return TokenKey{}, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("token key %q must look like SYMBOL@chain", input))
	}
	key := NewTokenKey(symbol, chain)
	if !symbolPattern.MatchString(key.Symbol) || !chainSlugPattern.MatchString(key.Chain) {
		return TokenKey{}, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("invalid token key %q", input))
	}
	return key, nil
}

// PairKey joins two token keys into the key used in pair selection events.
func PairKey(src, dst TokenKey) string {
	return src.String() + pairSeparator + dst.String()
}

func ParsePairKey(input string) (TokenKey, TokenKey, error) {
	srcRaw, dstRaw, ok := strings.Cut(strings.TrimSpace(input), pairSeparator)
	if !ok {
		return TokenKey{}, TokenKey{}, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("pair key %q must look like SRC@chain>DST@chain", input))
	}
	src, err := ParseTokenKey(srcRaw)
	if err != nil {
		return TokenKey{}, TokenKey{}, err
	}
	dst, err := ParseTokenKey(dstRaw)
	if err != nil {
		return TokenKey{}, TokenKey{}, err
	}
	return src, dst, nil
}
