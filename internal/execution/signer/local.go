package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// RelayerKeyLength is the exact length of relayer key material, 0x prefix included.
const RelayerKeyLength = 66

var relayerKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if s == nil || s.privateKey == nil {
		return nil, errors.New("local signer is not initialized")
	}
	signer := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, signer, s.privateKey)
}

// ValidRelayerKey reports whether raw has the strict 0x + 64 hex format.
func ValidRelayerKey(raw string) bool {
	return relayerKeyPattern.MatchString(strings.TrimSpace(raw))
}

// ParseRelayerKey checks the format and decodes the secp256k1 scalar.
func ParseRelayerKey(raw string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimSpace(raw)
	if !ValidRelayerKey(clean) {
		return nil, fmt.Errorf("relayer key must be 0x followed by 64 hex characters (%d chars total)", RelayerKeyLength)
	}
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(clean, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse relayer key: %w", err)
	}
	return pk, nil
}

func NewLocalSigner(pk *ecdsa.PrivateKey) (*LocalSigner, error) {
	if pk == nil {
		return nil, errors.New("missing private key")
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid ECDSA public key")
	}
	return &LocalSigner{privateKey: pk, address: crypto.PubkeyToAddress(*pub)}, nil
}

// NewLocalSignerFromHex is ParseRelayerKey followed by NewLocalSigner.
func NewLocalSignerFromHex(raw string) (*LocalSigner, error) {
	pk, err := ParseRelayerKey(raw)
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(pk)
}
