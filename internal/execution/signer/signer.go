package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
}

// Factory builds the signing client for one chain from the shared relayer key.
type Factory func(chainID *big.Int, key *ecdsa.PrivateKey) (Signer, error)

// LocalFactory signs in-process with the relayer key on every chain.
func LocalFactory(_ *big.Int, key *ecdsa.PrivateKey) (Signer, error) {
	return NewLocalSigner(key)
}
