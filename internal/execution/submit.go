package execution

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

// TxRequest is an unsigned call; zero gas and fee fields are filled from the chain.
type TxRequest struct {
	To                   common.Address
	Data                 []byte
	Value                *big.Int
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type TransactionHandle struct {
	ChainID int64  `json:"chain_id"`
	Hash    string `json:"tx_hash"`
	From    string `json:"from"`
	Nonce   uint64 `json:"nonce"`
}

// NewTxRequest parses a transaction payload as returned by the pricing service.
// value may be decimal or 0x-prefixed hex.
func NewTxRequest(to, data, value string) (TxRequest, error) {
	if !common.IsHexAddress(strings.TrimSpace(to)) {
		return TxRequest{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid transaction target %q", to))
	}
	calldata, err := decodeHex(data)
	if err != nil {
		return TxRequest{}, clierr.Wrap(clierr.CodeUsage, "decode calldata", err)
	}
	amount, err := parseValue(value)
	if err != nil {
		return TxRequest{}, clierr.Wrap(clierr.CodeUsage, "parse transaction value", err)
	}
	return TxRequest{To: common.HexToAddress(strings.TrimSpace(to)), Data: calldata, Value: amount}, nil
}

// Submit signs req with the chain's relayer signer and broadcasts it.
func (m *Manager) Submit(ctx context.Context, chainID int64, req TxRequest) (TransactionHandle, error) {
	h, ok := m.handles[chainID]
	if !ok {
		return TransactionHandle{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("chain %d is not supported", chainID))
	}
	if h.Signer == nil {
		return TransactionHandle{}, clierr.New(clierr.CodeSignerUnavailable, fmt.Sprintf("no signing client for chain %d; configure a valid relayer key", chainID))
	}
	client := h.Query

	remoteID, err := client.ChainID(ctx)
	if err != nil {
		return TransactionHandle{}, clierr.Wrap(clierr.CodeNetworkUnavailable, "read chain id", err)
	}
	if remoteID.Int64() != chainID {
		return TransactionHandle{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("rpc for chain %d reports chain id %d", chainID, remoteID.Int64()))
	}

	from := h.Signer.Address()
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: req.Data}

	gasLimit := req.Gas
	if gasLimit == 0 {
		estimated, err := client.EstimateGas(ctx, msg)
		if err != nil {
			return TransactionHandle{}, clierr.Wrap(clierr.CodeNetworkUnavailable, "estimate gas", err)
		}
		gasLimit = estimated * m.gasBufferPct / 100
	}

	tipCap := req.MaxPriorityFeePerGas
	if tipCap == nil {
		tipCap, err = client.SuggestGasTipCap(ctx)
		if err != nil {
			tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
		}
	}
	feeCap := req.MaxFeePerGas
	if feeCap == nil {
		header, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return TransactionHandle{}, clierr.Wrap(clierr.CodeNetworkUnavailable, "fetch latest header", err)
		}
		baseFee := header.BaseFee
		if baseFee == nil {
			baseFee = big.NewInt(1_000_000_000)
		}
		feeCap = new(big.Int).Mul(baseFee, big.NewInt(2))
		feeCap.Add(feeCap, tipCap)
	}
	if feeCap.Cmp(tipCap) < 0 {
		return TransactionHandle{}, clierr.New(clierr.CodeUsage, "max fee per gas must be >= max priority fee per gas")
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return TransactionHandle{}, clierr.Wrap(clierr.CodeNetworkUnavailable, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   remoteID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := h.Signer.SignTx(remoteID, tx)
	if err != nil {
		return TransactionHandle{}, clierr.Wrap(clierr.CodeSignerUnavailable, "sign transaction", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return TransactionHandle{}, clierr.Wrap(clierr.CodeNetworkUnavailable, "broadcast transaction", err)
	}
	m.log.Info("submitted transaction",
		zap.Int64("chain_id", chainID),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
	)
	return TransactionHandle{ChainID: chainID, Hash: signed.Hash().Hex(), From: from.Hex(), Nonce: nonce}, nil
}

func decodeHex(v string) ([]byte, error) {
	clean := strings.TrimSpace(v)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return []byte{}, nil
	}
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	buf, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}

func parseValue(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return new(big.Int), nil
	}
	base := 10
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
		base = 16
		if clean == "" {
			return new(big.Int), nil
		}
	}
	n, ok := new(big.Int).SetString(clean, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q", v)
	}
	return n, nil
}
