package pricing

import (
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
	StatusUnknown  Status = "UNKNOWN"
)

// ParseStatus maps a raw status string onto the known set. Anything that is not a
// settled outcome (including empty and unrecognized values) is pending.
func ParseStatus(raw string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusSuccess:
		return StatusSuccess
	case StatusFailed:
		return StatusFailed
	case StatusRefunded:
		return StatusRefunded
	case StatusUnknown:
		return StatusUnknown
	default:
		return StatusPending
	}
}

func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusRefunded, StatusUnknown:
		return true
	default:
		return false
	}
}

// QuoteRequest is the estimate request body. Empty optional addresses are omitted
// on the wire.
type QuoteRequest struct {
	SrcChainID         int64  `json:"srcChainId" validate:"gt=0"`
	SrcToken           string `json:"srcToken" validate:"required,eth_addr"`
	SrcAmountBaseUnits string `json:"srcAmountWei" validate:"required"`
	DestToken          string `json:"destToken" validate:"required,eth_addr"`
	DestChainID        int64  `json:"destChainId" validate:"gte=0"`
	SlippageBps        int    `json:"slippageBps" validate:"gte=0,lte=10000"`
	UserAccount        string `json:"userAccount,omitempty" validate:"omitempty,eth_addr"`
	DestReceiver       string `json:"destReceiver,omitempty" validate:"omitempty,eth_addr"`
}

// TxPayload is the transaction the pricing service suggests for executing a quote.
type TxPayload struct {
	To      string `json:"to"`
	Data    string `json:"data,omitempty"`
	Value   string `json:"value,omitempty"`
	ChainID int64  `json:"chainId,omitempty"`
}

type QuoteResult struct {
	DestAmountBaseUnits    string          `json:"dest_amount_base_units"`
	DestAmountMinBaseUnits string          `json:"dest_amount_min_base_units,omitempty"`
	TradeID                string          `json:"trade_id,omitempty"`
	Fees                   json.RawMessage `json:"fees,omitempty"`
	Deadline               string          `json:"deadline,omitempty"`
	Tx                     *TxPayload      `json:"tx,omitempty"`
}

type TradeStatus struct {
	TxHash    string          `json:"tx_hash"`
	Status    Status          `json:"status"`
	RawStatus string          `json:"raw_status,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

// StatusCache persists settled trade statuses.
type StatusCache interface {
	GetTradeStatus(txHash string) (TradeStatus, bool, error)
	PutTradeStatus(status TradeStatus) error
}
