package model

import (
	"fmt"
	"strings"
	"time"
)

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code       int    `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status,omitempty"`
	HTTPCause  string `json:"http_cause,omitempty"`
}

type EnvelopeMeta struct {
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
	Command   string      `json:"command"`
	Cache     CacheStatus `json:"cache"`
}

type CacheStatus struct {
	Status string `json:"status"`
	AgeMS  int64  `json:"age_ms"`
}

type PairInfo struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Network string `json:"network"`
	Src     string `json:"src"`
	Dst     string `json:"dst"`
}

type ChainInfo struct {
	ChainID        int64  `json:"chain_id"`
	Slug           string `json:"slug"`
	Label          string `json:"label"`
	Network        string `json:"network"`
	RPCURL         string `json:"rpc_url"`
	ReadOnly       bool   `json:"read_only"`
	Error          string `json:"error,omitempty"`
	RelayerBalance string `json:"relayer_balance,omitempty"`
}

type ChainsReport struct {
	SignerAddress string      `json:"signer_address,omitempty"`
	SigningChains int         `json:"signing_chains"`
	Chains        []ChainInfo `json:"chains"`
}

type VersionInfo struct {
	CLI             string `json:"cli"`
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	Built           string `json:"built"`
	RegistryVersion string `json:"registry_version"`
}

func (v VersionInfo) PlainText() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, registry: %s)", v.CLI, v.Version, v.Commit, v.Built, v.RegistryVersion)
}

func (r ChainsReport) PlainText() string {
	lines := make([]string, 0, len(r.Chains)+1)
	if r.SignerAddress != "" {
		lines = append(lines, fmt.Sprintf("relayer %s signing on %d chain(s)", r.SignerAddress, r.SigningChains))
	} else {
		lines = append(lines, "read-only: no relayer signer")
	}
	for _, c := range r.Chains {
		mode := "signing"
		if c.ReadOnly {
			mode = "read-only"
		}
		line := fmt.Sprintf("  %-10d %-18s %-9s %s", c.ChainID, c.Label, mode, c.RPCURL)
		if c.RelayerBalance != "" {
			line += " balance=" + c.RelayerBalance
		}
		if c.Error != "" {
			line += " error=" + c.Error
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
