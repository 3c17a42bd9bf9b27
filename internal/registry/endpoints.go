package registry

import (
	"net"
	"net/url"
	"strings"
)

const (
	// Pricing service endpoints.
	PricingBaseURL      = "https://trading.ai.zircuit.com/api/engine/v1"
	PricingEstimatePath = "/order/estimate"
	PricingStatusPath   = "/order/status"
)

// IsAllowedPricingURL accepts https endpoints and plain http only on loopback hosts,
// so API keys are never sent in clear text to a remote host.
func IsAllowedPricingURL(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return false
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if isLoopbackHost(parsed.Hostname()) {
		return scheme == "http" || scheme == "https"
	}
	return scheme == "https"
}

// JoinURL appends path to base without doubling slashes.
func JoinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + strings.TrimLeft(path, "/")
}

func isLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
