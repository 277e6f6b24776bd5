package core

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateWebhookURL rejects destinations the dispatcher must never POST to.
// Development mode accepts plain http and local hosts so integration tests can
// target httptest servers. Production requires https and refuses loopback,
// private, and otherwise non-routable addresses.
func ValidateWebhookURL(raw string, production bool) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("core: webhook url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("core: webhook url is invalid: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("core: webhook url must be absolute")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("core: webhook url must use http or https")
	}
	if !production {
		return nil
	}
	if scheme != "https" {
		return fmt.Errorf("core: webhook url must use https")
	}

	host := parsed.Hostname()
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("core: webhook url host %q is not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil && !isPubliclyRoutable(ip) {
		return fmt.Errorf("core: webhook url host %q is not allowed", host)
	}
	return nil
}

func isPubliclyRoutable(ip net.IP) bool {
	switch {
	case ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsMulticast(),
		ip.IsUnspecified():
		return false
	default:
		return true
	}
}
