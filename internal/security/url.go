package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrInvalidScheme = fmt.Errorf("only HTTPS URLs are allowed for public hosts")
	ErrMissingHost   = fmt.Errorf("URL has no host")
)

// ValidateEndpoint checks a service base URL before any key is sent to it.
// Public hosts must use HTTPS. Plain HTTP is accepted only for localhost and
// private or loopback IP literals, which covers local proxies and test
// servers. Host names are not resolved.
func ValidateEndpoint(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return ErrMissingHost
	}

	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		if isLocalHost(host) {
			return nil
		}
		return ErrInvalidScheme
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidScheme, parsed.Scheme)
	}
}

func isLocalHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		// 100.64.0.0/10 (CGNAT)
		return ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127
	}

	return false
}
