// Package ipchecker decides whether a client address belongs to the trusted
// subnet and guards internal endpoints with that decision.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
)

// IPChecker holds the trusted subnet. A checker without one trusts nobody.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet in CIDR notation. An empty string yields a
// checker that rejects every address.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: parse trusted subnet: %w", err)
	}

	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP is inside the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP reads X-Real-IP, then the first X-Forwarded-For entry, then
// the connection's remote address.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: split remote address: %w", err)
	}

	return net.ParseIP(host), nil
}

func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// Guard answers 403 to every client outside the trusted subnet.
func (checker *IPChecker) Guard(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			http.Error(response, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil || !checker.Check(clientIP) {
			logger.Log.Infow("untrusted client refused", "uri", request.RequestURI, "ip", clientIP)
			http.Error(response, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
