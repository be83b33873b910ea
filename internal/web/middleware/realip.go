package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP rewrites RemoteAddr from X-Real-IP or X-Forwarded-For, but
// only when the connection comes from a trusted proxy CIDR. Requests from
// anywhere else keep their connection address, so clients cannot spoof the
// IP the rate limiter and logs see.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	var trustedNets []*net.IPNet
	for _, cidr := range trustedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Allow a bare IP as shorthand for a /32 (or /128).
			if ip := net.ParseIP(cidr); ip != nil {
				mask := net.CIDRMask(128, 128)
				if ip.To4() != nil {
					mask = net.CIDRMask(32, 32)
				}
				trustedNets = append(trustedNets, &net.IPNet{IP: ip, Mask: mask})
			} else {
				slog.Warn("realip: invalid trusted proxy CIDR, skipping",
					"cidr", cidr,
					"error", err,
				)
			}
			continue
		}
		trustedNets = append(trustedNets, network)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remoteIP := extractIP(r.RemoteAddr)

			if isTrusted(remoteIP, trustedNets) {
				if rip := r.Header.Get("X-Real-IP"); rip != "" {
					if ip := net.ParseIP(strings.TrimSpace(rip)); ip != nil {
						r.RemoteAddr = ip.String()
					}
				} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
					candidate := xff
					if idx := strings.Index(xff, ","); idx > 0 {
						candidate = xff[:idx]
					}
					if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
						r.RemoteAddr = ip.String()
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
