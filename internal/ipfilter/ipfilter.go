// Package ipfilter restricts the local HTTP listeners (preview and metrics)
// to configured client addresses.
package ipfilter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Filter holds the networks allowed to reach a listener.
// A filter without networks allows everyone.
type Filter struct {
	nets   []*net.IPNet
	scope  string
	logger *slog.Logger
}

// New parses entries as single addresses or CIDRs. Invalid entries are
// logged and skipped. scope names the listener in log lines.
func New(scope string, entries []string, logger *slog.Logger) *Filter {
	f := &Filter{scope: scope, logger: logger}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("invalid CIDR in allowed_ips", "scope", scope, "cidr", entry, "error", err)
				continue
			}
			f.nets = append(f.nets, ipNet)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("invalid IP in allowed_ips", "scope", scope, "ip", entry)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			bits = 32
		}
		f.nets = append(f.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	if len(f.nets) > 0 {
		logger.Info("IP filtering enabled", "scope", scope, "allowed_networks", len(f.nets))
	}
	return f
}

// Enabled reports whether any network was configured
func (f *Filter) Enabled() bool {
	return len(f.nets) > 0
}

// Count returns the number of parsed networks
func (f *Filter) Count() int {
	return len(f.nets)
}

// Allows reports whether ip may pass
func (f *Filter) Allows(ip net.IP) bool {
	if len(f.nets) == 0 {
		return true
	}
	for _, ipNet := range f.nets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware rejects requests from addresses outside the filter with 403
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ip := ClientIP(r)
		if ip == nil {
			f.logger.Warn("could not parse client IP", "scope", f.scope, "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if !f.Allows(ip) {
			f.logger.Warn("access denied", "scope", f.scope, "ip", ip.String(), "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client address, preferring proxy headers
func ClientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}
