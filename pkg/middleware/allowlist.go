package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
)

// LoopbackCIDRs restricts the bridge to the local machine.
var LoopbackCIDRs = []string{"127.0.0.0/8", "::1/128"}

// IPAllowlist returns middleware that only admits requests whose remote
// address falls inside one of the CIDR ranges. Invalid CIDRs are logged and
// skipped; an allowlist with no valid ranges rejects everything.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("invalid allowlist CIDR, skipping",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		nets = append(nets, ipNet)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !contains(nets, net.ParseIP(host)) {
				logger.WarnContext(r.Context(), "access denied by IP allowlist",
					slog.String("ip", host),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "FORBIDDEN",
						Message: "bridge only accepts local connections",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func contains(nets []*net.IPNet, ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
