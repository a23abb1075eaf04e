package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// InstallationIDHeader lets a UI shell hosting several installations tag requests.
const InstallationIDHeader = "X-Installation-ID"

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// installation_id, trace_id, and span_id, and stores it in the request
// context. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger, installationID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id := r.Header.Get(InstallationIDHeader)
			if id == "" {
				id = installationID
			}
			if id != "" {
				ctx = logger.WithInstallationID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
