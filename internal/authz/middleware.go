package authz

import (
	"log/slog"
	"net/http"

	"github.com/lumen-commerce/lumen/internal/observability"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// Middleware wires authorization checks for HTTP handlers.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Require ensures the acting user holds the permission on the request's
// active channel. Anonymous requests are rejected without revealing
// whether the target exists.
func (m Middleware) Require(p permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := shared.RequestFromContext(r.Context())
			if !rc.Authenticated() {
				m.Metrics.RecordAuthzDecision("denied")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			allowed, err := m.Evaluator.UserHasPermissionOnChannel(r.Context(), rc.ActiveUserID, rc.ActiveChannelID, p)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require", slog.Any("error", err))
				}
				m.Metrics.RecordAuthzDecision("error")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				m.Metrics.RecordAuthzDecision("denied")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			m.Metrics.RecordAuthzDecision("allowed")
			next.ServeHTTP(w, r)
		})
	}
}
