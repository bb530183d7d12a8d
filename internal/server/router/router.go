// Package router wires up the adslot routes and applies the middleware
// chain (RequestID → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/server/handler"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/health"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/metrics"
	pkgmw "github.com/EmpowerLocal/empowerlocal-ad-components/pkg/middleware"
)

// New builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET /api/v1/slots/{zoneId}   → one slot fragment
//	GET /api/v1/page             → full page, one slot per ?zone=
//	GET /health/live             → liveness
//	GET /health/ready            → readiness
//
// m may be nil, in which case request metrics are not recorded.
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("GET /api/v1/slots/{zoneId}", h.Slot)
	mux.HandleFunc("GET /api/v1/page", h.Page)

	// request → RequestID → Metrics → Timeout → mux
	var chain http.Handler = mux
	chain = pkgmw.Timeout(timeout)(chain)
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	chain = pkgmw.RequestID(chain)

	return chain
}
