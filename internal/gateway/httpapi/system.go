package httpapi

import (
	"net/http"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
)

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime"`
	Cache    string `json:"cache"`
	Degraded bool   `json:"degraded,omitempty"`
}

// HandleHealthz reports liveness plus the shared cache's state. The gateway
// stays "ok" while degraded to the in-process fallback; operators see the
// flag and the matching metric.
func (rt *Router) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: rt.buildVersion,
		Uptime:  time.Since(rt.startTime).Round(time.Second).String(),
		Cache:   "ok",
	}

	if err := rt.Cache.Ping(r.Context()); err != nil {
		resp.Cache = "unreachable"
	}
	if rt.Failover != nil && rt.Failover.Degraded() {
		resp.Degraded = true
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
