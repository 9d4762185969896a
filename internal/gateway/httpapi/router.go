package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/abuse"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/access"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/csrf"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/token"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers and owns the global
// middleware chain.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Tokens     *token.Authority
	Access     *access.Controller
	BruteForce *abuse.BruteForceGuard
	Reputation *abuse.Reputation
	CSRF       *csrf.Service
	Auditor    *audit.Auditor
	Cache      cache.Store
	Failover   *cache.Failover // optional: health reporting only
	Notifier   Notifier
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	rt := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}
	rt.Notifier = &SlogNotifier{Logger: logger}
	return rt
}

// ApplyRoutes registers the gateway's own endpoints and freezes the global
// chain. Request-id logging sits outermost, then metrics; the auditor wraps
// everything below it so its interceptor sees every byte of every response,
// including denials from the abuse layers.
func (rt *Router) ApplyRoutes() {
	rt.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(rt.logger),
		rt.notifyMiddleware(),
		obs.Instrument(),
		rt.Auditor.Middleware(),
		abuse.RateLimit(abuse.GlobalTier, abuse.ByIP),
		rt.Reputation.Middleware(),
	}

	rt.registerAuth()
	rt.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(rt.Mux, rt.middlewares...).ServeHTTP(w, req)
}

func (rt *Router) registerAuth() {
	// Rotation is the credential-bearing endpoint: strict per-IP limiting
	// plus the lockout guard in front of it. The lockout key includes the
	// route so a lock earned here doesn't bleed into other guarded paths.
	rt.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(rt.HandleRefresh),
			abuse.RateLimit(abuse.AuthTier, abuse.ByIP),
			rt.BruteForce.Middleware(abuse.ByIPAndPath),
		),
	)

	rt.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(rt.HandleLogout),
			abuse.RateLimit(abuse.AuthTier, abuse.ByIP),
			rt.Authenticate,
		),
	)

	rt.Mux.Handle("GET /api/auth/csrf",
		httpx.Chain(http.HandlerFunc(rt.HandleCSRF),
			abuse.RateLimit(abuse.APITier, abuse.ByIP),
			rt.Authenticate,
		),
	)
}

func (rt *Router) registerSystem() {
	rt.Mux.HandleFunc("GET /healthz", rt.HandleHealthz)
	rt.Mux.Handle("GET /metrics", obs.Handler())
}

// Mount attaches a business handler behind the gateway's authentication and
// the API rate limit tier, plus any route-specific guards (permission
// checks, store access, CSRF). Guards run in the order given, inside
// authentication.
func (rt *Router) Mount(pattern string, handler http.Handler, guards ...httpx.Middleware) {
	chain := append([]httpx.Middleware{
		abuse.RateLimit(abuse.APITier, abuse.ByIP),
		rt.Authenticate,
	}, guards...)
	rt.Mux.Handle(pattern, httpx.Chain(handler, chain...))
}

// MountAdmin is Mount with the admin tier, keyed by IP and user so distinct
// admins behind one NAT don't throttle each other. The limiter sits inside
// authentication so the key carries the user id.
func (rt *Router) MountAdmin(pattern string, handler http.Handler, guards ...httpx.Middleware) {
	chain := append([]httpx.Middleware{
		rt.Authenticate,
		abuse.RateLimit(abuse.AdminTier, abuse.ByIPAndUser),
	}, guards...)
	rt.Mux.Handle(pattern, httpx.Chain(handler, chain...))
}

// MountUpload is Mount with the upload tier.
func (rt *Router) MountUpload(pattern string, handler http.Handler, guards ...httpx.Middleware) {
	chain := append([]httpx.Middleware{
		abuse.RateLimit(abuse.UploadTier, abuse.ByIP),
		rt.Authenticate,
	}, guards...)
	rt.Mux.Handle(pattern, httpx.Chain(handler, chain...))
}
