package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/abuse"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/access"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/audit/spool"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/csrf"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/httpapi"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/token"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/cryptox"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the gateway together: the shared cache, the token
// authority, the abuse layers, the audit pipeline and the HTTP surface.
// The platform supplies its user store and store-membership lookup through
// the narrow collaborator interfaces.
type Application struct {
	cfg    Config
	logger *slog.Logger

	memory   *cache.MemoryStore
	store    cache.Store
	failover *cache.Failover

	tokens     *token.Authority
	access     *access.Controller
	bruteForce *abuse.BruteForceGuard
	reputation *abuse.Reputation
	csrf       *csrf.Service
	pipeline   *audit.Pipeline
	spool      *spool.Spool

	server *http.Server
	router *httpapi.Router

	pruneStop chan struct{}
	pruneDone chan struct{}
}

// New creates an Application with all dependencies initialized.
func New(cfg Config, users token.UserLookup, members access.MembershipResolver) (*Application, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("GATEWAY_ACCESS_SECRET and GATEWAY_REFRESH_SECRET are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.FingerprintKey == "" {
		return nil, errors.New("GATEWAY_FINGERPRINT_KEY is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "storefront-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	obs.Init()

	if err := app.initCache(); err != nil {
		return nil, err
	}
	if err := app.initServices(users, members); err != nil {
		return nil, err
	}
	if err := app.initAudit(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// initCache builds the shared store. With a redis address configured the
// gateway runs redis-primary with the in-process store as fallback;
// without one it runs purely in-process (single instance deployments).
func (app *Application) initCache() error {
	app.memory = cache.NewMemoryStore(app.cfg.SweepInterval, app.logger)

	if app.cfg.RedisAddr == "" {
		app.logger.Warn("no REDIS_ADDR configured, revocations are invisible to sibling instances")
		app.store = app.memory
		return nil
	}

	redis, err := cache.NewRedisStore(context.Background(), app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	app.failover = cache.NewFailover(redis, app.memory, app.logger, func() {
		obs.SetCacheDegraded(true)
	})
	app.store = app.failover
	return nil
}

func (app *Application) initServices(users token.UserLookup, members access.MembershipResolver) error {
	fp, err := cryptox.NewFingerprinter([]byte(app.cfg.FingerprintKey))
	if err != nil {
		return fmt.Errorf("init fingerprinter: %w", err)
	}

	app.tokens = &token.Authority{
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		Issuer:        app.cfg.Issuer,
		Audience:      app.cfg.Audience,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		Leeway:        app.cfg.ClockSkew,
		Cache:         app.store,
		Users:         users,
		FP:            fp,
	}

	app.access = &access.Controller{Members: members}

	app.bruteForce = &abuse.BruteForceGuard{
		Cache:      app.store,
		Threshold:  app.cfg.BruteForceThreshold,
		BaseWindow: app.cfg.BruteForceWindow,
		MaxBlock:   app.cfg.BruteForceMaxBlock,
	}

	app.reputation = &abuse.Reputation{
		Cache:          app.store,
		BlockThreshold: app.cfg.ReputationThreshold,
		TrackWindow:    app.cfg.ReputationWindow,
		BlockDuration:  app.cfg.ReputationBlock,
	}

	app.csrf = &csrf.Service{
		Cache:      app.store,
		FP:         fp,
		TTL:        app.cfg.CSRFTTL,
		StrictIP:   app.cfg.CSRFStrictIP,
		CookieName: app.cfg.CSRFCookieName,
	}

	return nil
}

func (app *Application) initAudit() error {
	sinks := []audit.Sink{&audit.SlogSink{Logger: app.logger}}

	if app.cfg.AuditSpoolFile != "" {
		sp, err := spool.New(app.cfg.AuditSpoolFile)
		if err != nil {
			return fmt.Errorf("open audit spool: %w", err)
		}
		app.spool = sp
		sinks = append(sinks, sp)
	}

	app.pipeline = audit.NewPipeline(sinks, app.cfg.AuditBufferSize, app.cfg.AuditFlushInterval, app.logger)
	return nil
}

func (app *Application) initHTTP() {
	rt := httpapi.NewRouter(BuildVersion, app.logger)
	rt.Tokens = app.tokens
	rt.Access = app.access
	rt.BruteForce = app.bruteForce
	rt.Reputation = app.reputation
	rt.CSRF = app.csrf
	rt.Cache = app.store
	rt.Failover = app.failover
	rt.Auditor = &audit.Auditor{
		Pipeline: app.pipeline,
		Capture: audit.CaptureConfig{
			MaxBodySize:    app.cfg.AuditMaxBodySize,
			ExcludePaths:   app.cfg.AuditExcludePaths,
			ExcludeMethods: app.cfg.AuditExcludeMethods,
			ExcludeHeaders: app.cfg.AuditExcludeHeaders,
		},
		Redactor: audit.NewRedactor(app.cfg.AuditPIIFields),
	}
	rt.ApplyRoutes()

	app.router = rt
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           rt,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router exposes the HTTP surface so the platform can Mount business
// handlers behind the gateway's chain before calling Run.
func (app *Application) Router() *httpapi.Router { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.memory.Start()
	app.pipeline.Start()
	if app.spool != nil {
		app.startPruner()
	}

	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, flushes the audit pipeline and stops
// the background workers.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Pipeline.Stop performs a final drain before sinks close.
	app.pipeline.Stop()
	if app.pruneStop != nil {
		close(app.pruneStop)
		<-app.pruneDone
	}
	app.memory.Stop()

	app.logger.Info("gateway stopped")
	return nil
}

// startPruner trims spooled audit events past the retention horizon once an
// hour. The spool is append-heavy; without pruning it grows without bound.
func (app *Application) startPruner() {
	app.pruneStop = make(chan struct{})
	app.pruneDone = make(chan struct{})

	go func() {
		defer close(app.pruneDone)

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-app.cfg.AuditRetention).UnixMilli()
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				pruned, err := app.spool.Prune(ctx, cutoff)
				cancel()
				if err != nil {
					app.logger.Warn("audit spool prune failed", "error", err)
				} else if pruned > 0 {
					app.logger.Info("audit spool pruned", "events", pruned)
				}
			case <-app.pruneStop:
				return
			}
		}
	}()
}
