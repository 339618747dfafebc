// Package server wires configuration, storage, routing and the HTTP
// stack into a runnable FieldServe instance.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/fieldserve/fieldserve/internal/account"
	"github.com/fieldserve/fieldserve/internal/admission"
	"github.com/fieldserve/fieldserve/internal/auth"
	"github.com/fieldserve/fieldserve/internal/billing"
	"github.com/fieldserve/fieldserve/internal/config"
	"github.com/fieldserve/fieldserve/internal/health"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/metrics"
	"github.com/fieldserve/fieldserve/internal/organisation"
	"github.com/fieldserve/fieldserve/internal/plan"
	"github.com/fieldserve/fieldserve/internal/ratelimit"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/security"
	"github.com/fieldserve/fieldserve/internal/tenant"
	"github.com/fieldserve/fieldserve/internal/traces"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Server is the assembled application.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *gin.Engine
	http   *http.Server

	db      *sql.DB
	limiter *ratelimit.Limiter
	health  *health.Registry

	shutdownTraces func(context.Context) error
}

// New assembles a server from configuration. With DATABASE_URL set the
// platform runs on PostgreSQL; without it everything is in-memory,
// which is the demo and test mode.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		health: health.NewRegistry(),
	}

	var (
		binder      schema.Binder
		tenants     tenant.Store
		plans       plan.Store
		accounts    account.Provider
		companies   organisation.Provider
		provisioner tenant.Provisioner
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		s.db = db

		binder = schema.NewPGBinder(db, cfg.PublicSchema)
		tenants = tenant.NewPostgresStore(db)
		plans = plan.NewPostgresStore(db)
		accounts = account.NewPostgresProvider()
		companies = organisation.NewPostgresProvider()
		provisioner = tenant.ProvisionFunc(func(ctx context.Context, name string) error {
			return schema.Provision(ctx, db, name, tenantDDL())
		})

		s.health.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
		logger.Info("using postgresql storage", "dsn", maskDSN(cfg.DatabaseURL))
	} else {
		memBinder := schema.NewMemoryBinder(cfg.PublicSchema)
		memPlans := plan.NewMemoryStore()
		memPlans.SeedDefaults()

		binder = memBinder
		tenants = tenant.NewMemoryStore()
		plans = memPlans
		accounts = account.NewMemoryProvider()
		companies = organisation.NewMemoryProvider()
		provisioner = tenant.ProvisionFunc(func(_ context.Context, name string) error {
			memBinder.AddSchema(name)
			return nil
		})

		s.health.Register("storage", func(context.Context) health.Status {
			return health.Status{Name: "storage", Healthy: true, Detail: "in-memory"}
		})
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	seats := account.NewSeatSource(accounts)
	counter := billing.NewCounter(binder, seats)
	billingService := billing.NewService(tenants, plans, counter)
	gate := admission.NewGate(tenants, counter, cfg.PublicSchema)
	resolver := tenant.NewResolver(tenants, cfg.TenantHeader, cfg.PublicSchema, cfg.LocalHostname)
	authManager := auth.NewManager(cfg.JWTSecret, auth.DefaultTokenTTL)

	s.limiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitRPS / 4,
		CleanupInterval:   time.Minute,
	})

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestContext(logger),
		security.HeadersMiddleware(),
		security.CORSMiddleware(nil),
		validation.RequestSizeMiddleware(validation.MaxRequestSize),
		s.limiter.Middleware(),
		metrics.Middleware(),
	)

	router.GET("/health", s.handleReadiness)
	router.GET("/health/live", s.handleLiveness)
	router.GET("/health/ready", s.handleReadiness)
	router.GET("/metrics", metrics.Handler())

	planHandler := plan.NewHandler(plans)
	tenantHandler := tenant.NewHandler(tenants, provisioner, cfg.PublicSchema)
	billingHandler := billing.NewHandler(billingService)
	accountHandler := account.NewHandler(accounts)
	accountAdminHandler := account.NewAdminHandler(accounts, tenants, binder)
	companyHandler := organisation.NewHandler(companies)
	authHandler := auth.NewHandler(authManager, accounts)

	// Operator API: shared-schema management, guarded by the admin
	// secret. No tenant resolution happens here.
	admin := router.Group("/admin/v1", auth.RequireAdminSecret(cfg.AdminSecret))
	tenantHandler.RegisterAdminRoutes(admin)
	planHandler.RegisterAdminRoutes(admin)
	billingHandler.RegisterAdminRoutes(admin)
	accountAdminHandler.RegisterAdminRoutes(admin)

	// Public catalogue, no tenant needed.
	v1 := router.Group("/v1")
	planHandler.RegisterRoutes(v1)

	// Tenant API: everything below resolves and binds a schema.
	scoped := v1.Group("", tenant.Middleware(resolver, binder))
	authHandler.RegisterRoutes(scoped)

	authed := scoped.Group("", auth.RequireAuth(authManager))
	accountHandler.RegisterRoutes(authed, gate.Guard())
	billingHandler.RegisterRoutes(authed)
	companyHandler.RegisterRoutes(authed)

	s.router = router
	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.OTLPEndpoint != "" {
		shutdown, err := traces.Init(ctx, s.cfg.OTLPEndpoint, s.logger)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		s.shutdownTraces = shutdown
	}
	if s.db != nil {
		go metrics.StartDBStatsCollector(ctx, s.db, 15*time.Second)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr, "env", s.cfg.Env)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.limiter.Stop()
	if s.shutdownTraces != nil {
		if terr := s.shutdownTraces(shutdownCtx); terr != nil {
			s.logger.Warn("trace exporter shutdown failed", "error", terr)
		}
	}
	if s.db != nil {
		if derr := s.db.Close(); derr != nil {
			s.logger.Warn("database close failed", "error", derr)
		}
	}
	return err
}

// tenantDDL is every per-tenant table, in dependency order.
func tenantDDL() []string {
	ddl := make([]string, 0, len(account.DDL)+len(organisation.DDL))
	ddl = append(ddl, account.DDL...)
	ddl = append(ddl, organisation.DDL...)
	return ddl
}

// requestContext tags each request with an id and a request-scoped
// logger.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Header("X-Request-ID", requestID)

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, logger.With("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logging.L(ctx).Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// maskDSN hides credentials in a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	u.User = url.User(u.User.Username())
	return u.Redacted()
}
