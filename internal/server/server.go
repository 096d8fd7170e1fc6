// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"bookvault/internal/catalog"
	"bookvault/internal/config"
	"bookvault/internal/gateway"
	"bookvault/internal/health"
	"bookvault/internal/logging"
	"bookvault/internal/mailer"
	"bookvault/internal/metrics"
	"bookvault/internal/netrisk"
	"bookvault/internal/orders"
	"bookvault/internal/purchases"
	"bookvault/internal/ratelimit"
	"bookvault/internal/reconciliation"
	"bookvault/internal/security"
	"bookvault/internal/traces"
	"bookvault/internal/users"
	"bookvault/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	users       *users.Service
	catalog     *catalog.Service
	purchases   *purchases.Service
	orders      *orders.Service
	detector    *netrisk.Detector
	provider    gateway.Provider
	signer      *gateway.Signer
	mail        mailer.Mailer
	rateLimiter *ratelimit.Limiter
	checks      *health.Registry
	sweepTimer  *reconciliation.Timer
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	shutdownTraces func(context.Context) error
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithProvider sets a custom payment provider (for testing)
func WithProvider(p gateway.Provider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithMailer sets a custom mailer (for testing)
func WithMailer(m mailer.Mailer) Option {
	return func(s *Server) {
		s.mail = m
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set provider/mailer/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		userStore     users.Store
		bookStore     catalog.Store
		orderStore    orders.Store
		purchaseStore purchases.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		userStore = users.NewPostgresStore(db)
		bookStore = catalog.NewPostgresStore(db)
		orderStore = orders.NewPostgresStore(db)
		purchaseStore = purchases.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		userStore = users.NewMemoryStore()
		bookStore = catalog.NewMemoryStore()
		orderStore = orders.NewMemoryStore()
		purchaseStore = purchases.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	s.users = users.NewService(userStore, cfg.JWTSecret)
	s.catalog = catalog.NewService(bookStore)
	s.purchases = purchases.NewService(purchaseStore)

	// Network risk detector — external lookup when configured, local
	// heuristics otherwise.
	var lookup netrisk.LookupClient
	if cfg.RiskLookupURL != "" {
		client, err := netrisk.NewHTTPLookupClient(cfg.RiskLookupURL, cfg.RiskLookupAPIKey, cfg.RiskLookupTimeout)
		if err != nil {
			s.logger.Warn("invalid risk lookup URL, using local heuristics only", "error", err)
		} else {
			lookup = client
			s.logger.Info("network risk lookup enabled")
		}
	}
	s.detector = netrisk.NewDetector(lookup)

	// Payment provider — Razorpay when credentials are configured,
	// mock otherwise (demo mode).
	if s.provider == nil {
		if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
			s.provider = gateway.NewRazorpayProvider(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
			s.logger.Info("razorpay payment provider enabled")
		} else {
			s.provider = gateway.NewMockProvider()
			s.logger.Info("using mock payment provider (no gateway credentials)")
		}
	}

	s.signer = gateway.NewSigner(cfg.WebhookSecret, cfg.AllowMockSignature)

	if s.mail == nil {
		s.mail = mailer.NewLogMailer()
	}

	s.orders = orders.NewService(
		orderStore,
		bookStore,
		s.purchases,
		s.users,
		s.detector,
		s.provider,
		s.signer,
		s.mail,
		cfg.RazorpayKeyID,
		cfg.Currency,
	).WithRecipients(s.users)

	// Background sweep for abandoned pending orders and restock alerts
	s.sweepTimer = reconciliation.NewTimer(
		reconciliation.NewRunner(orderStore, bookStore), s.logger)

	s.registerHealthChecks()

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/", s.infoHandler)

	usersHandler := users.NewHandler(s.users)
	catalogHandler := catalog.NewHandler(s.catalog)
	purchasesHandler := purchases.NewHandler(s.purchases)
	ordersHandler := orders.NewHandler(s.orders)
	riskHandler := netrisk.NewHandler(s.detector)

	// V1 API group
	v1 := s.router.Group("/v1")

	// PUBLIC ROUTES (no auth required)
	usersHandler.RegisterRoutes(v1)   // register, login
	catalogHandler.RegisterRoutes(v1) // browse books
	riskHandler.RegisterRoutes(v1)    // pre-checkout risk probe

	// PROTECTED ROUTES (require a valid token)
	protected := v1.Group("")
	protected.Use(s.users.RequireAuth())
	{
		usersHandler.RegisterProtectedRoutes(protected)     // me
		purchasesHandler.RegisterProtectedRoutes(protected) // library
		ordersHandler.RegisterProtectedRoutes(protected)    // checkout, verify, orders
	}

	// AUTHOR/ADMIN ROUTES (catalog management)
	authorOnly := v1.Group("")
	authorOnly.Use(s.users.RequireAuth(), users.RequireRole(users.RoleAuthor))
	{
		catalogHandler.RegisterProtectedRoutes(authorOnly)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// registerHealthChecks wires subsystem checkers into the health registry.
func (s *Server) registerHealthChecks() {
	s.checks = health.NewRegistry()

	s.checks.Register("database", func(ctx context.Context) health.Status {
		if s.db == nil {
			return health.Status{Name: "database", Healthy: true, Detail: "in-memory"}
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "database", Healthy: true}
	})

	s.checks.Register("gateway", func(ctx context.Context) health.Status {
		if s.cfg.RazorpayKeyID != "" && s.cfg.RazorpayKeySecret != "" {
			return health.Status{Name: "gateway", Healthy: true, Detail: "configured"}
		}
		return health.Status{Name: "gateway", Healthy: true, Detail: "mock"}
	})

	s.checks.Register("risk_lookup", func(ctx context.Context) health.Status {
		if s.cfg.RiskLookupURL != "" {
			return health.Status{Name: "risk_lookup", Healthy: true, Detail: "configured"}
		}
		return health.Status{Name: "risk_lookup", Healthy: true, Detail: "local-only"}
	})
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Bookvault",
		"description": "Online bookstore with risk-gated payments",
		"version":     "0.1.0",
		"currency":    s.cfg.Currency,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing (no-op when no OTLP endpoint is configured)
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTraces = shutdownTraces
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Periodic DB pool stats for the metrics endpoint
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Start abandoned-order sweeper
	if s.sweepTimer != nil {
		go s.sweepTimer.Start(runCtx)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop sweep timer
	if s.sweepTimer != nil {
		s.sweepTimer.Stop()
		s.logger.Info("sweep timer stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Catalog returns the catalog service (used by seed tooling)
func (s *Server) Catalog() *catalog.Service {
	return s.catalog
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
