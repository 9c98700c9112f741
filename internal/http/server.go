package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"budgetbook/internal/api"
	"budgetbook/internal/config"
	"budgetbook/internal/core"
	"budgetbook/internal/log"
	"budgetbook/internal/middleware/ratelimit"
	"budgetbook/internal/middleware/security"
	"budgetbook/internal/middleware/trace"
	"budgetbook/internal/obs"
	"budgetbook/internal/services"
	"budgetbook/internal/session"
	"budgetbook/internal/table"
	appweb "budgetbook/web"
)

// Deps are the collaborators the web client is built from. Exports and
// Registry may be nil.
type Deps struct {
	Client   *api.Client
	Auth     *api.Auth
	Session  *session.Manager
	Exports  *services.ExportService
	Registry *prometheus.Registry
	// Checks are run by /readyz; a non-nil error marks the dependency down.
	Checks map[string]func(context.Context) error
	Logger *log.Logger
	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	cfg      *config.Config
	client   *api.Client
	auth     *api.Auth
	session  *session.Manager
	exports  *services.ExportService
	views    *Renderer
	format   *table.Formatter
	checks   map[string]func(context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger
	started  time.Time
}

// NewServer wires routes and middleware. It fails when templates do not
// parse or the display time zone is unknown.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("display time zone: %w", err)
	}
	format := table.NewFormatter(cfg.CurrencySymbol, cfg.Locale, loc)

	templates, static := deps.Templates, deps.Static
	if templates == nil {
		templates = appweb.TemplatesFS
	}
	if static == nil {
		static = appweb.StaticFS
	}
	views, err := NewRenderer(templates, format)
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(logger.WithComponent(log.ComponentSecurity))
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              ":" + cfg.Port,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		cfg:      cfg,
		client:   deps.Client,
		auth:     deps.Auth,
		session:  deps.Session,
		exports:  deps.Exports,
		views:    views,
		format:   format,
		checks:   deps.Checks,
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			SweepInterval:     5 * time.Minute,
		}),
		logger:  logger.WithComponent(log.ComponentHTTP),
		started: time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux, static, deps.Registry)

	mws := []middleware{
		trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited),
	}
	if deps.Registry != nil {
		mws = append(mws, obs.NewHTTP(deps.Registry).Instrument)
	}
	mws = append(mws, sameOrigin)
	s.Handler = chain(mux, mws...)
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, static fs.FS, reg *prometheus.Registry) {
	mux.Handle("GET /static/", security.StaticAssetMiddleware(24*time.Hour)(http.FileServerFS(static)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if reg != nil {
		mux.Handle("GET /metrics", obs.Handler(reg))
	}

	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.requireAuth(h)) }
	admin := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.requireRole(h, core.RoleAdmin, core.RoleSuperAdmin))
	}

	mux.HandleFunc("/", s.handleNotFound)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /login", s.guestOnly(s.handleLoginPage))
	mux.Handle("POST /login", s.guestOnly(s.handleLogin))
	mux.Handle("GET /register", s.guestOnly(s.handleRegisterPage))
	mux.Handle("POST /register", s.guestOnly(s.handleRegister))
	mux.Handle("GET /forgot-password", s.guestOnly(s.handleForgotPage))
	mux.Handle("POST /forgot-password", s.guestOnly(s.handleForgot))
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /theme", s.handleTheme)
	mux.Handle("GET /change-password", page(s.handleChangePasswordPage))
	mux.Handle("POST /change-password", page(s.handleChangePassword))

	mux.Handle("GET /home", page(s.handleHome))

	mux.Handle("GET /solution", page(s.handleSolutions))
	mux.Handle("GET /solution/new", page(s.handleSolutionNew))
	mux.Handle("POST /solution", page(s.handleSolutionCreate))
	mux.Handle("GET /solution/{id}", page(s.handleSolutionRoot))
	mux.Handle("GET /solution/{id}/edit", page(s.handleSolutionEdit))
	mux.Handle("POST /solution/{id}", page(s.handleSolutionUpdate))
	mux.Handle("POST /solution/{id}/delete", page(s.handleSolutionDelete))
	mux.Handle("GET /solution/{id}/share", page(s.handleSharePage))
	mux.Handle("POST /solution/{id}/share", page(s.handleShare))
	mux.Handle("GET /solution/{id}/dashboard", page(s.handleDashboard))

	mux.Handle("GET /solution/{id}/expense-data", page(s.handleExpenses))
	mux.Handle("GET /solution/{id}/expense-data/new", page(s.handleExpenseNew))
	mux.Handle("POST /solution/{id}/expense-data", page(s.handleExpenseCreate))
	mux.Handle("GET /solution/{id}/expense-data/{expenseID}", page(s.handleExpenseView))
	mux.Handle("GET /solution/{id}/expense-data/{expenseID}/edit", page(s.handleExpenseEdit))
	mux.Handle("POST /solution/{id}/expense-data/{expenseID}", page(s.handleExpenseUpdate))
	mux.Handle("POST /solution/{id}/expense-data/actions/{action}/{row}", page(s.handleExpenseAction))
	mux.Handle("POST /solution/{id}/expense-data/export", page(s.handleExpenseExport))

	mux.Handle("GET /solution/{id}/collected-cash", page(s.handleCash))
	mux.Handle("GET /solution/{id}/collected-cash/new", page(s.handleCashNew))
	mux.Handle("POST /solution/{id}/collected-cash", page(s.handleCashCreate))
	mux.Handle("GET /solution/{id}/collected-cash/{cashID}/edit", page(s.handleCashEdit))
	mux.Handle("POST /solution/{id}/collected-cash/{cashID}", page(s.handleCashUpdate))
	mux.Handle("POST /solution/{id}/collected-cash/actions/{action}/{row}", page(s.handleCashAction))
	mux.Handle("POST /solution/{id}/collected-cash/export", page(s.handleCashExport))

	mux.Handle("GET /create-user", admin(s.handleCreateUserPage))
	mux.Handle("POST /create-user", admin(s.handleCreateUser))
	mux.Handle("POST /create-user/{userID}/role", security.NoStore(s.requireRole(s.handleChangeRole, core.RoleSuperAdmin)))
}

// Shutdown stops the listener, then the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.limiter.Stop()
	return err
}

// handleRateLimited renders the error page so a throttled browser still
// sees the app chrome.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"templates": "ok"}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "rejected": s.limiter.Rejected(), "status": "ok"}
	checks["security"] = map[string]any{"suspicious_requests": s.detector.SuspiciousRequests(), "status": "ok"}
	checks["export"] = "not_configured"
	if s.exportEnabled() {
		checks["export"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) exportEnabled() bool {
	return s.exports != nil && s.exports.Enabled()
}
