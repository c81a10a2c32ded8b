package adapthttp

import (
	"log"
	"net/http"
	"os"

	"healthlog/internal/app"
)

// Services are the application services the HTTP adapter drives. Sync and
// Auth may be nil when no remote database is configured.
type Services struct {
	Store    *app.Store
	Entries  *app.EntryService
	Insights *app.InsightsService
	Sync     *app.SyncAdapter
	Auth     *app.AuthService
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	store    *app.Store
	entries  *app.EntryService
	insights *app.InsightsService
	sync     *app.SyncAdapter
	authSvc  *app.AuthService

	oidcConfig  OIDCConfig
	metrics     http.Handler
	webDir      string
	disableAuth bool
	logger      *log.Logger
}

// New creates a Server wired to the given application services. If logger
// is nil, a default logger writing to stderr is used.
func New(svc Services, webDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[http] ", log.LstdFlags)
	}
	return &Server{
		store:    svc.Store,
		entries:  svc.Entries,
		insights: svc.Insights,
		sync:     svc.Sync,
		authSvc:  svc.Auth,
		webDir:   webDir,
		logger:   logger,
	}
}

// WithoutAuth disables authentication. Without an AuthService it is implied.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// WithOIDC enables the SSO endpoints.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithMetrics serves h on /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	if s.authSvc == nil {
		s.disableAuth = true
	}

	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/auth/signup", s.handleSignUp)
	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	protected := http.NewServeMux()
	protected.HandleFunc("/auth/me", s.handleMe)
	protected.HandleFunc("/account", s.handleDeleteAccount)

	protected.HandleFunc("/state", s.handleState)
	protected.HandleFunc("/entries/{kind}", s.handleEntries)
	protected.HandleFunc("/entries/{kind}/{id}", s.handleEntry)
	protected.HandleFunc("/connection", s.handleConnection)
	protected.HandleFunc("/connection/toggle", s.handleConnectionToggle)
	protected.HandleFunc("/connection/permissions", s.handleConnectionPermissions)
	protected.HandleFunc("/settings", s.handleSettings)
	protected.HandleFunc("/export", s.handleExport)
	protected.HandleFunc("/clear", s.handleClear)
	protected.HandleFunc("/sync/pull", s.handleSyncPull)

	protected.HandleFunc("/insights/summary", s.handleInsightsSummary)
	protected.HandleFunc("/insights/daily", s.handleInsightsDaily)
	protected.HandleFunc("/nutrition/search", s.handleNutritionSearch)

	protected.HandleFunc("/ws", s.handleWebSocket)

	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.metrics != nil {
		root.Handle("/metrics", s.metrics)
	}
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
