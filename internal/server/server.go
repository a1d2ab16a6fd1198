// Package server is the HTTP surface of the resident: the public visitor
// box and read-only content, the admin panel API and the manual wake
// trigger.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/curtiv3/gpthome-refurbished/internal/auth"
	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
)

const maxBodyBytes = 64 << 10

// Store is the persistence the HTTP surface needs.
type Store interface {
	SaveEntry(e types.Entry) (types.Entry, error)
	GetEntry(id string) (types.Entry, error)
	ListEntries(section types.Section, limit, offset int) ([]types.Entry, error)
	CountEntries(section types.Section) (int, error)
	LastEntryTime() (time.Time, bool, error)
	SetEntryStatus(id string, status types.Status) error
	DeleteEntry(id string) error

	ReadMemory() (types.Memory, error)
	LogActivity(kind, detail string) error
	ListActivity(limit, offset int) ([]types.ActivityEvent, error)

	AddNews(content string) (types.NewsItem, error)
	ListNews(limit int) ([]types.NewsItem, error)

	GetPage(slug string) (types.Page, error)
	ListPages() ([]types.Page, error)

	CheckRateLimit(fp string, limit int, window time.Duration) (bool, int, error)
	Block(fp, reason string) error
	Unblock(fp string) error
	IsBlocked(fp string) (bool, error)
	ListBlocked() ([]types.BlockedFingerprint, error)

	Ping() error
}

// Waker runs wake cycles.
type Waker interface {
	Wake(ctx context.Context, trigger string) (*wake.Summary, error)
	Mode() string
}

// EchoQueue accepts visitor messages for echo generation.
type EchoQueue interface {
	Submit(visitorID, message string) error
}

// Observer counts visitor submissions.
type Observer interface {
	ObserveVisitor(result string)
}

// Deps wires the server.
type Deps struct {
	Store   Store
	Waker   Waker
	Echo    EchoQueue
	Auth    *auth.Authenticator
	Metrics http.Handler
	Observe Observer

	SelfPromptPath string
	RateLimit      int
	RateWindow     time.Duration
	MaxNameLength  int
}

// DepsFromConfig fills the config-derived fields of Deps.
func DepsFromConfig(cfg *config.Config, d Deps) Deps {
	d.SelfPromptPath = cfg.SelfPromptPath()
	d.RateLimit = cfg.Visitor.RateLimit
	d.RateWindow = cfg.GetRateWindow()
	d.MaxNameLength = cfg.Visitor.MaxNameLength
	return d
}

// Server serves the HTTP API.
type Server struct {
	deps Deps

	mu       sync.Mutex
	lifetime context.Context
}

// New creates a server.
func New(deps Deps) *Server {
	if deps.RateLimit <= 0 {
		deps.RateLimit = 5
	}
	if deps.RateWindow <= 0 {
		deps.RateWindow = time.Hour
	}
	if deps.MaxNameLength <= 0 {
		deps.MaxNameLength = 60
	}
	if deps.Auth == nil {
		deps.Auth = auth.NewAuthenticator("", nil)
	}
	return &Server{deps: deps}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware)
	router.Use(requestLogMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Public content
	api.HandleFunc("/thoughts", s.handleListSection(types.SectionThoughts)).Methods(http.MethodGet)
	api.HandleFunc("/dreams", s.handleListSection(types.SectionDreams)).Methods(http.MethodGet)
	api.HandleFunc("/echoes", s.handleListSection(types.SectionEchoes)).Methods(http.MethodGet)
	api.HandleFunc("/entries/{id}", s.handleGetEntry).Methods(http.MethodGet)
	api.HandleFunc("/pages", s.handleListPages).Methods(http.MethodGet)
	api.HandleFunc("/pages/{slug}", s.handleGetPage).Methods(http.MethodGet)

	// Visitor box
	api.HandleFunc("/visitor", s.handleVisitorCount).Methods(http.MethodGet)
	api.HandleFunc("/visitor", s.handleVisitorPost).Methods(http.MethodPost)

	requireAdmin := adminMiddleware(s.deps.Auth)

	// Manual trigger
	api.Handle("/wake", requireAdmin(http.HandlerFunc(s.handleWake))).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin)
	admin.HandleFunc("/wake", s.handleWake).Methods(http.MethodPost)
	admin.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	admin.HandleFunc("/news", s.handlePostNews).Methods(http.MethodPost)
	admin.HandleFunc("/news", s.handleListNews).Methods(http.MethodGet)
	admin.HandleFunc("/visitors", s.handleListVisitors).Methods(http.MethodGet)
	admin.HandleFunc("/visitors/blocked", s.handleListBlocked).Methods(http.MethodGet)
	admin.HandleFunc("/visitors/ban", s.handleBan).Methods(http.MethodPost)
	admin.HandleFunc("/visitors/unban", s.handleUnban).Methods(http.MethodPost)
	admin.HandleFunc("/visitors/{id}", s.handleModerate).Methods(http.MethodPatch)
	admin.HandleFunc("/activity", s.handleActivity).Methods(http.MethodGet)
	admin.HandleFunc("/memory", s.handleMemory).Methods(http.MethodGet)

	if s.deps.Metrics != nil {
		router.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}
	return router
}

// Options configures the listener.
type Options struct {
	Addr              string
	MaxConnections    int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// OptionsFromConfig derives listener options from config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.Server.Addr,
		MaxConnections:    cfg.Server.MaxConnections,
		ReadHeaderTimeout: cfg.GetReadHeaderTimeout(),
		ShutdownTimeout:   cfg.GetShutdownTimeout(),
	}
}

// ListenAndServe listens on opts.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, opts Options) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, opts)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener, opts Options) error {
	if opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, opts.MaxConnections)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s.mu.Lock()
	s.lifetime = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.Server("Listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	logging.Server("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// cycleContext outlives the request. It is cancelled only when the serving
// context ends.
func (s *Server) cycleContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	s.mu.Lock()
	lifetime := s.lifetime
	s.mu.Unlock()
	if lifetime == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Store.Ping(); err != nil {
		logging.ServerWarn("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) observe(result string) {
	if s.deps.Observe != nil {
		s.deps.Observe.ObserveVisitor(result)
	}
}
