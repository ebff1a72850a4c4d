package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/history"
	"github.com/devwiki/wikitools/internal/live"
	"github.com/devwiki/wikitools/internal/lookup"
	"github.com/devwiki/wikitools/internal/mediawiki"
	"github.com/devwiki/wikitools/internal/metrics"
)

// Config holds server configuration.
type Config struct {
	Host     string // defaults to DefaultHost
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)

	// Token, when set, must be sent as a bearer token to start or cancel
	// runs. Without it those routes only answer loopback clients.
	Token string
}

// DefaultHost keeps the server off external interfaces unless asked.
const DefaultHost = "127.0.0.1"


// Deps are the components the server exposes. Nil components leave their
// routes unregistered.
type Deps struct {
	Runner  *batch.Runner
	History *history.Store
	Hub     *live.Hub
	Metrics *metrics.Collector
	Geo     *geo.Client
	Lookup  *lookup.Service
	Logger  *zap.Logger

	// User resolves the account runs are made as.
	User func(ctx context.Context) (batch.User, error)
}

// Server is the local control server.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server

	// Runs outlive the request that started them.
	runCtx    context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	current *batch.Handle
}

// New creates a server with all routes registered.
func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		runCtx:    ctx,
		cancelAll: cancel,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Long-lived connection, kept out of the request timeout.
	if s.deps.Hub != nil {
		r.Get("/ws/runs", s.deps.Hub.ServeWS)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/healthz", s.handleHealth)

		if s.deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
		}
		if s.deps.History != nil {
			history.RegisterRoutes(r, s.deps.History)
		}
		if s.deps.Runner != nil {
			r.With(s.guardWrites).Post("/api/runs", s.handleStartRun)
			r.Get("/api/runs/current", s.handleCurrentRun)
			r.With(s.guardWrites).Delete("/api/runs/current", s.handleCancelRun)
		}
		if s.deps.Geo != nil {
			r.Get("/api/lookup/ip/{ip}", s.handleLookupIP)
		}
		if s.deps.Lookup != nil {
			r.Get("/api/lookup/age/{user}", s.handleAccountAge)
			r.Get("/api/lookup/username/{name}", s.handleUsername)
			r.Get("/api/lookup/creator", s.handleCreator)
		}
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Addr is the host:port Start listens on.
func (s *Server) Addr() string {
	host := s.cfg.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(s.cfg.Port))
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := s.Addr()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("wikitools server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown cancels any active run, waits for it to stop and then shuts the
// HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelAll()
	s.mu.Lock()
	h := s.current
	s.mu.Unlock()
	if h != nil {
		select {
		case <-h.Done():
		case <-ctx.Done():
		}
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Runner != nil {
		body["running"] = s.deps.Runner.Running()
	}
	if s.deps.Geo != nil {
		body["geo"] = s.deps.Geo.State()
	}
	writeJSON(w, http.StatusOK, body)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func errorStatus(err error) int {
	var lerr *geo.LookupError
	switch {
	case errors.Is(err, batch.ErrInvalidJob),
		errors.Is(err, geo.ErrInvalidIP),
		errors.Is(err, lookup.ErrIllegalName),
		errors.Is(err, mediawiki.ErrIllegalTitle),
		errors.Is(err, mediawiki.ErrEmptyTitle),
		errors.Is(err, mediawiki.ErrTitleTooLong):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, lookup.ErrUnknownUser),
		errors.Is(err, lookup.ErrNoRegistration),
		errors.Is(err, mediawiki.ErrPageMissing):
		return http.StatusNotFound
	case errors.As(err, &lerr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geo.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
