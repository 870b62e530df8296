// Package server exposes stage maps over a JSON HTTP API.
//
// Every request that touches a map loads it into a [session.Session], applies
// one editor operation and saves the result. Requests for the same map are
// serialized; requests for different maps run in parallel.
//
// Routes:
//
//	GET    /healthz
//	GET    /maps
//	POST   /maps
//	GET    /maps/{id}
//	PUT    /maps/{id}
//	DELETE /maps/{id}
//	GET    /maps/{id}/paths
//	GET    /maps/{id}/render?format=svg|png|dot
//	POST   /maps/{id}/stages
//	GET    /maps/{id}/stages/{index}
//	PATCH  /maps/{id}/stages/{index}
//	DELETE /maps/{id}/stages/{index}
//	PUT    /maps/{id}/stages/{index}/neighbors
//	GET    /maps/{id}/stages/{index}/options
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/stagemap/pkg/cache"
	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/session"
	"github.com/matzehuels/stagemap/pkg/store"
	"github.com/matzehuels/stagemap/pkg/validate"
)

// shutdownTimeout bounds how long in-flight requests may take after the
// server context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server serves the HTTP API for the maps in one store.
type Server struct {
	store     store.Store
	cfg       config.Config
	logger    *log.Logger
	artifacts cache.Cache
	requests  *validate.Validator
	started   time.Time

	mu    sync.Mutex
	locks map[string]*mapLock
}

type mapLock struct {
	sync.Mutex
	refs int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCache sets the cache for rendered artifacts.
func WithCache(c cache.Cache) Option {
	return func(s *Server) { s.artifacts = c }
}

// New creates a server for the maps in st.
func New(st store.Store, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store:     st,
		cfg:       cfg,
		logger:    log.New(io.Discard),
		artifacts: cache.NewNullCache(),
		requests:  validate.New(),
		started:   time.Now(),
		locks:     make(map[string]*mapLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if d := s.cfg.Server.RequestTimeout.Duration; d > 0 {
		r.Use(middleware.Timeout(d))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Route("/maps", func(r chi.Router) {
		r.Get("/", s.listMaps)
		r.Post("/", s.createMap)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getMap)
			r.Put("/", s.putMap)
			r.Delete("/", s.deleteMap)
			r.Get("/paths", s.listPaths)
			r.Get("/render", s.renderMap)
			r.Post("/stages", s.addStage)
			r.Route("/stages/{index}", func(r chi.Router) {
				r.Get("/", s.getStage)
				r.Patch("/", s.patchStage)
				r.Delete("/", s.deleteStage)
				r.Put("/neighbors", s.setNeighbors)
				r.Get("/options", s.neighborOptions)
			})
		})
	})
	return r
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// lock serializes access to one map and returns the unlock function.
func (s *Server) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &mapLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// withMap runs fn on the map named in the route under its lock, saves the
// map if fn changed it and responds with fn's result. A nil result answers
// 204 No Content.
func (s *Server) withMap(w http.ResponseWriter, r *http.Request, status int, fn func(sess *session.Session) (any, error)) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	defer s.lock(id)()

	sess, err := session.Open(ctx, s.store, id, s.cfg, session.Options{Logger: s.logger})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := fn(sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.Save(ctx, s.store); err != nil {
		s.fail(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respond(w, status, out)
}
