// Package server implements the acceptor: it owns the listening socket,
// hands every accepted connection to the worker pool, and coordinates
// graceful shutdown of the pool and the optional watch and live reload
// side channels.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/poolserve/internal/cache"
	"github.com/conneroisu/poolserve/internal/config"
	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/conneroisu/poolserve/internal/handlers"
	"github.com/conneroisu/poolserve/internal/livereload"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/pool"
	"github.com/conneroisu/poolserve/internal/router"
	"github.com/conneroisu/poolserve/internal/watcher"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

var (
	// ErrServerClosed is returned by Listen and Serve after Shutdown.
	ErrServerClosed = errors.NewInternalError(errors.ErrCodeInternalError, "server is shut down", nil)
	// ErrNotListening is returned by Serve before a successful Listen.
	ErrNotListening = errors.NewInternalError(errors.ErrCodeInternalError, "server is not listening", nil)
)

// Server accepts connections and dispatches them to the worker pool.
type Server struct {
	config     *config.Config
	rootDir    string
	logger     logging.Logger
	errHandler *errors.ErrorHandler

	pool   *pool.Pool
	router *router.Router
	cache  *cache.FileCache

	watcher *watcher.FileWatcher
	reload  *livereload.Server

	listenerMu sync.Mutex
	listener   net.Listener

	shutdownOnce sync.Once
	closed       atomic.Bool
	poolDone     chan struct{}

	connIDs atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server and every component it builds.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Stats is a snapshot of server activity.
type Stats struct {
	Pool              pool.Stats   `json:"pool"`
	Cache             *cache.Stats `json:"cache,omitempty"`
	LiveReloadClients int          `json:"live_reload_clients"`
}

// New builds the pool, handlers and router for cfg. Nothing is bound until
// Listen.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		config:   cfg,
		logger:   logging.NewNopLogger(),
		poolDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	rootDir, err := filepath.Abs(cfg.Static.RootDir)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid root directory %q", cfg.Static.RootDir)).WithContext("cause", err.Error())
	}
	s.rootDir = rootDir

	s.errHandler = errors.NewErrorHandler(s.logger.WithComponent("server"))

	var files handlers.FileSource = handlers.OSSource{}
	if cfg.Static.CacheSize > 0 {
		s.cache = cache.New(cfg.Static.CacheSize, cfg.Static.CacheTTL)
		files = handlers.NewCachedSource(s.cache, files)
	}

	notFound := handlers.NewNotFoundHandler(rootDir, cfg.Static.NotFoundPage, files, s.logger)
	static := handlers.NewStaticHandler(rootDir, cfg.Static.SleepDelay, files, notFound, s.logger)
	s.router = router.New(router.Handlers{
		Static:   static,
		API:      handlers.APIHandler{},
		NotFound: notFound,
	})

	p, err := pool.New(cfg.Server.Workers, pool.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.pool = p

	s.logger = s.logger.WithComponent("server")

	return s, nil
}

// Listen binds the configured address and starts the watcher and live
// reload server when they are enabled.
func (s *Server) Listen() error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	addr := s.config.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewBindError(addr, err)
	}

	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()

	if err := s.startExtras(context.Background()); err != nil {
		_ = ln.Close()
		return err
	}

	s.logger.Info(context.Background(), "Listening",
		"addr", ln.Addr().String(),
		"root", s.rootDir,
		"workers", s.pool.Size(),
		"cache", s.cache != nil)

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop. Each connection becomes one pool job; the
// loop never waits for a job to run. Serve returns nil once Shutdown closes
// the listener, and triggers Shutdown itself when ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.listenerMu.Lock()
	ln := s.listener
	s.listenerMu.Unlock()

	if s.closed.Load() {
		return ErrServerClosed
	}
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.Shutdown(context.Background())
	})
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || stderrors.Is(err, net.ErrClosed) {
				return nil
			}

			if isTemporary(err) {
				if backoff == 0 {
					backoff = minAcceptBackoff
				} else {
					backoff *= 2
				}
				if backoff > maxAcceptBackoff {
					backoff = maxAcceptBackoff
				}
				s.logger.Warn(ctx, err, "Accept failed, retrying", "backoff", backoff.String())
				time.Sleep(backoff)
				continue
			}

			return errors.NewInternalError(errors.ErrCodeInternalError, "accept failed", err)
		}
		backoff = 0

		s.dispatch(conn)
	}
}

// dispatch wraps conn in a job and submits it to the pool.
func (s *Server) dispatch(conn net.Conn) {
	id := s.connIDs.Add(1)
	err := s.pool.Submit(func() {
		s.handleConnection(conn, id)
	})
	if err != nil {
		s.errHandler.Handle(context.Background(), err, "conn_id", id)
		_ = conn.Close()
	}
}

// Shutdown stops accepting connections, stops the watcher and live reload
// server, and drains the pool. It waits for every accepted connection to
// finish or for ctx to be done, whichever comes first; in the latter case
// the pool keeps draining in the background. Safe to call concurrently and
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var sideErr error

	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		s.logger.Info(ctx, "Shutting down")

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
				s.logger.Warn(ctx, err, "Failed to close listener")
			}
		}
		s.listenerMu.Unlock()

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Failed to stop file watcher")
			}
		}
		if s.reload != nil {
			if err := s.reload.Shutdown(ctx); err != nil {
				sideErr = err
			}
		}

		go func() {
			s.pool.Shutdown()
			close(s.poolDone)
		}()
	})

	select {
	case <-s.poolDone:
		return sideErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of pool, cache and live reload activity.
func (s *Server) Stats() Stats {
	stats := Stats{Pool: s.pool.Stats()}
	if s.cache != nil {
		cs := s.cache.Stats()
		stats.Cache = &cs
	}
	if s.reload != nil {
		stats.LiveReloadClients = s.reload.Hub().Clients()
	}
	return stats
}

// startExtras starts the live reload server and the watcher, as
// configured.
func (s *Server) startExtras(ctx context.Context) error {
	cfg := s.config

	if cfg.LiveReload.Enabled && s.reload == nil {
		hub := livereload.NewHub(s.allowedOrigins(), s.logger)
		reload := livereload.NewServer(hub, s.logger)
		addr := cfg.LiveReloadAddress()
		if err := reload.Start(addr); err != nil {
			_ = hub.Shutdown(ctx)
			return errors.NewBindError(addr, err)
		}
		s.reload = reload
	}

	if cfg.Static.Watch && s.watcher == nil {
		if err := s.startWatcher(ctx); err != nil {
			// The server still works without change notifications.
			s.logger.Warn(ctx, err, "File watching disabled", "root", s.rootDir)
		}
	}

	return nil
}

func (s *Server) startWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(watcher.DefaultDebounce, s.logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddHandler(s.handleFileChange)

	if err := fw.AddRecursive(s.rootDir); err != nil {
		_ = fw.Stop()
		return err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}

	s.watcher = fw
	s.logger.Info(ctx, "Watching for changes", "root", s.rootDir)
	return nil
}

func (s *Server) allowedOrigins() []string {
	port := strconv.Itoa(int(s.config.Server.Port))
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		port = strconv.Itoa(addr.Port)
	}
	return []string{
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
		net.JoinHostPort(s.config.Server.Host, port),
	}
}

func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return stderrors.As(err, &t) && t.Temporary()
}
