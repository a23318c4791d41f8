package livereload

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/poolserve/internal/logging"
)

// Path is the websocket endpoint browsers connect to.
const Path = "/livereload"

// clientScript reconnects with backoff and reloads the page on every
// reload message.
const clientScript = `(function () {
  var delay = 500;
  function connect() {
    var ws = new WebSocket("ws://" + location.hostname + ":%PORT%` + Path + `");
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (e) {
      var msg = JSON.parse(e.data);
      if (msg.type === "reload") { location.reload(); }
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 10000);
    };
  }
  connect();
})();
`

// Server exposes a Hub over plain HTTP on its own port.
type Server struct {
	hub        *Hub
	httpServer *http.Server
	listener   net.Listener
	logger     logging.Logger
}

// NewServer creates a live reload server for hub.
func NewServer(hub *Hub, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		hub:    hub,
		logger: logger.WithComponent("livereload"),
	}

	mux := http.NewServeMux()
	mux.Handle(Path, hub)
	mux.HandleFunc(Path+".js", s.handleScript)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), err, "Live reload server stopped")
		}
	}()

	s.logger.Info(context.Background(), "Live reload listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Hub returns the hub served by s.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Shutdown disconnects clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	hubErr := s.hub.Shutdown(ctx)
	if s.listener == nil {
		return hubErr
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return hubErr
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	port := "35729"
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		port = strconv.Itoa(addr.Port)
	}
	w.Header().Set("Content-Type", "text/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(strings.ReplaceAll(clientScript, "%PORT%", port)))
}
