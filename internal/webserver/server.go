// Package webserver serves the scamsim web demo: a JSON API over the scenario
// catalog, a static player page, and a WebSocket that streams playback.
package webserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
)

//go:embed static
var staticFS embed.FS

// Options configures web server behavior.
type Options struct {
	Host      string
	Port      int
	AuthToken string
	Pacing    playback.Pacing
	// Clock is passed to every connection's engine. Nil means wall clock.
	Clock playback.Clock
}

// Server hosts the HTTP API and the playback WebSocket.
type Server struct {
	catalog    atomic.Pointer[scenario.Catalog]
	pacing     playback.Pacing
	clock      playback.Clock
	httpServer *http.Server
	host       string
	port       int
	authToken  string
}

// New constructs a server over catalog. It does not listen until Start.
func New(catalog *scenario.Catalog, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port < 0 {
		port = 0
	}

	srv := &Server{
		pacing:    opts.Pacing,
		clock:     opts.Clock,
		host:      host,
		port:      port,
		authToken: strings.TrimSpace(opts.AuthToken),
	}

	srv.catalog.Store(catalog)

	mux := http.NewServeMux()
	srv.setupRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              srv.Addr(),
		Handler:           corsMiddleware(logMiddleware(authMiddleware(srv.authToken, mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Catalog returns the catalog new requests and connections use.
func (srv *Server) Catalog() *scenario.Catalog {
	return srv.catalog.Load()
}

// SetCatalog swaps the catalog. Connections keep playing the scenario they
// already loaded.
func (srv *Server) SetCatalog(c *scenario.Catalog) {
	if c != nil {
		srv.catalog.Store(c)
	}
}

// Handler returns the root handler with all middleware applied.
func (srv *Server) Handler() http.Handler {
	return srv.httpServer.Handler
}

// Start listens and serves in a background goroutine. With port 0 the
// kernel picks a port; Addr reports it afterwards.
func (srv *Server) Start() error {
	if srv.httpServer == nil {
		return fmt.Errorf("webserver not initialized")
	}
	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		srv.port = tcpAddr.Port
		srv.httpServer.Addr = srv.Addr()
	}

	go func() {
		if err := srv.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.LogKV("webserver", "server stopped with error", "error", err)
		}
	}()
	debug.LogKV("webserver", "listening", "addr", srv.Addr())
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.httpServer == nil {
		return nil
	}
	return srv.httpServer.Shutdown(ctx)
}

// Addr returns the bound host:port address.
func (srv *Server) Addr() string {
	return net.JoinHostPort(srv.host, strconv.Itoa(srv.port))
}

// Port returns the bound port.
func (srv *Server) Port() int {
	return srv.port
}

func (srv *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("GET /api/personas", srv.handlePersonas)
	mux.HandleFunc("GET /api/personas/{id}", srv.handlePersonaByID)
	mux.HandleFunc("GET /api/scenarios", srv.handleScenarios)
	mux.HandleFunc("GET /api/scenarios/{id}", srv.handleScenarioByID)

	mux.HandleFunc("GET /ws/play", srv.handlePlayWebSocket)

	mux.HandleFunc("GET /api/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	mux.Handle("GET /static/", http.FileServer(http.FS(staticFS)))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data, err := staticFS.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, "failed to load index", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	})
}
