// Package server wires the strip manager, the REST API and the WebSocket hub
// into the sp108ed daemon.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/sp108ed/internal/apikey"
	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/events"
	"github.com/jmylchreest/sp108ed/internal/http/handlers"
	"github.com/jmylchreest/sp108ed/internal/http/mw"
	"github.com/jmylchreest/sp108ed/internal/http/routes"
	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/internal/ws"
)

const shutdownTimeout = 5 * time.Second

// BuildInfo is reported by the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Server runs the HTTP API, the WebSocket hub and the status poller.
type Server struct {
	logger     *slog.Logger
	cfg        *config.Config
	strip      *strip.Manager
	apikeys    *apikey.Manager
	bus        *events.Bus
	build      BuildInfo
	rootCtx    context.Context
	rootCancel context.CancelFunc
	listener   net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// New creates a server. The manager must publish to bus.
func New(logger *slog.Logger, cfg *config.Config, manager *strip.Manager, bus *events.Bus, build BuildInfo) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Server{
		logger:     logger,
		cfg:        cfg,
		strip:      manager,
		apikeys:    apikey.NewManager(cfg, logger),
		bus:        bus,
		build:      build,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Start launches the poller, the hub and the HTTP listener. An empty listen
// address runs without the API.
func (s *Server) Start() error {
	s.logger.Info("server: starting", "device", s.strip.Snapshot().Addr)

	s.strip.StartPoller(s.rootCtx, config.ValidatePollInterval(s.cfg.Polling.Interval))

	if s.cfg.API.ListenAddress == "" {
		s.logger.Info("server: HTTP API disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.API.ListenAddress)
	if err != nil {
		s.rootCancel()
		return err
	}
	s.listener = ln

	hub := ws.NewHub(s.logger, s.bus, s.snapshotEvent)
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("server: panic in WebSocket hub", "recover", r)
			}
		}()
		hub.Run(s.rootCtx)
	})

	s.httpServer = &http.Server{
		Handler:      s.router(hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return s.rootCtx },
	}

	s.wg.Go(func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server: HTTP server failed", "error", err)
		}
		s.logger.Info("server: HTTP server stopped")
	})

	s.logger.Info("server: HTTP API listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound API address, or nil when the API is disabled or the
// server has not started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts down the server. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("server: shutting down")
		s.rootCancel()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("server: HTTP shutdown failed", "error", err)
			}
		}

		s.wg.Wait()
		s.logger.Info("server: shut down gracefully")
	})
}

func (s *Server) router(hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(mw.RateLimitConfig{RequestsPerMinute: s.cfg.API.RateLimit}))

	api := humachi.New(router, routes.NewHumaConfig(s.build.Version, ""))
	api.UseMiddleware(mw.HumaAuth(api, s.logger, s.apikeys))

	version := &handlers.VersionHandler{
		Version:   s.build.Version,
		Commit:    s.build.Commit,
		BuildDate: s.build.BuildDate,
	}
	routes.Register(api, &routes.Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: version.VersionCheck,
		Strip:        &handlers.StripHandler{Strip: s.strip},
		Logging:      &handlers.LoggingHandler{Logger: s.logger},
	})

	router.Get("/api/v1/ws", ws.Handler(hub, s.logger))
	return router
}

func (s *Server) snapshotEvent() (events.Event, bool) {
	return events.NewEvent(events.StripSnapshot, handlers.StripFromSnapshot(s.strip.Snapshot())), true
}
