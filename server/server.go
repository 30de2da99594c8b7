// Package server exposes the authorization service over HTTP.
package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/derekslarson/auth-service/auth"
	"github.com/derekslarson/auth-service/clients"
	"github.com/derekslarson/auth-service/internal/config"
	"github.com/derekslarson/auth-service/internal/metrics"
)

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  *config.Config
	auth    *auth.Service
	clients clients.Repo
	logger  zerolog.Logger
}

func New(cfg *config.Config, authService *auth.Service, clientRepo clients.Repo, logger zerolog.Logger) *Server {
	s := &Server{
		env:     cfg.Env,
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		clients: clientRepo,
		logger:  logger,
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RegisterRouteFunc registers a handler and wraps it with per-route metrics
// keyed by the registered pattern.
func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, metrics.Instrument(pattern, http.HandlerFunc(handler)))
}

// RegisterRouteHandler registers a raw handler without instrumentation, used
// for the scrape endpoint itself.
func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.logger.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}
