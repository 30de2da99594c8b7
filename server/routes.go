package server

import (
	"net/http"

	"github.com/derekslarson/auth-service/internal/metrics"
)

const (
	RouteAuthorize         = "/oauth2/authorize"
	RouteLogin             = "/oauth2/login"
	RouteConfirm           = "/oauth2/confirm"
	RouteAuthorizeExternal = "/oauth2/authorize/external"
	RouteCallback          = "/oauth2/callback"
	RouteToken             = "/oauth2/token"
	RouteRevoke            = "/oauth2/revoke"
	RouteJWKS              = "/.well-known/jwks.json"
	RouteVerify            = "/internal/verify"
	RouteHealth            = "/health"
	RouteMetrics           = "/metrics"
)

func (s *Server) initRoutes() {
	// Authorization flow
	s.RegisterRouteFunc("GET "+RouteAuthorize, s.Authorize())
	s.RegisterRouteFunc("POST "+RouteLogin, s.Login())
	s.RegisterRouteFunc("POST "+RouteConfirm, s.Confirm())
	s.RegisterRouteFunc("GET "+RouteAuthorizeExternal, s.AuthorizeExternal())
	s.RegisterRouteFunc("GET "+RouteCallback, s.Callback())

	// Token lifecycle
	s.RegisterRouteFunc("POST "+RouteToken, s.Token())
	s.RegisterRouteFunc("POST "+RouteRevoke, s.Revoke())
	s.RegisterRouteFunc("GET "+RouteJWKS, s.JWKS())
	s.RegisterRouteFunc("POST "+RouteVerify, s.Verify())

	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
