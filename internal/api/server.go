// Package api exposes the demo engine and permissions store over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/internal/permissions"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// Server wires HTTP routes onto an engine and a permissions store.
type Server struct {
	engine   *demo.Engine
	perms    *permissions.Store
	log      logging.Logger
	metrics  *observability.DemoCollector
	upgrader websocket.Upgrader
	router   *gin.Engine
}

// Option customises Server construction.
type Option func(*Server)

// WithMetrics records HTTP metrics on collector.
func WithMetrics(collector *observability.DemoCollector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithCheckOrigin overrides the websocket origin check. The default accepts
// any origin.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// NewServer builds the router. Callers choose the gin mode beforehand.
func NewServer(engine *demo.Engine, perms *permissions.Store, log logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{
		engine: engine,
		perms:  perms,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware(s.log))
	r.Use(tracingMiddleware())
	if s.metrics != nil {
		r.Use(metricsMiddleware(s.metrics))
	}
	r.Use(accessLogMiddleware(s.log))

	v1 := r.Group(BasePath)
	{
		v1.GET("/healthz", s.healthz)

		// Engine state and commands
		v1.GET("/demo", s.getDemo)
		v1.GET("/demo/stream", s.streamDemo)
		v1.POST("/demo/toggle", s.toggleDemo)
		v1.POST("/demo/reset", s.resetDemo)
		v1.POST("/demo/playback/toggle", s.togglePlayback)
		v1.PUT("/demo/playback/speed", s.setPlaybackSpeed)
		v1.POST("/demo/scenario", s.startScenario)
		v1.DELETE("/demo/scenario", s.stopScenario)

		// Catalog
		v1.GET("/scenarios", s.listScenarios)
		v1.GET("/scenarios/:id", s.getScenario)

		// Incident status
		v1.POST("/incidents/:id/status", s.updateIncidentStatus)
		v1.GET("/incidents/:id/transitions", s.incidentTransitions)
		v1.GET("/transitions/check", s.checkTransition)
		v1.GET("/citizen-reports", s.citizenReports)

		// Roles and permissions
		v1.GET("/role", s.getRole)
		v1.PUT("/role", s.setRole)
		v1.GET("/roles", s.listRoles)
		v1.GET("/permissions/:permission", s.hasPermission)
		v1.GET("/routes", s.listRoutes)
		v1.GET("/routes/access", s.routeAccess)

		// Role-scoped views
		views := v1.Group("/views")
		views.GET("/", RequireRoute(s.perms, "/"), s.operationsView)
		views.GET("/dispatcher", RequireRoute(s.perms, "/dispatcher"), s.dispatcherView)
		views.GET("/responder", RequireRoute(s.perms, "/responder"), s.responderView)
		views.GET("/citizen", RequireRoute(s.perms, "/citizen"), s.citizenView)
		views.GET("/console", RequireRoute(s.perms, "/console"), s.consoleView)
	}

	return r
}
