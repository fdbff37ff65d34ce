package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/model"
)

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

type scenarioRequest struct {
	Scenario string `json:"scenario"`
}

type statusRequest struct {
	Status string `json:"status"`
	// Role defaults to the permissions store's current role.
	Role string `json:"role,omitempty"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type roleResponse struct {
	Role          model.Role `json:"role"`
	Label         string     `json:"label"`
	AllowedRoutes []string   `json:"allowedRoutes"`
	Fallback      string     `json:"fallback,omitempty"`
}

type transitionsResponse struct {
	IncidentID string              `json:"incidentId"`
	Status     model.AlertStatus   `json:"status"`
	Role       model.Role          `json:"role"`
	Reachable  []model.AlertStatus `json:"reachable"`
}

type citizenReportView struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Priority  model.Priority `json:"priority"`
	Location  string         `json:"location"`
	Source    string         `json:"source"`
}

func (s *Server) healthz(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"demoEnabled": snap.Enabled,
	})
}

func (s *Server) getDemo(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) toggleDemo(c *gin.Context) {
	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/toggle", "", "")
	defer span.End()

	s.engine.ToggleDemoMode(ctx)
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) resetDemo(c *gin.Context) {
	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/reset", "", "")
	defer span.End()

	s.engine.ResetDemo(ctx)
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) togglePlayback(c *gin.Context) {
	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/playback/toggle", "", "")
	defer span.End()

	if !s.engine.Snapshot().HasScenario() {
		abortWithError(c, ErrNoActiveScenario)
		return
	}
	s.engine.TogglePlayback(ctx)
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) setPlaybackSpeed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if req.Speed == nil {
		abortWithError(c, fmt.Errorf("%w: speed is required", ErrBadRequest))
		return
	}

	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/playback/speed", "", "")
	defer span.End()

	s.engine.SetPlaybackSpeed(ctx, *req.Speed)
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) startScenario(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	scenario, err := model.ParseScenarioType(req.Scenario)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/scenario/start", "scenario", string(scenario))
	defer span.End()

	if err := s.engine.StartScenario(ctx, scenario); err != nil {
		span.RecordError(err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.engine.Snapshot())
}

func (s *Server) stopScenario(c *gin.Context) {
	ctx, span := observability.StartChildSpan(c.Request.Context(), "demo/scenario/stop", "", "")
	defer span.End()

	s.engine.StopScenario(ctx)
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) listScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.AvailableScenarios())
}

func (s *Server) getScenario(c *gin.Context) {
	id := model.ScenarioType(c.Param("id"))
	sc, ok := s.engine.Scenario(id)
	if !ok {
		abortWithError(c, fmt.Errorf("%w: %q", demo.ErrUnknownScenario, id))
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) updateIncidentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	status, err := model.ParseAlertStatus(req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	role, err := s.roleOrCurrent(req.Role)
	if err != nil {
		abortWithError(c, err)
		return
	}

	id := c.Param("id")
	ctx, span := observability.StartChildSpan(c.Request.Context(), "incident/status", "incident", id)
	defer span.End()

	inc, err := s.engine.UpdateIncidentStatusErr(ctx, id, status, role)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx, s.log).Info(ctx, "incident status update refused",
			logging.String("incident_id", id),
			logging.String("status", string(status)),
			logging.String("role", string(role)),
			logging.Err(err),
		)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (s *Server) incidentTransitions(c *gin.Context) {
	role, err := s.roleOrCurrent(c.Query("role"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	id := c.Param("id")
	inc, ok := s.engine.Incident(id)
	if !ok {
		abortWithError(c, fmt.Errorf("%w: %q", demo.ErrIncidentNotFound, id))
		return
	}
	c.JSON(http.StatusOK, transitionsResponse{
		IncidentID: inc.ID,
		Status:     inc.Status,
		Role:       role,
		Reachable:  demo.ReachableStatuses(inc.Status, role),
	})
}

func (s *Server) checkTransition(c *gin.Context) {
	from, err := model.ParseAlertStatus(c.Query("from"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	to, err := model.ParseAlertStatus(c.Query("to"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	role, err := s.roleOrCurrent(c.Query("role"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":    from,
		"to":      to,
		"role":    role,
		"allowed": s.engine.CanTransitionTo(from, to, role),
	})
}

func (s *Server) citizenReports(c *gin.Context) {
	c.JSON(http.StatusOK, attributedReports(s.engine.Snapshot().CitizenReports))
}

func (s *Server) getRole(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentRole())
}

func (s *Server) setRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := s.perms.SetRole(model.Role(req.Role)); err != nil {
		abortWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	logging.FromContext(ctx, s.log).Info(ctx, "role switched", logging.String("role", req.Role))
	c.JSON(http.StatusOK, s.currentRole())
}

func (s *Server) listRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": s.perms.Role(),
		"roles":   s.perms.AllRoles(),
	})
}

func (s *Server) hasPermission(c *gin.Context) {
	p, err := model.ParsePermission(c.Param("permission"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role":       s.perms.Role(),
		"permission": p,
		"granted":    s.perms.HasPermission(p),
	})
}

func (s *Server) listRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"role":   s.perms.Role(),
		"routes": s.perms.AllowedRoutes(),
	})
}

func (s *Server) routeAccess(c *gin.Context) {
	route := c.Query("route")
	if route == "" {
		abortWithError(c, fmt.Errorf("%w: route is required", ErrBadRequest))
		return
	}
	fallback, _ := s.perms.FallbackRoute()
	c.JSON(http.StatusOK, gin.H{
		"route":    route,
		"allowed":  s.perms.CanAccessRoute(route),
		"fallback": fallback,
	})
}

func (s *Server) operationsView(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) dispatcherView(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"activeScenario": snap.ActiveScenario,
		"incidents":      snap.Incidents,
		"responders":     snap.Responders,
	})
}

func (s *Server) responderView(c *gin.Context) {
	snap := s.engine.Snapshot()
	assigned := make([]model.Responder, 0, len(snap.Responders))
	for _, r := range snap.Responders {
		if r.Assigned() {
			assigned = append(assigned, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"incidents":   snap.Incidents,
		"assignments": assigned,
	})
}

func (s *Server) citizenView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"reports": attributedReports(s.engine.Snapshot().CitizenReports),
	})
}

func (s *Server) consoleView(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"isEnabled":      snap.Enabled,
		"activeScenario": snap.ActiveScenario,
		"isPlaying":      snap.IsPlaying,
		"playbackSpeed":  snap.PlaybackSpeed,
		"elapsedTime":    snap.ElapsedTime,
		"activityLog":    snap.ActivityLog,
	})
}

func (s *Server) roleOrCurrent(raw string) (model.Role, error) {
	if raw == "" {
		return s.perms.Role(), nil
	}
	return model.ParseRole(raw)
}

func (s *Server) currentRole() roleResponse {
	fallback, _ := s.perms.FallbackRoute()
	return roleResponse{
		Role:          s.perms.Role(),
		Label:         s.perms.RoleLabel(),
		AllowedRoutes: s.perms.AllowedRoutes(),
		Fallback:      fallback,
	}
}

func attributedReports(reports []model.CitizenReport) []citizenReportView {
	out := make([]citizenReportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, citizenReportView{
			ID:        r.ID,
			Content:   r.Content,
			Timestamp: r.Timestamp,
			Priority:  r.Priority,
			Location:  r.Location,
			Source:    r.Attribution(),
		})
	}
	return out
}
