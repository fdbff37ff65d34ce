package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/model"
)

var (
	// ErrBadRequest marks a malformed request body or query.
	ErrBadRequest = errors.New("bad request")
	// ErrNoActiveScenario marks a playback command issued with nothing loaded.
	ErrNoActiveScenario = errors.New("no active scenario")
	// ErrRouteForbidden marks a view the current role may not open.
	ErrRouteForbidden = errors.New("route not accessible for role")
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Fallback  string `json:"fallback,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes and a stable
// machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, demo.ErrIncidentNotFound),
		errors.Is(err, demo.ErrUnknownScenario):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidEnum):
		return http.StatusBadRequest, "invalid_argument"

	case errors.Is(err, demo.ErrTransitionNotAllowed):
		return http.StatusConflict, "transition_not_allowed"

	case errors.Is(err, demo.ErrRoleNotPermitted):
		return http.StatusForbidden, "role_not_permitted"

	case errors.Is(err, ErrRouteForbidden):
		return http.StatusForbidden, "route_forbidden"

	case errors.Is(err, ErrNoActiveScenario):
		return http.StatusPreconditionFailed, "no_active_scenario"

	default:
		return http.StatusInternalServerError, "internal"
	}
}

// abortWithError writes the mapped error response and stops the chain.
func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestIDFrom(c),
	})
}
