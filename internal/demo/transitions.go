package demo

import (
	"fmt"
	"slices"

	"github.com/signalsfoundry/incident-demo/model"
)

// allowedTransitions is the closed incident status edge table.
var allowedTransitions = map[model.AlertStatus][]model.AlertStatus{
	model.StatusActive:       {model.StatusAcknowledged},
	model.StatusAcknowledged: {model.StatusMonitoring, model.StatusResolved},
	model.StatusMonitoring:   {model.StatusResolved},
	model.StatusResolved:     {},
}

// edgeAllowed reports whether current -> target is in the edge table,
// ignoring who asks.
func edgeAllowed(current, target model.AlertStatus) bool {
	return slices.Contains(allowedTransitions[current], target)
}

// roleAllowed applies the role gate on top of the edge table. Monitoring
// carries no role restriction.
func roleAllowed(target model.AlertStatus, role model.Role) bool {
	switch target {
	case model.StatusAcknowledged:
		return role == model.RoleDispatcher
	case model.StatusResolved:
		return role == model.RoleResponder || role == model.RoleCitizen
	default:
		return true
	}
}

// CheckTransition returns nil when role may move an incident from current
// to target, ErrTransitionNotAllowed when the edge does not exist, and
// ErrRoleNotPermitted when the edge exists but role may not take it.
func CheckTransition(current, target model.AlertStatus, role model.Role) error {
	if !edgeAllowed(current, target) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, current, target)
	}
	if !roleAllowed(target, role) {
		return fmt.Errorf("%w: %s may not move an incident to %s", ErrRoleNotPermitted, role, target)
	}
	return nil
}

// CanTransitionTo reports whether role may move an incident from current to
// target.
func CanTransitionTo(current, target model.AlertStatus, role model.Role) bool {
	return CheckTransition(current, target, role) == nil
}

// ReachableStatuses lists the statuses role may move an incident to from
// current, in edge-table order.
func ReachableStatuses(current model.AlertStatus, role model.Role) []model.AlertStatus {
	out := []model.AlertStatus{}
	for _, target := range allowedTransitions[current] {
		if roleAllowed(target, role) {
			out = append(out, target)
		}
	}
	return out
}

// ActorLabel is the display label stamped on incidents and log entries when
// role changes an incident's status.
func ActorLabel(role model.Role) string {
	switch role {
	case model.RoleDispatcher:
		return "Dispatch"
	case model.RoleResponder:
		return "Responder"
	case model.RoleAdmin:
		return "Admin"
	case model.RoleOperations:
		return "Operations"
	default:
		return "Citizen"
	}
}
