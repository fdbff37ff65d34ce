package model

// ResponderStatus describes what a responder unit is doing.
type ResponderStatus string

const (
	ResponderAvailable ResponderStatus = "available"
	ResponderEnRoute   ResponderStatus = "en_route"
	ResponderOnScene   ResponderStatus = "on_scene"
	ResponderBusy      ResponderStatus = "busy"
)

// Valid reports whether s is a known responder status.
func (s ResponderStatus) Valid() bool {
	switch s {
	case ResponderAvailable, ResponderEnRoute, ResponderOnScene, ResponderBusy:
		return true
	}
	return false
}

// Position is a point on the normalised 0-100 map plane.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Responder is one unit of the fixed roster.
type Responder struct {
	ID       string          `json:"id"`
	UnitID   string          `json:"unitId"`
	Position Position        `json:"position"`
	Status   ResponderStatus `json:"status"`
	// AssignedIncidentID references an incident by ID only. The incident may
	// have been cleared since; readers must treat such an ID as stale.
	AssignedIncidentID string `json:"assignedIncidentId,omitempty"`
}

// Assigned reports whether the responder holds an incident reference.
func (r Responder) Assigned() bool { return r.AssignedIncidentID != "" }
