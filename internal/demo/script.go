package demo

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/incident-demo/model"
)

// Checkpoints of the scripted incident timeline, in ticks since start.
const (
	TickResponding = 5
	TickOnScene    = 15
	TickBackup     = 30
	TickStabilized = 45
	// ScriptLength is the tick at which the script resolves the incident
	// and stops playback.
	ScriptLength = 60
)

const (
	primaryResponderID = "R1"
	backupResponderID  = "R2"
)

// rendezvous is where the primary responder parks when it reaches the scene.
var rendezvous = model.Position{X: 50, Y: 40}

// applyCheckpointLocked performs the one-shot effects scheduled for tick.
// Each checkpoint matches a single tick exactly, so the caller must advance
// elapsed time one tick at a time.
func (e *Engine) applyCheckpointLocked(tick int, now time.Time) {
	primaryLabel := "Unit " + e.unitIDLocked(primaryResponderID)

	switch {
	case tick == TickResponding:
		e.appendLogLocked(checkpointEntry(tick, model.LogOutgoing, primaryLabel+" responding", "responder", now))
		e.updateResponderLocked(primaryResponderID, func(r *model.Responder) {
			r.Status = model.ResponderEnRoute
		})

	case tick == TickOnScene:
		e.appendLogLocked(checkpointEntry(tick, model.LogSystem, primaryLabel+" on scene", "", now))
		e.updateResponderLocked(primaryResponderID, func(r *model.Responder) {
			r.Status = model.ResponderOnScene
			r.Position = rendezvous
		})
		e.advanceIncidentsLocked(model.StatusAcknowledged, primaryLabel, now)

	case tick == TickBackup:
		e.appendLogLocked(checkpointEntry(tick, model.LogIncoming, "Backup unit requested", "responder", now))
		incidentID := ""
		if len(e.incidents) > 0 {
			incidentID = e.incidents[0].ID
		}
		e.updateResponderLocked(backupResponderID, func(r *model.Responder) {
			r.Status = model.ResponderEnRoute
			r.AssignedIncidentID = incidentID
		})

	case tick == TickStabilized:
		e.appendLogLocked(checkpointEntry(tick, model.LogSystem, "Situation stabilized - Monitoring", "", now))
		e.advanceIncidentsLocked(model.StatusMonitoring, primaryLabel, now)

	case tick >= ScriptLength:
		e.appendLogLocked(checkpointEntry(tick, model.LogSystem, "Incident resolved - Scene secure", "", now))
		e.advanceIncidentsLocked(model.StatusResolved, primaryLabel, now)
		e.playing = false
	}
}

func checkpointEntry(tick int, cat model.LogCategory, msg, channel string, now time.Time) model.ActivityEntry {
	return model.ActivityEntry{
		ID:        fmt.Sprintf("log-%d", tick),
		Category:  cat,
		Message:   msg,
		Timestamp: now,
		Channel:   channel,
	}
}

// advanceIncidentsLocked moves every incident to target on behalf of the
// script. The role gate does not apply, but the edge table does: incidents
// that actors already moved past target are left alone.
func (e *Engine) advanceIncidentsLocked(target model.AlertStatus, actor string, now time.Time) {
	for i := range e.incidents {
		if !edgeAllowed(e.incidents[i].Status, target) {
			continue
		}
		e.setIncidentStatusLocked(i, target, actor, now)
	}
}

func (e *Engine) unitIDLocked(responderID string) string {
	for _, r := range e.responders {
		if r.ID == responderID {
			return r.UnitID
		}
	}
	return responderID
}

func (e *Engine) updateResponderLocked(responderID string, fn func(*model.Responder)) {
	for i := range e.responders {
		if e.responders[i].ID == responderID {
			fn(&e.responders[i])
			return
		}
	}
}
