package model

import (
	"strings"
	"time"
)

// AlertStatus is the lifecycle status of an incident.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusMonitoring   AlertStatus = "monitoring"
	StatusResolved     AlertStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusMonitoring, StatusResolved:
		return true
	}
	return false
}

// Upper returns the status in the upper-case form used by activity messages.
func (s AlertStatus) Upper() string { return strings.ToUpper(string(s)) }

// ParseAlertStatus converts raw into an AlertStatus.
func ParseAlertStatus(raw string) (AlertStatus, error) {
	return parseEnum[AlertStatus]("status", raw)
}

// SourceType tags how an incident entered the system.
type SourceType string

const (
	Source911Call       SourceType = "911_call"
	SourceCitizenReport SourceType = "citizen_report"
	SourceSensor        SourceType = "sensor"
	SourceCommunityTip  SourceType = "community_tip"
	SourceSystem        SourceType = "system"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case Source911Call, SourceCitizenReport, SourceSensor, SourceCommunityTip, SourceSystem:
		return true
	}
	return false
}

// Priority ranks incidents and citizen reports.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Incident is the simulated unit of emergency work.
type Incident struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Location   string       `json:"location"`
	Zone       string       `json:"zone,omitempty"`
	SourceType SourceType   `json:"sourceType,omitempty"`
	Priority   Priority     `json:"priority"`
	Status     AlertStatus  `json:"status"`
	Scenario   ScenarioType `json:"scenario"`
	// Timestamp records when the incident was created.
	Timestamp time.Time `json:"timestamp"`

	// Acknowledgement and resolution metadata stay zero until the
	// corresponding transition happens.
	AcknowledgedBy string    `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledgedAt,omitzero"`
	ResolvedBy     string    `json:"resolvedBy,omitempty"`
	ResolvedAt     time.Time `json:"resolvedAt,omitzero"`
}
