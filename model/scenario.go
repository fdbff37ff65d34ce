package model

// ScenarioType identifies one of the fixed simulation scripts.
type ScenarioType string

const (
	ScenarioArmedRobbery    ScenarioType = "armed_robbery"
	ScenarioTrafficAccident ScenarioType = "traffic_accident"
	ScenarioMissingPerson   ScenarioType = "missing_person"
	ScenarioWelfareCheck    ScenarioType = "welfare_check"
	ScenarioCrowdControl    ScenarioType = "crowd_control"
)

// Valid reports whether s names a known scenario.
func (s ScenarioType) Valid() bool {
	switch s {
	case ScenarioArmedRobbery, ScenarioTrafficAccident, ScenarioMissingPerson,
		ScenarioWelfareCheck, ScenarioCrowdControl:
		return true
	}
	return false
}

// ParseScenarioType converts raw into a ScenarioType.
func ParseScenarioType(raw string) (ScenarioType, error) {
	return parseEnum[ScenarioType]("scenario", raw)
}

// Severity grades how serious a scenario is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Scenario is a static catalog entry describing a simulation script.
type Scenario struct {
	ID                ScenarioType `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Severity          Severity     `json:"severity"`
	EstimatedDuration string       `json:"estimatedDuration"`
}
