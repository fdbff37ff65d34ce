package demo

import (
	"time"

	"github.com/signalsfoundry/incident-demo/model"
)

var scenarioCatalog = []model.Scenario{
	{
		ID:                model.ScenarioArmedRobbery,
		Name:              "Urgent Safety Response",
		Description:       "Priority response scenario with multiple responders and citizen coordination",
		Severity:          model.SeverityCritical,
		EstimatedDuration: "15 min",
	},
	{
		ID:                model.ScenarioTrafficAccident,
		Name:              "Traffic Incident",
		Description:       "Multi-vehicle collision requiring medical support and traffic coordination",
		Severity:          model.SeverityHigh,
		EstimatedDuration: "20 min",
	},
	{
		ID:                model.ScenarioMissingPerson,
		Name:              "Person Locate",
		Description:       "Community coordination to locate and support an individual",
		Severity:          model.SeverityMedium,
		EstimatedDuration: "45 min",
	},
	{
		ID:                model.ScenarioWelfareCheck,
		Name:              "Wellness Check",
		Description:       "Wellness check with supportive response based on findings",
		Severity:          model.SeverityLow,
		EstimatedDuration: "10 min",
	},
	{
		ID:                model.ScenarioCrowdControl,
		Name:              "Community Event Support",
		Description:       "Large public event requiring coordinated presence and monitoring",
		Severity:          model.SeverityMedium,
		EstimatedDuration: "2 hours",
	},
}

// initialRoster is the idle responder layout restored by stop and reset.
func initialRoster() []model.Responder {
	return []model.Responder{
		{ID: "R1", UnitID: "Alpha-7", Position: model.Position{X: 45, Y: 35}, Status: model.ResponderAvailable},
		{ID: "R2", UnitID: "Beta-3", Position: model.Position{X: 25, Y: 55}, Status: model.ResponderAvailable},
		{ID: "R3", UnitID: "Delta-1", Position: model.Position{X: 75, Y: 65}, Status: model.ResponderAvailable},
		{ID: "R4", UnitID: "Echo-2", Position: model.Position{X: 60, Y: 25}, Status: model.ResponderAvailable},
	}
}

// scenarioSeed is the content a scenario starts with.
type scenarioSeed struct {
	incidents []model.Incident
	reports   []model.CitizenReport
	log       []model.ActivityEntry
}

// seedScenario builds the deterministic starting content for s, stamped
// with ts. ok is false for an unknown scenario.
func seedScenario(s model.ScenarioType, ts time.Time) (seed scenarioSeed, ok bool) {
	incident := func(id, title, location, zone string, src model.SourceType, prio model.Priority) model.Incident {
		return model.Incident{
			ID:         id,
			Title:      title,
			Location:   location,
			Zone:       zone,
			SourceType: src,
			Priority:   prio,
			Status:     model.StatusActive,
			Scenario:   s,
			Timestamp:  ts,
		}
	}
	report := func(id, content string, prio model.Priority, optedIn bool, location string) model.CitizenReport {
		return model.CitizenReport{
			ID:        id,
			Content:   content,
			Timestamp: ts,
			Priority:  prio,
			IsOptedIn: optedIn,
			Location:  location,
		}
	}
	entry := func(id string, cat model.LogCategory, msg, channel string) model.ActivityEntry {
		return model.ActivityEntry{ID: id, Category: cat, Message: msg, Timestamp: ts, Channel: channel}
	}

	switch s {
	case model.ScenarioArmedRobbery:
		return scenarioSeed{
			incidents: []model.Incident{
				incident("INC-2847", "Urgent Safety Response", "445 Main Street", "Downtown Core",
					model.Source911Call, model.PriorityHigh),
			},
			reports: []model.CitizenReport{
				report("CTZ-001", "Safety concern at 445 Main Street. Multiple individuals, immediate response requested.",
					model.PriorityHigh, true, "445 Main Street"),
			},
			log: []model.ActivityEntry{
				entry("1", model.LogIncoming, "PRIORITY: Urgent response needed 445 Main Street", "dispatch"),
				entry("2", model.LogSystem, "Response window timer started - 4 minute target", ""),
			},
		}, true

	case model.ScenarioTrafficAccident:
		return scenarioSeed{
			incidents: []model.Incident{
				incident("INC-2848", "Multi-Vehicle Collision", "Highway 101 @ Exit 23", "Highway Corridor",
					model.SourceCitizenReport, model.PriorityHigh),
			},
			reports: []model.CitizenReport{
				report("CTZ-002", "Three car pileup on Highway 101. At least one person injured.",
					model.PriorityHigh, true, "Highway 101"),
				report("CTZ-003", "Traffic backing up for miles. Need traffic control ASAP.",
					model.PriorityMedium, false, "Highway 101"),
			},
			log: []model.ActivityEntry{
				entry("1", model.LogIncoming, "Traffic incident reported - Highway 101 @ Exit 23", "dispatch"),
				entry("2", model.LogSystem, "EMS and traffic units notified", ""),
			},
		}, true

	case model.ScenarioMissingPerson:
		return scenarioSeed{
			incidents: []model.Incident{
				incident("INC-2849", "Person Locate - Child", "Central Park Area", "Central District",
					model.SourceCitizenReport, model.PriorityHigh),
			},
			reports: []model.CitizenReport{
				report("CTZ-004", "Family seeking help locating 8-year-old from Central Park. Last seen wearing blue jacket.",
					model.PriorityHigh, true, "Central Park"),
			},
			log: []model.ActivityEntry{
				entry("1", model.LogIncoming, "Person locate request - Child, Age 8", "citizen"),
				entry("2", model.LogSystem, "Community coordination activated", ""),
				entry("3", model.LogOutgoing, "All units in sector 7 requested to assist", "responder"),
			},
		}, true

	case model.ScenarioWelfareCheck:
		return scenarioSeed{
			incidents: []model.Incident{
				incident("INC-2850", "Wellness Check Request", "123 Oak Street, Apt 4B", "Residential East",
					model.SourceCommunityTip, model.PriorityMedium),
			},
			reports: []model.CitizenReport{
				report("CTZ-005", "Concerned neighbor checking on elderly resident not seen in 3 days.",
					model.PriorityMedium, true, "123 Oak Street"),
			},
			log: []model.ActivityEntry{
				entry("1", model.LogIncoming, "Wellness check requested - 123 Oak Street", "citizen"),
				entry("2", model.LogSystem, "Unit dispatched for wellness check", ""),
			},
		}, true

	case model.ScenarioCrowdControl:
		return scenarioSeed{
			incidents: []model.Incident{
				incident("INC-2851", "Community Event Support", "City Stadium Complex", "Entertainment District",
					model.SourceSystem, model.PriorityMedium),
			},
			reports: []model.CitizenReport{},
			log: []model.ActivityEntry{
				entry("1", model.LogSystem, "Event support activated - City Stadium", ""),
				entry("2", model.LogOutgoing, "All support units check in", "responder"),
			},
		}, true
	}

	return scenarioSeed{}, false
}
