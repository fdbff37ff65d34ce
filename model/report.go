package model

import "time"

// AnonymousSource is the attribution shown for reports whose author did not opt in.
const AnonymousSource = "Anonymous"

// CitizenReport is a report submitted by a member of the public.
type CitizenReport struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Priority  Priority  `json:"priority"`
	// IsOptedIn controls whether the report may be attributed to its author.
	IsOptedIn bool   `json:"isOptedIn"`
	Location  string `json:"location"`
}

// Attribution returns the source label a consumer should display.
func (r CitizenReport) Attribution() string {
	if r.IsOptedIn {
		return "Citizen " + r.ID
	}
	return AnonymousSource
}

// LogCategory classifies an activity log entry.
type LogCategory string

const (
	LogIncoming LogCategory = "incoming"
	LogOutgoing LogCategory = "outgoing"
	LogSystem   LogCategory = "system"
)

// ActivityEntry is one line of the append-only activity log.
type ActivityEntry struct {
	ID        string      `json:"id"`
	Category  LogCategory `json:"type"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Channel   string      `json:"channel,omitempty"`
}
