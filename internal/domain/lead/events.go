package lead

import "time"

const (
	EventLeadCreated       = "lead.created"
	EventLeadStatusUpdated = "lead.status_updated"
	EventLeadDeleted       = "lead.deleted"
)

// Event is pushed to connected admin dashboards after a lead changes.
type Event struct {
	Type   string    `json:"type"`
	LeadID int64     `json:"leadId"`
	Lead   *Lead     `json:"lead,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher fans events out to listeners. Publish must not block on slow listeners.
type Publisher interface {
	Publish(event Event)
}
