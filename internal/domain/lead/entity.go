package lead

import (
	"strings"
	"time"
)

// Status represents where a lead is in the sales pipeline.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusClosed    Status = "closed"
)

// Statuses lists the canonical pipeline in order.
var Statuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusClosed}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus trims and checks a status coming from an admin request.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", &InvalidStatusError{Value: raw}
	}
	return s, nil
}

// BusinessType is the prospect's self-declared kind of business.
type BusinessType string

const (
	BusinessStartup    BusinessType = "Startup"
	BusinessSmall      BusinessType = "Small Business"
	BusinessAgency     BusinessType = "Agency"
	BusinessEnterprise BusinessType = "Enterprise"
	BusinessFreelancer BusinessType = "Freelancer"
	BusinessConsultant BusinessType = "Consultant"
	BusinessEcommerce  BusinessType = "Ecommerce"
	BusinessOther      BusinessType = "Other"
)

var BusinessTypes = []BusinessType{
	BusinessStartup,
	BusinessSmall,
	BusinessAgency,
	BusinessEnterprise,
	BusinessFreelancer,
	BusinessConsultant,
	BusinessEcommerce,
	BusinessOther,
}

func (b BusinessType) Valid() bool {
	for _, v := range BusinessTypes {
		if b == v {
			return true
		}
	}
	return false
}

// SourceLandingPage is recorded on every lead created through the public form.
const SourceLandingPage = "landing_page"

// Lead represents a prospect captured from the landing page
type Lead struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	BusinessType BusinessType `json:"businessType"`
	Message      string       `json:"message"`
	Status       Status       `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Source       string       `json:"source"`

	// Tracking
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsNew returns true if nobody has worked the lead yet
func (l *Lead) IsNew() bool {
	return l.Status == StatusNew
}

// Summary is what the public submitter gets back.
func (l *Lead) Summary() *CreatedLead {
	return &CreatedLead{
		ID:           l.ID,
		Name:         l.Name,
		Email:        l.Email,
		BusinessType: l.BusinessType,
		CreatedAt:    l.CreatedAt,
	}
}
