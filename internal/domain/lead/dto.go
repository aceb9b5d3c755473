package lead

import "time"

// SubmitLeadRequest represents the public landing page form
type SubmitLeadRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100,personname"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,phonelike"`
	BusinessType string `json:"businessType" validate:"required,businesstype"`
	Message      string `json:"message" validate:"max=1000"`
}

// Submission is a validated and normalized SubmitLeadRequest.
type Submission struct {
	Name         string
	Email        string
	Phone        string
	BusinessType BusinessType
	Message      string
}

// RequestMeta is captured from the HTTP request for tracking only.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// CreatedLead is the public echo of a new lead. Phone and message stay private.
type CreatedLead struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	BusinessType BusinessType `json:"businessType"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// Pagination describes one page of a filtered list.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalLeads  int64 `json:"totalLeads"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// Stats are counts over the whole collection, never filtered.
type Stats struct {
	Total     int64 `json:"total"`
	New       int64 `json:"new"`
	Contacted int64 `json:"contacted"`
	Qualified int64 `json:"qualified"`
	Closed    int64 `json:"closed"`
}

// Filters echoes the effective list parameters back to the admin UI.
type Filters struct {
	Status       string `json:"status"`
	BusinessType string `json:"businessType"`
	Search       string `json:"search"`
	SortBy       string `json:"sortBy"`
	SortOrder    string `json:"sortOrder"`
}

// ListResult is the admin list response
type ListResult struct {
	Leads      []Lead     `json:"leads"`
	Pagination Pagination `json:"pagination"`
	Stats      Stats      `json:"stats"`
	Filters    Filters    `json:"filters"`
}

type RecentActivity struct {
	Last7Days   int64            `json:"last7Days"`
	LeadsByDate map[string]int64 `json:"leadsByDate"`
}

// DashboardStats flattens Stats next to the recent activity block.
type DashboardStats struct {
	Stats
	RecentActivity RecentActivity `json:"recentActivity"`
}
