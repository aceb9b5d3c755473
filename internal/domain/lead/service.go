package lead

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"growly/internal/pkg/logger"
	"growly/internal/pkg/metrics"
)

// Store defines lead persistence. *Repository is the production implementation.
type Store interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id int64) (*Lead, error)
	GetByEmail(ctx context.Context, email string) (*Lead, error)
	Find(ctx context.Context, q Query) ([]Lead, int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status, notes *string, at time.Time) (*Lead, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

// Notifier tells the sales team about a new lead.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *Lead) error
	Channel() string
}

const (
	maxNotesLength = 2000
	activityWindow = 7 * 24 * time.Hour
	dateLayout     = "2006-01-02"
)

// Service handles lead business logic
type Service struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	metrics   *metrics.Metrics
	log       logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithNotifier enables new-lead notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates lead service
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger.Discard(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a landing page submission, then notifies the
// sales team. Notification failures are logged and never returned.
func (s *Service) Submit(ctx context.Context, req SubmitLeadRequest, meta RequestMeta) (*CreatedLead, error) {
	sub, err := ValidateSubmission(req)
	if err != nil {
		s.metrics.LeadSubmitted(metrics.OutcomeInvalid)
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, sub.Email)
	if err != nil {
		s.metrics.LeadSubmitted(metrics.OutcomeError)
		return nil, storeError("get_by_email", err)
	}
	if existing != nil {
		s.metrics.LeadSubmitted(metrics.OutcomeDuplicate)
		return nil, ErrDuplicateEmail
	}

	now := s.now().UTC()
	lead := &Lead{
		Name:         sub.Name,
		Email:        sub.Email,
		Phone:        sub.Phone,
		BusinessType: sub.BusinessType,
		Message:      sub.Message,
		Status:       StatusNew,
		Source:       SourceLandingPage,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, lead); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.metrics.LeadSubmitted(metrics.OutcomeDuplicate)
			return nil, ErrDuplicateEmail
		}
		s.metrics.LeadSubmitted(metrics.OutcomeError)
		return nil, storeError("create", err)
	}

	s.metrics.LeadSubmitted(metrics.OutcomeCreated)
	s.log.Info("lead submitted", "lead_id", lead.ID, "business_type", string(lead.BusinessType))

	s.notify(ctx, lead)
	s.publish(EventLeadCreated, lead.ID, lead)

	return lead.Summary(), nil
}

func (s *Service) notify(ctx context.Context, lead *Lead) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyNewLead(ctx, lead); err != nil {
		s.metrics.NotificationFailed(s.notifier.Channel())
		s.log.Error("new lead notification failed",
			"lead_id", lead.ID,
			"channel", s.notifier.Channel(),
			"error", err,
		)
	}
}

func (s *Service) publish(eventType string, id int64, lead *Lead) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Type: eventType, LeadID: id, Lead: lead, At: s.now().UTC()})
}

// Get returns lead by ID
func (s *Service) Get(ctx context.Context, id int64) (*Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get", err)
	}
	return lead, nil
}

// UpdateStatus moves a lead through the pipeline. Empty notes leave existing
// notes untouched.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string, notes *string) (*Lead, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var newNotes *string
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if len([]rune(trimmed)) > maxNotesLength {
			return nil, &ValidationError{Fields: []FieldError{{
				Field:   "notes",
				Message: "Notes cannot exceed 2000 characters",
			}}}
		}
		if trimmed != "" {
			newNotes = &trimmed
		}
	}

	lead, err := s.store.UpdateStatus(ctx, id, st, newNotes, s.now().UTC())
	if err != nil {
		return nil, storeError("update_status", err)
	}

	s.metrics.StatusUpdated(string(st))
	s.log.Info("lead status updated", "lead_id", id, "status", string(st))
	s.publish(EventLeadStatusUpdated, id, lead)

	return lead, nil
}

// Delete removes a lead permanently
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError("delete", err)
	}

	s.metrics.LeadDeleted()
	s.log.Info("lead deleted", "lead_id", id)
	s.publish(EventLeadDeleted, id, nil)
	return nil
}

// List returns one page of leads plus collection-wide stats.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	p := params.Normalize()

	leads, total, err := s.store.Find(ctx, p.StoreQuery())
	if err != nil {
		return nil, storeError("find", err)
	}

	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Leads:      leads,
		Pagination: NewPagination(p.Page, p.Limit, total),
		Stats:      *stats,
		Filters:    p.Filters(),
	}, nil
}

func (s *Service) stats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, storeError("count_by_status", err)
	}

	st := &Stats{
		New:       counts[StatusNew],
		Contacted: counts[StatusContacted],
		Qualified: counts[StatusQualified],
		Closed:    counts[StatusClosed],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// DashboardStats returns status counts and leads per UTC day for the last 7 days.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	since := s.now().UTC().Add(-activityWindow)
	times, err := s.store.CreatedSince(ctx, since)
	if err != nil {
		return nil, storeError("created_since", err)
	}

	byDate := make(map[string]int64)
	for _, t := range times {
		byDate[t.UTC().Format(dateLayout)]++
	}

	return &DashboardStats{
		Stats: *stats,
		RecentActivity: RecentActivity{
			Last7Days:   int64(len(times)),
			LeadsByDate: byDate,
		},
	}, nil
}

// Export writes every lead matching params (ignoring paging, capped at
// MaxExportRows) to w in the given format and returns the row count.
func (s *Service) Export(ctx context.Context, params ListParams, format ExportFormat, w io.Writer) (int, error) {
	if !format.Valid() {
		return 0, ErrInvalidExportFormat
	}

	q := params.Normalize().StoreQuery()
	q.Offset = 0
	q.Limit = MaxExportRows

	leads, _, err := s.store.Find(ctx, q)
	if err != nil {
		return 0, storeError("find", err)
	}

	if err := writeExport(w, format, leads); err != nil {
		return 0, err
	}

	s.metrics.ExportCreated(string(format))
	s.log.Info("leads exported", "format", string(format), "rows", len(leads))
	return len(leads), nil
}
