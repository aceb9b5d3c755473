package lead

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"growly/internal/pkg/metrics"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyNewLead(ctx context.Context, lead *Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *mockNotifier) Channel() string {
	return "mock"
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails the first store call made by submit, list and stats.
type failingStore struct {
	Store
	err error
}

func (f failingStore) GetByEmail(context.Context, string) (*Lead, error) { return nil, f.err }
func (f failingStore) Find(context.Context, Query) ([]Lead, int64, error) { return nil, 0, f.err }
func (f failingStore) CountByStatus(context.Context) (map[Status]int64, error) {
	return nil, f.err
}

type serviceFixture struct {
	svc       *Service
	repo      *Repository
	notifier  *mockNotifier
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	now       time.Time
}

func setupTestService(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo:      setupTestRepository(t),
		notifier:  &mockNotifier{},
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
		now:       testEpoch,
	}
	f.svc = NewService(f.repo,
		WithNotifier(f.notifier),
		WithPublisher(f.publisher),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func fakeRequest(faker *gofakeit.Faker, name string) SubmitLeadRequest {
	return SubmitLeadRequest{
		Name:         name,
		Email:        faker.Email(),
		Phone:        "+1 555 010 " + faker.Numerify("####"),
		BusinessType: string(BusinessTypes[faker.Number(0, len(BusinessTypes)-1)]),
		Message:      faker.Sentence(12),
	}
}

func TestService_SubmitCreatesLead(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	f.notifier.On("NotifyNewLead", mock.Anything, mock.MatchedBy(func(l *Lead) bool {
		return l.Email == "ann@x.com" && l.IPAddress == "10.0.0.7"
	})).Return(nil).Once()

	created, err := f.svc.Submit(ctx, validRequest(), RequestMeta{IP: "10.0.0.7", UserAgent: "test-agent"})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Ann Lee", created.Name)
	assert.Equal(t, "ann@x.com", created.Email)
	assert.Equal(t, BusinessAgency, created.BusinessType)
	assert.True(t, testEpoch.Equal(created.CreatedAt))

	stored, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, stored.Status)
	assert.Equal(t, SourceLandingPage, stored.Source)
	assert.Equal(t, "+15550001111", stored.Phone)
	assert.Equal(t, "test-agent", stored.UserAgent)

	f.notifier.AssertExpectations(t)
	assert.Equal(t, []string{EventLeadCreated}, f.publisher.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadsSubmitted.WithLabelValues(metrics.OutcomeCreated)))
}

func TestService_SubmitDuplicateEmail(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Submit(ctx, validRequest(), RequestMeta{})
	require.NoError(t, err)

	again := validRequest()
	again.Email = "  ANN@x.COM "
	again.Name = "Someone Else"
	_, err = f.svc.Submit(ctx, again, RequestMeta{})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	f.notifier.AssertNumberOfCalls(t, "NotifyNewLead", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadsSubmitted.WithLabelValues(metrics.OutcomeDuplicate)))
}

// racingStore hides existing leads from the duplicate pre-check, as happens
// when two submissions for the same email arrive together.
type racingStore struct {
	*Repository
}

func (racingStore) GetByEmail(context.Context, string) (*Lead, error) { return nil, nil }

func TestService_SubmitDuplicateCaughtByUniqueIndex(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	svc := NewService(racingStore{f.repo},
		WithNotifier(f.notifier),
		WithPublisher(f.publisher),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return f.now }),
	)
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Submit(ctx, validRequest(), RequestMeta{})
	require.NoError(t, err)

	req := validRequest()
	req.Email = "ANN@x.com"
	_, err = svc.Submit(ctx, req, RequestMeta{})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	var storeErr *StoreError
	assert.False(t, errors.As(err, &storeErr))

	f.notifier.AssertNumberOfCalls(t, "NotifyNewLead", 1)
	assert.Equal(t, []string{EventLeadCreated}, f.publisher.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadsSubmitted.WithLabelValues(metrics.OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadsSubmitted.WithLabelValues(metrics.OutcomeDuplicate)))

	_, total, err := f.repo.Find(ctx, Query{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestService_ConcurrentSubmitsSameEmail(t *testing.T) {
	f := setupTestService(t)
	svc := NewService(racingStore{f.repo},
		WithPublisher(f.publisher),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return testEpoch }),
	)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(context.Background(), validRequest(), RequestMeta{})
		}(i)
	}
	wg.Wait()

	created, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateEmail):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, duplicates)
	assert.Len(t, f.publisher.types(), 1)
}

func TestService_SubmitInvalidDoesNotTouchStore(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitLeadRequest{Name: "A"}, RequestMeta{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	result, err := f.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Zero(t, result.Stats.Total)
	f.notifier.AssertNotCalled(t, "NotifyNewLead", mock.Anything, mock.Anything)
}

func TestService_SubmitSurvivesNotificationFailure(t *testing.T) {
	f := setupTestService(t)
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	created, err := f.svc.Submit(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationFailures.WithLabelValues("mock")))
}

func TestService_SubmitWithoutNotifier(t *testing.T) {
	svc := NewService(setupTestRepository(t))

	created, err := svc.Submit(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestService_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(failingStore{err: boom})
	ctx := context.Background()

	_, err := svc.Submit(ctx, validRequest(), RequestMeta{})
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "get_by_email", serr.Op)
	assert.ErrorIs(t, err, boom)

	_, err = svc.List(ctx, ListParams{})
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "find", serr.Op)

	_, err = svc.DashboardStats(ctx)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "count_by_status", serr.Op)
}

func TestService_UpdateStatus(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	created, err := f.svc.Submit(ctx, validRequest(), RequestMeta{})
	require.NoError(t, err)

	f.now = testEpoch.Add(2 * time.Hour)
	notes := "  left voicemail "
	updated, err := f.svc.UpdateStatus(ctx, created.ID, "contacted", &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusContacted, updated.Status)
	assert.Equal(t, "left voicemail", updated.Notes)
	assert.True(t, f.now.Equal(updated.UpdatedAt))
	assert.True(t, testEpoch.Equal(updated.CreatedAt))

	empty := ""
	updated, err = f.svc.UpdateStatus(ctx, created.ID, "qualified", &empty)
	require.NoError(t, err)
	assert.Equal(t, "left voicemail", updated.Notes, "empty notes leave notes untouched")

	assert.Equal(t, []string{EventLeadCreated, EventLeadStatusUpdated, EventLeadStatusUpdated}, f.publisher.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LeadStatusUpdates.WithLabelValues("qualified")))
}

func TestService_UpdateStatusErrors(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	// Status is checked before the lead is looked up.
	_, err := f.svc.UpdateStatus(ctx, 9999, "converted", nil)
	var serr *InvalidStatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Invalid status. Must be one of: new, contacted, qualified, closed", serr.Error())

	_, err = f.svc.UpdateStatus(ctx, 9999, "", nil)
	assert.ErrorAs(t, err, &serr)

	_, err = f.svc.UpdateStatus(ctx, 9999, "closed", nil)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.Empty(t, f.publisher.types())
}

func TestService_Delete(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	created, err := f.svc.Submit(ctx, validRequest(), RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), ErrLeadNotFound)

	// Resubmitting the same email works once the lead is gone.
	_, err = f.svc.Submit(ctx, validRequest(), RequestMeta{})
	assert.NoError(t, err)
}

func TestService_ListStatsAreGlobal(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	faker := gofakeit.New(7)
	names := []string{"Ann Lee", "Bob Stone", "Cara Lin", "Dan Brown", "Eve Park"}
	var ids []int64
	for i, name := range names {
		f.now = testEpoch.Add(time.Duration(i) * time.Minute)
		created, err := f.svc.Submit(ctx, fakeRequest(faker, name), RequestMeta{})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := f.svc.UpdateStatus(ctx, ids[0], "qualified", nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, ids[1], "closed", nil)
	require.NoError(t, err)

	result, err := f.svc.List(ctx, ListParams{Status: "qualified", Page: 1, Limit: 2})
	require.NoError(t, err)

	require.Len(t, result.Leads, 1)
	assert.Equal(t, "Ann Lee", result.Leads[0].Name)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 1, TotalLeads: 1, Limit: 2}, result.Pagination)
	assert.Equal(t, Stats{Total: 5, New: 3, Qualified: 1, Closed: 1}, result.Stats)
	assert.Equal(t, "qualified", result.Filters.Status)
	assert.Equal(t, "all", result.Filters.BusinessType)

	result, err = f.svc.List(ctx, ListParams{Page: 2, Limit: 2, SortBy: "createdAt", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, result.Leads, 2)
	assert.Equal(t, "Cara Lin", result.Leads[0].Name)
	assert.True(t, result.Pagination.HasNext)
	assert.True(t, result.Pagination.HasPrev)
	assert.Equal(t, 3, result.Pagination.TotalPages)

	result, err = f.svc.List(ctx, ListParams{Page: 50})
	require.NoError(t, err)
	assert.Empty(t, result.Leads)
	assert.EqualValues(t, 5, result.Pagination.TotalLeads)
	assert.False(t, result.Pagination.HasNext)
}

func TestService_DashboardStats(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	faker := gofakeit.New(11)
	submitAt := func(at time.Time, name string) {
		f.now = at
		_, err := f.svc.Submit(ctx, fakeRequest(faker, name), RequestMeta{})
		require.NoError(t, err)
	}
	submitAt(testEpoch.AddDate(0, 0, -10), "Old Lead")
	submitAt(testEpoch.AddDate(0, 0, -2), "Ann Lee")
	submitAt(testEpoch.AddDate(0, 0, -2).Add(time.Hour), "Bob Stone")
	submitAt(testEpoch, "Cara Lin")

	f.now = testEpoch
	stats, err := f.svc.DashboardStats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 4, stats.New)
	assert.EqualValues(t, 3, stats.RecentActivity.Last7Days)
	assert.Equal(t, map[string]int64{"2026-03-08": 2, "2026-03-10": 1}, stats.RecentActivity.LeadsByDate)
}

func TestService_ExportCSV(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	f.notifier.On("NotifyNewLead", mock.Anything, mock.Anything).Return(nil)

	req := validRequest()
	req.Message = "=SUM(A1:A2)"
	_, err := f.svc.Submit(ctx, req, RequestMeta{})
	require.NoError(t, err)

	other := validRequest()
	other.Email = "bob@x.com"
	other.BusinessType = "Startup"
	_, err = f.svc.Submit(ctx, other, RequestMeta{})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.svc.Export(ctx, ListParams{BusinessType: "Agency", Page: 9, Limit: 1}, FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "export ignores paging")

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "ann@x.com", rows[1][2])
	assert.Equal(t, "'=SUM(A1:A2)", rows[1][7])

	_, err = f.svc.Export(ctx, ListParams{}, ExportFormat("pdf"), &buf)
	assert.ErrorIs(t, err, ErrInvalidExportFormat)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExportsCreated.WithLabelValues("csv")))
}
