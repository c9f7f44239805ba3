package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigledger/internal/cache"
	"gigledger/internal/core"
	applog "gigledger/internal/log"
	"gigledger/internal/services"
)

// memGigStore is a mutable in-memory store backing real services for handler
// tests.
type memGigStore struct {
	mu     sync.Mutex
	nextID int64
	gigs   map[int64]core.GigRecord
}

func newMemGigStore() *memGigStore {
	return &memGigStore{gigs: make(map[int64]core.GigRecord)}
}

func (m *memGigStore) GetGig(_ context.Context, id int64) (core.GigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gigs[id]
	if !ok {
		return core.GigRecord{}, core.ErrNotFound
	}
	return g, nil
}

func (m *memGigStore) byUser(userID int64) []core.GigRecord {
	var out []core.GigRecord
	for _, g := range m.gigs {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memGigStore) GetGigsByUser(_ context.Context, userID int64, limit, offset int) ([]core.GigRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.byUser(userID)
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *memGigStore) GetGigsByDateRange(_ context.Context, userID int64, start, end time.Time) ([]core.GigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.GigRecord
	for _, g := range m.byUser(userID) {
		if !g.Date.Before(start) && g.Date.Before(end) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGigStore) GetGigsByGroupID(_ context.Context, userID int64, groupID string) ([]core.GigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.GigRecord
	for _, g := range m.byUser(userID) {
		if g.MultiDayGroupID == groupID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGigStore) GetOpenGigs(_ context.Context, userID int64) ([]core.GigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.GigRecord
	for _, g := range m.byUser(userID) {
		if g.Status != core.StatusCompleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGigStore) CreateGig(_ context.Context, g core.GigRecord) (core.GigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	g.ID = m.nextID
	m.gigs[g.ID] = g
	return g, nil
}

func (m *memGigStore) UpdateGig(_ context.Context, g core.GigRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gigs[g.ID]; !ok {
		return core.ErrNotFound
	}
	m.gigs[g.ID] = g
	return nil
}

func (m *memGigStore) DeleteGig(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gigs[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.gigs, id)
	return nil
}

type memExpenseStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]core.ExpenseRecord
}

func newMemExpenseStore() *memExpenseStore {
	return &memExpenseStore{expenses: make(map[int64]core.ExpenseRecord)}
}

func (m *memExpenseStore) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.expenses[e.ID] = e
	return e, nil
}

func (m *memExpenseStore) GetExpensesByDateRange(_ context.Context, userID int64, start, end time.Time) ([]core.ExpenseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.ExpenseRecord
	for _, e := range m.expenses {
		if e.UserID == userID && !e.Date.Before(start) && e.Date.Before(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memExpenseStore) DeleteExpense(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func newTestServer(t *testing.T) (*Server, *memGigStore) {
	t.Helper()
	store := newMemGigStore()
	expenses := newMemExpenseStore()

	aggCache := cache.NewLRUCache[core.PeriodAggregate](16, time.Minute)
	listCache := cache.NewLRUCache[services.GigListPage](16, time.Minute)
	inv := cache.MultiInvalidator{aggCache, listCache}

	gigs := services.NewGigService(store, expenses, nil, inv, listCache)
	payments := services.NewPaymentService(store, expenses, nil, inv)
	aggregates := services.NewAggregationService(store, expenses, nil, aggCache,
		decimal.RequireFromString("0.67"), decimal.RequireFromString("20"))

	logger := applog.New(applog.Config{Component: applog.ComponentHTTP})
	return NewServer(":0", gigs, payments, aggregates, logger), store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListGigs(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/gigs",
		`{"event_name":"Festival","client_name":"Promoter","gig_type":"festival",
		  "date":"2026-07-10","end_date":"2026-07-12","expected_pay":"300"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Gigs []gigView `json:"gigs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Gigs, 3)
	groupID := created.Gigs[0].MultiDayGroupID
	assert.NotEmpty(t, groupID)
	for _, g := range created.Gigs {
		assert.Equal(t, groupID, g.MultiDayGroupID)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/gigs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Groups []groupView `json:"groups"`
		Total  int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Groups, 1)
	assert.True(t, page.Groups[0].IsMultiDay)
	assert.Equal(t, "2026-07-10", page.Groups[0].StartDate)
	assert.Equal(t, "2026-07-12", page.Groups[0].EndDate)
}

func TestCreateGigRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/gigs", `{"event_name":"X","date":"not-a-date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/gigs", `{"event_name":"  ","date":"2026-07-10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// No user identity at all.
	req := httptest.NewRequest(http.MethodPost, "/api/gigs", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	seeded, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Wedding", Date: core.NewDate(2026, 5, 2), Status: core.StatusUpcoming,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/gigs/1/payment",
		`{"total_received":"500","parking_spent":"20","parking_reimbursed":"40","other_reimbursed":"40"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Gigs          []gigView       `json:"gigs"`
		TaxableIncome decimal.Decimal `json:"taxable_income"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.TaxableIncome.Equal(decimal.RequireFromString("420")))
	require.Len(t, resp.Gigs, 1)
	assert.Equal(t, string(core.StatusCompleted), resp.Gigs[0].Status)

	g, err := store.GetGig(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, g.Status)
}

func TestPaymentValidationAndNotFound(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Wedding", Date: core.NewDate(2026, 5, 2), Status: core.StatusUpcoming,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/gigs/1/payment", `{"total_received":"-5"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/gigs/999/payment", `{"total_received":"5"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/gigs/1/payment", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDateRangeEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Festival", Date: core.NewDate(2026, 7, 10), Status: core.StatusUpcoming,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPut, "/api/gigs/1/dates",
		`{"start_date":"2026-08-01","end_date":"2026-08-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Gigs []gigView `json:"gigs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Gigs, 3)
	assert.Equal(t, "2026-08-01", resp.Gigs[0].Date)

	rec = doJSON(t, srv, http.MethodPut, "/api/gigs/2/dates",
		`{"start_date":"2026-08-03","end_date":"2026-08-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	total := decimal.RequireFromString("250")
	_, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Wedding", Date: core.NewDate(2026, 7, 5),
		ActualPay: total, TotalReceived: &total, Status: core.StatusCompleted,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard?period=monthly&year=2026&month=7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view aggregateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "monthly:2026-07", view.Period)
	assert.True(t, view.GrossIncome.Equal(total))
	assert.Equal(t, 1, view.CompletedGigs)

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard?period=quarterly&year=2026&quarter=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "quarterly:2026-q3", view.Period)

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard?period=hourly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Festival", Date: core.NewDate(2026, 7, 10), Status: core.StatusUpcoming,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/calendar?year=2026&month=7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Groups  []groupView   `json:"groups"`
		Summary aggregateView `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, 1, resp.Summary.TotalGigs)

	// Outside the booked month the calendar is empty.
	rec = doJSON(t, srv, http.MethodGet, "/api/calendar?year=2026&month=8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Groups)
}

func TestReportEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	total := decimal.RequireFromString("500")
	_, err := store.CreateGig(context.Background(), core.GigRecord{
		UserID: 1, EventName: "Wedding", Date: core.NewDate(2026, 7, 5),
		ActualPay: total, TotalReceived: &total,
		ParkingExpense: decimal.RequireFromString("20"),
		Status:         core.StatusCompleted,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/report?period=annual&year=2026", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Summary  aggregateView `json:"summary"`
		Expenses []expenseView `json:"expenses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "annual:2026", resp.Summary.Period)
	require.Len(t, resp.Expenses, 1)
	assert.Equal(t, core.CategoryWorkTravel, resp.Expenses[0].Category)
}

func TestDeleteGroupEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	for day := 10; day <= 11; day++ {
		_, err := store.CreateGig(context.Background(), core.GigRecord{
			UserID: 1, EventName: "Festival", Date: core.NewDate(2026, 7, day), Status: core.StatusUpcoming,
		})
		require.NoError(t, err)
	}

	rec := doJSON(t, srv, http.MethodDelete, "/api/gigs/1/group", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/gigs", "")
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Total)
}

func TestExpenseEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses",
		`{"date":"2026-07-08","amount":"45.50","merchant":"Music shop","purpose":"strings"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var saved expenseView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.NotZero(t, saved.ID)

	rec = doJSON(t, srv, http.MethodDelete, "/api/expenses/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
