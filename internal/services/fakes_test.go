package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

// In-memory fakes for the store and publisher ports. The gig store is
// mutex-guarded because group updates fan out concurrently.

type fakeGigStore struct {
	mu         sync.Mutex
	nextID     int64
	gigs       map[int64]core.GigRecord
	failUpdate map[int64]error
	failDelete map[int64]error
	// failCreateAfter fails every CreateGig once this many have succeeded.
	// Negative means never fail.
	failCreateAfter int
	creates         int
}

func newFakeGigStore() *fakeGigStore {
	return &fakeGigStore{
		gigs:            make(map[int64]core.GigRecord),
		failUpdate:      make(map[int64]error),
		failDelete:      make(map[int64]error),
		failCreateAfter: -1,
	}
}

func (f *fakeGigStore) seed(records ...core.GigRecord) []core.GigRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.GigRecord, len(records))
	for i, r := range records {
		f.nextID++
		r.ID = f.nextID
		f.gigs[r.ID] = r
		out[i] = r
	}
	return out
}

func (f *fakeGigStore) GetGig(_ context.Context, id int64) (core.GigRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gigs[id]
	if !ok {
		return core.GigRecord{}, core.ErrNotFound
	}
	return g, nil
}

func (f *fakeGigStore) userGigs(userID int64) []core.GigRecord {
	var out []core.GigRecord
	for _, g := range f.gigs {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeGigStore) GetGigsByUser(_ context.Context, userID int64, limit, offset int) ([]core.GigRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.userGigs(userID)
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

func (f *fakeGigStore) GetGigsByDateRange(_ context.Context, userID int64, start, end time.Time) ([]core.GigRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.GigRecord
	for _, g := range f.userGigs(userID) {
		if !g.Date.Before(start) && g.Date.Before(end) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGigStore) GetGigsByGroupID(_ context.Context, userID int64, groupID string) ([]core.GigRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.GigRecord
	for _, g := range f.userGigs(userID) {
		if g.MultiDayGroupID == groupID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGigStore) GetOpenGigs(_ context.Context, userID int64) ([]core.GigRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.GigRecord
	for _, g := range f.userGigs(userID) {
		if g.Status != core.StatusCompleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGigStore) CreateGig(_ context.Context, g core.GigRecord) (core.GigRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateAfter >= 0 && f.creates >= f.failCreateAfter {
		return core.GigRecord{}, errors.New("create failed")
	}
	f.creates++
	f.nextID++
	g.ID = f.nextID
	f.gigs[g.ID] = g
	return g, nil
}

func (f *fakeGigStore) UpdateGig(_ context.Context, g core.GigRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUpdate[g.ID]; ok {
		return err
	}
	if _, ok := f.gigs[g.ID]; !ok {
		return core.ErrNotFound
	}
	f.gigs[g.ID] = g
	return nil
}

func (f *fakeGigStore) DeleteGig(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failDelete[id]; ok {
		return err
	}
	if _, ok := f.gigs[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.gigs, id)
	return nil
}

type fakeExpenseStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]core.ExpenseRecord
	failAll  error
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{expenses: make(map[int64]core.ExpenseRecord)}
}

func (f *fakeExpenseStore) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return core.ExpenseRecord{}, f.failAll
	}
	f.nextID++
	e.ID = f.nextID
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeExpenseStore) GetExpensesByDateRange(_ context.Context, userID int64, start, end time.Time) ([]core.ExpenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ExpenseRecord
	for _, e := range f.expenses {
		if e.UserID == userID && !e.Date.Before(start) && e.Date.Before(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeExpenseStore) DeleteExpense(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

type fakeSettingsStore struct {
	rates map[int64]decimal.Decimal
}

func (f *fakeSettingsStore) DefaultTaxPercentage(_ context.Context, userID int64) (decimal.Decimal, bool, error) {
	rate, ok := f.rates[userID]
	return rate, ok, nil
}

type publishedCompletion struct {
	UserID             int64
	GigIDs             []int64
	TaxableIncomeCents int64
	Year               int
}

type fakePublisher struct {
	mu         sync.Mutex
	completed  []publishedCompletion
	syncs      int
	publishErr error
}

func (f *fakePublisher) PublishGigCompleted(_ context.Context, userID int64, gigIDs []int64, taxableIncomeCents int64, year int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.completed = append(f.completed, publishedCompletion{
		UserID:             userID,
		GigIDs:             gigIDs,
		TaxableIncomeCents: taxableIncomeCents,
		Year:               year,
	})
	return nil
}

func (f *fakePublisher) PublishReportSync(_ context.Context, _ int64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.syncs++
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
