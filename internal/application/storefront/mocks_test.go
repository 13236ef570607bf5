package storefront

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared/valueobject"
	"github.com/erp/storefront/internal/domain/trade"
)

// MockSearcher is a mock implementation of catalog.Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchCatalog(ctx context.Context, id identity.Identity, query string, limit int) ([]valueobject.Fields, error) {
	args := m.Called(ctx, id, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobject.Fields), args.Error(1)
}

// MockCartStore is a mock implementation of trade.CartStore
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) FetchCart(ctx context.Context, id identity.Identity) (trade.RawCart, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(trade.RawCart), args.Error(1)
}

func (m *MockCartStore) AddItem(ctx context.Context, id identity.Identity, addition trade.CartAddition) error {
	args := m.Called(ctx, id, addition)
	return args.Error(0)
}

func (m *MockCartStore) RemoveItem(ctx context.Context, id identity.Identity, itemID string) error {
	args := m.Called(ctx, id, itemID)
	return args.Error(0)
}

// MockOrderStore is a mock implementation of trade.OrderStore
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) FetchOrders(ctx context.Context, id identity.Identity) ([]valueobject.Fields, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobject.Fields), args.Error(1)
}

func (m *MockOrderStore) PlaceOrder(ctx context.Context, id identity.Identity) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// recordingRecorder captures metric observations.
type recordingRecorder struct {
	mu           sync.Mutex
	degradations map[string][]string
	mutations    []string
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{degradations: make(map[string][]string)}
}

func (r *recordingRecorder) ObserveDegradation(operation string, codes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degradations[operation] = append(r.degradations[operation], codes...)
}

func (r *recordingRecorder) ObserveMutation(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, operation+":"+outcome)
}

func (r *recordingRecorder) Mutations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.mutations...)
}

func (r *recordingRecorder) Degradations(operation string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.degradations[operation]...)
}

// fakeClock drives AfterFunc timers by hand.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs due timers in deadline order on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// Scheduled returns the number of timers created so far.
func (c *fakeClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

var testIdentity = identity.New("token-abc", "42")

func widgetCatalog() []valueobject.Fields {
	return []valueobject.Fields{
		{"item_id": 7, "description": "Widget", "price": "10.50", "image": "widget.png"},
		{"item_id": 9, "description": "Gadget", "price": 3},
	}
}
