package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/appointment"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// Pending counts timers that are neither stopped nor fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type searchCall struct {
	kind  appointment.SearchKind
	query string
	scope appointment.SearchScope
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []searchCall
	results map[appointment.SearchKind][]appointment.Option
	err     error

	// wait blocks a query until its channel is closed.
	wait    map[string]chan struct{}
	entered chan string
}

func (s *fakeSearcher) Search(ctx context.Context, kind appointment.SearchKind, query string, scope appointment.SearchScope) ([]appointment.Option, error) {
	s.mu.Lock()
	s.calls = append(s.calls, searchCall{kind: kind, query: query, scope: scope})
	gate := s.wait[query]
	res := s.results[kind]
	err := s.err
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- query
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res, err
}

func (s *fakeSearcher) Calls() []searchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]searchCall(nil), s.calls...)
}

type fakeSaver struct {
	mu        sync.Mutex
	single    []appointment.AppointmentPayload
	recurring []appointment.RecurringPayload
	err       error
}

func (s *fakeSaver) SaveAppointment(ctx context.Context, p appointment.AppointmentPayload) (*appointment.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.single = append(s.single, p)
	if s.err != nil {
		return nil, s.err
	}
	return &appointment.SaveResult{AppointmentIDs: []uuid.UUID{uuid.New()}}, nil
}

func (s *fakeSaver) SaveRecurring(ctx context.Context, p appointment.RecurringPayload) (*appointment.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring = append(s.recurring, p)
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]uuid.UUID, len(p.Dates))
	for i := range ids {
		ids[i] = uuid.New()
	}
	series := uuid.New()
	return &appointment.SaveResult{AppointmentIDs: ids, SeriesID: &series}, nil
}

func (s *fakeSaver) counts() (single, recurring int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.single), len(s.recurring)
}
