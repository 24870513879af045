package editor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions(testConfig(), nil, nil, zerolog.Nop(), time.Minute)

	f := s.Create()
	got, err := s.Get(f.ID())
	if err != nil || got != f {
		t.Fatalf("expected created form, got %v %v", got, err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}

	if err := s.Discard(f.ID()); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := s.Get(f.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := s.Discard(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessions_Reap(t *testing.T) {
	clock := newFakeClock(testNow)
	s := NewSessions(testConfig(), nil, nil, zerolog.Nop(), time.Minute, WithClock(clock))
	now := testNow
	s.now = func() time.Time { return now }

	idle := s.Create()
	_ = idle.AddProvider(*option("Dr. Adams"))
	_ = idle.AddProvider(*option("Dr. Brown"))

	now = now.Add(50 * time.Second)
	active := s.Create()

	if n := s.Reap(testNow.Add(90 * time.Second)); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, err := s.Get(idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatal("idle session should be gone")
	}
	if _, err := s.Get(active.ID()); err != nil {
		t.Fatalf("active session should survive: %v", err)
	}
	if n := clock.Pending(); n != 0 {
		t.Fatalf("reaped form should stop its timer, %d pending", n)
	}
}

func TestSessions_FormsShareConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAppointmentProviders = 2
	s := NewSessions(cfg, nil, nil, zerolog.Nop(), 0)

	f := s.Create()
	if f.Config().MaxAppointmentProviders != 2 {
		t.Fatal("form should carry the registry config")
	}
	if s.Reap(time.Now().Add(24*time.Hour)) != 0 {
		t.Fatal("zero ttl disables reaping")
	}
}
