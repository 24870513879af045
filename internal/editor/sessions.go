package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/config"
)

type session struct {
	form     *Form
	lastSeen time.Time
}

// Sessions keeps the open editors of a server process.
type Sessions struct {
	cfg      config.EditorConfig
	searcher Searcher
	saver    Saver
	log      zerolog.Logger
	ttl      time.Duration
	now      func() time.Time
	opts     []FormOption

	mu    sync.Mutex
	items map[uuid.UUID]*session
}

// NewSessions returns an empty registry. opts are applied to every form it creates.
func NewSessions(cfg config.EditorConfig, searcher Searcher, saver Saver, logger zerolog.Logger, ttl time.Duration, opts ...FormOption) *Sessions {
	return &Sessions{
		cfg:      cfg.WithDefaults(),
		searcher: searcher,
		saver:    saver,
		log:      logger,
		ttl:      ttl,
		now:      time.Now,
		opts:     opts,
		items:    make(map[uuid.UUID]*session),
	}
}

// Create opens a new editor with a fresh session id.
func (s *Sessions) Create() *Form {
	id := uuid.New()
	opts := append([]FormOption{WithLogger(s.log)}, s.opts...)
	f := NewForm(id, s.cfg, s.searcher, s.saver, opts...)

	s.mu.Lock()
	s.items[id] = &session{form: f, lastSeen: s.now()}
	s.mu.Unlock()

	s.log.Debug().Str("session_id", id.String()).Msg("editor session opened")
	return f
}

// Config is the configuration every form of the registry shares.
func (s *Sessions) Config() config.EditorConfig { return s.cfg }

func (s *Sessions) Get(id uuid.UUID) (*Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	it.lastSeen = s.now()
	return it.form, nil
}

func (s *Sessions) Discard(id uuid.UUID) error {
	s.mu.Lock()
	it, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	it.form.Close()
	return nil
}

// Reap discards sessions idle for longer than the ttl and returns how many went.
func (s *Sessions) Reap(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	var stale []*Form
	s.mu.Lock()
	for id, it := range s.items {
		if now.Sub(it.lastSeen) > s.ttl {
			stale = append(stale, it.form)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, f := range stale {
		f.Close()
	}
	return len(stale)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
