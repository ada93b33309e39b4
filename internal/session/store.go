package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/interfaces"
	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/pkg/metrics"
)

// Store owns the live sessions, keyed by a random UUID.
type Store struct {
	provider interfaces.WeatherProvider
	cfg      Config
	logger   *zerolog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(provider interfaces.WeatherProvider, cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Store {
	if m == nil {
		m = metrics.New()
	}
	return &Store{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

func (st *Store) Create() *Session {
	sess := newSession(uuid.NewString(), st.provider, st.cfg, st.logger, st.metrics)

	st.mu.Lock()
	st.sessions[sess.id] = sess
	count := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetGauge("active_sessions", float64(count))
	st.logger.Debug().Str("session_id", sess.id).Msg("Session created")

	return sess
}

// Get returns the session or models.ErrSessionNotFound. Ids that are not
// UUIDs are never found.
func (st *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrSessionNotFound
	}

	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess, nil
}

// Delete closes and forgets a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	count := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return models.ErrSessionNotFound
	}

	sess.Close()
	st.metrics.SetGauge("active_sessions", float64(count))
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and returns
// how many were removed.
func (st *Store) Sweep(now time.Time) int {
	if st.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-st.cfg.IdleTTL)

	var expired []*Session
	st.mu.Lock()
	for id, sess := range st.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}

	if len(expired) > 0 {
		st.metrics.SetGauge("active_sessions", float64(count))
		st.logger.Info().Int("expired", len(expired)).Int("active", count).Msg("Swept idle sessions")
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}

// CloseAll closes every session.
func (st *Store) CloseAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	st.metrics.SetGauge("active_sessions", 0)
}
