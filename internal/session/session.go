// Package session holds the per-browser UI state of WeatherNow: the query,
// the debounced suggestion list, the selected place's forecast and the
// display unit. All mutations of one session are serialized by its mutex.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/debounce"
	"github.com/valpere/weathernow/internal/interfaces"
	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/pkg/metrics"
)

// Config controls the search flow of every session in a Store.
type Config struct {
	Debounce       time.Duration
	MinQueryLength int
	IdleTTL        time.Duration
}

// State is an immutable snapshot of a session.
type State struct {
	Query          string
	Suggestions    []models.Suggestion
	SuggestionsErr error
	Weather        *models.WeatherReport
	Loading        bool
	WeatherErr     error
	Unit           models.Unit
	Version        uint64
}

type Session struct {
	id       string
	provider interfaces.WeatherProvider
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	debouncer *debounce.Debouncer

	mu            sync.Mutex
	state         State
	querySeq      uint64
	weatherSeq    uint64
	cancelSearch  context.CancelFunc
	cancelWeather context.CancelFunc
	changed       chan struct{}
	lastActive    time.Time
	closed        bool
}

func newSession(id string, provider interfaces.WeatherProvider, cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         id,
		provider:   provider,
		cfg:        cfg,
		logger:     logger.With().Str("session_id", id).Logger(),
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
		debouncer:  debounce.New(cfg.Debounce),
		state:      State{Unit: models.Celsius},
		changed:    make(chan struct{}),
		lastActive: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// SetQuery records new search text. Queries shorter than the configured
// minimum cancel any pending search and clear the suggestions; longer ones
// (re)schedule a search after the debounce interval.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastActive = time.Now()

	s.state.Query = query
	s.querySeq++
	seq := s.querySeq

	if utf8.RuneCountInString(query) < s.cfg.MinQueryLength {
		if s.debouncer.Cancel() {
			s.metrics.IncrementCounter("suggestion_requests_coalesced_total")
		}
		s.stopSearchLocked()
		s.state.Suggestions = nil
		s.state.SuggestionsErr = nil
		s.notifyLocked()
		return
	}

	if s.debouncer.Trigger(func() { s.search(seq, query) }) {
		s.metrics.IncrementCounter("suggestion_requests_coalesced_total")
	}
	s.notifyLocked()
}

// search runs once the query has been quiet for the debounce interval.
func (s *Session) search(seq uint64, query string) {
	s.mu.Lock()
	if s.closed || seq != s.querySeq {
		s.mu.Unlock()
		return
	}
	s.stopSearchLocked()
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelSearch = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer cancel()

	results, err := s.provider.SearchLocations(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.querySeq {
		s.metrics.IncrementCounter("stale_results_discarded_total", "suggestions")
		return
	}
	s.cancelSearch = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn().Err(err).Str("query", query).Msg("Suggestion fetch failed")
		s.state.SuggestionsErr = err
		s.notifyLocked()
		return
	}

	if results == nil {
		results = []models.Suggestion{}
	}
	s.state.Suggestions = results
	s.state.SuggestionsErr = nil
	s.notifyLocked()
}

// Select picks a suggestion from the current list by id and starts the
// weather fetch for it.
func (s *Session) Select(id int64) error {
	s.mu.Lock()
	var found *models.Suggestion
	for i := range s.state.Suggestions {
		if s.state.Suggestions[i].ID == id {
			sugg := s.state.Suggestions[i]
			found = &sugg
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return models.ErrSuggestionNotFound
	}

	return s.SelectLocation(found.Name, models.Coordinates{
		Latitude:  found.Latitude,
		Longitude: found.Longitude,
	})
}

// SelectLocation clears the suggestions, sets the query to name, drops the
// current report and fetches a new one. Only the latest selection may
// publish its result.
func (s *Session) SelectLocation(name string, coords models.Coordinates) error {
	if err := coords.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.ErrSessionNotFound
	}
	s.lastActive = time.Now()

	// selecting must not reopen the dropdown
	s.debouncer.Cancel()
	s.querySeq++
	s.stopSearchLocked()

	s.state.Query = name
	s.state.Suggestions = nil
	s.state.SuggestionsErr = nil

	if s.cancelWeather != nil {
		s.cancelWeather()
	}
	s.weatherSeq++
	seq := s.weatherSeq
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelWeather = cancel

	s.state.Loading = true
	s.state.Weather = nil
	s.state.WeatherErr = nil
	s.notifyLocked()

	s.wg.Add(1)
	go s.fetchWeather(ctx, cancel, seq, coords, name)

	return nil
}

func (s *Session) fetchWeather(ctx context.Context, cancel context.CancelFunc, seq uint64, coords models.Coordinates, name string) {
	defer s.wg.Done()
	defer cancel()

	report, err := s.provider.GetForecast(ctx, coords.Latitude, coords.Longitude, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.weatherSeq {
		s.metrics.IncrementCounter("stale_results_discarded_total", "weather")
		return
	}
	s.cancelWeather = nil
	s.state.Loading = false

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("city", name).
			Float64("lat", coords.Latitude).
			Float64("lon", coords.Longitude).
			Msg("Weather fetch failed")
		s.state.Weather = nil
		s.state.WeatherErr = err
		s.notifyLocked()
		return
	}

	s.state.Weather = report
	s.state.WeatherErr = nil
	s.notifyLocked()
}

func (s *Session) SetUnit(unit models.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if s.state.Unit == unit {
		return
	}
	s.state.Unit = unit
	s.notifyLocked()
}

// ToggleUnit flips between Celsius and Fahrenheit and returns the new unit.
func (s *Session) ToggleUnit() models.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	s.state.Unit = s.state.Unit.Toggle()
	s.notifyLocked()
	return s.state.Unit
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch returns the current state together with a channel that is closed on
// the next change.
func (s *Session) Watch() (State, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return s.snapshotLocked(), s.changed
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close cancels the pending search and every in-flight fetch, then waits
// for the fetch goroutines to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.debouncer.Cancel()
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if s.state.Suggestions != nil {
		st.Suggestions = make([]models.Suggestion, len(s.state.Suggestions))
		copy(st.Suggestions, s.state.Suggestions)
	}
	return st
}

func (s *Session) stopSearchLocked() {
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
}

func (s *Session) notifyLocked() {
	s.state.Version++
	close(s.changed)
	s.changed = make(chan struct{})
}
