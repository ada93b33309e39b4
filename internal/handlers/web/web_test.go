package web

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/internal/session"
	"github.com/valpere/weathernow/internal/view"
	"github.com/valpere/weathernow/pkg/metrics"
	"github.com/valpere/weathernow/tests/fixtures"
	"github.com/valpere/weathernow/tests/helpers"
	"github.com/valpere/weathernow/tests/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	store    *session.Store
	provider *mocks.MockWeatherProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockWeatherProvider(ctrl)
	cfg := helpers.GetTestConfig()
	logger := helpers.NewSilentTestLogger()

	store := session.NewStore(provider, session.Config{
		Debounce:       cfg.Search.Debounce,
		MinQueryLength: cfg.Search.MinQueryLength,
		IdleTTL:        cfg.Session.IdleTTL,
	}, logger, metrics.New())
	t.Cleanup(store.CloseAll)

	router := gin.New()
	New(store, provider, cfg.Search, logger).Register(router)

	return &testEnv{router: router, store: store, provider: provider}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func (e *testEnv) state(t *testing.T, id string) view.SessionView {
	t.Helper()
	w := e.do(http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var v view.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (e *testEnv) waitState(t *testing.T, id string, cond func(view.SessionView) bool) view.SessionView {
	t.Helper()
	var last view.SessionView
	require.Eventually(t, func() bool {
		last = e.state(t, id)
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WeatherNow")
	assert.Contains(t, w.Body.String(), "Search city...")
	require.Equal(t, 1, env.store.Len())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Contains(t, w.Body.String(), cookies[0].Value)

	t.Run("reuses a live session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, env.store.Len())
		assert.Contains(t, w.Body.String(), cookies[0].Value)
	})

	t.Run("replaces an unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, env.store.Len())
	})
}

func TestCreateAndGetSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID    string           `json:"id"`
		State view.SessionView `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, resp.ID, resp.State.ID)
	assert.Equal(t, models.Celsius, resp.State.Unit)
	assert.Empty(t, resp.State.Suggestions)
	assert.Nil(t, resp.State.Weather)

	v := env.state(t, resp.ID)
	assert.Equal(t, resp.ID, v.ID)
}

func TestGetSession_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"not-a-uuid", "5b1f3c2e-8a7d-4e56-9b0a-1c2d3e4f5a6b"} {
		w := env.do(http.MethodGet, "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, models.ErrSessionNotFound.Error(), decodeError(t, w))
	}
}

func TestSetQuery(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	env.provider.EXPECT().
		SearchLocations(gomock.Any(), "London").
		Return(fixtures.GetMockSuggestions(), nil)

	w := env.do(http.MethodPut, "/api/sessions/"+id+"/query", map[string]string{"query": "London"})
	require.Equal(t, http.StatusAccepted, w.Code)

	v := env.waitState(t, id, func(v view.SessionView) bool { return len(v.Suggestions) == 3 })
	assert.Equal(t, "London", v.Query)
	assert.Equal(t, "London, United Kingdom", v.Suggestions[0].Label)
	assert.Equal(t, float32(1), v.Suggestions[0].Match)
}

func TestSetQuery_SuggestionError(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	env.provider.EXPECT().
		SearchLocations(gomock.Any(), "Paris").
		Return(nil, errors.New("failed to search locations: boom"))

	env.do(http.MethodPut, "/api/sessions/"+id+"/query", map[string]string{"query": "Paris"})

	v := env.waitState(t, id, func(v view.SessionView) bool { return v.SuggestionsError != "" })
	assert.Contains(t, v.SuggestionsError, "boom")
}

func TestSetQuery_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	w := env.do(http.MethodPut, "/api/sessions/"+id+"/query", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelect(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	env.provider.EXPECT().
		SearchLocations(gomock.Any(), "London").
		Return(fixtures.GetMockSuggestions(), nil)
	env.do(http.MethodPut, "/api/sessions/"+id+"/query", map[string]string{"query": "London"})
	env.waitState(t, id, func(v view.SessionView) bool { return len(v.Suggestions) == 3 })

	report := fixtures.GetMockForecastReport("London")
	env.provider.EXPECT().
		GetForecast(gomock.Any(), 42.98339, -81.23304, "London").
		Return(&report, nil)

	w := env.do(http.MethodPost, "/api/sessions/"+id+"/select", map[string]int64{"id": 6058560})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted view.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Empty(t, accepted.Suggestions)
	assert.Equal(t, "London", accepted.Query)

	v := env.waitState(t, id, func(v view.SessionView) bool { return v.Weather != nil })
	assert.False(t, v.Loading)
	assert.Len(t, v.Weather.Hourly, 12)
	assert.Len(t, v.Weather.Daily, 7)
	assert.Equal(t, "12.3°C", v.Weather.Current.Temperature)
}

func TestSelect_Coordinates(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	env.provider.EXPECT().
		GetForecast(gomock.Any(), 48.85341, 2.3488, "Paris").
		Return(nil, errors.New("failed to get forecast data: timeout"))

	w := env.do(http.MethodPost, "/api/sessions/"+id+"/select", map[string]any{
		"latitude": 48.85341, "longitude": 2.3488, "name": "Paris",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	v := env.waitState(t, id, func(v view.SessionView) bool { return v.Error != "" })
	assert.False(t, v.Loading)
	assert.Nil(t, v.Weather)
	assert.Contains(t, v.Error, "timeout")
}

func TestSelect_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "unknown suggestion", body: map[string]int64{"id": 42}, status: http.StatusNotFound},
		{name: "invalid coordinates", body: map[string]any{"latitude": 91.0, "longitude": 0.0, "name": "X"}, status: http.StatusBadRequest},
		{name: "missing target", body: map[string]string{"name": "X"}, status: http.StatusBadRequest},
		{name: "malformed body", body: "[", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/sessions/"+id+"/select", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestUnit(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	w := env.do(http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{"unit": "F"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Fahrenheit, env.state(t, id).Unit)

	w = env.do(http.MethodPost, "/api/sessions/"+id+"/unit/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Celsius, env.state(t, id).Unit)

	w = env.do(http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{"unit": "K"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "invalid unit")

	w = env.do(http.MethodPut, "/api/sessions/"+id+"/unit", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	w := env.do(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.store.Len())

	w = env.do(http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGeocode(t *testing.T) {
	env := newTestEnv(t)

	t.Run("returns labelled results", func(t *testing.T) {
		env.provider.EXPECT().
			SearchLocations(gomock.Any(), "London").
			Return(fixtures.GetMockSuggestions(), nil)

		w := env.do(http.MethodGet, "/api/geocode?name=London", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Results []view.SuggestionView `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 3)
		assert.Equal(t, "London, Canada", resp.Results[1].Label)
	})

	t.Run("short query is rejected without a request", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/geocode?name=L", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env.provider.EXPECT().
			SearchLocations(gomock.Any(), "Berlin").
			Return(nil, errors.New("failed to search locations: API request failed with status: 503"))

		w := env.do(http.MethodGet, "/api/geocode?name=Berlin", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, decodeError(t, w), "503")
	})
}

func TestForecast(t *testing.T) {
	env := newTestEnv(t)

	t.Run("renders report and view", func(t *testing.T) {
		report := fixtures.GetMockForecastReport("London")
		env.provider.EXPECT().
			GetForecast(gomock.Any(), 51.5, -0.12, "London").
			Return(&report, nil)

		w := env.do(http.MethodGet, "/api/forecast?latitude=51.5&longitude=-0.12&name=London&unit=F", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Report models.WeatherReport `json:"report"`
			View   view.WeatherView     `json:"view"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "London", resp.Report.City)
		assert.Equal(t, 12.3, resp.Report.CurrentWeather.Temperature)
		assert.Equal(t, "54°F", resp.View.Current.Temperature)
		assert.Len(t, resp.View.Hourly, 12)
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, q := range []string{"latitude=x&longitude=1", "latitude=1", "latitude=1&longitude=2&unit=K"} {
			w := env.do(http.MethodGet, "/api/forecast?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		// no provider call is expected for any of these
		for _, q := range []string{
			"latitude=100&longitude=0",
			"latitude=0&longitude=-181",
			"latitude=NaN&longitude=NaN",
			"latitude=0&longitude=Inf",
		} {
			w := env.do(http.MethodGet, "/api/forecast?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
			assert.Contains(t, w.Body.String(), "invalid coordinates", q)
		}
	})
}

func readEvent(t *testing.T, r *bufio.Reader) view.SessionView {
	t.Helper()

	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if data != "" {
				break
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	require.Equal(t, "state", event)
	var v view.SessionView
	require.NoError(t, json.Unmarshal([]byte(data), &v))
	return v
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	server := httptest.NewServer(env.router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/sessions/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Equal(t, id, first.ID)
	assert.Equal(t, models.Celsius, first.Unit)

	env.do(http.MethodPost, "/api/sessions/"+id+"/unit/toggle", nil)

	second := readEvent(t, reader)
	assert.Equal(t, models.Fahrenheit, second.Unit)
	assert.Greater(t, second.Version, first.Version)

	// closing the session ends the stream
	env.do(http.MethodDelete, "/api/sessions/"+id, nil)
	done := make(chan struct{})
	go func() {
		_, _ = reader.ReadString(0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end after the session was closed")
	}
}

func TestEvents_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/sessions/not-a-uuid/events", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
