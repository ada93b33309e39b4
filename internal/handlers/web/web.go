// Package web serves the WeatherNow page, the per-session JSON API and the
// server-sent event stream that pushes every state change to the browser.
package web

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/config"
	"github.com/valpere/weathernow/internal/interfaces"
	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/internal/session"
	"github.com/valpere/weathernow/internal/view"
)

// SessionCookie names the cookie that binds a browser to its session.
const SessionCookie = "weathernow_session"

//go:embed templates/index.html
var indexHTML string

type WebHandler struct {
	sessions *session.Store
	provider interfaces.WeatherProvider
	search   config.SearchConfig
	logger   *zerolog.Logger
}

func New(sessions *session.Store, provider interfaces.WeatherProvider, search config.SearchConfig, logger *zerolog.Logger) *WebHandler {
	return &WebHandler{
		sessions: sessions,
		provider: provider,
		search:   search,
		logger:   logger,
	}
}

// Register mounts the page and the API on router.
func (h *WebHandler) Register(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.New("index.html").Parse(indexHTML)))

	router.GET("/", h.Index)

	api := router.Group("/api")
	api.GET("/geocode", h.Geocode)
	api.GET("/forecast", h.Forecast)

	sessions := api.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.PUT("/:id/query", h.SetQuery)
	sessions.POST("/:id/select", h.Select)
	sessions.PUT("/:id/unit", h.SetUnit)
	sessions.POST("/:id/unit/toggle", h.ToggleUnit)
	sessions.GET("/:id/events", h.Events)
}

// Index renders the page, reusing the session named by the cookie when it
// is still alive.
func (h *WebHandler) Index(c *gin.Context) {
	var sess *session.Session
	if id, err := c.Cookie(SessionCookie); err == nil {
		sess, _ = h.sessions.Get(id)
	}
	if sess == nil {
		sess = h.sessions.Create()
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.ID(), 0, "/", "", false, true)
	c.HTML(http.StatusOK, "index.html", gin.H{"SessionID": sess.ID()})
}

func (h *WebHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"id":    sess.ID(),
		"state": h.render(sess),
	})
}

func (h *WebHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.render(sess))
}

func (h *WebHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *WebHandler) SetQuery(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	sess.SetQuery(req.Query)
	c.JSON(http.StatusAccepted, h.render(sess))
}

// selectRequest picks either a listed suggestion by id or an explicit point.
type selectRequest struct {
	ID        *int64   `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name"`
}

func (h *WebHandler) Select(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var err error
	switch {
	case req.ID != nil:
		err = sess.Select(*req.ID)
	case req.Latitude != nil && req.Longitude != nil:
		err = sess.SelectLocation(req.Name, models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
	default:
		h.badRequest(c, errors.New("either id or latitude and longitude are required"))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, h.render(sess))
}

type unitRequest struct {
	Unit string `json:"unit" binding:"required"`
}

func (h *WebHandler) SetUnit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	unit, err := models.ParseUnit(req.Unit)
	if err != nil {
		h.fail(c, err)
		return
	}

	sess.SetUnit(unit)
	c.JSON(http.StatusOK, h.render(sess))
}

func (h *WebHandler) ToggleUnit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.ToggleUnit()
	c.JSON(http.StatusOK, h.render(sess))
}

// Events streams a "state" event now and after every change until the
// client goes away or the session is closed.
func (h *WebHandler) Events(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	state, changed := sess.Watch()
	c.SSEvent("state", view.Build(sess.ID(), state, h.search.HourlyLimit))
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case <-changed:
			state, changed = sess.Watch()
			c.SSEvent("state", view.Build(sess.ID(), state, h.search.HourlyLimit))
			c.Writer.Flush()
		}
	}
}

// Geocode is a stateless pass-through of the suggestion fetch.
func (h *WebHandler) Geocode(c *gin.Context) {
	name := c.Query("name")
	if utf8.RuneCountInString(name) < h.search.MinQueryLength {
		h.fail(c, models.ErrQueryTooShort)
		return
	}

	results, err := h.provider.SearchLocations(c.Request.Context(), name)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": view.Suggestions(name, results)})
}

// Forecast is a stateless pass-through of the weather fetch. The optional
// unit parameter selects the display unit of the rendered view.
func (h *WebHandler) Forecast(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		h.badRequest(c, errors.New("invalid latitude"))
		return
	}
	lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		h.badRequest(c, errors.New("invalid longitude"))
		return
	}
	if err := (models.Coordinates{Latitude: lat, Longitude: lon}).Validate(); err != nil {
		h.fail(c, err)
		return
	}

	unit := models.Celsius
	if raw := c.Query("unit"); raw != "" {
		if unit, err = models.ParseUnit(raw); err != nil {
			h.fail(c, err)
			return
		}
	}

	report, err := h.provider.GetForecast(c.Request.Context(), lat, lon, c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"view":   view.Weather(report, unit, h.search.HourlyLimit),
	})
}

func (h *WebHandler) session(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return sess, true
}

func (h *WebHandler) render(sess *session.Session) view.SessionView {
	return view.Build(sess.ID(), sess.Snapshot(), h.search.HourlyLimit)
}

func (h *WebHandler) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps domain errors to 400/404; anything else came from upstream.
func (h *WebHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Upstream request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrSuggestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrQueryTooShort),
		errors.Is(err, models.ErrInvalidCoordinates),
		errors.Is(err, models.ErrInvalidUnit):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
