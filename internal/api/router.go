package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/BharatPulse/internal/location"
	"github.com/LJTian/BharatPulse/internal/presenter"
	"github.com/LJTian/BharatPulse/internal/processor"
	"github.com/LJTian/BharatPulse/internal/storage"
	"github.com/LJTian/BharatPulse/internal/weather"
)

type Headlines interface {
	Headlines(ctx context.Context, f processor.Filter) ([]processor.Headline, error)
	Sources(ctx context.Context) ([]processor.Source, error)
}

type WeatherService interface {
	Current(ctx context.Context, city string) (*weather.Report, error)
}

type Locator interface {
	Detect(ctx context.Context) (location.Location, error)
}

// Refresher 清空所有缓存并重置翻译模型
type Refresher interface {
	ClearAll(ctx context.Context)
}

// Store 订阅源状态、关注城市与快照；未配置数据库时为 nil
type Store interface {
	SetSourceStatus(ctx context.Context, name, status string) error
	ListWeatherCities(ctx context.Context) ([]storage.WeatherCity, error)
	AddWeatherCity(ctx context.Context, city string) error
	RemoveWeatherCity(ctx context.Context, city string) error
	GetWeatherSnapshot(ctx context.Context, city string) (*storage.Snapshot, bool)
	ListWeatherSnapshots(ctx context.Context) ([]storage.Snapshot, error)
}

type Deps struct {
	Headlines Headlines
	Weather   WeatherService
	Location  Locator
	Refresher Refresher
	Store     Store
}

type Server struct {
	headlines Headlines
	weather   WeatherService
	location  Locator
	refresher Refresher
	store     Store
}

func NewServer(d Deps) *Server {
	return &Server{
		headlines: d.Headlines,
		weather:   d.Weather,
		location:  d.Location,
		refresher: d.Refresher,
		store:     d.Store,
	}
}

const (
	noticeWeatherNotConfigured = "దయచేసి OpenWeatherMap API కీని కాన్ఫిగర్ చేయండి. (Please configure your OpenWeatherMap API key. Weather data is not available.)"
	noticeWeatherUnavailable   = "వాతావరణ డేటా అందుబాటులో లేదు. (Weather data not available.)"
	noticeWeatherStale         = "తాజా వాతావరణ డేటా అందుబాటులో లేదు, చివరిగా సేకరించిన డేటా చూపుతున్నాము. (Live weather unavailable, showing the last saved snapshot.)"
	noticeLocationDefault      = "స్థానం గుర్తించలేకపోయాము, డిఫాల్ట్ చూపుతున్నాము. (Could not detect location, showing default.)"
)

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/categories", s.listCategories)
		v1.GET("/sources", s.listSources)
		v1.PATCH("/sources/:name", s.setSourceStatus)
		v1.GET("/news", s.listNews)
		v1.GET("/location", s.getLocation)
		v1.GET("/weather", s.getWeather)
		v1.GET("/weather/cities", s.listWeatherCities)
		v1.POST("/weather/cities", s.addWeatherCity)
		v1.DELETE("/weather/cities", s.removeWeatherCity)
		v1.GET("/weather/snapshots", s.listWeatherSnapshots)
		v1.POST("/refresh", s.refresh)
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func internalError(c *gin.Context, err error) {
	slog.Error("api: request failed", "path", c.FullPath(), "error", err)
	fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCategories(c *gin.Context) {
	ok(c, presenter.Categories)
}

func (s *Server) listSources(c *gin.Context) {
	sources, err := s.headlines.Sources(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, sources)
}

func (s *Server) listNews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(presenter.DefaultSize)))

	f := processor.Filter{Source: strings.TrimSpace(c.Query("source"))}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		name, found := presenter.LookupCategory(raw)
		if !found {
			fail(c, http.StatusBadRequest, "invalid_argument", "unknown category")
			return
		}
		f.Category = name
	}

	items, err := s.headlines.Headlines(c.Request.Context(), f)
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, presenter.Paginate(presenter.Cards(items), page, size))
}

type weatherView struct {
	City      string          `json:"city"`
	Weather   *weather.Report `json:"weather"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}

// lookupWeather 实时查询失败时退回数据库中的快照
func (s *Server) lookupWeather(ctx context.Context, city string) weatherView {
	v := weatherView{City: city}
	r, err := s.weather.Current(ctx, city)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		v.Notice = noticeWeatherNotConfigured
	case err != nil:
		slog.Warn("api: weather lookup", "city", city, "error", err)
		v.Notice = noticeWeatherUnavailable
		if s.store == nil {
			break
		}
		if snap, found := s.store.GetWeatherSnapshot(ctx, city); found {
			report := snap.Report
			fetchedAt := snap.FetchedAt
			v.Weather = &report
			v.FetchedAt = &fetchedAt
			v.Notice = noticeWeatherStale
		}
	default:
		v.Weather = r
	}
	return v
}

func (s *Server) getLocation(c *gin.Context) {
	ctx := c.Request.Context()
	loc, err := s.location.Detect(ctx)

	resp := gin.H{"location": loc}
	var notices []string
	if err != nil {
		slog.Warn("api: location lookup", "error", err)
		notices = append(notices, noticeLocationDefault)
	}
	w := s.lookupWeather(ctx, loc.City)
	resp["weather"] = w.Weather
	if w.Notice != "" {
		notices = append(notices, w.Notice)
	}
	resp["notices"] = notices
	ok(c, resp)
}

func (s *Server) getWeather(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		fail(c, http.StatusBadRequest, "invalid_argument", "city is required")
		return
	}
	ok(c, s.lookupWeather(c.Request.Context(), city))
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		fail(c, http.StatusServiceUnavailable, "storage_unavailable", "storage is not configured")
		return false
	}
	return true
}

func (s *Server) listWeatherCities(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	cities, err := s.store.ListWeatherCities(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, cities)
}

type sourceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}

// setSourceStatus 启用或停用订阅源；停用后不再出现在新闻与订阅源列表中
func (s *Server) setSourceStatus(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req sourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_argument", "status must be active or disabled")
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	err := s.store.SetSourceStatus(c.Request.Context(), name, req.Status)
	switch {
	case errors.Is(err, storage.ErrSourceNotFound):
		fail(c, http.StatusNotFound, "not_found", "source not found")
		return
	case errors.Is(err, storage.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, "invalid_argument", "status must be active or disabled")
		return
	case err != nil:
		internalError(c, err)
		return
	}
	ok(c, gin.H{"name": name, "status": req.Status})
}

type cityRequest struct {
	City string `json:"city" binding:"required"`
}

func (s *Server) addWeatherCity(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	var req cityRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.City) == "" {
		fail(c, http.StatusBadRequest, "invalid_argument", "city is required")
		return
	}
	city := strings.TrimSpace(req.City)
	if err := s.store.AddWeatherCity(c.Request.Context(), city); err != nil {
		internalError(c, err)
		return
	}
	ok(c, gin.H{"city": city})
}

func (s *Server) removeWeatherCity(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		fail(c, http.StatusBadRequest, "invalid_argument", "city is required")
		return
	}
	if err := s.store.RemoveWeatherCity(c.Request.Context(), city); err != nil {
		internalError(c, err)
		return
	}
	ok(c, gin.H{"city": city})
}

func (s *Server) listWeatherSnapshots(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	list, err := s.store.ListWeatherSnapshots(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) refresh(c *gin.Context) {
	s.refresher.ClearAll(c.Request.Context())
	ok(c, gin.H{"cleared": true})
}
