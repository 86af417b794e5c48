package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ukprayer/internal/config"
	"ukprayer/internal/ics"
	appLog "ukprayer/internal/log"
	"ukprayer/internal/metrics"
	"ukprayer/internal/model"
	"ukprayer/internal/store"
	"ukprayer/internal/timeconv"
)

// Server exposes the prayer table over HTTP. Every request is a pure
// lookup + conversion; the server holds no mutable state besides its clock.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	conv   *timeconv.Converter
	feed   *ics.Generator
	debug  bool
	now    func() time.Time
	engine *gin.Engine
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, s *store.Store, conv *timeconv.Converter, feed *ics.Generator, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &Server{
		cfg:    cfg,
		store:  s,
		conv:   conv,
		feed:   feed,
		debug:  debug,
		now:    time.Now,
		engine: gin.New(),
	}
	srv.registerRoutes()
	return srv
}

// SetClock replaces the clock used for today/tomorrow/yesterday.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("http shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.Use(gin.Recovery(), requestLogger(), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Accept", "If-None-Match"},
		ExposeHeaders:   []string{"Content-Length", "Cache-Control"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", s.handleHealth)
	if s.cfg.Metrics {
		metrics.Register()
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.GET("/locations", s.handleLocations)
	api.GET("/:location", s.handleYear)
	api.GET("/:location/today", s.handleRelative(0))
	api.GET("/:location/tomorrow", s.handleRelative(1))
	api.GET("/:location/yesterday", s.handleRelative(-1))
	api.GET("/:location/feed.ics", s.handleFeed)
	api.GET("/:location/:month", s.handleMonth)
	api.GET("/:location/:month/:day", s.handleDay)
	api.GET("/:location/:month/:day/:prayer", s.handleTime)
}

// requestLogger logs one line per request and feeds the request counter.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.IncHTTPRequest(route, status)
		appLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

type locationsResponse struct {
	Locations []locationDTO `json:"locations"`
	Prayers   []string      `json:"prayers"`
}

type locationDTO struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (s *Server) handleLocations(c *gin.Context) {
	avail := s.store.Available()
	out := locationsResponse{
		Locations: make([]locationDTO, 0, len(avail)),
		Prayers:   prayerNames(),
	}
	for _, slug := range avail {
		out.Locations = append(out.Locations, locationDTO{Slug: slug, Name: store.DisplayName(slug)})
	}
	c.JSON(http.StatusOK, out)
}

// body wraps every successful payload.
type body struct {
	Body any `json:"body"`
}

func (s *Server) handleYear(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	year, err := s.store.Year(c.Param("location"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.conv.ConvertYear(year, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.IncConversion("year")
	c.JSON(http.StatusOK, body{Body: out})
}

func (s *Server) handleMonth(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	month, ok := intParam(c, "month", store.ErrInvalidMonth)
	if !ok {
		return
	}
	rec, err := s.store.Month(c.Param("location"), month)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.conv.ConvertMonth(rec, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.IncConversion("month")
	c.JSON(http.StatusOK, body{Body: out})
}

func (s *Server) handleDay(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	month, ok := intParam(c, "month", store.ErrInvalidMonth)
	if !ok {
		return
	}
	day, ok := intParam(c, "day", store.ErrInvalidDay)
	if !ok {
		return
	}
	rec, err := s.store.Day(c.Param("location"), month, day)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.conv.ConvertDay(rec, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.IncConversion("day")
	c.JSON(http.StatusOK, body{Body: out})
}

func (s *Server) handleTime(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	month, ok := intParam(c, "month", store.ErrInvalidMonth)
	if !ok {
		return
	}
	day, ok := intParam(c, "day", store.ErrInvalidDay)
	if !ok {
		return
	}
	leaf, err := s.store.Time(c.Param("location"), month, day, c.Param("prayer"))
	if err != nil {
		s.fail(c, err)
		return
	}
	opts.Month, opts.Day = month, day
	out, err := s.conv.ConvertLeaf(leaf, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.IncConversion("leaf")
	c.JSON(http.StatusOK, body{Body: out})
}

// handleRelative serves the day offset days from today in the display zone.
// The conversion uses that day's real year.
func (s *Server) handleRelative(offset int) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := s.options(c)
		if !ok {
			return
		}
		date := s.now().In(s.conv.Location()).AddDate(0, 0, offset)

		rec, err := s.store.Day(c.Param("location"), int(date.Month()), date.Day())
		if err != nil {
			if errors.Is(err, store.ErrInvalidDay) {
				writeError(c, http.StatusNotFound, fmt.Sprintf("no prayer times recorded for %s", date.Format(time.DateOnly)))
				return
			}
			s.fail(c, err)
			return
		}
		opts.Year = date.Year()
		out, err := s.conv.ConvertDay(rec, opts)
		if err != nil {
			s.fail(c, err)
			return
		}
		metrics.IncConversion("day")
		c.JSON(http.StatusOK, body{Body: out})
	}
}

func (s *Server) handleFeed(c *gin.Context) {
	loc := store.NormalizeLocation(c.Param("location"))
	if !s.store.Has(loc) {
		s.fail(c, fmt.Errorf("%w: %q", store.ErrUnknownLocation, c.Param("location")))
		return
	}

	days := s.cfg.Feed.WindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > config.MaxFeedWindowDays {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", config.MaxFeedWindowDays))
			return
		}
		days = n
	}

	text, err := s.feed.Generate(loc, days)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.feed.CacheTTL().Seconds())))
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=prayer-times-%s.ics", loc))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(text))
}

// options reads the display query flags:
//   - 24h:  "false" selects "03:04 PM" rendering (default true)
//   - year: pins the year used for DST resolution
func (s *Server) options(c *gin.Context) (timeconv.Options, bool) {
	opts := timeconv.Options{Use24Hour: true}

	if raw := c.Query("24h"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "24h must be true or false")
			return opts, false
		}
		opts.Use24Hour = b
	}
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			writeError(c, http.StatusBadRequest, "year must be between 1 and 9999")
			return opts, false
		}
		opts.Year = y
	}
	return opts, true
}

func intParam(c *gin.Context, name string, kind error) (int, bool) {
	raw := c.Param(name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("%v: %q", kind, raw))
		return 0, false
	}
	return n, true
}

// fail maps lookup and conversion errors to a status code.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownLocation):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidMonth),
		errors.Is(err, store.ErrInvalidDay),
		errors.Is(err, store.ErrInvalidPrayer),
		errors.Is(err, timeconv.ErrInvalidDate):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		// Anything else means the loaded table is inconsistent.
		appLog.Error("request failed", err, "path", c.Request.URL.Path)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeError(c *gin.Context, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	c.AbortWithStatusJSON(status, errResp{Error: msg})
}

func prayerNames() []string {
	out := make([]string, len(model.Prayers))
	for i, p := range model.Prayers {
		out[i] = string(p)
	}
	return out
}
